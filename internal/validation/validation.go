// Package validation checks struct fields and reports human-readable messages.
package validation

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// defaultValidator validates domain structs before they are stored.
	defaultValidator = validator.New()
	defaultEn        = en.New()
	uni              = ut.New(defaultEn, defaultEn)

	// trans is the English translator used for every message.
	trans, _ = uni.GetTranslator(defaultEn.Locale())
)

// Violation is a single failed rule.
type Violation struct {
	Tag         string
	Field       string
	Err         error
	Description string
}

// Error returns the error message.
func (e Violation) Error() string {
	return e.Description
}

// StructError is the error returned by the validation of struct.
type StructError struct {
	Violations []Violation
}

// Error returns the error message.
func (s StructError) Error() string {
	return strings.Join(s.Messages(), ", ")
}

// Messages returns the translated description of every violation, in field order.
func (s StructError) Messages() []string {
	msgs := make([]string, 0, len(s.Violations))
	for _, v := range s.Violations {
		msgs = append(msgs, v.Description)
	}
	return msgs
}

// RegisterValidation is shortcut of defaultValidator.RegisterValidation.
func RegisterValidation(tag string, fn validator.Func) error {
	if err := defaultValidator.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}
	return nil
}

// RegisterTranslation registers msg for tag, replacing any existing translation.
func RegisterTranslation(tag, msg string) error {
	if err := defaultValidator.RegisterTranslation(
		tag,
		trans,
		func(ut ut.Translator) error {
			if err := ut.Add(tag, msg, true); err != nil {
				return fmt.Errorf("register translation: %w", err)
			}
			return nil
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field(), fe.Param())
			return t
		},
	); err != nil {
		return fmt.Errorf("register translation: %w", err)
	}
	return nil
}

// ValidateStruct validates s against its `validate` tags.
func ValidateStruct(s interface{}) error {
	if err := defaultValidator.Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate struct: %w", err)
		}
		structError := &StructError{}
		for _, e := range verrs {
			structError.Violations = append(structError.Violations, Violation{
				Tag:         e.Tag(),
				Field:       e.StructField(),
				Err:         e,
				Description: e.Translate(trans),
			})
		}
		return structError
	}
	return nil
}

// Messages validates s and returns the failure messages, or nil when s is valid.
func Messages(s interface{}) []string {
	err := ValidateStruct(s)
	if err == nil {
		return nil
	}
	if se, ok := err.(*StructError); ok {
		return se.Messages()
	}
	return []string{err.Error()}
}

// fieldLabel names fields by their `label` tag, falling back to the Go field name.
func fieldLabel(f reflect.StructField) string {
	if label := f.Tag.Get("label"); label != "" {
		return label
	}
	return f.Name
}

func init() {
	defaultValidator.RegisterTagNameFunc(fieldLabel)

	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		fmt.Fprintln(os.Stderr, "validation register default translations:", err)
		os.Exit(1)
	}

	if err := RegisterTranslation("required", "{0} can't be blank"); err != nil {
		fmt.Fprintln(os.Stderr, "validation required:", err)
		os.Exit(1)
	}
	if err := RegisterTranslation("email", "{0} is invalid"); err != nil {
		fmt.Fprintln(os.Stderr, "validation email:", err)
		os.Exit(1)
	}

	if err := RegisterValidation("timezone", func(level validator.FieldLevel) bool {
		val := level.Field().String()
		if val == "" {
			return true
		}
		_, err := time.LoadLocation(val)
		return err == nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, "validation timezone:", err)
		os.Exit(1)
	}
	if err := RegisterTranslation("timezone", "{0} is not a known time zone"); err != nil {
		fmt.Fprintln(os.Stderr, "validation timezone:", err)
		os.Exit(1)
	}
}
