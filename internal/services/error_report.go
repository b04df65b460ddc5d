package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"eventroster/internal/domain"
)

// Reportable is anything the error report can file under a kind.
type Reportable interface {
	ReportKind() string
}

// Source names a non-record origin of errors, such as the roster provider.
type Source string

// ReportKind returns the source name.
func (s Source) ReportKind() string { return string(s) }

// LegacyConnector is the source used for roster provider failures.
const LegacyConnector Source = "LegacyConnector"

// Checker produces the validation messages of an entity.
type Checker interface {
	Check(ctx context.Context, entity Reportable) ([]string, error)
}

// ErrorEntry is one failed entity and its messages.
type ErrorEntry struct {
	Kind     string
	Object   Reportable
	Messages []string
}

// ErrorReport collects the failures of one run and mails them as a single digest.
type ErrorReport struct {
	from       string
	event      *domain.Event
	checker    Checker
	dispatcher domain.Dispatcher
	settings   Settings
	logger     *slog.Logger

	kinds  []string
	errors map[string][]ErrorEntry
}

// NewErrorReport returns an empty report for event, raised by from.
func NewErrorReport(from string, event *domain.Event, checker Checker, dispatcher domain.Dispatcher, settings Settings, logger *slog.Logger) *ErrorReport {
	return &ErrorReport{
		from:       from,
		event:      event,
		checker:    checker,
		dispatcher: dispatcher,
		settings:   settings,
		logger:     logger,
		errors:     make(map[string][]ErrorEntry),
	}
}

// Add records entity under its kind. Custom messages are taken verbatim;
// otherwise the entity is validated. Entities without messages are skipped.
func (r *ErrorReport) Add(ctx context.Context, entity Reportable, custom ...string) {
	msgs := custom
	if len(msgs) == 0 && r.checker != nil {
		checked, err := r.checker.Check(ctx, entity)
		if err != nil {
			r.logger.Error("error report: validate entity", "kind", entity.ReportKind(), "error", err)
			checked = []string{err.Error()}
		}
		msgs = checked
	}
	if len(msgs) == 0 {
		return
	}

	kind := entity.ReportKind()
	if _, ok := r.errors[kind]; !ok {
		r.kinds = append(r.kinds, kind)
	}
	r.errors[kind] = append(r.errors[kind], ErrorEntry{Kind: kind, Object: entity, Messages: msgs})
}

// Errors returns the recorded entries by kind, each list in insertion order.
func (r *ErrorReport) Errors() map[string][]ErrorEntry {
	return r.errors
}

// Empty reports whether nothing has been recorded.
func (r *ErrorReport) Empty() bool {
	return len(r.kinds) == 0
}

// Summaries flattens the report for API and CLI output.
func (r *ErrorReport) Summaries() []domain.ErrorSummary {
	out := []domain.ErrorSummary{}
	for _, kind := range r.kinds {
		for _, e := range r.errors[kind] {
			out = append(out, domain.ErrorSummary{Kind: kind, Subject: subjectName(e.Object), Messages: e.Messages})
		}
	}
	return out
}

// Send dispatches the digest once. It does nothing when the report is empty.
func (r *ErrorReport) Send(ctx context.Context) error {
	if r.Empty() {
		return nil
	}
	to, cc := r.settings.StaffEmail, r.settings.SysadminEmail
	if to == "" {
		to, cc = cc, ""
	}
	if to == "" {
		return fmt.Errorf("send error report: no staff or sysadmin address configured")
	}

	msg := &domain.Message{
		To:      []string{to},
		Subject: r.subject(),
		Body:    r.Digest(),
	}
	if cc != "" {
		msg.Cc = []string{cc}
	}

	eventID := ""
	if r.event != nil {
		eventID = r.event.ID
	}
	if err := r.dispatcher.Enqueue(ctx, eventID, msg); err != nil {
		return fmt.Errorf("enqueue error report: %w", err)
	}
	return nil
}

func (r *ErrorReport) subject() string {
	if r.event == nil {
		return fmt.Sprintf("!! %s errors !!", r.from)
	}
	return fmt.Sprintf("!! %s (%s) Data errors !!", r.event.Code, r.event.Location)
}

// Digest renders the report body. Person blocks are followed by that person's
// membership blocks, except memberships whose messages the person block
// already shows.
func (r *ErrorReport) Digest() string {
	var sb strings.Builder

	for _, kind := range r.kinds {
		if kind == kindPerson || kind == kindMembership {
			continue
		}
		for _, e := range r.errors[kind] {
			fmt.Fprintf(&sb, "%s: %s\n\n", kind, strings.Join(e.Messages, ", "))
		}
	}

	memberships := r.errors[kindMembership]
	used := make([]bool, len(memberships))
	for _, pe := range r.errors[kindPerson] {
		p, ok := pe.Object.(*domain.Person)
		if !ok {
			continue
		}
		r.writePerson(&sb, p, pe.Messages)

		key := personKey(p)
		for i, me := range memberships {
			if used[i] || membershipPersonKey(me.Object) != key {
				continue
			}
			used[i] = true
			if containsAll(pe.Messages, me.Messages) {
				continue
			}
			r.writeMembership(&sb, me)
		}
	}
	for i, me := range memberships {
		if !used[i] {
			r.writeMembership(&sb, me)
		}
	}
	return sb.String()
}

const (
	kindPerson     = "Person"
	kindMembership = "Membership"
)

func (r *ErrorReport) writePerson(sb *strings.Builder, p *domain.Person, msgs []string) {
	fmt.Fprintf(sb, "* %s: %s\n", p.Name(), strings.Join(msgs, ", "))
	fmt.Fprintf(sb, "   -> %s%s\n\n", r.settings.LegacyPersonURL, p.LegacyID)
}

func (r *ErrorReport) writeMembership(sb *strings.Builder, e ErrorEntry) {
	name, legacyID := subjectName(e.Object), ""
	if m, ok := e.Object.(*domain.Membership); ok && m.Person != nil {
		legacyID = m.Person.LegacyID
	}
	fmt.Fprintf(sb, "* Membership of %s: %s\n", name, strings.Join(e.Messages, ", "))
	fmt.Fprintf(sb, "   -> %s%s&ps=events\n\n", r.settings.LegacyPersonURL, legacyID)
}

func subjectName(obj Reportable) string {
	switch v := obj.(type) {
	case *domain.Person:
		return v.Name()
	case *domain.Membership:
		if v.Person != nil {
			return v.Person.Name()
		}
		return v.PersonID
	}
	return obj.ReportKind()
}

// personKey identifies a person by id, else legacy id, else normalized e-mail.
func personKey(p *domain.Person) string {
	switch {
	case p == nil:
		return ""
	case p.ID != "":
		return "id:" + p.ID
	case p.LegacyID != "":
		return "legacy:" + p.LegacyID
	default:
		return "email:" + domain.NormalizeEmail(p.Email)
	}
}

func membershipPersonKey(obj Reportable) string {
	m, ok := obj.(*domain.Membership)
	if !ok {
		return ""
	}
	if m.Person != nil {
		return personKey(m.Person)
	}
	if m.PersonID != "" {
		return "id:" + m.PersonID
	}
	return ""
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
