package domain

import (
	"context"
	"strings"
	"time"
)

// Person is an individual who may be a member of many events.
// swagger:model Person
type Person struct {
	ID            string    `json:"id"`
	LegacyID      string    `json:"legacy_id,omitempty"`
	Firstname     string    `json:"firstname" validate:"required" label:"Firstname"`
	Lastname      string    `json:"lastname" validate:"required" label:"Lastname"`
	Email         string    `json:"email" validate:"required,email" label:"Email"`
	Affiliation   string    `json:"affiliation" validate:"required" label:"Affiliation"`
	Title         string    `json:"title,omitempty"`
	Department    string    `json:"department,omitempty"`
	URL           string    `json:"url,omitempty" validate:"omitempty,url" label:"URL"`
	Phone         string    `json:"phone,omitempty"`
	Address1      string    `json:"address1,omitempty"`
	City          string    `json:"city,omitempty"`
	Region        string    `json:"region,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Country       string    `json:"country,omitempty"`
	Biography     string    `json:"biography,omitempty"`
	ResearchAreas string    `json:"research_areas,omitempty"`
	UpdatedBy     string    `json:"updated_by" validate:"required" label:"Updated by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReportKind is the error-report bucket for people.
func (p *Person) ReportKind() string { return "Person" }

// Name returns "Firstname Lastname".
func (p *Person) Name() string {
	return strings.TrimSpace(p.Firstname + " " + p.Lastname)
}

// NormalizeEmail lower-cases and trims an e-mail address for identity lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PersonRepository defines storage operations for people.
type PersonRepository interface {
	Create(ctx context.Context, p *Person) error
	Update(ctx context.Context, p *Person) error
	GetByID(ctx context.Context, id string) (*Person, error)
	GetByLegacyID(ctx context.Context, legacyID string) (*Person, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*Person, error)
}
