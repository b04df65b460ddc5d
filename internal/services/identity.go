package services

import (
	"context"
	"errors"
	"fmt"

	"eventroster/internal/domain"
)

// MatchResult is the outcome of resolving a remote record to a local person.
// Person is nil when the record describes someone new.
type MatchResult struct {
	Person *domain.Person
}

// New reports whether no local person matched.
func (m MatchResult) New() bool { return m.Person == nil }

// IdentityResolver maps remote roster records onto local people.
type IdentityResolver struct {
	people domain.PersonRepository
}

// NewIdentityResolver returns a resolver backed by the given person store.
func NewIdentityResolver(people domain.PersonRepository) *IdentityResolver {
	return &IdentityResolver{people: people}
}

// Resolve looks the record up by legacy id first, then by normalized e-mail.
// An e-mail hit that belongs to a different legacy id is not a match.
func (r *IdentityResolver) Resolve(ctx context.Context, rec domain.RemoteMemberRecord) (MatchResult, error) {
	if rec.LegacyID != "" {
		p, err := r.people.GetByLegacyID(ctx, rec.LegacyID)
		if err == nil {
			return MatchResult{Person: p}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return MatchResult{}, fmt.Errorf("get person by legacy id: %w", err)
		}
	}

	email := domain.NormalizeEmail(rec.Email)
	if email == "" {
		return MatchResult{}, nil
	}
	p, err := r.people.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return MatchResult{}, nil
		}
		return MatchResult{}, fmt.Errorf("get person by email: %w", err)
	}
	if rec.LegacyID != "" && p.LegacyID != "" && p.LegacyID != rec.LegacyID {
		return MatchResult{}, nil
	}
	return MatchResult{Person: p}, nil
}
