package domain

import (
	"context"
	"time"
)

// Reminder records one reminder e-mail sent for an invitation.
type Reminder struct {
	SentAt time.Time `json:"sent_at"`
	SentBy string    `json:"sent_by"`
}

// Invitation is a single-use RSVP code issued for one membership.
// swagger:model Invitation
type Invitation struct {
	ID           string     `json:"id"`
	MembershipID string     `json:"membership_id"`
	Code         string     `json:"code"`
	InvitedOn    time.Time  `json:"invited_on"`
	Expires      time.Time  `json:"expires"`
	Reminders    []Reminder `json:"reminders"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the invitation can no longer be used at now.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.Expires)
}

// InvitationRepository defines storage operations for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	// AddReminder appends to the reminder history; existing entries are kept.
	AddReminder(ctx context.Context, invitationID string, r Reminder) error
	GetByCode(ctx context.Context, code string) (*Invitation, error)
	GetByMembershipID(ctx context.Context, membershipID string) (*Invitation, error)
	Delete(ctx context.Context, id string) error
}
