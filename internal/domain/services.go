package domain

import (
	"context"
	"time"
)

// SaveOptions controls how a membership save is attributed and propagated.
type SaveOptions struct {
	// Actor is stamped into UpdatedBy.
	Actor string
	// PersistAndPush sends the saved record to the legacy system after commit.
	PersistAndPush bool
}

// SyncOutcome summarizes one reconciliation run.
type SyncOutcome struct {
	EventID            string         `json:"event_id"`
	EventCode          string         `json:"event_code"`
	Processed          int            `json:"processed"`
	PeopleCreated      int            `json:"people_created"`
	PeopleUpdated      int            `json:"people_updated"`
	MembershipsCreated int            `json:"memberships_created"`
	MembershipsUpdated int            `json:"memberships_updated"`
	Failed             int            `json:"failed"`
	Errors             []ErrorSummary `json:"errors"`
}

// ErrorSummary is a serializable view of one recorded sync failure.
type ErrorSummary struct {
	Kind     string   `json:"kind"`
	Subject  string   `json:"subject"`
	Messages []string `json:"messages"`
}

// SyncService reconciles a local roster with the legacy system.
type SyncService interface {
	Run(ctx context.Context, eventID string) (*SyncOutcome, error)
}

// MembershipService owns the attendance lifecycle of memberships.
type MembershipService interface {
	Get(ctx context.Context, membershipID string) (*Membership, error)
	ListByEvent(ctx context.Context, eventID string, params PaginationParams) ([]*Membership, int, error)
	Save(ctx context.Context, m *Membership, opts SaveOptions) error
	Transition(ctx context.Context, membershipID string, to Attendance, opts SaveOptions) (*Membership, error)
	Delete(ctx context.Context, membershipID string) error
}

// InvitationService issues invitations and handles RSVP responses.
type InvitationService interface {
	Invite(ctx context.Context, membershipID, invitedBy string) (*Invitation, error)
	Remind(ctx context.Context, membershipID, sentBy string) (*Invitation, error)
	Revoke(ctx context.Context, membershipID string) error
	ReplyByDates(ctx context.Context, membershipID string) (*ReplyByReport, error)
	Check(ctx context.Context, code string) (*RSVPSession, error)
	RespondYes(ctx context.Context, code string, resp *YesResponse) (*Membership, error)
	RespondNo(ctx context.Context, code, organizerMessage string) (*Membership, error)
	RespondMaybe(ctx context.Context, code, organizerMessage string) (*Membership, error)
	Feedback(ctx context.Context, membershipID, message string) error
}

// ReplyByReport lists the reply-by date for the invitation and for each reminder.
type ReplyByReport struct {
	Invitation *Invitation     `json:"invitation"`
	InvitedOn  time.Time       `json:"invited_on"`
	ReplyBy    time.Time       `json:"reply_by"`
	Reminders  []ReminderReply `json:"reminders"`
}

// ReminderReply pairs a reminder with the reply-by date it announced.
type ReminderReply struct {
	Reminder
	ReplyBy time.Time `json:"reply_by"`
}
