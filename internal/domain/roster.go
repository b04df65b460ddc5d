package domain

import (
	"context"
	"fmt"
)

// RemoteMemberRecord is one person's membership as reported by the legacy system.
type RemoteMemberRecord struct {
	LegacyID      string `json:"legacy_id"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Email         string `json:"email"`
	Affiliation   string `json:"affiliation"`
	Role          string `json:"role"`
	Attendance    string `json:"attendance"`
	ArrivalDate   string `json:"arrival_date"`
	DepartureDate string `json:"departure_date"`
	StaffNotes    string `json:"staff_notes"`
}

// RosterStatus tags the outcome of a roster fetch.
type RosterStatus int

const (
	// RosterEmpty means the provider returned nothing usable.
	RosterEmpty RosterStatus = iota
	// RosterOK means Records holds at least one record.
	RosterOK
)

// RosterResult is the tagged result of RosterProvider.FetchMembers.
type RosterResult struct {
	Status  RosterStatus
	Records []RemoteMemberRecord
}

// NewRosterResult tags records as RosterOK, or RosterEmpty when there are none.
func NewRosterResult(records []RemoteMemberRecord) RosterResult {
	if len(records) == 0 {
		return RosterResult{Status: RosterEmpty}
	}
	return RosterResult{Status: RosterOK, Records: records}
}

// RosterProvider fetches an event's roster from the legacy system (or a test double).
type RosterProvider interface {
	FetchMembers(ctx context.Context, event *Event) (RosterResult, error)
}

// RemotePusher writes a locally changed membership back to the legacy system.
type RemotePusher interface {
	UpdateMember(ctx context.Context, event *Event, person *Person, m *Membership) error
}

// RSVPChecker asks the legacy system about RSVP codes that are unknown locally.
// It returns the denial text to show the responder.
type RSVPChecker interface {
	CheckRSVP(ctx context.Context, code string) (denied string, err error)
}

// NoResultsError aborts a sync run when the provider had no members for the event.
type NoResultsError struct {
	EventCode string
	Cause     error
}

func (e *NoResultsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no remote members for %s: %v", e.EventCode, e.Cause)
	}
	return fmt.Sprintf("no remote members for %s", e.EventCode)
}

func (e *NoResultsError) Unwrap() error { return e.Cause }
