package domain

import (
	"context"
	"time"
)

// Role is a member's function at an event.
type Role string

const (
	RoleContactOrganizer  Role = "Contact Organizer"
	RoleOrganizer         Role = "Organizer"
	RoleParticipant       Role = "Participant"
	RoleObserver          Role = "Observer"
	RoleBackupParticipant Role = "Backup Participant"
)

// Roles lists every recognized role.
var Roles = []Role{RoleContactOrganizer, RoleOrganizer, RoleParticipant, RoleObserver, RoleBackupParticipant}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsOrganizer reports whether the role organizes the event.
func (r Role) IsOrganizer() bool {
	return r == RoleOrganizer || r == RoleContactOrganizer
}

// Attendance is a member's RSVP/confirmation status.
type Attendance string

const (
	AttendanceConfirmed     Attendance = "Confirmed"
	AttendanceInvited       Attendance = "Invited"
	AttendanceUndecided     Attendance = "Undecided"
	AttendanceNotYetInvited Attendance = "Not Yet Invited"
	AttendanceDeclined      Attendance = "Declined"
)

// Attendances lists every recognized attendance state.
var Attendances = []Attendance{AttendanceConfirmed, AttendanceInvited, AttendanceUndecided, AttendanceNotYetInvited, AttendanceDeclined}

// Valid reports whether a is a recognized attendance state.
func (a Attendance) Valid() bool {
	for _, v := range Attendances {
		if a == v {
			return true
		}
	}
	return false
}

// CountsAgainstCapacity reports whether a member in this state holds a seat.
func (a Attendance) CountsAgainstCapacity() bool {
	return a == AttendanceInvited || a == AttendanceConfirmed
}

// Membership links one Person to one Event.
// swagger:model Membership
type Membership struct {
	ID              string     `json:"id"`
	EventID         string     `json:"event_id"`
	PersonID        string     `json:"person_id"`
	Role            Role       `json:"role"`
	Attendance      Attendance `json:"attendance"`
	ArrivalDate     *time.Time `json:"arrival_date,omitempty"`
	DepartureDate   *time.Time `json:"departure_date,omitempty"`
	StaffNotes      string     `json:"staff_notes,omitempty"`
	SpecialInfo     string     `json:"special_info,omitempty"`
	HasGuest        bool       `json:"has_guest"`
	GuestDisclaimer bool       `json:"guest_disclaimer"`
	InvitedBy       string     `json:"invited_by,omitempty"`
	InvitedOn       *time.Time `json:"invited_on,omitempty"`
	RepliedAt       *time.Time `json:"replied_at,omitempty"`
	UpdatedBy       string     `json:"updated_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Person is loaded alongside the membership when the caller needs it; it is not stored.
	Person *Person `json:"person,omitempty"`
}

// ReportKind is the error-report bucket for memberships.
func (m *Membership) ReportKind() string { return "Membership" }

// MembershipRepository defines storage operations for memberships.
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Update(ctx context.Context, m *Membership) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Membership, error)
	GetByEventAndPerson(ctx context.Context, eventID, personID string) (*Membership, error)
	ListByEvent(ctx context.Context, eventID string, params PaginationParams) ([]*Membership, int, error)
	ListByRole(ctx context.Context, eventID string, role Role) ([]*Membership, error)
	// CountByAttendance counts the event's memberships in any of the given states, skipping excludeID.
	CountByAttendance(ctx context.Context, eventID, excludeID string, states ...Attendance) (int, error)
}
