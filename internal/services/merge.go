package services

import (
	"strings"
	"time"

	"eventroster/internal/domain"
)

// FieldMerger folds remote roster data into local records. Blank local fields
// are filled; local edits are kept. Names and the legacy id belong to the
// legacy system and follow it whenever it sends a value.
type FieldMerger struct {
	importer string
}

// NewFieldMerger returns a merger that stamps records with the importer identity.
func NewFieldMerger(importer string) *FieldMerger {
	return &FieldMerger{importer: importer}
}

// MergePerson returns local updated from rec. A nil local yields a new person.
func (f *FieldMerger) MergePerson(local *domain.Person, rec domain.RemoteMemberRecord, now time.Time) *domain.Person {
	p := &domain.Person{}
	if local != nil {
		cp := *local
		p = &cp
	}

	authoritative(&p.LegacyID, rec.LegacyID)
	authoritative(&p.Firstname, rec.Firstname)
	authoritative(&p.Lastname, rec.Lastname)
	fillBlank(&p.Email, strings.TrimSpace(rec.Email))
	fillBlank(&p.Affiliation, rec.Affiliation)

	p.UpdatedBy = f.importer
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return p
}

// MergeMembership returns local updated from rec. local must carry the event
// and person ids; for a new membership pass a record with only those set.
func (f *FieldMerger) MergeMembership(local *domain.Membership, rec domain.RemoteMemberRecord, now time.Time) *domain.Membership {
	m := &domain.Membership{}
	if local != nil {
		cp := *local
		m = &cp
	}

	fillBlank((*string)(&m.Role), rec.Role)
	fillBlank((*string)(&m.Attendance), rec.Attendance)
	fillBlank(&m.StaffNotes, rec.StaffNotes)
	if m.ArrivalDate == nil {
		m.ArrivalDate = parseRemoteDate(rec.ArrivalDate)
	}
	if m.DepartureDate == nil {
		m.DepartureDate = parseRemoteDate(rec.DepartureDate)
	}

	if !m.Role.Valid() {
		m.Role = domain.RoleParticipant
	}
	if m.Role == domain.RoleBackupParticipant {
		m.Attendance = domain.AttendanceNotYetInvited
	}
	if !m.Attendance.Valid() {
		m.Attendance = domain.AttendanceNotYetInvited
	}

	m.UpdatedBy = f.importer
	m.UpdatedAt = now
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	return m
}

func fillBlank(dst *string, remote string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(remote)
	}
}

func authoritative(dst *string, remote string) {
	if v := strings.TrimSpace(remote); v != "" {
		*dst = v
	}
}

var remoteDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// parseRemoteDate returns the calendar date carried by s, or nil when s is
// blank or unparseable.
func parseRemoteDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range remoteDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, mo, d := t.Date()
			date := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
			return &date
		}
	}
	return nil
}
