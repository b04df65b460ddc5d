package services

import (
	"time"

	"eventroster/internal/domain"
)

// Metrics receives operational counters from the roster services.
type Metrics interface {
	ObserveSyncRun(eventCode, result string, duration time.Duration)
	AddSyncRecords(eventCode, result string, n int)
	IncAttendanceTransition(from, to domain.Attendance)
	IncRSVPResponse(response domain.RSVPResponse)
	IncRSVPRejection(reason domain.RSVPReason)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveSyncRun(string, string, time.Duration) {}
func (NopMetrics) AddSyncRecords(string, string, int) {}
func (NopMetrics) IncAttendanceTransition(domain.Attendance, domain.Attendance) {}
func (NopMetrics) IncRSVPResponse(domain.RSVPResponse) {}
func (NopMetrics) IncRSVPRejection(domain.RSVPReason) {}

// Repositories groups the stores the roster services share.
type Repositories struct {
	Events      domain.EventRepository
	People      domain.PersonRepository
	Memberships domain.MembershipRepository
	Invitations domain.InvitationRepository
}
