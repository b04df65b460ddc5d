package services

import (
	"time"

	"eventroster/internal/domain"
)

// DeadlinePolicy sets how reply-by dates are derived.
type DeadlinePolicy struct {
	// OffsetDays is how long before the event start replies are due.
	OffsetDays int
	// MinDays is the least time an invitee gets after being invited or reminded.
	MinDays int
}

// RSVPBy returns the reply-by date for an invitation or reminder sent at
// sentOn: the later of start minus OffsetDays and sentOn plus MinDays, but no
// later than the day before the event and no earlier than sentOn itself.
// Dates are calendar days in loc.
func RSVPBy(policy DeadlinePolicy, eventStart time.Time, loc *time.Location, sentOn time.Time) time.Time {
	start := domain.DateIn(eventStart, loc)
	sent := domain.DateIn(sentOn, loc)

	by := start.AddDate(0, 0, -policy.OffsetDays)
	if floor := sent.AddDate(0, 0, policy.MinDays); floor.After(by) {
		by = floor
	}
	if last := start.AddDate(0, 0, -1); by.After(last) {
		by = last
	}
	if by.Before(sent) {
		by = sent
	}
	return by
}

func (s *invitationService) rsvpBy(event *domain.Event, sentOn time.Time) time.Time {
	return RSVPBy(s.settings.Deadline, event.StartDate, event.Loc(), sentOn)
}
