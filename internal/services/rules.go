package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"eventroster/internal/domain"
	"eventroster/internal/validation"
)

// rules holds the record-level validations for people and memberships.
// Struct tag rules run through the validation package; the rest need the store.
type rules struct {
	events      domain.EventRepository
	people      domain.PersonRepository
	memberships domain.MembershipRepository
	settings    Settings
}

func newRules(events domain.EventRepository, people domain.PersonRepository, memberships domain.MembershipRepository, settings Settings) *rules {
	return &rules{events: events, people: people, memberships: memberships, settings: settings}
}

// Check returns the validation messages for any reportable entity.
func (r *rules) Check(ctx context.Context, entity Reportable) ([]string, error) {
	switch v := entity.(type) {
	case *domain.Person:
		return r.personMessages(ctx, v)
	case *domain.Membership:
		c := &membershipCheck{m: v}
		if v.ID != "" {
			prev, err := r.memberships.GetByID(ctx, v.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get membership: %w", err)
			}
			c.prev = prev
		}
		if err := r.validateMembership(ctx, c); err != nil {
			return nil, err
		}
		return c.msgs, nil
	}
	return nil, nil
}

// validatePerson returns a *domain.ValidationError when p is invalid.
func (r *rules) validatePerson(ctx context.Context, p *domain.Person) error {
	msgs, err := r.personMessages(ctx, p)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		return domain.NewValidationError(p.ReportKind(), msgs, false)
	}
	return nil
}

func (r *rules) personMessages(ctx context.Context, p *domain.Person) ([]string, error) {
	msgs := validation.Messages(p)

	if p.Email != "" {
		other, err := r.people.GetByEmail(ctx, p.Email)
		switch {
		case err == nil && other.ID != p.ID:
			msgs = append(msgs, "Email has already been taken")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("check email uniqueness: %w", err)
		}
	}
	if p.LegacyID != "" {
		other, err := r.people.GetByLegacyID(ctx, p.LegacyID)
		switch {
		case err == nil && other.ID != p.ID:
			msgs = append(msgs, "Legacy ID has already been taken")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("check legacy id uniqueness: %w", err)
		}
	}
	return msgs, nil
}

// membershipCheck is the state threaded through the membership rules.
type membershipCheck struct {
	m      *domain.Membership
	prev   *domain.Membership // stored version; nil for a new membership
	event  *domain.Event
	person *domain.Person

	msgs     []string
	capacity bool
}

func (c *membershipCheck) add(msg string) { c.msgs = append(c.msgs, msg) }

type membershipRule func(ctx context.Context, c *membershipCheck) error

// membershipRules lists the checks run on every membership save, in order.
func (r *rules) membershipRules() []membershipRule {
	return []membershipRule{
		r.normalizeRole,
		r.normalizeAttendance,
		r.requireEvent,
		r.requirePerson,
		r.requireUpdatedBy,
		r.uniqueParticipant,
		r.stayDates,
		r.guestDisclaimer,
		r.capacityAvailable,
	}
}

func (r *rules) validateMembership(ctx context.Context, c *membershipCheck) error {
	for _, rule := range r.membershipRules() {
		if err := rule(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// err wraps the collected messages, or returns nil when there are none.
func (c *membershipCheck) err() error {
	if len(c.msgs) == 0 {
		return nil
	}
	return domain.NewValidationError(c.m.ReportKind(), c.msgs, c.capacity)
}

func (r *rules) normalizeRole(_ context.Context, c *membershipCheck) error {
	if !c.m.Role.Valid() {
		c.m.Role = domain.RoleParticipant
	}
	return nil
}

func (r *rules) normalizeAttendance(_ context.Context, c *membershipCheck) error {
	if !c.m.Attendance.Valid() {
		c.m.Attendance = domain.AttendanceNotYetInvited
	}
	return nil
}

func (r *rules) requireEvent(ctx context.Context, c *membershipCheck) error {
	if c.event != nil {
		return nil
	}
	if c.m.EventID == "" {
		c.add("Event can't be blank")
		return nil
	}
	event, err := r.events.GetByID(ctx, c.m.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.add("Event can't be blank")
			return nil
		}
		return fmt.Errorf("get event: %w", err)
	}
	c.event = event
	return nil
}

// requirePerson also folds the person's own messages into the membership's.
func (r *rules) requirePerson(ctx context.Context, c *membershipCheck) error {
	person := c.person
	if person == nil {
		person = c.m.Person
	}
	if person == nil && c.m.PersonID != "" {
		p, err := r.people.GetByID(ctx, c.m.PersonID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get person: %w", err)
		}
		person = p
	}
	if person == nil {
		c.add("Person can't be blank")
		return nil
	}
	c.person = person

	msgs, err := r.personMessages(ctx, person)
	if err != nil {
		return err
	}
	if len(msgs) == 0 && person.ID == "" {
		// A valid person that was never stored cannot be linked.
		c.add("Person can't be blank")
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (r *rules) requireUpdatedBy(_ context.Context, c *membershipCheck) error {
	if c.m.UpdatedBy == "" {
		c.add("Updated by can't be blank")
	}
	return nil
}

func (r *rules) uniqueParticipant(ctx context.Context, c *membershipCheck) error {
	if c.event == nil || c.person == nil || c.person.ID == "" {
		return nil
	}
	other, err := r.memberships.GetByEventAndPerson(ctx, c.event.ID, c.person.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check membership uniqueness: %w", err)
	}
	if other.ID != c.m.ID {
		c.add("Person is already a participant of this event")
	}
	return nil
}

func (r *rules) stayDates(_ context.Context, c *membershipCheck) error {
	if c.event == nil {
		return nil
	}
	loc := c.event.Loc()
	starts, ends := c.event.StartsOn(), c.event.EndsOn()

	var arrival, departure time.Time
	if c.m.ArrivalDate != nil {
		arrival = domain.DateIn(*c.m.ArrivalDate, loc)
		if arrival.After(ends) {
			c.add("Arrival date must be before the end of the event")
		}
		if daysBetween(arrival, starts) >= r.settings.ArrivalWindowDays {
			c.add(fmt.Sprintf("Arrival date must be within %d days of the event", r.settings.ArrivalWindowDays))
		}
	}
	if c.m.DepartureDate != nil {
		departure = domain.DateIn(*c.m.DepartureDate, loc)
		if departure.Before(starts) {
			c.add("Departure date must be after the beginning of the event")
		}
	}
	if !arrival.IsZero() && !departure.IsZero() && arrival.After(departure) {
		c.add("Arrival date must be before the departure date")
	}
	return nil
}

// daysBetween returns the absolute number of calendar days between two dates.
func daysBetween(a, b time.Time) int {
	return int(math.Abs(math.Round(a.Sub(b).Hours() / 24)))
}

func (r *rules) guestDisclaimer(_ context.Context, c *membershipCheck) error {
	if c.m.HasGuest && !c.m.GuestDisclaimer {
		c.add("Guest disclaimer must be acknowledged if bringing a guest")
	}
	return nil
}

// capacityAvailable guards moves into a seat-holding state. A membership that
// already held a seat keeps it even if the limit was lowered since.
func (r *rules) capacityAvailable(ctx context.Context, c *membershipCheck) error {
	if c.event == nil || !c.m.Attendance.CountsAgainstCapacity() {
		return nil
	}
	if c.prev != nil && c.prev.Attendance.CountsAgainstCapacity() {
		return nil
	}
	held, err := r.memberships.CountByAttendance(ctx, c.event.ID, c.m.ID,
		domain.AttendanceInvited, domain.AttendanceConfirmed)
	if err != nil {
		return fmt.Errorf("count invited participants: %w", err)
	}
	if c.event.MaxParticipants-(held+1) < 0 {
		c.add(fmt.Sprintf("Attendance: the maximum number of invited participants for %s has been reached", c.event.Code))
		c.capacity = true
	}
	return nil
}
