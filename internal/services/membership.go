package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventroster/internal/domain"
)

type membershipService struct {
	repos      Repositories
	rules      *rules
	pusher     domain.RemotePusher
	dispatcher domain.Dispatcher
	notices    notices
	locks      *eventLocks
	settings   Settings
	metrics    Metrics
	logger     *slog.Logger
}

// NewMembershipService returns the attendance state machine. pusher may be nil
// when no legacy system is configured.
func NewMembershipService(
	repos Repositories,
	pusher domain.RemotePusher,
	dispatcher domain.Dispatcher,
	settings Settings,
	metrics Metrics,
	logger *slog.Logger,
) domain.MembershipService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &membershipService{
		repos:      repos,
		rules:      newRules(repos.Events, repos.People, repos.Memberships, settings),
		pusher:     pusher,
		dispatcher: dispatcher,
		notices:    notices{settings: settings},
		locks:      newEventLocks(),
		settings:   settings,
		metrics:    metrics,
		logger:     logger,
	}
}

func (s *membershipService) Get(ctx context.Context, membershipID string) (*domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
	defer cancel()

	m, err := s.repos.Memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if err := s.loadPerson(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *membershipService) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Membership, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
	defer cancel()

	if _, err := s.repos.Events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	list, total, err := s.repos.Memberships.ListByEvent(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list memberships: %w", err)
	}
	// One lookup per member; rosters are small.
	for _, m := range list {
		if err := s.loadPerson(ctx, m); err != nil {
			return nil, 0, err
		}
	}
	if list == nil {
		list = []*domain.Membership{}
	}
	return list, total, nil
}

func (s *membershipService) loadPerson(ctx context.Context, m *domain.Membership) error {
	p, err := s.repos.People.GetByID(ctx, m.PersonID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get person: %w", err)
	}
	m.Person = p
	return nil
}

// Save validates and stores m, then runs the post-save effects. The capacity
// check, the write and the confirmed-count refresh happen under the event lock.
func (s *membershipService) Save(ctx context.Context, m *domain.Membership, opts domain.SaveOptions) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
	defer cancel()

	if opts.Actor != "" {
		m.UpdatedBy = opts.Actor
	}
	if m.PersonID == "" && m.Person != nil {
		m.PersonID = m.Person.ID
	}

	unlock := s.locks.lock(m.EventID)
	c, err := s.commit(ctx, m)
	unlock()
	if err != nil {
		return err
	}

	s.afterCommit(ctx, c, opts)
	return nil
}

func (s *membershipService) commit(ctx context.Context, m *domain.Membership) (*membershipCheck, error) {
	c := &membershipCheck{m: m}
	if m.ID != "" {
		prev, err := s.repos.Memberships.GetByID(ctx, m.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get membership: %w", err)
		}
		c.prev = prev
	}

	if err := s.rules.validateMembership(ctx, c); err != nil {
		return nil, err
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	now := s.settings.now()
	m.UpdatedAt = now
	if c.prev == nil {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if err := s.repos.Memberships.Create(ctx, m); err != nil {
			return nil, fmt.Errorf("create membership: %w", err)
		}
	} else {
		if err := s.repos.Memberships.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("update membership: %w", err)
		}
	}
	m.Person = c.person

	if err := s.recountConfirmed(ctx, m.EventID); err != nil {
		return nil, err
	}
	return c, nil
}

// afterCommit runs the side effects of a successful save, in order.
func (s *membershipService) afterCommit(ctx context.Context, c *membershipCheck, opts domain.SaveOptions) {
	from := domain.AttendanceNotYetInvited
	if c.prev != nil {
		from = c.prev.Attendance
	}
	if from != c.m.Attendance {
		s.metrics.IncAttendanceTransition(from, c.m.Attendance)
	}

	s.noticeConfirmation(ctx, c, from)
	if opts.PersistAndPush {
		s.pushToLegacy(ctx, c)
	}
}

func (s *membershipService) noticeConfirmation(ctx context.Context, c *membershipCheck, from domain.Attendance) {
	if c.prev == nil || from == c.m.Attendance {
		return
	}
	var change string
	switch {
	case c.m.Attendance == domain.AttendanceConfirmed:
		change = "is now confirmed"
	case from == domain.AttendanceConfirmed:
		change = "is no longer confirmed"
	default:
		return
	}
	msg := s.notices.confirmationNotice(c.event, c.person, c.m, change)
	if len(msg.To) == 0 {
		s.logger.Warn("confirmation notice has no recipient", "event", c.event.Code, "membership_id", c.m.ID)
		return
	}
	if err := s.dispatcher.Enqueue(ctx, c.event.ID, msg); err != nil {
		s.logger.Error("enqueue confirmation notice", "event", c.event.Code, "membership_id", c.m.ID, "error", err)
	}
}

// pushToLegacy never fails the save; the local write has already committed.
func (s *membershipService) pushToLegacy(ctx context.Context, c *membershipCheck) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.UpdateMember(ctx, c.event, c.person, c.m); err != nil {
		s.logger.Error("push membership to legacy system", "event", c.event.Code, "membership_id", c.m.ID, "error", err)
	}
}

func (s *membershipService) recountConfirmed(ctx context.Context, eventID string) error {
	n, err := s.repos.Memberships.CountByAttendance(ctx, eventID, "", domain.AttendanceConfirmed)
	if err != nil {
		return fmt.Errorf("count confirmed: %w", err)
	}
	if err := s.repos.Events.UpdateConfirmedCount(ctx, eventID, n); err != nil {
		return fmt.Errorf("update confirmed count: %w", err)
	}
	return nil
}

// Transition moves a membership to another attendance state.
func (s *membershipService) Transition(ctx context.Context, membershipID string, to domain.Attendance, opts domain.SaveOptions) (*domain.Membership, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown attendance %q", domain.ErrInvalidInput, to)
	}
	m, err := s.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	m.Attendance = to
	if err := s.Save(ctx, m, opts); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the membership and its invitation, then refreshes the event's confirmed count.
func (s *membershipService) Delete(ctx context.Context, membershipID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
	defer cancel()

	m, err := s.repos.Memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get membership: %w", err)
	}

	unlock := s.locks.lock(m.EventID)
	defer unlock()

	if inv, err := s.repos.Invitations.GetByMembershipID(ctx, m.ID); err == nil {
		if err := s.repos.Invitations.Delete(ctx, inv.ID); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get invitation: %w", err)
	}

	if err := s.repos.Memberships.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return s.recountConfirmed(ctx, m.EventID)
}
