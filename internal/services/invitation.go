package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"eventroster/internal/domain"
)

const invalidCodeMessage = "Invalid code"

type invitationService struct {
	repos       Repositories
	memberships domain.MembershipService
	rules       *rules
	checker     domain.RSVPChecker
	dispatcher  domain.Dispatcher
	notices     notices
	settings    Settings
	metrics     Metrics
	logger      *slog.Logger
}

// NewInvitationService returns the invitation and RSVP lifecycle. checker may
// be nil, in which case unknown codes get the default denial.
func NewInvitationService(
	repos Repositories,
	memberships domain.MembershipService,
	checker domain.RSVPChecker,
	dispatcher domain.Dispatcher,
	settings Settings,
	metrics Metrics,
	logger *slog.Logger,
) domain.InvitationService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &invitationService{
		repos:       repos,
		memberships: memberships,
		rules:       newRules(repos.Events, repos.People, repos.Memberships, settings),
		checker:     checker,
		dispatcher:  dispatcher,
		notices:     notices{settings: settings},
		settings:    settings,
		metrics:     metrics,
		logger:      logger,
	}
}

// newInvitationCode returns a random single-use code.
func newInvitationCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Invite moves the membership to Invited and issues a fresh code, replacing
// any earlier invitation.
func (s *invitationService) Invite(ctx context.Context, membershipID, invitedBy string) (*domain.Invitation, error) {
	m, err := s.memberships.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	event, err := s.getEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}
	now := s.settings.now()
	if event.IsPast(now) {
		return nil, fmt.Errorf("%w: %s has already taken place", domain.ErrInvalidInput, event.Code)
	}
	if m.Person == nil {
		return nil, fmt.Errorf("%w: membership %s has no person", domain.ErrInvalidInput, m.ID)
	}

	m.Attendance = domain.AttendanceInvited
	m.InvitedBy = invitedBy
	m.InvitedOn = &now
	if err := s.memberships.Save(ctx, m, domain.SaveOptions{Actor: invitedBy, PersistAndPush: true}); err != nil {
		return nil, err
	}

	if err := s.removeInvitation(ctx, m.ID); err != nil {
		return nil, err
	}
	expires := now.Add(s.settings.InvitationTTL)
	if starts := event.StartsOn(); starts.Before(expires) {
		expires = starts
	}
	inv := &domain.Invitation{
		MembershipID: m.ID,
		Code:         newInvitationCode(),
		InvitedOn:    now,
		Expires:      expires,
		Reminders:    []domain.Reminder{},
		CreatedAt:    now,
	}
	if err := s.repos.Invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	organizer, err := s.organizer(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	msg := s.notices.invitation(event, m.Person, inv, s.rsvpBy(event, now), organizer)
	if err := s.dispatcher.Enqueue(ctx, event.ID, msg); err != nil {
		s.logger.Error("enqueue invitation", "event", event.Code, "membership_id", m.ID, "error", err)
	}
	return inv, nil
}

// Remind appends a reminder to the invitation history and mails it.
func (s *invitationService) Remind(ctx context.Context, membershipID, sentBy string) (*domain.Invitation, error) {
	m, err := s.memberships.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	inv, err := s.repos.Invitations.GetByMembershipID(ctx, m.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	event, err := s.getEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}

	r := domain.Reminder{SentAt: s.settings.now(), SentBy: sentBy}
	if err := s.repos.Invitations.AddReminder(ctx, inv.ID, r); err != nil {
		return nil, fmt.Errorf("add reminder: %w", err)
	}
	inv.Reminders = append(inv.Reminders, r)

	if m.Person != nil {
		msg := s.notices.reminder(event, m.Person, inv, s.rsvpBy(event, r.SentAt))
		if err := s.dispatcher.Enqueue(ctx, event.ID, msg); err != nil {
			s.logger.Error("enqueue reminder", "event", event.Code, "membership_id", m.ID, "error", err)
		}
	}
	return inv, nil
}

// Revoke deletes the membership's invitation.
func (s *invitationService) Revoke(ctx context.Context, membershipID string) error {
	inv, err := s.repos.Invitations.GetByMembershipID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get invitation: %w", err)
	}
	if err := s.repos.Invitations.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

// ReplyByDates lists the reply-by date announced by the invitation and by each reminder.
func (s *invitationService) ReplyByDates(ctx context.Context, membershipID string) (*domain.ReplyByReport, error) {
	inv, err := s.repos.Invitations.GetByMembershipID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	m, err := s.memberships.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	event, err := s.getEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}

	report := &domain.ReplyByReport{
		Invitation: inv,
		InvitedOn:  inv.InvitedOn,
		ReplyBy:    s.rsvpBy(event, inv.InvitedOn),
		Reminders:  make([]domain.ReminderReply, 0, len(inv.Reminders)),
	}
	for _, r := range inv.Reminders {
		report.Reminders = append(report.Reminders, domain.ReminderReply{Reminder: r, ReplyBy: s.rsvpBy(event, r.SentAt)})
	}
	return report, nil
}

// Check looks the code up and applies the RSVP gates in order. A refusal is
// returned as *domain.RSVPRejection.
func (s *invitationService) Check(ctx context.Context, code string) (*domain.RSVPSession, error) {
	inv, err := s.repos.Invitations.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.reject(domain.RSVPInvalidCode, s.remoteDenial(ctx, code))
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	m, err := s.memberships.Get(ctx, inv.MembershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.reject(domain.RSVPInvalidCode, invalidCodeMessage)
		}
		return nil, err
	}
	event, err := s.getEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}

	now := s.settings.now()
	switch {
	case event.IsPast(now):
		return nil, s.reject(domain.RSVPPastEvent, "You cannot RSVP for past events")
	case inv.Expired(now):
		return nil, s.reject(domain.RSVPExpired, "This invitation code is expired")
	case m.Attendance == domain.AttendanceNotYetInvited:
		return nil, s.reject(domain.RSVPNotYetInvited, "The event's organizers have not yet invited you")
	case m.Attendance == domain.AttendanceDeclined:
		return nil, s.reject(domain.RSVPAlreadyDeclined, "You have already declined an invitation")
	}

	organizer, err := s.organizer(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	return &domain.RSVPSession{
		Invitation: inv,
		Membership: m,
		Person:     m.Person,
		Event:      event,
		Organizer:  organizer,
		ReplyBy:    s.rsvpBy(event, inv.InvitedOn),
	}, nil
}

func (s *invitationService) reject(reason domain.RSVPReason, message string) error {
	s.metrics.IncRSVPRejection(reason)
	return &domain.RSVPRejection{Reason: reason, Message: message}
}

// remoteDenial asks the legacy system why a code is unknown here.
func (s *invitationService) remoteDenial(ctx context.Context, code string) string {
	if s.checker == nil {
		return invalidCodeMessage
	}
	denied, err := s.checker.CheckRSVP(ctx, code)
	if err != nil {
		s.logger.Warn("check rsvp code with legacy system", "error", err)
		return invalidCodeMessage
	}
	if denied == "" {
		return invalidCodeMessage
	}
	return denied
}

// RespondNo declines the invitation and destroys the code.
func (s *invitationService) RespondNo(ctx context.Context, code, organizerMessage string) (*domain.Membership, error) {
	session, err := s.Check(ctx, code)
	if err != nil {
		return nil, err
	}
	m := session.Membership
	if err := s.reply(ctx, session, domain.AttendanceDeclined); err != nil {
		return nil, err
	}
	if err := s.removeInvitation(ctx, m.ID); err != nil {
		return nil, err
	}
	s.notifyOrganizer(ctx, session, domain.RSVPNo, organizerMessage)
	s.metrics.IncRSVPResponse(domain.RSVPNo)
	return m, nil
}

// RespondMaybe marks the member undecided. The code stays usable.
func (s *invitationService) RespondMaybe(ctx context.Context, code, organizerMessage string) (*domain.Membership, error) {
	session, err := s.Check(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.reply(ctx, session, domain.AttendanceUndecided); err != nil {
		return nil, err
	}
	s.notifyOrganizer(ctx, session, domain.RSVPMaybe, organizerMessage)
	s.metrics.IncRSVPResponse(domain.RSVPMaybe)
	return session.Membership, nil
}

// RespondYes records the invitee's details and confirms attendance.
func (s *invitationService) RespondYes(ctx context.Context, code string, resp *domain.YesResponse) (*domain.Membership, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: missing response", domain.ErrInvalidInput)
	}
	session, err := s.Check(ctx, code)
	if err != nil {
		return nil, err
	}

	person := *session.Person
	applyProfile(&person, resp)
	person.UpdatedBy = person.Name()
	person.UpdatedAt = s.settings.now()
	if err := s.rules.validatePerson(ctx, &person); err != nil {
		return nil, err
	}

	m := session.Membership
	m.Person = &person
	m.ArrivalDate = resp.ArrivalDate
	m.DepartureDate = resp.DepartureDate
	m.HasGuest = resp.HasGuest
	m.GuestDisclaimer = resp.GuestDisclaimer
	m.SpecialInfo = resp.SpecialInfo
	// The profile is written before the attendance so a failed update never
	// leaves a confirmed reply behind. A rejected reply restores the profile.
	original := *session.Person
	if err := s.repos.People.Update(ctx, &person); err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	if err := s.reply(ctx, session, domain.AttendanceConfirmed); err != nil {
		if rerr := s.repos.People.Update(ctx, &original); rerr != nil {
			s.logger.Error("restore person after rejected reply", "event", session.Event.Code, "person_id", original.ID, "error", rerr)
		}
		return nil, err
	}
	session.Person = &person

	if err := s.removeInvitation(ctx, m.ID); err != nil {
		return nil, err
	}
	s.notifyOrganizer(ctx, session, domain.RSVPYes, resp.OrganizerMessage)
	msg := s.notices.participantConfirmation(session.Event, &person, m)
	if err := s.dispatcher.Enqueue(ctx, session.Event.ID, msg); err != nil {
		s.logger.Error("enqueue participant confirmation", "event", session.Event.Code, "membership_id", m.ID, "error", err)
	}
	s.metrics.IncRSVPResponse(domain.RSVPYes)
	return m, nil
}

// reply saves the new attendance with the invitee as the actor and pushes it to the legacy system.
func (s *invitationService) reply(ctx context.Context, session *domain.RSVPSession, to domain.Attendance) error {
	now := s.settings.now()
	m := session.Membership
	m.Attendance = to
	m.RepliedAt = &now
	actor := session.Person.Name()
	if m.Person != nil {
		actor = m.Person.Name()
	}
	return s.memberships.Save(ctx, m, domain.SaveOptions{Actor: actor, PersistAndPush: true})
}

// notifyOrganizer sends synchronously; a failed delivery does not fail the RSVP.
func (s *invitationService) notifyOrganizer(ctx context.Context, session *domain.RSVPSession, response domain.RSVPResponse, message string) {
	msg := s.notices.organizerNotice(session.Event, session.Person, session.Organizer, response, message)
	if len(msg.To) == 0 {
		s.logger.Warn("organizer notice has no recipient", "event", session.Event.Code)
		return
	}
	if err := s.dispatcher.SendNow(ctx, msg); err != nil {
		s.logger.Error("send organizer notice", "event", session.Event.Code, "response", response, "error", err)
	}
}

// Feedback forwards what the invitee wrote after responding. Blank feedback is dropped.
func (s *invitationService) Feedback(ctx context.Context, membershipID, message string) error {
	if strings.TrimSpace(message) == "" {
		return nil
	}
	m, err := s.memberships.Get(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Person == nil {
		return fmt.Errorf("%w: membership %s has no person", domain.ErrInvalidInput, m.ID)
	}
	event, err := s.getEvent(ctx, m.EventID)
	if err != nil {
		return err
	}
	msg := s.notices.feedback(event, m.Person, message)
	if len(msg.To) == 0 {
		s.logger.Warn("feedback has no recipient", "event", event.Code)
		return nil
	}
	if err := s.dispatcher.Enqueue(ctx, event.ID, msg); err != nil {
		return fmt.Errorf("enqueue feedback: %w", err)
	}
	return nil
}

func (s *invitationService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *invitationService) removeInvitation(ctx context.Context, membershipID string) error {
	inv, err := s.repos.Invitations.GetByMembershipID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get invitation: %w", err)
	}
	if err := s.repos.Invitations.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

// organizer returns the contact organizer's person record, or nil when the event has none.
func (s *invitationService) organizer(ctx context.Context, eventID string) (*domain.Person, error) {
	orgs, err := s.repos.Memberships.ListByRole(ctx, eventID, domain.RoleContactOrganizer)
	if err != nil {
		return nil, fmt.Errorf("list contact organizers: %w", err)
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	p, err := s.repos.People.GetByID(ctx, orgs[0].PersonID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact organizer: %w", err)
	}
	return p, nil
}

func applyProfile(p *domain.Person, resp *domain.YesResponse) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&p.Firstname, resp.Firstname)
	set(&p.Lastname, resp.Lastname)
	set(&p.Email, resp.Email)
	set(&p.Affiliation, resp.Affiliation)
	set(&p.URL, resp.URL)
	set(&p.Address1, resp.Address1)
	set(&p.City, resp.City)
	set(&p.Region, resp.Region)
	set(&p.PostalCode, resp.PostalCode)
	set(&p.Country, resp.Country)
	set(&p.Biography, resp.Biography)
	set(&p.ResearchAreas, resp.ResearchAreas)
}
