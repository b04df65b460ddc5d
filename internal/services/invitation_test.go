package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/internal/domain"
)

func (f *fixture) addInvitation(t *testing.T, m *domain.Membership, code string, expires time.Time) *domain.Invitation {
	t.Helper()
	inv := &domain.Invitation{
		MembershipID: m.ID,
		Code:         code,
		InvitedOn:    f.now,
		Expires:      expires,
		CreatedAt:    f.now,
	}
	require.NoError(t, f.repos.Invitations.Create(context.Background(), inv))
	return inv
}

func requireRejection(t *testing.T, err error, reason domain.RSVPReason, message string) {
	t.Helper()
	var rej *domain.RSVPRejection
	require.True(t, errors.As(err, &rej), "got %v", err)
	assert.Equal(t, reason, rej.Reason)
	assert.Equal(t, message, rej.Message)
}

func TestInvitationService_Invite(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a code and moves to Invited", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceNotYetInvited)

		inv, err := f.invitations.Invite(ctx, m.ID, "staff@example.org")
		require.NoError(t, err)
		assert.Len(t, inv.Code, 32)
		assert.Equal(t, f.now, inv.InvitedOn)
		assert.Equal(t, f.now.Add(720*time.Hour), inv.Expires)

		stored := f.membership(t, m.ID)
		assert.Equal(t, domain.AttendanceInvited, stored.Attendance)
		assert.Equal(t, "staff@example.org", stored.InvitedBy)
		require.NotNil(t, stored.InvitedOn)
		assert.Len(t, f.pusher.pushed, 1)

		require.Len(t, f.dispatcher.queued, 1)
		msg := f.dispatcher.queued[0]
		assert.Equal(t, []string{"ada@example.com"}, msg.To)
		assert.Contains(t, msg.Body, "Please reply by May 3, 2026 using the code "+inv.Code)
	})

	t.Run("expiry never passes the event start", func(t *testing.T) {
		f := newFixture(t)
		f.now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
		ev := f.addEvent(t, "26w5001", 10)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceNotYetInvited)

		inv, err := f.invitations.Invite(ctx, m.ID, "staff")
		require.NoError(t, err)
		assert.True(t, inv.Expires.Equal(ev.StartsOn()))
	})

	t.Run("re-inviting replaces the code", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceDeclined)

		first, err := f.invitations.Invite(ctx, m.ID, "staff")
		require.NoError(t, err)
		second, err := f.invitations.Invite(ctx, m.ID, "staff")
		require.NoError(t, err)
		assert.NotEqual(t, first.Code, second.Code)

		_, err = f.repos.Invitations.GetByCode(ctx, first.Code)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("full event", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 1)
		f.fillEvent(t, ev, 1, domain.AttendanceConfirmed)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceNotYetInvited)

		_, err := f.invitations.Invite(ctx, m.ID, "staff")
		assert.ErrorIs(t, err, domain.ErrCapacityReached)
		_, err = f.repos.Invitations.GetByMembershipID(ctx, m.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.dispatcher.queued)
	})
}

func TestInvitationService_Check(t *testing.T) {
	ctx := context.Background()
	future := testNow.Add(7 * 24 * time.Hour)

	tests := []struct {
		name        string
		setup       func(t *testing.T, f *fixture) string
		wantReason  domain.RSVPReason
		wantMessage string
	}{
		{
			name:        "unknown code",
			setup:       func(t *testing.T, f *fixture) string { return "nope" },
			wantReason:  domain.RSVPInvalidCode,
			wantMessage: "Invalid code",
		},
		{
			name: "unknown code with a legacy denial",
			setup: func(t *testing.T, f *fixture) string {
				f.checker.denied = "This code has already been used"
				return "nope"
			},
			wantReason:  domain.RSVPInvalidCode,
			wantMessage: "This code has already been used",
		},
		{
			name: "legacy check failure falls back",
			setup: func(t *testing.T, f *fixture) string {
				f.checker.err = errors.New("timeout")
				return "nope"
			},
			wantReason:  domain.RSVPInvalidCode,
			wantMessage: "Invalid code",
		},
		{
			name: "past event",
			setup: func(t *testing.T, f *fixture) string {
				start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
				past := &domain.Event{Code: "25w5001", StartDate: start, EndDate: start.AddDate(0, 0, 5), MaxParticipants: 10}
				require.NoError(t, f.repos.Events.Create(ctx, past))
				m := f.addMembership(t, past, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
				return f.addInvitation(t, m, "c-past", future).Code
			},
			wantReason:  domain.RSVPPastEvent,
			wantMessage: "You cannot RSVP for past events",
		},
		{
			name: "expired",
			setup: func(t *testing.T, f *fixture) string {
				ev := f.addEvent(t, "26w5001", 10)
				m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
				return f.addInvitation(t, m, "c-expired", testNow.Add(-time.Hour)).Code
			},
			wantReason:  domain.RSVPExpired,
			wantMessage: "This invitation code is expired",
		},
		{
			name: "not yet invited",
			setup: func(t *testing.T, f *fixture) string {
				ev := f.addEvent(t, "26w5001", 10)
				m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceNotYetInvited)
				return f.addInvitation(t, m, "c-nyi", future).Code
			},
			wantReason:  domain.RSVPNotYetInvited,
			wantMessage: "The event's organizers have not yet invited you",
		},
		{
			name: "already declined",
			setup: func(t *testing.T, f *fixture) string {
				ev := f.addEvent(t, "26w5001", 10)
				m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceDeclined)
				return f.addInvitation(t, m, "c-declined", future).Code
			},
			wantReason:  domain.RSVPAlreadyDeclined,
			wantMessage: "You have already declined an invitation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			code := tt.setup(t, f)
			_, err := f.invitations.Check(ctx, code)
			requireRejection(t, err, tt.wantReason, tt.wantMessage)
		})
	}

	t.Run("valid code", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		org := f.addPerson(t, "Olga", "Organizer", "olga@example.com", "")
		f.addMembership(t, ev, org, domain.RoleContactOrganizer, domain.AttendanceConfirmed)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
		f.addInvitation(t, m, "c-ok", future)

		session, err := f.invitations.Check(ctx, "c-ok")
		require.NoError(t, err)
		assert.Equal(t, m.ID, session.Membership.ID)
		assert.Equal(t, "Ada Lovelace", session.Person.Name())
		require.NotNil(t, session.Organizer)
		assert.Equal(t, org.ID, session.Organizer.ID)
		assert.Equal(t, "2026-05-03", session.ReplyBy.Format("2006-01-02"))
	})
}

func TestInvitationService_PastEventLeavesMembershipAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	ev := &domain.Event{Code: "25w5001", StartDate: start, EndDate: start.AddDate(0, 0, 5), MaxParticipants: 10}
	require.NoError(t, f.repos.Events.Create(ctx, ev))
	m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
	f.addInvitation(t, m, "c-past", testNow.Add(time.Hour))

	_, err := f.invitations.RespondYes(ctx, "c-past", &domain.YesResponse{})
	requireRejection(t, err, domain.RSVPPastEvent, "You cannot RSVP for past events")
	_, err = f.invitations.RespondNo(ctx, "c-past", "")
	requireRejection(t, err, domain.RSVPPastEvent, "You cannot RSVP for past events")

	stored := f.membership(t, m.ID)
	assert.Equal(t, domain.AttendanceInvited, stored.Attendance)
	assert.Equal(t, m.UpdatedAt, stored.UpdatedAt)
	assert.Empty(t, f.dispatcher.sent)
	assert.Empty(t, f.pusher.pushed)
}

func TestInvitationService_RespondNo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.addEvent(t, "26w5001", 10)
	org := f.addPerson(t, "Olga", "Organizer", "olga@example.com", "")
	f.addMembership(t, ev, org, domain.RoleContactOrganizer, domain.AttendanceConfirmed)
	m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
	inv := f.addInvitation(t, m, "c-no", testNow.Add(time.Hour))

	got, err := f.invitations.RespondNo(ctx, inv.Code, "Sorry, teaching that week.")
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceDeclined, got.Attendance)

	stored := f.membership(t, m.ID)
	assert.Equal(t, domain.AttendanceDeclined, stored.Attendance)
	require.NotNil(t, stored.RepliedAt)
	assert.Equal(t, "Ada Lovelace", stored.UpdatedBy)

	_, err = f.repos.Invitations.GetByCode(ctx, inv.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, f.dispatcher.sent, 1)
	notice := f.dispatcher.sent[0]
	assert.Equal(t, []string{"olga@example.com"}, notice.To)
	assert.Contains(t, notice.Body, "Sorry, teaching that week.")
	assert.Len(t, f.pusher.pushed, 1)
}

func TestInvitationService_RespondMaybe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.addEvent(t, "26w5001", 10)
	m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
	inv := f.addInvitation(t, m, "c-maybe", testNow.Add(time.Hour))

	_, err := f.invitations.RespondMaybe(ctx, inv.Code, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceUndecided, f.membership(t, m.ID).Attendance)

	_, err = f.repos.Invitations.GetByCode(ctx, inv.Code)
	require.NoError(t, err)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, []string{"programs@example.org"}, f.dispatcher.sent[0].To, "no contact organizer falls back to staff")
	assert.Len(t, f.pusher.pushed, 1)
}

func TestInvitationService_RespondYes(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms and records the details", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		p := f.addPerson(t, "Ada", "Lovelace", "ada@example.com", "")
		m := f.addMembership(t, ev, p, domain.RoleParticipant, domain.AttendanceInvited)
		inv := f.addInvitation(t, m, "c-yes", testNow.Add(time.Hour))

		got, err := f.invitations.RespondYes(ctx, inv.Code, &domain.YesResponse{
			Affiliation:     "Analytical Engines Ltd",
			City:            "London",
			ArrivalDate:     datePtr(2026, 5, 30),
			DepartureDate:   datePtr(2026, 6, 5),
			HasGuest:        true,
			GuestDisclaimer: true,
			SpecialInfo:     "vegetarian",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.AttendanceConfirmed, got.Attendance)

		stored := f.membership(t, m.ID)
		assert.Equal(t, domain.AttendanceConfirmed, stored.Attendance)
		assert.Equal(t, "vegetarian", stored.SpecialInfo)
		assert.True(t, stored.HasGuest)
		assert.Equal(t, 1, f.event(t, ev.ID).ConfirmedCount)

		person, err := f.repos.People.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Analytical Engines Ltd", person.Affiliation)
		assert.Equal(t, "London", person.City)
		assert.Equal(t, "Lovelace", person.Lastname)

		_, err = f.repos.Invitations.GetByCode(ctx, inv.Code)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.Len(t, f.dispatcher.sent, 1, "organizer notice is synchronous")
		var toParticipant int
		for _, msg := range f.dispatcher.queued {
			if len(msg.To) == 1 && msg.To[0] == "ada@example.com" {
				toParticipant++
				assert.Contains(t, msg.Body, "You will be bringing a guest.")
			}
		}
		assert.Equal(t, 1, toParticipant)
		assert.Len(t, f.pusher.pushed, 1)
	})

	t.Run("invalid details change nothing", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		p := f.addPerson(t, "Ada", "Lovelace", "ada@example.com", "")
		m := f.addMembership(t, ev, p, domain.RoleParticipant, domain.AttendanceInvited)
		inv := f.addInvitation(t, m, "c-yes", testNow.Add(time.Hour))

		_, err := f.invitations.RespondYes(ctx, inv.Code, &domain.YesResponse{
			City:          "London",
			ArrivalDate:   datePtr(2026, 6, 4),
			DepartureDate: datePtr(2026, 6, 2),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)

		assert.Equal(t, domain.AttendanceInvited, f.membership(t, m.ID).Attendance)
		person, err := f.repos.People.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, person.City)
		_, err = f.repos.Invitations.GetByCode(ctx, inv.Code)
		require.NoError(t, err)
	})

	t.Run("profile update failure leaves the reply unrecorded", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
		inv := f.addInvitation(t, m, "c-yes", testNow.Add(time.Hour))

		repos := f.repos
		repos.People = &failingPeople{PersonRepository: f.repos.People, err: errors.New("connection reset")}
		svc := NewInvitationService(repos, f.memberships, f.checker, f.dispatcher, f.settings, nil, f.logger())

		_, err := svc.RespondYes(ctx, inv.Code, &domain.YesResponse{City: "London"})
		require.Error(t, err)
		assert.Equal(t, domain.AttendanceInvited, f.membership(t, m.ID).Attendance)
		assert.Zero(t, f.event(t, ev.ID).ConfirmedCount)
		assert.Empty(t, f.pusher.pushed)
		_, err = f.repos.Invitations.GetByCode(ctx, inv.Code)
		require.NoError(t, err, "invitation stays usable")
		assert.Empty(t, f.dispatcher.sent)
	})

	t.Run("organizer delivery failure does not fail the reply", func(t *testing.T) {
		f := newFixture(t)
		ev := f.addEvent(t, "26w5001", 10)
		m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceInvited)
		inv := f.addInvitation(t, m, "c-yes", testNow.Add(time.Hour))
		f.dispatcher.err = errors.New("smtp down")

		_, err := f.invitations.RespondYes(ctx, inv.Code, &domain.YesResponse{})
		require.NoError(t, err)
		assert.Equal(t, domain.AttendanceConfirmed, f.membership(t, m.ID).Attendance)
	})
}

func TestInvitationService_RemindersAndReplyBy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.addEvent(t, "26w5001", 10)
	m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceNotYetInvited)

	_, err := f.invitations.Remind(ctx, m.ID, "staff")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.invitations.Invite(ctx, m.ID, "staff")
	require.NoError(t, err)

	f.now = time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	_, err = f.invitations.Remind(ctx, m.ID, "staff-1")
	require.NoError(t, err)
	f.now = time.Date(2026, 5, 25, 15, 0, 0, 0, time.UTC)
	inv, err := f.invitations.Remind(ctx, m.ID, "staff-2")
	require.NoError(t, err)
	require.Len(t, inv.Reminders, 2)

	report, err := f.invitations.ReplyByDates(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-03", report.ReplyBy.Format("2006-01-02"))
	require.Len(t, report.Reminders, 2)
	assert.Equal(t, "staff-1", report.Reminders[0].SentBy)
	assert.Equal(t, "2026-05-20", report.Reminders[0].ReplyBy.Format("2006-01-02"))
	assert.Equal(t, "2026-05-30", report.Reminders[1].ReplyBy.Format("2006-01-02"))

	require.NoError(t, f.invitations.Revoke(ctx, m.ID))
	assert.ErrorIs(t, f.invitations.Revoke(ctx, m.ID), domain.ErrNotFound)
}

func TestInvitationService_Feedback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.addEvent(t, "26w5001", 10)
	m := f.addMembership(t, ev, f.addPerson(t, "Ada", "Lovelace", "ada@example.com", ""), domain.RoleParticipant, domain.AttendanceConfirmed)

	require.NoError(t, f.invitations.Feedback(ctx, m.ID, "   "))
	assert.Empty(t, f.dispatcher.queued)

	require.NoError(t, f.invitations.Feedback(ctx, m.ID, "The form was easy."))
	require.Len(t, f.dispatcher.queued, 1)
	assert.Equal(t, "[26w5001] RSVP feedback from Ada Lovelace", f.dispatcher.queued[0].Subject)
	assert.Equal(t, "The form was easy.\n", f.dispatcher.queued[0].Body)
}
