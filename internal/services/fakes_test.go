package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventroster/internal/domain"
	"eventroster/internal/repository/memory"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	queued []*domain.Message
	sent   []*domain.Message
	err    error
}

func (d *fakeDispatcher) Enqueue(_ context.Context, _ string, msg *domain.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.queued = append(d.queued, msg)
	return nil
}

func (d *fakeDispatcher) SendNow(_ context.Context, msg *domain.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

type fakeProvider struct {
	result domain.RosterResult
	err    error
	calls  int
	// stall blocks until the fetch context ends.
	stall bool
}

func (p *fakeProvider) FetchMembers(ctx context.Context, _ *domain.Event) (domain.RosterResult, error) {
	p.calls++
	if p.stall {
		<-ctx.Done()
		return domain.RosterResult{}, ctx.Err()
	}
	return p.result, p.err
}

// failingPeople rejects every person update.
type failingPeople struct {
	domain.PersonRepository
	err error
}

func (p *failingPeople) Update(_ context.Context, _ *domain.Person) error {
	return p.err
}

// cancellingMemberships cancels the run once the first membership save returns.
type cancellingMemberships struct {
	domain.MembershipService
	cancel context.CancelFunc
}

func (c *cancellingMemberships) Save(ctx context.Context, m *domain.Membership, opts domain.SaveOptions) error {
	err := c.MembershipService.Save(ctx, m, opts)
	c.cancel()
	return err
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []domain.Membership
	err    error
}

func (p *fakePusher) UpdateMember(_ context.Context, _ *domain.Event, _ *domain.Person, m *domain.Membership) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, *m)
	return p.err
}

type fakeChecker struct {
	denied string
	err    error
}

func (c *fakeChecker) CheckRSVP(_ context.Context, _ string) (string, error) {
	return c.denied, c.err
}

var testNow = time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)

// fixture wires the services to an in-memory store and fakes.
type fixture struct {
	repos       Repositories
	dispatcher  *fakeDispatcher
	pusher      *fakePusher
	checker     *fakeChecker
	settings    Settings
	memberships domain.MembershipService
	invitations domain.InvitationService
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := memory.New()
	require.NoError(t, err)

	f := &fixture{
		repos: Repositories{
			Events:      memory.NewEventRepository(db),
			People:      memory.NewPersonRepository(db),
			Memberships: memory.NewMembershipRepository(db),
			Invitations: memory.NewInvitationRepository(db),
		},
		dispatcher: &fakeDispatcher{},
		pusher:     &fakePusher{},
		checker:    &fakeChecker{},
		now:        testNow,
	}
	f.settings = DefaultSettings()
	f.settings.StaffEmail = "programs@example.org"
	f.settings.SysadminEmail = "sysadmin@example.org"
	f.settings.LegacyPersonURL = "https://legacy.example.org/person?id="
	f.settings.Now = func() time.Time { return f.now }

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.memberships = NewMembershipService(f.repos, f.pusher, f.dispatcher, f.settings, nil, logger)
	f.invitations = NewInvitationService(f.repos, f.memberships, f.checker, f.dispatcher, f.settings, nil, logger)
	return f
}

func (f *fixture) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addEvent stores an event starting 60 days after the fixture clock.
func (f *fixture) addEvent(t *testing.T, code string, maxParticipants int) *domain.Event {
	t.Helper()
	start := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	ev := &domain.Event{
		Code:            code,
		Name:            "Workshop " + code,
		Location:        "Banff",
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 5),
		TimeZone:        "America/Edmonton",
		MaxParticipants: maxParticipants,
	}
	require.NoError(t, f.repos.Events.Create(context.Background(), ev))
	return ev
}

func (f *fixture) addPerson(t *testing.T, first, last, email, legacyID string) *domain.Person {
	t.Helper()
	p := &domain.Person{
		Firstname:   first,
		Lastname:    last,
		Email:       email,
		Affiliation: "University",
		LegacyID:    legacyID,
		UpdatedBy:   "test",
	}
	require.NoError(t, f.repos.People.Create(context.Background(), p))
	return p
}

func (f *fixture) addMembership(t *testing.T, ev *domain.Event, p *domain.Person, role domain.Role, a domain.Attendance) *domain.Membership {
	t.Helper()
	m := &domain.Membership{
		EventID:    ev.ID,
		PersonID:   p.ID,
		Role:       role,
		Attendance: a,
		UpdatedBy:  "test",
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	require.NoError(t, f.repos.Memberships.Create(context.Background(), m))
	return m
}

// fillEvent adds n people with the given attendance to ev.
func (f *fixture) fillEvent(t *testing.T, ev *domain.Event, n int, a domain.Attendance) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := f.addPerson(t, "Filler", string(rune('A'+i)), ev.Code+string(rune('a'+i))+"@example.com", "")
		f.addMembership(t, ev, p, domain.RoleParticipant, a)
	}
}

func (f *fixture) event(t *testing.T, id string) *domain.Event {
	t.Helper()
	ev, err := f.repos.Events.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ev
}

func (f *fixture) membership(t *testing.T, id string) *domain.Membership {
	t.Helper()
	m, err := f.repos.Memberships.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
