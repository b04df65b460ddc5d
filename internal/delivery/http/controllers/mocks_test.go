package controllers

import (
	"context"
	"io"
	"log/slog"

	"eventroster/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockInvitationService struct {
	session    *domain.RSVPSession
	membership *domain.Membership
	invitation *domain.Invitation
	report     *domain.ReplyByReport
	err        error

	gotCode    string
	gotMessage string
	gotYes     *domain.YesResponse
	gotActor   string
	gotID      string
}

func (m *mockInvitationService) Invite(ctx context.Context, membershipID, invitedBy string) (*domain.Invitation, error) {
	m.gotID, m.gotActor = membershipID, invitedBy
	return m.invitation, m.err
}

func (m *mockInvitationService) Remind(ctx context.Context, membershipID, sentBy string) (*domain.Invitation, error) {
	m.gotID, m.gotActor = membershipID, sentBy
	return m.invitation, m.err
}

func (m *mockInvitationService) Revoke(ctx context.Context, membershipID string) error {
	m.gotID = membershipID
	return m.err
}

func (m *mockInvitationService) ReplyByDates(ctx context.Context, membershipID string) (*domain.ReplyByReport, error) {
	m.gotID = membershipID
	return m.report, m.err
}

func (m *mockInvitationService) Check(ctx context.Context, code string) (*domain.RSVPSession, error) {
	m.gotCode = code
	return m.session, m.err
}

func (m *mockInvitationService) RespondYes(ctx context.Context, code string, resp *domain.YesResponse) (*domain.Membership, error) {
	m.gotCode, m.gotYes = code, resp
	return m.membership, m.err
}

func (m *mockInvitationService) RespondNo(ctx context.Context, code, organizerMessage string) (*domain.Membership, error) {
	m.gotCode, m.gotMessage = code, organizerMessage
	return m.membership, m.err
}

func (m *mockInvitationService) RespondMaybe(ctx context.Context, code, organizerMessage string) (*domain.Membership, error) {
	m.gotCode, m.gotMessage = code, organizerMessage
	return m.membership, m.err
}

func (m *mockInvitationService) Feedback(ctx context.Context, membershipID, message string) error {
	m.gotID, m.gotMessage = membershipID, message
	return m.err
}

type mockSyncService struct {
	outcome *domain.SyncOutcome
	err     error
	gotID   string
}

func (m *mockSyncService) Run(ctx context.Context, eventID string) (*domain.SyncOutcome, error) {
	m.gotID = eventID
	return m.outcome, m.err
}

type mockMembershipService struct {
	list       []*domain.Membership
	total      int
	membership *domain.Membership
	err        error

	gotParams domain.PaginationParams
	gotTo     domain.Attendance
	gotOpts   domain.SaveOptions
	gotID     string
}

func (m *mockMembershipService) Get(ctx context.Context, membershipID string) (*domain.Membership, error) {
	m.gotID = membershipID
	return m.membership, m.err
}

func (m *mockMembershipService) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Membership, int, error) {
	m.gotID, m.gotParams = eventID, params
	return m.list, m.total, m.err
}

func (m *mockMembershipService) Save(ctx context.Context, ms *domain.Membership, opts domain.SaveOptions) error {
	m.gotOpts = opts
	return m.err
}

func (m *mockMembershipService) Transition(ctx context.Context, membershipID string, to domain.Attendance, opts domain.SaveOptions) (*domain.Membership, error) {
	m.gotID, m.gotTo, m.gotOpts = membershipID, to, opts
	return m.membership, m.err
}

func (m *mockMembershipService) Delete(ctx context.Context, membershipID string) error {
	m.gotID = membershipID
	return m.err
}
