package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

type rosterFixture struct {
	sync        *mockSyncService
	memberships *mockMembershipService
	invitations *mockInvitationService
	mux         *http.ServeMux
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		sync:        &mockSyncService{},
		memberships: &mockMembershipService{},
		invitations: &mockInvitationService{},
		mux:         http.NewServeMux(),
	}
	ctrl := NewRosterController(discardLogger(), f.sync, f.memberships, f.invitations)
	f.mux.HandleFunc("POST /events/{eventID}/sync", ctrl.SyncEvent)
	f.mux.HandleFunc("GET /events/{eventID}/memberships", ctrl.ListMemberships)
	f.mux.HandleFunc("PATCH /memberships/{membershipID}/attendance", ctrl.UpdateAttendance)
	f.mux.HandleFunc("DELETE /memberships/{membershipID}", ctrl.DeleteMembership)
	f.mux.HandleFunc("POST /memberships/{membershipID}/invitation", ctrl.Invite)
	f.mux.HandleFunc("DELETE /memberships/{membershipID}/invitation", ctrl.Revoke)
	f.mux.HandleFunc("GET /memberships/{membershipID}/invitation", ctrl.ReplyBy)
	f.mux.HandleFunc("POST /memberships/{membershipID}/reminders", ctrl.Remind)
	return f
}

// serve sends the request as the given staff member; blank means anonymous.
func (f *rosterFixture) serve(req *http.Request, staff string) *httptest.ResponseRecorder {
	if staff != "" {
		req = req.WithContext(middleware.WithStaff(req.Context(), staff))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func TestRosterController_RequiresStaff(t *testing.T) {
	requests := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/events/ev-1/sync", nil),
		httptest.NewRequest(http.MethodGet, "/events/ev-1/memberships", nil),
		httptest.NewRequest(http.MethodPatch, "/memberships/m-1/attendance", strings.NewReader(`{"attendance":"Confirmed"}`)),
		httptest.NewRequest(http.MethodDelete, "/memberships/m-1", nil),
		httptest.NewRequest(http.MethodPost, "/memberships/m-1/invitation", nil),
		httptest.NewRequest(http.MethodDelete, "/memberships/m-1/invitation", nil),
		httptest.NewRequest(http.MethodGet, "/memberships/m-1/invitation", nil),
		httptest.NewRequest(http.MethodPost, "/memberships/m-1/reminders", nil),
	}
	for _, req := range requests {
		t.Run(req.Method+" "+req.URL.Path, func(t *testing.T) {
			f := newRosterFixture()
			w := f.serve(req, "")
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, helpers.ErrCodeUnauthorized, decodeError(t, w).Code)
		})
	}
}

func TestRosterController_SyncEvent(t *testing.T) {
	tests := []struct {
		name       string
		outcome    *domain.SyncOutcome
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "outcome with failures is still a success",
			outcome:    &domain.SyncOutcome{EventID: "ev-1", EventCode: "26w5001", Processed: 3, Failed: 2},
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty remote roster",
			err:        &domain.NoResultsError{EventCode: "26w5001"},
			wantStatus: http.StatusBadGateway,
			wantCode:   helpers.ErrCodeNotFound,
		},
		{
			name:       "unknown event",
			err:        domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   helpers.ErrCodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRosterFixture()
			f.sync.outcome, f.sync.err = tt.outcome, tt.err

			w := f.serve(httptest.NewRequest(http.MethodPost, "/events/ev-1/sync", nil), "programs@example.org")

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "ev-1", f.sync.gotID)
			if tt.err != nil {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
				return
			}
			var resp struct {
				Data domain.SyncOutcome `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 2, resp.Data.Failed)
		})
	}
}

func TestRosterController_ListMemberships(t *testing.T) {
	f := newRosterFixture()
	f.memberships.list = []*domain.Membership{{ID: "m-1"}, {ID: "m-2"}}
	f.memberships.total = 12

	w := f.serve(httptest.NewRequest(http.MethodGet, "/events/ev-1/memberships?page=2&page_size=5", nil), "programs@example.org")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 5}, f.memberships.gotParams)
	var resp struct {
		Data ListMembershipsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Memberships, 2)
	assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 5, Total: 12, TotalPages: 3}, resp.Data.Pagination)
}

func TestRosterController_UpdateAttendance(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{
			name:       "confirmed by staff",
			body:       `{"attendance":"Confirmed"}`,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "unknown state",
			body:       `{"attendance":"Maybe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "blank state",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "full event",
			body:       `{"attendance":"Invited"}`,
			err:        domain.NewValidationError("Membership", []string{"Attendance: maximum number of participants reached"}, true),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   helpers.ErrCodeCapacityReached,
			wantCalled: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRosterFixture()
			f.memberships.membership = &domain.Membership{ID: "m-1", Attendance: domain.AttendanceConfirmed}
			f.memberships.err = tt.err

			req := httptest.NewRequest(http.MethodPatch, "/memberships/m-1/attendance", strings.NewReader(tt.body))
			w := f.serve(req, "programs@example.org")

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCalled {
				assert.Equal(t, "m-1", f.memberships.gotID)
				assert.Equal(t, domain.SaveOptions{Actor: "programs@example.org", PersistAndPush: true}, f.memberships.gotOpts)
			} else {
				assert.Empty(t, f.memberships.gotID)
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
		})
	}
}

func TestRosterController_DeleteMembership(t *testing.T) {
	f := newRosterFixture()
	w := f.serve(httptest.NewRequest(http.MethodDelete, "/memberships/m-1", nil), "programs@example.org")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "m-1", f.memberships.gotID)

	f = newRosterFixture()
	f.memberships.err = domain.ErrNotFound
	w = f.serve(httptest.NewRequest(http.MethodDelete, "/memberships/m-9", nil), "programs@example.org")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRosterController_Invitations(t *testing.T) {
	invitedOn := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)

	t.Run("invite stamps the staff member", func(t *testing.T) {
		f := newRosterFixture()
		f.invitations.invitation = &domain.Invitation{ID: "inv-1", Code: "abc123", InvitedOn: invitedOn}

		w := f.serve(httptest.NewRequest(http.MethodPost, "/memberships/m-1/invitation", nil), "programs@example.org")

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "m-1", f.invitations.gotID)
		assert.Equal(t, "programs@example.org", f.invitations.gotActor)
	})

	t.Run("invite past event", func(t *testing.T) {
		f := newRosterFixture()
		f.invitations.err = domain.ErrInvalidInput

		w := f.serve(httptest.NewRequest(http.MethodPost, "/memberships/m-1/invitation", nil), "programs@example.org")

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("remind", func(t *testing.T) {
		f := newRosterFixture()
		f.invitations.invitation = &domain.Invitation{ID: "inv-1", Reminders: []domain.Reminder{{SentAt: invitedOn, SentBy: "programs@example.org"}}}

		w := f.serve(httptest.NewRequest(http.MethodPost, "/memberships/m-1/reminders", nil), "programs@example.org")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "programs@example.org", f.invitations.gotActor)
	})

	t.Run("revoke missing invitation", func(t *testing.T) {
		f := newRosterFixture()
		f.invitations.err = domain.ErrNotFound

		w := f.serve(httptest.NewRequest(http.MethodDelete, "/memberships/m-1/invitation", nil), "programs@example.org")

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reply-by report", func(t *testing.T) {
		f := newRosterFixture()
		replyBy := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
		f.invitations.report = &domain.ReplyByReport{InvitedOn: invitedOn, ReplyBy: replyBy}

		w := f.serve(httptest.NewRequest(http.MethodGet, "/memberships/m-1/invitation", nil), "programs@example.org")

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data domain.ReplyByReport `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, replyBy.Equal(resp.Data.ReplyBy))
	})
}
