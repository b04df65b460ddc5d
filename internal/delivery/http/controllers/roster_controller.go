package controllers

import (
	"log/slog"
	"net/http"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// RosterController serves the staff endpoints: syncing, attendance changes and
// invitation management. Every route sits behind middleware.RequireStaff.
type RosterController struct {
	Logger      *slog.Logger
	Sync        domain.SyncService
	Memberships domain.MembershipService
	Invitations domain.InvitationService
}

func NewRosterController(
	logger *slog.Logger,
	sync domain.SyncService,
	memberships domain.MembershipService,
	invitations domain.InvitationService,
) *RosterController {
	return &RosterController{
		Logger:      logger,
		Sync:        sync,
		Memberships: memberships,
		Invitations: invitations,
	}
}

// staff returns the authenticated staff identity, writing 401 when absent.
func (c *RosterController) staff(w http.ResponseWriter, r *http.Request) (string, bool) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return staff, ok
}

// SyncOutcomeSuccessResponse is the success envelope for POST /events/{eventID}/sync (200).
type SyncOutcomeSuccessResponse struct {
	Data  *domain.SyncOutcome `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// SyncEvent godoc
// @Summary Sync an event roster from the legacy system
// @Description Fetches the remote roster once and reconciles every record. Per-record failures are reported in the outcome and mailed to staff; an empty remote roster aborts the run.
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.SyncOutcomeSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "remote roster was empty"
// @Router /events/{eventID}/sync [post]
func (c *RosterController) SyncEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.staff(w, r); !ok {
		return
	}
	outcome, err := c.Sync.Run(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, outcome)
}

// ListMembershipsResponse is one page of an event roster.
type ListMembershipsResponse struct {
	Memberships []*domain.Membership   `json:"memberships"`
	Pagination  helpers.PaginationMeta `json:"pagination"`
}

// ListMemberships godoc
// @Summary List an event roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 50, max 200)"
// @Success 200 {object} helpers.APIResponse "data: ListMembershipsResponse"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/memberships [get]
func (c *RosterController) ListMemberships(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.staff(w, r); !ok {
		return
	}
	params := helpers.ParsePagination(r)
	list, total, err := c.Memberships.ListByEvent(r.Context(), r.PathValue("eventID"), params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListMembershipsResponse{
		Memberships: list,
		Pagination:  helpers.NewPaginationMeta(params, total),
	})
}

// UpdateAttendanceRequest is the request body for PATCH /memberships/{membershipID}/attendance.
type UpdateAttendanceRequest struct {
	Attendance string `json:"attendance" validate:"required" label:"Attendance"`
}

// Validate implements Validator.
func (req UpdateAttendanceRequest) Validate() []string {
	if req.Attendance != "" && !domain.Attendance(req.Attendance).Valid() {
		return []string{"Attendance must be one of Confirmed, Invited, Undecided, Not Yet Invited, Declined"}
	}
	return nil
}

// UpdateAttendance godoc
// @Summary Change a member's attendance
// @Description Moves the membership to the given state, enforcing capacity, and pushes the change to the legacy system.
// @Tags roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Param body body UpdateAttendanceRequest true "New attendance"
// @Success 200 {object} controllers.MembershipSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed or capacity_reached"
// @Router /memberships/{membershipID}/attendance [patch]
func (c *RosterController) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	staff, ok := c.staff(w, r)
	if !ok {
		return
	}
	var req UpdateAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	m, err := c.Memberships.Transition(r.Context(), r.PathValue("membershipID"), domain.Attendance(req.Attendance),
		domain.SaveOptions{Actor: staff, PersistAndPush: true})
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, m)
}

// DeleteMembership godoc
// @Summary Remove a member from an event
// @Tags roster
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /memberships/{membershipID} [delete]
func (c *RosterController) DeleteMembership(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.staff(w, r); !ok {
		return
	}
	if err := c.Memberships.Delete(r.Context(), r.PathValue("membershipID")); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvitationSuccessResponse is the success envelope for endpoints returning an invitation.
type InvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// Invite godoc
// @Summary Invite a member
// @Description Issues a fresh invitation code, replacing any previous one, and mails it to the member.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Success 201 {object} controllers.InvitationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_reached"
// @Router /memberships/{membershipID}/invitation [post]
func (c *RosterController) Invite(w http.ResponseWriter, r *http.Request) {
	staff, ok := c.staff(w, r)
	if !ok {
		return
	}
	inv, err := c.Invitations.Invite(r.Context(), r.PathValue("membershipID"), staff)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// Remind godoc
// @Summary Send an invitation reminder
// @Description Re-sends the invitation with the reply-by date recomputed from today and records the reminder.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Success 200 {object} controllers.InvitationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /memberships/{membershipID}/reminders [post]
func (c *RosterController) Remind(w http.ResponseWriter, r *http.Request) {
	staff, ok := c.staff(w, r)
	if !ok {
		return
	}
	inv, err := c.Invitations.Remind(r.Context(), r.PathValue("membershipID"), staff)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// Revoke godoc
// @Summary Revoke a member's invitation
// @Tags invitations
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /memberships/{membershipID}/invitation [delete]
func (c *RosterController) Revoke(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.staff(w, r); !ok {
		return
	}
	if err := c.Invitations.Revoke(r.Context(), r.PathValue("membershipID")); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplyBySuccessResponse is the success envelope for GET /memberships/{membershipID}/invitation (200).
type ReplyBySuccessResponse struct {
	Data  *domain.ReplyByReport `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ReplyBy godoc
// @Summary Show an invitation and its reply-by dates
// @Description Lists the reply-by date announced by the invitation and by each reminder.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param membershipID path string true "Membership ID"
// @Success 200 {object} controllers.ReplyBySuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /memberships/{membershipID}/invitation [get]
func (c *RosterController) ReplyBy(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.staff(w, r); !ok {
		return
	}
	report, err := c.Invitations.ReplyByDates(r.Context(), r.PathValue("membershipID"))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, report)
}
