package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/domain"
)

// dateLayout is the format of arrival and departure dates in RSVP bodies.
const dateLayout = "2006-01-02"

// RSVPController serves the public invitation response pages. The invitation
// code in the path is the only credential.
type RSVPController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewRSVPController(logger *slog.Logger, svc domain.InvitationService) *RSVPController {
	return &RSVPController{
		Logger:  logger,
		Service: svc,
	}
}

// RSVPSessionSuccessResponse is the success response envelope for GET /rsvp/{code} (200).
type RSVPSessionSuccessResponse struct {
	Data  *domain.RSVPSession `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// MembershipSuccessResponse is the success envelope for endpoints returning a membership.
type MembershipSuccessResponse struct {
	Data  *domain.Membership `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// Check godoc
// @Summary Check an invitation code
// @Description Validates the code and returns the invitation, membership, person, event, organizer and reply-by date the response form needs.
// @Tags rsvp
// @Produce json
// @Param code path string true "Invitation code"
// @Success 200 {object} controllers.RSVPSessionSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: not_yet_invited"
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_code"
// @Failure 409 {object} helpers.APIResponse "error.code: already_declined"
// @Failure 410 {object} helpers.APIResponse "error.code: past_event or expired"
// @Router /rsvp/{code} [get]
func (c *RSVPController) Check(w http.ResponseWriter, r *http.Request) {
	session, err := c.Service.Check(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, session)
}

// RSVPYesRequest is the request body for POST /rsvp/{code}/yes.
type RSVPYesRequest struct {
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname"`
	Email            string `json:"email" validate:"omitempty,email" label:"E-mail"`
	Affiliation      string `json:"affiliation"`
	URL              string `json:"url"`
	Address1         string `json:"address1"`
	City             string `json:"city"`
	Region           string `json:"region"`
	PostalCode       string `json:"postal_code"`
	Country          string `json:"country"`
	Biography        string `json:"biography"`
	ResearchAreas    string `json:"research_areas"`
	ArrivalDate      string `json:"arrival_date"`
	DepartureDate    string `json:"departure_date"`
	HasGuest         bool   `json:"has_guest"`
	GuestDisclaimer  bool   `json:"guest_disclaimer"`
	SpecialInfo      string `json:"special_info"`
	OrganizerMessage string `json:"organizer_message"`
}

// Validate implements Validator. Dates must be calendar dates when present.
func (req RSVPYesRequest) Validate() []string {
	var errs []string
	if _, err := parseDate(req.ArrivalDate); err != nil {
		errs = append(errs, "Arrival date must be formatted as YYYY-MM-DD")
	}
	if _, err := parseDate(req.DepartureDate); err != nil {
		errs = append(errs, "Departure date must be formatted as YYYY-MM-DD")
	}
	return errs
}

func (req RSVPYesRequest) toResponse() *domain.YesResponse {
	arrival, _ := parseDate(req.ArrivalDate)
	departure, _ := parseDate(req.DepartureDate)
	return &domain.YesResponse{
		Firstname:        req.Firstname,
		Lastname:         req.Lastname,
		Email:            req.Email,
		Affiliation:      req.Affiliation,
		URL:              req.URL,
		Address1:         req.Address1,
		City:             req.City,
		Region:           req.Region,
		PostalCode:       req.PostalCode,
		Country:          req.Country,
		Biography:        req.Biography,
		ResearchAreas:    req.ResearchAreas,
		ArrivalDate:      arrival,
		DepartureDate:    departure,
		HasGuest:         req.HasGuest,
		GuestDisclaimer:  req.GuestDisclaimer,
		SpecialInfo:      req.SpecialInfo,
		OrganizerMessage: req.OrganizerMessage,
	}
}

// parseDate returns nil for a blank value.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	return &t, nil
}

// Yes godoc
// @Summary Accept an invitation
// @Description Confirms attendance, updates the invitee's profile and travel dates, and notifies the organizer and the participant.
// @Tags rsvp
// @Accept json
// @Produce json
// @Param code path string true "Invitation code"
// @Param body body RSVPYesRequest true "Profile and travel details"
// @Success 200 {object} controllers.MembershipSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_code"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed or capacity_reached"
// @Router /rsvp/{code}/yes [post]
func (c *RSVPController) Yes(w http.ResponseWriter, r *http.Request) {
	var req RSVPYesRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	m, err := c.Service.RespondYes(r.Context(), r.PathValue("code"), req.toResponse())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, m)
}

// RSVPMessageRequest is the request body for declining or answering maybe.
type RSVPMessageRequest struct {
	OrganizerMessage string `json:"organizer_message" validate:"max=5000" label:"Message"`
}

// No godoc
// @Summary Decline an invitation
// @Description Marks the membership Declined, removes the invitation and forwards the optional message to the organizer.
// @Tags rsvp
// @Accept json
// @Produce json
// @Param code path string true "Invitation code"
// @Param body body RSVPMessageRequest true "Optional message to the organizer"
// @Success 200 {object} controllers.MembershipSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_code"
// @Router /rsvp/{code}/no [post]
func (c *RSVPController) No(w http.ResponseWriter, r *http.Request) {
	c.respond(w, r, c.Service.RespondNo)
}

// Maybe godoc
// @Summary Answer maybe
// @Description Marks the membership Undecided and keeps the invitation so the invitee can answer again.
// @Tags rsvp
// @Accept json
// @Produce json
// @Param code path string true "Invitation code"
// @Param body body RSVPMessageRequest true "Optional message to the organizer"
// @Success 200 {object} controllers.MembershipSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_code"
// @Router /rsvp/{code}/maybe [post]
func (c *RSVPController) Maybe(w http.ResponseWriter, r *http.Request) {
	c.respond(w, r, c.Service.RespondMaybe)
}

func (c *RSVPController) respond(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, code, organizerMessage string) (*domain.Membership, error)) {
	var req RSVPMessageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	m, err := fn(r.Context(), r.PathValue("code"), req.OrganizerMessage)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, m)
}

// FeedbackRequest is the request body for POST /rsvp/feedback/{membershipID}.
type FeedbackRequest struct {
	Message string `json:"message" validate:"max=5000" label:"Feedback"`
}

// Feedback godoc
// @Summary Send feedback about the RSVP form
// @Description Forwards the message to the program coordinator. A blank message is accepted and ignored.
// @Tags rsvp
// @Accept json
// @Param membershipID path string true "Membership ID"
// @Param body body FeedbackRequest true "Feedback"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /rsvp/feedback/{membershipID} [post]
func (c *RSVPController) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.Feedback(r.Context(), r.PathValue("membershipID"), req.Message); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
