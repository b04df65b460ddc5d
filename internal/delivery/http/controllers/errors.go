package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/domain"
)

// rejectionStatus maps an RSVP rejection to the status shown with its message.
var rejectionStatus = map[domain.RSVPReason]int{
	domain.RSVPInvalidCode:     http.StatusNotFound,
	domain.RSVPPastEvent:       http.StatusGone,
	domain.RSVPExpired:         http.StatusGone,
	domain.RSVPNotYetInvited:   http.StatusForbidden,
	domain.RSVPAlreadyDeclined: http.StatusConflict,
}

// writeServiceError maps a service error to the JSON error envelope. Only
// unexpected errors are logged; the rest are ordinary outcomes for the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var rejection *domain.RSVPRejection
	if errors.As(err, &rejection) {
		status, ok := rejectionStatus[rejection.Reason]
		if !ok {
			status = http.StatusBadRequest
		}
		helpers.WriteJSONError(w, status, string(rejection.Reason), rejection.Message)
		return
	}

	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		code := helpers.ErrCodeValidation
		if errors.Is(err, domain.ErrCapacityReached) {
			code = helpers.ErrCodeCapacityReached
		}
		helpers.WriteJSONError(w, http.StatusUnprocessableEntity, code, strings.Join(invalid.Messages, "; "))
		return
	}

	var noResults *domain.NoResultsError
	switch {
	case errors.As(err, &noResults):
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrCodeNotFound, noResults.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrCapacityReached):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacityReached, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}
