package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventroster/internal/delivery/http/controllers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes. metrics
// may be nil when no Prometheus registry is configured.
func NewRouter(
	rsvp *controllers.RSVPController,
	roster *controllers.RosterController,
	verifier domain.TokenVerifier,
	metrics http.Handler,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	staff := middleware.RequireStaff(verifier, logger)

	// Public RSVP
	mux.HandleFunc("GET /rsvp/{code}", rsvp.Check)
	mux.HandleFunc("POST /rsvp/{code}/yes", rsvp.Yes)
	mux.HandleFunc("POST /rsvp/{code}/no", rsvp.No)
	mux.HandleFunc("POST /rsvp/{code}/maybe", rsvp.Maybe)
	mux.HandleFunc("POST /rsvp/feedback/{membershipID}", rsvp.Feedback)

	// Staff
	mux.HandleFunc("POST /events/{eventID}/sync", staff(roster.SyncEvent))
	mux.HandleFunc("GET /events/{eventID}/memberships", staff(roster.ListMemberships))
	mux.HandleFunc("PATCH /memberships/{membershipID}/attendance", staff(roster.UpdateAttendance))
	mux.HandleFunc("DELETE /memberships/{membershipID}", staff(roster.DeleteMembership))
	mux.HandleFunc("POST /memberships/{membershipID}/invitation", staff(roster.Invite))
	mux.HandleFunc("DELETE /memberships/{membershipID}/invitation", staff(roster.Revoke))
	mux.HandleFunc("GET /memberships/{membershipID}/invitation", staff(roster.ReplyBy))
	mux.HandleFunc("POST /memberships/{membershipID}/reminders", staff(roster.Remind))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
