package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventroster/internal/delivery/http/helpers"
	"eventroster/internal/domain"
)

type contextKey string

const staffKey contextKey = "staff"

// WithStaff returns a context carrying the authenticated staff identity.
func WithStaff(ctx context.Context, staff string) context.Context {
	return context.WithValue(ctx, staffKey, staff)
}

// StaffFromContext returns the staff identity set by RequireStaff, if present.
// It is stamped into UpdatedBy, InvitedBy and reminder SentBy fields.
func StaffFromContext(ctx context.Context) (string, bool) {
	staff, ok := ctx.Value(staffKey).(string)
	return staff, ok && staff != ""
}

// RequireStaff returns a wrapper that validates the Bearer token and puts the
// staff identity in the request context. If the token is missing or invalid,
// it responds with 401 and does not call next.
func RequireStaff(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
				return
			}
			staff, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected staff token", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(WithStaff(r.Context(), staff)))
		}
	}
}

// bearerToken extracts the token from the Authorization header. A non-empty
// msg explains why the header was rejected.
func bearerToken(r *http.Request) (token, msg string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}
