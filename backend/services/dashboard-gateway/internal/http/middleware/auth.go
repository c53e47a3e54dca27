package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookie holds the gateway token for browser clients.
const SessionCookie = "st_session"

// Authenticator resolves a token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.AuthSession, error)
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// AuthMiddleware rejects requests without a live session. Authenticated
// requests carry the session and its backend cookies in their context.
func AuthMiddleware(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing credentials")
				return
			}
			session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthorized) {
					logger.Error("session lookup failed", zap.Error(err))
					writeError(w, http.StatusServiceUnavailable, "session store unavailable")
					return
				}
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithSession stores session in ctx along with its backend cookies.
func WithSession(ctx context.Context, session *models.AuthSession) context.Context {
	ctx = clients.WithCookies(ctx, session.Cookies)
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the authenticated session.
func SessionFromContext(ctx context.Context) (*models.AuthSession, bool) {
	session, ok := ctx.Value(sessionKey).(*models.AuthSession)
	return session, ok && session != nil
}
