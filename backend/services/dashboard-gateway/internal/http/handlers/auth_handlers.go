package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// AuthHandlers serves login, logout and the password flows.
type AuthHandlers struct {
	auth         *service.AuthService
	ttl          time.Duration
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandlers returns handler struct.
func NewAuthHandlers(auth *service.AuthService, ttl time.Duration, secureCookie bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, ttl: ttl, secureCookie: secureCookie, logger: logger}
}

type loginResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresIn int64           `json:"expires_in,omitempty"`
	User      json.RawMessage `json:"user"`
}

// Login handles POST /api/auth/login. A caller that already holds a live
// session gets its user back without a new backend login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if session, err := h.auth.Authenticate(r.Context(), token); err == nil {
			writeJSON(w, http.StatusOK, loginResponse{User: session.User})
			return
		}
	}

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.IP = clientIP(r)

	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "login", err)
		return
	}
	http.SetCookie(w, h.cookie(res.Token, int(h.ttl.Seconds())))
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresIn: int64(h.ttl.Seconds()),
		User:      res.Session.User,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), session); err != nil {
		writeServiceError(w, h.logger, "logout", err)
		return
	}
	http.SetCookie(w, h.cookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeRaw(w, http.StatusOK, session.User)
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, "forgot password", h.auth.ForgotPassword)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, "reset password", h.auth.ResetPassword)
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, "signup", h.auth.Signup)
}

type rawCall func(context.Context, json.RawMessage) (json.RawMessage, error)

func (h *AuthHandlers) passthrough(w http.ResponseWriter, r *http.Request, op string, call rawCall) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	resp, err := call(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.logger, op, err)
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

func (h *AuthHandlers) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
