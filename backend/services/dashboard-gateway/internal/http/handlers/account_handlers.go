package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// AccountHandlers serves session status and the account master lists.
type AccountHandlers struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

// NewAccountHandlers returns handler struct.
func NewAccountHandlers(accounts *service.AccountService, logger *zap.Logger) *AccountHandlers {
	return &AccountHandlers{accounts: accounts, logger: logger}
}

// Status handles GET /api/auth/status.
func (h *AccountHandlers) Status(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	status, err := h.accounts.Status(r.Context(), session)
	if err != nil {
		writeServiceError(w, h.logger, "session status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// LoggedUser handles GET /api/auth/logged-user.
func (h *AccountHandlers) LoggedUser(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	user, err := h.accounts.LoggedUser(r.Context(), session, clientIP(r))
	if err != nil {
		writeServiceError(w, h.logger, "logged user", err)
		return
	}
	writeRaw(w, http.StatusOK, user)
}

// States handles GET /api/lookups/states.
func (h *AccountHandlers) States(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "states", h.accounts.States)
}

// UserTypes handles GET /api/lookups/user-types.
func (h *AccountHandlers) UserTypes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "user types", h.accounts.UserTypes)
}

func (h *AccountHandlers) list(w http.ResponseWriter, r *http.Request, op string, fetch func(context.Context) (json.RawMessage, error)) {
	body, err := fetch(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, op, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}
