package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// AdminHandlers serves the session, log and user tables.
type AdminHandlers struct {
	admin  *service.AdminService
	logger *zap.Logger
}

// NewAdminHandlers returns handler.
func NewAdminHandlers(admin *service.AdminService, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{admin: admin, logger: logger}
}

// Sessions handles GET /api/admin/sessions?page=&pageSize=&from=&to=.
func (h *AdminHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.admin.Sessions(r.Context(), service.SessionQuery{
		From:     q.Get("from"),
		To:       q.Get("to"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "pageSize", service.DefaultPageSize),
	})
	if err != nil {
		writeServiceError(w, h.logger, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeleteSession handles DELETE /api/admin/sessions/{id}.
func (h *AdminHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteSession(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NetworkLogs handles GET /api/admin/network-logs.
func (h *AdminHandlers) NetworkLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.admin.NetworkLogs(r.Context(), r.URL.Query())
	if err != nil {
		writeServiceError(w, h.logger, "network logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Users handles GET /api/admin/users.
func (h *AdminHandlers) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context(), r.URL.Query())
	if err != nil {
		writeServiceError(w, h.logger, "list users", err)
		return
	}
	if users == nil {
		users = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, users)
}

// SearchUsers handles POST /api/admin/users/search.
func (h *AdminHandlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	users, err := h.admin.SearchUsers(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.logger, "search users", err)
		return
	}
	writeRaw(w, http.StatusOK, users)
}

// User handles GET /api/admin/users/{id}.
func (h *AdminHandlers) User(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.admin.User(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get user", err)
		return
	}
	writeRaw(w, http.StatusOK, user)
}

// SaveUser handles POST /api/admin/users.
func (h *AdminHandlers) SaveUser(w http.ResponseWriter, r *http.Request) {
	h.confirmed(w, r, "save user", h.admin.SaveUser)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	env, err := h.admin.DeleteUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// ResetUserPassword handles POST /api/admin/users/reset-password.
func (h *AdminHandlers) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	h.confirmed(w, r, "reset user password", h.admin.ResetUserPassword)
}

// ChangePassword handles POST /api/admin/change-password.
func (h *AdminHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	h.confirmed(w, r, "change password", h.admin.ChangePassword)
}

func (h *AdminHandlers) confirmed(w http.ResponseWriter, r *http.Request, op string, call func(context.Context, json.RawMessage) (*clients.Envelope, error)) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	env, err := call(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
