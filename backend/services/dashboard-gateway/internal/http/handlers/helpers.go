package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/geo"
	"signaltracker/backend/services/dashboard-gateway/internal/kpi"
	"signaltracker/backend/services/dashboard-gateway/internal/repository"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_, _ = w.Write(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readBody reads a JSON request body as raw bytes.
func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return nil, false
	}
	return body, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := service.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get(key)), 64)
	return v, err == nil
}

// writeServiceError maps service and backend errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var apiErr *clients.APIError
	var loginErr *service.LoginError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled", zap.String("op", op))
	case errors.As(err, &loginErr):
		writeError(w, http.StatusUnauthorized, loginErr.Message)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrInvalidView),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, geo.ErrInvalidViewport):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRejected), errors.Is(err, service.ErrSaveRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrViewNotFound):
		writeError(w, http.StatusNotFound, "view not found")
	case errors.Is(err, service.ErrViewsDisabled):
		writeError(w, http.StatusServiceUnavailable, "saved views are not configured")
	case errors.Is(err, kpi.ErrStringPayload), errors.Is(err, clients.ErrStringBody):
		logger.Warn("backend returned an unexpected payload", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend returned an unexpected payload")
	case errors.As(err, &apiErr):
		logger.Warn("backend call failed", zap.String("op", op), zap.Error(err))
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound {
			status = apiErr.Status
		}
		writeError(w, status, apiErr.Message)
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
