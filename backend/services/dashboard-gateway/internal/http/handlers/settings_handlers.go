package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/metrics"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// SettingsHandlers serves the threshold editor.
type SettingsHandlers struct {
	settings *service.SettingsService
	logger   *zap.Logger
}

// NewSettingsHandlers returns handler.
func NewSettingsHandlers(settings *service.SettingsService, logger *zap.Logger) *SettingsHandlers {
	return &SettingsHandlers{settings: settings, logger: logger}
}

// Thresholds handles GET /api/settings/thresholds.
func (h *SettingsHandlers) Thresholds(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Thresholds(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "thresholds", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Metrics handles GET /api/settings/metrics.
func (h *SettingsHandlers) Metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.All)
}

// SaveThresholds handles POST /api/settings/thresholds.
func (h *SettingsHandlers) SaveThresholds(w http.ResponseWriter, r *http.Request) {
	var settings models.ThresholdSettings
	if !decodeBody(w, r, &settings) {
		return
	}
	issues, err := h.settings.Save(r.Context(), settings)
	if err != nil {
		writeServiceError(w, h.logger, "save thresholds", err)
		return
	}
	if issues == nil {
		issues = []metrics.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "warnings": issues})
}
