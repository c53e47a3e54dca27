package handlers

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// DashboardHandlers serves the KPI dashboard.
type DashboardHandlers struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandlers returns handler.
func NewDashboardHandlers(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandlers {
	return &DashboardHandlers{dashboard: dashboard, logger: logger}
}

// Summary handles GET /api/dashboard.
func (h *DashboardHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Ranking handles GET /api/dashboard/ranking?kind=coverage&min=-110&max=-90.
func (h *DashboardHandlers) Ranking(w http.ResponseWriter, r *http.Request) {
	minV, okMin := queryFloat(r, "min")
	maxV, okMax := queryFloat(r, "max")
	if !okMin || !okMax {
		writeError(w, http.StatusBadRequest, "min and max are required")
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = service.RankingCoverage
	}
	entries, err := h.dashboard.Ranking(r.Context(), kind, minV, maxV)
	if err != nil {
		writeServiceError(w, h.logger, "ranking", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Charts handles GET /api/dashboard/charts with a server-rendered page.
func (h *DashboardHandlers) Charts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.dashboard.Charts(r.Context(), &buf); err != nil {
		writeServiceError(w, h.logger, "charts", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
