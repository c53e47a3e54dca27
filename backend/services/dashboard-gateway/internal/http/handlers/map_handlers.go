package handlers

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/geo"
	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

// MapHandlers serves the drive-test map.
type MapHandlers struct {
	maps   *service.MapService
	logger *zap.Logger
}

// NewMapHandlers returns handler.
func NewMapHandlers(maps *service.MapService, logger *zap.Logger) *MapHandlers {
	return &MapHandlers{maps: maps, logger: logger}
}

func filterFromQuery(r *http.Request) models.LogFilter {
	q := r.URL.Query()
	return models.LogFilter{
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		Provider:   q.Get("provider"),
		Technology: q.Get("technology"),
		Band:       q.Get("band"),
	}
}

// Logs handles GET /api/map/logs.
func (h *MapHandlers) Logs(w http.ResponseWriter, r *http.Request) {
	res, err := h.maps.Logs(r.Context(), filterFromQuery(r), r.URL.Query().Get("metric"))
	if err != nil {
		writeServiceError(w, h.logger, "map logs", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SessionLogs handles GET /api/map/sessions/{id}/logs.
func (h *MapHandlers) SessionLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.maps.SessionLogs(r.Context(), id, r.URL.Query().Get("metric"))
	if err != nil {
		writeServiceError(w, h.logger, "session logs", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Prediction handles GET /api/map/prediction. Query parameters other than
// metric go to the backend unchanged.
func (h *MapHandlers) Prediction(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	metric := params.Get("metric")
	params.Del("metric")
	res, err := h.maps.Prediction(r.Context(), params, metric)
	if err != nil {
		writeServiceError(w, h.logger, "prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Heatmap handles GET /api/map/heatmap.
func (h *MapHandlers) Heatmap(w http.ResponseWriter, r *http.Request) {
	points, err := h.maps.Heatmap(r.Context(), filterFromQuery(r), r.URL.Query().Get("metric"))
	if err != nil {
		writeServiceError(w, h.logger, "heatmap", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// Overlay handles GET /api/map/overlay.png.
func (h *MapHandlers) Overlay(w http.ResponseWriter, r *http.Request) {
	req, ok := overlayRequest(w, r)
	if !ok {
		return
	}
	img, stats, err := h.maps.Overlay(r.Context(), filterFromQuery(r), r.URL.Query().Get("metric"), req)
	if err != nil {
		writeServiceError(w, h.logger, "overlay", err)
		return
	}
	w.Header().Set("X-Overlay-Drawn", strconv.Itoa(stats.Drawn))
	w.Header().Set("X-Overlay-Culled", strconv.Itoa(stats.Culled))
	h.writePNG(w, img)
}

func overlayRequest(w http.ResponseWriter, r *http.Request) (service.OverlayRequest, bool) {
	var corners [4]float64
	for i, key := range []string{"south", "west", "north", "east"} {
		v, ok := queryFloat(r, key)
		if !ok {
			writeError(w, http.StatusBadRequest, key+" is required")
			return service.OverlayRequest{}, false
		}
		corners[i] = v
	}
	// zero zoom fits the bounds
	zoom, _ := queryFloat(r, "zoom")
	return service.OverlayRequest{
		Bounds: geo.NewBounds(
			geo.LatLng{Lat: corners[0], Lng: corners[1]},
			geo.LatLng{Lat: corners[2], Lng: corners[3]},
		),
		Width:   queryInt(r, "width", 0),
		Height:  queryInt(r, "height", 0),
		Zoom:    zoom,
		Pad:     queryInt(r, "pad", 0),
		MaxDraw: queryInt(r, "max_draw", 0),
	}, true
}

// Legend handles GET /api/map/legend.png.
func (h *MapHandlers) Legend(w http.ResponseWriter, r *http.Request) {
	img, err := h.maps.LegendImage(r.Context(), filterFromQuery(r), r.URL.Query().Get("metric"))
	if err != nil {
		writeServiceError(w, h.logger, "legend", err)
		return
	}
	h.writePNG(w, img)
}

func (h *MapHandlers) writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		writeServiceError(w, h.logger, "encode png", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Projects handles GET /api/map/projects.
func (h *MapHandlers) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.maps.Projects(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "projects", err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// ProjectPolygons handles GET /api/map/projects/{id}/polygons.
func (h *MapHandlers) ProjectPolygons(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	shapes, err := h.maps.ProjectPolygons(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "project polygons", err)
		return
	}
	writeJSON(w, http.StatusOK, shapes)
}

// Providers handles GET /api/map/providers.
func (h *MapHandlers) Providers(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "providers", h.maps.Providers)
}

// Technologies handles GET /api/map/technologies.
func (h *MapHandlers) Technologies(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "technologies", h.maps.Technologies)
}

// Bands handles GET /api/map/bands.
func (h *MapHandlers) Bands(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "bands", h.maps.Bands)
}

func (h *MapHandlers) lookup(w http.ResponseWriter, r *http.Request, op string, list func(context.Context) ([]string, error)) {
	names, err := list(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, op, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// Views handles GET /api/map/views.
func (h *MapHandlers) Views(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	views, err := h.maps.Views(r.Context(), userID(session))
	if err != nil {
		writeServiceError(w, h.logger, "list views", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// SaveView handles POST /api/map/views.
func (h *MapHandlers) SaveView(w http.ResponseWriter, r *http.Request) {
	var view models.MapView
	if !decodeBody(w, r, &view) {
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())
	saved, err := h.maps.SaveView(r.Context(), userID(session), view)
	if err != nil {
		writeServiceError(w, h.logger, "save view", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteView handles DELETE /api/map/views/{id}.
func (h *MapHandlers) DeleteView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())
	if err := h.maps.DeleteView(r.Context(), userID(session), id); err != nil {
		writeServiceError(w, h.logger, "delete view", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogNetwork handles POST /api/map/log from field devices.
func (h *MapHandlers) LogNetwork(w http.ResponseWriter, r *http.Request) {
	h.device(w, r, "log network", h.maps.LogNetwork)
}

// StartSession handles POST /api/map/sessions/start.
func (h *MapHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	h.device(w, r, "start session", h.maps.StartSession)
}

// EndSession handles POST /api/map/sessions/end.
func (h *MapHandlers) EndSession(w http.ResponseWriter, r *http.Request) {
	h.device(w, r, "end session", h.maps.EndSession)
}

func (h *MapHandlers) device(w http.ResponseWriter, r *http.Request, op string, call rawCall) {
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

func userID(session *models.AuthSession) int64 {
	if session == nil {
		return 0
	}
	return session.UserID
}
