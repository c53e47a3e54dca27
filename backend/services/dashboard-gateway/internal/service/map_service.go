package service

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"signaltracker/backend/services/dashboard-gateway/internal/geo"
	"signaltracker/backend/services/dashboard-gateway/internal/metrics"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
)

var (
	// ErrViewsDisabled is returned when no view store is configured.
	ErrViewsDisabled = errors.New("map: saved views are disabled")
	// ErrInvalidView is returned for a view that cannot be saved.
	ErrInvalidView = errors.New("map: invalid view")
	// ErrInvalidSession is returned for a non-positive session id.
	ErrInvalidSession = errors.New("map: invalid session id")
)

const maxViewZoom = 21

// MapAPI is the backend surface behind the map page.
type MapAPI interface {
	LogsByDateRange(ctx context.Context, filter models.LogFilter) ([]models.NetworkLog, error)
	NetworkLog(ctx context.Context, sessionID int64, limit int) ([]models.NetworkLog, error)
	PredictionLog(ctx context.Context, params url.Values) ([]models.NetworkLog, error)
	Projects(ctx context.Context) ([]models.Project, error)
	ProjectPolygons(ctx context.Context, projectID int64) ([]models.ProjectPolygon, error)
	Providers(ctx context.Context) ([]string, error)
	Technologies(ctx context.Context) ([]string, error)
	Bands(ctx context.Context) ([]string, error)
	StartSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	EndSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	LogNetwork(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// ThresholdSource supplies the current colour tables.
type ThresholdSource interface {
	Thresholds(ctx context.Context) (*models.ThresholdSettings, error)
}

// ViewStore persists saved map views.
type ViewStore interface {
	Save(ctx context.Context, view *models.MapView) error
	ListByUser(ctx context.Context, userID int64) ([]models.MapView, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Publisher fans live points out to subscribers of a session.
type Publisher interface {
	Publish(sessionID int64, v any)
}

// Point is a colourised log row.
type Point struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	Value      *float64 `json:"value"`
	Color      string   `json:"color"`
	Bucket     int      `json:"bucket"`
	Operator   string   `json:"operator,omitempty"`
	Technology string   `json:"technology,omitempty"`
	Band       string   `json:"band,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	SessionID  int64    `json:"session_id,omitempty"`
}

// LegendEntry counts the points of one threshold bucket.
type LegendEntry struct {
	Label string  `json:"label"`
	Color string  `json:"color"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Summary holds basic statistics over the valid metric values.
type Summary struct {
	Count int      `json:"count"`
	Valid int      `json:"valid"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Mean  *float64 `json:"mean"`
}

// LogsResult is a colourised log set ready for the map.
type LogsResult struct {
	Metric  metrics.Metric `json:"metric"`
	Points  []Point        `json:"points"`
	Fit     *geo.FitResult `json:"fit,omitempty"`
	Legend  []LegendEntry  `json:"legend"`
	Missing int            `json:"missing"`
	Summary Summary        `json:"summary"`
}

// HeatPoint is a weighted heatmap sample.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// OverlayRequest describes the viewport to render.
type OverlayRequest struct {
	Bounds  geo.Bounds
	Width   int
	Height  int
	Zoom    float64
	Pad     int
	MaxDraw int
}

// ProjectShape is a project polygon with parsed rings.
type ProjectShape struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Polygons []geo.Polygon `json:"polygons"`
}

// MapService colourises drive-test logs and serves map assets.
type MapService struct {
	api        MapAPI
	thresholds ThresholdSource
	views      ViewStore
	live       Publisher
	legends    *render.LegendRenderer
	logger     *zap.Logger
}

// NewMapService builds MapService. views and live may be nil.
func NewMapService(api MapAPI, thresholds ThresholdSource, views ViewStore, live Publisher, legends *render.LegendRenderer, logger *zap.Logger) *MapService {
	return &MapService{
		api:        api,
		thresholds: thresholds,
		views:      views,
		live:       live,
		legends:    legends,
		logger:     logger,
	}
}

func (s *MapService) tables(ctx context.Context) models.Thresholds {
	settings, err := s.thresholds.Thresholds(ctx)
	if err != nil || settings == nil {
		if err != nil {
			s.logger.Warn("threshold lookup failed, using default colour", zap.Error(err))
		}
		return models.Thresholds{}
	}
	return settings.Tables
}

// Logs returns the colourised logs matching filter.
func (s *MapService) Logs(ctx context.Context, filter models.LogFilter, metric string) (*LogsResult, error) {
	logs, err := s.api.LogsByDateRange(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Colorize(logs, metrics.Resolve(metric), s.tables(ctx)), nil
}

// SessionLogs returns one session's colourised log.
func (s *MapService) SessionLogs(ctx context.Context, sessionID int64, metric string) (*LogsResult, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidSession
	}
	logs, err := s.api.NetworkLog(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	return Colorize(logs, metrics.Resolve(metric), s.tables(ctx)), nil
}

// Prediction returns colourised prediction points.
func (s *MapService) Prediction(ctx context.Context, params url.Values, metric string) (*LogsResult, error) {
	logs, err := s.api.PredictionLog(ctx, params)
	if err != nil {
		return nil, err
	}
	return Colorize(logs, metrics.Resolve(metric), s.tables(ctx)), nil
}

// Heatmap returns points weighted by the rank of their threshold bucket.
// Points outside every bucket are left out.
func (s *MapService) Heatmap(ctx context.Context, filter models.LogFilter, metric string) ([]HeatPoint, error) {
	res, err := s.Logs(ctx, filter, metric)
	if err != nil {
		return nil, err
	}
	buckets := make([]models.Bucket, len(res.Legend))
	for i, e := range res.Legend {
		buckets[i] = models.Bucket{Min: e.Min, Max: e.Max}
	}
	out := make([]HeatPoint, 0, len(res.Points))
	for _, p := range res.Points {
		w := metrics.Weight(p.Bucket, buckets, res.Metric.LowerIsBetter)
		if w == 0 {
			continue
		}
		out = append(out, HeatPoint{Lat: p.Lat, Lng: p.Lng, Weight: w})
	}
	return out, nil
}

// Overlay renders the filtered points visible in the requested viewport.
func (s *MapService) Overlay(ctx context.Context, filter models.LogFilter, metric string, req OverlayRequest) (*image.RGBA, render.OverlayStats, error) {
	v, err := geo.NewViewport(req.Bounds, req.Width, req.Height, req.Zoom)
	if err != nil {
		return nil, render.OverlayStats{}, err
	}
	res, err := s.Logs(ctx, filter, metric)
	if err != nil {
		return nil, render.OverlayStats{}, err
	}

	dots := make([]render.Dot, len(res.Points))
	for i, p := range res.Points {
		dots[i] = render.Dot{Pos: geo.LatLng{Lat: p.Lat, Lng: p.Lng}, Color: p.Color}
	}
	pad := req.Pad
	if pad <= 0 {
		pad = geo.DefaultPadding
	}
	img, stats := render.Overlay(dots, v, pad, req.MaxDraw)
	s.logger.Debug("overlay rendered",
		zap.Int("total", stats.Total),
		zap.Int("drawn", stats.Drawn),
		zap.Int("culled", stats.Culled),
	)
	return img, stats, nil
}

// LegendImage renders the metric legend with the bucket counts of filter.
func (s *MapService) LegendImage(ctx context.Context, filter models.LogFilter, metric string) (*image.RGBA, error) {
	res, err := s.Logs(ctx, filter, metric)
	if err != nil {
		return nil, err
	}
	title := res.Metric.Label
	if res.Metric.Unit != "" {
		title += " (" + res.Metric.Unit + ")"
	}
	legend := render.Legend{Title: title, Missing: res.Missing}
	for _, e := range res.Legend {
		legend.Rows = append(legend.Rows, render.LegendRow{Label: e.Label, Color: e.Color, Count: e.Count})
	}
	return s.legends.Render(legend)
}

// ProjectPolygons returns a project's polygons with parsed geometry.
// Rows with malformed WKT are logged and skipped.
func (s *MapService) ProjectPolygons(ctx context.Context, projectID int64) ([]ProjectShape, error) {
	rows, err := s.api.ProjectPolygons(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectShape, 0, len(rows))
	for _, row := range rows {
		polys, err := geo.ParseWKT(row.WKT)
		if err != nil {
			s.logger.Warn("skipping project polygon",
				zap.Int64("project_id", projectID),
				zap.Int64("polygon_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, ProjectShape{ID: row.ID, Name: row.Name, Polygons: polys})
	}
	return out, nil
}

func (s *MapService) Projects(ctx context.Context) ([]models.Project, error) {
	return s.api.Projects(ctx)
}

func (s *MapService) Providers(ctx context.Context) ([]string, error) {
	return s.api.Providers(ctx)
}

func (s *MapService) Technologies(ctx context.Context) ([]string, error) {
	return s.api.Technologies(ctx)
}

func (s *MapService) Bands(ctx context.Context) ([]string, error) {
	return s.api.Bands(ctx)
}

// DefaultView is the viewport shown before the user saved any view.
func DefaultView() models.MapView {
	return models.MapView{
		Name:   "default",
		Lat:    models.DefaultLat,
		Lng:    models.DefaultLng,
		Zoom:   models.DefaultZoom,
		Metric: metrics.RSRP.Key,
	}
}

// SaveView stores a named viewport for the user.
func (s *MapService) SaveView(ctx context.Context, userID int64, view models.MapView) (*models.MapView, error) {
	if s.views == nil {
		return nil, ErrViewsDisabled
	}
	view.Name = strings.TrimSpace(view.Name)
	if view.Name == "" || !(geo.LatLng{Lat: view.Lat, Lng: view.Lng}).Valid() {
		return nil, ErrInvalidView
	}
	if math.IsNaN(view.Zoom) || view.Zoom < 1 || view.Zoom > maxViewZoom {
		return nil, ErrInvalidView
	}
	view.UserID = userID
	view.Metric = metrics.Resolve(view.Metric).Key
	if err := s.views.Save(ctx, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Views lists the user's saved views, or the default view when none exist
// or saved views are disabled.
func (s *MapService) Views(ctx context.Context, userID int64) ([]models.MapView, error) {
	if s.views == nil {
		return []models.MapView{DefaultView()}, nil
	}
	views, err := s.views.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return []models.MapView{DefaultView()}, nil
	}
	return views, nil
}

// DeleteView removes one of the user's views.
func (s *MapService) DeleteView(ctx context.Context, userID, id int64) error {
	if s.views == nil {
		return ErrViewsDisabled
	}
	return s.views.Delete(ctx, userID, id)
}

// StartSession opens a device drive-test session upstream.
func (s *MapService) StartSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	resp, err := s.api.StartSession(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("device session started", zap.Int64("session_id", payloadSessionID(resp)))
	return resp, nil
}

// EndSession closes a device drive-test session upstream.
func (s *MapService) EndSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	id := payloadSessionID(payload)
	if id <= 0 {
		return nil, ErrInvalidSession
	}
	resp, err := s.api.EndSession(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("device session ended", zap.Int64("session_id", id))
	return resp, nil
}

// payloadSessionID reads session_id from a device payload or from the Data
// object of a backend envelope; zero when absent.
func payloadSessionID(raw json.RawMessage) int64 {
	var body struct {
		SessionID models.Number   `json:"session_id"`
		Data      json.RawMessage `json:"Data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0
	}
	if body.SessionID.Valid {
		return int64(body.SessionID.Value)
	}
	if len(body.Data) > 0 && body.Data[0] == '{' {
		return payloadSessionID(body.Data)
	}
	return 0
}

// LogNetwork forwards a device sample upstream and, once accepted, publishes
// it colourised by RSRP to live subscribers of its session.
func (s *MapService) LogNetwork(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	resp, err := s.api.LogNetwork(ctx, payload)
	if err != nil {
		return nil, err
	}
	if s.live == nil {
		return resp, nil
	}

	var sample models.NetworkLog
	if err := json.Unmarshal(payload, &sample); err != nil {
		s.logger.Debug("live sample not decodable", zap.Error(err))
		return resp, nil
	}
	res := Colorize([]models.NetworkLog{sample}, metrics.RSRP, s.tables(ctx))
	if len(res.Points) == 1 {
		s.live.Publish(sample.SessionID, res.Points[0])
	}
	return resp, nil
}

// Colorize turns log rows into coloured points with legend counts, summary
// statistics and a fitted viewport. Rows without usable coordinates are
// dropped; rows with an unusable value keep a nil value and the default
// colour.
func Colorize(logs []models.NetworkLog, metric metrics.Metric, thresholds models.Thresholds) *LogsResult {
	buckets := thresholds[metric.ThresholdKey]
	res := &LogsResult{
		Metric: metric,
		Points: make([]Point, 0, len(logs)),
		Legend: make([]LegendEntry, len(buckets)),
	}
	for i, b := range buckets {
		res.Legend[i] = LegendEntry{Label: b.Label(), Color: b.Color, Min: b.Min, Max: b.Max}
	}

	coords := make([]geo.LatLng, 0, len(logs))
	values := make([]float64, 0, len(logs))
	for _, l := range logs {
		if !l.Lat.Valid || !l.Lon.Valid {
			continue
		}
		pos := geo.LatLng{Lat: l.Lat.Value, Lng: l.Lon.Value}
		if !pos.Valid() {
			continue
		}
		coords = append(coords, pos)

		v := l.Field(metric.Field)
		idx := -1
		if v.Valid {
			values = append(values, v.Value)
			idx = metrics.Classify(v.Value, buckets)
		}
		if idx >= 0 {
			res.Legend[idx].Count++
		} else {
			res.Missing++
		}

		res.Points = append(res.Points, Point{
			Lat:        pos.Lat,
			Lng:        pos.Lng,
			Value:      v.Ptr(),
			Color:      metrics.ColorFor(metric.Key, v, thresholds),
			Bucket:     idx,
			Operator:   l.Operator,
			Technology: l.Technology,
			Band:       l.Band,
			Timestamp:  l.Timestamp,
			SessionID:  l.SessionID,
		})
	}

	if fit, ok := geo.FitMostly(coords); ok {
		res.Fit = &fit
	}
	res.Summary = summarize(len(res.Points), values)
	return res
}

func summarize(count int, values []float64) Summary {
	sum := Summary{Count: count, Valid: len(values)}
	if len(values) == 0 {
		return sum
	}
	lo, hi, mean := floats.Min(values), floats.Max(values), stat.Mean(values, nil)
	sum.Min, sum.Max, sum.Mean = &lo, &hi, &mean
	return sum
}
