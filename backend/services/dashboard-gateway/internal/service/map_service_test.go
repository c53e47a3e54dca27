package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/geo"
	"signaltracker/backend/services/dashboard-gateway/internal/metrics"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
)

var testTables = models.Thresholds{
	"rsrp": {
		{Min: -140, Max: -101, Color: "#ff0000", Range: "Poor"},
		{Min: -100, Max: -44, Color: "#00ff00", Range: "Good"},
	},
}

type staticThresholds struct{}

func (staticThresholds) Thresholds(context.Context) (*models.ThresholdSettings, error) {
	return &models.ThresholdSettings{ID: 1, Tables: testTables}, nil
}

type fakeMapAPI struct {
	logs     []models.NetworkLog
	polygons []models.ProjectPolygon
	filter   models.LogFilter
	logged   json.RawMessage
	ended    json.RawMessage
}

func (f *fakeMapAPI) LogsByDateRange(_ context.Context, filter models.LogFilter) ([]models.NetworkLog, error) {
	f.filter = filter
	return f.logs, nil
}

func (f *fakeMapAPI) NetworkLog(context.Context, int64, int) ([]models.NetworkLog, error) {
	return f.logs, nil
}

func (f *fakeMapAPI) PredictionLog(context.Context, url.Values) ([]models.NetworkLog, error) {
	return f.logs, nil
}

func (f *fakeMapAPI) Projects(context.Context) ([]models.Project, error) { return nil, nil }

func (f *fakeMapAPI) ProjectPolygons(context.Context, int64) ([]models.ProjectPolygon, error) {
	return f.polygons, nil
}

func (f *fakeMapAPI) Providers(context.Context) ([]string, error)    { return []string{"Airtel"}, nil }
func (f *fakeMapAPI) Technologies(context.Context) ([]string, error) { return nil, nil }
func (f *fakeMapAPI) Bands(context.Context) ([]string, error)        { return nil, nil }

func (f *fakeMapAPI) StartSession(context.Context, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"Status":1,"Data":{"session_id":42}}`), nil
}

func (f *fakeMapAPI) EndSession(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	f.ended = payload
	return json.RawMessage(`{"Status":1}`), nil
}

func (f *fakeMapAPI) LogNetwork(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	f.logged = payload
	return json.RawMessage(`{"Status":1}`), nil
}

type published struct {
	sessionID int64
	v         any
}

type fakePublisher struct{ got []published }

func (p *fakePublisher) Publish(sessionID int64, v any) {
	p.got = append(p.got, published{sessionID, v})
}

type fakeViews struct {
	saved []models.MapView
}

func (f *fakeViews) Save(_ context.Context, view *models.MapView) error {
	view.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *view)
	return nil
}

func (f *fakeViews) ListByUser(_ context.Context, userID int64) ([]models.MapView, error) {
	var out []models.MapView
	for _, v := range f.saved {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeViews) Delete(context.Context, int64, int64) error { return nil }

func logAt(lat, lon float64, rsrp models.Number) models.NetworkLog {
	return models.NetworkLog{SessionID: 5, Lat: models.NewNumber(lat), Lon: models.NewNumber(lon), RSRP: rsrp, Operator: "Airtel"}
}

func sampleLogs() []models.NetworkLog {
	return []models.NetworkLog{
		logAt(28.61, 77.20, models.NewNumber(-120)),
		logAt(28.62, 77.21, models.NewNumber(-80)),
		logAt(28.63, 77.22, models.NewNumber(-90)),
		logAt(28.64, 77.23, models.Number{}),
		{Lat: models.Number{}, Lon: models.NewNumber(77)},
	}
}

func newMapService(t *testing.T, api *fakeMapAPI, views ViewStore, live Publisher) *MapService {
	t.Helper()
	legends, err := render.NewLegendRenderer()
	require.NoError(t, err)
	return NewMapService(api, staticThresholds{}, views, live, legends, zap.NewNop())
}

func TestColorize(t *testing.T) {
	res := Colorize(sampleLogs(), metrics.RSRP, testTables)

	require.Len(t, res.Points, 4)
	assert.Equal(t, "#ff0000", res.Points[0].Color)
	assert.Equal(t, "#00ff00", res.Points[1].Color)
	assert.Nil(t, res.Points[3].Value)
	assert.Equal(t, metrics.DefaultColor, res.Points[3].Color)
	assert.Equal(t, -1, res.Points[3].Bucket)

	assert.Equal(t, 1, res.Legend[0].Count)
	assert.Equal(t, 2, res.Legend[1].Count)
	assert.Equal(t, 1, res.Missing)

	assert.Equal(t, 4, res.Summary.Count)
	assert.Equal(t, 3, res.Summary.Valid)
	require.NotNil(t, res.Summary.Mean)
	assert.InDelta(t, -96.67, *res.Summary.Mean, 0.01)
	assert.Equal(t, -120.0, *res.Summary.Min)

	require.NotNil(t, res.Fit)
	assert.Equal(t, geo.FitPercentile, res.Fit.Strategy)
}

func TestColorizeEmpty(t *testing.T) {
	res := Colorize(nil, metrics.SINR, testTables)
	assert.Empty(t, res.Points)
	assert.Nil(t, res.Fit)
	assert.Nil(t, res.Summary.Mean)
	assert.Empty(t, res.Legend)
}

func TestLogsAndHeatmap(t *testing.T) {
	api := &fakeMapAPI{logs: sampleLogs()}
	svc := newMapService(t, api, nil, nil)
	filter := models.LogFilter{StartDate: "2024-01-01", Provider: "ALL"}

	res, err := svc.Logs(context.Background(), filter, "RSRP")
	require.NoError(t, err)
	assert.Equal(t, filter, api.filter)
	assert.Equal(t, "rsrp", res.Metric.Key)

	heat, err := svc.Heatmap(context.Background(), filter, "rsrp")
	require.NoError(t, err)
	require.Len(t, heat, 3)
	assert.Equal(t, 0.5, heat[0].Weight)
	assert.Equal(t, 1.0, heat[1].Weight)
}

type tableSource models.Thresholds

func (t tableSource) Thresholds(context.Context) (*models.ThresholdSettings, error) {
	return &models.ThresholdSettings{ID: 1, Tables: models.Thresholds(t)}, nil
}

func TestHeatmapWeighsGoodCoverageHigher(t *testing.T) {
	bestFirst := tableSource{
		"rsrp": {
			{Min: -100, Max: -44, Color: "#00ff00", Range: "Good"},
			{Min: -140, Max: -101, Color: "#ff0000", Range: "Poor"},
		},
	}
	legends, err := render.NewLegendRenderer()
	require.NoError(t, err)
	api := &fakeMapAPI{logs: []models.NetworkLog{
		logAt(28.61, 77.20, models.NewNumber(-120)),
		logAt(28.62, 77.21, models.NewNumber(-70)),
	}}
	svc := NewMapService(api, bestFirst, nil, nil, legends, zap.NewNop())

	heat, err := svc.Heatmap(context.Background(), models.LogFilter{}, "rsrp")
	require.NoError(t, err)
	require.Len(t, heat, 2)
	poor, good := heat[0], heat[1]
	assert.Equal(t, 0.5, poor.Weight)
	assert.Equal(t, 1.0, good.Weight)
	assert.Greater(t, good.Weight, poor.Weight)
}

func TestSessionLogsRejectsBadID(t *testing.T) {
	svc := newMapService(t, &fakeMapAPI{}, nil, nil)
	_, err := svc.SessionLogs(context.Background(), 0, "rsrp")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestOverlayAndLegend(t *testing.T) {
	svc := newMapService(t, &fakeMapAPI{logs: sampleLogs()}, nil, nil)
	ctx := context.Background()
	req := OverlayRequest{
		Bounds: geo.NewBounds(geo.LatLng{Lat: 28.5, Lng: 77.1}, geo.LatLng{Lat: 28.7, Lng: 77.3}),
		Width:  256,
		Height: 256,
		Zoom:   12,
	}

	img, stats, err := svc.Overlay(ctx, models.LogFilter{}, "rsrp", req)
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.Drawn)

	_, _, err = svc.Overlay(ctx, models.LogFilter{}, "rsrp", OverlayRequest{Width: 10, Height: 10})
	assert.ErrorIs(t, err, geo.ErrInvalidViewport)

	legend, err := svc.LegendImage(ctx, models.LogFilter{}, "rsrp")
	require.NoError(t, err)
	assert.Greater(t, legend.Bounds().Dy(), 0)
}

func TestProjectPolygonsSkipsMalformed(t *testing.T) {
	api := &fakeMapAPI{polygons: []models.ProjectPolygon{
		{ID: 1, Name: "A", WKT: "POLYGON((77 28, 77.1 28, 77.1 28.1, 77 28))"},
		{ID: 2, Name: "B", WKT: "POLYGON((77 28"},
	}}
	svc := newMapService(t, api, nil, nil)

	shapes, err := svc.ProjectPolygons(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, "A", shapes[0].Name)
	assert.Equal(t, 28.0, shapes[0].Polygons[0][0][0].Lat)
}

func TestSavedViews(t *testing.T) {
	svc := newMapService(t, &fakeMapAPI{}, nil, nil)
	ctx := context.Background()

	views, err := svc.Views(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.MapView{DefaultView()}, views)
	_, err = svc.SaveView(ctx, 1, models.MapView{Name: "x", Zoom: 10})
	assert.ErrorIs(t, err, ErrViewsDisabled)

	store := &fakeViews{}
	svc = newMapService(t, &fakeMapAPI{}, store, nil)
	_, err = svc.SaveView(ctx, 1, models.MapView{Name: " ", Lat: 28, Lng: 77, Zoom: 10})
	assert.ErrorIs(t, err, ErrInvalidView)
	_, err = svc.SaveView(ctx, 1, models.MapView{Name: "far", Lat: 95, Lng: 77, Zoom: 10})
	assert.ErrorIs(t, err, ErrInvalidView)
	_, err = svc.SaveView(ctx, 1, models.MapView{Name: "deep", Lat: 28, Lng: 77, Zoom: 30})
	assert.ErrorIs(t, err, ErrInvalidView)

	saved, err := svc.SaveView(ctx, 1, models.MapView{Name: " Delhi ", Lat: 28.6, Lng: 77.2, Zoom: 13, Metric: "dl_tpt"})
	require.NoError(t, err)
	assert.Equal(t, "Delhi", saved.Name)
	assert.Equal(t, "dl-throughput", saved.Metric)
	assert.Equal(t, int64(1), saved.UserID)

	views, err = svc.Views(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Delhi", views[0].Name)
}

func TestLogNetworkPublishesLivePoint(t *testing.T) {
	api := &fakeMapAPI{}
	live := &fakePublisher{}
	svc := newMapService(t, api, nil, live)
	payload := json.RawMessage(`{"session_id":12,"lat":"28.6","lon":77.2,"rsrp":-85,"m_alpha_long":"Airtel"}`)

	resp, err := svc.LogNetwork(context.Background(), payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Status":1}`, string(resp))
	assert.Equal(t, payload, api.logged)

	require.Len(t, live.got, 1)
	assert.Equal(t, int64(12), live.got[0].sessionID)
	point := live.got[0].v.(Point)
	assert.Equal(t, "#00ff00", point.Color)
	assert.Equal(t, 28.6, point.Lat)

	_, err = svc.LogNetwork(context.Background(), json.RawMessage(`{"session_id":12}`))
	require.NoError(t, err)
	assert.Len(t, live.got, 1)
}

func TestDeviceSessions(t *testing.T) {
	api := &fakeMapAPI{}
	svc := newMapService(t, api, nil, nil)
	ctx := context.Background()

	resp, err := svc.StartSession(ctx, json.RawMessage(`{"imei":"35"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), payloadSessionID(resp))

	_, err = svc.EndSession(ctx, json.RawMessage(`{"imei":"35"}`))
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Nil(t, api.ended)

	_, err = svc.EndSession(ctx, json.RawMessage(`{"session_id":"42"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"42"}`, string(api.ended))
}
