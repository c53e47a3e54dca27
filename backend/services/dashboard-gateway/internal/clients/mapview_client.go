package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// MapViewClient calls the backend MapView controller.
type MapViewClient struct {
	base *BaseClient
}

// NewMapViewClient returns client.
func NewMapViewClient(base *BaseClient) *MapViewClient {
	return &MapViewClient{base: base}
}

func (c *MapViewClient) logs(ctx context.Context, path string, query url.Values) ([]models.NetworkLog, error) {
	resp, err := c.base.Call(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.NetworkLog](resp.Body)
}

// LogsByDateRange returns logs matching the filter.
func (c *MapViewClient) LogsByDateRange(ctx context.Context, filter models.LogFilter) ([]models.NetworkLog, error) {
	query := url.Values{}
	for k, v := range filter.Params() {
		query.Set(k, v)
	}
	return c.logs(ctx, "/api/MapView/GetLogsByDateRange", query)
}

// NetworkLog returns one session's log, capped at limit rows when positive.
func (c *MapViewClient) NetworkLog(ctx context.Context, sessionID int64, limit int) ([]models.NetworkLog, error) {
	query := url.Values{"session_id": {strconv.FormatInt(sessionID, 10)}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return c.logs(ctx, "/api/MapView/GetNetworkLog", query)
}

// PredictionLog returns prediction points for the given parameters.
func (c *MapViewClient) PredictionLog(ctx context.Context, params url.Values) ([]models.NetworkLog, error) {
	return c.logs(ctx, "/api/MapView/GetPredictionLog", params)
}

// Projects lists planning projects.
func (c *MapViewClient) Projects(ctx context.Context) ([]models.Project, error) {
	resp, err := c.base.Call(ctx, http.MethodGet, "/api/MapView/GetProjects", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Project](resp.Body)
}

// ProjectPolygons lists a project's polygons.
func (c *MapViewClient) ProjectPolygons(ctx context.Context, projectID int64) ([]models.ProjectPolygon, error) {
	query := url.Values{"projectId": {strconv.FormatInt(projectID, 10)}}
	resp, err := c.base.Call(ctx, http.MethodGet, "/api/MapView/GetProjectPolygons", query, nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.ProjectPolygon](resp.Body)
}

func (c *MapViewClient) strings(ctx context.Context, path string) ([]string, error) {
	resp, err := c.base.Call(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[json.RawMessage](resp.Body)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if name := lookupName(item); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// lookupName accepts plain strings or objects carrying a name-like field.
func lookupName(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(item, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"name", "Name", "provider", "technology", "band", "value"} {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Providers lists operator names present in the logs.
func (c *MapViewClient) Providers(ctx context.Context) ([]string, error) {
	return c.strings(ctx, "/api/MapView/GetProviders")
}

// Technologies lists network technologies present in the logs.
func (c *MapViewClient) Technologies(ctx context.Context) ([]string, error) {
	return c.strings(ctx, "/api/MapView/GetTechnologies")
}

// Bands lists bands present in the logs.
func (c *MapViewClient) Bands(ctx context.Context) ([]string, error) {
	return c.strings(ctx, "/api/MapView/GetBands")
}

func (c *MapViewClient) post(ctx context.Context, path string, payload json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.base.PostJSON(ctx, path, nil, payload, &out)
	return out, err
}

// StartSession opens a device session.
func (c *MapViewClient) StartSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/api/MapView/start_session", payload)
}

// EndSession closes a device session.
func (c *MapViewClient) EndSession(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/api/MapView/end_session", payload)
}

// LogNetwork stores one device measurement.
func (c *MapViewClient) LogNetwork(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/api/MapView/log_networkAsync", payload)
}

// Signup registers a field user.
func (c *MapViewClient) Signup(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/api/MapView/user_signup", payload)
}
