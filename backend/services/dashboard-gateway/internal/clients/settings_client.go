package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// SettingsClient calls the backend Setting controller.
type SettingsClient struct {
	base *BaseClient
}

// NewSettingsClient returns client.
func NewSettingsClient(base *BaseClient) *SettingsClient {
	return &SettingsClient{base: base}
}

// CheckSession asks the backend whether the replayed cookies are still valid.
func (c *SettingsClient) CheckSession(ctx context.Context) error {
	return c.base.GetJSON(ctx, "/api/Setting/CheckSession", nil, nil)
}

// ThresholdSettings returns the stored threshold record: an id plus one
// "<key>_json" string per metric.
func (c *SettingsClient) ThresholdSettings(ctx context.Context) (map[string]any, error) {
	resp, err := c.base.Call(ctx, http.MethodGet, "/api/Setting/GetThresholdSettings", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	inner := bytes.TrimSpace(UnwrapData(resp.Body))
	record := map[string]any{}
	switch {
	case len(inner) == 0 || bytes.Equal(inner, []byte("null")):
		return record, nil
	case inner[0] == '[':
		var rows []map[string]any
		if err := json.Unmarshal(inner, &rows); err != nil {
			return nil, err
		}
		if len(rows) > 0 && rows[0] != nil {
			record = rows[0]
		}
		return record, nil
	}
	if err := json.Unmarshal(inner, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// SaveThreshold stores the record; callers check Envelope.OK.
func (c *SettingsClient) SaveThreshold(ctx context.Context, record map[string]any) (*Envelope, error) {
	var env Envelope
	err := c.base.PostJSON(ctx, "/api/Setting/SaveThreshold", nil, record, &env)
	return &env, err
}
