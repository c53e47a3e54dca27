package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/metrics"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// ThresholdKeys are the tables of the settings record, in display order.
var ThresholdKeys = []string{"rsrp", "rsrq", "sinr", "dl_thpt", "ul_thpt", "volte_call", "lte_bler", "mos"}

const thresholdCacheKey = "thresholds"

// ErrSaveRejected is returned when the backend refuses a settings save.
var ErrSaveRejected = errors.New("settings: save rejected")

// SettingsAPI is the backend settings surface.
type SettingsAPI interface {
	ThresholdSettings(ctx context.Context) (map[string]any, error)
	SaveThreshold(ctx context.Context, record map[string]any) (*clients.Envelope, error)
}

// SettingsService reads and writes threshold tables.
type SettingsService struct {
	api    SettingsAPI
	cache  Cache
	logger *zap.Logger
}

// NewSettingsService builds SettingsService; cache may be nil.
func NewSettingsService(api SettingsAPI, cache Cache, logger *zap.Logger) *SettingsService {
	return &SettingsService{api: api, cache: cacheOrNoop(cache), logger: logger}
}

// Thresholds returns the parsed threshold tables.
func (s *SettingsService) Thresholds(ctx context.Context) (*models.ThresholdSettings, error) {
	var cached models.ThresholdSettings
	if ok, err := s.cache.Get(ctx, thresholdCacheKey, &cached); err != nil {
		s.logger.Warn("threshold cache read failed", zap.Error(err))
	} else if ok {
		return &cached, nil
	}

	record, err := s.api.ThresholdSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings := ParseThresholdRecord(record)
	if err := s.cache.Set(ctx, thresholdCacheKey, settings); err != nil {
		s.logger.Warn("threshold cache write failed", zap.Error(err))
	}
	return settings, nil
}

// Save stores the tables and returns validation warnings. Warnings never
// block the save.
func (s *SettingsService) Save(ctx context.Context, settings models.ThresholdSettings) ([]metrics.Issue, error) {
	record, err := BuildThresholdRecord(settings)
	if err != nil {
		return nil, err
	}
	env, err := s.api.SaveThreshold(ctx, record)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = "backend did not confirm the save"
		}
		return nil, fmt.Errorf("%w: %s", ErrSaveRejected, msg)
	}
	if err := s.cache.Delete(ctx, thresholdCacheKey); err != nil {
		s.logger.Warn("threshold cache evict failed", zap.Error(err))
	}

	issues := metrics.Validate(settings.Tables)
	if len(issues) > 0 {
		s.logger.Info("thresholds saved with warnings", zap.Int("warnings", len(issues)))
	}
	return issues, nil
}

// ParseThresholdRecord reads the backend record: each table is stored as a
// JSON string under "<key>_json". Invalid JSON gives an empty table and a
// single object gives a one-row table. Rows without numeric bounds are
// dropped.
func ParseThresholdRecord(record map[string]any) *models.ThresholdSettings {
	settings := &models.ThresholdSettings{
		ID:     idOf(record["id"]),
		Tables: make(models.Thresholds, len(ThresholdKeys)),
	}
	for _, key := range ThresholdKeys {
		settings.Tables[key] = parseTable(record[key+"_json"])
	}
	return settings
}

func parseTable(v any) []models.Bucket {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case nil:
		return []models.Bucket{}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return []models.Bucket{}
		}
		raw = b
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return []models.Bucket{}
	}
	var rows []any
	switch p := parsed.(type) {
	case []any:
		rows = p
	case map[string]any:
		rows = []any{p}
	default:
		return []models.Bucket{}
	}

	out := make([]models.Bucket, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		minV, maxV := numberOf(m["min"]), numberOf(m["max"])
		if math.IsNaN(minV) || math.IsNaN(maxV) {
			continue
		}
		out = append(out, models.Bucket{
			Min:   minV,
			Max:   maxV,
			Color: stringOf(m["color"]),
			Range: stringOf(m["range"]),
			Level: stringOf(m["level"]),
		})
	}
	return out
}

// BuildThresholdRecord serialises tables back into the backend record.
func BuildThresholdRecord(settings models.ThresholdSettings) (map[string]any, error) {
	record := map[string]any{"id": settings.ID}
	for _, key := range ThresholdKeys {
		table := settings.Tables[key]
		if table == nil {
			table = []models.Bucket{}
		}
		data, err := json.Marshal(table)
		if err != nil {
			return nil, err
		}
		record[key+"_json"] = string(data)
	}
	return record, nil
}

// numberOf returns NaN for anything that is not a number or numeric string.
func numberOf(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func idOf(v any) int64 {
	f := numberOf(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
