package kpi

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrStringPayload is returned when the backend answers with a bare string.
var ErrStringPayload = errors.New("kpi: backend returned a string payload")

// Point is one category of a chart series.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Dashboard is the normalised KPI model behind the dashboard page.
type Dashboard struct {
	TotalUsers              int64   `json:"totalUsers"`
	TotalSessions           int64   `json:"totalSessions"`
	TotalOnlineSessions     int64   `json:"totalOnlineSessions"`
	TotalSamples            int64   `json:"totalSamples"`
	TotalOperators          int     `json:"totalOperators"`
	TotalTechnologies       int     `json:"totalTechnologies"`
	TotalBands              int     `json:"totalBands"`
	MonthlySampleCounts     []Point `json:"monthlySampleCounts"`
	OperatorWiseSamples     []Point `json:"operatorWiseSamples"`
	NetworkTypeDistribution []Point `json:"networkTypeDistribution"`
	AvgRSRPPerOperator      []Point `json:"avgRsrpPerOperator"`
	BandDistribution        []Point `json:"bandDistribution"`
	HandsetDistribution     []Point `json:"handsetDistribution"`
}

// Payload extracts the data object of a response: Data, then data, then the
// body itself. A null body gives an empty object.
func Payload(raw []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return payloadOf(body)
}

func payloadOf(body any) (map[string]any, error) {
	switch v := body.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		return nil, ErrStringPayload
	case map[string]any:
		for _, key := range []string{"Data", "data"} {
			if inner, ok := v[key]; ok && inner != nil {
				return payloadOf(inner)
			}
		}
		return v, nil
	default:
		return nil, errors.New("kpi: payload is not an object")
	}
}

// Merge combines the stats and graph payloads; graph keys win.
func Merge(stats, graphs map[string]any) map[string]any {
	out := make(map[string]any, len(stats)+len(graphs))
	for k, v := range stats {
		out[k] = v
	}
	for k, v := range graphs {
		out[k] = v
	}
	return out
}

// Normalize builds the dashboard model from the two backend payloads.
func Normalize(statsBody, graphsBody []byte) (*Dashboard, error) {
	stats, err := Payload(statsBody)
	if err != nil {
		return nil, err
	}
	graphs, err := Payload(graphsBody)
	if err != nil {
		return nil, err
	}
	return FromPayload(Merge(stats, graphs)), nil
}

// FromPayload normalises an already merged payload.
func FromPayload(p map[string]any) *Dashboard {
	operators := MergeWeighted(items(p["operatorWiseSamples"]), "name", "value", "count")
	networks := NormalizeSeries(items(p["networkTypeDistribution_horizontal_bar"]), []string{"network"}, []string{"count"})
	bands := NormalizeSeries(items(p["bandDistribution_pie"]), []string{"band"}, []string{"count"})

	samples, ok := p["totalSamples"]
	if !ok || samples == nil {
		samples = p["totalLogPoints"]
	}

	return &Dashboard{
		TotalUsers:              int64(toNumber(p["totalUsers"])),
		TotalSessions:           int64(toNumber(p["totalSessions"])),
		TotalOnlineSessions:     int64(toNumber(p["totalOnlineSessions"])),
		TotalSamples:            int64(toNumber(samples)),
		TotalOperators:          len(operators),
		TotalTechnologies:       len(networks),
		TotalBands:              len(bands),
		MonthlySampleCounts:     NormalizeSeries(items(p["monthlySampleCounts"]), []string{"month"}, []string{"count"}),
		OperatorWiseSamples:     operators,
		NetworkTypeDistribution: networks,
		AvgRSRPPerOperator:      MergeWeighted(items(p["avgRsrpSinrPerOperator_bar"]), "Operator", "AvgRSRP", "sampleCount"),
		BandDistribution:        bands,
		HandsetDistribution:     NormalizeSeries(items(p["handsetWiseAvg_bar"]), []string{"Make"}, []string{"Avg"}),
	}
}

// NormalizeSeries maps rows onto points, taking the first truthy name and
// value among the given keys ("name" and "value" are always tried last).
func NormalizeSeries(rows []map[string]any, nameKeys, valueKeys []string) []Point {
	out := make([]Point, 0, len(rows))
	for _, row := range rows {
		out = append(out, Point{
			Name:  toString(firstTruthy(row, append(nameKeys, "name"))),
			Value: toNumber(firstTruthy(row, append(valueKeys, "value"))),
		})
	}
	return out
}

// MergeWeighted canonicalises operator names and merges duplicates into a
// count-weighted average of valueKey. A missing or zero count weighs 1.
// Output keeps first-seen order.
func MergeWeighted(rows []map[string]any, nameKey, valueKey, countKey string) []Point {
	type acc struct {
		total float64
		count float64
	}
	sums := make(map[string]*acc)
	var order []string

	for _, row := range rows {
		name := CanonicalOperator(toString(row[nameKey]))
		a, ok := sums[name]
		if !ok {
			a = &acc{}
			sums[name] = a
			order = append(order, name)
		}
		count := toNumber(row[countKey])
		if count == 0 {
			count = 1
		}
		a.total += toNumber(row[valueKey]) * count
		a.count += count
	}

	out := make([]Point, 0, len(order))
	for _, name := range order {
		a := sums[name]
		value := 0.0
		if a.count > 0 {
			value = a.total / a.count
		}
		out = append(out, Point{Name: name, Value: value})
	}
	return out
}

func items(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstTruthy(row map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case bool:
		return t
	default:
		return true
	}
}

func toNumber(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
