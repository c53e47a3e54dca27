package kpi

import (
	"encoding/json"
	"sort"
	"strings"
)

// RankingEntry is one operator in a coverage or quality ranking.
type RankingEntry struct {
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Samples  int64   `json:"samples"`
}

var (
	rankingNameKeys  = []string{"operator", "Operator", "operator_name", "name"}
	rankingValueKeys = []string{"value", "percentage", "coverage", "quality", "avg", "Avg"}
	rankingCountKeys = []string{"samples", "sampleCount", "count", "total"}
)

// Ranking normalises a ranking payload: operators are canonicalised,
// duplicates merged by sample-weighted average, and entries sorted by value
// (highest first, ties by name).
func Ranking(body []byte) ([]RankingEntry, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []RankingEntry{}, nil
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	for {
		m, ok := raw.(map[string]any)
		if !ok {
			break
		}
		inner, found := m["Data"]
		if !found || inner == nil {
			inner = m["data"]
		}
		if inner == nil {
			for _, key := range []string{"ranking", "Ranking", "items", "rows"} {
				if rows := items(m[key]); rows != nil {
					return rankRows(rows), nil
				}
			}
			return []RankingEntry{}, nil
		}
		raw = inner
	}
	if _, ok := raw.(string); ok {
		return nil, ErrStringPayload
	}
	return rankRows(items(raw)), nil
}

func rankRows(rows []map[string]any) []RankingEntry {
	type acc struct {
		weighted float64
		samples  float64
		weight   float64
	}
	sums := make(map[string]*acc)
	var order []string
	for _, row := range rows {
		name := CanonicalOperator(toString(firstTruthy(row, rankingNameKeys)))
		a, ok := sums[name]
		if !ok {
			a = &acc{}
			sums[name] = a
			order = append(order, name)
		}
		samples := toNumber(firstTruthy(row, rankingCountKeys))
		weight := samples
		if weight == 0 {
			weight = 1
		}
		a.weighted += toNumber(firstTruthy(row, rankingValueKeys)) * weight
		a.weight += weight
		a.samples += samples
	}

	out := make([]RankingEntry, 0, len(order))
	for _, name := range order {
		a := sums[name]
		out = append(out, RankingEntry{Operator: name, Value: a.weighted / a.weight, Samples: int64(a.samples)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Operator < out[j].Operator
	})
	return out
}
