package metrics

import (
	"fmt"
	"sort"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// Issue is a non-fatal problem found in a threshold table.
type Issue struct {
	Table   string `json:"table"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Validate reports inverted ranges, overlaps and gaps between buckets.
// Shared endpoints and integer ladders (-105..-96 then -95..-90) count as
// contiguous. Tables are checked in sorted key order.
func Validate(thresholds models.Thresholds) []Issue {
	keys := make([]string, 0, len(thresholds))
	for k := range thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var issues []Issue
	for _, key := range keys {
		issues = append(issues, validateTable(key, thresholds[key])...)
	}
	return issues
}

func validateTable(key string, buckets []models.Bucket) []Issue {
	var issues []Issue
	order := make([]int, 0, len(buckets))
	for i, b := range buckets {
		if b.Min > b.Max {
			issues = append(issues, Issue{Table: key, Row: i, Message: fmt.Sprintf("min %g is greater than max %g", b.Min, b.Max)})
			continue
		}
		order = append(order, i)
	}

	sort.SliceStable(order, func(a, b int) bool { return buckets[order[a]].Min < buckets[order[b]].Min })
	if len(order) == 0 {
		return issues
	}
	// reach is the row with the largest Max seen so far
	reach := order[0]
	for n := 1; n < len(order); n++ {
		top, cur := buckets[reach], buckets[order[n]]
		switch {
		case cur.Min < top.Max:
			issues = append(issues, Issue{Table: key, Row: order[n], Message: fmt.Sprintf("overlaps row %d", reach)})
		case cur.Min-top.Max > 1:
			issues = append(issues, Issue{Table: key, Row: order[n], Message: fmt.Sprintf("gap of %g after row %d", cur.Min-top.Max, reach)})
		}
		if cur.Max > top.Max {
			reach = order[n]
		}
	}
	return issues
}
