package metrics

import (
	"math"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// DefaultColor is used for missing values and values outside every bucket.
const DefaultColor = "#808080"

// Classify returns the index of the first bucket whose closed [min,max]
// range contains value, or -1.
func Classify(value float64, buckets []models.Bucket) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return -1
	}
	for i, b := range buckets {
		if value >= b.Min && value <= b.Max {
			return i
		}
	}
	return -1
}

// ColorFor resolves the colour of value for the named metric.
func ColorFor(metric string, value models.Number, thresholds models.Thresholds) string {
	if !value.Valid {
		return DefaultColor
	}
	buckets := thresholds[Resolve(metric).ThresholdKey]
	idx := Classify(value.Value, buckets)
	if idx < 0 || buckets[idx].Color == "" {
		return DefaultColor
	}
	return buckets[idx].Color
}

// Weight maps the bucket at idx to (0,1] by its rank along the value axis,
// for heatmap intensity: the bucket covering the best values weighs 1
// whatever order the table lists its rows in. Unmatched values weigh 0.
func Weight(idx int, buckets []models.Bucket, lowerIsBetter bool) float64 {
	if idx < 0 || idx >= len(buckets) {
		return 0
	}
	target := buckets[idx]
	rank := 1
	for i, b := range buckets {
		if b.Min < target.Min || (b.Min == target.Min && i < idx) {
			rank++
		}
	}
	size := len(buckets)
	if lowerIsBetter {
		rank = size - rank + 1
	}
	return float64(rank) / float64(size)
}
