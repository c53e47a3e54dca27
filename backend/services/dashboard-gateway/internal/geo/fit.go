package geo

import (
	"math"
	"sort"
)

// Fit strategies, from most to least specific.
const (
	FitDense      = "dense"
	FitPercentile = "percentile"
	FitAll        = "all"
	FitPoint      = "point"
)

const (
	// DefaultCellMeters is the dense-grid cell edge.
	DefaultCellMeters = 800.0
	metersPerDegree   = 111320.0
	minDensePoints    = 10
	minCellPoints     = 5
	minCellShare      = 0.05
	centralShare      = 0.8
	singlePointZoom   = 16
)

// FitResult is the viewport a map should show for a point set.
type FitResult struct {
	Strategy string  `json:"strategy"`
	Bounds   *Bounds `json:"bounds,omitempty"`
	Center   LatLng  `json:"center"`
	Zoom     int     `json:"zoom,omitempty"`
}

// FitMostly picks a viewport where most points are: the densest ~800 m cell,
// else the 10th-90th percentile box, else the box of all points. It returns
// false when there is no valid point.
func FitMostly(points []LatLng) (FitResult, bool) {
	valid := make([]LatLng, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return FitResult{}, false
	}

	if b, ok := DenseCellBounds(valid, DefaultCellMeters); ok {
		return result(FitDense, b), true
	}
	if b, ok := PercentileBounds(valid, centralShare); ok {
		return result(FitPercentile, b), true
	}

	all := BoundsOf(valid)
	if all.South == all.North && all.West == all.East {
		return FitResult{Strategy: FitPoint, Center: all.Center(), Zoom: singlePointZoom}, true
	}
	return result(FitAll, all), true
}

func result(strategy string, b Bounds) FitResult {
	return FitResult{Strategy: strategy, Bounds: &b, Center: b.Center()}
}

type cellKey struct{ lat, lng int }

// DenseCellBounds buckets points into a grid of cellMeters cells anchored at
// the south-west corner and returns the bounds of the densest cell's points.
// It gives up below ten points, or when the densest cell holds fewer than
// max(5, 5% of points).
func DenseCellBounds(points []LatLng, cellMeters float64) (Bounds, bool) {
	n := len(points)
	if n < minDensePoints || cellMeters <= 0 {
		return Bounds{}, false
	}

	minLat, minLng, sumLat := math.Inf(1), math.Inf(1), 0.0
	for _, p := range points {
		minLat = math.Min(minLat, p.Lat)
		minLng = math.Min(minLng, p.Lng)
		sumLat += p.Lat
	}
	meanLat := sumLat / float64(n)

	cellLat := cellMeters / metersPerDegree
	lngScale := metersPerDegree * math.Cos(meanLat*math.Pi/180)
	if lngScale == 0 {
		lngScale = 1
	}
	cellLng := cellMeters / lngScale
	if !finite(cellLat) || !finite(cellLng) || cellLng <= 0 {
		return Bounds{}, false
	}

	cells := make(map[cellKey][]LatLng)
	var order []cellKey
	for _, p := range points {
		k := cellKey{
			lat: int(math.Floor((p.Lat - minLat) / cellLat)),
			lng: int(math.Floor((p.Lng - minLng) / cellLng)),
		}
		if _, ok := cells[k]; !ok {
			order = append(order, k)
		}
		cells[k] = append(cells[k], p)
	}

	var densest []LatLng
	for _, k := range order {
		if len(cells[k]) > len(densest) {
			densest = cells[k]
		}
	}

	need := int(math.Max(minCellPoints, math.Ceil(float64(n)*minCellShare)))
	if len(densest) < need {
		return Bounds{}, false
	}
	b := BoundsOf(densest)
	return b, !b.Empty()
}

// PercentileBounds returns the box spanning the central share of latitudes
// and longitudes (0.8 keeps the 10th to 90th percentiles). The lower index
// rounds down and the upper index rounds up, so the box never shrinks below
// the requested share. Degenerate boxes are rejected.
func PercentileBounds(points []LatLng, share float64) (Bounds, bool) {
	n := len(points)
	if n < 2 || share <= 0 || share > 1 {
		return Bounds{}, false
	}

	lats := make([]float64, n)
	lngs := make([]float64, n)
	for i, p := range points {
		lats[i], lngs[i] = p.Lat, p.Lng
	}
	sort.Float64s(lats)
	sort.Float64s(lngs)

	q := (1 - share) / 2
	lo := max(0, int(math.Floor(q*float64(n-1))))
	hi := min(n-1, int(math.Ceil((1-q)*float64(n-1))))
	b := NewBounds(
		LatLng{Lat: lats[lo], Lng: lngs[lo]},
		LatLng{Lat: lats[hi], Lng: lngs[hi]},
	)
	if b.Degenerate() {
		return Bounds{}, false
	}
	return b, true
}
