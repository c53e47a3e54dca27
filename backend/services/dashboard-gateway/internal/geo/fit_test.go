package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cluster returns n points spread over roughly 100 m around center.
func cluster(center LatLng, n int) []LatLng {
	out := make([]LatLng, n)
	for i := range out {
		out[i] = LatLng{
			Lat: center.Lat + float64(i%10)*0.0001,
			Lng: center.Lng + float64(i/10)*0.0001,
		}
	}
	return out
}

func TestFitMostlyEmpty(t *testing.T) {
	_, ok := FitMostly(nil)
	assert.False(t, ok)

	_, ok = FitMostly([]LatLng{{Lat: math.NaN(), Lng: 1}, {Lat: 91, Lng: 0}})
	assert.False(t, ok)
}

func TestFitMostlySinglePoint(t *testing.T) {
	p := LatLng{Lat: 28.6139, Lng: 77.2090}
	res, ok := FitMostly([]LatLng{p})
	require.True(t, ok)
	assert.Equal(t, FitPoint, res.Strategy)
	assert.Equal(t, p, res.Center)
	assert.Equal(t, 16, res.Zoom)
	assert.Nil(t, res.Bounds)
}

func TestFitMostlyFewPointsSkipsDenseGrid(t *testing.T) {
	pts := []LatLng{
		{Lat: 28.60, Lng: 77.20},
		{Lat: 28.61, Lng: 77.21},
		{Lat: 28.62, Lng: 77.22},
		{Lat: 28.63, Lng: 77.23},
	}
	res, ok := FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitPercentile, res.Strategy)
	require.NotNil(t, res.Bounds)
	assert.True(t, res.Bounds.Contains(LatLng{Lat: 28.61, Lng: 77.21}))
}

func TestFitMostlySameCoordinatesFallsBackToPoint(t *testing.T) {
	pts := []LatLng{{Lat: 10, Lng: 20}, {Lat: 10, Lng: 20}, {Lat: 10, Lng: 20}}
	res, ok := FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitPoint, res.Strategy)
}

func TestFitMostlyCollinearPointsUseFullBox(t *testing.T) {
	// a drive along one parallel: zero height, about 40 km wide
	var pts []LatLng
	for i := 0; i < 5; i++ {
		pts = append(pts, LatLng{Lat: 28.6, Lng: 77.0 + float64(i)*0.1})
	}
	res, ok := FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitAll, res.Strategy)
	require.NotNil(t, res.Bounds)
	assert.Equal(t, 77.0, res.Bounds.West)
	assert.InDelta(t, 77.4, res.Bounds.East, 1e-9)
	for _, p := range pts {
		assert.True(t, res.Bounds.Contains(p))
	}

	// and along one meridian
	for i := range pts {
		pts[i] = LatLng{Lat: 28.0 + float64(i)*0.1, Lng: 77.2}
	}
	res, ok = FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitAll, res.Strategy)
	require.NotNil(t, res.Bounds)
	assert.Equal(t, 28.0, res.Bounds.South)
}

func TestPercentileBoundsIndexRule(t *testing.T) {
	// ten points: lower index floor(0.1*9)=0, upper index ceil(0.9*9)=9
	var pts []LatLng
	for i := 0; i < 10; i++ {
		pts = append(pts, LatLng{Lat: float64(i), Lng: 100 + float64(i)})
	}
	b, ok := PercentileBounds(pts, 0.8)
	require.True(t, ok)
	assert.Equal(t, 0.0, b.South)
	assert.Equal(t, 9.0, b.North)
	assert.Equal(t, 100.0, b.West)
	assert.Equal(t, 109.0, b.East)

	// twenty points: indices 1 and 18
	pts = pts[:0]
	for i := 0; i < 20; i++ {
		pts = append(pts, LatLng{Lat: float64(i), Lng: float64(i)})
	}
	b, ok = PercentileBounds(pts, 0.8)
	require.True(t, ok)
	assert.Equal(t, 1.0, b.South)
	assert.Equal(t, 18.0, b.North)
}

func TestFitMostlyPrefersDenseCell(t *testing.T) {
	dense := cluster(LatLng{Lat: 28.6139, Lng: 77.2090}, 40)
	outliers := []LatLng{
		{Lat: 19.07, Lng: 72.87},
		{Lat: 12.97, Lng: 77.59},
		{Lat: 22.57, Lng: 88.36},
	}
	res, ok := FitMostly(append(dense, outliers...))
	require.True(t, ok)
	assert.Equal(t, FitDense, res.Strategy)
	require.NotNil(t, res.Bounds)
	for _, p := range dense {
		assert.True(t, res.Bounds.Contains(p))
	}
	for _, p := range outliers {
		assert.False(t, res.Bounds.Contains(p))
	}
}

func TestDenseCellRejectsSparseGrid(t *testing.T) {
	// every point lands in its own cell
	var pts []LatLng
	for i := 0; i < 30; i++ {
		pts = append(pts, LatLng{Lat: 20 + float64(i)*0.1, Lng: 70 + float64(i)*0.1})
	}
	_, ok := DenseCellBounds(pts, DefaultCellMeters)
	assert.False(t, ok)

	res, ok := FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitPercentile, res.Strategy)
	assert.Greater(t, res.Bounds.South, 20.0)
	assert.Less(t, res.Bounds.North, 22.9)
}

func TestPercentileBoundsDegenerateFallsBackToAll(t *testing.T) {
	// lats identical for the central 80%, so only the full box has height
	pts := make([]LatLng, 0, 20)
	for i := 0; i < 20; i++ {
		pts = append(pts, LatLng{Lat: 10, Lng: 20 + float64(i)*0.5})
	}
	pts[0].Lat = 9
	_, ok := PercentileBounds(pts, 0.8)
	assert.False(t, ok)

	res, ok := FitMostly(pts)
	require.True(t, ok)
	assert.Equal(t, FitAll, res.Strategy)
	assert.Equal(t, 9.0, res.Bounds.South)
}

func TestPercentileBoundsRejectsTinyInput(t *testing.T) {
	_, ok := PercentileBounds(nil, 0.8)
	assert.False(t, ok)
	_, ok = PercentileBounds([]LatLng{{Lat: 1, Lng: 1}}, 0.8)
	assert.False(t, ok)
}
