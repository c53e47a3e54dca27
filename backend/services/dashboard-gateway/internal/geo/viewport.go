package geo

import (
	"errors"
	"math"
)

const (
	tileSize = 256.0

	// DefaultPadding is the culling margin around the visible area, in pixels.
	DefaultPadding = 80
	// DefaultMaxDraw caps how many points a single overlay scans.
	DefaultMaxDraw = 50000
	// MaxDrawLimit is the hard ceiling for caller supplied caps.
	MaxDrawLimit = 80000
	// MaxViewportSide caps the rendered width and height, in pixels.
	MaxViewportSide = 4096
	maxZoom         = 21
	maxLatitude     = 85.05112878
)

// ErrInvalidViewport is returned for empty, degenerate, zero-sized or oversized
// viewports.
var ErrInvalidViewport = errors.New("geo: invalid viewport")

// Project converts p to Web-Mercator world pixels at the given zoom.
func Project(p LatLng, zoom float64) (x, y float64) {
	scale := tileSize * math.Exp2(zoom)
	siny := math.Sin(p.Lat * math.Pi / 180)
	siny = math.Min(math.Max(siny, -0.9999), 0.9999)
	x = scale * (0.5 + p.Lng/360)
	y = scale * (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi))
	return x, y
}

// Unproject is the inverse of Project.
func Unproject(x, y, zoom float64) LatLng {
	scale := tileSize * math.Exp2(zoom)
	lng := (x/scale - 0.5) * 360
	n := math.Pi - 2*math.Pi*y/scale
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return LatLng{Lat: lat, Lng: lng}
}

// Viewport is the visible map rectangle rendered at Width x Height pixels.
type Viewport struct {
	Bounds Bounds
	Width  int
	Height int
	Zoom   float64
}

// NewViewport validates the rectangle. A zero zoom is replaced by the zoom
// that fits the bounds into the pixel size.
func NewViewport(b Bounds, width, height int, zoom float64) (Viewport, error) {
	if b.Degenerate() || width <= 0 || height <= 0 || width > MaxViewportSide || height > MaxViewportSide || b.South < -maxLatitude || b.North > maxLatitude {
		return Viewport{}, ErrInvalidViewport
	}
	if zoom <= 0 {
		zoom = float64(FitZoom(b, width, height))
	}
	return Viewport{Bounds: b, Width: width, Height: height, Zoom: zoom}, nil
}

// Pixel maps p to image coordinates with the north-west corner at (0,0).
func (v Viewport) Pixel(p LatLng) (float64, float64) {
	x0, y0 := Project(LatLng{Lat: v.Bounds.North, Lng: v.Bounds.West}, 0)
	x1, y1 := Project(LatLng{Lat: v.Bounds.South, Lng: v.Bounds.East}, 0)
	x, y := Project(p, 0)
	return (x - x0) / (x1 - x0) * float64(v.Width), (y - y0) / (y1 - y0) * float64(v.Height)
}

// Padded returns the bounds grown by pad pixels on every side.
func (v Viewport) Padded(pad int) Bounds {
	if pad <= 0 {
		return v.Bounds
	}
	x0, y0 := Project(LatLng{Lat: v.Bounds.North, Lng: v.Bounds.West}, 0)
	x1, y1 := Project(LatLng{Lat: v.Bounds.South, Lng: v.Bounds.East}, 0)
	px := (x1 - x0) / float64(v.Width) * float64(pad)
	py := (y1 - y0) / float64(v.Height) * float64(pad)

	nw := Unproject(x0-px, y0-py, 0)
	se := Unproject(x1+px, y1+py, 0)
	return NewBounds(
		LatLng{Lat: math.Max(se.Lat, -90), Lng: math.Max(nw.Lng, -180)},
		LatLng{Lat: math.Min(nw.Lat, 90), Lng: math.Min(se.Lng, 180)},
	)
}

// FitZoom returns the largest integer zoom at which b fits in width x height.
func FitZoom(b Bounds, width, height int) int {
	if b.Degenerate() || width <= 0 || height <= 0 {
		return singlePointZoom
	}
	x0, y0 := Project(LatLng{Lat: b.North, Lng: b.West}, 0)
	x1, y1 := Project(LatLng{Lat: b.South, Lng: b.East}, 0)
	zx := math.Log2(float64(width) / (x1 - x0))
	zy := math.Log2(float64(height) / (y1 - y0))
	z := int(math.Floor(math.Min(zx, zy)))
	return min(max(z, 0), maxZoom)
}

// RadiusPx is the dot radius for a zoom level: floor(zoom/2) within [3,7].
func RadiusPx(zoom float64) int {
	r := int(math.Floor(zoom / 2))
	return min(max(r, 3), 7)
}

// ClampMaxDraw normalises a caller supplied draw cap.
func ClampMaxDraw(n int) int {
	if n <= 0 {
		return DefaultMaxDraw
	}
	return min(n, MaxDrawLimit)
}

// Cull keeps the items whose position lies inside the viewport grown by pad
// pixels. Only the first maxDraw items are considered.
func Cull[T any](items []T, pos func(T) LatLng, v Viewport, pad, maxDraw int) []T {
	limit := min(len(items), ClampMaxDraw(maxDraw))
	area := v.Padded(pad)
	out := make([]T, 0, limit)
	for _, item := range items[:limit] {
		if area.Contains(pos(item)) {
			out = append(out, item)
		}
	}
	return out
}
