// Package geo holds the map geometry used by the dashboard: bounding boxes,
// viewport fitting, Web-Mercator projection and WKT polygons.
package geo

import "math"

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite and in range.
func (p LatLng) Valid() bool {
	return finite(p.Lat) && finite(p.Lng) && p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds is a lat/lng rectangle. The zero value is empty.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	set   bool
}

// NewBounds returns bounds spanning the two corners.
func NewBounds(sw, ne LatLng) Bounds {
	var b Bounds
	b.Extend(sw)
	b.Extend(ne)
	return b
}

// Extend grows b to contain p. Invalid points are ignored.
func (b *Bounds) Extend(p LatLng) {
	if !p.Valid() {
		return
	}
	if !b.set {
		b.South, b.North, b.West, b.East = p.Lat, p.Lat, p.Lng, p.Lng
		b.set = true
		return
	}
	b.South = math.Min(b.South, p.Lat)
	b.North = math.Max(b.North, p.Lat)
	b.West = math.Min(b.West, p.Lng)
	b.East = math.Max(b.East, p.Lng)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return !b.set }

// Degenerate reports whether b has zero width or height.
func (b Bounds) Degenerate() bool {
	return !b.set || b.South == b.North || b.West == b.East
}

// Contains reports whether p lies inside b (edges included).
func (b Bounds) Contains(p LatLng) bool {
	return b.set && p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Center returns the midpoint of b.
func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// BoundsOf returns the bounding box of all valid points.
func BoundsOf(points []LatLng) Bounds {
	var b Bounds
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
