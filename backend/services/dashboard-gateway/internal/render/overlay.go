package render

import (
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"signaltracker/backend/services/dashboard-gateway/internal/geo"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// Dot is one coloured point of the overlay.
type Dot struct {
	Pos   geo.LatLng
	Color string
}

// OverlayStats reports what an overlay render did.
type OverlayStats struct {
	Total  int
	Drawn  int
	Culled int
	Radius int
}

// Overlay rasterises the dots that fall inside the padded viewport onto a
// transparent canvas of the viewport size.
func Overlay(dots []Dot, v geo.Viewport, pad, maxDraw int) (*image.RGBA, OverlayStats) {
	radius := geo.RadiusPx(v.Zoom)
	visible := geo.Cull(dots, func(d Dot) geo.LatLng { return d.Pos }, v, pad, maxDraw)

	// dots near the edge are drawn on a margin and cropped afterwards
	margin := radius + 1
	canvas := image.NewRGBA(image.Rect(-margin, -margin, v.Width+margin, v.Height+margin))
	size := 2*radius + 1
	z := vector.NewRasterizer(size, size)
	palette := make(map[string]*image.Uniform)

	drawn := 0
	for _, d := range visible {
		x, y := v.Pixel(d.Pos)
		cx, cy := int(math.Round(x)), int(math.Round(y))
		rect := image.Rect(cx-radius, cy-radius, cx-radius+size, cy-radius+size)
		if !rect.In(canvas.Bounds()) {
			continue
		}

		src, ok := palette[d.Color]
		if !ok {
			src = image.NewUniform(withAlpha(ParseColor(d.Color), OverlayOpacity))
			palette[d.Color] = src
		}

		z.Reset(size, size)
		circle(z, float32(size)/2, float32(size)/2, float32(radius))
		z.Draw(canvas, rect, src, image.Point{})
		drawn++
	}

	out := canvas.SubImage(image.Rect(0, 0, v.Width, v.Height)).(*image.RGBA)
	return out, OverlayStats{
		Total:  len(dots),
		Drawn:  drawn,
		Culled: len(dots) - drawn,
		Radius: radius,
	}
}

func circle(z *vector.Rasterizer, cx, cy, r float32) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
