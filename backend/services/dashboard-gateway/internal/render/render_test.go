package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaltracker/backend/services/dashboard-gateway/internal/geo"
	"signaltracker/backend/services/dashboard-gateway/internal/kpi"
)

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, ParseColor("#ff0000"))
	assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, ParseColor("#0f0"))
	assert.Equal(t, fallbackColor, ParseColor("green"))
	assert.Equal(t, fallbackColor, ParseColor(""))
}

func testViewport(t *testing.T) geo.Viewport {
	t.Helper()
	v, err := geo.NewViewport(geo.NewBounds(geo.LatLng{Lat: 10, Lng: 10}, geo.LatLng{Lat: 11, Lng: 11}), 100, 100, 0)
	require.NoError(t, err)
	return v
}

func TestOverlayDrawsVisibleDots(t *testing.T) {
	v := testViewport(t)
	center := geo.LatLng{Lat: 10.5, Lng: 10.5}
	dots := []Dot{
		{Pos: center, Color: "#ff0000"},
		{Pos: geo.LatLng{Lat: 10.2, Lng: 10.2}, Color: "not-a-colour"},
		{Pos: geo.LatLng{Lat: 40, Lng: 40}, Color: "#00ff00"},
	}

	img, stats := Overlay(dots, v, geo.DefaultPadding, 0)
	assert.Equal(t, OverlayStats{Total: 3, Drawn: 2, Culled: 1, Radius: geo.RadiusPx(v.Zoom)}, stats)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	x, y := v.Pixel(center)
	px := img.RGBAAt(int(math.Round(x)), int(math.Round(y)))
	assert.InDelta(t, 229, int(px.A), 2)
	assert.InDelta(t, 229, int(px.R), 2)
	assert.Zero(t, px.G)

	assert.Zero(t, img.RGBAAt(0, 0).A, "background stays transparent")
}

func TestOverlayRespectsMaxDraw(t *testing.T) {
	v := testViewport(t)
	dots := []Dot{
		{Pos: geo.LatLng{Lat: 10.5, Lng: 10.5}, Color: "#ff0000"},
		{Pos: geo.LatLng{Lat: 10.6, Lng: 10.6}, Color: "#ff0000"},
	}
	_, stats := Overlay(dots, v, 0, 1)
	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, 1, stats.Culled)
}

func TestEncodePNG(t *testing.T) {
	img, _ := Overlay(nil, testViewport(t), 0, 0)
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestLegendRender(t *testing.T) {
	r, err := NewLegendRenderer()
	require.NoError(t, err)

	img, err := r.Render(Legend{
		Title: "RSRP (dBm)",
		Rows: []LegendRow{
			{Label: "-140 to -110", Color: "#ff0000", Count: 1200},
			{Label: "-110 to -44", Color: "#00ff00", Count: 800},
		},
		Missing: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, legendWidth, img.Bounds().Dx())
	assert.Equal(t, 2*legendPadding+4*legendRow, img.Bounds().Dy())

	// first swatch
	top := legendPadding + legendRow + (legendRow-legendSwatch)/2
	px := img.RGBAAt(legendPadding+2, top+2)
	assert.Equal(t, uint8(0xff), px.R)
	assert.Zero(t, px.G)
}

func TestRowText(t *testing.T) {
	assert.Equal(t, "Good  1,200 (60.0%)", rowText("Good", 1200, 2000))
	assert.Equal(t, "Good  (0)", rowText("Good", 0, 0))
}

func TestDashboardCharts(t *testing.T) {
	d := &kpi.Dashboard{
		MonthlySampleCounts: []kpi.Point{{Name: "Jan", Value: 5}},
		OperatorWiseSamples: []kpi.Point{{Name: "JIO 4G", Value: 10}},
		BandDistribution:    []kpi.Point{{Name: "n78", Value: 3}},
		HandsetDistribution: []kpi.Point{{Name: "Samsung", Value: -88}},
	}
	var buf bytes.Buffer
	require.NoError(t, DashboardCharts(&buf, d, "last 30 days"))

	html := buf.String()
	assert.True(t, strings.Contains(html, "Monthly samples"))
	assert.True(t, strings.Contains(html, "Band distribution"))
	assert.True(t, strings.Contains(html, "JIO 4G"))
}
