package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	legendDPI      = 72
	legendFontSize = 13
	legendWidth    = 280
	legendPadding  = 10
	legendRow      = 22
	legendSwatch   = 14
)

var (
	legendBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe6}
	legendText       = image.NewUniform(color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff})
)

// LegendRow is one bucket line of a legend.
type LegendRow struct {
	Label string
	Color string
	Count int
}

// Legend describes a metric legend image.
type Legend struct {
	Title string
	Rows  []LegendRow
	// Missing counts points without a value or outside every bucket.
	Missing int
}

// LegendRenderer draws legends with the Go regular font.
type LegendRenderer struct {
	font *truetype.Font
}

// NewLegendRenderer parses the embedded font once.
func NewLegendRenderer() (*LegendRenderer, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return &LegendRenderer{font: f}, nil
}

// Render draws the legend. Each call uses its own freetype context so the
// renderer is safe for concurrent use.
func (r *LegendRenderer) Render(l Legend) (*image.RGBA, error) {
	rows := len(l.Rows) + 1
	if l.Missing > 0 {
		rows++
	}
	height := 2*legendPadding + rows*legendRow
	img := image.NewRGBA(image.Rect(0, 0, legendWidth, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(legendBackground), image.Point{}, draw.Src)

	ctx := freetype.NewContext()
	ctx.SetDPI(legendDPI)
	ctx.SetFont(r.font)
	ctx.SetFontSize(legendFontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(legendText)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	total := l.Missing
	for _, row := range l.Rows {
		total += row.Count
	}

	baseline := legendPadding + legendRow - 6
	if _, err := ctx.DrawString(l.Title, freetype.Pt(legendPadding, baseline)); err != nil {
		return nil, fmt.Errorf("drawing title: %w", err)
	}

	line := func(i int, swatch color.NRGBA, text string) error {
		top := legendPadding + (i+1)*legendRow + (legendRow-legendSwatch)/2
		rect := image.Rect(legendPadding, top, legendPadding+legendSwatch, top+legendSwatch)
		draw.Draw(img, rect, image.NewUniform(swatch), image.Point{}, draw.Over)
		pt := freetype.Pt(legendPadding+legendSwatch+8, top+legendSwatch-2)
		_, err := ctx.DrawString(text, pt)
		return err
	}

	for i, row := range l.Rows {
		if err := line(i, ParseColor(row.Color), rowText(row.Label, row.Count, total)); err != nil {
			return nil, fmt.Errorf("drawing row %d: %w", i, err)
		}
	}
	if l.Missing > 0 {
		if err := line(len(l.Rows), fallbackColor, rowText("No data", l.Missing, total)); err != nil {
			return nil, fmt.Errorf("drawing missing row: %w", err)
		}
	}
	return img, nil
}

func rowText(label string, count, total int) string {
	if total == 0 {
		return fmt.Sprintf("%s  (0)", label)
	}
	share := float64(count) * 100 / float64(total)
	return fmt.Sprintf("%s  %s (%.1f%%)", label, humanize.Comma(int64(count)), share)
}
