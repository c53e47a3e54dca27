// Package render draws map overlays, legends and chart pages.
package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// OverlayOpacity is the alpha applied to every dot.
const OverlayOpacity = 0.9

var fallbackColor = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// ParseColor turns "#rrggbb" or "#rgb" into a colour. Anything else is gray.
func ParseColor(hex string) color.NRGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallbackColor
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(alpha*255 + 0.5)
	return c
}
