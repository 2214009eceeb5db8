// Package colormap provides color schemes for the dashboard charts.
package colormap

import (
	"fmt"
	"image/color"
	"strings"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
	AtIndex(i int) color.Color
}

// LinearColormap is a linear interpolation colormap.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the color at position t (0-1).
func (c LinearColormap) At(t float64) color.Color {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}

	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.colors) {
		upper = len(c.colors) - 1
	}

	frac := idx - float64(lower)
	return interpolate(c.colors[lower], c.colors[upper], frac)
}

// AtIndex returns color at index i (wraps around).
func (c LinearColormap) AtIndex(i int) color.Color {
	return c.colors[i%len(c.colors)]
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// Expression runs from blue at no expression to red at full expression,
// with green fixed at 100.
var Expression = LinearColormap{
	colors: []color.RGBA{
		{0, 100, 255, 255},
		{255, 100, 0, 255},
	},
}

// Viridis colormap (matplotlib viridis)
var Viridis = LinearColormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// Plasma colormap
var Plasma = LinearColormap{
	colors: []color.RGBA{
		{13, 8, 135, 255},
		{75, 3, 161, 255},
		{125, 3, 168, 255},
		{168, 34, 150, 255},
		{203, 70, 121, 255},
		{229, 107, 93, 255},
		{248, 148, 65, 255},
		{253, 195, 40, 255},
		{240, 249, 33, 255},
	},
}

// BandedColormap assigns one flat color per equal-width band.
type BandedColormap struct {
	colors []color.RGBA
}

// At returns the color of the band containing t.
func (c BandedColormap) At(t float64) color.Color {
	idx := int(t * float64(len(c.colors)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.colors) {
		idx = len(c.colors) - 1
	}
	return c.colors[idx]
}

// AtIndex returns the color of band i, clamped to the last band.
func (c BandedColormap) AtIndex(i int) color.Color {
	if i < 0 {
		i = 0
	}
	if i >= len(c.colors) {
		i = len(c.colors) - 1
	}
	return c.colors[i]
}

// Heatmap is the five-band heatmap scale: very light blue, light blue,
// yellow, orange, dark red.
var Heatmap = BandedColormap{
	colors: []color.RGBA{
		{0xe0, 0xf2, 0xfe, 255},
		{0x81, 0xd4, 0xfa, 255},
		{0xff, 0xeb, 0x3b, 255},
		{0xff, 0x98, 0x00, 255},
		{0xd3, 0x2f, 0x2f, 255},
	},
}

// CategoricalColormap provides distinct colors for categories.
type CategoricalColormap struct {
	colors []color.RGBA
}

// At returns color at position t.
func (c CategoricalColormap) At(t float64) color.Color {
	idx := int(t * float64(len(c.colors)))
	if idx >= len(c.colors) {
		idx = len(c.colors) - 1
	}
	return c.colors[idx]
}

// AtIndex returns color at index.
func (c CategoricalColormap) AtIndex(i int) color.Color {
	return c.colors[i%len(c.colors)]
}

// Series colors chart lines and groups: tissues, genes, outcomes.
var Series = CategoricalColormap{
	colors: []color.RGBA{
		{231, 110, 80, 255},  // coral
		{42, 157, 144, 255},  // teal
		{39, 71, 84, 255},    // slate
		{232, 196, 104, 255}, // sand
		{244, 162, 97, 255},  // orange
		{148, 103, 189, 255}, // purple
	},
}

// Risk colors for the low, moderate and high risk bands.
var (
	RiskLow      = color.RGBA{42, 157, 144, 255}
	RiskModerate = color.RGBA{232, 196, 104, 255}
	RiskHigh     = color.RGBA{220, 38, 38, 255}
)

var named = map[string]Colormap{
	"expression": Expression,
	"viridis":    Viridis,
	"plasma":     Plasma,
	"heatmap":    Heatmap,
	"series":     Series,
}

// Lookup returns the colormap registered under name.
func Lookup(name string) (Colormap, bool) {
	c, ok := named[strings.ToLower(name)]
	return c, ok
}

// Names lists the registered colormaps.
func Names() []string {
	return []string{"expression", "viridis", "plasma", "heatmap", "series"}
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// CSS formats c as rgb(r, g, b).
func CSS(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("rgb(%d, %d, %d)", r>>8, g>>8, b>>8)
}
