// Package render draws the dashboard charts as PNG images using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/stats"
	"github.com/cohortscope/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	Width           int
	Height          int
	DefaultColormap string
}

const margin = 48.0

var (
	background = color.White
	axisColor  = color.RGBA{160, 160, 160, 255}
	textColor  = color.RGBA{40, 40, 40, 255}
	highlight  = color.RGBA{17, 24, 39, 255}
)

// ChartRenderer renders charts. It is safe for concurrent use.
type ChartRenderer struct {
	config      Config
	contextPool sync.Pool
	bufferPool  sync.Pool
}

// NewChartRenderer creates a new chart renderer.
func NewChartRenderer(cfg Config) *ChartRenderer {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 400
	}
	if _, ok := colormap.Lookup(cfg.DefaultColormap); !ok {
		cfg.DefaultColormap = "expression"
	}
	return &ChartRenderer{
		config: cfg,
		contextPool: sync.Pool{
			New: func() interface{} {
				return gg.NewContext(cfg.Width, cfg.Height)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// Size returns the canvas dimensions.
func (r *ChartRenderer) Size() (int, int) { return r.config.Width, r.config.Height }

func (r *ChartRenderer) colormap(name string) colormap.Colormap {
	if c, ok := colormap.Lookup(name); ok {
		return c
	}
	c, _ := colormap.Lookup(r.config.DefaultColormap)
	return c
}

// acquire returns a cleared context with default drawing state.
func (r *ChartRenderer) acquire() *gg.Context {
	dc := r.contextPool.Get().(*gg.Context)
	dc.Identity()
	dc.ResetClip()
	dc.SetDash()
	dc.SetLineWidth(1)
	dc.SetColor(background)
	dc.Clear()
	return dc
}

// plotArea is the drawable rectangle inside the margins.
type plotArea struct {
	x0, y0, w, h float64
}

func (r *ChartRenderer) area() plotArea {
	w, h := float64(r.config.Width), float64(r.config.Height)
	return plotArea{x0: margin, y0: margin / 2, w: w - margin*1.5, h: h - margin*1.5}
}

// px maps a value in [lo,hi] to the horizontal pixel range.
func (a plotArea) px(v, lo, hi float64) float64 {
	if hi == lo {
		return a.x0 + a.w/2
	}
	return a.x0 + (v-lo)/(hi-lo)*a.w
}

// py maps a value in [lo,hi] to the vertical pixel range, origin at bottom.
func (a plotArea) py(v, lo, hi float64) float64 {
	if hi == lo {
		return a.y0 + a.h/2
	}
	return a.y0 + a.h - (v-lo)/(hi-lo)*a.h
}

func (r *ChartRenderer) drawTitle(dc *gg.Context, title string) {
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(r.config.Width)/2, margin/4, 0.5, 0.5)
}

func (r *ChartRenderer) drawAxes(dc *gg.Context, a plotArea, title string) {
	dc.SetColor(axisColor)
	dc.SetLineWidth(1)
	dc.DrawLine(a.x0, a.y0+a.h, a.x0+a.w, a.y0+a.h)
	dc.DrawLine(a.x0, a.y0, a.x0, a.y0+a.h)
	dc.Stroke()
	r.drawTitle(dc, title)
}

// drawPercentTicks labels the vertical 0-100 axis.
func drawPercentTicks(dc *gg.Context, a plotArea) {
	dc.SetColor(textColor)
	for v := 0.0; v <= 100; v += 25 {
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", v), a.x0-6, a.py(v, 0, 100), 1, 0.5)
	}
}

// RenderScatter draws the cohort embedding with cells coloured by
// expression. Cells of the hovered patient are outlined.
func (r *ChartRenderer) RenderScatter(cells []generate.Cell, gene cohort.Gene, hovered, colormapName string) ([]byte, error) {
	dc := r.acquire()
	defer r.contextPool.Put(dc)

	a := r.area()
	r.drawAxes(dc, a, fmt.Sprintf("%s expression", gene))
	if len(cells) == 0 {
		return r.encodeContext(dc)
	}

	minX, maxX := cells[0].X, cells[0].X
	minY, maxY := cells[0].Y, cells[0].Y
	for _, c := range cells[1:] {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}

	cmap := r.colormap(colormapName)
	const radius = 3.0
	for _, c := range cells {
		x, y := a.px(c.X, minX, maxX), a.py(c.Y, minY, maxY)
		dc.SetColor(cmap.At(c.Expression / 100))
		dc.DrawCircle(x, y, radius)
		dc.Fill()
		if hovered != "" && c.PatientID == hovered {
			dc.SetColor(highlight)
			dc.SetLineWidth(2)
			dc.DrawCircle(x, y, radius+1)
			dc.Stroke()
		}
	}

	return r.encodeContext(dc)
}

// RenderHeatmap draws the tissue x dataset grid using the banded scale.
func (r *ChartRenderer) RenderHeatmap(gene cohort.Gene, s stats.HeatmapSummary) ([]byte, error) {
	dc := r.acquire()
	defer r.contextPool.Put(dc)

	a := r.area()
	r.drawTitle(dc, fmt.Sprintf("%s expression across tissues and datasets", gene))
	if len(s.Tissues) == 0 || len(s.Datasets) == 0 {
		return r.encodeContext(dc)
	}

	// Leave room for row labels on the left.
	const labelWidth = 96.0
	gridX := a.x0 + labelWidth - margin
	cellW := (a.x0 + a.w - gridX) / float64(len(s.Datasets))
	cellH := (a.h - 16) / float64(len(s.Tissues))

	dc.SetColor(textColor)
	for j, ds := range s.Datasets {
		dc.DrawStringAnchored(string(ds), gridX+cellW*(float64(j)+0.5), a.y0+8, 0.5, 0.5)
	}

	top := a.y0 + 16
	for i, t := range s.Tissues {
		y := top + cellH*float64(i)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(string(t), gridX-6, y+cellH/2, 1, 0.5)
		for j, ds := range s.Datasets {
			cell, ok := s.Lookup(t, ds)
			if !ok {
				continue
			}
			x := gridX + cellW*float64(j)
			dc.SetColor(colormap.Heatmap.AtIndex(cell.Band))
			dc.DrawRectangle(x+1, y+1, cellW-2, cellH-2)
			dc.Fill()

			if cell.DarkLabel {
				dc.SetColor(color.White)
			} else {
				dc.SetColor(color.Black)
			}
			dc.DrawStringAnchored(fmt.Sprintf("%.1f", cell.Expression), x+cellW/2, y+cellH/2, 0.5, 0.5)
		}
	}

	return r.encodeContext(dc)
}

// RenderViolin draws one box per tissue (whiskers at min and max) with the
// individual samples scattered beside it.
func (r *ChartRenderer) RenderViolin(gene cohort.Gene, samples []generate.Sample, groups []stats.TissueStats) ([]byte, error) {
	dc := r.acquire()
	defer r.contextPool.Put(dc)

	a := r.area()
	r.drawAxes(dc, a, fmt.Sprintf("%s expression distribution", gene))
	drawPercentTicks(dc, a)
	if len(groups) == 0 {
		return r.encodeContext(dc)
	}

	slot := a.w / float64(len(groups))
	index := make(map[cohort.Tissue]int, len(groups))
	for i, g := range groups {
		index[g.Tissue] = i
	}

	for _, s := range samples {
		i, ok := index[s.Tissue]
		if !ok {
			continue
		}
		cx := a.x0 + slot*(float64(i)+0.5)
		// Deterministic jitter from the fractional digits of the value.
		jitter := (math.Mod(s.Expression*7.3, 1) - 0.5) * slot * 0.3
		dc.SetColor(withAlpha(colormap.Series.AtIndex(i), 90))
		dc.DrawCircle(cx+jitter, a.py(s.Expression, 0, 100), 2)
		dc.Fill()
	}

	for i, g := range groups {
		cx := a.x0 + slot*(float64(i)+0.5)
		half := slot * 0.18
		st := g.Stats

		dc.SetColor(colormap.Series.AtIndex(i))
		dc.SetLineWidth(1.5)
		dc.DrawLine(cx, a.py(st.Min, 0, 100), cx, a.py(st.Q1, 0, 100))
		dc.DrawLine(cx, a.py(st.Q3, 0, 100), cx, a.py(st.Max, 0, 100))
		dc.Stroke()

		dc.DrawRectangle(cx-half, a.py(st.Q3, 0, 100), half*2, a.py(st.Q1, 0, 100)-a.py(st.Q3, 0, 100))
		dc.Stroke()

		dc.SetColor(highlight)
		dc.SetLineWidth(2.5)
		dc.DrawLine(cx-half, a.py(st.Median, 0, 100), cx+half, a.py(st.Median, 0, 100))
		dc.Stroke()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(string(g.Tissue), cx, a.y0+a.h+14, 0.5, 0.5)
	}

	return r.encodeContext(dc)
}

// RenderTimeline draws one line per timeline gene. The focus gene is drawn
// dashed and thicker; the active timepoint gets a vertical marker.
func (r *ChartRenderer) RenderTimeline(samples []generate.TimepointSample, focus cohort.Gene, active cohort.Timepoint) ([]byte, error) {
	dc := r.acquire()
	defer r.contextPool.Put(dc)

	a := r.area()
	r.drawAxes(dc, a, "Gene expression over time")
	drawPercentTicks(dc, a)
	if len(samples) == 0 {
		return r.encodeContext(dc)
	}

	last := float64(len(samples) - 1)
	for i, s := range samples {
		x := a.px(float64(i), 0, last)
		if s.Key == active.Key {
			dc.SetColor(axisColor)
			dc.SetDash(4, 4)
			dc.DrawLine(x, a.y0, x, a.y0+a.h)
			dc.Stroke()
			dc.SetDash()
		}
		dc.SetColor(textColor)
		dc.DrawStringAnchored(s.Name, x, a.y0+a.h+14, 0.5, 0.5)
	}

	for gi, g := range cohort.TimelineGenes {
		dc.SetColor(colormap.Series.AtIndex(gi))
		if g == focus {
			dc.SetLineWidth(3)
			dc.SetDash(6, 4)
		} else {
			dc.SetLineWidth(2)
			dc.SetDash()
		}
		for i, s := range samples {
			x, y := a.px(float64(i), 0, last), a.py(s.Expression[g], 0, 100)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
	dc.SetDash()

	return r.encodeContext(dc)
}

// RiskColor is the bar color for a risk band.
func RiskColor(b cohort.RiskBand) color.Color {
	switch b {
	case cohort.RiskLow:
		return colormap.RiskLow
	case cohort.RiskModerate:
		return colormap.RiskModerate
	default:
		return colormap.RiskHigh
	}
}

// RenderRisk draws the risk score per timepoint as bars coloured by band.
// The active timepoint is outlined.
func (r *ChartRenderer) RenderRisk(samples []generate.RiskSample, active cohort.Timepoint) ([]byte, error) {
	dc := r.acquire()
	defer r.contextPool.Put(dc)

	a := r.area()
	r.drawAxes(dc, a, "Relapse risk score")
	drawPercentTicks(dc, a)
	if len(samples) == 0 {
		return r.encodeContext(dc)
	}

	slot := a.w / float64(len(samples))
	for i, s := range samples {
		x := a.x0 + slot*float64(i) + slot*0.2
		w := slot * 0.6
		top := a.py(s.RiskScore, 0, 100)
		dc.SetColor(RiskColor(s.Band))
		dc.DrawRectangle(x, top, w, a.y0+a.h-top)
		dc.Fill()
		if s.Key == active.Key {
			dc.SetColor(highlight)
			dc.SetLineWidth(3)
			dc.DrawRectangle(x, top, w, a.y0+a.h-top)
			dc.Stroke()
		}
		dc.SetColor(textColor)
		dc.DrawStringAnchored(s.Name, x+w/2, a.y0+a.h+14, 0.5, 0.5)
	}

	return r.encodeContext(dc)
}

func withAlpha(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}

func (r *ChartRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
