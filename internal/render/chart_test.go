package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/stats"
	"github.com/cohortscope/server/pkg/colormap"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	return img
}

func sameRGB(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar>>8 == br>>8 && ag>>8 == bg>>8 && ab>>8 == bb>>8
}

func TestRenderRiskBarColour(t *testing.T) {
	r := NewChartRenderer(Config{Width: 640, Height: 400})
	samples := []generate.RiskSample{{
		Timepoint: cohort.Timepoints[0],
		RiskScore: 50,
		Band:      cohort.RiskModerate,
	}}

	data, err := r.RenderRisk(samples, cohort.Timepoints[1])
	if err != nil {
		t.Fatalf("RenderRisk: %v", err)
	}
	img := decode(t, data)
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 400 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	// Inside the single bar, well away from labels.
	if got := img.At(330, 300); !sameRGB(got, colormap.RiskModerate) {
		t.Fatalf("expected moderate risk colour, got %v", got)
	}
	if got := img.At(630, 10); !sameRGB(got, color.White) {
		t.Fatalf("expected white background, got %v", got)
	}
}

func TestRiskColor(t *testing.T) {
	if !sameRGB(RiskColor(cohort.RiskLow), colormap.RiskLow) {
		t.Error("low band colour")
	}
	if !sameRGB(RiskColor(cohort.RiskHigh), colormap.RiskHigh) {
		t.Error("high band colour")
	}
}

func TestRenderAllChartsProducePNG(t *testing.T) {
	r := NewChartRenderer(Config{Width: 320, Height: 200, DefaultColormap: "nonexistent"})
	rng := generate.NewSource(3)

	cells := generate.Cells(rng, cohort.CD8A, generate.FullRange)
	records := generate.ExpressionMatrix(rng, cohort.CD8A)
	summary := stats.SummarizeHeatmap(stats.FilterHeatmap(records, cohort.AllTissuesFilter, cohort.PrimaryCohort))
	samples := generate.ViolinSamples(rng, cohort.CD8A, cohort.AllTissuesFilter)
	timeline := generate.Timeline(rng, "P001")
	risk := generate.Risk(rng, "P002")

	renders := map[string]func() ([]byte, error){
		"scatter":  func() ([]byte, error) { return r.RenderScatter(cells, cohort.CD8A, "P003", "viridis") },
		"heatmap":  func() ([]byte, error) { return r.RenderHeatmap(cohort.CD8A, summary) },
		"violin":   func() ([]byte, error) { return r.RenderViolin(cohort.CD8A, samples, stats.ViolinByTissue(samples)) },
		"timeline": func() ([]byte, error) { return r.RenderTimeline(timeline, cohort.PDCD1, cohort.Timepoints[2]) },
		"risk":     func() ([]byte, error) { return r.RenderRisk(risk, cohort.Timepoints[0]) },
	}
	for name, fn := range renders {
		data, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		img := decode(t, data)
		if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 200 {
			t.Fatalf("%s: unexpected size %v", name, img.Bounds())
		}
	}
}

func TestRenderEmptyInputs(t *testing.T) {
	r := NewChartRenderer(Config{})
	if w, h := r.Size(); w != 640 || h != 400 {
		t.Fatalf("expected default size, got %dx%d", w, h)
	}
	if _, err := r.RenderScatter(nil, cohort.CD8A, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderHeatmap(cohort.CD8A, stats.HeatmapSummary{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderViolin(cohort.CD8A, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderTimeline(nil, cohort.CD8A, cohort.DefaultTimepoint); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentRendersAreIndependent(t *testing.T) {
	r := NewChartRenderer(Config{Width: 200, Height: 120})
	low := []generate.RiskSample{{Timepoint: cohort.Timepoints[0], RiskScore: 90, Band: cohort.RiskLow}}
	high := []generate.RiskSample{{Timepoint: cohort.Timepoints[0], RiskScore: 90, Band: cohort.RiskHigh}}

	var wg sync.WaitGroup
	errs := make(chan string, 40)
	for i := 0; i < 20; i++ {
		for _, tc := range []struct {
			samples []generate.RiskSample
			want    color.Color
		}{{low, colormap.RiskLow}, {high, colormap.RiskHigh}} {
			wg.Add(1)
			go func(samples []generate.RiskSample, want color.Color) {
				defer wg.Done()
				data, err := r.RenderRisk(samples, cohort.Timepoints[4])
				if err != nil {
					errs <- err.Error()
					return
				}
				img, err := png.Decode(bytes.NewReader(data))
				if err != nil {
					errs <- err.Error()
					return
				}
				if !sameRGB(img.At(100, 50), want) {
					errs <- "bar colour leaked between renders"
				}
			}(tc.samples, tc.want)
		}
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}
