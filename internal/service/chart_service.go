package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cohortscope/server/internal/cache"
	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/render"
	"github.com/cohortscope/server/internal/stats"
)

// ChartServiceConfig contains chart service configuration.
type ChartServiceConfig struct {
	Dashboard *DashboardService
	Renderer  *render.ChartRenderer
	Cache     *cache.Manager
	Metrics   *metrics.Metrics
}

// ChartService renders dashboard charts and keeps them in the chart cache.
type ChartService struct {
	dashboard *DashboardService
	renderer  *render.ChartRenderer
	cache     *cache.Manager
	metrics   *metrics.Metrics
}

// NewChartService creates a new chart service.
func NewChartService(cfg ChartServiceConfig) *ChartService {
	return &ChartService{
		dashboard: cfg.Dashboard,
		renderer:  cfg.Renderer,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
	}
}

// cached serves kind from the cache or renders it with draw.
func (s *ChartService) cached(kind string, params cache.Params, seed uint64, draw func() ([]byte, error)) ([]byte, error) {
	w, h := s.renderer.Size()
	key := cache.ChartKey(kind, params, seed, w, h)

	if s.cache != nil {
		if data, ok := s.cache.GetChart(key); ok {
			s.metrics.ObserveChartCache(kind, true)
			return data, nil
		}
	}
	s.metrics.ObserveChartCache(kind, false)

	start := time.Now()
	data, err := draw()
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", kind, err)
	}
	s.metrics.ObserveChartRender(kind, start)

	if s.cache != nil {
		// An oversized chart is still served, just not cached.
		_ = s.cache.SetChart(key, data)
	}
	return data, nil
}

// Scatter renders the cohort embedding.
func (s *ChartService) Scatter(seed uint64, gene cohort.Gene, window generate.ExpressionRange, hovered, colormapName string) ([]byte, error) {
	window = window.Normalize()
	params := cache.Params{
		"gene":     string(gene),
		"low":      strconv.FormatFloat(window.Low, 'f', -1, 64),
		"high":     strconv.FormatFloat(window.High, 'f', -1, 64),
		"hovered":  hovered,
		"colormap": colormapName,
	}
	return s.cached("umap", params, seed, func() ([]byte, error) {
		cells := s.dashboard.Cells(seed, gene, window)
		return s.renderer.RenderScatter(cells, gene, hovered, colormapName)
	})
}

// Heatmap renders the tissue × dataset heatmap.
func (s *ChartService) Heatmap(seed uint64, gene cohort.Gene, tissue cohort.TissueFilter, dataset cohort.Dataset) ([]byte, error) {
	params := cache.Params{"gene": string(gene), "tissue": tissue.String(), "dataset": string(dataset)}
	return s.cached("heatmap", params, seed, func() ([]byte, error) {
		records := stats.FilterHeatmap(s.dashboard.ExpressionMatrix(seed, gene), tissue, dataset)
		return s.renderer.RenderHeatmap(gene, stats.SummarizeHeatmap(records))
	})
}

// Violin renders the per-tissue distributions.
func (s *ChartService) Violin(seed uint64, gene cohort.Gene, tissue cohort.TissueFilter) ([]byte, error) {
	params := cache.Params{"gene": string(gene), "tissue": tissue.String()}
	return s.cached("violin", params, seed, func() ([]byte, error) {
		samples := s.dashboard.ViolinSamples(seed, gene, tissue)
		return s.renderer.RenderViolin(gene, samples, stats.ViolinByTissue(samples))
	})
}

// Timeline renders a patient's expression timeline with focus highlighted.
func (s *ChartService) Timeline(seed uint64, patientID string, focus cohort.Gene, active cohort.Timepoint) ([]byte, error) {
	params := cache.Params{"patient": patientID, "focus": string(focus), "timepoint": active.Key}
	return s.cached("timeline", params, seed, func() ([]byte, error) {
		return s.renderer.RenderTimeline(s.dashboard.Timeline(seed, patientID), focus, active)
	})
}

// Risk renders a patient's relapse risk bars.
func (s *ChartService) Risk(seed uint64, patientID string, active cohort.Timepoint) ([]byte, error) {
	params := cache.Params{"patient": patientID, "timepoint": active.Key}
	return s.cached("risk", params, seed, func() ([]byte, error) {
		return s.renderer.RenderRisk(s.dashboard.Risk(seed, patientID), active)
	})
}
