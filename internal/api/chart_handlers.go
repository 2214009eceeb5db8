package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/service"
)

func writePNG(w http.ResponseWriter, r *http.Request, seed uint64, data []byte, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Seed", strconv.FormatUint(seed, 10))
	if r.URL.Query().Get("seed") != "" {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.Write(data)
}

func scatterChartHandler(charts *service.ChartService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		q := r.URL.Query()
		data, err := charts.Scatter(seed, geneParam(r, "gene"), expressionRangeParam(r), q.Get("hovered"), q.Get("colormap"))
		writePNG(w, r, seed, data, err)
	}
}

func heatmapChartHandler(charts *service.ChartService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		q := r.URL.Query()
		data, err := charts.Heatmap(seed, geneParam(r, "gene"), cohort.ParseTissueFilter(q.Get("tissue")), cohort.ParseDataset(q.Get("dataset")))
		writePNG(w, r, seed, data, err)
	}
}

func violinChartHandler(charts *service.ChartService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		data, err := charts.Violin(seed, geneParam(r, "gene"), cohort.ParseTissueFilter(r.URL.Query().Get("tissue")))
		writePNG(w, r, seed, data, err)
	}
}

func timelineChartHandler(charts *service.ChartService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		data, err := charts.Timeline(seed, chi.URLParam(r, "patient"), geneParam(r, "focus"), timepointParam(r))
		writePNG(w, r, seed, data, err)
	}
}

func riskChartHandler(charts *service.ChartService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		data, err := charts.Risk(seed, chi.URLParam(r, "patient"), timepointParam(r))
		writePNG(w, r, seed, data, err)
	}
}
