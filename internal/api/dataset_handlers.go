package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cohortscope/server/internal/cache"
	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/service"
	"github.com/cohortscope/server/internal/stats"
)

// encodedHandler serves a payload memoised by endpoint, params and seed.
func encodedHandler(w http.ResponseWriter, dashboard *service.DashboardService, endpoint string, params cache.Params, seed uint64, build func() interface{}) {
	data, err := dashboard.Encode(endpoint, params, seed, build)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Seed", strconv.FormatUint(seed, 10))
	writeEncoded(w, data)
}

func expressionRangeParam(r *http.Request) generate.ExpressionRange {
	return generate.ExpressionRange{
		Low:  floatParam(r, "low", generate.FullRange.Low),
		High: floatParam(r, "high", generate.FullRange.High),
	}.Normalize()
}

func cohortCellsHandler(dashboard *service.DashboardService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		gene := geneParam(r, "gene")
		window := expressionRangeParam(r)
		params := cache.Params{
			"gene": string(gene),
			"low":  strconv.FormatFloat(window.Low, 'f', -1, 64),
			"high": strconv.FormatFloat(window.High, 'f', -1, 64),
		}
		encodedHandler(w, dashboard, "/cohort/cells", params, seed, func() interface{} {
			cells := dashboard.Cells(seed, gene, window)
			return map[string]interface{}{
				"seed":             seed,
				"gene":             gene,
				"expression_range": window,
				"cells":            cells,
				"count":            len(cells),
				"per_patient":      generate.CountByPatient(cells),
			}
		})
	}
}

func cohortOutcomesHandler(dashboard *service.DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := cohort.ParseOutcomeFilter(r.URL.Query().Get("outcome"))
		params := cache.Params{"outcome": filter.String()}
		// Outcome groups come from the fixed roster; no draw is involved.
		encodedHandler(w, dashboard, "/cohort/outcomes", params, 0, func() interface{} {
			return map[string]interface{}{
				"outcome": filter,
				"groups":  stats.GroupByOutcome(cohort.Roster, filter),
			}
		})
	}
}

func patientsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": cohort.Roster,
	})
}

// patientHandler returns roster metadata. Unknown ids get the placeholder
// record rather than a 404.
func patientHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cohort.LookupPatient(chi.URLParam(r, "patient")))
}

func patientTimelineHandler(dashboard *service.DashboardService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		id := chi.URLParam(r, "patient")
		tp := timepointParam(r)
		params := cache.Params{"patient": id, "timepoint": tp.Key}
		encodedHandler(w, dashboard, "/patients/timeline", params, seed, func() interface{} {
			timeline := dashboard.Timeline(seed, id)
			active, _ := stats.SelectTimepoint(timeline, tp)
			return map[string]interface{}{
				"seed":     seed,
				"patient":  cohort.LookupPatient(id),
				"timeline": timeline,
				"active":   active,
			}
		})
	}
}

func patientRiskHandler(dashboard *service.DashboardService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		id := chi.URLParam(r, "patient")
		tp := timepointParam(r)
		params := cache.Params{"patient": id, "timepoint": tp.Key}
		encodedHandler(w, dashboard, "/patients/risk", params, seed, func() interface{} {
			risk := dashboard.Risk(seed, id)
			active, _ := stats.SelectTimepoint(risk, tp)
			return map[string]interface{}{
				"seed":           seed,
				"patient":        cohort.LookupPatient(id),
				"risk":           risk,
				"active":         active,
				"interpretation": active.Band.Interpretation(),
			}
		})
	}
}

func atlasHeatmapHandler(dashboard *service.DashboardService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		gene := geneParam(r, "gene")
		tissue := cohort.ParseTissueFilter(r.URL.Query().Get("tissue"))
		dataset := cohort.ParseDataset(r.URL.Query().Get("dataset"))
		params := cache.Params{"gene": string(gene), "tissue": tissue.String(), "dataset": string(dataset)}
		encodedHandler(w, dashboard, "/atlas/heatmap", params, seed, func() interface{} {
			records := stats.FilterHeatmap(dashboard.ExpressionMatrix(seed, gene), tissue, dataset)
			return map[string]interface{}{
				"seed":    seed,
				"gene":    gene,
				"tissue":  tissue,
				"dataset": dataset,
				"records": records,
				"summary": stats.SummarizeHeatmap(records),
			}
		})
	}
}

func atlasViolinHandler(dashboard *service.DashboardService, seeder *generate.Seeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := seedParam(r, seeder)
		gene := geneParam(r, "gene")
		tissue := cohort.ParseTissueFilter(r.URL.Query().Get("tissue"))
		params := cache.Params{"gene": string(gene), "tissue": tissue.String()}
		encodedHandler(w, dashboard, "/atlas/violin", params, seed, func() interface{} {
			samples := dashboard.ViolinSamples(seed, gene, tissue)
			groups := stats.ViolinByTissue(samples)
			response := map[string]interface{}{
				"seed":    seed,
				"gene":    gene,
				"tissue":  tissue,
				"samples": samples,
				"stats":   groups,
			}
			if top, ok := stats.HighestExpressionTissue(groups); ok {
				response["highest_tissue"] = top
			}
			return response
		})
	}
}
