// Package api provides HTTP handlers for the CohortScope server.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/navigation"
	"github.com/cohortscope/server/internal/render"
	"github.com/cohortscope/server/internal/service"
	"github.com/cohortscope/server/pkg/colormap"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Title       string
	CORSOrigins []string
	Sessions    *SessionRegistry
	Dashboard   *service.DashboardService
	Charts      *service.ChartService
	JobManager  *JobManager
	Seeder      *generate.Seeder
	Metrics     *metrics.Metrics
	// DefaultReplicates applies to contrast jobs that do not set replicates.
	DefaultReplicates int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Seeder == nil {
		cfg.Seeder = generate.NewSeeder(0)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Seed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogHandler(cfg.Title))

		// Per-client navigation sessions
		r.Post("/sessions", sessionCreateHandler(cfg.Sessions))
		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Use(sessionMiddleware(cfg.Sessions))
			r.Get("/", sessionGetHandler)
			r.Delete("/", sessionDeleteHandler(cfg.Sessions))
			r.Post("/patient", selectPatientHandler(cfg.Metrics))
			r.Post("/return", returnToCohortHandler(cfg.Metrics))
			r.Post("/gene", selectGeneHandler(cfg.Metrics))
			r.Post("/view", switchViewHandler(cfg.Metrics))
			r.Put("/filters", filtersHandler(cfg.Metrics))
			r.Put("/timepoint", timepointHandler(cfg.Metrics))
			r.Put("/hover", hoverHandler)
			r.Get("/view", viewPayloadHandler(cfg.Dashboard))
		})

		// Stateless generator endpoints
		r.Get("/cohort/cells", cohortCellsHandler(cfg.Dashboard, cfg.Seeder))
		r.Get("/cohort/outcomes", cohortOutcomesHandler(cfg.Dashboard))
		r.Get("/patients", patientsHandler)
		r.Get("/patients/{patient}", patientHandler)
		r.Get("/patients/{patient}/timeline", patientTimelineHandler(cfg.Dashboard, cfg.Seeder))
		r.Get("/patients/{patient}/risk", patientRiskHandler(cfg.Dashboard, cfg.Seeder))
		r.Get("/atlas/heatmap", atlasHeatmapHandler(cfg.Dashboard, cfg.Seeder))
		r.Get("/atlas/violin", atlasViolinHandler(cfg.Dashboard, cfg.Seeder))

		// Outcome contrast jobs
		r.Route("/contrast/jobs", func(r chi.Router) {
			r.Post("/", contrastJobSubmitHandler(cfg.JobManager, cfg.Seeder, cfg.DefaultReplicates))
			r.Get("/", contrastJobListHandler(cfg.JobManager))
			r.Get("/{job_id}", contrastJobStatusHandler(cfg.JobManager))
			r.Get("/{job_id}/result", contrastJobResultHandler(cfg.JobManager))
			r.Get("/{job_id}/samples", contrastJobSamplesHandler(cfg.JobManager))
			r.Delete("/{job_id}", contrastJobCancelHandler(cfg.JobManager))
		})
	})

	// Server-rendered charts
	r.Route("/charts", func(r chi.Router) {
		r.Get("/umap.png", scatterChartHandler(cfg.Charts, cfg.Seeder))
		r.Get("/heatmap.png", heatmapChartHandler(cfg.Charts, cfg.Seeder))
		r.Get("/violin.png", violinChartHandler(cfg.Charts, cfg.Seeder))
		r.Get("/patients/{patient}/timeline.png", timelineChartHandler(cfg.Charts, cfg.Seeder))
		r.Get("/patients/{patient}/risk.png", riskChartHandler(cfg.Charts, cfg.Seeder))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEncoded(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// seedParam reads ?seed. A missing or malformed seed draws a fresh one.
func seedParam(r *http.Request, seeder *generate.Seeder) uint64 {
	if s := r.URL.Query().Get("seed"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return seeder.Next()
}

// floatParam reads a numeric query value, falling back to def when absent
// or malformed.
func floatParam(r *http.Request, key string, def float64) float64 {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

// geneParam reads a gene symbol. Unknown symbols pass through; the
// generators fall back to the default gene's tables for them.
func geneParam(r *http.Request, key string) cohort.Gene {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return cohort.DefaultGene
	}
	g, _ := cohort.ParseGene(s)
	return g
}

func timepointParam(r *http.Request) cohort.Timepoint {
	tp, _ := cohort.ParseTimepoint(r.URL.Query().Get("timepoint"))
	return tp
}

// catalogHandler lists the fixed reference data.
func catalogHandler(title string) http.HandlerFunc {
	if title == "" {
		title = "Patient Story Dashboard"
	}
	type geneInfo struct {
		Symbol      cohort.Gene `json:"symbol"`
		Description string      `json:"description"`
		Exhaustion  bool        `json:"exhaustion_marker"`
	}
	type keyed struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	type viewInfo struct {
		View  navigation.View `json:"view"`
		Label string          `json:"label"`
	}
	type scaleInfo struct {
		Name  string   `json:"name"`
		Stops []string `json:"stops"`
	}
	type bandInfo struct {
		Band           cohort.RiskBand `json:"band"`
		Color          string          `json:"color"`
		Interpretation string          `json:"interpretation"`
	}

	genes := make([]geneInfo, 0, len(cohort.AllGenes))
	for _, g := range cohort.AllGenes {
		genes = append(genes, geneInfo{Symbol: g, Description: g.Description(), Exhaustion: g.IsExhaustionMarker()})
	}
	tissues := make([]keyed, 0, len(cohort.AllTissues))
	for _, t := range cohort.AllTissues {
		tissues = append(tissues, keyed{Key: t.Key(), Name: string(t)})
	}
	datasets := make([]keyed, 0, len(cohort.AllDatasets))
	for _, d := range cohort.AllDatasets {
		datasets = append(datasets, keyed{Key: d.Key(), Name: string(d)})
	}
	views := make([]viewInfo, 0, len(navigation.Views))
	for _, v := range navigation.Views {
		views = append(views, viewInfo{View: v, Label: v.Label()})
	}
	// Scales are sampled at the ends and the midpoint for client legends.
	scales := make([]scaleInfo, 0, len(colormap.Names()))
	for _, name := range colormap.Names() {
		cm, _ := colormap.Lookup(name)
		scales = append(scales, scaleInfo{
			Name:  name,
			Stops: []string{colormap.Hex(cm.At(0)), colormap.Hex(cm.At(0.5)), colormap.Hex(cm.At(1))},
		})
	}
	bands := make([]bandInfo, 0, 3)
	for _, b := range []cohort.RiskBand{cohort.RiskLow, cohort.RiskModerate, cohort.RiskHigh} {
		bands = append(bands, bandInfo{Band: b, Color: colormap.CSS(render.RiskColor(b)), Interpretation: b.Interpretation()})
	}

	response := map[string]interface{}{
		"title":          title,
		"genes":          genes,
		"timeline_genes": cohort.TimelineGenes,
		"tissues":        tissues,
		"datasets":       datasets,
		"timepoints":     cohort.Timepoints,
		"patients":       cohort.Roster,
		"views":          views,
		"colormaps":      scales,
		"risk_bands":     bands,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response)
	}
}
