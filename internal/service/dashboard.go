// Package service builds the dashboard payloads, charts and contrast runs
// served by the API.
package service

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cohortscope/server/internal/cache"
	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/navigation"
	"github.com/cohortscope/server/internal/stats"
)

// DashboardService draws the synthetic datasets and assembles view payloads.
// Every draw starts a fresh source from the given seed, so a payload depends
// only on its inputs.
type DashboardService struct {
	cache   *cache.Manager
	metrics *metrics.Metrics
}

// NewDashboardService creates a dashboard service. Both arguments may be nil.
func NewDashboardService(c *cache.Manager, m *metrics.Metrics) *DashboardService {
	return &DashboardService{cache: c, metrics: m}
}

// Generators sharing a view draw from distinct streams of the view seed.
const (
	violinStream = 1
	riskStream   = 1
)

// Cells draws the cohort embedding.
func (s *DashboardService) Cells(seed uint64, gene cohort.Gene, window generate.ExpressionRange) []generate.Cell {
	defer s.metrics.ObserveGenerator("cells", time.Now())
	return generate.Cells(generate.NewSource(seed), gene, window.Normalize())
}

// ExpressionMatrix draws the tissue × dataset heatmap records.
func (s *DashboardService) ExpressionMatrix(seed uint64, gene cohort.Gene) []generate.ExpressionRecord {
	defer s.metrics.ObserveGenerator("expression_matrix", time.Now())
	return generate.ExpressionMatrix(generate.NewSource(seed), gene)
}

// ViolinSamples draws the per-tissue expression samples.
func (s *DashboardService) ViolinSamples(seed uint64, gene cohort.Gene, tissue cohort.TissueFilter) []generate.Sample {
	defer s.metrics.ObserveGenerator("violin", time.Now())
	return generate.ViolinSamples(generate.NewSource(seed+violinStream), gene, tissue)
}

// Timeline draws the longitudinal panel of a patient.
func (s *DashboardService) Timeline(seed uint64, patientID string) []generate.TimepointSample {
	defer s.metrics.ObserveGenerator("timeline", time.Now())
	return generate.Timeline(generate.NewSource(seed), patientID)
}

// Risk draws the relapse risk series of a patient.
func (s *DashboardService) Risk(seed uint64, patientID string) []generate.RiskSample {
	defer s.metrics.ObserveGenerator("risk", time.Now())
	return generate.Risk(generate.NewSource(seed+riskStream), patientID)
}

// CohortPayload is the content of the cohort overview.
type CohortPayload struct {
	Gene            cohort.Gene              `json:"gene"`
	GeneDescription string                   `json:"gene_description"`
	ExpressionRange generate.ExpressionRange `json:"expression_range"`
	OutcomeFilter   cohort.OutcomeFilter     `json:"outcome_filter"`
	Cells           []generate.Cell          `json:"cells"`
	CellCount       int                      `json:"cell_count"`
	Groups          []stats.OutcomeGroup     `json:"groups"`
	Hovered         string                   `json:"hovered_patient,omitempty"`
}

// Cohort builds the cohort overview for a gene, expression window and
// outcome filter.
func (s *DashboardService) Cohort(seed uint64, gene cohort.Gene, window generate.ExpressionRange, outcome cohort.OutcomeFilter) CohortPayload {
	cells := s.Cells(seed, gene, window)
	return CohortPayload{
		Gene:            gene,
		GeneDescription: gene.Description(),
		ExpressionRange: window.Normalize(),
		OutcomeFilter:   outcome,
		Cells:           cells,
		CellCount:       len(cells),
		Groups:          stats.GroupByOutcome(cohort.Roster, outcome),
	}
}

// PatientPayload is the content of the patient story. Without a selected
// patient only Placeholder is set.
type PatientPayload struct {
	Patient         *cohort.Patient            `json:"patient,omitempty"`
	Timeline        []generate.TimepointSample `json:"timeline,omitempty"`
	Risk            []generate.RiskSample      `json:"risk,omitempty"`
	ActiveTimepoint cohort.Timepoint           `json:"active_timepoint"`
	ActiveSample    *generate.TimepointSample  `json:"active_sample,omitempty"`
	ActiveRisk      *generate.RiskSample       `json:"active_risk,omitempty"`
	Interpretation  string                     `json:"interpretation,omitempty"`
	Placeholder     *navigation.Placeholder    `json:"placeholder,omitempty"`
}

// Patient builds the patient story for id at the active timepoint.
func (s *DashboardService) Patient(seed uint64, id string, tp cohort.Timepoint) PatientPayload {
	if id == "" {
		p := navigation.PatientPlaceholder()
		return PatientPayload{ActiveTimepoint: tp, Placeholder: &p}
	}

	patient := cohort.LookupPatient(id)
	timeline := s.Timeline(seed, id)
	risk := s.Risk(seed, id)

	out := PatientPayload{
		Patient:         &patient,
		Timeline:        timeline,
		Risk:            risk,
		ActiveTimepoint: tp,
	}
	if sample, ok := stats.SelectTimepoint(timeline, tp); ok {
		out.ActiveSample = &sample
	}
	if r, ok := stats.SelectTimepoint(risk, tp); ok {
		out.ActiveRisk = &r
		out.Interpretation = r.Band.Interpretation()
	}
	return out
}

// AtlasPayload is the content of the gene expression atlas.
type AtlasPayload struct {
	Gene            cohort.Gene          `json:"gene"`
	GeneDescription string               `json:"gene_description"`
	Tissue          cohort.TissueFilter  `json:"tissue"`
	Dataset         cohort.Dataset       `json:"dataset"`
	Heatmap         stats.HeatmapSummary `json:"heatmap"`
	Violin          []generate.Sample    `json:"violin"`
	ViolinStats     []stats.TissueStats  `json:"violin_stats"`
	HighestTissue   *stats.TissueStats   `json:"highest_tissue,omitempty"`
	ContextPatient  *cohort.Patient      `json:"context_patient,omitempty"`
}

// Atlas builds the gene expression atlas. contextPatient, when set, is shown
// alongside for reference.
func (s *DashboardService) Atlas(seed uint64, gene cohort.Gene, tissue cohort.TissueFilter, dataset cohort.Dataset, contextPatient string) AtlasPayload {
	records := stats.FilterHeatmap(s.ExpressionMatrix(seed, gene), tissue, dataset)
	samples := s.ViolinSamples(seed, gene, tissue)
	groups := stats.ViolinByTissue(samples)

	out := AtlasPayload{
		Gene:            gene,
		GeneDescription: gene.Description(),
		Tissue:          tissue,
		Dataset:         dataset,
		Heatmap:         stats.SummarizeHeatmap(records),
		Violin:          samples,
		ViolinStats:     groups,
	}
	if top, ok := stats.HighestExpressionTissue(groups); ok {
		out.HighestTissue = &top
	}
	if contextPatient != "" {
		p := cohort.LookupPatient(contextPatient)
		out.ContextPatient = &p
	}
	return out
}

// ViewPayload is everything a client needs to draw the active view.
type ViewPayload struct {
	View    navigation.View           `json:"view"`
	Label   string                    `json:"label"`
	Seed    uint64                    `json:"seed"`
	State   navigation.SelectionState `json:"state"`
	Tabs    []navigation.Tab          `json:"tabs"`
	Cohort  *CohortPayload            `json:"cohort,omitempty"`
	Patient *PatientPayload           `json:"patient,omitempty"`
	Atlas   *AtlasPayload             `json:"atlas,omitempty"`
}

// View builds the payload of the state's active view.
func (s *DashboardService) View(state navigation.SelectionState, tabs []navigation.Tab, hovered string, seed uint64) ViewPayload {
	out := ViewPayload{
		View:  state.ActiveView,
		Label: state.ActiveView.Label(),
		Seed:  seed,
		State: state,
		Tabs:  tabs,
	}
	switch state.ActiveView {
	case navigation.PatientView:
		p := s.Patient(seed, state.SelectedPatient, state.SelectedTimepoint)
		out.Patient = &p
	case navigation.AtlasView:
		a := s.Atlas(seed, state.SelectedGene, state.SelectedTissue, state.SelectedDataset, state.SelectedPatient)
		out.Atlas = &a
	default:
		c := s.Cohort(seed, state.CohortGene, state.ExpressionRange, state.OutcomeFilter)
		c.Hovered = hovered
		out.Cohort = &c
	}
	return out
}

// Encode returns the JSON encoding of build(), memoised in the query cache
// under (endpoint, params, seed).
func (s *DashboardService) Encode(endpoint string, params cache.Params, seed uint64, build func() interface{}) ([]byte, error) {
	key := cache.QueryKey(endpoint, params, seed)
	if s.cache != nil {
		if data, ok := s.cache.GetQuery(key); ok {
			return data, nil
		}
	}

	data, err := json.Marshal(build())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", endpoint, err)
	}
	if s.cache != nil {
		s.cache.SetQuery(key, data)
	}
	return data, nil
}
