// Package navigation owns the cross-view selection state of a dashboard
// session and the rules by which an action in one view updates the others.
package navigation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

// View identifies one of the three dashboard tabs.
type View string

const (
	CohortView  View = "cohort"
	PatientView View = "patient"
	AtlasView   View = "atlas"
)

// Views lists the tabs in display order.
var Views = []View{CohortView, PatientView, AtlasView}

// ErrUnknownView is returned when a view name is not one of Views.
var ErrUnknownView = errors.New("unknown view")

// ParseView resolves a view name.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case CohortView, PatientView, AtlasView:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Breadcrumb labels.
const (
	CohortLabel  = "Cohort Overview"
	PatientLabel = "Patient Story"
	AtlasLabel   = "Gene Expression Atlas"
)

// Label is the tab title of the view.
func (v View) Label() string {
	switch v {
	case PatientView:
		return PatientLabel
	case AtlasView:
		return AtlasLabel
	default:
		return CohortLabel
	}
}

// SelectionState is everything the views read to decide what to draw.
// Only a Coordinator mutates it.
type SelectionState struct {
	ActiveView        View                     `json:"active_view"`
	SelectedPatient   string                   `json:"selected_patient,omitempty"`
	SelectedGene      cohort.Gene              `json:"selected_gene"`
	SelectedTissue    cohort.TissueFilter      `json:"selected_tissue"`
	SelectedDataset   cohort.Dataset           `json:"selected_dataset"`
	SelectedTimepoint cohort.Timepoint         `json:"selected_timepoint"`
	ExpressionRange   generate.ExpressionRange `json:"expression_range"`
	OutcomeFilter     cohort.OutcomeFilter     `json:"outcome_filter"`
	// CohortGene is the gene colouring the cohort embedding. It follows
	// SelectedGene when a gene is picked in the atlas and can be changed
	// locally in the cohort view.
	CohortGene cohort.Gene `json:"cohort_gene"`
	Breadcrumb []string    `json:"breadcrumb"`
}

// DefaultState is the state of a fresh session.
func DefaultState() SelectionState {
	return SelectionState{
		ActiveView:        CohortView,
		SelectedGene:      cohort.DefaultGene,
		SelectedTissue:    cohort.AllTissuesFilter,
		SelectedDataset:   cohort.DefaultDataset,
		SelectedTimepoint: cohort.DefaultTimepoint,
		ExpressionRange:   generate.FullRange,
		OutcomeFilter:     cohort.AllOutcomes,
		CohortGene:        cohort.DefaultGene,
		Breadcrumb:        []string{CohortLabel},
	}
}

// HasPatient reports whether a patient is selected.
func (s SelectionState) HasPatient() bool { return s.SelectedPatient != "" }

// clone returns a copy that shares no slices with s.
func (s SelectionState) clone() SelectionState {
	s.Breadcrumb = append([]string(nil), s.Breadcrumb...)
	return s
}

func patientCrumb(id string) string { return "Patient " + id }

func geneCrumb(g cohort.Gene) string { return "Gene: " + string(g) }
