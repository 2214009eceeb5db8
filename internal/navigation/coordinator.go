package navigation

import (
	"strings"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

// Action names a state transition.
type Action string

const (
	ActionSelectPatient      Action = "select_patient"
	ActionReturnToCohort     Action = "return_to_cohort"
	ActionSelectGene         Action = "select_gene"
	ActionSwitchView         Action = "switch_view"
	ActionSetCohortGene      Action = "set_cohort_gene"
	ActionSetOutcomeFilter   Action = "set_outcome_filter"
	ActionSetExpressionRange Action = "set_expression_range"
	ActionSetTissue          Action = "set_tissue"
	ActionSetDataset         Action = "set_dataset"
	ActionSetTimepoint       Action = "set_timepoint"
)

// Redraws reports whether views must be regenerated after a. Moving the
// timepoint only re-reads the current series, and the outcome filter only
// re-aggregates the cohort, so both keep the existing draw.
func (a Action) Redraws() bool {
	switch a {
	case ActionSetTimepoint, ActionSetOutcomeFilter:
		return false
	}
	return true
}

// Event describes an accepted transition and the state it produced.
type Event struct {
	Action Action
	State  SelectionState
}

// Observer is notified after every accepted transition.
type Observer func(Event)

// Coordinator is the single owner of a SelectionState. It is not safe for
// concurrent use; callers serialise access per session.
type Coordinator struct {
	state     SelectionState
	hovered   string
	observers map[int]Observer
	nextID    int
}

// NewCoordinator returns a coordinator holding DefaultState.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		state:     DefaultState(),
		observers: make(map[int]Observer),
	}
}

// State returns a snapshot of the current selection.
func (c *Coordinator) State() SelectionState {
	return c.state.clone()
}

// Subscribe registers fn and returns a function that removes it.
func (c *Coordinator) Subscribe(fn Observer) func() {
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

func (c *Coordinator) commit(a Action) {
	if len(c.observers) == 0 {
		return
	}
	ev := Event{Action: a, State: c.state.clone()}
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.observers[id]; ok {
			fn(ev)
		}
	}
}

// SelectPatient focuses the patient story on id. Blank ids are ignored.
// The timepoint returns to baseline for the newly selected patient.
func (c *Coordinator) SelectPatient(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	c.state.SelectedPatient = id
	c.state.ActiveView = PatientView
	c.state.SelectedTimepoint = cohort.DefaultTimepoint
	c.state.Breadcrumb = []string{CohortLabel, patientCrumb(id)}
	c.commit(ActionSelectPatient)
	return true
}

// ReturnToCohort clears the patient and shows the cohort overview.
func (c *Coordinator) ReturnToCohort() bool {
	c.state.SelectedPatient = ""
	c.state.ActiveView = CohortView
	c.state.Breadcrumb = []string{CohortLabel}
	c.commit(ActionReturnToCohort)
	return true
}

// SelectGene applies gene everywhere and routes to the cohort view. The
// breadcrumb records that the user arrived from the atlas. Blank genes are
// ignored.
func (c *Coordinator) SelectGene(gene string) bool {
	g, ok := normalizeGene(gene)
	if !ok {
		return false
	}
	c.state.SelectedGene = g
	c.state.CohortGene = g
	c.state.ActiveView = CohortView
	c.state.Breadcrumb = []string{AtlasLabel, CohortLabel, geneCrumb(g)}
	c.commit(ActionSelectGene)
	return true
}

// SwitchView activates a tab and rebuilds the breadcrumb from the current
// selection. The patient tab is unreachable until a patient is selected;
// such requests, and unknown views, report false and change nothing.
func (c *Coordinator) SwitchView(v View) bool {
	switch v {
	case CohortView:
		if c.state.HasPatient() {
			c.state.Breadcrumb = []string{CohortLabel, patientCrumb(c.state.SelectedPatient)}
		} else {
			c.state.Breadcrumb = []string{CohortLabel}
		}
	case PatientView:
		if !c.state.HasPatient() {
			return false
		}
		c.state.Breadcrumb = []string{CohortLabel, patientCrumb(c.state.SelectedPatient)}
	case AtlasView:
		c.state.Breadcrumb = []string{AtlasLabel}
	default:
		return false
	}
	c.state.ActiveView = v
	c.commit(ActionSwitchView)
	return true
}

// SetCohortGene recolours the cohort embedding without touching the
// selected gene of the other views.
func (c *Coordinator) SetCohortGene(gene string) bool {
	g, ok := normalizeGene(gene)
	if !ok {
		return false
	}
	c.state.CohortGene = g
	c.commit(ActionSetCohortGene)
	return true
}

func (c *Coordinator) SetOutcomeFilter(f cohort.OutcomeFilter) bool {
	c.state.OutcomeFilter = f
	c.commit(ActionSetOutcomeFilter)
	return true
}

// SetExpressionRange clamps r to [0,100] and orders its bounds.
func (c *Coordinator) SetExpressionRange(r generate.ExpressionRange) bool {
	c.state.ExpressionRange = r.Normalize()
	c.commit(ActionSetExpressionRange)
	return true
}

func (c *Coordinator) SetTissue(f cohort.TissueFilter) bool {
	c.state.SelectedTissue = f
	c.commit(ActionSetTissue)
	return true
}

func (c *Coordinator) SetDataset(d cohort.Dataset) bool {
	if d == "" {
		d = cohort.DefaultDataset
	}
	c.state.SelectedDataset = d
	c.commit(ActionSetDataset)
	return true
}

func (c *Coordinator) SetTimepoint(tp cohort.Timepoint) bool {
	c.state.SelectedTimepoint = tp
	c.commit(ActionSetTimepoint)
	return true
}

// Hovered is the patient currently highlighted, or "".
func (c *Coordinator) Hovered() string { return c.hovered }

// HoverPatient highlights id across charts; "" clears the highlight.
// Hovering is presentation state and never notifies observers.
func (c *Coordinator) HoverPatient(id string) {
	c.hovered = strings.TrimSpace(id)
}

// normalizeGene canonicalises known genes and passes unknown ones through
// unchanged so the generators can apply their fallback tables.
func normalizeGene(s string) (cohort.Gene, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	g, _ := cohort.ParseGene(s)
	return g, true
}
