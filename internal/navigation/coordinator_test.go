package navigation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

func TestDefaultState(t *testing.T) {
	s := NewCoordinator().State()
	assert.Equal(t, CohortView, s.ActiveView)
	assert.Empty(t, s.SelectedPatient)
	assert.Equal(t, cohort.CD8A, s.SelectedGene)
	assert.Equal(t, cohort.CD8A, s.CohortGene)
	assert.True(t, s.SelectedTissue.All())
	assert.Equal(t, cohort.PrimaryCohort, s.SelectedDataset)
	assert.Equal(t, "baseline", s.SelectedTimepoint.Key)
	assert.Equal(t, generate.FullRange, s.ExpressionRange)
	assert.True(t, s.OutcomeFilter.All())
	assert.Equal(t, []string{"Cohort Overview"}, s.Breadcrumb)
}

func TestSelectPatient(t *testing.T) {
	c := NewCoordinator()
	require.True(t, c.SelectPatient("P002"))

	s := c.State()
	assert.Equal(t, PatientView, s.ActiveView)
	assert.Equal(t, "P002", s.SelectedPatient)
	assert.Equal(t, []string{"Cohort Overview", "Patient P002"}, s.Breadcrumb)
}

func TestSelectPatientResetsTimepoint(t *testing.T) {
	c := NewCoordinator()
	c.SelectPatient("P001")
	week8, _ := cohort.ParseTimepoint("week8")
	c.SetTimepoint(week8)
	require.Equal(t, "week8", c.State().SelectedTimepoint.Key)

	c.SelectPatient("P004")
	assert.Equal(t, "baseline", c.State().SelectedTimepoint.Key)
}

func TestSelectPatientBlankIsNoop(t *testing.T) {
	c := NewCoordinator()
	c.SwitchView(AtlasView)
	before := c.State()

	for _, id := range []string{"", "   ", "\t"} {
		assert.False(t, c.SelectPatient(id))
		assert.Equal(t, before, c.State())
	}
}

func TestReturnToCohort(t *testing.T) {
	c := NewCoordinator()
	c.SelectPatient("P003")
	require.True(t, c.ReturnToCohort())

	s := c.State()
	assert.Equal(t, CohortView, s.ActiveView)
	assert.Empty(t, s.SelectedPatient)
	assert.Equal(t, []string{"Cohort Overview"}, s.Breadcrumb)
}

func TestSelectGene(t *testing.T) {
	c := NewCoordinator()
	c.SelectPatient("P005")
	c.SwitchView(AtlasView)
	require.True(t, c.SelectGene("lag3"))

	s := c.State()
	assert.Equal(t, CohortView, s.ActiveView)
	assert.Equal(t, cohort.LAG3, s.SelectedGene)
	assert.Equal(t, cohort.LAG3, s.CohortGene)
	assert.Equal(t, []string{"Gene Expression Atlas", "Cohort Overview", "Gene: LAG3"}, s.Breadcrumb)
	assert.Equal(t, "P005", s.SelectedPatient, "gene selection keeps the patient")
}

func TestSelectGeneFromAnyStateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCoordinator()
		steps := rapid.IntRange(0, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				c.SelectPatient(rapid.SampledFrom([]string{"", "P001", "P002", "P010"}).Draw(t, "patient"))
			case 1:
				c.ReturnToCohort()
			case 2:
				c.SwitchView(rapid.SampledFrom(Views).Draw(t, "view"))
			case 3:
				c.SetCohortGene(string(rapid.SampledFrom(cohort.AllGenes).Draw(t, "cohortGene")))
			case 4:
				c.SelectGene(string(rapid.SampledFrom(cohort.AllGenes).Draw(t, "gene")))
			}
		}

		c.SelectGene("LAG3")
		s := c.State()
		if s.ActiveView != CohortView || s.SelectedGene != cohort.LAG3 {
			t.Fatalf("unexpected state %+v", s)
		}
		want := []string{"Gene Expression Atlas", "Cohort Overview", "Gene: LAG3"}
		if len(s.Breadcrumb) != 3 || s.Breadcrumb[0] != want[0] || s.Breadcrumb[1] != want[1] || s.Breadcrumb[2] != want[2] {
			t.Fatalf("unexpected breadcrumb %v", s.Breadcrumb)
		}
	})
}

func TestSelectGeneBlankIsNoop(t *testing.T) {
	c := NewCoordinator()
	before := c.State()
	assert.False(t, c.SelectGene("  "))
	assert.Equal(t, before, c.State())
}

func TestSwitchViewBreadcrumbs(t *testing.T) {
	tests := []struct {
		name      string
		patient   string
		view      View
		accepted  bool
		wantView  View
		wantCrumb []string
	}{
		{"cohort without patient", "", CohortView, true, CohortView, []string{"Cohort Overview"}},
		{"cohort with patient", "P007", CohortView, true, CohortView, []string{"Cohort Overview", "Patient P007"}},
		{"patient with patient", "P007", PatientView, true, PatientView, []string{"Cohort Overview", "Patient P007"}},
		{"patient without patient", "", PatientView, false, AtlasView, []string{"Gene Expression Atlas"}},
		{"atlas", "P007", AtlasView, true, AtlasView, []string{"Gene Expression Atlas"}},
		{"unknown", "", View("settings"), false, AtlasView, []string{"Gene Expression Atlas"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator()
			if tt.patient != "" {
				c.SelectPatient(tt.patient)
			}
			c.SwitchView(AtlasView)

			assert.Equal(t, tt.accepted, c.SwitchView(tt.view))
			s := c.State()
			assert.Equal(t, tt.wantView, s.ActiveView)
			assert.Equal(t, tt.wantCrumb, s.Breadcrumb)
		})
	}
}

func TestPatientViewUnreachableProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCoordinator()
		for i := 0; i < 30; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				c.SelectPatient(rapid.SampledFrom([]string{"", " ", "P002"}).Draw(t, "patient"))
			case 1:
				c.ReturnToCohort()
			case 2:
				c.SwitchView(rapid.SampledFrom(Views).Draw(t, "view"))
			case 3:
				c.SelectGene("TIGIT")
			}
			s := c.State()
			if s.ActiveView == PatientView && !s.HasPatient() {
				t.Fatalf("patient view active without a patient: %+v", s)
			}
		}
	})
}

func TestLocalSettersLeaveBreadcrumb(t *testing.T) {
	c := NewCoordinator()
	c.SelectPatient("P001")
	c.SwitchView(CohortView)
	before := c.State()

	c.SetCohortGene("PDCD1")
	c.SetOutcomeFilter(cohort.ParseOutcomeFilter("early-relapse"))
	c.SetExpressionRange(generate.ExpressionRange{Low: 80, High: 20})
	c.SetTissue(cohort.ParseTissueFilter("blood"))
	c.SetDataset(cohort.GTExReference)

	s := c.State()
	assert.Equal(t, before.Breadcrumb, s.Breadcrumb)
	assert.Equal(t, before.ActiveView, s.ActiveView)
	assert.Equal(t, before.SelectedGene, s.SelectedGene, "cohort gene is local")
	assert.Equal(t, cohort.PDCD1, s.CohortGene)
	assert.Equal(t, cohort.EarlyRelapse, s.OutcomeFilter.Outcome)
	assert.Equal(t, generate.ExpressionRange{Low: 20, High: 80}, s.ExpressionRange)
	assert.Equal(t, cohort.Blood, s.SelectedTissue.Tissue)
	assert.Equal(t, cohort.GTExReference, s.SelectedDataset)
}

func TestSetExpressionRangeClamps(t *testing.T) {
	c := NewCoordinator()
	c.SetExpressionRange(generate.ExpressionRange{Low: -10, High: 140})
	assert.Equal(t, generate.FullRange, c.State().ExpressionRange)
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	c := NewCoordinator()
	s := c.State()
	s.Breadcrumb[0] = "tampered"
	assert.Equal(t, "Cohort Overview", c.State().Breadcrumb[0])
}

func TestSubscribe(t *testing.T) {
	c := NewCoordinator()
	var events []Event
	unsubscribe := c.Subscribe(func(e Event) { events = append(events, e) })

	c.SelectPatient("P002")
	c.SelectPatient("")       // ignored
	c.SwitchView(PatientView) // accepted
	c.ReturnToCohort()
	c.SwitchView(PatientView) // ignored
	c.HoverPatient("P002")    // not a transition

	require.Len(t, events, 3)
	assert.Equal(t, ActionSelectPatient, events[0].Action)
	assert.Equal(t, "P002", events[0].State.SelectedPatient)
	assert.Equal(t, ActionSwitchView, events[1].Action)
	assert.Equal(t, ActionReturnToCohort, events[2].Action)

	unsubscribe()
	c.SelectGene("CTLA4")
	assert.Len(t, events, 3)
}

func TestActionRedraws(t *testing.T) {
	for _, a := range []Action{
		ActionSelectPatient, ActionReturnToCohort, ActionSelectGene, ActionSwitchView,
		ActionSetCohortGene, ActionSetExpressionRange, ActionSetTissue, ActionSetDataset,
	} {
		assert.True(t, a.Redraws(), a)
	}
	assert.False(t, ActionSetTimepoint.Redraws())
	assert.False(t, ActionSetOutcomeFilter.Redraws())
}

func TestTabs(t *testing.T) {
	c := NewCoordinator()
	tabs := c.Tabs()
	require.Len(t, tabs, 3)
	assert.Equal(t, "Cohort Overview", tabs[0].Label)
	assert.True(t, tabs[0].Active)
	assert.False(t, tabs[1].Enabled, "patient tab disabled without a patient")
	assert.True(t, tabs[2].Enabled)

	c.SelectPatient("P009")
	tabs = c.Tabs()
	assert.True(t, tabs[1].Enabled)
	assert.True(t, tabs[1].Active)
	assert.False(t, tabs[0].Active)
}

func TestPatientPlaceholder(t *testing.T) {
	p := PatientPlaceholder()
	assert.Equal(t, "Select a patient from the Cohort Overview to view their story", p.Message)
	assert.Equal(t, "Go to Cohort Overview", p.ActionLabel)
	assert.Equal(t, CohortView, p.Target)
}

func TestCallbacks(t *testing.T) {
	c := NewCoordinator()
	cb := c.Callbacks()

	cb.OnPatientSelect("P006")
	assert.Equal(t, "P006", c.State().SelectedPatient)

	cb.OnPatientHover("P003")
	assert.Equal(t, "P003", c.Hovered())
	assert.Equal(t, "P006", c.State().SelectedPatient, "hover does not select")
	cb.OnPatientHover("")
	assert.Empty(t, c.Hovered())

	cb.OnGeneSelect("HAVCR2")
	assert.Equal(t, cohort.HAVCR2, c.State().SelectedGene)

	cb.OnReturnToCohort()
	assert.Empty(t, c.State().SelectedPatient)
}

func TestParseView(t *testing.T) {
	v, err := ParseView(" Atlas ")
	require.NoError(t, err)
	assert.Equal(t, AtlasView, v)

	_, err = ParseView("settings")
	assert.True(t, errors.Is(err, ErrUnknownView))
}
