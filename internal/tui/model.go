// Package tui is a terminal front end for the dashboard. It drives the same
// navigation coordinator and payload builders as the HTTP API, without a
// server in between.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/navigation"
	"github.com/cohortscope/server/internal/service"
)

// draw holds the seed the current payload was built with. It is shared with
// the coordinator observer, which outlives any single Model value.
type draw struct {
	seed uint64
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	coord     *navigation.Coordinator
	views     navigation.Callbacks
	dashboard *service.DashboardService
	seeder    *generate.Seeder
	draw      *draw

	payload service.ViewPayload
	keys    keyMap
	help    help.Model

	rosterCursor int
	geneCursor   int
	width        int
	height       int
	status       string
}

// New creates a model in the default state. A nil seeder draws from a
// time-based sequence.
func New(dashboard *service.DashboardService, seeder *generate.Seeder) Model {
	if dashboard == nil {
		dashboard = service.NewDashboardService(nil, nil)
	}
	if seeder == nil {
		seeder = generate.NewSeeder(0)
	}
	m := Model{
		coord:     navigation.NewCoordinator(),
		dashboard: dashboard,
		seeder:    seeder,
		draw:      &draw{seed: seeder.Next()},
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
	m.views = m.coord.Callbacks()
	d, s := m.draw, m.seeder
	m.coord.Subscribe(func(ev navigation.Event) {
		if ev.Action.Redraws() {
			d.seed = s.Next()
		}
	})
	m.views.OnPatientHover(cohort.Roster[0].ID)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// State returns the current selection state.
func (m Model) State() navigation.SelectionState { return m.coord.State() }

// Payload returns the data behind the active view.
func (m Model) Payload() service.ViewPayload { return m.payload }

func (m *Model) refresh() {
	m.payload = m.dashboard.View(m.coord.State(), m.coord.Tabs(), m.coord.Hovered(), m.draw.seed)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.coord.State()
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Cohort):
		m.switchView(navigation.CohortView)
	case key.Matches(msg, m.keys.Patient):
		m.switchView(navigation.PatientView)
	case key.Matches(msg, m.keys.Atlas):
		m.switchView(navigation.AtlasView)
	case key.Matches(msg, m.keys.NextTab):
		m.switchView(nextEnabledTab(m.coord.Tabs(), state.ActiveView))
	case key.Matches(msg, m.keys.Back):
		m.views.OnReturnToCohort()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(state.ActiveView, -1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(state.ActiveView, 1)
	case key.Matches(msg, m.keys.Left):
		m.step(state, -1)
	case key.Matches(msg, m.keys.Right):
		m.step(state, 1)
	case key.Matches(msg, m.keys.Select):
		m.selectUnderCursor(state.ActiveView)
	case key.Matches(msg, m.keys.Outcome) && state.ActiveView == navigation.CohortView:
		m.coord.SetOutcomeFilter(nextOutcomeFilter(state.OutcomeFilter))
	case key.Matches(msg, m.keys.Gene) && state.ActiveView == navigation.CohortView:
		m.coord.SetCohortGene(string(cycle(cohort.AllGenes, state.CohortGene, 1)))
	case key.Matches(msg, m.keys.Dataset) && state.ActiveView == navigation.AtlasView:
		m.coord.SetDataset(cycle(cohort.AllDatasets, state.SelectedDataset, 1))
	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m *Model) switchView(v navigation.View) {
	if !m.coord.SwitchView(v) {
		p := navigation.PatientPlaceholder()
		m.status = p.Message
	}
}

func (m *Model) moveCursor(view navigation.View, delta int) {
	switch view {
	case navigation.CohortView:
		m.rosterCursor = wrap(m.rosterCursor+delta, len(cohort.Roster))
		m.views.OnPatientHover(cohort.Roster[m.rosterCursor].ID)
	case navigation.AtlasView:
		m.geneCursor = wrap(m.geneCursor+delta, len(cohort.AllGenes))
	}
}

// step moves the view-local control left or right: the timepoint in the
// patient view and the tissue filter in the atlas.
func (m *Model) step(state navigation.SelectionState, delta int) {
	switch state.ActiveView {
	case navigation.PatientView:
		m.coord.SetTimepoint(cycle(cohort.Timepoints, state.SelectedTimepoint, delta))
	case navigation.AtlasView:
		m.coord.SetTissue(cycle(tissueFilters(), state.SelectedTissue, delta))
	}
}

func (m *Model) selectUnderCursor(view navigation.View) {
	switch view {
	case navigation.CohortView:
		m.views.OnPatientSelect(cohort.Roster[m.rosterCursor].ID)
	case navigation.AtlasView:
		m.views.OnGeneSelect(string(cohort.AllGenes[m.geneCursor]))
	}
}

func nextEnabledTab(tabs []navigation.Tab, active navigation.View) navigation.View {
	start := 0
	for i, t := range tabs {
		if t.View == active {
			start = i
		}
	}
	for i := 1; i <= len(tabs); i++ {
		t := tabs[(start+i)%len(tabs)]
		if t.Enabled {
			return t.View
		}
	}
	return active
}

func nextOutcomeFilter(f cohort.OutcomeFilter) cohort.OutcomeFilter {
	filters := []cohort.OutcomeFilter{cohort.AllOutcomes}
	for _, o := range cohort.Outcomes {
		filters = append(filters, cohort.OutcomeFilter{Outcome: o})
	}
	return cycle(filters, f, 1)
}

func tissueFilters() []cohort.TissueFilter {
	out := []cohort.TissueFilter{cohort.AllTissuesFilter}
	for _, t := range cohort.AllTissues {
		out = append(out, cohort.TissueFilter{Tissue: t})
	}
	return out
}

// cycle returns the element delta positions after cur, wrapping around.
// An absent cur counts as the first element.
func cycle[T comparable](items []T, cur T, delta int) T {
	idx := 0
	for i, it := range items {
		if it == cur {
			idx = i
			break
		}
	}
	return items[wrap(idx+delta, len(items))]
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
