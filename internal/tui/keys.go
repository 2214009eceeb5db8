package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Cohort  key.Binding
	Patient key.Binding
	Atlas   key.Binding
	NextTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Select  key.Binding
	Back    key.Binding
	Outcome key.Binding
	Gene    key.Binding
	Dataset key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Cohort:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "cohort")),
		Patient: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "patient")),
		Atlas:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "atlas")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:    key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back to cohort")),
		Outcome: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "outcome filter")),
		Gene:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "cohort gene")),
		Dataset: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dataset")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Select, k.Back, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Cohort, k.Patient, k.Atlas, k.NextTab},
		{k.Up, k.Down, k.Left, k.Right, k.Select, k.Back},
		{k.Outcome, k.Gene, k.Dataset, k.Help, k.Quit},
	}
}
