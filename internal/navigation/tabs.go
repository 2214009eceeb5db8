package navigation

// Tab is one entry of the view switcher.
type Tab struct {
	View    View   `json:"view"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Active  bool   `json:"active"`
}

// Tabs returns the switcher in display order. The patient tab is disabled
// until a patient is selected.
func (c *Coordinator) Tabs() []Tab {
	tabs := make([]Tab, 0, len(Views))
	for _, v := range Views {
		tabs = append(tabs, Tab{
			View:    v,
			Label:   v.Label(),
			Enabled: v != PatientView || c.state.HasPatient(),
			Active:  v == c.state.ActiveView,
		})
	}
	return tabs
}

// Placeholder is shown in place of a view that has nothing to render.
type Placeholder struct {
	Message     string `json:"message"`
	ActionLabel string `json:"action_label"`
	Target      View   `json:"target"`
}

// PatientPlaceholder is the prompt of the patient view when no patient is
// selected.
func PatientPlaceholder() Placeholder {
	return Placeholder{
		Message:     "Select a patient from the Cohort Overview to view their story",
		ActionLabel: "Go to Cohort Overview",
		Target:      CohortView,
	}
}

// Callbacks are the hooks the views invoke. Each is bound to a coordinator
// and forwards to the matching transition.
type Callbacks struct {
	OnPatientSelect  func(patientID string)
	OnReturnToCohort func()
	OnGeneSelect     func(gene string)
	// OnPatientHover receives "" when the pointer leaves every patient.
	OnPatientHover func(patientID string)
}

// Callbacks binds the view hooks to c.
func (c *Coordinator) Callbacks() Callbacks {
	return Callbacks{
		OnPatientSelect:  func(id string) { c.SelectPatient(id) },
		OnReturnToCohort: func() { c.ReturnToCohort() },
		OnGeneSelect:     func(g string) { c.SelectGene(g) },
		OnPatientHover:   c.HoverPatient,
	}
}
