package cohort

import "strings"

// Outcome is the clinical response category of a patient.
type Outcome string

const (
	Durable      Outcome = "durable"
	EarlyRelapse Outcome = "early-relapse"
)

// Outcomes in display order.
var Outcomes = []Outcome{Durable, EarlyRelapse}

// Label returns the human-readable outcome name.
func (o Outcome) Label() string {
	switch o {
	case Durable:
		return "Durable Response"
	case EarlyRelapse:
		return "Early Relapse"
	}
	return "Unknown"
}

// OutcomeFilter restricts the cohort to one outcome, or none when empty.
type OutcomeFilter struct {
	Outcome Outcome
}

// AllOutcomes is the unrestricted filter.
var AllOutcomes = OutcomeFilter{}

// All reports whether the filter is unrestricted.
func (f OutcomeFilter) All() bool { return f.Outcome == "" }

// Matches reports whether o passes the filter.
func (f OutcomeFilter) Matches(o Outcome) bool { return f.All() || f.Outcome == o }

func (f OutcomeFilter) String() string {
	if f.All() {
		return "all"
	}
	return string(f.Outcome)
}

func (f OutcomeFilter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *OutcomeFilter) UnmarshalText(b []byte) error {
	*f = ParseOutcomeFilter(string(b))
	return nil
}

// ParseOutcomeFilter accepts "all", "durable" or "early-relapse"; anything
// else is treated as "all".
func ParseOutcomeFilter(s string) OutcomeFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Durable):
		return OutcomeFilter{Outcome: Durable}
	case string(EarlyRelapse):
		return OutcomeFilter{Outcome: EarlyRelapse}
	}
	return AllOutcomes
}

// Patient is one roster entry with its fixed clinical attributes.
type Patient struct {
	ID             string  `json:"patient_id"`
	Outcome        Outcome `json:"outcome"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	Stage          string  `json:"stage"`
	ClusterID      string  `json:"cluster_id"`
	TreatmentArm   string  `json:"treatment_arm"`
	ResponseScore  float64 `json:"response_score"`
	SurvivalMonths float64 `json:"survival_months"`
	Known          bool    `json:"known"`
}

// Roster is the static ten-patient cohort. Outcome alternates by the parity
// of the numeric suffix: odd patients respond durably.
var Roster = []Patient{
	{ID: "P001", Outcome: Durable, Age: 65, Gender: "M", Stage: "IIIA", ClusterID: "C1", TreatmentArm: "Immunotherapy", ResponseScore: 85, SurvivalMonths: 24, Known: true},
	{ID: "P002", Outcome: EarlyRelapse, Age: 58, Gender: "F", Stage: "IV", ClusterID: "C3", TreatmentArm: "Combination", ResponseScore: 25, SurvivalMonths: 6, Known: true},
	{ID: "P003", Outcome: Durable, Age: 72, Gender: "M", Stage: "IIIB", ClusterID: "C1", TreatmentArm: "Immunotherapy", ResponseScore: 78, SurvivalMonths: 22, Known: true},
	{ID: "P004", Outcome: EarlyRelapse, Age: 61, Gender: "F", Stage: "IV", ClusterID: "C2", TreatmentArm: "Chemotherapy", ResponseScore: 32, SurvivalMonths: 8, Known: true},
	{ID: "P005", Outcome: Durable, Age: 69, Gender: "M", Stage: "IIIA", ClusterID: "C1", TreatmentArm: "Combination", ResponseScore: 92, SurvivalMonths: 26, Known: true},
	{ID: "P006", Outcome: EarlyRelapse, Age: 54, Gender: "F", Stage: "IV", ClusterID: "C3", TreatmentArm: "Chemotherapy", ResponseScore: 18, SurvivalMonths: 4, Known: true},
	{ID: "P007", Outcome: Durable, Age: 67, Gender: "M", Stage: "IIIB", ClusterID: "C1", TreatmentArm: "Immunotherapy", ResponseScore: 88, SurvivalMonths: 25, Known: true},
	{ID: "P008", Outcome: EarlyRelapse, Age: 63, Gender: "F", Stage: "IV", ClusterID: "C2", TreatmentArm: "Combination", ResponseScore: 28, SurvivalMonths: 7, Known: true},
	{ID: "P009", Outcome: Durable, Age: 70, Gender: "M", Stage: "IIIA", ClusterID: "C1", TreatmentArm: "Immunotherapy", ResponseScore: 81, SurvivalMonths: 23, Known: true},
	{ID: "P010", Outcome: EarlyRelapse, Age: 56, Gender: "F", Stage: "IV", ClusterID: "C3", TreatmentArm: "Chemotherapy", ResponseScore: 22, SurvivalMonths: 5, Known: true},
}

var rosterIndex = func() map[string]int {
	idx := make(map[string]int, len(Roster))
	for i, p := range Roster {
		idx[p.ID] = i
	}
	return idx
}()

// LookupPatient returns the roster entry for id. Unknown ids get a
// placeholder record with Unknown attributes and a durable outcome.
func LookupPatient(id string) Patient {
	if i, ok := rosterIndex[id]; ok {
		return Roster[i]
	}
	return Patient{
		ID:           id,
		Outcome:      Durable,
		Age:          65,
		Gender:       "Unknown",
		Stage:        "Unknown",
		ClusterID:    "Unknown",
		TreatmentArm: "Unknown",
	}
}

// PatientIndex returns the roster position of id, or -1.
func PatientIndex(id string) int {
	if i, ok := rosterIndex[id]; ok {
		return i
	}
	return -1
}

// OutcomeOf returns the fixed outcome of a patient; unknown patients are durable.
func OutcomeOf(id string) Outcome {
	return LookupPatient(id).Outcome
}
