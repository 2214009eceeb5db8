// Package stats derives the summaries shown next to each chart: outcome
// groups, heatmap filtering, violin statistics and the outcome contrast
// tests.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/cohortscope/server/internal/cohort"
)

// OutcomeGroup aggregates the patients sharing an outcome.
type OutcomeGroup struct {
	Outcome          cohort.Outcome   `json:"outcome"`
	Label            string           `json:"label"`
	Count            int              `json:"count"`
	AvgResponseScore float64          `json:"avg_response_score"`
	AvgSurvival      float64          `json:"avg_survival"`
	Patients         []cohort.Patient `json:"patients"`
}

// GroupByOutcome partitions patients by outcome after applying filter.
// Groups come back in catalog order (durable first) and empty groups are
// omitted.
func GroupByOutcome(patients []cohort.Patient, filter cohort.OutcomeFilter) []OutcomeGroup {
	groups := make([]OutcomeGroup, 0, len(cohort.Outcomes))
	for _, outcome := range cohort.Outcomes {
		if !filter.Matches(outcome) {
			continue
		}

		var members []cohort.Patient
		var scores, survival []float64
		for _, p := range patients {
			if p.Outcome != outcome {
				continue
			}
			members = append(members, p)
			scores = append(scores, p.ResponseScore)
			survival = append(survival, p.SurvivalMonths)
		}
		if len(members) == 0 {
			continue
		}

		groups = append(groups, OutcomeGroup{
			Outcome:          outcome,
			Label:            outcome.Label(),
			Count:            len(members),
			AvgResponseScore: mean(scores),
			AvgSurvival:      mean(survival),
			Patients:         members,
		})
	}
	return groups
}

// mean is the arithmetic mean, 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
