package generate

import (
	"math/rand/v2"

	"github.com/cohortscope/server/internal/cohort"
)

// trend is a noisy linear series: Base + Slope*step + U(0,Noise).
type trend struct {
	Base, Slope, Noise float64
}

func (t trend) at(rng *rand.Rand, step int) float64 {
	return t.Base + t.Slope*float64(step) + rng.Float64()*t.Noise
}

// expressionTrends holds the per-outcome trajectory of each timeline gene.
// Durable responders gain CD8A while exhaustion markers fall; early relapse
// runs the other way.
var expressionTrends = map[cohort.Outcome]map[cohort.Gene]trend{
	cohort.Durable: {
		cohort.CD8A:   {40, 8, 10},
		cohort.PDCD1:  {60, -5, 8},
		cohort.LAG3:   {45, -4, 6},
		cohort.HAVCR2: {50, -6, 7},
		cohort.TIGIT:  {55, -3, 5},
	},
	cohort.EarlyRelapse: {
		cohort.CD8A:   {60, -6, 8},
		cohort.PDCD1:  {40, 7, 10},
		cohort.LAG3:   {35, 5, 8},
		cohort.HAVCR2: {30, 8, 9},
		cohort.TIGIT:  {45, 4, 6},
	},
}

// TimepointSample is the timeline panel measured at one timepoint.
type TimepointSample struct {
	cohort.Timepoint
	Expression map[cohort.Gene]float64 `json:"expression"`
}

// Timeline draws the longitudinal expression of the timeline gene panel for
// a patient. Unknown patients follow the durable trajectory.
func Timeline(rng *rand.Rand, patientID string) []TimepointSample {
	trends := expressionTrends[cohort.OutcomeOf(patientID)]

	out := make([]TimepointSample, 0, len(cohort.Timepoints))
	for step, tp := range cohort.Timepoints {
		values := make(map[cohort.Gene]float64, len(cohort.TimelineGenes))
		for _, g := range cohort.TimelineGenes {
			values[g] = clampPct(trends[g].at(rng, step))
		}
		out = append(out, TimepointSample{Timepoint: tp, Expression: values})
	}
	return out
}

type riskTrends struct {
	Low, Medium, High trend
}

var relapseRiskTrends = map[cohort.Outcome]riskTrends{
	cohort.Durable:      {Low: trend{30, 15, 10}, Medium: trend{50, -8, 8}, High: trend{20, -7, 5}},
	cohort.EarlyRelapse: {Low: trend{60, -12, 8}, Medium: trend{25, 5, 6}, High: trend{15, 10, 8}},
}

// Risk weights of the overall score.
const (
	lowRiskWeight    = 0.1
	mediumRiskWeight = 0.5
	highRiskWeight   = 0.9
)

// RiskSample is the relapse risk decomposition at one timepoint.
type RiskSample struct {
	cohort.Timepoint
	LowRisk    float64         `json:"low_risk"`
	MediumRisk float64         `json:"medium_risk"`
	HighRisk   float64         `json:"high_risk"`
	RiskScore  float64         `json:"risk_score"`
	Band       cohort.RiskBand `json:"band"`
}

// Risk draws the relapse risk series for a patient. The three components
// are floored at zero and normalised to sum to 100 at every timepoint.
func Risk(rng *rand.Rand, patientID string) []RiskSample {
	t := relapseRiskTrends[cohort.OutcomeOf(patientID)]

	out := make([]RiskSample, 0, len(cohort.Timepoints))
	for step, tp := range cohort.Timepoints {
		low := clamp(t.Low.at(rng, step), 0, 100)
		medium := clamp(t.Medium.at(rng, step), 0, 100)
		high := clamp(t.High.at(rng, step), 0, 100)

		total := low + medium + high
		if total == 0 {
			low, medium, high, total = 1, 1, 1, 3
		}
		low = low / total * 100
		medium = medium / total * 100
		high = 100 - low - medium
		if high < 0 {
			high = 0
		}

		score := clampPct(low*lowRiskWeight + medium*mediumRiskWeight + high*highRiskWeight)
		out = append(out, RiskSample{
			Timepoint:  tp,
			LowRisk:    low,
			MediumRisk: medium,
			HighRisk:   high,
			RiskScore:  score,
			Band:       cohort.ClassifyRisk(score),
		})
	}
	return out
}
