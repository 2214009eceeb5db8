package stats

import (
	"sort"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

// ViolinStats summarises one tissue's sample distribution.
type ViolinStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Violin computes order statistics by index into the sorted values: the
// median is element n/2 with no averaging for even n, quartiles are elements
// floor(n*0.25) and floor(n*0.75). An empty input yields all zeros.
func Violin(values []float64) ViolinStats {
	n := len(values)
	if n == 0 {
		return ViolinStats{}
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return ViolinStats{
		N:      n,
		Mean:   mean(sorted),
		Median: sorted[n/2],
		Q1:     sorted[int(float64(n)*0.25)],
		Q3:     sorted[int(float64(n)*0.75)],
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

// TissueStats is the violin summary of one tissue group.
type TissueStats struct {
	Tissue cohort.Tissue `json:"tissue"`
	Stats  ViolinStats   `json:"stats"`
}

// ViolinByTissue groups samples by tissue, in first-seen order, and
// summarises each group.
func ViolinByTissue(samples []generate.Sample) []TissueStats {
	var order []cohort.Tissue
	groups := make(map[cohort.Tissue][]float64)
	for _, s := range samples {
		if _, ok := groups[s.Tissue]; !ok {
			order = append(order, s.Tissue)
		}
		groups[s.Tissue] = append(groups[s.Tissue], s.Expression)
	}

	out := make([]TissueStats, 0, len(order))
	for _, t := range order {
		out = append(out, TissueStats{Tissue: t, Stats: Violin(groups[t])})
	}
	return out
}

// HighestExpressionTissue folds left over groups keeping the tissue with the
// strictly greater mean, so ties go to the earlier group. It reports false
// unless more than one tissue is being compared.
func HighestExpressionTissue(groups []TissueStats) (TissueStats, bool) {
	if len(groups) < 2 {
		return TissueStats{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.Stats.Mean > best.Stats.Mean {
			best = g
		}
	}
	return best, true
}
