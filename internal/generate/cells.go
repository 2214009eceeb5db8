package generate

import (
	"fmt"
	"math/rand/v2"

	"github.com/cohortscope/server/internal/cohort"
)

// ExpressionRange is an inclusive [Low, High] window on the 0-100 scale.
type ExpressionRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// FullRange admits every expression value.
var FullRange = ExpressionRange{Low: 0, High: 100}

// Normalize clamps both bounds to [0,100] and orders them.
func (r ExpressionRange) Normalize() ExpressionRange {
	lo, hi := clampPct(r.Low), clampPct(r.High)
	if lo > hi {
		lo, hi = hi, lo
	}
	return ExpressionRange{Low: lo, High: hi}
}

// Contains reports whether v lies inside the window, bounds included.
func (r ExpressionRange) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// Cell is one point of the UMAP-style embedding.
type Cell struct {
	CellID     string         `json:"cell_id"`
	PatientID  string         `json:"patient_id"`
	Outcome    cohort.Outcome `json:"outcome"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Expression float64        `json:"expression"`
}

const (
	minCellsPerPatient = 20
	cellCountSpread    = 50 // counts fall in [20,70)
	gridColumns        = 5
	gridSpacing        = 4.0
	cellJitter         = 3.0 // uniform in [-1.5,1.5]
)

// Cells draws the embedding for the whole roster. Each patient contributes a
// cluster around its grid offset; cells whose expression falls outside window
// are discarded before they are positioned. The gene only labels the draw:
// expression is uniform regardless of it.
func Cells(rng *rand.Rand, gene cohort.Gene, window ExpressionRange) []Cell {
	out := make([]Cell, 0, len(cohort.Roster)*(minCellsPerPatient+cellCountSpread/2))

	for i, p := range cohort.Roster {
		count := minCellsPerPatient + rng.IntN(cellCountSpread)
		baseX := float64(i%gridColumns)*gridSpacing + rng.Float64()*2 - 1
		baseY := float64(i/gridColumns)*gridSpacing + rng.Float64()*2 - 1

		for c := 0; c < count; c++ {
			expression := rng.Float64() * 100
			if !window.Contains(expression) {
				continue
			}
			out = append(out, Cell{
				CellID:     fmt.Sprintf("%s_cell_%d", p.ID, c),
				PatientID:  p.ID,
				Outcome:    p.Outcome,
				X:          baseX + (rng.Float64()-0.5)*cellJitter,
				Y:          baseY + (rng.Float64()-0.5)*cellJitter,
				Expression: expression,
			})
		}
	}
	return out
}

// CountByPatient tallies emitted cells per patient in roster order.
func CountByPatient(cells []Cell) map[string]int {
	counts := make(map[string]int, len(cohort.Roster))
	for _, c := range cells {
		counts[c.PatientID]++
	}
	return counts
}
