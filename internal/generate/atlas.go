package generate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cohortscope/server/internal/cohort"
)

// ExpressionRecord is one heatmap cell: a gene measured in a tissue of a dataset.
type ExpressionRecord struct {
	Gene       cohort.Gene    `json:"gene"`
	Tissue     cohort.Tissue  `json:"tissue"`
	Dataset    cohort.Dataset `json:"dataset"`
	Expression float64        `json:"expression"`
}

// heatmapNoise is the width of the uniform noise band, centred on zero.
const heatmapNoise = 20.0

// ExpressionMatrix draws the full tissue x dataset cross product for gene,
// tissue-major. Each value is base x multiplier plus U(-10,10), clamped.
func ExpressionMatrix(rng *rand.Rand, gene cohort.Gene) []ExpressionRecord {
	out := make([]ExpressionRecord, 0, len(cohort.AllTissues)*len(cohort.AllDatasets))
	for _, tissue := range cohort.AllTissues {
		base := cohort.BaseExpression(gene, tissue)
		for _, ds := range cohort.AllDatasets {
			noise := (rng.Float64() - 0.5) * heatmapNoise
			out = append(out, ExpressionRecord{
				Gene:       gene,
				Tissue:     tissue,
				Dataset:    ds,
				Expression: clampPct(base*ds.Multiplier() + noise),
			})
		}
	}
	return out
}

// Sample is one violin-plot observation.
type Sample struct {
	SampleID   string        `json:"sample_id"`
	Tissue     cohort.Tissue `json:"tissue"`
	Expression float64       `json:"expression"`
}

// SamplesPerTissue is the number of violin observations drawn per tissue.
const SamplesPerTissue = 50

// ViolinSamples draws SamplesPerTissue normal observations per tissue in the
// filter, using the Box-Muller transform and clamping to [0,100].
func ViolinSamples(rng *rand.Rand, gene cohort.Gene, filter cohort.TissueFilter) []Sample {
	tissues := cohort.ViolinTissues
	if !filter.All() {
		tissues = []cohort.Tissue{filter.Tissue}
	}

	out := make([]Sample, 0, len(tissues)*SamplesPerTissue)
	for _, tissue := range tissues {
		dist := cohort.SampleDistribution(gene, tissue)
		for i := 0; i < SamplesPerTissue; i++ {
			z := boxMuller(rng)
			out = append(out, Sample{
				SampleID:   fmt.Sprintf("%s_%d", tissue, i),
				Tissue:     tissue,
				Expression: clampPct(dist.Mean + z*dist.Std),
			})
		}
	}
	return out
}

// boxMuller returns one standard normal deviate. u1 is drawn from (0,1] so the
// logarithm stays finite.
func boxMuller(rng *rand.Rand) float64 {
	u1 := 1 - rng.Float64()
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
