package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Contrast is a two-group comparison of one gene.
type Contrast struct {
	N1       int     `json:"n1"`
	N2       int     `json:"n2"`
	Mean1    float64 `json:"mean1"`
	Mean2    float64 `json:"mean2"`
	Log2FC   float64 `json:"log2fc"`
	PWelch   float64 `json:"p_welch"`
	PRanksum float64 `json:"p_ranksum"`
}

// Compare runs both tests on group1 against group2.
func Compare(group1, group2 []float64) Contrast {
	c := Contrast{
		N1:       len(group1),
		N2:       len(group2),
		Mean1:    mean(group1),
		Mean2:    mean(group2),
		PWelch:   WelchTTest(group1, group2),
		PRanksum: MannWhitneyU(group1, group2),
	}
	c.Log2FC = Log2FoldChange(c.Mean1, c.Mean2)
	return c
}

// Log2FoldChange of mean1 over mean2 with a small pseudocount. Both means
// at zero give 0.
func Log2FoldChange(mean1, mean2 float64) float64 {
	const eps = 1e-9
	if mean1 <= eps && mean2 <= eps {
		return 0
	}
	return math.Log2((mean1 + eps) / (mean2 + eps))
}

// WelchTTest returns the two-tailed p-value of Welch's unequal-variance
// t-test. Groups smaller than two give 1.
func WelchTTest(a, b []float64) float64 {
	n1, n2 := len(a), len(b)
	if n1 < 2 || n2 < 2 {
		return 1.0
	}
	mean1, var1 := stat.MeanVariance(a, nil)
	mean2, var2 := stat.MeanVariance(b, nil)

	se1 := var1 / float64(n1)
	se2 := var2 / float64(n2)
	seDiff := math.Sqrt(se1 + se2)
	if seDiff < 1e-15 {
		if mean1 == mean2 {
			return 1.0
		}
		return 0.0
	}

	t := (mean1 - mean2) / seDiff

	// Welch-Satterthwaite degrees of freedom.
	num := (se1 + se2) * (se1 + se2)
	den := se1*se1/float64(n1-1) + se2*se2/float64(n2-1)
	if den < 1e-15 {
		return 1.0
	}
	df := num / den
	if df < 1 {
		df = 1
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampP(2 * dist.CDF(-math.Abs(t)))
}

// MannWhitneyU returns the two-tailed p-value of the rank-sum test using the
// normal approximation with tie correction and continuity correction.
func MannWhitneyU(a, b []float64) float64 {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return 1.0
	}

	type entry struct {
		val   float64
		first bool
	}
	combined := make([]entry, 0, n1+n2)
	for _, v := range a {
		combined = append(combined, entry{val: v, first: true})
	}
	for _, v := range b {
		combined = append(combined, entry{val: v})
	}
	sort.Slice(combined, func(i, j int) bool {
		return combined[i].val < combined[j].val
	})

	N := len(combined)
	r1 := 0.0
	tieSum := 0.0
	for i := 0; i < N; {
		j := i
		for j < N && combined[j].val == combined[i].val {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			if combined[k].first {
				r1 += avgRank
			}
		}
		if t := float64(j - i); t > 1 {
			tieSum += t*t*t - t
		}
		i = j
	}

	n1f, n2f, Nf := float64(n1), float64(n2), float64(N)
	u1 := r1 - n1f*(n1f+1)/2
	u := math.Min(u1, n1f*n2f-u1)
	muU := n1f * n2f / 2

	if N < 2 {
		return 1.0
	}
	sigmaU := math.Sqrt(n1f * n2f * ((Nf + 1) - tieSum/(Nf*(Nf-1))) / 12)
	if sigmaU < 1e-10 {
		return 1.0
	}

	z := (u - muU + 0.5) / sigmaU
	return clampP(2 * distuv.UnitNormal.CDF(-math.Abs(z)))
}

// BenjaminiHochberg adjusts p-values for the false discovery rate. The
// result is index-aligned with pvals.
func BenjaminiHochberg(pvals []float64) []float64 {
	n := len(pvals)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return pvals[idx[i]] < pvals[idx[j]]
	})

	fdr := make([]float64, n)
	minP := 1.0
	for i := n - 1; i >= 0; i-- {
		orig := idx[i]
		adjusted := pvals[orig] * float64(n) / float64(i+1)
		if adjusted < minP {
			minP = adjusted
		}
		fdr[orig] = minP
	}
	return fdr
}

func clampP(p float64) float64 {
	if math.IsNaN(p) {
		return 1.0
	}
	return math.Max(0, math.Min(1, p))
}
