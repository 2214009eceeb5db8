package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelchTTestKnownValue(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{6, 7, 8, 9, 10}
	// t = -5, df = 8; scipy.stats.ttest_ind(a, b, equal_var=False) -> p = 0.001052
	p := WelchTTest(a, b)
	assert.InDelta(t, 0.001052, p, 1e-5)
}

func TestWelchTTestDegenerate(t *testing.T) {
	assert.Equal(t, 1.0, WelchTTest([]float64{1}, []float64{1, 2, 3}))
	assert.Equal(t, 1.0, WelchTTest([]float64{2, 2}, []float64{2, 2}))
	assert.Equal(t, 0.0, WelchTTest([]float64{1, 1}, []float64{3, 3}))
}

func TestMannWhitneyUSeparatedGroups(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{6, 7, 8, 9, 10}
	// U = 0, mu = 12.5, sigma = sqrt(25*11/12), z = (0-12.5+0.5)/sigma
	want := 2 * 0.5 * math.Erfc(12/math.Sqrt(25.0*11/12)/math.Sqrt2)
	assert.InDelta(t, want, MannWhitneyU(a, b), 1e-9)
}

func TestMannWhitneyUIdenticalGroups(t *testing.T) {
	p := MannWhitneyU([]float64{5, 5, 5}, []float64{5, 5, 5})
	assert.Equal(t, 1.0, p)
	assert.Equal(t, 1.0, MannWhitneyU(nil, []float64{1}))
}

func TestBenjaminiHochberg(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.5}
	fdr := BenjaminiHochberg(p)
	require.Len(t, fdr, 4)

	// sorted: 0.01(1) 0.03(2) 0.04(3) 0.5(4)
	assert.InDelta(t, 0.04, fdr[0], 1e-12)
	assert.InDelta(t, 0.0533333333, fdr[1], 1e-9)
	assert.InDelta(t, 0.0533333333, fdr[2], 1e-9)
	assert.InDelta(t, 0.5, fdr[3], 1e-12)

	for i := range p {
		assert.GreaterOrEqual(t, fdr[i], p[i])
		assert.LessOrEqual(t, fdr[i], 1.0)
	}
	assert.Nil(t, BenjaminiHochberg(nil))
}

func TestLog2FoldChange(t *testing.T) {
	assert.InDelta(t, 1.0, Log2FoldChange(40, 20), 1e-6)
	assert.InDelta(t, -2.0, Log2FoldChange(10, 40), 1e-6)
	assert.Equal(t, 0.0, Log2FoldChange(0, 0))
}

func TestCompare(t *testing.T) {
	c := Compare([]float64{10, 12, 14}, []float64{20, 22, 24})
	assert.Equal(t, 3, c.N1)
	assert.Equal(t, 3, c.N2)
	assert.InDelta(t, 12, c.Mean1, 1e-12)
	assert.InDelta(t, 22, c.Mean2, 1e-12)
	assert.Less(t, c.Log2FC, 0.0)
	assert.Less(t, c.PWelch, 0.05)
	assert.Greater(t, c.PRanksum, 0.0)
}
