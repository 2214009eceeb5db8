package generate

import (
	"math"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/cohortscope/server/internal/cohort"
)

func TestCellsRespectExpressionRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(0, 100).Draw(t, "a")
		b := rapid.Float64Range(0, 100).Draw(t, "b")
		window := ExpressionRange{Low: a, High: b}.Normalize()
		seed := rapid.Uint64().Draw(t, "seed")

		for _, c := range Cells(NewSource(seed), cohort.CD8A, window) {
			if c.Expression < window.Low || c.Expression > window.High {
				t.Fatalf("cell %s expression %v outside [%v,%v]", c.CellID, c.Expression, window.Low, window.High)
			}
		}
	})
}

func TestCellsPerPatientCounts(t *testing.T) {
	cells := Cells(NewSource(7), cohort.PDCD1, FullRange)
	counts := CountByPatient(cells)
	for _, p := range cohort.Roster {
		n := counts[p.ID]
		if n < 20 || n >= 70 {
			t.Errorf("%s: expected count in [20,70), got %d", p.ID, n)
		}
	}
}

func TestCellsClusterAroundGrid(t *testing.T) {
	cells := Cells(NewSource(11), cohort.CD8A, FullRange)
	for _, c := range cells {
		i := cohort.PatientIndex(c.PatientID)
		cx := float64(i%5) * 4
		cy := float64(i/5) * 4
		// base offset within ±1, jitter within ±1.5
		if math.Abs(c.X-cx) > 2.5 || math.Abs(c.Y-cy) > 2.5 {
			t.Fatalf("cell %s at (%.2f,%.2f) too far from grid point (%.0f,%.0f)", c.CellID, c.X, c.Y, cx, cy)
		}
		if c.Outcome != cohort.OutcomeOf(c.PatientID) {
			t.Fatalf("cell %s carries outcome %q", c.CellID, c.Outcome)
		}
	}
}

func TestEmptyRangeEmitsNothingOutside(t *testing.T) {
	cells := Cells(NewSource(3), cohort.CD8A, ExpressionRange{Low: 50, High: 50})
	for _, c := range cells {
		if c.Expression != 50 {
			t.Fatalf("unexpected cell %+v", c)
		}
	}
}

func TestExpressionMatrixBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gene := rapid.SampledFrom(append(append([]cohort.Gene{}, cohort.AllGenes...), "UNKNOWN")).Draw(t, "gene")
		records := ExpressionMatrix(NewSource(rapid.Uint64().Draw(t, "seed")), gene)
		if len(records) != len(cohort.AllTissues)*len(cohort.AllDatasets) {
			t.Fatalf("expected full cross product, got %d records", len(records))
		}
		for _, r := range records {
			if r.Expression < 0 || r.Expression > 100 {
				t.Fatalf("%s/%s expression %v out of bounds", r.Tissue, r.Dataset, r.Expression)
			}
		}
	})
}

func TestExpressionMatrixNoiseBand(t *testing.T) {
	for _, r := range ExpressionMatrix(NewSource(99), cohort.LAG3) {
		expected := cohort.BaseExpression(cohort.LAG3, r.Tissue) * r.Dataset.Multiplier()
		lo := math.Max(0, expected-10)
		hi := math.Min(100, expected+10)
		if r.Expression < lo || r.Expression > hi {
			t.Errorf("%s/%s: %v not within [%v,%v]", r.Tissue, r.Dataset, r.Expression, lo, hi)
		}
	}
}

func TestViolinSamples(t *testing.T) {
	all := ViolinSamples(NewSource(5), cohort.TIGIT, cohort.AllTissuesFilter)
	if len(all) != 4*SamplesPerTissue {
		t.Fatalf("expected %d samples, got %d", 4*SamplesPerTissue, len(all))
	}
	one := ViolinSamples(NewSource(5), cohort.TIGIT, cohort.ParseTissueFilter("blood"))
	if len(one) != SamplesPerTissue {
		t.Fatalf("expected %d samples, got %d", SamplesPerTissue, len(one))
	}
	for _, s := range append(all, one...) {
		if s.Expression < 0 || s.Expression > 100 {
			t.Fatalf("sample %s out of bounds: %v", s.SampleID, s.Expression)
		}
	}
	for _, s := range one {
		if s.Tissue != cohort.Blood {
			t.Fatalf("unexpected tissue %q", s.Tissue)
		}
	}
}

func TestTimelineTrendsByOutcome(t *testing.T) {
	durable := Timeline(NewSource(1), "P001")
	relapse := Timeline(NewSource(1), "P002")
	if len(durable) != 5 || len(relapse) != 5 {
		t.Fatalf("expected 5 timepoints, got %d and %d", len(durable), len(relapse))
	}

	// 4 steps of slope outweigh the noise band on both series.
	if durable[4].Expression[cohort.CD8A] <= durable[0].Expression[cohort.CD8A] {
		t.Errorf("durable CD8A should rise: %v -> %v", durable[0].Expression[cohort.CD8A], durable[4].Expression[cohort.CD8A])
	}
	if relapse[4].Expression[cohort.HAVCR2] <= relapse[0].Expression[cohort.HAVCR2] {
		t.Errorf("relapse HAVCR2 should rise: %v -> %v", relapse[0].Expression[cohort.HAVCR2], relapse[4].Expression[cohort.HAVCR2])
	}
	for i, s := range durable {
		if s.Day != cohort.Timepoints[i].Day {
			t.Errorf("timepoint %d: day %d", i, s.Day)
		}
		if len(s.Expression) != len(cohort.TimelineGenes) {
			t.Errorf("timepoint %d: %d genes", i, len(s.Expression))
		}
	}
}

func TestTimelineUnknownPatientIsDurable(t *testing.T) {
	got := Timeline(NewSource(42), "nobody")
	want := Timeline(NewSource(42), "P001")
	if !reflect.DeepEqual(got, want) {
		t.Fatal("unknown patient should follow the durable trajectory")
	}
}

func TestRiskNormalised(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.SampledFrom([]string{"P001", "P002", "P005", "P010", "X"}).Draw(t, "patient")
		for _, s := range Risk(NewSource(rapid.Uint64().Draw(t, "seed")), id) {
			sum := s.LowRisk + s.MediumRisk + s.HighRisk
			if math.Abs(sum-100) > 1e-9 {
				t.Fatalf("%s %s: components sum to %v", id, s.Key, sum)
			}
			if s.LowRisk < 0 || s.MediumRisk < 0 || s.HighRisk < 0 {
				t.Fatalf("%s %s: negative component %+v", id, s.Key, s)
			}
			if s.RiskScore <= 0 || s.RiskScore >= 100 {
				t.Fatalf("%s %s: risk score %v not strictly inside (0,100)", id, s.Key, s.RiskScore)
			}
			if s.Band != cohort.ClassifyRisk(s.RiskScore) {
				t.Fatalf("band %q does not match score %v", s.Band, s.RiskScore)
			}
		}
	})
}

func TestSameSeedSameDraw(t *testing.T) {
	a := Cells(NewSource(1234), cohort.CD8A, FullRange)
	b := Cells(NewSource(1234), cohort.CD8A, FullRange)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical draws for identical seeds")
	}
	c := Cells(NewSource(1235), cohort.CD8A, FullRange)
	if reflect.DeepEqual(a, c) {
		t.Fatal("expected different draws for different seeds")
	}
}

func TestSeederRange(t *testing.T) {
	s := NewSeeder(9)
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		v := s.Next()
		if v == 0 || v > maxSeed {
			t.Fatalf("seed %d out of range", v)
		}
		seen[v] = true
	}
	if len(seen) < 99 {
		t.Fatalf("seeder repeated itself: %d distinct of 100", len(seen))
	}
}

func TestExpressionRangeNormalize(t *testing.T) {
	got := ExpressionRange{Low: 120, High: -5}.Normalize()
	if got != (ExpressionRange{Low: 0, High: 100}) {
		t.Fatalf("unexpected normalised range %+v", got)
	}
}
