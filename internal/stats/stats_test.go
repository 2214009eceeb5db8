package stats

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

func TestGroupByOutcomeDurableFilter(t *testing.T) {
	groups := GroupByOutcome(cohort.Roster, cohort.ParseOutcomeFilter("durable"))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Count != 5 || len(g.Patients) != 5 {
		t.Fatalf("expected 5 durable patients, got %d", g.Count)
	}
	for _, p := range g.Patients {
		if p.Outcome != cohort.Durable {
			t.Fatalf("patient %s has outcome %q", p.ID, p.Outcome)
		}
	}
	if g.AvgSurvival != 24.0 {
		t.Fatalf("expected avg survival 24.0, got %v", g.AvgSurvival)
	}
	if math.Abs(g.AvgResponseScore-84.8) > 1e-9 {
		t.Fatalf("expected avg response 84.8, got %v", g.AvgResponseScore)
	}
}

func TestGroupByOutcomeAll(t *testing.T) {
	groups := GroupByOutcome(cohort.Roster, cohort.AllOutcomes)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Outcome != cohort.Durable || groups[1].Outcome != cohort.EarlyRelapse {
		t.Fatalf("unexpected group order: %q, %q", groups[0].Outcome, groups[1].Outcome)
	}
	if groups[1].AvgSurvival != 6.0 {
		t.Fatalf("expected relapse avg survival 6.0, got %v", groups[1].AvgSurvival)
	}
}

func TestGroupByOutcomeOmitsEmpty(t *testing.T) {
	onlyDurable := []cohort.Patient{cohort.Roster[0], cohort.Roster[2]}
	groups := GroupByOutcome(onlyDurable, cohort.AllOutcomes)
	if len(groups) != 1 || groups[0].Outcome != cohort.Durable {
		t.Fatalf("expected only the durable group, got %+v", groups)
	}
	if got := GroupByOutcome(nil, cohort.AllOutcomes); len(got) != 0 {
		t.Fatalf("expected no groups for no patients, got %d", len(got))
	}
}

func TestFilterHeatmapDatasetMapping(t *testing.T) {
	records := generate.ExpressionMatrix(generate.NewSource(1), cohort.CD8A)

	for _, key := range []string{"primary", "validation", "tcga", "gtex"} {
		ds := cohort.ParseDataset(key)
		got := FilterHeatmap(records, cohort.AllTissuesFilter, ds)
		if len(got) != len(cohort.AllTissues) {
			t.Fatalf("%s: expected %d rows, got %d", key, len(cohort.AllTissues), len(got))
		}
		for _, r := range got {
			if r.Dataset != ds {
				t.Fatalf("%s: leaked dataset %q", key, r.Dataset)
			}
		}
	}

	got := FilterHeatmap(records, cohort.ParseTissueFilter("Tumor"), cohort.TCGAReference)
	if len(got) != 1 || got[0].Tissue != cohort.Tumor || got[0].Dataset != cohort.TCGAReference {
		t.Fatalf("unexpected single-cell filter result: %+v", got)
	}
}

func TestSummarizeHeatmap(t *testing.T) {
	records := []generate.ExpressionRecord{
		{Gene: cohort.CD8A, Tissue: cohort.Tumor, Dataset: cohort.PrimaryCohort, Expression: 10},
		{Gene: cohort.CD8A, Tissue: cohort.Tumor, Dataset: cohort.GTExReference, Expression: 90},
		{Gene: cohort.CD8A, Tissue: cohort.Blood, Dataset: cohort.PrimaryCohort, Expression: 50},
	}
	s := SummarizeHeatmap(records)
	if len(s.Tissues) != 2 || s.Tissues[0] != cohort.Tumor || s.Tissues[1] != cohort.Blood {
		t.Fatalf("unexpected tissues %v", s.Tissues)
	}
	if len(s.Datasets) != 2 || s.Datasets[0] != cohort.PrimaryCohort {
		t.Fatalf("unexpected datasets %v", s.Datasets)
	}
	if s.MeanExpression != 50 {
		t.Fatalf("expected mean 50, got %v", s.MeanExpression)
	}
	c, ok := s.Lookup(cohort.Tumor, cohort.GTExReference)
	if !ok || c.Band != 4 || !c.DarkLabel {
		t.Fatalf("unexpected cell %+v (ok=%v)", c, ok)
	}
	if _, ok := s.Lookup(cohort.Blood, cohort.GTExReference); ok {
		t.Fatal("expected missing cell")
	}

	empty := SummarizeHeatmap(nil)
	if empty.MeanExpression != 0 || len(empty.Cells) != 0 {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestExpressionBand(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0}, {19.99, 0}, {20, 1}, {39.9, 1}, {40, 2}, {59.9, 2}, {60, 3}, {79.9, 3}, {80, 4}, {100, 4},
	}
	for _, tt := range tests {
		if got := ExpressionBand(tt.v); got != tt.want {
			t.Errorf("ExpressionBand(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestViolinIndexRules(t *testing.T) {
	s := Violin([]float64{4, 1, 3, 2})
	// sorted [1 2 3 4]: median index 2, q1 index 1, q3 index 3
	if s.Median != 3 || s.Q1 != 2 || s.Q3 != 4 || s.Min != 1 || s.Max != 4 || s.Mean != 2.5 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.N != 4 {
		t.Fatalf("expected n=4, got %d", s.N)
	}

	if got := Violin(nil); got != (ViolinStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
	if got := Violin([]float64{7}); got.Median != 7 || got.Q1 != 7 || got.Q3 != 7 {
		t.Fatalf("unexpected single-value stats %+v", got)
	}
}

func TestViolinDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Violin(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestViolinOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(0, 100), 1, 200).Draw(t, "values")
		s := Violin(values)
		if !(s.Min <= s.Q1 && s.Q1 <= s.Median && s.Median <= s.Q3 && s.Q3 <= s.Max) {
			t.Fatalf("ordering violated: %+v", s)
		}
		if s.Mean < s.Min || s.Mean > s.Max {
			t.Fatalf("mean %v outside [%v,%v]", s.Mean, s.Min, s.Max)
		}
	})
}

func TestViolinByTissueOnGeneratedSamples(t *testing.T) {
	samples := generate.ViolinSamples(generate.NewSource(8), cohort.CD8A, cohort.AllTissuesFilter)
	groups := ViolinByTissue(samples)
	if len(groups) != len(cohort.ViolinTissues) {
		t.Fatalf("expected %d groups, got %d", len(cohort.ViolinTissues), len(groups))
	}
	for i, g := range groups {
		if g.Tissue != cohort.ViolinTissues[i] {
			t.Fatalf("group %d: tissue %q", i, g.Tissue)
		}
		if g.Stats.N != generate.SamplesPerTissue {
			t.Fatalf("group %d: n=%d", i, g.Stats.N)
		}
	}
}

func TestHighestExpressionTissueTieKeepsEarlier(t *testing.T) {
	groups := []TissueStats{
		{Tissue: cohort.Tumor, Stats: ViolinStats{Mean: 40}},
		{Tissue: cohort.Blood, Stats: ViolinStats{Mean: 60}},
		{Tissue: cohort.LymphNode, Stats: ViolinStats{Mean: 60}},
	}
	best, ok := HighestExpressionTissue(groups)
	if !ok || best.Tissue != cohort.Blood {
		t.Fatalf("expected Blood, got %q (ok=%v)", best.Tissue, ok)
	}

	if _, ok := HighestExpressionTissue(groups[:1]); ok {
		t.Fatal("a single tissue should not report a highest")
	}
}

func TestSelectTimepoint(t *testing.T) {
	week4, _ := cohort.ParseTimepoint("week4")

	timeline := generate.Timeline(generate.NewSource(2), "P003")
	got, ok := SelectTimepoint(timeline, week4)
	if !ok || got.Key != "week4" || got.Day != 28 {
		t.Fatalf("unexpected sample %+v (ok=%v)", got, ok)
	}

	risk := generate.Risk(generate.NewSource(2), "P003")
	r, ok := SelectTimepoint(risk, week4)
	if !ok || r.Key != "week4" {
		t.Fatalf("unexpected risk sample %+v (ok=%v)", r, ok)
	}

	if _, ok := SelectTimepoint(timeline, cohort.Timepoint{Key: "week99"}); ok {
		t.Fatal("expected no sample for an unknown timepoint")
	}
}
