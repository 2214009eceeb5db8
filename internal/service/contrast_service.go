package service

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/contraststore"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/stats"
)

// DefaultReplicates is the number of timelines drawn per patient when a job
// does not say.
const DefaultReplicates = 20

// ContrastService compares durable responders with early relapses on the
// timeline gene panel.
type ContrastService struct {
	store *contraststore.Store
}

// NewContrastService creates a contrast service backed by store.
func NewContrastService(store *contraststore.Store) *ContrastService {
	return &ContrastService{store: store}
}

// Store returns the backing job store.
func (s *ContrastService) Store() *contraststore.Store { return s.store }

// NormalizeParams resolves the timepoint and gene panel of a job request.
// Unknown genes are dropped; an empty panel means the whole timeline panel.
func NormalizeParams(p contraststore.JobParams, defaultReplicates int) contraststore.JobParams {
	tp, _ := cohort.ParseTimepoint(p.Timepoint)
	p.Timepoint = tp.Key

	var genes []string
	seen := make(map[cohort.Gene]bool)
	for _, g := range p.Genes {
		gene, ok := cohort.ParseGene(g)
		if !ok || seen[gene] || !isTimelineGene(gene) {
			continue
		}
		seen[gene] = true
		genes = append(genes, string(gene))
	}
	if len(genes) == 0 {
		for _, g := range cohort.TimelineGenes {
			genes = append(genes, string(g))
		}
	}
	p.Genes = genes

	if p.Replicates <= 0 {
		p.Replicates = defaultReplicates
	}
	if p.Replicates <= 0 {
		p.Replicates = DefaultReplicates
	}
	return p
}

func isTimelineGene(g cohort.Gene) bool {
	for _, t := range cohort.TimelineGenes {
		if t == g {
			return true
		}
	}
	return false
}

// DrawSamples draws Replicates timelines per roster patient from the job seed
// and keeps the values of the requested genes at the job timepoint.
func DrawSamples(p contraststore.JobParams) []contraststore.Sample {
	tp, _ := cohort.ParseTimepoint(p.Timepoint)
	rng := generate.NewSource(p.Seed)

	out := make([]contraststore.Sample, 0, len(cohort.Roster)*p.Replicates*len(p.Genes))
	for _, patient := range cohort.Roster {
		for rep := 0; rep < p.Replicates; rep++ {
			sample, ok := stats.SelectTimepoint(generate.Timeline(rng, patient.ID), tp)
			if !ok {
				continue
			}
			for _, g := range p.Genes {
				out = append(out, contraststore.Sample{
					PatientID: patient.ID,
					Outcome:   string(patient.Outcome),
					Replicate: rep,
					Gene:      g,
					Value:     sample.Expression[cohort.Gene(g)],
				})
			}
		}
	}
	return out
}

// ContrastSamples computes the per-gene contrast of durable (group 1)
// against early relapse (group 2), with BH-adjusted p-values. Results come
// back ordered by rank-sum FDR, then by absolute fold change.
func ContrastSamples(ctx context.Context, genes []string, samples []contraststore.Sample) ([]*contraststore.GeneResult, error) {
	type groups struct{ durable, relapse []float64 }
	byGene := make(map[string]*groups, len(genes))
	for _, g := range genes {
		byGene[g] = &groups{}
	}
	for _, smp := range samples {
		g, ok := byGene[smp.Gene]
		if !ok {
			continue
		}
		if cohort.Outcome(smp.Outcome) == cohort.Durable {
			g.durable = append(g.durable, smp.Value)
		} else {
			g.relapse = append(g.relapse, smp.Value)
		}
	}

	contrasts := make([]stats.Contrast, len(genes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, gene := range genes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g := byGene[gene]
			contrasts[i] = stats.Compare(g.durable, g.relapse)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	pWelch := make([]float64, len(contrasts))
	pRanksum := make([]float64, len(contrasts))
	for i, c := range contrasts {
		pWelch[i] = c.PWelch
		pRanksum[i] = c.PRanksum
	}
	fdrWelch := stats.BenjaminiHochberg(pWelch)
	fdrRanksum := stats.BenjaminiHochberg(pRanksum)

	items := make([]*contraststore.GeneResult, len(genes))
	for i, c := range contrasts {
		items[i] = &contraststore.GeneResult{
			Gene:       genes[i],
			Mean1:      c.Mean1,
			Mean2:      c.Mean2,
			Log2FC:     c.Log2FC,
			PWelch:     c.PWelch,
			FDRWelch:   fdrWelch[i],
			PRanksum:   c.PRanksum,
			FDRRanksum: fdrRanksum[i],
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FDRRanksum != items[j].FDRRanksum {
			return items[i].FDRRanksum < items[j].FDRRanksum
		}
		return math.Abs(items[i].Log2FC) > math.Abs(items[j].Log2FC)
	})
	return items, nil
}

// ExecuteJob runs a contrast job (called by the job manager's workers).
func (s *ContrastService) ExecuteJob(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	params := job.Params

	s.store.UpdateJobProgress(jobID, "drawing_samples", 0, len(cohort.Roster))
	samples := DrawSamples(params)

	n1, n2 := 0, 0
	for _, p := range cohort.Roster {
		if p.Outcome == cohort.Durable {
			n1 += params.Replicates
		} else {
			n2 += params.Replicates
		}
	}
	s.store.UpdateJobCounts(jobID, n1, n2)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.store.UpdateJobProgress(jobID, "archiving_samples", 0, len(samples))
	if err := s.store.SaveSamples(jobID, samples); err != nil {
		return fmt.Errorf("failed to save samples: %w", err)
	}

	s.store.UpdateJobProgress(jobID, "computing_stats", 0, len(params.Genes))
	items, err := ContrastSamples(ctx, params.Genes, samples)
	if err != nil {
		return err
	}

	s.store.UpdateJobProgress(jobID, "saving_results", 0, len(items))
	if err := s.store.InsertResults(jobID, items); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	s.store.UpdateJobProgress(jobID, "done", len(items), len(items))
	return nil
}
