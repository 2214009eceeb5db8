package main

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/service"
	"github.com/cohortscope/server/internal/stats"
)

type generateOptions struct {
	seed      uint64
	gene      string
	patient   string
	tissue    string
	dataset   string
	timepoint string
	low       float64
	high      float64
	pretty    bool
}

var generateKinds = []string{"cells", "matrix", "violin", "timeline", "risk"}

func newGenerateCommand() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:       "generate <" + strings.Join(generateKinds, "|") + ">",
		Short:     "Print a synthetic dataset as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: generateKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.seed == 0 {
				opts.seed = generate.NewSeeder(0).Next()
			}
			payload := buildDataset(args[0], opts)

			var (
				data []byte
				err  error
			)
			if opts.pretty {
				data, err = json.MarshalIndent(payload, "", "  ")
			} else {
				data, err = json.Marshal(payload)
			}
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", args[0], err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	f := cmd.Flags()
	f.Uint64Var(&opts.seed, "seed", 0, "Seed for the draw (0 draws a fresh one)")
	f.StringVar(&opts.gene, "gene", string(cohort.DefaultGene), "Gene symbol")
	f.StringVar(&opts.patient, "patient", cohort.Roster[0].ID, "Patient id for timeline and risk")
	f.StringVar(&opts.tissue, "tissue", "all", "Tissue filter for violin and matrix")
	f.StringVar(&opts.dataset, "dataset", "", "Dataset filter for matrix (empty keeps all)")
	f.StringVar(&opts.timepoint, "timepoint", cohort.DefaultTimepoint.Key, "Active timepoint for timeline and risk")
	f.Float64Var(&opts.low, "low", generate.FullRange.Low, "Lower bound of the cell expression window")
	f.Float64Var(&opts.high, "high", generate.FullRange.High, "Upper bound of the cell expression window")
	f.BoolVar(&opts.pretty, "pretty", false, "Indent the output")
	return cmd
}

// buildDataset draws one dataset kind through the same service the API uses,
// so a seed printed here reproduces the API response for that seed.
func buildDataset(kind string, opts generateOptions) map[string]interface{} {
	dashboard := service.NewDashboardService(nil, nil)
	gene := cohort.DefaultGene
	if strings.TrimSpace(opts.gene) != "" {
		gene, _ = cohort.ParseGene(opts.gene)
	}
	tissue := cohort.ParseTissueFilter(opts.tissue)
	tp, _ := cohort.ParseTimepoint(opts.timepoint)

	out := map[string]interface{}{"kind": kind, "seed": opts.seed}
	switch kind {
	case "cells":
		window := generate.ExpressionRange{Low: opts.low, High: opts.high}.Normalize()
		cells := dashboard.Cells(opts.seed, gene, window)
		out["gene"] = gene
		out["expression_range"] = window
		out["cells"] = cells
		out["per_patient"] = generate.CountByPatient(cells)
	case "matrix":
		records := dashboard.ExpressionMatrix(opts.seed, gene)
		if opts.dataset != "" || !tissue.All() {
			records = stats.FilterHeatmap(records, tissue, cohort.ParseDataset(opts.dataset))
		}
		out["gene"] = gene
		out["records"] = records
		out["summary"] = stats.SummarizeHeatmap(records)
	case "violin":
		samples := dashboard.ViolinSamples(opts.seed, gene, tissue)
		out["gene"] = gene
		out["samples"] = samples
		out["stats"] = stats.ViolinByTissue(samples)
	case "timeline":
		timeline := dashboard.Timeline(opts.seed, opts.patient)
		active, _ := stats.SelectTimepoint(timeline, tp)
		out["patient"] = cohort.LookupPatient(opts.patient)
		out["timeline"] = timeline
		out["active"] = active
	case "risk":
		risk := dashboard.Risk(opts.seed, opts.patient)
		active, _ := stats.SelectTimepoint(risk, tp)
		out["patient"] = cohort.LookupPatient(opts.patient)
		out["risk"] = risk
		out["active"] = active
		out["interpretation"] = active.Band.Interpretation()
	}
	return out
}
