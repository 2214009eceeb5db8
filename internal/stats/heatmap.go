package stats

import (
	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
)

// FilterHeatmap keeps the records matching the tissue filter and the
// selected dataset. The dataset always filters strictly: selecting
// "primary" shows only the primary cohort column.
func FilterHeatmap(records []generate.ExpressionRecord, tissue cohort.TissueFilter, dataset cohort.Dataset) []generate.ExpressionRecord {
	out := make([]generate.ExpressionRecord, 0, len(records))
	for _, r := range records {
		if !tissue.Matches(r.Tissue) {
			continue
		}
		if r.Dataset != dataset {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Number of colour bands on the heatmap scale.
const HeatmapBands = 5

// ExpressionBand buckets an expression value into one of HeatmapBands
// equal-width bands of the 0-100 scale.
func ExpressionBand(expression float64) int {
	ratio := expression / 100
	switch {
	case ratio < 0.2:
		return 0
	case ratio < 0.4:
		return 1
	case ratio < 0.6:
		return 2
	case ratio < 0.8:
		return 3
	default:
		return 4
	}
}

// HeatmapCell is one grid cell with its colour band.
type HeatmapCell struct {
	Tissue     cohort.Tissue  `json:"tissue"`
	Dataset    cohort.Dataset `json:"dataset"`
	Expression float64        `json:"expression"`
	Band       int            `json:"band"`
	// DarkLabel is set when the value label needs light text on the cell.
	DarkLabel bool `json:"dark_label"`
}

// HeatmapSummary is the heatmap grid plus its headline statistic.
type HeatmapSummary struct {
	Tissues        []cohort.Tissue  `json:"tissues"`
	Datasets       []cohort.Dataset `json:"datasets"`
	Cells          []HeatmapCell    `json:"cells"`
	MeanExpression float64          `json:"mean_expression"`
}

// SummarizeHeatmap lays the filtered records out as a grid. Row and column
// headers are the distinct tissues and datasets in first-seen order.
func SummarizeHeatmap(records []generate.ExpressionRecord) HeatmapSummary {
	s := HeatmapSummary{
		Tissues:  []cohort.Tissue{},
		Datasets: []cohort.Dataset{},
		Cells:    make([]HeatmapCell, 0, len(records)),
	}
	seenTissue := make(map[cohort.Tissue]bool)
	seenDataset := make(map[cohort.Dataset]bool)

	values := make([]float64, 0, len(records))
	for _, r := range records {
		if !seenTissue[r.Tissue] {
			seenTissue[r.Tissue] = true
			s.Tissues = append(s.Tissues, r.Tissue)
		}
		if !seenDataset[r.Dataset] {
			seenDataset[r.Dataset] = true
			s.Datasets = append(s.Datasets, r.Dataset)
		}
		s.Cells = append(s.Cells, HeatmapCell{
			Tissue:     r.Tissue,
			Dataset:    r.Dataset,
			Expression: r.Expression,
			Band:       ExpressionBand(r.Expression),
			DarkLabel:  r.Expression > 60,
		})
		values = append(values, r.Expression)
	}
	s.MeanExpression = mean(values)
	return s
}

// Lookup returns the cell at (tissue, dataset).
func (s HeatmapSummary) Lookup(tissue cohort.Tissue, dataset cohort.Dataset) (HeatmapCell, bool) {
	for _, c := range s.Cells {
		if c.Tissue == tissue && c.Dataset == dataset {
			return c, true
		}
	}
	return HeatmapCell{}, false
}
