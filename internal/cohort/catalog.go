// Package cohort holds the fixed reference catalog of the dashboard: gene,
// tissue, dataset and timepoint panels, the patient roster, and the lookup
// tables the generators draw from.
//
// Every lookup has an explicit fallback so that an unknown key resolves to a
// documented default instead of failing.
package cohort

import "strings"

// Gene is a gene symbol from the expression panel.
type Gene string

const (
	CD8A   Gene = "CD8A"
	PDCD1  Gene = "PDCD1"
	LAG3   Gene = "LAG3"
	HAVCR2 Gene = "HAVCR2"
	TIGIT  Gene = "TIGIT"
	CTLA4  Gene = "CTLA4"
)

// DefaultGene is selected at session start and backs unknown gene lookups.
const DefaultGene = CD8A

// AllGenes is the atlas gene panel in display order.
var AllGenes = []Gene{CD8A, PDCD1, LAG3, HAVCR2, TIGIT, CTLA4}

// TimelineGenes is the longitudinal panel tracked per patient.
var TimelineGenes = []Gene{CD8A, PDCD1, LAG3, HAVCR2, TIGIT}

var geneDescriptions = map[Gene]string{
	CD8A:   "T-cell activation",
	PDCD1:  "PD-1 checkpoint",
	LAG3:   "LAG-3 checkpoint",
	HAVCR2: "TIM-3 checkpoint",
	TIGIT:  "TIGIT checkpoint",
	CTLA4:  "CTLA-4 checkpoint",
}

// ParseGene matches a gene symbol case-insensitively.
func ParseGene(s string) (Gene, bool) {
	s = strings.TrimSpace(s)
	for _, g := range AllGenes {
		if strings.EqualFold(string(g), s) {
			return g, true
		}
	}
	return Gene(s), false
}

// Description returns the functional label shown next to the gene.
func (g Gene) Description() string {
	if d, ok := geneDescriptions[g]; ok {
		return d
	}
	return "Unknown"
}

// IsExhaustionMarker reports whether the gene trends against treatment success.
func (g Gene) IsExhaustionMarker() bool {
	switch g {
	case PDCD1, LAG3, HAVCR2, TIGIT:
		return true
	}
	return false
}

// Tissue is a sampled tissue type, identified by its display name.
type Tissue string

const (
	Tumor        Tissue = "Tumor"
	Blood        Tissue = "Blood"
	LymphNode    Tissue = "Lymph Node"
	BoneMarrow   Tissue = "Bone Marrow"
	NormalTissue Tissue = "Normal Tissue"
)

// AllTissues is the heatmap row order.
var AllTissues = []Tissue{Tumor, Blood, LymphNode, BoneMarrow, NormalTissue}

// ViolinTissues are the tissues drawn when the violin filter is "all".
var ViolinTissues = []Tissue{Tumor, Blood, LymphNode, BoneMarrow}

var tissueKeys = map[Tissue]string{
	Tumor:        "tumor",
	Blood:        "blood",
	LymphNode:    "lymph-node",
	BoneMarrow:   "bone-marrow",
	NormalTissue: "normal",
}

// Key returns the URL-friendly identifier of the tissue.
func (t Tissue) Key() string {
	if k, ok := tissueKeys[t]; ok {
		return k
	}
	return strings.ToLower(strings.ReplaceAll(string(t), " ", "-"))
}

// TissueFilter selects either every tissue (All) or a single one.
type TissueFilter struct {
	Tissue Tissue
}

// AllTissuesFilter matches every tissue.
var AllTissuesFilter = TissueFilter{}

// All reports whether the filter is unrestricted.
func (f TissueFilter) All() bool { return f.Tissue == "" }

// Matches reports whether t passes the filter.
func (f TissueFilter) Matches(t Tissue) bool { return f.All() || f.Tissue == t }

// String returns "all" or the tissue key.
func (f TissueFilter) String() string {
	if f.All() {
		return "all"
	}
	return f.Tissue.Key()
}

// MarshalText encodes the filter as its String form.
func (f TissueFilter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText decodes a filter leniently, see ParseTissueFilter.
func (f *TissueFilter) UnmarshalText(b []byte) error {
	*f = ParseTissueFilter(string(b))
	return nil
}

// ParseTissueFilter accepts "all", a tissue key or a display name.
// Unrecognised input yields the unrestricted filter.
func ParseTissueFilter(s string) TissueFilter {
	s = strings.TrimSpace(s)
	for _, t := range AllTissues {
		if strings.EqualFold(s, t.Key()) || strings.EqualFold(s, string(t)) {
			return TissueFilter{Tissue: t}
		}
	}
	return AllTissuesFilter
}

// Dataset is a source cohort, identified by its display name.
type Dataset string

const (
	PrimaryCohort    Dataset = "Primary Cohort"
	ValidationCohort Dataset = "Validation Cohort"
	TCGAReference    Dataset = "TCGA Reference"
	GTExReference    Dataset = "GTEx Reference"
)

// AllDatasets is the heatmap column order.
var AllDatasets = []Dataset{PrimaryCohort, ValidationCohort, TCGAReference, GTExReference}

// DefaultDataset backs unknown dataset keys.
const DefaultDataset = PrimaryCohort

var datasetKeys = map[Dataset]string{
	PrimaryCohort:    "primary",
	ValidationCohort: "validation",
	TCGAReference:    "tcga",
	GTExReference:    "gtex",
}

var datasetMultipliers = map[Dataset]float64{
	PrimaryCohort:    1.0,
	ValidationCohort: 0.9,
	TCGAReference:    1.1,
	GTExReference:    0.7,
}

// Key returns the filter key of the dataset.
func (d Dataset) Key() string {
	if k, ok := datasetKeys[d]; ok {
		return k
	}
	return datasetKeys[DefaultDataset]
}

// Multiplier scales base expression for the dataset. Unknown datasets use 1.
func (d Dataset) Multiplier() float64 {
	if m, ok := datasetMultipliers[d]; ok {
		return m
	}
	return 1.0
}

// ParseDataset maps a filter key or display name to a dataset, falling back
// to the primary cohort.
func ParseDataset(s string) Dataset {
	s = strings.TrimSpace(s)
	for _, d := range AllDatasets {
		if strings.EqualFold(s, datasetKeys[d]) || strings.EqualFold(s, string(d)) {
			return d
		}
	}
	return DefaultDataset
}

// Timepoint is a sample collection point along the treatment timeline.
type Timepoint struct {
	Key  string `json:"label"`
	Name string `json:"name"`
	Day  int    `json:"day"`
}

// Timepoints is the fixed collection schedule.
var Timepoints = []Timepoint{
	{Key: "baseline", Name: "Baseline", Day: 0},
	{Key: "week2", Name: "Week 2", Day: 14},
	{Key: "week4", Name: "Week 4", Day: 28},
	{Key: "week8", Name: "Week 8", Day: 56},
	{Key: "week12", Name: "Week 12", Day: 84},
}

// Point returns the timepoint itself. Samples embedding a Timepoint inherit
// it, which lets generic helpers locate them on the schedule.
func (t Timepoint) Point() Timepoint { return t }

// DefaultTimepoint is the baseline sample.
var DefaultTimepoint = Timepoints[0]

// ParseTimepoint resolves a timepoint key, falling back to baseline.
func ParseTimepoint(s string) (Timepoint, bool) {
	s = strings.TrimSpace(s)
	for _, tp := range Timepoints {
		if strings.EqualFold(s, tp.Key) || strings.EqualFold(s, tp.Name) {
			return tp, true
		}
	}
	return DefaultTimepoint, false
}
