package cohort

// tissueLevels is the base expression of one gene in each tissue.
type tissueLevels map[Tissue]float64

var basePatterns = map[Gene]tissueLevels{
	CD8A:   {Tumor: 75, Blood: 45, LymphNode: 85, BoneMarrow: 35, NormalTissue: 25},
	PDCD1:  {Tumor: 65, Blood: 30, LymphNode: 70, BoneMarrow: 20, NormalTissue: 15},
	LAG3:   {Tumor: 55, Blood: 25, LymphNode: 60, BoneMarrow: 15, NormalTissue: 10},
	HAVCR2: {Tumor: 70, Blood: 40, LymphNode: 65, BoneMarrow: 25, NormalTissue: 20},
	TIGIT:  {Tumor: 60, Blood: 35, LymphNode: 55, BoneMarrow: 20, NormalTissue: 15},
	CTLA4:  {Tumor: 50, Blood: 20, LymphNode: 45, BoneMarrow: 15, NormalTissue: 10},
}

// BaseExpression returns the heatmap base level for gene in tissue.
// Unknown genes use the CD8A pattern; unknown tissues use 50.
func BaseExpression(g Gene, t Tissue) float64 {
	pattern, ok := basePatterns[g]
	if !ok {
		pattern = basePatterns[DefaultGene]
	}
	if v, ok := pattern[t]; ok {
		return v
	}
	return 50
}

// Distribution is a normal distribution used for violin sampling.
type Distribution struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FallbackDistribution is used for tissues without a measured distribution.
var FallbackDistribution = Distribution{Mean: 50, Std: 15}

var violinPatterns = map[Gene]map[Tissue]Distribution{
	CD8A:   {Tumor: {75, 15}, Blood: {45, 12}, LymphNode: {85, 10}},
	PDCD1:  {Tumor: {65, 18}, Blood: {30, 8}, LymphNode: {70, 12}},
	LAG3:   {Tumor: {55, 20}, Blood: {25, 6}, LymphNode: {60, 15}},
	HAVCR2: {Tumor: {70, 16}, Blood: {40, 10}, LymphNode: {65, 14}},
	TIGIT:  {Tumor: {60, 14}, Blood: {35, 9}, LymphNode: {55, 11}},
	CTLA4:  {Tumor: {50, 22}, Blood: {20, 5}, LymphNode: {45, 18}},
}

// SampleDistribution returns the violin distribution for gene in tissue.
// Unknown genes use the CD8A table; tissues missing from the table use
// FallbackDistribution.
func SampleDistribution(g Gene, t Tissue) Distribution {
	byTissue, ok := violinPatterns[g]
	if !ok {
		byTissue = violinPatterns[DefaultGene]
	}
	if d, ok := byTissue[t]; ok {
		return d
	}
	return FallbackDistribution
}

// RiskBand classifies an overall relapse risk score.
type RiskBand string

const (
	RiskLow      RiskBand = "low"
	RiskModerate RiskBand = "moderate"
	RiskHigh     RiskBand = "high"
)

// ClassifyRisk maps a risk score in [0,100] to its band.
func ClassifyRisk(score float64) RiskBand {
	switch {
	case score < 30:
		return RiskLow
	case score < 70:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// Interpretation is the clinical reading attached to the band.
func (b RiskBand) Interpretation() string {
	switch b {
	case RiskLow:
		return "Low relapse risk. Patient shows favorable response patterns with strong immune activation markers."
	case RiskModerate:
		return "Moderate relapse risk. Monitor closely for changes in biomarker expression and clinical response."
	default:
		return "High relapse risk. Consider alternative treatment strategies or intensified monitoring protocols."
	}
}
