// Package marketspec is the per-market configuration registry that drives
// scoring, grading, and alerting: which feature tables a market needs,
// whether it scores a probability or a line projection, and the
// BET/LEAN/FADE score thresholds that classify a Signal. Grounded on
// original_source/pipeline/scoring/market_specs.py, generalized to the
// registry pattern normalizer/internal/registry uses for its sport
// normalizers.
package marketspec

// EntityType is the kind of thing a market's selection keys off of.
type EntityType string

const (
	EntityBatter  EntityType = "batter"
	EntityPitcher EntityType = "pitcher"
	EntityTeam    EntityType = "team"
	EntityGame    EntityType = "game"
)

// OutputType is what a market's model emits.
type OutputType string

const (
	OutputProbability OutputType = "probability"
	OutputProjection  OutputType = "projection"
	OutputHybrid      OutputType = "hybrid"
)

// EdgeMethod selects which oddsmath.ComputeEdge branch applies.
type EdgeMethod string

const (
	EdgeProbabilityVsImplied EdgeMethod = "probability_vs_implied"
	EdgeProjectionVsLine     EdgeMethod = "projection_vs_line"
	EdgeHybrid               EdgeMethod = "hybrid"
)

// LineupRequirement governs whether an unconfirmed lineup blocks scoring.
type LineupRequirement string

const (
	LineupRequired      LineupRequirement = "required"
	LineupRecommended   LineupRequirement = "recommended"
	LineupNotRequired   LineupRequirement = "not_required"
)

// MissingDataPolicy governs what a scorer does when a required feature is
// nil because its window didn't meet the minimum-PA threshold.
type MissingDataPolicy string

const (
	PolicyDegradeConfidence  MissingDataPolicy = "degrade_confidence"
	PolicySkipRow            MissingDataPolicy = "skip_row"
	PolicyStoreWithRiskFlags MissingDataPolicy = "store_with_risk_flags"
)

// ThresholdSet holds the BET/LEAN/FADE score and edge cutoffs for one
// preset. SKIP has no explicit thresholds: it is whatever a selection
// doesn't clear for BET, LEAN, or FADE.
type ThresholdSet struct {
	BetMinScore    float64
	BetMinEdgePct  float64
	LeanMinScore   float64
	LeanMinEdgePct float64
	FadeMaxScore   float64
	FadeMaxEdgePct float64
}

// Preset names the three threshold families a market can be assigned,
// matching original_source/pipeline/scoring/market_specs.py.
type Preset string

const (
	PresetDefault      Preset = "DEFAULT"
	PresetConservative Preset = "CONSERVATIVE"
	PresetAggressive   Preset = "AGGRESSIVE"
)

var thresholdsByPreset = map[Preset]ThresholdSet{
	PresetDefault: {
		BetMinScore: 75.0, BetMinEdgePct: 5.0,
		LeanMinScore: 60.0, LeanMinEdgePct: 2.5,
		FadeMaxScore: 35.0, FadeMaxEdgePct: -3.0,
	},
	PresetConservative: {
		BetMinScore: 78.0, BetMinEdgePct: 6.0,
		LeanMinScore: 64.0, LeanMinEdgePct: 3.5,
		FadeMaxScore: 32.0, FadeMaxEdgePct: -4.0,
	},
	PresetAggressive: {
		BetMinScore: 72.0, BetMinEdgePct: 4.0,
		LeanMinScore: 58.0, LeanMinEdgePct: 2.0,
		FadeMaxScore: 38.0, FadeMaxEdgePct: -2.5,
	},
}

// Thresholds returns the concrete threshold values for a preset name.
func Thresholds(p Preset) ThresholdSet {
	return thresholdsByPreset[p]
}

// Spec is the immutable configuration for one market code.
type Spec struct {
	Market                string
	EntityType            EntityType
	RequiredFeatureTables []string
	OutputType            OutputType
	EdgeMethod            EdgeMethod
	ThresholdPreset       Preset
	LineupRequirement     LineupRequirement
	MissingDataPolicy     MissingDataPolicy
	WeatherRecommended    bool
}

// Thresholds resolves this spec's threshold preset to concrete values.
func (s Spec) Thresholds() ThresholdSet {
	return Thresholds(s.ThresholdPreset)
}
