package marketspec

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the fixed set of market specs available to the scoring and
// grading engines, guarded the same way normalizer/internal/registry guards
// its sport normalizers.
type Registry struct {
	specs map[string]Spec
	mu    sync.RWMutex
}

// NewRegistry returns a registry pre-loaded with every market defined in
// DefaultSpecs.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]Spec)}
	for _, s := range DefaultSpecs() {
		_ = r.Register(s)
	}
	return r
}

// Register adds a market spec. It returns an error if the market is already
// registered, mirroring normalizer's Register.
func (r *Registry) Register(spec Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(spec.Market)
	if _, exists := r.specs[key]; exists {
		return fmt.Errorf("market spec %s is already registered", key)
	}
	r.specs[key] = spec
	return nil
}

// Get retrieves a market spec by code (case-insensitive).
func (r *Registry) Get(market string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.specs[strings.ToUpper(market)]
	return spec, exists
}

// MustGet retrieves a market spec by code, panicking if unknown. Reserved
// for call sites where the market code has already been validated against
// ListMarkets (e.g. CLI flag parsing).
func (r *Registry) MustGet(market string) Spec {
	spec, ok := r.Get(market)
	if !ok {
		panic(fmt.Sprintf("marketspec: unknown market %q", market))
	}
	return spec
}

// ListMarkets returns every registered market code, sorted.
func (r *Registry) ListMarkets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultSpecs is the fixed set of eleven markets the pipeline scores,
// ported verbatim (entity type, output type, edge method, threshold preset,
// lineup requirement, missing-data policy) from
// original_source/pipeline/scoring/market_specs.py.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Market:                "HR",
			EntityType:            EntityBatter,
			RequiredFeatureTables: []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"},
			OutputType:            OutputProbability,
			EdgeMethod:            EdgeProbabilityVsImplied,
			ThresholdPreset:       PresetConservative,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "K",
			EntityType:            EntityPitcher,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputHybrid,
			EdgeMethod:            EdgeHybrid,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "HITS_1P",
			EntityType:            EntityBatter,
			RequiredFeatureTables: []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"},
			OutputType:            OutputProbability,
			EdgeMethod:            EdgeProbabilityVsImplied,
			ThresholdPreset:       PresetAggressive,
			LineupRequirement:     LineupRequired,
			MissingDataPolicy:     PolicyDegradeConfidence,
			WeatherRecommended:    true,
		},
		{
			Market:                "HITS_LINE",
			EntityType:            EntityBatter,
			RequiredFeatureTables: []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"},
			OutputType:            OutputHybrid,
			EdgeMethod:            EdgeHybrid,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRequired,
			MissingDataPolicy:     PolicyDegradeConfidence,
			WeatherRecommended:    true,
		},
		{
			Market:                "TB_LINE",
			EntityType:            EntityBatter,
			RequiredFeatureTables: []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"},
			OutputType:            OutputHybrid,
			EdgeMethod:            EdgeHybrid,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRequired,
			MissingDataPolicy:     PolicyDegradeConfidence,
			WeatherRecommended:    true,
		},
		{
			Market:                "OUTS_RECORDED",
			EntityType:            EntityPitcher,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputProjection,
			EdgeMethod:            EdgeProjectionVsLine,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "ML",
			EntityType:            EntityGame,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputProbability,
			EdgeMethod:            EdgeProbabilityVsImplied,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "TOTAL",
			EntityType:            EntityGame,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputProjection,
			EdgeMethod:            EdgeProjectionVsLine,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "F5_ML",
			EntityType:            EntityGame,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputProbability,
			EdgeMethod:            EdgeProbabilityVsImplied,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "F5_TOTAL",
			EntityType:            EntityGame,
			RequiredFeatureTables: []string{"pitcher_daily_features", "team_daily_features", "game_context_features"},
			OutputType:            OutputProjection,
			EdgeMethod:            EdgeProjectionVsLine,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
		{
			Market:                "TEAM_TOTAL",
			EntityType:            EntityTeam,
			RequiredFeatureTables: []string{"team_daily_features", "pitcher_daily_features", "game_context_features"},
			OutputType:            OutputProjection,
			EdgeMethod:            EdgeProjectionVsLine,
			ThresholdPreset:       PresetDefault,
			LineupRequirement:     LineupRecommended,
			MissingDataPolicy:     PolicyStoreWithRiskFlags,
			WeatherRecommended:    true,
		},
	}
}
