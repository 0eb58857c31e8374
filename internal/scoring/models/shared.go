// Package models holds the eleven market-scoring implementations, one file
// per market, each a scoring.Model grounded on its
// original_source/pipeline/scoring/*_model.py counterpart.
package models

import (
	"github.com/fortuna/mlbedge/internal/marketspec"
	"github.com/fortuna/mlbedge/internal/scoring"
)

// marketSpecs is the single threshold-preset registry every model in this
// package looks its market up in, seeded from marketspec.DefaultSpecs.
var marketSpecs = newDefaultMarketSpecRegistry()

// RegisterAll wires every market's Model into d, the set the orchestrator
// dispatches a daily scoring run through.
func RegisterAll(d *scoring.Dispatch) error {
	all := []scoring.Model{
		HRModel{},
		KModel{},
		NewHits1PModel(),
		NewHitsLineModel(),
		TBModel{},
		OutsModel{},
		MLModel{},
		TotalModel{},
		TeamTotalModel{},
		F5TotalModel{},
		F5MLModel{},
	}
	for _, m := range all {
		if err := d.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func newDefaultMarketSpecRegistry() *marketspec.Registry {
	return marketspec.NewRegistry()
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// teamFromBetType recovers which team a team-scoped bet_type string names
// (e.g. "TEAM_TOTAL_NYY_OVER"), returning "" if neither abbreviation
// appears.
func teamFromBetType(betType, homeAbbr, awayAbbr string) string {
	if containsSubstring(betType, homeAbbr) {
		return homeAbbr
	}
	if containsSubstring(betType, awayAbbr) {
		return awayAbbr
	}
	return ""
}

func containsSubstring(s, substr string) bool {
	if substr == "" {
		return false
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// weightedSum combines named factor scores (each already 0-100) using the
// given weight map, treating any factor missing from the map (or from a
// model that chose not to compute it) as neutral (50).
func weightedSum(factors, weights map[string]float64) float64 {
	sum := 0.0
	for k, w := range weights {
		v, ok := factors[k]
		if !ok {
			v = 50.0
		}
		sum += v * w
	}
	return scoring.Clamp(sum, 0.0, 100.0)
}
