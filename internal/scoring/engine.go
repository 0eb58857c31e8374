// Package scoring implements the eleven market-scoring models and the
// shared factor-math they're built from, per spec.md §4.5-§4.6. Every model
// reads daily feature tables built by internal/features, combines them into
// a composite score with internal/marketspec thresholds, and computes edge
// with internal/oddsmath — grounded throughout on
// original_source/pipeline/scoring/base_engine.py and the per-market *_model.py
// files.
package scoring

import (
	"math"
	"sort"

	"github.com/fortuna/mlbedge/internal/marketspec"
	"github.com/fortuna/mlbedge/internal/models"
)

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// FactorScoreLinear scales x onto a 0-100 factor score across [lo, hi],
// clamped at the edges. A nil x (missing input) scores neutral at 50, per
// hr_model.py's _scale_between.
func FactorScoreLinear(x *float64, lo, hi float64) float64 {
	if x == nil || hi == lo {
		return 50.0
	}
	pct := (*x - lo) / (hi - lo) * 100.0
	return Clamp(pct, 0.0, 100.0)
}

// FactorScoreRelativeSlope scores a delta (e.g. a hot/cold split) relative to
// a baseline magnitude rather than an absolute range, so a large baseline
// doesn't drown out a proportionally equal swing. Grounded on
// hits_model.py's hot/cold "normalized relative slope" block: delta is
// divided by max(baseline, floor), mapped onto scale around 50, and clamped
// to [loCap, hiCap] rather than the full [0,100] range (hot/cold factors are
// intentionally muted, never alone enough to flip a signal).
func FactorScoreRelativeSlope(delta *float64, baseline, floor, scale, loCap, hiCap float64) float64 {
	if delta == nil {
		return 50.0
	}
	base := baseline
	if base < floor {
		base = floor
	}
	relative := *delta / base
	return Clamp(50.0+relative*scale, loCap, hiCap)
}

// PlatoonAdvantage scores a batter's or pitcher's split-vs-same-rate
// advantage relative to their own average of the two splits, per
// hits_model.py's platoon_fit_score block. Returns 50 (neutral) when either
// split is missing or non-positive.
func PlatoonAdvantage(splitRate, otherRate *float64) float64 {
	if splitRate == nil || otherRate == nil {
		return 50.0
	}
	avg := (*splitRate + *otherRate) / 2.0
	if avg <= 0 {
		return 50.0
	}
	advantage := (*splitRate - avg) / avg
	return Clamp(50.0+advantage*150.0, 20.0, 80.0)
}

// PercentileScore returns the percentage of values strictly below x, per
// base_engine.py's percentile_rank ("(arr < x).mean() * 100"). Note this is
// NOT a standard percentile-with-ties rank; it is deliberately a "share of
// the reference population I beat" score, ported as-is. Returns 50.0 on an
// empty reference population.
func PercentileScore(values []float64, x float64) float64 {
	if len(values) == 0 {
		return 50.0
	}
	below := 0
	for _, v := range values {
		if v < x {
			below++
		}
	}
	return float64(below) / float64(len(values)) * 100.0
}

// AssignSignal maps a composite score and optional edge onto a Signal using
// the market's threshold preset, per market_specs.py's per-preset
// BET/LEAN/FADE/SKIP bands (ported via marketspec.ThresholdSet). A nil edge
// is treated as 0.0, matching hr_model.py/k_model.py's _signal default.
func AssignSignal(spec marketspec.Spec, score float64, edge *float64) models.Signal {
	e := 0.0
	if edge != nil {
		e = *edge
	}
	t := spec.Thresholds()
	if score >= t.BetMinScore && e >= t.BetMinEdgePct {
		return models.SignalBet
	}
	if score >= t.LeanMinScore && e >= t.LeanMinEdgePct {
		return models.SignalLean
	}
	if score <= t.FadeMaxScore && e <= t.FadeMaxEdgePct {
		return models.SignalFade
	}
	return models.SignalSkip
}

// ConfidenceBand derives a confidence tier from the composite score, then
// degrades it one step per spec.md §4.5: base HIGH≥78, MEDIUM≥60, else LOW;
// degrade HIGH to MEDIUM at 2+ risk flags, and MEDIUM to LOW at 3+.
func ConfidenceBand(score float64, riskFlagCount int) models.ConfidenceBand {
	var band models.ConfidenceBand
	switch {
	case score >= 78:
		band = models.BandHigh
	case score >= 60:
		band = models.BandMedium
	default:
		band = models.BandLow
	}
	if band == models.BandHigh && riskFlagCount >= 2 {
		band = models.BandMedium
	}
	if band == models.BandMedium && riskFlagCount >= 3 {
		band = models.BandLow
	}
	return band
}

// RiskFlags assembles the fixed risk-flag vocabulary spec.md §4.6 names:
// one flag per missing required input, plus lineup/weather pending markers.
// Grounded on hr_model.py/hits_model.py's build_risk_flags call sites, which
// always pass the same three flag families.
func RiskFlags(missingInputs []string, lineupPending, weatherPending bool) []string {
	flags := make([]string, 0, len(missingInputs)+2)
	for _, m := range missingInputs {
		flags = append(flags, "missing:"+m)
	}
	if lineupPending {
		flags = append(flags, "lineup_pending")
	}
	if weatherPending {
		flags = append(flags, "weather_pending")
	}
	return flags
}

// VisibilityTier is the fixed FREE/PRO rule from spec.md §1: only a
// high-confidence BET is surfaced on the free tier.
func VisibilityTier(signal models.Signal, band models.ConfidenceBand) models.VisibilityTier {
	if signal == models.SignalBet && band == models.BandHigh {
		return models.TierFree
	}
	return models.TierPro
}

// BuildReasons renders the topK highest-magnitude-deviation-from-neutral
// factors into short human-readable strings, per hr_model.py's
// factors_json/reasons pairing. Ties break by factor name for determinism.
func BuildReasons(factors map[string]float64, topK int) []string {
	type kv struct {
		name string
		val  float64
	}
	ranked := make([]kv, 0, len(factors))
	for name, val := range factors {
		ranked = append(ranked, kv{name, val})
	}
	sort.Slice(ranked, func(i, j int) bool {
		di := math.Abs(ranked[i].val - 50.0)
		dj := math.Abs(ranked[j].val - 50.0)
		if di != dj {
			return di > dj
		}
		return ranked[i].name < ranked[j].name
	})
	if topK > len(ranked) {
		topK = len(ranked)
	}
	reasons := make([]string, 0, topK)
	for _, r := range ranked[:topK] {
		direction := "favors"
		if r.val < 50.0 {
			direction = "against"
		}
		reasons = append(reasons, r.name+" "+direction)
	}
	return reasons
}

// Sigmoid is the standard logistic function, used by the ML/totals/outs
// models to turn a net-strength or projection-vs-line margin into a
// probability, per ml_model.py's/outs_recorded_model.py's _sigmoid.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
