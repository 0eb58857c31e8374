package models

import (
	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/scoring"
)

// starterRA9, starterInnings, teamOffenseBase, and teamBullpenRA9 are the
// run-environment building blocks shared, byte-for-byte, between
// totals_model.py and team_totals_model.py's projection math. Each market's
// file combines them into its own expected-runs blend (the two originals
// use slightly different weights and clamps for that final blend).

func starterRA9(p *models.PitcherDailyFeatures) float64 {
	if p == nil {
		return 4.4
	}
	k := valueOr(firstNonNil(p.KPct30, p.KPct14), 22.0)
	bb := valueOr(firstNonNil(p.BBPct30, p.BBPct14), 8.0)
	hr9 := valueOr(firstNonNil(p.HR9_30, p.HR9_14), 1.1)
	hardHit := valueOr(firstNonNil(p.HardHitAllowed30, p.HardHitAllowed14), 35.0)
	ra9 := 4.15 + (hr9-1.1)*1.05 + (hardHit-35.0)*0.03 + (bb-8.0)*0.10 - (k-22.0)*0.06
	return scoring.Clamp(ra9, 2.2, 7.2)
}

func starterInnings(p *models.PitcherDailyFeatures) float64 {
	if p == nil {
		return 5.2
	}
	role := p.StarterRoleConfidence
	if role == 0 {
		role = 0.6
	}
	pitches := valueOr(p.PitchesAvgLast5, 90.0)
	innings := 4.7 + (role-0.5)*2.0 + (pitches-90.0)*0.015
	return scoring.Clamp(innings, 3.8, 7.0)
}

func teamOffenseBase(t *models.TeamDailyFeatures) float64 {
	if t == nil {
		return 4.4
	}
	runs := valueOr(firstNonNil(t.RunsPerGame30, t.RunsPerGame14), 4.4)
	iso := valueOr(firstNonNil(t.OffenseISO30, t.OffenseISO14), 0.160)
	obp := valueOr(firstNonNil(t.OffenseOBP30, t.OffenseOBP14), 0.320)
	return scoring.Clamp(runs+(iso-0.160)*8.0+(obp-0.320)*10.0, 2.8, 6.8)
}

// teamBullpenRA9 mirrors _team_bullpen_ra9's ERA-proxy path (this schema has
// no numeric high-leverage ERA field to blend in, only the categorical
// HighLeverageBullpenTier, so the proxy ERA stands alone).
func teamBullpenRA9(t *models.TeamDailyFeatures) float64 {
	if t == nil {
		return 4.2
	}
	era := valueOr(t.BullpenERA14, 4.2)
	whip := valueOr(t.BullpenWHIP14, 1.30)
	hr9 := valueOr(t.BullpenHR914, 1.1)
	ra9 := era + (whip-1.30)*0.8 + (hr9-1.1)*0.7
	return scoring.Clamp(ra9, 2.6, 6.5)
}

func runsAllowedProfile(starter *models.PitcherDailyFeatures, bullpenTeam *models.TeamDailyFeatures) float64 {
	starterRA := starterRA9(starter)
	starterIP := starterInnings(starter)
	bullpenRA := teamBullpenRA9(bullpenTeam)
	return starterRA*(starterIP/9.0) + bullpenRA*((9.0-starterIP)/9.0)
}
