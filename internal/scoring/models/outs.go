package models

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/oddsmath"
	"github.com/fortuna/mlbedge/internal/scoring"
	"github.com/fortuna/mlbedge/internal/store"
)

// OutsModel scores the OUTS_RECORDED (starter outs recorded, over/under)
// market for both starting pitchers, grounded on
// outs_recorded_model.py's score_game / _project_outs.
type OutsModel struct{}

func (OutsModel) Market() string { return "OUTS_RECORDED" }

func (OutsModel) RequiredInputs() []string {
	return []string{"pitcher_daily_features", "team_daily_features", "game_context_features"}
}

func (OutsModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("OUTS_RECORDED")
	if !ok {
		return nil, fmt.Errorf("OUTS_RECORDED: no market spec registered")
	}

	gctx, err := scoring.LoadGameContext(ctx, st, gameDate, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game context: %w", err)
	}
	lineupsConfirmed := gctx != nil && gctx.HomeLineupConfirmed && gctx.AwayLineupConfirmed

	starters := []struct {
		pitcherID *int64
		teamAbbr  string
		oppAbbr   string
	}{
		{game.HomePitcherID, game.HomeTeam, game.AwayTeam},
		{game.AwayPitcherID, game.AwayTeam, game.HomeTeam},
	}

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "OUTS_RECORDED", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	oddsByPitcher := make(map[int64][]models.MarketOdds, len(odds))
	for _, o := range odds {
		oddsByPitcher[o.EntityID] = append(oddsByPitcher[o.EntityID], o)
	}

	var out []models.ScoredSelection
	for _, s := range starters {
		if s.pitcherID == nil {
			continue
		}
		pitcher, err := scoring.LoadPitcherFeatures(ctx, st, gameDate, *s.pitcherID)
		if err != nil {
			return nil, fmt.Errorf("load pitcher %d: %w", *s.pitcherID, err)
		}
		if pitcher == nil {
			continue
		}
		oppTeam, err := scoring.LoadTeamFeatures(ctx, st, gameDate, s.oppAbbr)
		if err != nil {
			return nil, fmt.Errorf("load opponent team features: %w", err)
		}

		missing := []string{}
		roleVal := 0.55
		if pitcher.StarterRoleConfidence > 0 {
			roleVal = pitcher.StarterRoleConfidence
		} else {
			missing = append(missing, "starter_role_confidence")
		}
		if pitcher.OutsRecordedAvgLast5 == nil {
			missing = append(missing, "outs_recorded_avg_last_5")
		}
		if pitcher.PitchesAvgLast5 == nil {
			missing = append(missing, "pitches_avg_last_5")
		}
		var oppBB *float64
		if oppTeam != nil {
			oppBB = oppTeam.OffenseBBPct14
		}
		if oppBB == nil {
			missing = append(missing, "opponent_offense_bb_pct_14")
		}

		weatherRisk := 0.0
		if gctx != nil && gctx.WindMPH != nil && *gctx.WindMPH >= 18.0 {
			weatherRisk = 0.3
		}

		baseOuts := 16.5 + roleVal*2.5
		if pitcher.OutsRecordedAvgLast5 != nil {
			baseOuts = *pitcher.OutsRecordedAvgLast5
		}
		pitchCap := valueOr(pitcher.PitchesAvgLast5, 88.0)

		efficiencyAdj := 0.0
		if pitcher.BBPct14 != nil {
			efficiencyAdj -= (*pitcher.BBPct14 - 8.0) * 0.20
		}
		if pitcher.KPct14 != nil {
			efficiencyAdj += (*pitcher.KPct14 - 22.0) * 0.12
		}
		if oppBB != nil {
			efficiencyAdj -= (*oppBB - 8.0) * 0.25
		}
		var oppRuns *float64
		if oppTeam != nil {
			oppRuns = oppTeam.RunsPerGame14
		}
		if oppRuns != nil {
			efficiencyAdj -= (*oppRuns - 4.4) * 0.25
		}
		efficiencyAdj -= weatherRisk * 1.4

		pitchAdj := (pitchCap - 88.0) * 0.06
		projection := scoring.Clamp(baseOuts+pitchAdj+efficiencyAdj, 9.0, 24.0)

		factors := map[string]float64{
			"starter_leash_score":      scoring.Clamp(roleVal*100.0, 0.0, 100.0),
			"pitch_count_score":        scoring.Clamp(50.0+(pitchCap-88.0)*1.8, 0.0, 100.0),
			"efficiency_score":         scoring.Clamp(50.0+efficiencyAdj*4.0, 0.0, 100.0),
			"opponent_patience_score":  scoring.Clamp(70.0-valueOr(oppBB, 8.0)*3.0, 0.0, 100.0),
			"weather_delay_risk_score": scoring.Clamp(65.0-weatherRisk*70.0, 0.0, 100.0),
		}
		baseScore := scoring.Clamp(
			factors["starter_leash_score"]*0.30+
				factors["pitch_count_score"]*0.22+
				factors["efficiency_score"]*0.24+
				factors["opponent_patience_score"]*0.16+
				factors["weather_delay_risk_score"]*0.08,
			0.0, 100.0)

		riskFlags := scoring.RiskFlags(missing, !lineupsConfirmed, gctx == nil)
		band := scoring.ConfidenceBand(baseScore, len(riskFlags))
		reasons := scoring.BuildReasons(factors, 3)

		pitcherOdds := oddsByPitcher[*s.pitcherID]
		if len(pitcherOdds) == 0 {
			defaultLine := math.Round(projection*2.0) / 2.0
			probOver := scoring.Sigmoid((projection - defaultLine) / 1.6)
			signal := scoring.AssignSignal(spec, baseScore, nil)
			out = append(out, models.ScoredSelection{
				Market:          "OUTS_RECORDED",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        *s.pitcherID,
				TeamAbbr:        s.teamAbbr,
				BetType:         "OUTS_RECORDED_OVER",
				Line:            &defaultLine,
				SelectionKey:    oddsmath.SelectionKey("OUTS_RECORDED", "player", *s.pitcherID, &defaultLine, "OVER"),
				Side:            "OVER",
				ModelScore:      baseScore,
				ModelProb:       &probOver,
				ModelProjection: &projection,
				Signal:          signal,
				ConfidenceBand:  band,
				VisibilityTier:  scoring.VisibilityTier(signal, band),
				Factors:         factors,
				Reasons:         reasons,
				RiskFlags:       riskFlags,
				LineupConfirmed: lineupsConfirmed,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
			continue
		}

		for _, o := range pitcherOdds {
			side := sideFromBetType(o.BetType, "OUTS_RECORDED")
			line := o.Line
			if line == nil {
				v := 15.5
				line = &v
			}
			probOver := scoring.Sigmoid((projection - *line) / 1.6)
			modelProb := probOver
			if side != "OVER" {
				modelProb = 1.0 - probOver
			}
			impliedProb := o.ImpliedProb
			edge, riskFlag := oddsmath.ComputeEdge(oddsmath.OutputHybrid, &modelProb, &projection, line, &impliedProb)
			modelScore := baseScore
			if edge != nil {
				modelScore = scoring.Clamp(baseScore+scoring.Clamp(*edge*0.35, -8.0, 8.0), 0.0, 100.0)
			}
			m2 := append([]string{}, missing...)
			if riskFlag != "" {
				m2 = append(m2, riskFlag)
			}
			rf := scoring.RiskFlags(m2, !lineupsConfirmed, gctx == nil)
			b2 := scoring.ConfidenceBand(modelScore, len(rf))
			signal := scoring.AssignSignal(spec, modelScore, edge)

			out = append(out, models.ScoredSelection{
				Market:          "OUTS_RECORDED",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        *s.pitcherID,
				TeamAbbr:        s.teamAbbr,
				BetType:         o.BetType,
				Line:            o.Line,
				SelectionKey:    o.SelectionKey,
				Side:            side,
				ModelScore:      modelScore,
				ModelProb:       &modelProb,
				ModelProjection: &projection,
				BookImpliedProb: &impliedProb,
				Edge:            edge,
				Signal:          signal,
				ConfidenceBand:  b2,
				VisibilityTier:  scoring.VisibilityTier(signal, b2),
				Factors:         factors,
				Reasons:         reasons,
				RiskFlags:       rf,
				LineupConfirmed: lineupsConfirmed,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
		}
	}

	log.Printf("✓ scored OUTS_RECORDED for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
