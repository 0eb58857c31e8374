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

var tbFactorWeights = map[string]float64{
	"power_form_score":           0.24,
	"tb_rate_score":               0.20,
	"pitcher_damage_allow_score": 0.14,
	"batting_order_score":        0.12,
	"park_weather_score":         0.10,
	"xbh_profile_score":          0.08,
	"tto_score":                  0.07,
	"day_night_score":            0.05,
}

var tbBattingOrderScore = map[int]float64{
	1: 72, 2: 78, 3: 85, 4: 82, 5: 70, 6: 58, 7: 45, 8: 35, 9: 28,
}

func tbPAExpectation(battingOrder *int) float64 {
	if battingOrder == nil {
		return 4.05
	}
	if v, ok := hitsPAExpectation[*battingOrder]; ok {
		return v
	}
	return 4.05
}

// TBModel scores the TB_LINE (total bases, over/under) market for every
// batter in the lineup universe, grounded on tb_model.py's score_game.
type TBModel struct{}

func (TBModel) Market() string { return "TB_LINE" }

func (TBModel) RequiredInputs() []string {
	return []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (TBModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("TB_LINE")
	if !ok {
		return nil, fmt.Errorf("TB_LINE: no market spec registered")
	}

	universe, err := scoring.LoadBatterUniverse(ctx, st, game.GameID, game.HomeTeam, game.AwayTeam)
	if err != nil {
		return nil, fmt.Errorf("load batter universe: %w", err)
	}
	if len(universe) == 0 {
		return nil, nil
	}

	gctx, err := scoring.LoadGameContext(ctx, st, gameDate, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game context: %w", err)
	}
	weatherMult := 1.0
	hrMult := 1.0
	parkFactor := 1.0
	if gctx != nil {
		if gctx.WeatherRunsMultiplier != nil {
			weatherMult = *gctx.WeatherRunsMultiplier
		}
		if gctx.WeatherHRMultiplier != nil {
			hrMult = *gctx.WeatherHRMultiplier
		}
		if gctx.ParkHRFactor != nil && gctx.ParkRunsFactor != nil {
			parkFactor = (*gctx.ParkHRFactor + *gctx.ParkRunsFactor) / 2.0
		} else if gctx.ParkRunsFactor != nil {
			parkFactor = *gctx.ParkRunsFactor
		} else if gctx.ParkHRFactor != nil {
			parkFactor = *gctx.ParkHRFactor
		}
	}
	lineupsConfirmedAll := gctx != nil && gctx.HomeLineupConfirmed && gctx.AwayLineupConfirmed

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "TB_LINE", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	oddsByPlayer := make(map[int64][]models.MarketOdds, len(odds))
	for _, o := range odds {
		oddsByPlayer[o.EntityID] = append(oddsByPlayer[o.EntityID], o)
	}

	var out []models.ScoredSelection
	for _, entry := range universe {
		batter, err := scoring.LoadBatterFeatures(ctx, st, gameDate, entry.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("load batter %d: %w", entry.PlayerID, err)
		}
		if batter == nil {
			continue
		}
		if batter.TBPerPA14 == nil && batter.TBPerPA30 == nil {
			continue
		}

		oppPitcherID := scoring.OpponentPitcherID(game, entry.TeamAbbr)
		var oppPitcher *models.PitcherDailyFeatures
		if oppPitcherID != nil {
			oppPitcher, err = scoring.LoadPitcherFeatures(ctx, st, gameDate, *oppPitcherID)
			if err != nil {
				return nil, fmt.Errorf("load opposing pitcher: %w", err)
			}
		}

		baseTBRate := scoring.Clamp(0.6*valueOr(batter.TBPerPA14, 0.0)+0.4*valueOr(batter.TBPerPA30, 0.0), 0.10, 0.95)

		pitcherPenalty := 0.0
		if oppPitcher != nil {
			evAllow := valueOr(oppPitcher.ExitVeloAllowed14, 89.0)
			hardHitAllow := valueOr(oppPitcher.HardHitAllowed14, 35.0)
			pitcherPenalty = (89.0-evAllow)*0.002 + (35.0-hardHitAllow)*0.003
		}

		battingOrder := entry.BattingOrder
		pa := tbPAExpectation(battingOrder)
		if !entry.LineupConfirmed {
			pa *= 0.95
		}
		envMult := scoring.Clamp(weatherMult*hrMult*parkFactor, 0.85, 1.2)
		adjustedTBRate := scoring.Clamp((baseTBRate-pitcherPenalty)*envMult, 0.08, 1.10)
		projection := scoring.Clamp(adjustedTBRate*pa, 0.1, 6.0)

		powerFormScore := 50.0 + (valueOr(batter.ISO14, 0.16)-0.16)*260.0 + (valueOr(batter.SLG14, 0.4)-0.4)*120.0
		tbRateScore := 50.0 + (baseTBRate-0.42)*150.0
		pitcherDamageAllowScore := 50.0
		if oppPitcher != nil {
			pitcherDamageAllowScore += (valueOr(oppPitcher.HardHitAllowed14, 35.0) - 35.0) * 1.4
			pitcherDamageAllowScore += (valueOr(oppPitcher.BarrelAllowed14, 8.5) - 8.5) * 2.0
		}
		orderSlot := 5
		if battingOrder != nil {
			orderSlot = *battingOrder
		}
		battingOrderScore := 50.0
		if v, ok := tbBattingOrderScore[orderSlot]; ok {
			battingOrderScore = v
		}
		parkWeatherScore := 50.0 + (envMult-1.0)*180.0
		doublesRate := firstNonNil(batter.DoublesRate14, batter.DoublesRate30)
		triplesRate := firstNonNil(batter.TriplesRate14, batter.TriplesRate30)
		xbhProfileScore := 50.0 + valueOr(doublesRate, 0.05)*200.0 + valueOr(triplesRate, 0.005)*400.0 + valueOr(batter.HRRate14, 0.04)*250.0

		ttoScore := 50.0
		if oppPitcher != nil && oppPitcher.TTOEnduranceScore != nil {
			ttoScore = 100.0 - *oppPitcher.TTOEnduranceScore
		}

		dayNightScore := 50.0
		if gctx != nil {
			if gctx.IsDayGame {
				dayNightScore = 56.0
			} else {
				dayNightScore = 47.0
			}
		}

		factors := map[string]float64{
			"power_form_score":           scoring.Clamp(powerFormScore, 0.0, 100.0),
			"tb_rate_score":               scoring.Clamp(tbRateScore, 0.0, 100.0),
			"pitcher_damage_allow_score": scoring.Clamp(pitcherDamageAllowScore, 0.0, 100.0),
			"batting_order_score":        scoring.Clamp(battingOrderScore, 0.0, 100.0),
			"park_weather_score":         scoring.Clamp(parkWeatherScore, 0.0, 100.0),
			"xbh_profile_score":          scoring.Clamp(xbhProfileScore, 0.0, 100.0),
			"tto_score":                  scoring.Clamp(ttoScore, 0.0, 100.0),
			"day_night_score":            dayNightScore,
		}
		composite := weightedSum(factors, tbFactorWeights)

		missing := []string{}
		if oppPitcher == nil {
			missing = append(missing, "opposing_pitcher_features")
		}
		lineupConfirmedForSelection := lineupsConfirmedAll && entry.LineupConfirmed
		reasons := scoring.BuildReasons(factors, 3)

		playerOdds := oddsByPlayer[entry.PlayerID]
		if len(playerOdds) == 0 {
			defaultLine := math.Round(projection*2.0) / 2.0
			threshold := int(math.Floor(defaultLine))
			probOver := scoring.Clamp(1.0-poissonProbAtMost(threshold, projection), 0.01, 0.99)
			riskFlags := scoring.RiskFlags(missing, !lineupConfirmedForSelection, gctx == nil)
			band := scoring.ConfidenceBand(composite, len(riskFlags))
			signal := scoring.AssignSignal(spec, composite, nil)
			out = append(out, models.ScoredSelection{
				Market:          "TB_LINE",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        entry.PlayerID,
				TeamAbbr:        entry.TeamAbbr,
				BetType:         "TB_LINE_OVER",
				Line:            &defaultLine,
				SelectionKey:    oddsmath.SelectionKey("TB_LINE", "player", entry.PlayerID, &defaultLine, "OVER"),
				Side:            "OVER",
				ModelScore:      composite,
				ModelProb:       &probOver,
				ModelProjection: &projection,
				Signal:          signal,
				ConfidenceBand:  band,
				VisibilityTier:  scoring.VisibilityTier(signal, band),
				Factors:         factors,
				Reasons:         reasons,
				RiskFlags:       riskFlags,
				LineupConfirmed: lineupConfirmedForSelection,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
			continue
		}

		for _, o := range playerOdds {
			side := sideFromBetType(o.BetType, "TB_LINE")
			threshold := 0
			if o.Line != nil {
				threshold = int(math.Floor(*o.Line))
			}
			probOver := scoring.Clamp(1.0-poissonProbAtMost(threshold, projection), 0.01, 0.99)
			modelProb := probOver
			if side != "OVER" {
				modelProb = 1.0 - probOver
			}
			impliedProb := o.ImpliedProb
			edge, riskFlag := oddsmath.ComputeEdge(oddsmath.OutputHybrid, &modelProb, &projection, o.Line, &impliedProb)
			m2 := append([]string{}, missing...)
			if riskFlag != "" {
				m2 = append(m2, riskFlag)
			}
			rf := scoring.RiskFlags(m2, !lineupConfirmedForSelection, gctx == nil)
			band := scoring.ConfidenceBand(composite, len(rf))
			signal := scoring.AssignSignal(spec, composite, edge)

			out = append(out, models.ScoredSelection{
				Market:          "TB_LINE",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        entry.PlayerID,
				TeamAbbr:        entry.TeamAbbr,
				BetType:         o.BetType,
				Line:            o.Line,
				SelectionKey:    o.SelectionKey,
				Side:            side,
				ModelScore:      composite,
				ModelProb:       &modelProb,
				ModelProjection: &projection,
				BookImpliedProb: &impliedProb,
				Edge:            edge,
				Signal:          signal,
				ConfidenceBand:  band,
				VisibilityTier:  scoring.VisibilityTier(signal, band),
				Factors:         factors,
				Reasons:         reasons,
				RiskFlags:       rf,
				LineupConfirmed: lineupConfirmedForSelection,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
		}
	}

	log.Printf("✓ scored TB_LINE for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
