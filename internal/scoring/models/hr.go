package models

import (
	"context"
	"fmt"
	"log"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/oddsmath"
	"github.com/fortuna/mlbedge/internal/scoring"
	"github.com/fortuna/mlbedge/internal/store"
)

// hrFactorWeights mirrors hr_model.py's HR_FACTOR_WEIGHTS: matchup quality
// against the opposing pitcher's hand dominates, then pitcher vulnerability,
// the batter's own barrel rate, recent hot/cold form, and park/weather last.
var hrFactorWeights = map[string]float64{
	"matchup_score":      0.35,
	"pitcher_vuln_score": 0.25,
	"barrel_score":       0.20,
	"hot_cold_score":     0.10,
	"park_weather_score": 0.10,
}

// HRModel scores the HR (to-hit-a-home-run) market for every batter in a
// confirmed lineup, grounded on hr_model.py's score_game.
type HRModel struct{}

func (HRModel) Market() string { return "HR" }

func (HRModel) RequiredInputs() []string {
	return []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (HRModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("HR")
	if !ok {
		return nil, fmt.Errorf("HR: no market spec registered")
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
	parkWeather := parkWeatherMultiplier(gctx)

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "HR", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	oddsByEntity := make(map[int64]models.MarketOdds, len(odds))
	for _, o := range odds {
		oddsByEntity[o.EntityID] = o
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

		oppPitcherID := scoring.OpponentPitcherID(game, entry.TeamAbbr)
		var oppPitcher *models.PitcherDailyFeatures
		missing := []string{}
		if oppPitcherID != nil {
			oppPitcher, err = scoring.LoadPitcherFeatures(ctx, st, gameDate, *oppPitcherID)
			if err != nil {
				return nil, fmt.Errorf("load opposing pitcher: %w", err)
			}
		}
		if oppPitcher == nil {
			missing = append(missing, "opposing_pitcher_features")
		}

		hand, haveHand := "", false
		if oppPitcherID != nil {
			hand, haveHand = scoring.PitcherHand(ctx, st, *oppPitcherID)
		}
		isoSplit := batter.ISOvsR
		if haveHand && hand == "L" {
			isoSplit = batter.ISOvsL
		}
		matchupScore := scoring.FactorScoreLinear(isoSplit, 0.10, 0.30)
		if oppPitcher != nil {
			pitcherHR9PctRange := scoring.FactorScoreLinear(firstNonNil(oppPitcher.HR9_14, oppPitcher.HR9_30), 0.4, 2.2)
			matchupScore = matchupScore*0.65 + pitcherHR9PctRange*0.35
		}

		pitcherVuln := 50.0
		if oppPitcher != nil {
			hr9Score := scoring.FactorScoreLinear(firstNonNil(oppPitcher.HR9_14, oppPitcher.HR9_30), 0.4, 2.2)
			barrelAllowedScore := scoring.FactorScoreLinear(firstNonNil(oppPitcher.BarrelAllowed14, oppPitcher.BarrelAllowed30), 0.04, 0.14)
			pitcherVuln = hr9Score*0.6 + barrelAllowedScore*0.4
		}

		barrelScore := scoring.FactorScoreLinear(firstNonNil(batter.Barrel7, batter.Barrel14, batter.Barrel30), 0.04, 0.18)

		hotColdScore := scoring.FactorScoreRelativeSlope(batter.HotColdISODelta, valueOr(batter.ISO30, 0.16), 0.05, 100.0, 30.0, 70.0)

		parkWeatherScore := scoring.FactorScoreLinear(&parkWeather, 0.85, 1.20)

		factors := map[string]float64{
			"matchup_score":      matchupScore,
			"pitcher_vuln_score": pitcherVuln,
			"barrel_score":       barrelScore,
			"hot_cold_score":     hotColdScore,
			"park_weather_score": parkWeatherScore,
		}
		composite := weightedSum(factors, hrFactorWeights)
		modelProb := scoring.Clamp(0.02+(composite/100.0)*0.33, 0.01, 0.45)

		var bookImplied *float64
		var edge *float64
		var riskFlag string
		if o, hasOdds := oddsByEntity[entry.PlayerID]; hasOdds {
			v := o.ImpliedProb
			bookImplied = &v
			edge, riskFlag = oddsmath.ComputeEdge(oddsmath.OutputProbability, &modelProb, nil, nil, bookImplied)
		}
		if riskFlag != "" {
			missing = append(missing, riskFlag)
		}

		riskFlags := scoring.RiskFlags(missing, !entry.LineupConfirmed, gctx == nil)
		band := scoring.ConfidenceBand(composite, len(riskFlags))
		signal := scoring.AssignSignal(spec, composite, edge)

		selectionKey := oddsmath.SelectionKey("HR", "player", entry.PlayerID, nil, "YES")
		sel := models.ScoredSelection{
			Market:          "HR",
			GameID:          game.GameID,
			GameDate:        gameDate,
			EntityKind:      "player",
			EntityID:        entry.PlayerID,
			TeamAbbr:        entry.TeamAbbr,
			BetType:         "HR",
			Line:            nil,
			SelectionKey:    selectionKey,
			Side:            "YES",
			ModelScore:      composite,
			ModelProb:       &modelProb,
			ModelProjection: nil,
			BookImpliedProb: bookImplied,
			Edge:            edge,
			Signal:          signal,
			ConfidenceBand:  band,
			VisibilityTier:  scoring.VisibilityTier(signal, band),
			Factors:         factors,
			Reasons:         scoring.BuildReasons(factors, 3),
			RiskFlags:       riskFlags,
			LineupConfirmed: entry.LineupConfirmed,
			WeatherFinal:    gctx != nil && gctx.TempF != nil,
		}
		out = append(out, sel)
	}

	log.Printf("✓ scored HR for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}

func parkWeatherMultiplier(gctx *models.GameContextFeatures) float64 {
	if gctx == nil {
		return 1.0
	}
	mult := 1.0
	if gctx.ParkHRFactor != nil {
		mult *= *gctx.ParkHRFactor
	}
	if gctx.WeatherHRMultiplier != nil {
		mult *= *gctx.WeatherHRMultiplier
	}
	return mult
}
