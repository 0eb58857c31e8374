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

// totalExpectedRuns is totals_model.py's _team_expected_runs: a 55/45 blend
// of a team's own offense base and what its opponent's pitching staff gives
// up, scaled by the shared park/weather/umpire environment multiplier.
func totalExpectedRuns(offenseTeam *models.TeamDailyFeatures, oppStarter *models.PitcherDailyFeatures, oppBullpenTeam *models.TeamDailyFeatures, envMultiplier float64) float64 {
	offenseBase := teamOffenseBase(offenseTeam)
	expected := offenseBase*0.55 + runsAllowedProfile(oppStarter, oppBullpenTeam)*0.45
	expected *= envMultiplier
	return scoring.Clamp(expected, 1.2, 8.0)
}

// TotalModel scores the TOTAL (full-game runs, over/under) market, grounded
// on totals_model.py's score_game. Unlike the player-prop markets, TOTAL
// never emits a default no-odds row — a total needs a book line to mean
// anything, so an empty odds slate yields no selections at all.
type TotalModel struct{}

func (TotalModel) Market() string { return "TOTAL" }

func (TotalModel) RequiredInputs() []string {
	return []string{"team_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (TotalModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("TOTAL")
	if !ok {
		return nil, fmt.Errorf("TOTAL: no market spec registered")
	}

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "TOTAL", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	if len(odds) == 0 {
		return nil, nil
	}

	gctx, err := scoring.LoadGameContext(ctx, st, gameDate, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game context: %w", err)
	}
	lineupConfirmed := gctx != nil && gctx.HomeLineupConfirmed && gctx.AwayLineupConfirmed
	weatherMult, umpRunEnv := 1.0, 1.0
	if gctx != nil {
		if gctx.WeatherRunsMultiplier != nil {
			weatherMult = *gctx.WeatherRunsMultiplier
		}
		if gctx.UmpireRunEnvironment != nil {
			umpRunEnv = *gctx.UmpireRunEnvironment
		}
	}
	env := scoring.Clamp(weatherMult*umpRunEnv, 0.82, 1.25)

	homeTeam, err := scoring.LoadTeamFeatures(ctx, st, gameDate, game.HomeTeam)
	if err != nil {
		return nil, fmt.Errorf("load home team: %w", err)
	}
	awayTeam, err := scoring.LoadTeamFeatures(ctx, st, gameDate, game.AwayTeam)
	if err != nil {
		return nil, fmt.Errorf("load away team: %w", err)
	}
	var homePitcher, awayPitcher *models.PitcherDailyFeatures
	if game.HomePitcherID != nil {
		homePitcher, err = scoring.LoadPitcherFeatures(ctx, st, gameDate, *game.HomePitcherID)
		if err != nil {
			return nil, fmt.Errorf("load home pitcher: %w", err)
		}
	}
	if game.AwayPitcherID != nil {
		awayPitcher, err = scoring.LoadPitcherFeatures(ctx, st, gameDate, *game.AwayPitcherID)
		if err != nil {
			return nil, fmt.Errorf("load away pitcher: %w", err)
		}
	}

	homeRunsExp := totalExpectedRuns(homeTeam, awayPitcher, awayTeam, env)
	awayRunsExp := totalExpectedRuns(awayTeam, homePitcher, homeTeam, env)
	totalProjection := scoring.Clamp(homeRunsExp+awayRunsExp, 3.5, 16.0)

	factors := map[string]float64{
		"offense_pace_score":             scoring.Clamp(50.0+((teamOffenseBase(homeTeam)+teamOffenseBase(awayTeam))/2.0-4.4)*14.0, 0.0, 100.0),
		"starter_run_prevention_score":   scoring.Clamp(70.0-((starterRA9(homePitcher)+starterRA9(awayPitcher))/2.0-4.2)*12.0, 0.0, 100.0),
		"bullpen_run_prevention_score":   scoring.Clamp(70.0-((teamBullpenRA9(homeTeam)+teamBullpenRA9(awayTeam))/2.0-4.2)*14.0, 0.0, 100.0),
		"park_weather_score":             scoring.Clamp(50.0+(env-1.0)*180.0, 0.0, 100.0),
		"umpire_run_env_score":           scoring.Clamp(50.0+(umpRunEnv-1.0)*200.0, 0.0, 100.0),
	}
	reasons := scoring.BuildReasons(factors, 3)
	riskFlags := scoring.RiskFlags(nil, !lineupConfirmed, gctx == nil)

	var out []models.ScoredSelection
	for _, o := range odds {
		side := sideFromBetType(o.BetType, "TOTAL")
		if side != "OVER" && side != "UNDER" {
			continue
		}
		if o.Line == nil {
			continue
		}
		line := *o.Line
		probOver := scoring.Sigmoid((totalProjection - line) / 1.85)
		modelProb := probOver
		if side == "UNDER" {
			modelProb = 1.0 - probOver
		}
		impliedProb := o.ImpliedProb
		edge, _ := oddsmath.ComputeEdge(oddsmath.OutputHybrid, &modelProb, &totalProjection, o.Line, &impliedProb)

		modelScore := factors["offense_pace_score"]*0.30 +
			factors["starter_run_prevention_score"]*0.23 +
			factors["bullpen_run_prevention_score"]*0.20 +
			factors["park_weather_score"]*0.17 +
			factors["umpire_run_env_score"]*0.10
		if side == "UNDER" {
			modelScore = 100.0 - modelScore
		}
		if edge != nil {
			modelScore += scoring.Clamp(*edge*0.35, -8.0, 8.0)
		}
		modelScore = scoring.Clamp(modelScore, 0.0, 100.0)

		band := scoring.ConfidenceBand(modelScore, len(riskFlags))
		signal := scoring.AssignSignal(spec, modelScore, edge)

		out = append(out, models.ScoredSelection{
			Market:          "TOTAL",
			GameID:          game.GameID,
			GameDate:        gameDate,
			EntityKind:      "game",
			EntityID:        game.GameID,
			BetType:         o.BetType,
			Line:            o.Line,
			SelectionKey:    o.SelectionKey,
			Side:            side,
			ModelScore:      modelScore,
			ModelProb:       &modelProb,
			ModelProjection: &totalProjection,
			BookImpliedProb: &impliedProb,
			Edge:            edge,
			Signal:          signal,
			ConfidenceBand:  band,
			VisibilityTier:  scoring.VisibilityTier(signal, band),
			Factors:         factors,
			Reasons:         reasons,
			RiskFlags:       riskFlags,
			LineupConfirmed: lineupConfirmed,
			WeatherFinal:    gctx != nil && gctx.TempF != nil,
		})
	}

	log.Printf("✓ scored TOTAL for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
