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

// teamTotalExpectedRuns is team_totals_model.py's _team_expected_runs: a
// 56/44 blend (totals_model.py's equivalent uses 55/45) with a wider clamp,
// since a single team's runs swing further than a combined game total.
func teamTotalExpectedRuns(offenseTeam *models.TeamDailyFeatures, oppStarter *models.PitcherDailyFeatures, oppBullpenTeam *models.TeamDailyFeatures, envMultiplier float64) float64 {
	offenseBase := teamOffenseBase(offenseTeam)
	expected := (offenseBase*0.56 + runsAllowedProfile(oppStarter, oppBullpenTeam)*0.44) * envMultiplier
	return scoring.Clamp(expected, 1.1, 9.0)
}

// TeamTotalModel scores the TEAM_TOTAL (one team's runs, over/under) market
// for both teams, grounded on team_totals_model.py's score_game. Unlike
// TOTAL, a side here always gets a default line derived from the
// projection even without a book line, matching the original's per-side
// default-line fallback.
type TeamTotalModel struct{}

func (TeamTotalModel) Market() string { return "TEAM_TOTAL" }

func (TeamTotalModel) RequiredInputs() []string {
	return []string{"team_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (TeamTotalModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("TEAM_TOTAL")
	if !ok {
		return nil, fmt.Errorf("TEAM_TOTAL: no market spec registered")
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

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "TEAM_TOTAL", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	// MarketOdds carries no team-abbreviation column of its own (team
	// identity in this schema only exists as a string abbreviation, never a
	// numeric id), so the team a TEAM_TOTAL odds row belongs to is read off
	// its bet_type string, the same way its side is.
	type oddsKey struct {
		team string
		side string
	}
	oddsByTeamSide := make(map[oddsKey]models.MarketOdds, len(odds))
	for _, o := range odds {
		side := sideFromBetType(o.BetType, "TEAM_TOTAL")
		team := teamFromBetType(o.BetType, game.HomeTeam, game.AwayTeam)
		if (side == "OVER" || side == "UNDER") && team != "" {
			oddsByTeamSide[oddsKey{team, side}] = o
		}
	}

	sides := []struct {
		teamAbbr    string
		oppAbbr     string
		team        *models.TeamDailyFeatures
		oppTeam     *models.TeamDailyFeatures
		oppStarter  *models.PitcherDailyFeatures
	}{
		{game.HomeTeam, game.AwayTeam, homeTeam, awayTeam, awayPitcher},
		{game.AwayTeam, game.HomeTeam, awayTeam, homeTeam, homePitcher},
	}

	riskFlags := scoring.RiskFlags(nil, !lineupConfirmed, gctx == nil)

	var out []models.ScoredSelection
	for _, s := range sides {
		projection := teamTotalExpectedRuns(s.team, s.oppStarter, s.oppTeam, env)

		factors := map[string]float64{
			"offense_strength_score":          scoring.Clamp(50.0+(teamOffenseBase(s.team)-4.4)*16.0, 0.0, 100.0),
			"opponent_starter_suppress_score": scoring.Clamp(70.0-(starterRA9(s.oppStarter)-4.2)*12.0, 0.0, 100.0),
			"opponent_bullpen_suppress_score": scoring.Clamp(70.0-(teamBullpenRA9(s.oppTeam)-4.2)*14.0, 0.0, 100.0),
			"park_weather_score":              scoring.Clamp(50.0+(env-1.0)*180.0, 0.0, 100.0),
		}
		reasons := scoring.BuildReasons(factors, 3)
		defaultLine := math.Round(projection*2.0) / 2.0

		for _, side := range []string{"OVER", "UNDER"} {
			o, hasOdds := oddsByTeamSide[oddsKey{s.teamAbbr, side}]
			line := defaultLine
			if hasOdds && o.Line != nil {
				line = *o.Line
			}

			probOver := scoring.Sigmoid((projection - line) / 1.20)
			modelProb := probOver
			if side == "UNDER" {
				modelProb = 1.0 - probOver
			}

			var bookImplied, edge *float64
			if hasOdds {
				v := o.ImpliedProb
				bookImplied = &v
				edge, _ = oddsmath.ComputeEdge(oddsmath.OutputHybrid, &modelProb, &projection, &line, bookImplied)
			}

			modelScore := factors["offense_strength_score"]*0.38 +
				factors["opponent_starter_suppress_score"]*0.24 +
				factors["opponent_bullpen_suppress_score"]*0.22 +
				factors["park_weather_score"]*0.16
			if side == "UNDER" {
				modelScore = 100.0 - modelScore
			}
			if edge != nil {
				modelScore += scoring.Clamp(*edge*0.35, -8.0, 8.0)
			}
			modelScore = scoring.Clamp(modelScore, 0.0, 100.0)

			band := scoring.ConfidenceBand(modelScore, len(riskFlags))
			signal := scoring.AssignSignal(spec, modelScore, edge)

			betType := fmt.Sprintf("TEAM_TOTAL_%s", side)
			selectionKey := oddsmath.SelectionKey("TEAM_TOTAL", "team", game.GameID, &line, side)
			if hasOdds {
				betType = o.BetType
				selectionKey = o.SelectionKey
			}

			out = append(out, models.ScoredSelection{
				Market:          "TEAM_TOTAL",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "team",
				EntityID:        game.GameID,
				TeamAbbr:        s.teamAbbr,
				BetType:         betType,
				Line:            &line,
				SelectionKey:    selectionKey,
				Side:            side,
				ModelScore:      modelScore,
				ModelProb:       &modelProb,
				ModelProjection: &projection,
				BookImpliedProb: bookImplied,
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
	}

	log.Printf("✓ scored TEAM_TOTAL for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
