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

// kFactorWeights mirrors k_model.py's K_FACTOR_WEIGHTS.
var kFactorWeights = map[string]float64{
	"k_form_score":        0.35,
	"whiff_chase_score":   0.25,
	"pitch_count_score":   0.15,
	"contact_score":       0.15,
	"context_score":       0.10,
}

// KModel scores the K (strikeouts, pitcher prop) market for both starting
// pitchers in a game, grounded on k_model.py's score_game. Unlike the
// original (which left odds unwired for this market), K is registered as an
// OutputHybrid market here — when market_odds carries a K line, an
// over/under probability is derived from the projection; otherwise the
// model still emits a pure projection row, same as the original.
type KModel struct{}

func (KModel) Market() string { return "K" }

func (KModel) RequiredInputs() []string {
	return []string{"pitcher_daily_features", "team_daily_features", "game_context_features"}
}

func (KModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("K")
	if !ok {
		return nil, fmt.Errorf("K: no market spec registered")
	}

	gctx, err := scoring.LoadGameContext(ctx, st, gameDate, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game context: %w", err)
	}

	starters := []struct {
		pitcherID *int64
		teamAbbr  string
		oppAbbr   string
	}{
		{game.HomePitcherID, game.HomeTeam, game.AwayTeam},
		{game.AwayPitcherID, game.AwayTeam, game.HomeTeam},
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

		kForm := scoring.FactorScoreLinear(firstNonNil(pitcher.KPct14, pitcher.KPct30), 0.14, 0.32)
		whiffChase := 50.0 // no swing-level whiff/chase tracking in this schema
		pitchCountRole := scoring.FactorScoreLinear(firstNonNil(pitcher.BattersFaced14, pitcher.BattersFaced30), 40.0, 120.0)
		contactScore := 100.0 - scoring.FactorScoreLinear(firstNonNil(pitcher.ExitVeloAllowed14, pitcher.ExitVeloAllowed30), 85.0, 95.0)
		contextScore := 50.0
		if gctx != nil && gctx.TempF != nil {
			// Colder weather slightly favors strikeouts (less carry on contact).
			contextScore = scoring.Clamp(60.0-((*gctx.TempF-40.0)*0.3), 45.0, 60.0)
		}

		factors := map[string]float64{
			"k_form_score":      kForm,
			"whiff_chase_score": whiffChase,
			"pitch_count_score": pitchCountRole,
			"contact_score":     contactScore,
			"context_score":     contextScore,
		}
		composite := weightedSum(factors, kFactorWeights)
		projection := scoring.Clamp(3.5+(composite/100.0)*5.5, 2.0, 12.0)

		missing := []string{}
		if pitcher.KPct14 == nil && pitcher.KPct30 == nil {
			missing = append(missing, "k_pct")
		}

		odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "K", game.GameID)
		if err != nil {
			return nil, fmt.Errorf("load odds: %w", err)
		}
		var linedOdds *models.MarketOdds
		for i := range odds {
			if odds[i].EntityID == *s.pitcherID {
				linedOdds = &odds[i]
				break
			}
		}

		sides := []string{"OVER", "UNDER"}
		if linedOdds == nil {
			sides = []string{"PROJECTION"}
		}
		for _, side := range sides {
			var line *float64
			var modelProb, bookImplied, edge *float64
			var riskFlag string
			if linedOdds != nil {
				line = linedOdds.Line
				if line != nil {
					probOver := scoring.Sigmoid((projection - *line) / 1.5)
					mp := probOver
					if side == "UNDER" {
						mp = 1.0 - probOver
					}
					modelProb = &mp
					v := linedOdds.ImpliedProb
					bookImplied = &v
					edge, riskFlag = oddsmath.ComputeEdge(oddsmath.OutputHybrid, modelProb, &projection, line, bookImplied)
				}
			}
			selSide := side
			if selSide == "PROJECTION" {
				selSide = "OVER"
			}
			m := append([]string{}, missing...)
			if riskFlag != "" {
				m = append(m, riskFlag)
			}
			riskFlags := scoring.RiskFlags(m, false, gctx == nil)
			band := scoring.ConfidenceBand(composite, len(riskFlags))
			signal := scoring.AssignSignal(spec, composite, edge)

			out = append(out, models.ScoredSelection{
				Market:          "K",
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        *s.pitcherID,
				TeamAbbr:        s.teamAbbr,
				BetType:         "K",
				Line:            line,
				SelectionKey:    oddsmath.SelectionKey("K", "player", *s.pitcherID, line, selSide),
				Side:            selSide,
				ModelScore:      composite,
				ModelProb:       modelProb,
				ModelProjection: &projection,
				BookImpliedProb: bookImplied,
				Edge:            edge,
				Signal:          signal,
				ConfidenceBand:  band,
				VisibilityTier:  scoring.VisibilityTier(signal, band),
				Factors:         factors,
				Reasons:         scoring.BuildReasons(factors, 3),
				RiskFlags:       riskFlags,
				LineupConfirmed: true,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
		}
	}

	log.Printf("✓ scored K for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
