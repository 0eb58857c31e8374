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

func starterStrength(p *models.PitcherDailyFeatures) float64 {
	if p == nil {
		return 0.0
	}
	k := valueOr(firstNonNil(p.KPct30, p.KPct14), 22.0)
	bb := valueOr(firstNonNil(p.BBPct30, p.BBPct14), 8.0)
	hr9 := valueOr(firstNonNil(p.HR9_30, p.HR9_14), 1.1)
	role := p.StarterRoleConfidence
	if role == 0 {
		role = 0.6
	}
	return (k-bb)*0.7 - (hr9-1.1)*12.0 + (role-0.6)*8.0
}

func offenseStrength(t *models.TeamDailyFeatures) float64 {
	if t == nil {
		return 0.0
	}
	runs := valueOr(firstNonNil(t.RunsPerGame30, t.RunsPerGame14), 4.4)
	obp := valueOr(firstNonNil(t.OffenseOBP30, t.OffenseOBP14), 0.320)
	slg := valueOr(firstNonNil(t.OffenseSLG30, t.OffenseSLG14), 0.405)
	hrRate := valueOr(firstNonNil(t.HRRate30, t.HRRate14), 0.032)
	return (runs-4.4)*2.8 + (obp-0.320)*120.0 + (slg-0.405)*55.0 + (hrRate-0.032)*180.0
}

// bullpenStrength mirrors _bullpen_strength, minus the high-leverage ERA
// blend the original layers on top of the ERA proxy — this schema carries
// only a categorical HighLeverageBullpenTier, not a numeric high-leverage
// ERA, so the proxy ERA stands alone here.
func bullpenStrength(t *models.TeamDailyFeatures) float64 {
	if t == nil {
		return 0.0
	}
	era := valueOr(t.BullpenERA14, 4.2)
	whip := valueOr(t.BullpenWHIP14, 1.30)
	k := valueOr(t.BullpenKPct14, 22.0)
	hr9 := valueOr(t.BullpenHR914, 1.1)
	return (4.2-era)*2.0 + (1.30-whip)*14.0 + (k-22.0)*0.55 - (hr9-1.1)*7.0
}

// MLModel scores the ML (moneyline, both sides) market, grounded on
// ml_model.py's score_game.
type MLModel struct{}

func (MLModel) Market() string { return "ML" }

func (MLModel) RequiredInputs() []string {
	return []string{"team_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (MLModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get("ML")
	if !ok {
		return nil, fmt.Errorf("ML: no market spec registered")
	}

	gctx, err := scoring.LoadGameContext(ctx, st, gameDate, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game context: %w", err)
	}
	lineupConfirmed := gctx != nil && gctx.HomeLineupConfirmed && gctx.AwayLineupConfirmed
	weatherMult := 1.0
	if gctx != nil && gctx.WeatherRunsMultiplier != nil {
		weatherMult = *gctx.WeatherRunsMultiplier
	}

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

	homeStrength := offenseStrength(homeTeam) + bullpenStrength(homeTeam) + starterStrength(homePitcher)
	awayStrength := offenseStrength(awayTeam) + bullpenStrength(awayTeam) + starterStrength(awayPitcher)
	homeFieldAdv := 1.8
	weatherHomeAdj := (weatherMult - 1.0) * 2.0
	netHome := homeStrength - awayStrength + homeFieldAdv + weatherHomeAdj
	homeWinProb := scoring.Sigmoid(netHome / 8.5)
	awayWinProb := 1.0 - homeWinProb

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, "ML", game.GameID)
	if err != nil {
		return nil, fmt.Errorf("load odds: %w", err)
	}
	oddsBySide := make(map[string]models.MarketOdds, 2)
	for _, o := range odds {
		side := sideFromBetType(o.BetType, "ML")
		oddsBySide[side] = o
	}

	sides := []struct {
		name       string
		teamAbbr   string
		oppAbbr    string
		modelProb  float64
		strength   float64
		oppStrength float64
	}{
		{"HOME", game.HomeTeam, game.AwayTeam, homeWinProb, homeStrength, awayStrength},
		{"AWAY", game.AwayTeam, game.HomeTeam, awayWinProb, awayStrength, homeStrength},
	}

	var out []models.ScoredSelection
	for _, s := range sides {
		var bookImplied *float64
		var edge *float64
		var line *float64
		betType := fmt.Sprintf("ML_%s", s.name)
		selectionKey := oddsmath.SelectionKey("ML", "game", game.GameID, nil, s.name)
		if o, hasOdds := oddsBySide[s.name]; hasOdds {
			v := o.ImpliedProb
			bookImplied = &v
			edge, _ = oddsmath.ComputeEdge(oddsmath.OutputProbability, &s.modelProb, nil, nil, bookImplied)
			line = o.Line
			betType = o.BetType
			selectionKey = o.SelectionKey
		}

		strengthGap := s.strength - s.oppStrength
		modelScore := 50.0 + (s.modelProb-0.5)*90.0 + strengthGap*0.4
		if edge != nil {
			modelScore += scoring.Clamp(*edge*0.35, -8.0, 8.0)
		}
		modelScore = scoring.Clamp(modelScore, 0.0, 100.0)

		sideStarter, oppStarter := homePitcher, awayPitcher
		if s.name == "AWAY" {
			sideStarter, oppStarter = awayPitcher, homePitcher
		}
		sideTeam, oppTeam := homeTeam, awayTeam
		if s.name == "AWAY" {
			sideTeam, oppTeam = awayTeam, homeTeam
		}
		homeFieldScore := 38.0
		if s.name == "HOME" {
			homeFieldScore = 62.0
		}
		factors := map[string]float64{
			"starter_edge_score":    scoring.Clamp(50.0+(starterStrength(sideStarter)-starterStrength(oppStarter))*2.1, 0.0, 100.0),
			"offense_edge_score":    scoring.Clamp(50.0+(offenseStrength(sideTeam)-offenseStrength(oppTeam))*2.5, 0.0, 100.0),
			"bullpen_edge_score":    scoring.Clamp(50.0+(bullpenStrength(sideTeam)-bullpenStrength(oppTeam))*3.0, 0.0, 100.0),
			"home_field_score":      homeFieldScore,
			"weather_context_score": scoring.Clamp(50.0+(weatherMult-1.0)*150.0, 0.0, 100.0),
		}
		reasons := scoring.BuildReasons(factors, 3)
		riskFlags := scoring.RiskFlags(nil, !lineupConfirmed, gctx == nil)
		band := scoring.ConfidenceBand(modelScore, len(riskFlags))
		signal := scoring.AssignSignal(spec, modelScore, edge)
		modelProb := s.modelProb

		out = append(out, models.ScoredSelection{
			Market:          "ML",
			GameID:          game.GameID,
			GameDate:        gameDate,
			EntityKind:      "game",
			EntityID:        game.GameID,
			TeamAbbr:        s.teamAbbr,
			BetType:         betType,
			Line:            line,
			SelectionKey:    selectionKey,
			Side:            s.name,
			ModelScore:      modelScore,
			ModelProb:       &modelProb,
			ModelProjection: nil,
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

	log.Printf("✓ scored ML for game %d on %s: %d rows", game.GameID, gameDate, len(out))
	return out, nil
}
