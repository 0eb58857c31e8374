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

// hitsFactorWeights mirrors hits_model.py's weights dict inside
// _score_from_factors.
var hitsFactorWeights = map[string]float64{
	"contact_score":               0.22,
	"hit_form_score":               0.22,
	"pitcher_contact_allow_score": 0.15,
	"batting_order_score":         0.12,
	"context_score":               0.08,
	"platoon_fit_score":           0.05,
	"hot_cold_score":              0.05,
	"tto_score":                   0.06,
	"day_night_score":             0.05,
}

var hitsBattingOrderScore = map[int]float64{
	1: 72, 2: 78, 3: 82, 4: 78, 5: 68, 6: 58, 7: 45, 8: 35, 9: 28,
}

var hitsPAExpectation = map[int]float64{
	1: 4.8, 2: 4.7, 3: 4.55, 4: 4.45, 5: 4.3, 6: 4.15, 7: 4.0, 8: 3.85, 9: 3.75,
}

func paExpectation(battingOrder *int) float64 {
	if battingOrder == nil {
		return 4.1
	}
	if v, ok := hitsPAExpectation[*battingOrder]; ok {
		return v
	}
	return 4.1
}

func poissonProbAtMost(k int, lambda float64) float64 {
	if lambda <= 0 {
		if k >= 0 {
			return 1.0
		}
		return 0.0
	}
	total := 0.0
	fact := 1.0
	for i := 0; i <= k; i++ {
		if i > 0 {
			fact *= float64(i)
		}
		total += math.Exp(-lambda) * math.Pow(lambda, float64(i)) / fact
	}
	return scoring.Clamp(total, 0.0, 1.0)
}

// hitsProjectionAndProb mirrors _build_projection_and_probs: HITS_1P uses a
// complementary-binomial-over-PA, HITS_LINE uses a Poisson tail over the line.
func hitsProjectionAndProb(market string, line *float64, baseHitRate, paExpect float64) (projection, prob float64) {
	projection = scoring.Clamp(baseHitRate*paExpect, 0.0, 3.5)
	if market == "HITS_1P" {
		rate := scoring.Clamp(baseHitRate, 0.01, 0.8)
		probYes := 1.0 - math.Pow(1.0-rate, paExpect)
		return projection, scoring.Clamp(probYes, 0.01, 0.99)
	}
	threshold := 0
	if line != nil {
		threshold = int(math.Floor(*line))
	}
	probOver := 1.0 - poissonProbAtMost(threshold, projection)
	return projection, scoring.Clamp(probOver, 0.01, 0.99)
}

// HitsModel scores both HITS_1P (1+ hit, yes/no) and HITS_LINE (hits
// over/under a book line) for every batter in the lineup universe, grounded
// on hits_model.py's score_game, which runs the same per-player factor math
// for both markets and differs only in how the line is converted to a
// probability.
type HitsModel struct {
	market string // "HITS_1P" or "HITS_LINE"
}

func NewHits1PModel() HitsModel   { return HitsModel{market: "HITS_1P"} }
func NewHitsLineModel() HitsModel { return HitsModel{market: "HITS_LINE"} }

func (m HitsModel) Market() string { return m.market }

func (m HitsModel) RequiredInputs() []string {
	return []string{"batter_daily_features", "pitcher_daily_features", "game_context_features"}
}

func (m HitsModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	spec, ok := marketSpecs.Get(m.market)
	if !ok {
		return nil, fmt.Errorf("%s: no market spec registered", m.market)
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
	if gctx != nil && gctx.WeatherRunsMultiplier != nil {
		weatherMult = *gctx.WeatherRunsMultiplier
	}
	lineupsConfirmedAll := gctx != nil && gctx.HomeLineupConfirmed && gctx.AwayLineupConfirmed

	odds, err := scoring.LoadBestOdds(ctx, st, gameDate, m.market, game.GameID)
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
		if batter.HitRate14 == nil && batter.HitRate30 == nil {
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

		baseHitRate := 0.6*valueOr(batter.HitRate14, 0.0) + 0.4*valueOr(batter.HitRate30, 0.0)
		baseHitRate = scoring.Clamp(baseHitRate, 0.08, 0.45)

		pitcherSuppress := 0.0
		if oppPitcher != nil {
			oppK := valueOr(oppPitcher.KPct14, 22.0)
			oppHardHit := valueOr(oppPitcher.HardHitAllowed14, 35.0)
			pitcherSuppress = (oppK-22.0)*0.0025 - (oppHardHit-35.0)*0.0015
		}

		battingOrder := entry.BattingOrder
		paExpect := paExpectation(battingOrder)
		if !entry.LineupConfirmed {
			paExpect *= 0.95
		}

		ttoBoost := 0.0
		if oppPitcher != nil && oppPitcher.TTOKDecayPct != nil {
			base := (*oppPitcher.TTOKDecayPct - 18.0) * 0.0008
			if battingOrder != nil && *battingOrder >= 3 && *battingOrder <= 6 {
				base *= 1.3
			}
			ttoBoost = base
		}

		adjustedHitRate := scoring.Clamp(baseHitRate-pitcherSuppress+ttoBoost, 0.06, 0.55)
		adjustedHitRate *= weatherMult
		if gctx != nil {
			if gctx.IsDayGame {
				adjustedHitRate *= 1.02
			} else {
				adjustedHitRate *= 0.995
			}
		}
		adjustedHitRate = scoring.Clamp(adjustedHitRate, 0.06, 0.60)

		contactScore := scoring.Clamp(100.0-valueOr(batter.KPct14, 22.0)*2.2, 0.0, 100.0)
		hitFormScore := scoring.Clamp(50.0+(firstHitRate(batter)-0.25)*220.0, 0.0, 100.0)
		pitcherContactAllowScore := 50.0
		if oppPitcher != nil {
			pitcherContactAllowScore += (valueOr(oppPitcher.HardHitAllowed14, 35.0) - 35.0) * 1.5
		}
		pitcherContactAllowScore = scoring.Clamp(pitcherContactAllowScore, 0.0, 100.0)

		orderSlot := 5
		if battingOrder != nil {
			orderSlot = *battingOrder
		}
		battingOrderScore := 50.0
		if v, ok := hitsBattingOrderScore[orderSlot]; ok {
			battingOrderScore = v
		}

		contextScore := 50.0
		if gctx != nil && gctx.TempF != nil {
			contextScore = 50.0 + (*gctx.TempF-70.0)*0.7
		}
		contextScore = scoring.Clamp(contextScore, 0.0, 100.0)

		var pitcherHand string
		if oppPitcherID != nil {
			pitcherHand, _ = scoring.PitcherHand(ctx, st, *oppPitcherID)
		}
		platoonFitScore := 50.0
		if pitcherHand != "" {
			splitRate, otherRate := batter.HitRateVsR, batter.HitRateVsL
			if pitcherHand == "L" {
				splitRate, otherRate = batter.HitRateVsL, batter.HitRateVsR
			}
			if splitRate != nil && otherRate != nil {
				avgRate := (*splitRate + *otherRate) / 2.0
				if avgRate > 0 {
					advantage := (*splitRate - avgRate) / avgRate
					platoonFitScore = scoring.Clamp(50.0+advantage*150.0, 20.0, 80.0)
				}
			}
		}

		hr30Base := valueOr(batter.HitRate30, 0.25)
		relativeSlope := valueOr(batter.HotColdHitRateDelta, 0.0) / math.Max(hr30Base, 0.05)
		hotColdScore := scoring.Clamp(50.0+relativeSlope*100.0, 10.0, 90.0)

		ttoScore := 50.0
		if oppPitcher != nil && oppPitcher.TTOEnduranceScore != nil {
			ttoScore = 100.0 - *oppPitcher.TTOEnduranceScore
		}

		dayNightScore := 50.0
		if gctx != nil {
			if gctx.IsDayGame {
				dayNightScore = 58.0
			} else {
				dayNightScore = 47.0
			}
		}

		factors := map[string]float64{
			"contact_score":               contactScore,
			"hit_form_score":              hitFormScore,
			"pitcher_contact_allow_score": pitcherContactAllowScore,
			"batting_order_score":         battingOrderScore,
			"context_score":               contextScore,
			"platoon_fit_score":           platoonFitScore,
			"hot_cold_score":              hotColdScore,
			"tto_score":                   ttoScore,
			"day_night_score":             dayNightScore,
		}
		composite := weightedSum(factors, hitsFactorWeights)

		missing := []string{}
		if oppPitcher == nil {
			missing = append(missing, "opposing_pitcher_features")
		}
		lineupConfirmedForSelection := lineupsConfirmedAll && entry.LineupConfirmed
		riskFlags := scoring.RiskFlags(missing, !lineupConfirmedForSelection, gctx == nil)
		band := scoring.ConfidenceBand(composite, len(riskFlags))
		reasons := scoring.BuildReasons(factors, 3)

		playerOdds := oddsByPlayer[entry.PlayerID]
		if len(playerOdds) == 0 {
			defaultLine := 0.5
			if m.market == "HITS_LINE" {
				defaultLine = math.Round(adjustedHitRate*paExpect*2.0) / 2.0
			}
			projection, probYesOrOver := hitsProjectionAndProb(m.market, &defaultLine, adjustedHitRate, paExpect)
			side := "OVER"
			if m.market == "HITS_1P" {
				side = "YES"
			}
			modelProb := probYesOrOver
			signal := scoring.AssignSignal(spec, composite, nil)
			out = append(out, models.ScoredSelection{
				Market:          m.market,
				GameID:          game.GameID,
				GameDate:        gameDate,
				EntityKind:      "player",
				EntityID:        entry.PlayerID,
				TeamAbbr:        entry.TeamAbbr,
				BetType:         fmt.Sprintf("%s_%s", m.market, side),
				Line:            &defaultLine,
				SelectionKey:    oddsmath.SelectionKey(m.market, "player", entry.PlayerID, &defaultLine, side),
				Side:            side,
				ModelScore:      composite,
				ModelProb:       &modelProb,
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
			projection, probYesOrOver := hitsProjectionAndProb(m.market, o.Line, adjustedHitRate, paExpect)
			side := sideFromBetType(o.BetType, m.market)
			modelProb := probYesOrOver
			if m.market == "HITS_1P" {
				if side != "YES" && side != "OVER" {
					modelProb = 1.0 - probYesOrOver
				}
			} else if side != "OVER" {
				modelProb = 1.0 - probYesOrOver
			}
			impliedProb := o.ImpliedProb
			edge, riskFlag := oddsmath.ComputeEdge(oddsmath.OutputHybrid, &modelProb, &projection, o.Line, &impliedProb)
			m2 := append([]string{}, missing...)
			if riskFlag != "" {
				m2 = append(m2, riskFlag)
			}
			rf := scoring.RiskFlags(m2, !lineupConfirmedForSelection, gctx == nil)
			b2 := scoring.ConfidenceBand(composite, len(rf))
			signal := scoring.AssignSignal(spec, composite, edge)

			out = append(out, models.ScoredSelection{
				Market:          m.market,
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
				ConfidenceBand:  b2,
				VisibilityTier:  scoring.VisibilityTier(signal, b2),
				Factors:         factors,
				Reasons:         reasons,
				RiskFlags:       rf,
				LineupConfirmed: lineupConfirmedForSelection,
				WeatherFinal:    gctx != nil && gctx.TempF != nil,
			})
		}
	}

	log.Printf("✓ scored %s for game %d on %s: %d rows", m.market, game.GameID, gameDate, len(out))
	return out, nil
}

// sideFromBetType recovers which side a sportsbook's bet_type string encodes
// (e.g. "HITS_1P_YES", "HITS_LINE_UNDER"); book feeds that don't carry a
// recognizable suffix default to the market's favorable side.
func sideFromBetType(betType, market string) string {
	switch {
	case containsSuffix(betType, "_NO"):
		return "NO"
	case containsSuffix(betType, "_YES"):
		return "YES"
	case containsSuffix(betType, "_UNDER"):
		return "UNDER"
	case containsSuffix(betType, "_OVER"):
		return "OVER"
	}
	if market == "HITS_1P" {
		return "YES"
	}
	return "OVER"
}

func containsSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func firstHitRate(b *models.BatterDailyFeatures) float64 {
	if b.HitRate14 != nil {
		return *b.HitRate14
	}
	if b.HitRate30 != nil {
		return *b.HitRate30
	}
	return 0.25
}
