package pipeline

import (
	"log"
	"strings"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/oddsmath"
)

// ResolveGameMarketOdds fills in the game_id/entity/selection_key fields
// fetchers.FetchMarketOdds leaves blank (The Odds API has no MLB game or
// player id of its own) for game-scoped markets (ML, TOTAL), matching each
// row's BetType team name against the day's slate. Player-scoped markets
// (HR and the rest) are dropped with a log line: resolving a sportsbook
// outcome name to this schema's numeric player id would need a name
// roster, which isn't part of this store — those markets score and grade
// on model projections alone, with no book-odds edge computation.
func ResolveGameMarketOdds(games []models.Game, rows []models.MarketOdds) []models.MarketOdds {
	resolved := make([]models.MarketOdds, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if row.Market != "ML" && row.Market != "TOTAL" {
			dropped++
			continue
		}
		game, ok := matchGame(games, row.BetType)
		if !ok {
			dropped++
			continue
		}
		row.GameID = game.GameID
		row.EntityKind = "game"
		row.EntityID = game.GameID
		side := sideFromOutcomeName(row.Market, row.BetType, game)
		row.SelectionKey = oddsmath.SelectionKey(row.Market, "game", game.GameID, row.Line, side)
		resolved = append(resolved, row)
	}
	if dropped > 0 {
		log.Printf("⚠️  odds ingest: dropped %d unresolved rows (player props or no game match)", dropped)
	}
	return resolved
}

func matchGame(games []models.Game, betType string) (models.Game, bool) {
	upper := strings.ToUpper(betType)
	for _, g := range games {
		if strings.Contains(upper, strings.ToUpper(g.HomeTeam)) || strings.Contains(upper, strings.ToUpper(g.AwayTeam)) {
			return g, true
		}
	}
	return models.Game{}, false
}

func sideFromOutcomeName(market, betType string, game models.Game) string {
	upper := strings.ToUpper(betType)
	switch market {
	case "TOTAL":
		if strings.Contains(upper, "OVER") {
			return "OVER"
		}
		if strings.Contains(upper, "UNDER") {
			return "UNDER"
		}
		return upper
	case "ML":
		if strings.Contains(upper, strings.ToUpper(game.HomeTeam)) {
			return "HOME"
		}
		if strings.Contains(upper, strings.ToUpper(game.AwayTeam)) {
			return "AWAY"
		}
		return upper
	default:
		return upper
	}
}
