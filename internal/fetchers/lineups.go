package fetchers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/mlbedge/internal/httpx"
	"github.com/fortuna/mlbedge/internal/models"
)

type boxscoreResponse struct {
	Teams struct {
		Home boxscoreTeam `json:"home"`
		Away boxscoreTeam `json:"away"`
	} `json:"teams"`
}

type boxscoreTeam struct {
	BattingOrder []int64                  `json:"battingOrder"`
	Players      map[string]boxscorePlayer `json:"players"`
}

type boxscorePlayer struct {
	Position struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"position"`
}

// FetchGameLineups pulls the confirmed batting order for both teams of a
// game from the boxscore endpoint, grounded on
// original_source/pipeline/fetchers/schedule.py's fetch_game_lineups.
// Lineups are usually posted 1-3 hours before first pitch; an empty
// BattingOrder means "not yet confirmed", not an error.
func FetchGameLineups(ctx context.Context, client *httpx.Client, gameID int64, homeAbbr, awayAbbr string) ([]models.LineupSnapshot, error) {
	var resp boxscoreResponse
	url := fmt.Sprintf("%s/game/%d/boxscore", mlbStatsBase, gameID)
	if err := client.GetJSON(ctx, url, nil, &resp); err != nil {
		log.Printf("⚠️  could not fetch lineup for game %d: %v", gameID, err)
		return nil, nil
	}

	now := time.Now().UTC()
	build := func(team boxscoreTeam, abbr string) models.LineupSnapshot {
		slots := make([]models.LineupSlot, 0, len(team.BattingOrder))
		for i, playerID := range team.BattingOrder {
			key := fmt.Sprintf("ID%d", playerID)
			player := team.Players[key]
			slots = append(slots, models.LineupSlot{
				Slot:     i + 1,
				PlayerID: playerID,
				Position: player.Position.Abbreviation,
			})
		}
		return models.LineupSnapshot{
			GameID:        gameID,
			TeamAbbr:      abbr,
			ActiveVersion: true,
			BattingOrder:  slots,
			FetchedAt:     now,
		}
	}

	return []models.LineupSnapshot{
		build(resp.Teams.Home, homeAbbr),
		build(resp.Teams.Away, awayAbbr),
	}, nil
}
