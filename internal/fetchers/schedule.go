package fetchers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/fortuna/mlbedge/internal/httpx"
	"github.com/fortuna/mlbedge/internal/models"
)

type scheduleResponse struct {
	Dates []struct {
		Games []struct {
			GamePk int `json:"gamePk"`
			Status struct {
				DetailedState string `json:"detailedState"`
			} `json:"status"`
			Teams struct {
				Home scheduleTeam `json:"home"`
				Away scheduleTeam `json:"away"`
			} `json:"teams"`
			GameDate  string `json:"gameDate"`
			Officials []struct {
				OfficialType string `json:"officialType"`
				Official     struct {
					FullName string `json:"fullName"`
				} `json:"official"`
			} `json:"officials"`
		} `json:"games"`
	} `json:"dates"`
}

type scheduleTeam struct {
	Team struct {
		Name string `json:"name"`
	} `json:"team"`
	Score           *int `json:"score"`
	ProbablePitcher struct {
		ID       int64  `json:"id"`
		FullName string `json:"fullName"`
	} `json:"probablePitcher"`
}

// FetchTodaysGames pulls the MLB schedule for gameDate (YYYY-MM-DD) with
// probable pitchers, score, and home-plate umpire hydrated in one call.
// Grounded on original_source/pipeline/fetchers/schedule.py's
// fetch_todays_games, merged with fetch_umpire_assignments's "officials"
// hydration so one HTTP call covers both.
func FetchTodaysGames(ctx context.Context, client *httpx.Client, gameDate string, stadiumByTeam map[string]int64) ([]models.Game, error) {
	log.Printf("📅 fetching games for %s...", gameDate)

	var resp scheduleResponse
	params := url.Values{
		"date":     {gameDate},
		"sportId":  {"1"},
		"hydrate":  {"probablePitcher,linescore,team,officials"},
	}
	if err := client.GetJSON(ctx, mlbStatsBase+"/schedule", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	now := time.Now().UTC()
	var games []models.Game
	for _, dateEntry := range resp.Dates {
		for _, g := range dateEntry.Games {
			homeAbbr := teamAbbr(g.Teams.Home.Team.Name)
			awayAbbr := teamAbbr(g.Teams.Away.Team.Name)

			var firstPitch *time.Time
			if t, err := time.Parse(time.RFC3339, g.GameDate); err == nil {
				firstPitch = &t
			}

			var umpire *string
			for _, o := range g.Officials {
				if o.OfficialType == "Home Plate" {
					name := o.Official.FullName
					umpire = &name
					break
				}
			}

			var stadiumID *int64
			if id, ok := stadiumByTeam[homeAbbr]; ok {
				stadiumID = &id
			}
			var homePitcherID, awayPitcherID *int64
			if g.Teams.Home.ProbablePitcher.ID != 0 {
				id := g.Teams.Home.ProbablePitcher.ID
				homePitcherID = &id
			}
			if g.Teams.Away.ProbablePitcher.ID != 0 {
				id := g.Teams.Away.ProbablePitcher.ID
				awayPitcherID = &id
			}

			game := models.Game{
				GameID:        int64(g.GamePk),
				GameDate:      gameDate,
				HomeTeam:      homeAbbr,
				AwayTeam:      awayAbbr,
				StadiumID:     stadiumID,
				HomePitcherID: homePitcherID,
				AwayPitcherID: awayPitcherID,
				UmpireName:    umpire,
				Status:        models.GameStatus(normalizeStatus(g.Status.DetailedState)),
				FirstPitch:    firstPitch,
				HomeScore:     g.Teams.Home.Score,
				AwayScore:     g.Teams.Away.Score,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			games = append(games, game)
		}
	}

	log.Printf("✓ %d games found for %s", len(games), gameDate)
	return games, nil
}

// FetchPitcherHands batch-resolves pitching hand for a set of pitcher IDs via
// the MLB Stats API /people endpoint, grounded on
// original_source/pipeline/fetchers/schedule.py's _resolve_pitcher_hands.
func FetchPitcherHands(ctx context.Context, client *httpx.Client, pitcherIDs []int64) (map[int64]string, error) {
	result := make(map[int64]string)
	if len(pitcherIDs) == 0 {
		return result, nil
	}

	ids := ""
	for i, id := range pitcherIDs {
		if id == 0 {
			continue
		}
		if i > 0 {
			ids += ","
		}
		ids += strconv.FormatInt(id, 10)
	}
	if ids == "" {
		return result, nil
	}

	var resp struct {
		People []struct {
			ID        int64 `json:"id"`
			PitchHand struct {
				Code string `json:"code"`
			} `json:"pitchHand"`
		} `json:"people"`
	}
	params := url.Values{"personIds": {ids}, "hydrate": {"currentTeam"}}
	if err := client.GetJSON(ctx, mlbStatsBase+"/people", params, &resp); err != nil {
		return result, fmt.Errorf("fetch pitcher hands: %w", err)
	}
	for _, p := range resp.People {
		result[p.ID] = p.PitchHand.Code
	}
	return result, nil
}
