package orchestrator

import (
	"context"
	"fmt"

	"github.com/fortuna/mlbedge/internal/fetchers"
	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/pipeline"
)

// FetchStageResult tallies what the ingest stage pulled, surfaced in the
// daily orchestrator's stage log line.
type FetchStageResult struct {
	Games        int
	Lineups      int
	PitchEvents  int
	OddsRows     int
	WeatherRows  int
}

// FetchAndPersist runs the full ingest stage for one date: schedule, then
// per-game lineups/pitch-events/weather, then odds across every mapped
// market. Each sub-fetch failure is logged and skipped rather than aborting
// the whole stage, per spec.md §7's TransientFetch/DataMissing policy —
// only a schema or invariant violation from the persistence layer is fatal.
func (o *Orchestrator) FetchAndPersist(ctx context.Context, gameDate string) (FetchStageResult, error) {
	var result FetchStageResult

	stadiums, err := o.loadStadiums(ctx)
	if err != nil {
		return result, fmt.Errorf("load stadiums: %w", err)
	}

	games, err := fetchers.FetchTodaysGames(ctx, o.Client, gameDate, stadiumIDByTeam(stadiums))
	if err != nil {
		return result, fmt.Errorf("fetch schedule: %w", err)
	}
	n, err := pipeline.PersistGames(ctx, o.St, games)
	if err != nil {
		return result, fmt.Errorf("persist games: %w", err)
	}
	result.Games = n

	for _, game := range games {
		if snaps, err := fetchers.FetchGameLineups(ctx, o.Client, game.GameID, game.HomeTeam, game.AwayTeam); err != nil {
			o.logf("⚠️  lineups for game %d: %v", game.GameID, err)
		} else if n, err := pipeline.PersistLineupSnapshots(ctx, o.St, snaps); err != nil {
			o.logf("⚠️  persist lineups for game %d: %v", game.GameID, err)
		} else {
			result.Lineups += n
		}

		if game.IsFinal() {
			if events, err := fetchers.FetchPitchEvents(ctx, o.Client, game.GameID, gameDate); err != nil {
				o.logf("⚠️  pitch events for game %d: %v", game.GameID, err)
			} else if n, err := pipeline.PersistPitchEvents(ctx, o.St, events); err != nil {
				o.logf("⚠️  persist pitch events for game %d: %v", game.GameID, err)
			} else {
				result.PitchEvents += n
			}
		}

		if game.StadiumID != nil {
			if stadium, ok := stadiumByID(stadiums, *game.StadiumID); ok {
				if weather, err := fetchers.FetchStadiumWeather(ctx, o.Client, o.Cfg.WeatherAPIKey, game.GameID, stadium.StadiumID, game.HomeTeam, stadium.Latitude, stadium.Longitude); err != nil {
					o.logf("⚠️  weather for game %d: %v", game.GameID, err)
				} else if weather != nil {
					if err := pipeline.PersistWeather(ctx, o.St, *weather); err != nil {
						o.logf("⚠️  persist weather for game %d: %v", game.GameID, err)
					} else {
						result.WeatherRows++
					}
				}
			}
		}
	}

	oddsRows, err := o.fetchOdds(ctx, gameDate, games)
	if err != nil {
		o.logf("⚠️  odds fetch: %v", err)
	} else {
		result.OddsRows = oddsRows
	}

	return result, nil
}

func (o *Orchestrator) fetchOdds(ctx context.Context, gameDate string, games []models.Game) (int, error) {
	var all []models.MarketOdds
	for _, mapping := range fetchers.DefaultOddsMappings {
		rows, err := fetchers.FetchMarketOdds(ctx, o.Client, o.Cfg.OddsAPIKey, "baseball_mlb", mapping, gameDate)
		if err != nil {
			o.logf("⚠️  odds fetch for %s: %v", mapping.Market, err)
			continue
		}
		all = append(all, rows...)
	}
	resolved := pipeline.ResolveGameMarketOdds(games, all)
	return pipeline.PersistMarketOdds(ctx, o.St, resolved)
}

func stadiumByID(stadiums map[string]models.Stadium, id int64) (models.Stadium, bool) {
	for _, s := range stadiums {
		if s.StadiumID == id {
			return s, true
		}
	}
	return models.Stadium{}, false
}
