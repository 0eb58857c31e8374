package features

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fortuna/mlbedge/internal/fetchers"
	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// Wind-category HR multiplier constants duplicated from
// fetchers/weather.go's WindHRImpact (ported from
// original_source/statcast.py's get_wind_hr_impact). WindHRImpact itself
// needs the wind's raw compass degree, which weather_snapshots never
// persists (only WindHRImpact's own categorized description string does);
// this builder only has the stored category and speed to work with, so it
// reconstructs the same magnitude curve from those instead of the angle math.
const (
	windOutMultiplier   = 1.15
	windInMultiplier    = 0.85
	windCrossMultiplier = 1.02
)

// dayGameCutoffHourUTC is the first-pitch hour (UTC) below which a game is
// treated as a day game. A rough heuristic in the absence of per-stadium
// timezone data; most MLB day games start before 18:00 UTC (early afternoon
// local across US time zones).
const dayGameCutoffHourUTC = 18

func gamesForDate(ctx context.Context, st *store.Store, gameDate string) ([]models.Game, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT game_id, home_team, away_team, stadium_id, home_pitcher_id, away_pitcher_id,
			umpire_name, status, home_score, away_score, first_pitch
		FROM games
		WHERE game_date = $1
		ORDER BY game_id
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Game
	for rows.Next() {
		var g models.Game
		var stadiumID sql.NullInt64
		var homePitcher, awayPitcher sql.NullInt64
		var umpireName sql.NullString
		var homeScore, awayScore sql.NullInt64
		var firstPitch sql.NullTime
		if err := rows.Scan(&g.GameID, &g.HomeTeam, &g.AwayTeam, &stadiumID, &homePitcher, &awayPitcher,
			&umpireName, &g.Status, &homeScore, &awayScore, &firstPitch); err != nil {
			return nil, err
		}
		g.GameDate = gameDate
		if stadiumID.Valid {
			g.StadiumID = &stadiumID.Int64
		}
		if homePitcher.Valid {
			g.HomePitcherID = &homePitcher.Int64
		}
		if awayPitcher.Valid {
			g.AwayPitcherID = &awayPitcher.Int64
		}
		if umpireName.Valid {
			g.UmpireName = &umpireName.String
		}
		if homeScore.Valid {
			v := int(homeScore.Int64)
			g.HomeScore = &v
		}
		if awayScore.Valid {
			v := int(awayScore.Int64)
			g.AwayScore = &v
		}
		if firstPitch.Valid {
			g.FirstPitch = &firstPitch.Time
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// parkFactors reads the season's stadium park factors, grounded on
// game_context_features.py's _park_factors. Unlike the original, this
// schema has no stadiums.hr_park_factor fallback column, so a missing
// park_factors row simply yields nils — there is no second source to fall
// back to here.
func parkFactors(ctx context.Context, st *store.Store, stadiumID int64, season int) (hr, runs, hits *float64, err error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT hr_factor, runs_factor, hits_factor FROM park_factors
		WHERE stadium_id = $1 AND season = $2
	`), stadiumID, season)
	var h, r, ht float64
	if scanErr := row.Scan(&h, &r, &ht); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, scanErr
	}
	return &h, &r, &ht, nil
}

func latestWeather(ctx context.Context, st *store.Store, gameID int64) (*models.WeatherSnapshot, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_id, stadium_id, temp_f, wind_mph, wind_direction, fetched_at
		FROM weather_snapshots
		WHERE game_id = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`), gameID)
	var w models.WeatherSnapshot
	if err := row.Scan(&w.GameID, &w.StadiumID, &w.TempF, &w.WindMPH, &w.WindDirection, &w.FetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func umpireContext(ctx context.Context, st *store.Store, umpireName string, season int) (kBoost, runEnv *float64, err error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT k_pct_above_avg, avg_runs_per_game FROM umpires
		WHERE umpire_name = $1 AND season = $2
	`), umpireName, season)
	var k, r sql.NullFloat64
	if scanErr := row.Scan(&k, &r); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, scanErr
	}
	if k.Valid {
		kBoost = &k.Float64
	}
	if r.Valid {
		runEnv = &r.Float64
	}
	return kBoost, runEnv, nil
}

func lineupConfirmed(ctx context.Context, st *store.Store, gameID int64, teamAbbr string) (bool, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT 1 FROM lineup_snapshots
		WHERE game_id = $1 AND team_abbr = $2 AND active_version = TRUE
		LIMIT 1
	`), gameID, teamAbbr)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// weatherHRMultiplier reconstructs an HR multiplier from a persisted
// weather snapshot's categorized wind description and speed, combined with
// fetchers.TempHRImpact's temperature adjustment — the same two factors
// original_source/statcast.py's get_wind_hr_impact/get_temp_hr_impact
// combine, grounded on game_context_features.py's _weather_multipliers.
func weatherHRMultiplier(w *models.WeatherSnapshot) *float64 {
	if w == nil {
		return nil
	}
	speedFactor := w.WindMPH / 15.0
	if speedFactor > 1.5 {
		speedFactor = 1.5
	}

	var windImpact float64
	switch {
	case strings.Contains(w.WindDirection, "out"):
		windImpact = 1.0 + (windOutMultiplier-1.0)*speedFactor
	case strings.Contains(w.WindDirection, "in"):
		windImpact = 1.0 - (1.0-windInMultiplier)*speedFactor
	case strings.Contains(w.WindDirection, "cross"):
		windImpact = 1.0 + (windCrossMultiplier-1.0)*speedFactor
	default:
		windImpact = 1.0 // "dome" or "calm"
	}

	v := windImpact * fetchers.TempHRImpact(w.TempF)
	return &v
}

// weatherRunsMultiplier is a deterministic temp/wind blend independent of
// wind direction, ported verbatim from
// game_context_features.py's _weather_multipliers run_multiplier formula.
func weatherRunsMultiplier(w *models.WeatherSnapshot) *float64 {
	if w == nil {
		return nil
	}
	mult := 1.0 + (w.TempF-65.0)*0.0025
	windSpeed := w.WindMPH
	if windSpeed > 25 {
		windSpeed = 25
	}
	mult += windSpeed * 0.003
	if mult < 0.8 {
		mult = 0.8
	}
	if mult > 1.25 {
		mult = 1.25
	}
	return &mult
}

func isDayGame(firstPitch *time.Time) bool {
	if firstPitch == nil {
		return false
	}
	return firstPitch.UTC().Hour() < dayGameCutoffHourUTC
}

func gameContextUpsertRow(r models.GameContextFeatures) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"game_date", "game_id", "park_hr_factor", "park_runs_factor", "park_hits_factor",
			"temp_f", "wind_mph", "wind_direction", "weather_hr_multiplier", "weather_runs_multiplier",
			"umpire_k_boost", "umpire_run_environment",
			"home_lineup_confirmed", "away_lineup_confirmed", "is_day_game", "is_final_context",
		},
		Values: []any{
			r.GameDate, r.GameID, r.ParkHRFactor, r.ParkRunsFactor, r.ParkHitsFactor,
			r.TempF, r.WindMPH, r.WindDirection, r.WeatherHRMultiplier, r.WeatherRunsMultiplier,
			r.UmpireKBoost, r.UmpireRunEnvironment,
			r.HomeLineupConfirmed, r.AwayLineupConfirmed, r.IsDayGame, r.IsFinalContext,
		},
	}
}

// BuildGameContextFeatures assembles game_context_features for every game on
// gameDate: park factors, the latest persisted weather snapshot and its
// derived HR/runs multipliers, umpire K-boost/run-environment context (nil
// when the umpire has no on-file season row), and lineup-confirmation
// booleans. Grounded on build_game_context_features.
func BuildGameContextFeatures(ctx context.Context, st *store.Store, gameDate string) (*BuildReport, error) {
	report := newReport(gameDate)

	gameDt, err := time.Parse("2006-01-02", gameDate)
	if err != nil {
		return nil, fmt.Errorf("parse game date %q: %w", gameDate, err)
	}
	season := gameDt.Year()

	games, err := gamesForDate(ctx, st, gameDate)
	if err != nil {
		return nil, fmt.Errorf("query games for date: %w", err)
	}
	if len(games) == 0 {
		log.Printf("⚠️  no games found for %s", gameDate)
		return report, nil
	}

	rows := make([]store.UpsertRow, 0, len(games))
	missingWeather, lineupPending, missingStarters := 0, 0, 0
	for _, g := range games {
		row := models.GameContextFeatures{GameDate: gameDate, GameID: g.GameID}

		if g.StadiumID != nil {
			hr, runs, hits, err := parkFactors(ctx, st, *g.StadiumID, season)
			if err != nil {
				return nil, fmt.Errorf("query park factors for game %d: %w", g.GameID, err)
			}
			row.ParkHRFactor, row.ParkRunsFactor, row.ParkHitsFactor = hr, runs, hits
		}

		weather, err := latestWeather(ctx, st, g.GameID)
		if err != nil {
			return nil, fmt.Errorf("query weather for game %d: %w", g.GameID, err)
		}
		if weather != nil {
			row.TempF = &weather.TempF
			row.WindMPH = &weather.WindMPH
			row.WindDirection = &weather.WindDirection
			row.WeatherHRMultiplier = weatherHRMultiplier(weather)
			row.WeatherRunsMultiplier = weatherRunsMultiplier(weather)
		} else {
			missingWeather++
			report.markMissing("missing_weather", g.GameID)
		}

		if g.UmpireName != nil {
			kBoost, runEnv, err := umpireContext(ctx, st, *g.UmpireName, season)
			if err != nil {
				return nil, fmt.Errorf("query umpire context for game %d: %w", g.GameID, err)
			}
			row.UmpireKBoost, row.UmpireRunEnvironment = kBoost, runEnv
		}

		homeConfirmed, err := lineupConfirmed(ctx, st, g.GameID, g.HomeTeam)
		if err != nil {
			return nil, fmt.Errorf("query home lineup confirmation for game %d: %w", g.GameID, err)
		}
		awayConfirmed, err := lineupConfirmed(ctx, st, g.GameID, g.AwayTeam)
		if err != nil {
			return nil, fmt.Errorf("query away lineup confirmation for game %d: %w", g.GameID, err)
		}
		row.HomeLineupConfirmed = homeConfirmed
		row.AwayLineupConfirmed = awayConfirmed
		if !homeConfirmed || !awayConfirmed {
			lineupPending++
			report.markMissing("lineup_pending", g.GameID)
		}

		hasProbablePitchers := g.HomePitcherID != nil && g.AwayPitcherID != nil
		if !hasProbablePitchers {
			missingStarters++
			report.markMissing("probable_pitcher_missing", g.GameID)
		}

		row.IsDayGame = isDayGame(g.FirstPitch)
		row.IsFinalContext = homeConfirmed && awayConfirmed && weather != nil && hasProbablePitchers

		rows = append(rows, gameContextUpsertRow(row))
	}

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "game_context_features", rows, []string{"game_date", "game_id"})
		if err != nil {
			return err
		}
		report.Upserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert game context features: %w", err)
	}

	log.Printf("✅ game context features built for %s: generated=%d upserted=%d missing_weather=%d lineup_pending=%d missing_starters=%d",
		gameDate, len(rows), report.Upserted, missingWeather, lineupPending, missingStarters)
	return report, nil
}
