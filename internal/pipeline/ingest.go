package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/normalize"
	"github.com/fortuna/mlbedge/internal/store"
)

// PersistGames upserts fetched schedule rows, honoring the forward-only
// status transition spec.md §4.2 assigns to Game — a re-fetch that would
// revert a final game back to scheduled is an Invariant violation, not a
// silent overwrite.
func PersistGames(ctx context.Context, st *store.Store, games []models.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	written := 0
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, g := range games {
			var existingStatus string
			err := tx.QueryRowContext(ctx, st.Rebind(`SELECT status FROM games WHERE game_id = $1`), g.GameID).Scan(&existingStatus)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("lookup game %d: %w", g.GameID, err)
			}
			if err == nil {
				prior := models.Game{Status: models.GameStatus(existingStatus)}
				if !prior.CanAdvanceTo(g.Status) {
					return NewInvariantError("ingest.PersistGames",
						fmt.Errorf("game %d cannot transition %s -> %s", g.GameID, existingStatus, g.Status))
				}
			}
			row := store.UpsertRow{
				Columns: []string{"game_id", "game_date", "home_team", "away_team", "stadium_id",
					"home_pitcher_id", "away_pitcher_id", "umpire_name", "status", "home_score",
					"away_score", "first_pitch", "created_at", "updated_at"},
				Values: []any{g.GameID, g.GameDate, g.HomeTeam, g.AwayTeam, g.StadiumID,
					g.HomePitcherID, g.AwayPitcherID, g.UmpireName, string(g.Status), g.HomeScore,
					g.AwayScore, g.FirstPitch, g.CreatedAt, g.UpdatedAt},
			}
			n, err := st.BatchUpsert(ctx, tx, "games", []store.UpsertRow{row}, []string{"game_id"})
			if err != nil {
				return err
			}
			written += n
		}
		return nil
	})
	return written, err
}

// PersistLineupSnapshots supersedes the prior active lineup for each
// (game_id, team_abbr) before inserting the new one, mirroring the
// supersede-not-update discipline spec.md §9 prescribes for model_scores,
// applied here to lineup_snapshots per spec.md §4.2.
func PersistLineupSnapshots(ctx context.Context, st *store.Store, snapshots []models.LineupSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	written := 0
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, snap := range snapshots {
			if _, err := tx.ExecContext(ctx, st.Rebind(`
				UPDATE lineup_snapshots SET active_version = FALSE
				WHERE game_id = $1 AND team_abbr = $2 AND active_version = TRUE
			`), snap.GameID, snap.TeamAbbr); err != nil {
				return fmt.Errorf("supersede lineup %d/%s: %w", snap.GameID, snap.TeamAbbr, err)
			}

			orderJSON, err := json.Marshal(snap.BattingOrder)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, st.Rebind(`
				INSERT INTO lineup_snapshots (game_id, team_abbr, active_version, batting_order_json, fetched_at)
				VALUES ($1, $2, TRUE, $3, $4)
			`), snap.GameID, snap.TeamAbbr, string(orderJSON), snap.FetchedAt); err != nil {
				return fmt.Errorf("insert lineup %d/%s: %w", snap.GameID, snap.TeamAbbr, err)
			}
			written++
		}
		return nil
	})
	return written, err
}

// PersistPitchEvents writes raw event rows, keyed by event_id so a re-fetch
// of the same game is idempotent.
func PersistPitchEvents(ctx context.Context, st *store.Store, events []models.PitchEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rows := make([]store.UpsertRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, store.UpsertRow{
			Columns: []string{"event_id", "game_id", "game_date", "inning_number", "batter_id",
				"batter_hand", "pitcher_id", "pitcher_hand", "pitch_type", "pitch_velo_mph",
				"event_type", "exit_velo_mph", "launch_angle", "hit_distance_ft", "batted_ball_type",
				"is_barrel", "is_hard_hit", "is_pulled", "is_plate_appearance", "is_at_bat", "is_hit",
				"is_single", "is_double", "is_triple", "is_home_run", "is_walk", "is_strikeout",
				"is_rbi", "rbi_count", "is_run", "batters_faced_tto", "outs_recorded"},
			Values: []any{e.EventID, e.GameID, e.GameDate, e.InningNumber, e.BatterID,
				e.BatterHand, e.PitcherID, e.PitcherHand, e.PitchType, e.PitchVeloMPH,
				e.EventType, e.ExitVeloMPH, e.LaunchAngle, e.HitDistanceFt, e.BattedBallType,
				boolOrFalse(e.IsBarrel), boolOrFalse(e.IsHardHit), boolOrFalse(e.IsPulled),
				e.IsPlateAppearance, e.IsAtBat, e.IsHit, e.IsSingle, e.IsDouble, e.IsTriple,
				e.IsHomeRun, e.IsWalk, e.IsStrikeout, e.IsRBI, e.RBICount, e.IsRun,
				e.BattersFacedTTO, e.OutsRecorded},
		})
	}
	var written int
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "pitch_events", rows, []string{"event_id"})
		written = n
		return err
	})
	return written, err
}

func boolOrFalse(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

// PersistMarketOdds appends a freshly fetched quote batch as new rows (the
// table is an append-only price log, not upserted by selection key, since
// each fetch is a new point-in-time observation) and recomputes
// is_best_available for every selection key the batch touches in two
// steps: clear stale flags for those keys in one statement, then mark the
// new batch's cheapest-implied-probability row per key, per spec.md §5's
// "computed atomically per selection key after each odds batch."
func PersistMarketOdds(ctx context.Context, st *store.Store, odds []models.MarketOdds) (int, error) {
	if len(odds) == 0 {
		return 0, nil
	}
	normalize.MarkBestAvailable(odds)

	keys := make([]string, 0, len(odds))
	seen := make(map[string]bool)
	for _, o := range odds {
		if !seen[o.SelectionKey] {
			seen[o.SelectionKey] = true
			keys = append(keys, o.SelectionKey)
		}
	}

	rows := make([]store.UpsertRow, 0, len(odds))
	for _, o := range odds {
		id := o.ID
		if id == 0 {
			id = store.NewID()
		}
		rows = append(rows, store.UpsertRow{
			Columns: []string{"id", "market", "game_id", "game_date", "entity_kind", "entity_id",
				"bet_type", "line", "selection_key", "sportsbook", "price_american", "implied_prob",
				"is_best_available", "fetched_at"},
			Values: []any{id, o.Market, o.GameID, o.GameDate, o.EntityKind, o.EntityID,
				o.BetType, o.Line, o.SelectionKey, o.Sportsbook, o.PriceAmerican, o.ImpliedProb,
				o.IsBestAvailable, o.FetchedAt},
		})
	}

	var written int
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, st.Rebind(`
				UPDATE market_odds SET is_best_available = FALSE WHERE selection_key = $1
			`), k); err != nil {
				return fmt.Errorf("clear stale best-available for %s: %w", k, err)
			}
		}
		n, err := st.BatchUpsert(ctx, tx, "market_odds", rows, []string{"id"})
		written = n
		return err
	})
	return written, err
}

// PersistWeather writes a weather observation. Weather has no natural key
// beyond (game_id, fetched_at), so every call inserts a fresh row; readers
// pick the latest per game_id.
func PersistWeather(ctx context.Context, st *store.Store, snap models.WeatherSnapshot) error {
	_, err := st.ExecContext(ctx, st.Rebind(`
		INSERT INTO weather_snapshots (game_id, stadium_id, temp_f, wind_mph, wind_direction, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), snap.GameID, snap.StadiumID, snap.TempF, snap.WindMPH, snap.WindDirection, snap.FetchedAt)
	return err
}
