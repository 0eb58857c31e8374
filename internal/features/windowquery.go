package features

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// WindowDays are the rolling windows every batter/pitcher window-stats table
// is built at, per spec.md §4.4.
var WindowDays = []int{7, 14, 30}

// minSplitPA is the minimum plate appearances against one handedness before
// a platoon split is trusted rather than stored null, grounded on
// original_source/fetchers/statcast.py's calc_iso_split.
const minSplitPA = 5

func windowStart(statDate string, days int) (string, error) {
	d, err := time.Parse("2006-01-02", statDate)
	if err != nil {
		return "", fmt.Errorf("parse stat date %q: %w", statDate, err)
	}
	return d.AddDate(0, 0, -days).Format("2006-01-02"), nil
}

// BuildBatterWindowStats aggregates pitch_events into batter_window_stats for
// every batter who appeared in the window [statDate-days, statDate), for each
// window in WindowDays. The upper bound is exclusive — the no-lookahead
// anchor from spec.md §3 — so a stat row computed "as of" statDate never
// includes statDate's own games. Grounded on
// original_source/fetchers/statcast.py's compute_batter_hr_stats, which
// re-aggregates pitch-level Statcast rows per window rather than maintaining
// a running total.
func BuildBatterWindowStats(ctx context.Context, st *store.Store, statDate string) (*BuildReport, error) {
	report := newReport(statDate)

	byWindow := make(map[int][]store.UpsertRow, len(WindowDays))
	for _, days := range WindowDays {
		lower, err := windowStart(statDate, days)
		if err != nil {
			return nil, err
		}
		rows, err := queryBatterWindow(ctx, st, lower, statDate, days)
		if err != nil {
			return nil, fmt.Errorf("query batter window %dd: %w", days, err)
		}
		upsertRows := make([]store.UpsertRow, 0, len(rows))
		for _, w := range rows {
			upsertRows = append(upsertRows, batterWindowUpsertRow(w))
		}
		byWindow[days] = upsertRows
	}

	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, days := range WindowDays {
			rows := byWindow[days]
			if len(rows) == 0 {
				continue
			}
			n, err := st.BatchUpsert(ctx, tx, "batter_window_stats", rows, []string{"player_id", "stat_date", "window_days"})
			if err != nil {
				return fmt.Errorf("upsert batter window %dd: %w", days, err)
			}
			report.Upserted += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✓ built batter window stats for %s: %d rows upserted", statDate, report.Upserted)
	return report, nil
}

func queryBatterWindow(ctx context.Context, st *store.Store, lower, upper string, windowDays int) ([]models.BatterWindowStats, error) {
	query := st.Rebind(`
		SELECT
			batter_id,
			COALESCE(SUM(CASE WHEN is_plate_appearance THEN 1 ELSE 0 END), 0) AS pa,
			COALESCE(SUM(CASE WHEN is_at_bat THEN 1 ELSE 0 END), 0) AS ab,
			COALESCE(SUM(CASE WHEN is_hit THEN 1 ELSE 0 END), 0) AS hits,
			COALESCE(SUM(CASE WHEN is_single THEN 1 ELSE 0 END), 0) AS singles,
			COALESCE(SUM(CASE WHEN is_double THEN 1 ELSE 0 END), 0) AS doubles,
			COALESCE(SUM(CASE WHEN is_triple THEN 1 ELSE 0 END), 0) AS triples,
			COALESCE(SUM(CASE WHEN is_home_run THEN 1 ELSE 0 END), 0) AS home_runs,
			COALESCE(SUM(CASE WHEN is_walk THEN 1 ELSE 0 END), 0) AS walks,
			COALESCE(SUM(CASE WHEN is_strikeout THEN 1 ELSE 0 END), 0) AS strikeouts,
			COALESCE(SUM(rbi_count), 0) AS rbis,
			COALESCE(SUM(CASE WHEN is_run THEN 1 ELSE 0 END), 0) AS runs,
			COALESCE(SUM(CASE WHEN is_hard_hit THEN 1 ELSE 0 END), 0) AS hard_hit_count,
			COALESCE(SUM(CASE WHEN is_barrel THEN 1 ELSE 0 END), 0) AS barrel_count,
			COALESCE(SUM(CASE WHEN exit_velo_mph IS NOT NULL THEN exit_velo_mph ELSE 0 END), 0) AS exit_velo_sum,
			COALESCE(SUM(CASE WHEN launch_angle IS NOT NULL THEN launch_angle ELSE 0 END), 0) AS launch_angle_sum,
			COALESCE(SUM(CASE WHEN exit_velo_mph IS NOT NULL THEN 1 ELSE 0 END), 0) AS batted_balls,
			COALESCE(SUM(CASE WHEN batted_ball_type = 'fly_ball' THEN 1 ELSE 0 END), 0) AS fly_balls,
			COALESCE(SUM(CASE WHEN batted_ball_type = 'line_drive' THEN 1 ELSE 0 END), 0) AS line_drives,
			COALESCE(SUM(CASE WHEN batted_ball_type = 'ground_ball' THEN 1 ELSE 0 END), 0) AS ground_balls,
			COALESCE(SUM(CASE WHEN is_pulled THEN 1 ELSE 0 END), 0) AS pulled_balls,
			COALESCE(SUM(CASE WHEN launch_angle >= 8 AND launch_angle <= 32 THEN 1 ELSE 0 END), 0) AS sweet_spot_balls,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batter_hand IS NOT NULL AND pitcher_hand = 'L' THEN 1 ELSE 0 END), 0) AS pa_vs_l,
			COALESCE(SUM(CASE WHEN is_hit AND pitcher_hand = 'L' THEN 1 ELSE 0 END), 0) AS hits_vs_l,
			COALESCE(SUM(CASE WHEN is_strikeout AND pitcher_hand = 'L' THEN 1 ELSE 0 END), 0) AS k_vs_l,
			COALESCE(SUM(CASE WHEN is_at_bat AND pitcher_hand = 'L' THEN 1 ELSE 0 END), 0) AS ab_vs_l,
			COALESCE(SUM(CASE WHEN pitcher_hand = 'L' THEN
				CASE WHEN is_single THEN 1 WHEN is_double THEN 2 WHEN is_triple THEN 3 WHEN is_home_run THEN 4 ELSE 0 END
				ELSE 0 END), 0) AS tb_vs_l,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND pitcher_hand = 'R' THEN 1 ELSE 0 END), 0) AS pa_vs_r,
			COALESCE(SUM(CASE WHEN is_hit AND pitcher_hand = 'R' THEN 1 ELSE 0 END), 0) AS hits_vs_r,
			COALESCE(SUM(CASE WHEN is_strikeout AND pitcher_hand = 'R' THEN 1 ELSE 0 END), 0) AS k_vs_r,
			COALESCE(SUM(CASE WHEN is_at_bat AND pitcher_hand = 'R' THEN 1 ELSE 0 END), 0) AS ab_vs_r,
			COALESCE(SUM(CASE WHEN pitcher_hand = 'R' THEN
				CASE WHEN is_single THEN 1 WHEN is_double THEN 2 WHEN is_triple THEN 3 WHEN is_home_run THEN 4 ELSE 0 END
				ELSE 0 END), 0) AS tb_vs_r
		FROM pitch_events
		WHERE game_date >= $1 AND game_date < $2
		GROUP BY batter_id
	`)
	rows, err := st.QueryContext(ctx, query, lower, upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BatterWindowStats
	for rows.Next() {
		var w models.BatterWindowStats
		w.StatDate = upper
		w.WindowDays = windowDays
		if err := rows.Scan(
			&w.PlayerID, &w.PlateAppearances, &w.AtBats, &w.Hits, &w.Singles, &w.Doubles,
			&w.Triples, &w.HomeRuns, &w.Walks, &w.Strikeouts, &w.RBIs, &w.Runs,
			&w.HardHitCount, &w.BarrelCount, &w.SumExitVeloMPH, &w.SumLaunchAngle,
			&w.BattedBalls, &w.FlyBalls, &w.LineDrives, &w.GroundBalls, &w.PulledBalls,
			&w.SweetSpotCount,
			&w.PAvsL, &w.HitsVsL, &w.KvsL, &w.ABvsL, &w.TBvsL,
			&w.PAvsR, &w.HitsVsR, &w.KvsR, &w.ABvsR, &w.TBvsR,
		); err != nil {
			return nil, err
		}
		w.TotalBases = w.Singles + 2*w.Doubles + 3*w.Triples + 4*w.HomeRuns
		w.ISOPointsVsL = isoPointsSplit(w.TBvsL, w.HitsVsL, w.ABvsL, w.PAvsL)
		w.ISOPointsVsR = isoPointsSplit(w.TBvsR, w.HitsVsR, w.ABvsR, w.PAvsR)
		out = append(out, w)
	}
	return out, rows.Err()
}

// isoPointsSplit computes (TB-H)/AB for one handedness split, null below the
// minimum sample size a split needs to be trustworthy, grounded on
// original_source/fetchers/statcast.py's calc_iso_split ("if len(split_pa) < 5:
// return None").
func isoPointsSplit(tb, hits, ab, pa int) *float64 {
	if pa < minSplitPA || ab == 0 {
		return nil
	}
	v := float64(tb-hits) / float64(ab)
	return &v
}

func batterWindowUpsertRow(w models.BatterWindowStats) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"player_id", "stat_date", "window_days", "pa", "ab", "hits", "singles", "doubles",
			"triples", "home_runs", "walks", "strikeouts", "rbis", "runs", "total_bases",
			"barrel_sum", "hard_hit_sum", "exit_velo_sum", "launch_angle_sum",
			"batted_ball_count", "fly_ball_count", "line_drive_count", "ground_ball_count", "pulled_count",
			"sweet_spot_count",
			"pa_vs_l", "hits_vs_l", "k_vs_l", "iso_points_vs_l",
			"pa_vs_r", "hits_vs_r", "k_vs_r", "iso_points_vs_r",
		},
		Values: []any{
			w.PlayerID, w.StatDate, w.WindowDays, w.PlateAppearances, w.AtBats, w.Hits, w.Singles, w.Doubles,
			w.Triples, w.HomeRuns, w.Walks, w.Strikeouts, w.RBIs, w.Runs, w.TotalBases,
			float64(w.BarrelCount), float64(w.HardHitCount), w.SumExitVeloMPH, w.SumLaunchAngle,
			w.BattedBalls, w.FlyBalls, w.LineDrives, w.GroundBalls, w.PulledBalls,
			w.SweetSpotCount,
			w.PAvsL, w.HitsVsL, w.KvsL, w.ISOPointsVsL,
			w.PAvsR, w.HitsVsR, w.KvsR, w.ISOPointsVsR,
		},
	}
}

// BuildPitcherWindowStats aggregates pitch_events into pitcher_window_stats
// the same way BuildBatterWindowStats does for batters, plus times-through-
// the-order buckets keyed by PitchEvent.BattersFacedTTO, grounded on
// spec.md §4.4's pitcher TTO metrics.
func BuildPitcherWindowStats(ctx context.Context, st *store.Store, statDate string) (*BuildReport, error) {
	report := newReport(statDate)

	byWindow := make(map[int][]store.UpsertRow, len(WindowDays))
	for _, days := range WindowDays {
		lower, err := windowStart(statDate, days)
		if err != nil {
			return nil, err
		}
		rows, err := queryPitcherWindow(ctx, st, lower, statDate, days)
		if err != nil {
			return nil, fmt.Errorf("query pitcher window %dd: %w", days, err)
		}
		upsertRows := make([]store.UpsertRow, 0, len(rows))
		for _, w := range rows {
			upsertRows = append(upsertRows, pitcherWindowUpsertRow(w))
		}
		byWindow[days] = upsertRows
	}

	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, days := range WindowDays {
			rows := byWindow[days]
			if len(rows) == 0 {
				continue
			}
			n, err := st.BatchUpsert(ctx, tx, "pitcher_window_stats", rows, []string{"player_id", "stat_date", "window_days"})
			if err != nil {
				return fmt.Errorf("upsert pitcher window %dd: %w", days, err)
			}
			report.Upserted += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✓ built pitcher window stats for %s: %d rows upserted", statDate, report.Upserted)
	return report, nil
}

func queryPitcherWindow(ctx context.Context, st *store.Store, lower, upper string, windowDays int) ([]models.PitcherWindowStats, error) {
	query := st.Rebind(`
		SELECT
			pitcher_id,
			COALESCE(SUM(CASE WHEN is_plate_appearance THEN 1 ELSE 0 END), 0) AS batters_faced,
			COUNT(DISTINCT game_id) AS appearances,
			COALESCE(SUM(outs_recorded), 0) AS outs_recorded,
			COALESCE(SUM(CASE WHEN is_strikeout THEN 1 ELSE 0 END), 0) AS strikeouts,
			COALESCE(SUM(CASE WHEN is_walk THEN 1 ELSE 0 END), 0) AS walks,
			COALESCE(SUM(CASE WHEN is_home_run THEN 1 ELSE 0 END), 0) AS home_runs_allowed,
			COALESCE(SUM(CASE WHEN is_hard_hit THEN 1 ELSE 0 END), 0) AS hard_hit_allowed,
			COALESCE(SUM(CASE WHEN is_barrel THEN 1 ELSE 0 END), 0) AS barrels_allowed,
			COALESCE(SUM(CASE WHEN exit_velo_mph IS NOT NULL THEN exit_velo_mph ELSE 0 END), 0) AS exit_velo_sum,
			COALESCE(SUM(CASE WHEN batted_ball_type = 'fly_ball' THEN 1 ELSE 0 END), 0) AS fly_balls_allowed,
			COALESCE(SUM(CASE WHEN exit_velo_mph IS NOT NULL THEN 1 ELSE 0 END), 0) AS batted_balls_allowed,
			COALESCE(SUM(CASE WHEN pitch_velo_mph IS NOT NULL THEN pitch_velo_mph ELSE 0 END), 0) AS velo_sum,
			COALESCE(SUM(CASE WHEN pitch_velo_mph IS NOT NULL THEN 1 ELSE 0 END), 0) AS velo_readings,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batter_hand = 'L' THEN 1 ELSE 0 END), 0) AS bf_vs_l,
			COALESCE(SUM(CASE WHEN is_strikeout AND batter_hand = 'L' THEN 1 ELSE 0 END), 0) AS k_vs_l,
			COALESCE(SUM(CASE WHEN is_walk AND batter_hand = 'L' THEN 1 ELSE 0 END), 0) AS bb_vs_l,
			COALESCE(SUM(CASE WHEN is_home_run AND batter_hand = 'L' THEN 1 ELSE 0 END), 0) AS hr_vs_l,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batter_hand = 'R' THEN 1 ELSE 0 END), 0) AS bf_vs_r,
			COALESCE(SUM(CASE WHEN is_strikeout AND batter_hand = 'R' THEN 1 ELSE 0 END), 0) AS k_vs_r,
			COALESCE(SUM(CASE WHEN is_walk AND batter_hand = 'R' THEN 1 ELSE 0 END), 0) AS bb_vs_r,
			COALESCE(SUM(CASE WHEN is_home_run AND batter_hand = 'R' THEN 1 ELSE 0 END), 0) AS hr_vs_r,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batters_faced_tto = 1 THEN 1 ELSE 0 END), 0) AS tto1_bf,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batters_faced_tto = 2 THEN 1 ELSE 0 END), 0) AS tto2_bf,
			COALESCE(SUM(CASE WHEN is_plate_appearance AND batters_faced_tto >= 3 THEN 1 ELSE 0 END), 0) AS tto3_bf,
			COALESCE(SUM(CASE WHEN is_strikeout AND batters_faced_tto = 1 THEN 1 ELSE 0 END), 0) AS tto1_k,
			COALESCE(SUM(CASE WHEN is_strikeout AND batters_faced_tto = 2 THEN 1 ELSE 0 END), 0) AS tto2_k,
			COALESCE(SUM(CASE WHEN is_strikeout AND batters_faced_tto >= 3 THEN 1 ELSE 0 END), 0) AS tto3_k,
			COALESCE(SUM(CASE WHEN is_home_run AND batters_faced_tto = 1 THEN 1 ELSE 0 END), 0) AS tto1_hr,
			COALESCE(SUM(CASE WHEN is_home_run AND batters_faced_tto = 2 THEN 1 ELSE 0 END), 0) AS tto2_hr,
			COALESCE(SUM(CASE WHEN is_home_run AND batters_faced_tto >= 3 THEN 1 ELSE 0 END), 0) AS tto3_hr
		FROM pitch_events
		WHERE game_date >= $1 AND game_date < $2
		GROUP BY pitcher_id
	`)
	rows, err := st.QueryContext(ctx, query, lower, upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PitcherWindowStats
	for rows.Next() {
		var w models.PitcherWindowStats
		var veloSum float64
		var veloReadings int
		w.StatDate = upper
		w.WindowDays = windowDays
		if err := rows.Scan(
			&w.PlayerID, &w.BattersFaced, &w.Appearances, &w.OutsRecorded, &w.Strikeouts, &w.Walks,
			&w.HomeRunsAllowed, &w.HardHitAllowed, &w.BarrelsAllowed, &w.SumExitVeloAllowed,
			&w.FlyBallsAllowed, &w.BattedBalls, &veloSum, &veloReadings,
			&w.BattersFacedVsL, &w.KvsL, &w.WalksVsL, &w.HomeRunsVsL,
			&w.BattersFacedVsR, &w.KvsR, &w.WalksVsR, &w.HomeRunsVsR,
			&w.TTOBattersFaced[0], &w.TTOBattersFaced[1], &w.TTOBattersFaced[2],
			&w.TTOStrikeouts[0], &w.TTOStrikeouts[1], &w.TTOStrikeouts[2],
			&w.TTOHomeRuns[0], &w.TTOHomeRuns[1], &w.TTOHomeRuns[2],
		); err != nil {
			return nil, err
		}
		w.SumVeloMPH = veloSum
		w.VeloReadings = veloReadings
		out = append(out, w)
	}
	return out, rows.Err()
}

func pitcherWindowUpsertRow(w models.PitcherWindowStats) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"player_id", "stat_date", "window_days", "batters_faced", "appearances", "outs_recorded",
			"pitches", "strikeouts", "walks", "home_runs_allowed",
			"hard_hit_allowed_sum", "barrel_allowed_sum", "exit_velo_allowed_sum",
			"fly_ball_allowed_count", "batted_ball_allowed_count",
			"last5_outs_recorded", "last5_pitches",
			"batters_faced_vs_l", "strikeouts_vs_l", "walks_vs_l", "home_runs_vs_l",
			"batters_faced_vs_r", "strikeouts_vs_r", "walks_vs_r", "home_runs_vs_r",
			"tto_batters_faced_1", "tto_batters_faced_2", "tto_batters_faced_3",
			"tto_strikeouts_1", "tto_strikeouts_2", "tto_strikeouts_3",
			"tto_home_runs_1", "tto_home_runs_2", "tto_home_runs_3",
		},
		Values: []any{
			w.PlayerID, w.StatDate, w.WindowDays, w.BattersFaced, w.Appearances, w.OutsRecorded,
			0, w.Strikeouts, w.Walks, w.HomeRunsAllowed,
			float64(w.HardHitAllowed), float64(w.BarrelsAllowed), w.SumExitVeloAllowed,
			w.FlyBallsAllowed, w.BattedBalls,
			"[]", "[]",
			w.BattersFacedVsL, w.KvsL, w.WalksVsL, w.HomeRunsVsL,
			w.BattersFacedVsR, w.KvsR, w.WalksVsR, w.HomeRunsVsR,
			w.TTOBattersFaced[0], w.TTOBattersFaced[1], w.TTOBattersFaced[2],
			w.TTOStrikeouts[0], w.TTOStrikeouts[1], w.TTOStrikeouts[2],
			w.TTOHomeRuns[0], w.TTOHomeRuns[1], w.TTOHomeRuns[2],
		},
	}
}
