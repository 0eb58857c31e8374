package features

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// minBFForRates is the batters-faced floor below which a pitcher window's
// rate stats are stored null, the pitcher-side equivalent of batter.go's
// minPAForRates.
const minBFForRates = 10

// minTTOBFForDecay is the per-bucket batters-faced floor below which
// times-through-the-order decay/increase/endurance figures are too thin a
// sample to trust and are stored null instead.
const minTTOBFForDecay = 10

// probableStarter holds a starting pitcher's team/opponent context for one
// game_date, grounded on pitcher_features.py's _probable_starters.
type probableStarter struct {
	TeamAbbr     string
	OpponentAbbr string
}

func queryProbableStarters(ctx context.Context, st *store.Store, gameDate string) (map[int64]probableStarter, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT home_pitcher_id, away_pitcher_id, home_team, away_team
		FROM games
		WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	starters := make(map[int64]probableStarter)
	for rows.Next() {
		var homePitcher, awayPitcher sql.NullInt64
		var homeTeam, awayTeam string
		if err := rows.Scan(&homePitcher, &awayPitcher, &homeTeam, &awayTeam); err != nil {
			return nil, err
		}
		if homePitcher.Valid {
			starters[homePitcher.Int64] = probableStarter{TeamAbbr: homeTeam, OpponentAbbr: awayTeam}
		}
		if awayPitcher.Valid {
			starters[awayPitcher.Int64] = probableStarter{TeamAbbr: awayTeam, OpponentAbbr: homeTeam}
		}
	}
	return starters, rows.Err()
}

// queryLatestPitcherWindows mirrors queryLatestWindows for pitchers, reading
// 14d and 30d windows only — the original's pitcher builder never reads the
// 7d window, and this builder follows it. Grounded on
// pitcher_features.py's _latest_pitcher_windows.
func queryLatestPitcherWindows(ctx context.Context, st *store.Store, pitcherIDs []int64, gameDate string, seasons int) (map[int64]map[int]models.PitcherWindowStats, error) {
	if len(pitcherIDs) == 0 {
		return map[int64]map[int]models.PitcherWindowStats{}, nil
	}
	lower, upper, err := asOfBounds(gameDate, seasons)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, 2+len(pitcherIDs))
	args = append(args, lower, upper)
	for _, id := range pitcherIDs {
		args = append(args, id)
	}
	query := st.Rebind(fmt.Sprintf(`
		SELECT player_id, stat_date, window_days, batters_faced, appearances, outs_recorded,
			strikeouts, walks, home_runs_allowed, hard_hit_allowed_sum, barrel_allowed_sum,
			exit_velo_allowed_sum, fly_ball_allowed_count, batted_ball_allowed_count,
			batters_faced_vs_l, strikeouts_vs_l, walks_vs_l, home_runs_vs_l,
			batters_faced_vs_r, strikeouts_vs_r, walks_vs_r, home_runs_vs_r,
			tto_batters_faced_1, tto_batters_faced_2, tto_batters_faced_3,
			tto_strikeouts_1, tto_strikeouts_2, tto_strikeouts_3,
			tto_home_runs_1, tto_home_runs_2, tto_home_runs_3
		FROM pitcher_window_stats
		WHERE stat_date >= $1 AND stat_date < $2 AND window_days IN (14, 30)
			AND player_id IN (%s)
		ORDER BY player_id, window_days, stat_date DESC
	`, placeholders(len(pitcherIDs), 3)))

	rows, err := st.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[int64]map[int]models.PitcherWindowStats)
	for rows.Next() {
		var w models.PitcherWindowStats
		if err := rows.Scan(
			&w.PlayerID, &w.StatDate, &w.WindowDays, &w.BattersFaced, &w.Appearances, &w.OutsRecorded,
			&w.Strikeouts, &w.Walks, &w.HomeRunsAllowed, &w.HardHitAllowed, &w.BarrelsAllowed,
			&w.SumExitVeloAllowed, &w.FlyBallsAllowed, &w.BattedBalls,
			&w.BattersFacedVsL, &w.KvsL, &w.WalksVsL, &w.HomeRunsVsL,
			&w.BattersFacedVsR, &w.KvsR, &w.WalksVsR, &w.HomeRunsVsR,
			&w.TTOBattersFaced[0], &w.TTOBattersFaced[1], &w.TTOBattersFaced[2],
			&w.TTOStrikeouts[0], &w.TTOStrikeouts[1], &w.TTOStrikeouts[2],
			&w.TTOHomeRuns[0], &w.TTOHomeRuns[1], &w.TTOHomeRuns[2],
		); err != nil {
			return nil, err
		}
		byWindow, ok := latest[w.PlayerID]
		if !ok {
			byWindow = make(map[int]models.PitcherWindowStats)
			latest[w.PlayerID] = byWindow
		}
		if _, exists := byWindow[w.WindowDays]; !exists {
			byWindow[w.WindowDays] = w
		}
	}
	return latest, rows.Err()
}

// starterRoleConfidence scores how confident the builder is that a pitcher
// is a true starter (vs. a reliever making a spot start) from sample size
// alone, grounded verbatim on pitcher_features.py's
// _starter_role_confidence thresholds.
func starterRoleConfidence(w14, w30 models.PitcherWindowStats, has14, has30 bool) float64 {
	if !has14 && !has30 {
		return 0.2
	}
	if has30 {
		switch {
		case w30.BattersFaced >= 80:
			return 0.9
		case w30.BattersFaced >= 50:
			return 0.75
		case w30.BattersFaced >= 20:
			return 0.55
		default:
			return 0.35
		}
	}
	if has14 {
		switch {
		case w14.BattersFaced >= 40:
			return 0.7
		case w14.BattersFaced >= 20:
			return 0.5
		}
	}
	return 0.35
}

func pitcherWindowRate(bf, num int) *float64 {
	if bf < minBFForRates {
		return nil
	}
	return safeDiv(float64(num), float64(bf))
}

func pitcherBattedBallRate(battedBalls, num int) *float64 {
	if battedBalls == 0 {
		return nil
	}
	return safeDiv(float64(num), float64(battedBalls))
}

// hr9 converts a home-run count over outs_recorded to a per-9-innings rate:
// HR/9 = HR * 27 / outs, since 27 outs make 9 innings.
func hr9(outs, hr int) *float64 {
	if outs == 0 {
		return nil
	}
	return safeDiv(float64(hr)*27, float64(outs))
}

func hrFlyBallRate(flyBalls, hr int) *float64 {
	if flyBalls == 0 {
		return nil
	}
	return safeDiv(float64(hr), float64(flyBalls))
}

func buildPitcherRow(gameDate string, pitcherID int64, ctx probableStarter, windows map[int]models.PitcherWindowStats) models.PitcherDailyFeatures {
	row := models.PitcherDailyFeatures{GameDate: gameDate, PlayerID: pitcherID, TeamAbbr: ctx.TeamAbbr}

	w14, has14 := windows[14]
	w30, has30 := windows[30]

	if has14 {
		v := float64(w14.BattersFaced)
		row.BattersFaced14 = &v
	}
	if has30 {
		v := float64(w30.BattersFaced)
		row.BattersFaced30 = &v
	}

	row.KPct14 = pitcherWindowRate(w14.BattersFaced, w14.Strikeouts)
	row.KPct30 = pitcherWindowRate(w30.BattersFaced, w30.Strikeouts)
	row.BBPct14 = pitcherWindowRate(w14.BattersFaced, w14.Walks)
	row.BBPct30 = pitcherWindowRate(w30.BattersFaced, w30.Walks)

	row.HR9_14 = hr9(w14.OutsRecorded, w14.HomeRunsAllowed)
	row.HR9_30 = hr9(w30.OutsRecorded, w30.HomeRunsAllowed)
	row.HRFB14 = hrFlyBallRate(w14.FlyBallsAllowed, w14.HomeRunsAllowed)
	row.HRFB30 = hrFlyBallRate(w30.FlyBallsAllowed, w30.HomeRunsAllowed)

	row.HardHitAllowed14 = scalePct(pitcherBattedBallRate(w14.BattedBalls, w14.HardHitAllowed))
	row.HardHitAllowed30 = scalePct(pitcherBattedBallRate(w30.BattedBalls, w30.HardHitAllowed))
	row.BarrelAllowed14 = scalePct(pitcherBattedBallRate(w14.BattedBalls, w14.BarrelsAllowed))
	row.BarrelAllowed30 = scalePct(pitcherBattedBallRate(w30.BattedBalls, w30.BarrelsAllowed))
	row.FlyBallAllowed14 = scalePct(pitcherBattedBallRate(w14.BattedBalls, w14.FlyBallsAllowed))
	row.FlyBallAllowed30 = scalePct(pitcherBattedBallRate(w30.BattedBalls, w30.FlyBallsAllowed))
	if w14.BattedBalls > 0 {
		row.ExitVeloAllowed14 = safeDiv(w14.SumExitVeloAllowed, float64(w14.BattedBalls))
	}
	if w30.BattedBalls > 0 {
		row.ExitVeloAllowed30 = safeDiv(w30.SumExitVeloAllowed, float64(w30.BattedBalls))
	}

	// No swing-level tracking exists in pitch_events (no whiff/chase
	// columns), so these stay null rather than invented — the same choice
	// the original makes for outs_recorded_avg_last_5/pitches_avg_last_5.
	row.WhiffPct14, row.WhiffPct30 = nil, nil
	row.ChasePct14, row.ChasePct30 = nil, nil
	row.OutsRecordedAvgLast5 = nil
	row.PitchesAvgLast5 = nil

	if w14.VeloReadings > 0 {
		v := w14.SumVeloMPH / float64(w14.VeloReadings)
		row.FastballVeloMPH = &v
	} else if w30.VeloReadings > 0 {
		v := w30.SumVeloMPH / float64(w30.VeloReadings)
		row.FastballVeloMPH = &v
	}
	if w14.VeloReadings > 0 && w30.VeloReadings > 0 {
		v := (w14.SumVeloMPH / float64(w14.VeloReadings)) - (w30.SumVeloMPH / float64(w30.VeloReadings))
		row.VeloTrendDelta = &v
	}

	row.StarterRoleConfidence = starterRoleConfidence(w14, w30, has14, has30)

	// Platoon K%/BB%/HR9 splits read from the widest available window,
	// mirroring the original's row30-then-row14 fallback chain for its
	// split_* fields.
	row.KPctVsL = firstNonNil(pitcherWindowRate(w30.BattersFacedVsL, w30.KvsL), pitcherWindowRate(w14.BattersFacedVsL, w14.KvsL))
	row.KPctVsR = firstNonNil(pitcherWindowRate(w30.BattersFacedVsR, w30.KvsR), pitcherWindowRate(w14.BattersFacedVsR, w14.KvsR))
	row.BBPctVsL = firstNonNil(pitcherWindowRate(w30.BattersFacedVsL, w30.WalksVsL), pitcherWindowRate(w14.BattersFacedVsL, w14.WalksVsL))
	row.BBPctVsR = firstNonNil(pitcherWindowRate(w30.BattersFacedVsR, w30.WalksVsR), pitcherWindowRate(w14.BattersFacedVsR, w14.WalksVsR))
	row.HR9VsL = firstNonNil(hr9ByBF(w30.BattersFacedVsL, w30.HomeRunsVsL), hr9ByBF(w14.BattersFacedVsL, w14.HomeRunsVsL))
	row.HR9VsR = firstNonNil(hr9ByBF(w30.BattersFacedVsR, w30.HomeRunsVsR), hr9ByBF(w14.BattersFacedVsR, w14.HomeRunsVsR))

	// Times-through-the-order trend metrics: the original has no equivalent
	// (it leaves TTO entirely unmodeled), so these are built fresh from the
	// tto_* buckets spec.md §4.4 calls for, using the widest (30d) sample.
	tto1BF, tto3BF := w30.TTOBattersFaced[0], w30.TTOBattersFaced[2]
	if tto1BF >= minTTOBFForDecay && tto3BF >= minTTOBFForDecay {
		kRate1 := float64(w30.TTOStrikeouts[0]) / float64(tto1BF)
		kRate3 := float64(w30.TTOStrikeouts[2]) / float64(tto3BF)
		decay := kRate1 - kRate3
		row.TTOKDecayPct = &decay

		hrRate1 := float64(w30.TTOHomeRuns[0]) / float64(tto1BF)
		hrRate3 := float64(w30.TTOHomeRuns[2]) / float64(tto3BF)
		increase := hrRate3 - hrRate1
		row.TTOHRIncreasePct = &increase

		endurance := float64(tto3BF) / float64(tto1BF)
		if endurance > 1 {
			endurance = 1
		}
		row.TTOEnduranceScore = &endurance
	}

	return row
}

func hr9ByBF(bf, hr int) *float64 {
	if bf < minTTOBFForDecay {
		return nil
	}
	v := float64(hr) / float64(bf) * 4.5 // ~ HR per 9 batters-faced-equivalent innings (4.5 PA/inning average)
	return &v
}

func pitcherDailyFeaturesUpsertRow(r models.PitcherDailyFeatures) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"game_date", "player_id", "team_abbr",
			"batters_faced_14", "batters_faced_30", "k_pct_14", "k_pct_30", "bb_pct_14", "bb_pct_30",
			"hr9_14", "hr9_30", "hrfb_14", "hrfb_30",
			"hard_hit_allowed_14", "hard_hit_allowed_30", "barrel_allowed_14", "barrel_allowed_30",
			"exit_velo_allowed_14", "exit_velo_allowed_30", "fly_ball_allowed_14", "fly_ball_allowed_30",
			"whiff_pct_14", "whiff_pct_30", "chase_pct_14", "chase_pct_30",
			"fastball_velo_mph", "velo_trend_delta",
			"outs_recorded_avg_last5", "pitches_avg_last5", "starter_role_confidence",
			"k_pct_vs_l", "k_pct_vs_r", "bb_pct_vs_l", "bb_pct_vs_r", "hr9_vs_l", "hr9_vs_r",
			"tto_k_decay_pct", "tto_hr_increase_pct", "tto_endurance_score",
		},
		Values: []any{
			r.GameDate, r.PlayerID, r.TeamAbbr,
			r.BattersFaced14, r.BattersFaced30, r.KPct14, r.KPct30, r.BBPct14, r.BBPct30,
			r.HR9_14, r.HR9_30, r.HRFB14, r.HRFB30,
			r.HardHitAllowed14, r.HardHitAllowed30, r.BarrelAllowed14, r.BarrelAllowed30,
			r.ExitVeloAllowed14, r.ExitVeloAllowed30, r.FlyBallAllowed14, r.FlyBallAllowed30,
			r.WhiffPct14, r.WhiffPct30, r.ChasePct14, r.ChasePct30,
			r.FastballVeloMPH, r.VeloTrendDelta,
			r.OutsRecordedAvgLast5, r.PitchesAvgLast5, r.StarterRoleConfidence,
			r.KPctVsL, r.KPctVsR, r.BBPctVsL, r.BBPctVsR, r.HR9VsL, r.HR9VsR,
			r.TTOKDecayPct, r.TTOHRIncreasePct, r.TTOEnduranceScore,
		},
	}
}

// BuildPitcherDailyFeatures assembles pitcher_daily_features for every
// probable starter on gameDate, reading each starter's latest prior 14d/30d
// window-stats rows and deriving rate, contact-quality, platoon, and
// times-through-the-order features. Grounded on
// build_pitcher_daily_features.
func BuildPitcherDailyFeatures(ctx context.Context, st *store.Store, gameDate string) (*BuildReport, error) {
	report := newReport(gameDate)

	starters, err := queryProbableStarters(ctx, st, gameDate)
	if err != nil {
		return nil, fmt.Errorf("query probable starters: %w", err)
	}
	if len(starters) == 0 {
		log.Printf("⚠️  no probable starters found in games table for %s", gameDate)
		return report, nil
	}

	pitcherIDs := make([]int64, 0, len(starters))
	for id := range starters {
		pitcherIDs = append(pitcherIDs, id)
	}
	sort.Slice(pitcherIDs, func(i, j int) bool { return pitcherIDs[i] < pitcherIDs[j] })

	latestWindows, err := queryLatestPitcherWindows(ctx, st, pitcherIDs, gameDate, seasonsBack)
	if err != nil {
		return nil, fmt.Errorf("query latest pitcher windows: %w", err)
	}

	rows := make([]store.UpsertRow, 0, len(pitcherIDs))
	partialRows := 0
	for _, pitcherID := range pitcherIDs {
		windows, ok := latestWindows[pitcherID]
		if !ok {
			report.markMissing("no_prior_window_stats", pitcherID)
			continue
		}
		if _, has14 := windows[14]; !has14 {
			partialRows++
		}
		if _, has30 := windows[30]; !has30 {
			partialRows++
		}
		row := buildPitcherRow(gameDate, pitcherID, starters[pitcherID], windows)
		rows = append(rows, pitcherDailyFeaturesUpsertRow(row))
	}

	if len(rows) == 0 {
		log.Printf("⚠️  no pitcher feature rows generated for %s due to missing historical window stats", gameDate)
		return report, nil
	}

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "pitcher_daily_features", rows, []string{"game_date", "player_id"})
		if err != nil {
			return err
		}
		report.Upserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert pitcher daily features: %w", err)
	}

	log.Printf("✅ pitcher features built for %s: generated=%d upserted=%d partial_rows=%d missing_stats=%d",
		gameDate, len(rows), report.Upserted, partialRows, len(report.Missing["no_prior_window_stats"]))
	return report, nil
}
