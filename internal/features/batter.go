package features

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// seasonsBack bounds how far a builder looks for a player's most recent
// prior window-stats row or lineup appearance, grounded on
// original_source/pipeline/features/batter_features.py's
// build_batter_daily_features(seasons_back=3) default.
const seasonsBack = 3

// minPAForRates is the plate-appearance floor below which a window's rate
// stats are stored null rather than computed from too few PA, per spec.md
// §4.4's "missing windows with fewer than a small minimum of PA are stored
// as null, not zero." The original gates its own window-stats rows on a
// 10-batted-ball minimum (statcast.py's compute_batter_hr_stats); this
// builder applies the equivalent floor to plate appearances since the
// window-stats table here carries PA unconditionally.
const minPAForRates = 10

func safeDiv(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

func placeholders(n, start int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ", ")
}

func asOfBounds(gameDate string, seasons int) (lower, upper string, err error) {
	d, err := time.Parse("2006-01-02", gameDate)
	if err != nil {
		return "", "", fmt.Errorf("parse game date %q: %w", gameDate, err)
	}
	upper = d.Format("2006-01-02")
	lower = d.AddDate(0, 0, -seasons*366).Format("2006-01-02")
	return lower, upper, nil
}

// batterPoolCounts mirrors _relevant_batter_pool's reported source counts,
// surfaced so the orchestrator can log pool composition per spec.md §4.4's
// "logs counts" requirement.
type batterPoolCounts struct {
	LineupPlayers     int
	OddsPlayers       int
	RecentTeamPlayers int
	MergedPlayers     int
}

// queryLineupBatters returns every player_id with a confirmed, active lineup
// slot on gameDate, mapped to the team_abbr they batted for. Grounded on
// original_source/pipeline/features/batter_features.py's
// _query_distinct_lineup_batters.
func queryLineupBatters(ctx context.Context, st *store.Store, gameDate string) (map[int64]string, error) {
	query := st.Rebind(`
		SELECT ls.team_abbr, ls.batting_order_json
		FROM lineup_snapshots ls
		JOIN games g ON g.game_id = ls.game_id
		WHERE g.game_date = $1 AND ls.active_version = TRUE
	`)
	return queryBattersFromLineupRows(ctx, st, query, gameDate)
}

// queryRecentTeamBatters returns each team's recent posted lineups over
// seasonsBack; relevantBatterPool always merges this source with the
// confirmed-lineup and odds-prop sources for gameDate, not only when those
// are empty. It approximates original_source's
// _query_recent_team_batters (which reads batter_stats.team — a column this
// schema's pitch_events has no equivalent of, since batting team isn't
// tagged per event here). Recent rosters drawn from lineup_snapshots are the
// closest available proxy for "players recently associated with this team."
func queryRecentTeamBatters(ctx context.Context, st *store.Store, gameDate string, seasons int) (map[int64]string, error) {
	teams, err := queryGameTeams(ctx, st, gameDate)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return map[int64]string{}, nil
	}
	lower, upper, err := asOfBounds(gameDate, seasons)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, 2+len(teams))
	args = append(args, lower, upper)
	for _, t := range teams {
		args = append(args, t)
	}
	query := st.Rebind(fmt.Sprintf(`
		SELECT ls.team_abbr, ls.batting_order_json
		FROM lineup_snapshots ls
		JOIN games g ON g.game_id = ls.game_id
		WHERE g.game_date >= $1 AND g.game_date < $2 AND ls.team_abbr IN (%s)
	`, placeholders(len(teams), 3)))
	return queryBattersFromLineupRowsArgs(ctx, st, query, args)
}

func queryGameTeams(ctx context.Context, st *store.Store, gameDate string) ([]string, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT home_team, away_team FROM games WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var home, away string
		if err := rows.Scan(&home, &away); err != nil {
			return nil, err
		}
		seen[home] = true
		seen[away] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	teams := make([]string, 0, len(seen))
	for t := range seen {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams, nil
}

func queryBattersFromLineupRows(ctx context.Context, st *store.Store, query, gameDate string) (map[int64]string, error) {
	return queryBattersFromLineupRowsArgs(ctx, st, query, []any{gameDate})
}

func queryBattersFromLineupRowsArgs(ctx context.Context, st *store.Store, query string, args []any) (map[int64]string, error) {
	rows, err := st.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var teamAbbr, battingOrderJSON string
		if err := rows.Scan(&teamAbbr, &battingOrderJSON); err != nil {
			return nil, err
		}
		slots, err := decodeBattingOrder(battingOrderJSON)
		if err != nil {
			log.Printf("⚠️  malformed batting_order_json for team %s: %v", teamAbbr, err)
			continue
		}
		for _, slot := range slots {
			out[slot.PlayerID] = teamAbbr
		}
	}
	return out, rows.Err()
}

// decodeBattingOrder unmarshals one lineup_snapshots.batting_order_json cell.
func decodeBattingOrder(battingOrderJSON string) ([]models.LineupSlot, error) {
	var slots []models.LineupSlot
	if err := json.Unmarshal([]byte(battingOrderJSON), &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// queryOddsBatters returns every player with an HR-prop odds row on
// gameDate. Odds rows carry no team field in this schema (unlike the
// original's market_odds.team_id), so the team hint is always empty; the
// pool merge below only uses it to fill gaps left by lineups/recent teams.
// Grounded on _query_distinct_odds_batters.
func queryOddsBatters(ctx context.Context, st *store.Store, gameDate string) (map[int64]string, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT DISTINCT entity_id FROM market_odds
		WHERE game_date = $1 AND market = 'HR' AND entity_kind = 'player'
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var playerID int64
		if err := rows.Scan(&playerID); err != nil {
			return nil, err
		}
		out[playerID] = ""
	}
	return out, rows.Err()
}

// relevantBatterPool merges the three batter sources by union, replicating
// _relevant_batter_pool's exact team-label precedence: whichever source is
// iterated first for a given player keeps its team label; later sources only
// fill a still-unknown (empty) label. Recent-team-batters is iterated first,
// then odds, then lineups — the verbatim order in the original despite its
// own comment describing lineup-first priority.
func relevantBatterPool(ctx context.Context, st *store.Store, gameDate string) (map[int64]string, batterPoolCounts, error) {
	lineup, err := queryLineupBatters(ctx, st, gameDate)
	if err != nil {
		return nil, batterPoolCounts{}, fmt.Errorf("query lineup batters: %w", err)
	}
	odds, err := queryOddsBatters(ctx, st, gameDate)
	if err != nil {
		return nil, batterPoolCounts{}, fmt.Errorf("query odds batters: %w", err)
	}
	recent, err := queryRecentTeamBatters(ctx, st, gameDate, seasonsBack)
	if err != nil {
		return nil, batterPoolCounts{}, fmt.Errorf("query recent team batters: %w", err)
	}

	merged := make(map[int64]string)
	for _, source := range []map[int64]string{recent, odds, lineup} {
		for playerID, teamAbbr := range source {
			if existing, ok := merged[playerID]; !ok {
				merged[playerID] = teamAbbr
			} else if existing == "" && teamAbbr != "" {
				merged[playerID] = teamAbbr
			}
		}
	}

	counts := batterPoolCounts{
		LineupPlayers:     len(lineup),
		OddsPlayers:       len(odds),
		RecentTeamPlayers: len(recent),
		MergedPlayers:     len(merged),
	}
	return merged, counts, nil
}

// queryLatestWindows reads, for each playerID and each of WindowDays, the
// single most recent batter_window_stats row with stat_date in
// [gameDate-seasonsBack*366d, gameDate) — the no-lookahead read side of this
// builder. Grounded on _query_latest_windows.
func queryLatestWindows(ctx context.Context, st *store.Store, playerIDs []int64, gameDate string, seasons int) (map[int64]map[int]models.BatterWindowStats, error) {
	if len(playerIDs) == 0 {
		return map[int64]map[int]models.BatterWindowStats{}, nil
	}
	lower, upper, err := asOfBounds(gameDate, seasons)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, 2+len(playerIDs))
	args = append(args, lower, upper)
	for _, id := range playerIDs {
		args = append(args, id)
	}
	query := st.Rebind(fmt.Sprintf(`
		SELECT player_id, stat_date, window_days, pa, ab, hits, singles, doubles, triples,
			home_runs, walks, strikeouts, rbis, runs, total_bases,
			barrel_sum, hard_hit_sum, exit_velo_sum, launch_angle_sum,
			batted_ball_count, fly_ball_count, line_drive_count, ground_ball_count, pulled_count,
			sweet_spot_count, pa_vs_l, hits_vs_l, k_vs_l, iso_points_vs_l,
			pa_vs_r, hits_vs_r, k_vs_r, iso_points_vs_r
		FROM batter_window_stats
		WHERE stat_date >= $1 AND stat_date < $2 AND window_days IN (7, 14, 30)
			AND player_id IN (%s)
		ORDER BY player_id, window_days, stat_date DESC
	`, placeholders(len(playerIDs), 3)))

	rows, err := st.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[int64]map[int]models.BatterWindowStats)
	for rows.Next() {
		var w models.BatterWindowStats
		if err := rows.Scan(
			&w.PlayerID, &w.StatDate, &w.WindowDays, &w.PlateAppearances, &w.AtBats, &w.Hits, &w.Singles, &w.Doubles, &w.Triples,
			&w.HomeRuns, &w.Walks, &w.Strikeouts, &w.RBIs, &w.Runs, &w.TotalBases,
			&w.BarrelCount, &w.HardHitCount, &w.SumExitVeloMPH, &w.SumLaunchAngle,
			&w.BattedBalls, &w.FlyBalls, &w.LineDrives, &w.GroundBalls, &w.PulledBalls,
			&w.SweetSpotCount, &w.PAvsL, &w.HitsVsL, &w.KvsL, &w.ISOPointsVsL,
			&w.PAvsR, &w.HitsVsR, &w.KvsR, &w.ISOPointsVsR,
		); err != nil {
			return nil, err
		}
		byWindow, ok := latest[w.PlayerID]
		if !ok {
			byWindow = make(map[int]models.BatterWindowStats)
			latest[w.PlayerID] = byWindow
		}
		if _, exists := byWindow[w.WindowDays]; !exists {
			byWindow[w.WindowDays] = w
		}
	}
	return latest, rows.Err()
}

// queryRecentLineupSlot returns the player's most common batting-order slot
// from lineups strictly before gameDate, or nil if they have none. Grounded
// on _query_recent_lineup_slot.
func queryRecentLineupSlot(ctx context.Context, st *store.Store, playerID int64, gameDate string) (*int, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT ls.batting_order_json
		FROM lineup_snapshots ls
		JOIN games g ON g.game_id = ls.game_id
		WHERE g.game_date < $1 AND ls.active_version = TRUE
		ORDER BY g.game_date DESC
		LIMIT 200
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var battingOrderJSON string
		if err := rows.Scan(&battingOrderJSON); err != nil {
			return nil, err
		}
		slots, err := decodeBattingOrder(battingOrderJSON)
		if err != nil {
			continue
		}
		for _, slot := range slots {
			if slot.PlayerID == playerID {
				counts[slot.Slot]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	best, bestCount := 0, -1
	for slot, count := range counts {
		if count > bestCount || (count == bestCount && slot < best) {
			best, bestCount = slot, count
		}
	}
	return &best, nil
}

// windowRate divides a window's counting stat by its PA, returning null
// below minPAForRates — the per-window half of spec.md §4.4's null-vs-zero
// rule.
func windowRate(w models.BatterWindowStats, num float64) *float64 {
	if w.PlateAppearances < minPAForRates {
		return nil
	}
	return safeDiv(num, float64(w.PlateAppearances))
}

func windowBattedBallRate(w models.BatterWindowStats, num float64) *float64 {
	if w.PlateAppearances < minPAForRates {
		return nil
	}
	return safeDiv(num, float64(w.BattedBalls))
}

func buildBatterRow(gameDate string, playerID int64, teamHint string, windows map[int]models.BatterWindowStats) models.BatterDailyFeatures {
	row := models.BatterDailyFeatures{GameDate: gameDate, PlayerID: playerID, TeamAbbr: teamHint}

	w7, has7 := windows[7]
	w14, has14 := windows[14]
	w30, has30 := windows[30]
	if has7 {
		row.PA7 = w7.PlateAppearances
	}
	if has14 {
		row.PA14 = w14.PlateAppearances
	}
	if has30 {
		row.PA30 = w30.PlateAppearances
	}

	ba := func(w models.BatterWindowStats) *float64 { return windowRate(w, float64(w.Hits)) }
	slg := func(w models.BatterWindowStats) *float64 { return windowRate(w, float64(w.TotalBases)) }
	iso := func(baVal, slgVal *float64) *float64 {
		if baVal == nil || slgVal == nil {
			return nil
		}
		v := *slgVal - *baVal
		return &v
	}

	ba7, ba14, ba30 := ba(w7), ba(w14), ba(w30)
	slg7, slg14, slg30 := slg(w7), slg(w14), slg(w30)
	row.BA7, row.BA14, row.BA30 = ba7, ba14, ba30
	row.HitRate7, row.HitRate14, row.HitRate30 = ba7, ba14, ba30
	row.SLG7, row.SLG14, row.SLG30 = slg7, slg14, slg30
	row.ISO7 = iso(ba7, slg7)
	row.ISO14 = iso(ba14, slg14)
	row.ISO30 = iso(ba30, slg30)

	row.KPct7 = scalePct(windowRate(w7, float64(w7.Strikeouts)))
	row.KPct14 = scalePct(windowRate(w14, float64(w14.Strikeouts)))
	row.KPct30 = scalePct(windowRate(w30, float64(w30.Strikeouts)))
	row.BBPct7 = scalePct(windowRate(w7, float64(w7.Walks)))
	row.BBPct14 = scalePct(windowRate(w14, float64(w14.Walks)))
	row.BBPct30 = scalePct(windowRate(w30, float64(w30.Walks)))

	row.HRRate7, row.HRRate14, row.HRRate30 = windowRate(w7, float64(w7.HomeRuns)), windowRate(w14, float64(w14.HomeRuns)), windowRate(w30, float64(w30.HomeRuns))
	row.SinglesRate7, row.SinglesRate14, row.SinglesRate30 = windowRate(w7, float64(w7.Singles)), windowRate(w14, float64(w14.Singles)), windowRate(w30, float64(w30.Singles))
	row.DoublesRate7, row.DoublesRate14, row.DoublesRate30 = windowRate(w7, float64(w7.Doubles)), windowRate(w14, float64(w14.Doubles)), windowRate(w30, float64(w30.Doubles))
	row.TriplesRate7, row.TriplesRate14, row.TriplesRate30 = windowRate(w7, float64(w7.Triples)), windowRate(w14, float64(w14.Triples)), windowRate(w30, float64(w30.Triples))
	row.RBIRate7, row.RBIRate14, row.RBIRate30 = windowRate(w7, float64(w7.RBIs)), windowRate(w14, float64(w14.RBIs)), windowRate(w30, float64(w30.RBIs))
	row.RunRate7, row.RunRate14, row.RunRate30 = windowRate(w7, float64(w7.Runs)), windowRate(w14, float64(w14.Runs)), windowRate(w30, float64(w30.Runs))
	row.WalkRate7, row.WalkRate14, row.WalkRate30 = windowRate(w7, float64(w7.Walks)), windowRate(w14, float64(w14.Walks)), windowRate(w30, float64(w30.Walks))
	row.TBPerPA7, row.TBPerPA14, row.TBPerPA30 = windowRate(w7, float64(w7.TotalBases)), windowRate(w14, float64(w14.TotalBases)), windowRate(w30, float64(w30.TotalBases))

	row.Barrel7 = scalePct(windowBattedBallRate(w7, float64(w7.BarrelCount)))
	row.Barrel14 = scalePct(windowBattedBallRate(w14, float64(w14.BarrelCount)))
	row.Barrel30 = scalePct(windowBattedBallRate(w30, float64(w30.BarrelCount)))
	row.HardHit7 = scalePct(windowBattedBallRate(w7, float64(w7.HardHitCount)))
	row.HardHit14 = scalePct(windowBattedBallRate(w14, float64(w14.HardHitCount)))
	row.HardHit30 = scalePct(windowBattedBallRate(w30, float64(w30.HardHitCount)))
	row.SweetSpot7 = scalePct(windowBattedBallRate(w7, float64(w7.SweetSpotCount)))
	row.SweetSpot14 = scalePct(windowBattedBallRate(w14, float64(w14.SweetSpotCount)))
	row.SweetSpot30 = scalePct(windowBattedBallRate(w30, float64(w30.SweetSpotCount)))
	row.FlyBallPct7 = scalePct(windowBattedBallRate(w7, float64(w7.FlyBalls)))
	row.FlyBallPct14 = scalePct(windowBattedBallRate(w14, float64(w14.FlyBalls)))
	row.FlyBallPct30 = scalePct(windowBattedBallRate(w30, float64(w30.FlyBalls)))
	row.LineDrivePct7 = scalePct(windowBattedBallRate(w7, float64(w7.LineDrives)))
	row.LineDrivePct14 = scalePct(windowBattedBallRate(w14, float64(w14.LineDrives)))
	row.LineDrivePct30 = scalePct(windowBattedBallRate(w30, float64(w30.LineDrives)))
	row.GroundBallPct7 = scalePct(windowBattedBallRate(w7, float64(w7.GroundBalls)))
	row.GroundBallPct14 = scalePct(windowBattedBallRate(w14, float64(w14.GroundBalls)))
	row.GroundBallPct30 = scalePct(windowBattedBallRate(w30, float64(w30.GroundBalls)))
	row.PullPct7 = scalePct(windowBattedBallRate(w7, float64(w7.PulledBalls)))
	row.PullPct14 = scalePct(windowBattedBallRate(w14, float64(w14.PulledBalls)))
	row.PullPct30 = scalePct(windowBattedBallRate(w30, float64(w30.PulledBalls)))

	row.ExitVelo7 = windowAvg(w7)
	row.ExitVelo14 = windowAvg(w14)
	row.ExitVelo30 = windowAvg(w30)
	row.LaunchAngle7 = windowLaunchAngle(w7)
	row.LaunchAngle14 = windowLaunchAngle(w14)
	row.LaunchAngle30 = windowLaunchAngle(w30)

	// Platoon splits read from the widest available window, mirroring
	// _build_row's row30-then-row14-then-row7 fallback chain; hit-rate and
	// K% "splits" reuse the overall rate per the original's own fallback
	// comment ("use overall rates") since this schema, like the original,
	// has no per-hand AB/hit breakdown beyond ISO.
	isoVsL := firstNonNil(w30.ISOPointsVsL, w14.ISOPointsVsL, w7.ISOPointsVsL)
	isoVsR := firstNonNil(w30.ISOPointsVsR, w14.ISOPointsVsR, w7.ISOPointsVsR)
	if isoVsL == nil {
		isoVsL = row.ISO30
	}
	if isoVsR == nil {
		isoVsR = row.ISO30
	}
	row.ISOvsL, row.ISOvsR = isoVsL, isoVsR
	row.HitRateVsL, row.HitRateVsR = row.HitRate30, row.HitRate30
	kpct := firstNonNil(row.KPct30, row.KPct14)
	row.KPctVsL, row.KPctVsR = kpct, kpct

	if row.ISO7 != nil && row.ISO30 != nil {
		v := *row.ISO7 - *row.ISO30
		row.HotColdISODelta = &v
	}
	if row.HitRate7 != nil && row.HitRate30 != nil {
		v := *row.HitRate7 - *row.HitRate30
		row.HotColdHitRateDelta = &v
	}

	return row
}

func scalePct(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r * 100
	return &v
}

func windowAvg(w models.BatterWindowStats) *float64 {
	if w.BattedBalls == 0 {
		return nil
	}
	return safeDiv(w.SumExitVeloMPH, float64(w.BattedBalls))
}

func windowLaunchAngle(w models.BatterWindowStats) *float64 {
	if w.BattedBalls == 0 {
		return nil
	}
	return safeDiv(w.SumLaunchAngle, float64(w.BattedBalls))
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func batterDailyFeaturesUpsertRow(r models.BatterDailyFeatures) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"game_date", "player_id", "team_abbr", "pa_7", "pa_14", "pa_30",
			"k_pct_7", "k_pct_14", "k_pct_30", "bb_pct_7", "bb_pct_14", "bb_pct_30",
			"barrel_7", "barrel_14", "barrel_30", "hard_hit_7", "hard_hit_14", "hard_hit_30",
			"exit_velo_7", "exit_velo_14", "exit_velo_30", "launch_angle_7", "launch_angle_14", "launch_angle_30",
			"sweet_spot_7", "sweet_spot_14", "sweet_spot_30",
			"fly_ball_pct_7", "line_drive_pct_7", "ground_ball_pct_7", "pull_pct_7",
			"fly_ball_pct_14", "line_drive_pct_14", "ground_ball_pct_14", "pull_pct_14",
			"fly_ball_pct_30", "line_drive_pct_30", "ground_ball_pct_30", "pull_pct_30",
			"iso_7", "iso_14", "iso_30", "slg_7", "slg_14", "slg_30",
			"tb_per_pa_7", "tb_per_pa_14", "tb_per_pa_30",
			"ba_7", "ba_14", "ba_30", "hit_rate_7", "hit_rate_14", "hit_rate_30",
			"hr_rate_7", "hr_rate_14", "hr_rate_30",
			"singles_rate_7", "doubles_rate_7", "triples_rate_7",
			"singles_rate_14", "doubles_rate_14", "triples_rate_14",
			"singles_rate_30", "doubles_rate_30", "triples_rate_30",
			"rbi_rate_7", "run_rate_7", "walk_rate_7",
			"rbi_rate_14", "run_rate_14", "walk_rate_14",
			"rbi_rate_30", "run_rate_30", "walk_rate_30",
			"iso_vs_l", "iso_vs_r", "hit_rate_vs_l", "hit_rate_vs_r", "k_pct_vs_l", "k_pct_vs_r",
			"hot_cold_iso_delta", "hot_cold_hit_rate_delta", "recent_lineup_slot",
		},
		Values: []any{
			r.GameDate, r.PlayerID, r.TeamAbbr, r.PA7, r.PA14, r.PA30,
			r.KPct7, r.KPct14, r.KPct30, r.BBPct7, r.BBPct14, r.BBPct30,
			r.Barrel7, r.Barrel14, r.Barrel30, r.HardHit7, r.HardHit14, r.HardHit30,
			r.ExitVelo7, r.ExitVelo14, r.ExitVelo30, r.LaunchAngle7, r.LaunchAngle14, r.LaunchAngle30,
			r.SweetSpot7, r.SweetSpot14, r.SweetSpot30,
			r.FlyBallPct7, r.LineDrivePct7, r.GroundBallPct7, r.PullPct7,
			r.FlyBallPct14, r.LineDrivePct14, r.GroundBallPct14, r.PullPct14,
			r.FlyBallPct30, r.LineDrivePct30, r.GroundBallPct30, r.PullPct30,
			r.ISO7, r.ISO14, r.ISO30, r.SLG7, r.SLG14, r.SLG30,
			r.TBPerPA7, r.TBPerPA14, r.TBPerPA30,
			r.BA7, r.BA14, r.BA30, r.HitRate7, r.HitRate14, r.HitRate30,
			r.HRRate7, r.HRRate14, r.HRRate30,
			r.SinglesRate7, r.DoublesRate7, r.TriplesRate7,
			r.SinglesRate14, r.DoublesRate14, r.TriplesRate14,
			r.SinglesRate30, r.DoublesRate30, r.TriplesRate30,
			r.RBIRate7, r.RunRate7, r.WalkRate7,
			r.RBIRate14, r.RunRate14, r.WalkRate14,
			r.RBIRate30, r.RunRate30, r.WalkRate30,
			r.ISOvsL, r.ISOvsR, r.HitRateVsL, r.HitRateVsR, r.KPctVsL, r.KPctVsR,
			r.HotColdISODelta, r.HotColdHitRateDelta, r.RecentLineupSlot,
		},
	}
}

// BuildBatterDailyFeatures assembles batter_daily_features for one game
// date: merge the scoring population from lineups/odds/recent-team
// fallbacks, read each player's latest prior window-stats row per window,
// derive the full rate/contact-quality/platoon feature set, and upsert.
// Grounded on build_batter_daily_features.
func BuildBatterDailyFeatures(ctx context.Context, st *store.Store, gameDate string) (*BuildReport, error) {
	report := newReport(gameDate)

	pool, counts, err := relevantBatterPool(ctx, st, gameDate)
	if err != nil {
		return nil, err
	}
	log.Printf("📚 batter pool for %s: lineups=%d odds=%d recent=%d merged=%d",
		gameDate, counts.LineupPlayers, counts.OddsPlayers, counts.RecentTeamPlayers, counts.MergedPlayers)
	if len(pool) == 0 {
		log.Printf("⚠️  no relevant batters found from lineups/odds/recent teams for %s", gameDate)
		return report, nil
	}

	playerIDs := make([]int64, 0, len(pool))
	for id := range pool {
		playerIDs = append(playerIDs, id)
	}
	sort.Slice(playerIDs, func(i, j int) bool { return playerIDs[i] < playerIDs[j] })

	latestWindows, err := queryLatestWindows(ctx, st, playerIDs, gameDate, seasonsBack)
	if err != nil {
		return nil, fmt.Errorf("query latest batter windows: %w", err)
	}

	rows := make([]store.UpsertRow, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		windows, ok := latestWindows[playerID]
		if !ok {
			report.markMissing("no_prior_window_stats", playerID)
			continue
		}
		slot, err := queryRecentLineupSlot(ctx, st, playerID, gameDate)
		if err != nil {
			return nil, fmt.Errorf("query recent lineup slot for player %d: %w", playerID, err)
		}
		row := buildBatterRow(gameDate, playerID, pool[playerID], windows)
		row.RecentLineupSlot = slot
		rows = append(rows, batterDailyFeaturesUpsertRow(row))
	}

	if len(rows) == 0 {
		log.Printf("⚠️  no batter feature rows generated for %s from available historical data", gameDate)
		return report, nil
	}

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "batter_daily_features", rows, []string{"game_date", "player_id"})
		if err != nil {
			return err
		}
		report.Upserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert batter daily features: %w", err)
	}

	log.Printf("✅ batter features built for %s: generated=%d upserted=%d missing_source_players=%d",
		gameDate, len(rows), report.Upserted, len(report.Missing["no_prior_window_stats"]))
	return report, nil
}
