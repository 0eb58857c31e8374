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

// minBFForBullpen is the batters-faced floor a recent-rotation pitcher's
// window row is clamped to before weighting into the bullpen proxy, mirroring
// team_features.py's _aggregate_bullpen ("if bf <= 0: bf = 1.0").
const minBFForBullpen = 1.0

func queryTeamsOnDate(ctx context.Context, st *store.Store, gameDate string) (map[string]string, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT home_team, away_team FROM games WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make(map[string]string)
	for rows.Next() {
		var home, away string
		if err := rows.Scan(&home, &away); err != nil {
			return nil, err
		}
		teams[home] = away
		teams[away] = home
	}
	return teams, rows.Err()
}

// queryTeamRosterPlayers returns the player_ids who batted in any of the
// team's confirmed lineups in [gameDate-seasons*366d, gameDate), the same
// lineup-snapshot-based team-roster proxy batter.go's
// queryRecentTeamBatters uses (pitch_events and batter_window_stats carry no
// team_id in this schema).
func queryTeamRosterPlayers(ctx context.Context, st *store.Store, teamAbbr, gameDate string, seasons int) ([]int64, error) {
	lower, upper, err := asOfBounds(gameDate, seasons)
	if err != nil {
		return nil, err
	}
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT ls.batting_order_json
		FROM lineup_snapshots ls
		JOIN games g ON g.game_id = ls.game_id
		WHERE g.game_date >= $1 AND g.game_date < $2 AND ls.team_abbr = $3
	`), lower, upper, teamAbbr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]bool)
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
			seen[slot.PlayerID] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// queryTeamRecentStarters returns pitcher_ids who started for teamAbbr in
// [gameDate-seasons*366d, gameDate), excluding excludePitcherID (today's own
// probable starter). Adapted stand-in for a bullpen roster: this schema's
// games table records only each game's starting pitcher, never a full
// pitching staff or per-appearance team tag, so "the team's other recent
// starters" is the closest resolvable proxy for organizational pitching
// depth available here.
func queryTeamRecentStarters(ctx context.Context, st *store.Store, teamAbbr, gameDate string, seasons int, excludePitcherID int64) ([]int64, error) {
	lower, upper, err := asOfBounds(gameDate, seasons)
	if err != nil {
		return nil, err
	}
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT home_pitcher_id, away_pitcher_id, home_team, away_team
		FROM games
		WHERE game_date >= $1 AND game_date < $2 AND (home_team = $3 OR away_team = $3)
	`), lower, upper, teamAbbr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	for rows.Next() {
		var homePitcher, awayPitcher sql.NullInt64
		var homeTeam, awayTeam string
		if err := rows.Scan(&homePitcher, &awayPitcher, &homeTeam, &awayTeam); err != nil {
			return nil, err
		}
		if homeTeam == teamAbbr && homePitcher.Valid && homePitcher.Int64 != excludePitcherID {
			seen[homePitcher.Int64] = true
		}
		if awayTeam == teamAbbr && awayPitcher.Valid && awayPitcher.Int64 != excludePitcherID {
			seen[awayPitcher.Int64] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// teamOffenseAggregate sums raw per-player window counts across a team's
// roster and derives rates from the totals. This is algebraically the same
// result as team_features.py's PA-weighted average of each player's own
// rate (summing rate*PA over players equals summing the underlying counts),
// computed directly from counts since batter_window_stats stores counts,
// not pre-derived rates.
type teamOffenseAggregate struct {
	KPct, BBPct, ISO, BA, OBP, SLG, HitRate, TBPerPA, HRRate *float64
}

func aggregateTeamOffense(rows []models.BatterWindowStats) teamOffenseAggregate {
	var totalPA, totalAB, totalHits, totalTB, totalWalks, totalHR, totalK float64
	for _, w := range rows {
		totalPA += float64(w.PlateAppearances)
		totalAB += float64(w.AtBats)
		totalHits += float64(w.Hits)
		totalTB += float64(w.TotalBases)
		totalWalks += float64(w.Walks)
		totalHR += float64(w.HomeRuns)
		totalK += float64(w.Strikeouts)
	}
	if totalPA == 0 {
		return teamOffenseAggregate{}
	}

	ba := safeDiv(totalHits, totalAB)
	slg := safeDiv(totalTB, totalAB)
	var iso *float64
	if ba != nil && slg != nil {
		v := *slg - *ba
		iso = &v
	}
	return teamOffenseAggregate{
		KPct:    safeDiv(totalK, totalPA),
		BBPct:   safeDiv(totalWalks, totalPA),
		ISO:     iso,
		BA:      ba,
		OBP:     safeDiv(totalHits+totalWalks, totalPA),
		SLG:     slg,
		HitRate: ba,
		TBPerPA: safeDiv(totalTB, totalPA),
		HRRate:  safeDiv(totalHR, totalPA),
	}
}

type teamBullpenAggregate struct {
	HR9, WHIP, KPct *float64
}

func aggregateTeamBullpen(rows []models.PitcherWindowStats) teamBullpenAggregate {
	var weightedHR9, weightedK, weightedBB, weight float64
	any14 := false
	for _, w := range rows {
		bf := float64(w.BattersFaced)
		if bf <= 0 {
			bf = minBFForBullpen
		}
		weight += bf
		if h := hr9(w.OutsRecorded, w.HomeRunsAllowed); h != nil {
			weightedHR9 += *h * bf
			any14 = true
		}
		if w.BattersFaced > 0 {
			weightedK += (float64(w.Strikeouts) / float64(w.BattersFaced)) * bf
			weightedBB += (float64(w.Walks) / float64(w.BattersFaced)) * bf
		}
	}
	if weight == 0 || !any14 {
		return teamBullpenAggregate{}
	}

	hr9Avg := weightedHR9 / weight
	kAvg := weightedK / weight
	bbAvg := weightedBB / weight
	whip := 1.0 + bbAvg*1.5

	return teamBullpenAggregate{HR9: &hr9Avg, WHIP: &whip, KPct: &kAvg}
}

// bullpenTier classifies bullpen quality into a coarse, human-readable tier
// from the HR9/K% proxy, a SPEC_FULL.md addition the original has no
// equivalent of (it only exposes the raw proxy numbers).
func bullpenTier(hr9, kPct *float64) *string {
	if hr9 == nil || kPct == nil {
		return nil
	}
	var tier string
	switch {
	case *hr9 <= 0.8 && *kPct >= 0.24:
		tier = "elite"
	case *hr9 >= 1.5 || *kPct <= 0.18:
		tier = "weak"
	default:
		tier = "average"
	}
	return &tier
}

func runsPerGame(ctx context.Context, st *store.Store, teamAbbr, gameDate string, windowDays int) (*float64, error) {
	lower, err := windowStart(gameDate, windowDays)
	if err != nil {
		return nil, err
	}
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT home_team, away_team, home_score, away_score
		FROM games
		WHERE game_date >= $1 AND game_date < $2 AND status = 'final'
			AND (home_team = $3 OR away_team = $3)
	`), lower, gameDate, teamAbbr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total float64
	var count int
	for rows.Next() {
		var homeTeam, awayTeam string
		var homeScore, awayScore sql.NullInt64
		if err := rows.Scan(&homeTeam, &awayTeam, &homeScore, &awayScore); err != nil {
			return nil, err
		}
		if homeTeam == teamAbbr && homeScore.Valid {
			total += float64(homeScore.Int64)
			count++
		} else if awayTeam == teamAbbr && awayScore.Valid {
			total += float64(awayScore.Int64)
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	v := total / float64(count)
	return &v, nil
}

func teamDailyFeaturesUpsertRow(r models.TeamDailyFeatures) store.UpsertRow {
	return store.UpsertRow{
		Columns: []string{
			"game_date", "team_abbr",
			"offense_k_pct_14", "offense_k_pct_30", "offense_bb_pct_14", "offense_bb_pct_30",
			"offense_ba_14", "offense_ba_30", "offense_obp_14", "offense_obp_30",
			"offense_slg_14", "offense_slg_30", "offense_iso_14", "offense_iso_30",
			"offense_hit_rate_14", "offense_hit_rate_30", "offense_tb_per_pa_14", "offense_tb_per_pa_30",
			"runs_per_game_14", "runs_per_game_30", "hr_rate_14", "hr_rate_30",
			"bullpen_era_14", "bullpen_whip_14", "bullpen_k_pct_14", "bullpen_hr9_14",
			"high_leverage_bullpen_tier",
		},
		Values: []any{
			r.GameDate, r.TeamAbbr,
			r.OffenseKPct14, r.OffenseKPct30, r.OffenseBBPct14, r.OffenseBBPct30,
			r.OffenseBA14, r.OffenseBA30, r.OffenseOBP14, r.OffenseOBP30,
			r.OffenseSLG14, r.OffenseSLG30, r.OffenseISO14, r.OffenseISO30,
			r.OffenseHitRate14, r.OffenseHitRate30, r.OffenseTBPerPA14, r.OffenseTBPerPA30,
			r.RunsPerGame14, r.RunsPerGame30, r.HRRate14, r.HRRate30,
			r.BullpenERA14, r.BullpenWHIP14, r.BullpenKPct14, r.BullpenHR914,
			r.HighLeverageBullpenTier,
		},
	}
}

// BuildTeamDailyFeatures assembles team_daily_features for every team
// scheduled on gameDate: offense aggregates from each team's rostered
// batters' latest 14d/30d window rows, and a bullpen proxy from pitchers who
// recently started for the team but aren't today's probable starter.
// Grounded on build_team_daily_features.
func BuildTeamDailyFeatures(ctx context.Context, st *store.Store, gameDate string) (*BuildReport, error) {
	report := newReport(gameDate)

	teams, err := queryTeamsOnDate(ctx, st, gameDate)
	if err != nil {
		return nil, fmt.Errorf("query teams on date: %w", err)
	}
	if len(teams) == 0 {
		log.Printf("⚠️  no scheduled teams found for %s", gameDate)
		return report, nil
	}

	starters, err := queryProbableStarters(ctx, st, gameDate)
	if err != nil {
		return nil, fmt.Errorf("query probable starters: %w", err)
	}
	starterByTeam := make(map[string]int64, len(starters))
	for pitcherID, ctxInfo := range starters {
		starterByTeam[ctxInfo.TeamAbbr] = pitcherID
	}

	teamAbbrs := make([]string, 0, len(teams))
	for t := range teams {
		teamAbbrs = append(teamAbbrs, t)
	}
	sort.Strings(teamAbbrs)

	rows := make([]store.UpsertRow, 0, len(teamAbbrs))
	for _, teamAbbr := range teamAbbrs {
		rosterIDs, err := queryTeamRosterPlayers(ctx, st, teamAbbr, gameDate, seasonsBack)
		if err != nil {
			return nil, fmt.Errorf("query roster for %s: %w", teamAbbr, err)
		}
		if len(rosterIDs) == 0 {
			log.Printf("⚠️  no rostered batters found for %s on %s", teamAbbr, gameDate)
			continue
		}
		batterWindows, err := queryLatestWindows(ctx, st, rosterIDs, gameDate, seasonsBack)
		if err != nil {
			return nil, fmt.Errorf("query batter windows for %s: %w", teamAbbr, err)
		}

		var rows14, rows30 []models.BatterWindowStats
		for _, byWindow := range batterWindows {
			if w, ok := byWindow[14]; ok {
				rows14 = append(rows14, w)
			}
			if w, ok := byWindow[30]; ok {
				rows30 = append(rows30, w)
			}
		}
		off14 := aggregateTeamOffense(rows14)
		off30 := aggregateTeamOffense(rows30)

		excludePitcher := starterByTeam[teamAbbr]
		recentPitcherIDs, err := queryTeamRecentStarters(ctx, st, teamAbbr, gameDate, seasonsBack, excludePitcher)
		if err != nil {
			return nil, fmt.Errorf("query recent starters for %s: %w", teamAbbr, err)
		}
		var bullpenRows []models.PitcherWindowStats
		if len(recentPitcherIDs) > 0 {
			pitcherWindows, err := queryLatestPitcherWindows(ctx, st, recentPitcherIDs, gameDate, seasonsBack)
			if err != nil {
				return nil, fmt.Errorf("query bullpen windows for %s: %w", teamAbbr, err)
			}
			for _, byWindow := range pitcherWindows {
				if w, ok := byWindow[14]; ok {
					bullpenRows = append(bullpenRows, w)
				}
			}
		}
		bullpen := aggregateTeamBullpen(bullpenRows)

		runs14, err := runsPerGame(ctx, st, teamAbbr, gameDate, 14)
		if err != nil {
			return nil, fmt.Errorf("query runs per game (14d) for %s: %w", teamAbbr, err)
		}
		runs30, err := runsPerGame(ctx, st, teamAbbr, gameDate, 30)
		if err != nil {
			return nil, fmt.Errorf("query runs per game (30d) for %s: %w", teamAbbr, err)
		}

		row := models.TeamDailyFeatures{
			GameDate:          gameDate,
			TeamAbbr:          teamAbbr,
			OffenseKPct14:     off14.KPct,
			OffenseKPct30:     off30.KPct,
			OffenseBBPct14:    off14.BBPct,
			OffenseBBPct30:    off30.BBPct,
			OffenseBA14:       off14.BA,
			OffenseBA30:       off30.BA,
			OffenseOBP14:      off14.OBP,
			OffenseOBP30:      off30.OBP,
			OffenseSLG14:      off14.SLG,
			OffenseSLG30:      off30.SLG,
			OffenseISO14:      off14.ISO,
			OffenseISO30:      off30.ISO,
			OffenseHitRate14:  off14.HitRate,
			OffenseHitRate30:  off30.HitRate,
			OffenseTBPerPA14:  off14.TBPerPA,
			OffenseTBPerPA30:  off30.TBPerPA,
			RunsPerGame14:     runs14,
			RunsPerGame30:     runs30,
			HRRate14:          off14.HRRate,
			HRRate30:          off30.HRRate,
			BullpenERA14:      bullpen.HR9,
			BullpenWHIP14:     bullpen.WHIP,
			BullpenKPct14:     bullpen.KPct,
			BullpenHR914:      bullpen.HR9,
			HighLeverageBullpenTier: bullpenTier(bullpen.HR9, bullpen.KPct),
		}
		rows = append(rows, teamDailyFeaturesUpsertRow(row))
	}

	if len(rows) == 0 {
		log.Printf("⚠️  no team feature rows generated for %s", gameDate)
		return report, nil
	}

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "team_daily_features", rows, []string{"game_date", "team_abbr"})
		if err != nil {
			return err
		}
		report.Upserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert team daily features: %w", err)
	}

	log.Printf("✅ team features built for %s: generated=%d upserted=%d", gameDate, len(rows), report.Upserted)
	return report, nil
}
