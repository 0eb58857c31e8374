// Package grading resolves persisted selections against realized game
// outcomes, settles logged bets, and captures closing-line value — the
// engine half of spec.md §4.7, adapted from clv-calculator and
// settlement-service's read-match-write shape onto this repo's single
// store and (market, game_id, entity, bet_type, line) selection key.
package grading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// playerPropMarkets mirrors base_grader.py's SUPPORTED_PLAYER_PROP_MARKETS.
var playerPropMarkets = map[string]bool{
	"HR": true, "K": true, "HITS_1P": true, "HITS_LINE": true,
	"TB_LINE": true, "OUTS_RECORDED": true,
}

// gameMarkets mirrors base_grader.py's SUPPORTED_GAME_MARKETS.
var gameMarkets = map[string]bool{
	"ML": true, "TOTAL": true, "F5_ML": true, "F5_TOTAL": true, "TEAM_TOTAL": true,
}

// candidateSelection is one row eligible for grading, drawn from either an
// active model_scores row or any bet placed for that game date —
// grade_results.py's _selection_candidates, deduplicated by selection_key
// across both sources (a model_scores row wins over a bet with the same key).
type candidateSelection struct {
	Market       string
	GameID       int64
	EntityKind   string
	EntityID     int64
	TeamAbbr     string
	BetType      string
	Line         *float64
	SelectionKey string
	Side         string
}

func distinctSelectionsForDate(ctx context.Context, st *store.Store, gameDate string) ([]candidateSelection, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT DISTINCT market, game_id, entity_kind, entity_id, team_abbr, bet_type, line, selection_key, side
		FROM model_scores
		WHERE game_date = $1 AND is_active = TRUE
	`), gameDate)
	if err != nil {
		return nil, fmt.Errorf("query model_scores candidates: %w", err)
	}
	defer rows.Close()

	var out []candidateSelection
	seen := make(map[string]bool)
	for rows.Next() {
		var c candidateSelection
		if err := rows.Scan(&c.Market, &c.GameID, &c.EntityKind, &c.EntityID, &c.TeamAbbr, &c.BetType, &c.Line, &c.SelectionKey, &c.Side); err != nil {
			return nil, err
		}
		if !playerPropMarkets[c.Market] && !gameMarkets[c.Market] {
			continue
		}
		if seen[c.SelectionKey] {
			continue
		}
		seen[c.SelectionKey] = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	betRows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT market, game_id, selection_key, side, bet_type, line
		FROM bets
		WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return nil, fmt.Errorf("query pending bet candidates: %w", err)
	}
	defer betRows.Close()
	for betRows.Next() {
		var c candidateSelection
		if err := betRows.Scan(&c.Market, &c.GameID, &c.SelectionKey, &c.Side, &c.BetType, &c.Line); err != nil {
			return nil, err
		}
		if !playerPropMarkets[c.Market] && !gameMarkets[c.Market] {
			continue
		}
		if seen[c.SelectionKey] {
			continue
		}
		seen[c.SelectionKey] = true
		out = append(out, c)
	}
	return out, betRows.Err()
}

// isGameFinal reports whether a game has a settleable result, mirroring
// player_props.py/game_markets.py's status check but reading this store's
// games table directly instead of polling the MLB Stats API boxscore
// endpoint a second time — this pipeline already fetched the final status
// and box score into pitch_events/games during the daily fetch stage.
func isGameFinal(ctx context.Context, st *store.Store, gameID int64) (models.Game, bool, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_id, game_date, home_team, away_team, status, home_score, away_score
		FROM games WHERE game_id = $1
	`), gameID)
	var g models.Game
	var homeScore, awayScore sql.NullInt64
	if err := row.Scan(&g.GameID, &g.GameDate, &g.HomeTeam, &g.AwayTeam, &g.Status, &homeScore, &awayScore); err != nil {
		if err == sql.ErrNoRows {
			return models.Game{}, false, nil
		}
		return models.Game{}, false, err
	}
	if homeScore.Valid {
		v := int(homeScore.Int64)
		g.HomeScore = &v
	}
	if awayScore.Valid {
		v := int(awayScore.Int64)
		g.AwayScore = &v
	}
	return g, g.IsFinal(), nil
}

// playerGameStats is one batter/pitcher's aggregated counting stats for a
// single game, summed directly from pitch_events — the Go equivalent of
// player_props.py's boxscore fetch-and-extract, grounded on this schema's
// per-event flags (is_home_run, is_hit, is_strikeout, outs_recorded, and
// the hit-type flags used here to derive total bases) instead of a second
// HTTP round-trip to the stats API.
type playerGameStats struct {
	HR        int
	Hits      int
	TotalBases int
	K         int
	Outs      int
}

func playerStatsForGame(ctx context.Context, st *store.Store, gameID int64) (map[int64]playerGameStats, error) {
	stats := make(map[int64]playerGameStats)

	batterRows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT batter_id,
			SUM(CASE WHEN is_home_run THEN 1 ELSE 0 END),
			SUM(CASE WHEN is_hit THEN 1 ELSE 0 END),
			SUM(CASE WHEN is_single THEN 1 WHEN is_double THEN 2 WHEN is_triple THEN 3 WHEN is_home_run THEN 4 ELSE 0 END)
		FROM pitch_events
		WHERE game_id = $1
		GROUP BY batter_id
	`), gameID)
	if err != nil {
		return nil, fmt.Errorf("aggregate batter stats: %w", err)
	}
	defer batterRows.Close()
	for batterRows.Next() {
		var playerID int64
		var hr, hits, tb int
		if err := batterRows.Scan(&playerID, &hr, &hits, &tb); err != nil {
			return nil, err
		}
		s := stats[playerID]
		s.HR, s.Hits, s.TotalBases = hr, hits, tb
		stats[playerID] = s
	}
	if err := batterRows.Err(); err != nil {
		return nil, err
	}

	pitcherRows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT pitcher_id,
			SUM(CASE WHEN is_strikeout THEN 1 ELSE 0 END),
			SUM(outs_recorded)
		FROM pitch_events
		WHERE game_id = $1
		GROUP BY pitcher_id
	`), gameID)
	if err != nil {
		return nil, fmt.Errorf("aggregate pitcher stats: %w", err)
	}
	defer pitcherRows.Close()
	for pitcherRows.Next() {
		var playerID int64
		var k, outs int
		if err := pitcherRows.Scan(&playerID, &k, &outs); err != nil {
			return nil, err
		}
		s := stats[playerID]
		s.K, s.Outs = k, outs
		stats[playerID] = s
	}
	return stats, pitcherRows.Err()
}

// playerPropOutcomeValue mirrors player_props.py's _selection_outcome_value.
func playerPropOutcomeValue(market string, s playerGameStats) (float64, string) {
	switch market {
	case "HR":
		return float64(s.HR), fmt.Sprintf("hr=%d", s.HR)
	case "HITS_1P", "HITS_LINE":
		return float64(s.Hits), fmt.Sprintf("hits=%d", s.Hits)
	case "TB_LINE":
		return float64(s.TotalBases), fmt.Sprintf("tb=%d", s.TotalBases)
	case "K":
		return float64(s.K), fmt.Sprintf("k=%d", s.K)
	case "OUTS_RECORDED":
		return float64(s.Outs), fmt.Sprintf("outs=%d", s.Outs)
	default:
		return 0, ""
	}
}

// extractOutcomeValue dispatches a candidate selection to the player-prop or
// game-market extractor, mirroring grade_results.py's two-extractor split.
func extractOutcomeValue(c candidateSelection, game models.Game, playerStats map[int64]playerGameStats) (*float64, *string, error) {
	if playerPropMarkets[c.Market] {
		if c.EntityKind != "player" {
			return nil, nil, nil
		}
		s, ok := playerStats[c.EntityID]
		if !ok {
			return nil, nil, nil
		}
		v, text := playerPropOutcomeValue(c.Market, s)
		return &v, &text, nil
	}

	if game.HomeScore == nil || game.AwayScore == nil {
		return nil, nil, nil
	}
	homeScore, awayScore := *game.HomeScore, *game.AwayScore

	switch c.Market {
	case "ML":
		if homeScore == awayScore {
			v := 0.5
			text := fmt.Sprintf("ml_tie:%d-%d", homeScore, awayScore)
			return &v, &text, nil
		}
		v := 0.0
		if homeScore > awayScore {
			v = 1.0
		}
		text := fmt.Sprintf("final:%d-%d", homeScore, awayScore)
		return &v, &text, nil
	case "TOTAL":
		v := float64(homeScore + awayScore)
		text := fmt.Sprintf("final_total=%d", homeScore+awayScore)
		return &v, &text, nil
	case "TEAM_TOTAL":
		var v float64
		if c.TeamAbbr == game.HomeTeam {
			v = float64(homeScore)
		} else if c.TeamAbbr == game.AwayTeam {
			v = float64(awayScore)
		} else {
			return nil, nil, nil
		}
		text := fmt.Sprintf("team_runs=%d", int(v))
		return &v, &text, nil
	case "F5_ML", "F5_TOTAL":
		// Runs over the first five innings can't be attributed to a side
		// from pitch_events alone (events carry no batting-team tag) — left
		// ungraded, same as F5_TOTAL/F5_ML scoring's scaffold status.
		return nil, nil, nil
	default:
		return nil, nil, nil
	}
}

// ExtractOutcomes computes realized outcome_value/outcome_text for every
// distinct selection on gameDate whose game is final, and upserts them into
// market_outcomes. Returns the count of rows written.
func ExtractOutcomes(ctx context.Context, st *store.Store, gameDate string) (int, error) {
	candidates, err := distinctSelectionsForDate(ctx, st, gameDate)
	if err != nil {
		return 0, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	byGame := make(map[int64][]candidateSelection)
	for _, c := range candidates {
		byGame[c.GameID] = append(byGame[c.GameID], c)
	}

	now := time.Now().UTC()
	var rows []store.UpsertRow
	for gameID, gameCandidates := range byGame {
		game, final, err := isGameFinal(ctx, st, gameID)
		if err != nil {
			return 0, fmt.Errorf("load game %d: %w", gameID, err)
		}
		if !final {
			continue
		}
		playerStats, err := playerStatsForGame(ctx, st, gameID)
		if err != nil {
			return 0, fmt.Errorf("aggregate player stats for game %d: %w", gameID, err)
		}
		for _, c := range gameCandidates {
			value, text, err := extractOutcomeValue(c, game, playerStats)
			if err != nil {
				return 0, fmt.Errorf("extract outcome for %s: %w", c.SelectionKey, err)
			}
			if value == nil {
				continue
			}
			rows = append(rows, store.UpsertRow{
				Columns: []string{
					"game_date", "market", "game_id", "entity_kind", "entity_id",
					"selection_key", "outcome_value", "outcome_text", "settled_at",
				},
				Values: []any{
					gameDate, c.Market, c.GameID, c.EntityKind, c.EntityID,
					c.SelectionKey, *value, text, now,
				},
			})
		}
	}

	if len(rows) == 0 {
		return 0, nil
	}
	var written int
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "market_outcomes", rows, []string{"selection_key", "game_date"})
		written = n
		return err
	})
	return written, err
}
