package orchestrator

import (
	"context"
	"fmt"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/scoring"
)

// affectedGames returns the games on gameDate whose lineup_snapshots have
// a fresher fetched_at than this market's last finished ScoreRun, per
// spec.md §4.8's "re-scores only affected games."
func (o *Orchestrator) affectedGames(ctx context.Context, gameDate, market string) ([]models.Game, error) {
	games, err := scoring.LoadGamesForDate(ctx, o.St, gameDate)
	if err != nil {
		return nil, err
	}

	rows, err := o.St.QueryContext(ctx, o.St.Rebind(`
		SELECT DISTINCT l.game_id
		FROM lineup_snapshots l
		WHERE l.active_version = TRUE
			AND l.fetched_at > COALESCE(
				(SELECT MAX(started_at) FROM score_runs WHERE game_date = $1 AND market = $2 AND status = 'finished'),
				'1970-01-01'
			)
	`), gameDate, market)
	if err != nil {
		return nil, fmt.Errorf("query affected games: %w", err)
	}
	defer rows.Close()

	affected := make(map[int64]bool)
	for rows.Next() {
		var gameID int64
		if err := rows.Scan(&gameID); err != nil {
			return nil, err
		}
		affected[gameID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []models.Game
	for _, g := range games {
		if affected[g.GameID] {
			out = append(out, g)
		}
	}
	return out, nil
}

// RescoreOnLineup re-scores every lineup-sensitive market (LineupRequired
// in marketspec) for games whose lineup changed since that market's last
// finished run, per spec.md §4.8's lineup-triggered re-scoring.
func (o *Orchestrator) RescoreOnLineup(ctx context.Context, gameDate string, sendAlerts bool) error {
	for _, market := range lineupSensitiveMarkets() {
		games, err := o.affectedGames(ctx, gameDate, market)
		if err != nil {
			o.logf("❌ rescore-on-lineup %s: %v", market, err)
			continue
		}
		if len(games) == 0 {
			continue
		}

		runID, err := scoring.InsertScoreRun(ctx, o.St, "rescore_on_lineup", gameDate, market, "rescore-on-lineup", nowUTC())
		if err != nil {
			o.logf("❌ rescore-on-lineup %s: insert run: %v", market, err)
			continue
		}

		var selections []models.ScoredSelection
		for _, game := range games {
			selections = append(selections, o.Dispatch.ScoreGame(ctx, o.St, market, gameDate, game)...)
		}

		written, err := scoring.PersistScoredSelections(ctx, o.St, runID, selections, nowUTC())
		if err != nil {
			_ = scoring.FinishScoreRun(ctx, o.St, runID, models.RunFailed, 0, nowUTC())
			o.logf("❌ rescore-on-lineup %s: persist: %v", market, err)
			continue
		}
		if err := scoring.FinishScoreRun(ctx, o.St, runID, models.RunFinished, written, nowUTC()); err != nil {
			o.logf("❌ rescore-on-lineup %s: finish run: %v", market, err)
			continue
		}
		o.logf("✓ rescore-on-lineup %s: %d selections across %d affected games", market, written, len(games))

		if sendAlerts {
			o.sendAlertsForMarket(ctx, gameDate, market, selections)
		}
	}
	return nil
}
