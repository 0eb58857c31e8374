package orchestrator

import (
	"context"
	"fmt"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/scoring"
)

// ScoreMarket runs one market's model across every game on gameDate,
// wrapped in a ScoreRun audit row per spec.md §4.6, and persists the
// result as model_scores rows (superseding the prior active run for the
// same natural key). It returns the in-memory selections too, so callers
// can feed them straight to alerting without a re-read.
func (o *Orchestrator) ScoreMarket(ctx context.Context, gameDate, market, triggeredBy string) ([]models.ScoredSelection, error) {
	games, err := scoring.LoadGamesForDate(ctx, o.St, gameDate)
	if err != nil {
		return nil, fmt.Errorf("load games for %s: %w", gameDate, err)
	}

	runID, err := scoring.InsertScoreRun(ctx, o.St, "score", gameDate, market, triggeredBy, nowUTC())
	if err != nil {
		return nil, fmt.Errorf("insert score run: %w", err)
	}

	var selections []models.ScoredSelection
	for _, game := range games {
		selections = append(selections, o.Dispatch.ScoreGame(ctx, o.St, market, gameDate, game)...)
	}

	written, err := scoring.PersistScoredSelections(ctx, o.St, runID, selections, nowUTC())
	if err != nil {
		_ = scoring.FinishScoreRun(ctx, o.St, runID, models.RunFailed, 0, nowUTC())
		return nil, fmt.Errorf("persist scored selections: %w", err)
	}

	if err := scoring.FinishScoreRun(ctx, o.St, runID, models.RunFinished, written, nowUTC()); err != nil {
		return selections, fmt.Errorf("finish score run: %w", err)
	}

	o.logf("✓ scored %s %s: %d selections from %d games", gameDate, market, written, len(games))
	return selections, nil
}

// ScoreAllMarkets runs ScoreMarket for every registered market, keyed by
// market code in the returned map. A market whose ScoreMarket call errors
// is logged and skipped rather than aborting its siblings — the caller
// gets failedMarkets back so it can report a partial-success exit code
// instead of silently returning success on a degraded run.
func (o *Orchestrator) ScoreAllMarkets(ctx context.Context, gameDate, triggeredBy string) (out map[string][]models.ScoredSelection, failedMarkets []string, err error) {
	out = make(map[string][]models.ScoredSelection)
	for _, market := range o.Dispatch.Markets() {
		selections, err := o.ScoreMarket(ctx, gameDate, market, triggeredBy)
		if err != nil {
			o.logf("❌ scoring %s failed: %v", market, err)
			failedMarkets = append(failedMarkets, market)
			continue
		}
		out[market] = selections
	}
	return out, failedMarkets, nil
}
