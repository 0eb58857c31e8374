package orchestrator

import (
	"context"
	"fmt"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/scoring"
)

// recordStage wraps a pipeline stage in its own ScoreRun audit row, per
// spec.md §4.8 ("Each stage produces a ScoreRun row and exits non-zero on
// fatal error"). market is "" for stages that aren't market-scoped
// (fetch, build-features).
func (o *Orchestrator) recordStage(ctx context.Context, runType, gameDate, market string, fn func() (int, error)) error {
	runID, err := scoring.InsertScoreRun(ctx, o.St, runType, gameDate, market, "daily", nowUTC())
	if err != nil {
		return fmt.Errorf("insert %s run: %w", runType, err)
	}

	rows, stageErr := fn()
	status := models.RunFinished
	if stageErr != nil {
		status = models.RunFailed
	}
	if err := scoring.FinishScoreRun(ctx, o.St, runID, status, rows, nowUTC()); err != nil {
		o.logf("⚠️  could not finish %s run: %v", runType, err)
	}
	return stageErr
}

// RunDaily runs the full fetch -> build -> score -> grade -> alert sequence
// for gameDate, per spec.md §4.8's daily orchestrator. A fatal error in any
// stage aborts the remaining stages and is returned so cmd/mlbedge can exit
// non-zero.
func (o *Orchestrator) RunDaily(ctx context.Context, gameDate string, sendAlerts bool) error {
	o.setStatus("fetch", gameDate, nil)
	var fetchResult FetchStageResult
	err := o.recordStage(ctx, "daily_fetch", gameDate, "", func() (int, error) {
		r, err := o.FetchAndPersist(ctx, gameDate)
		fetchResult = r
		return r.Games + r.Lineups + r.PitchEvents + r.OddsRows + r.WeatherRows, err
	})
	if err != nil {
		o.setStatus("fetch", gameDate, err)
		return fmt.Errorf("fetch stage: %w", err)
	}
	o.logf("✓ fetch stage: %+v", fetchResult)

	o.setStatus("build-features", gameDate, nil)
	var buildResult BuildStageResult
	err = o.recordStage(ctx, "daily_build", gameDate, "", func() (int, error) {
		r, err := o.BuildFeatures(ctx, gameDate)
		buildResult = r
		return r.BatterDaily + r.PitcherDaily + r.TeamDaily + r.GameContext, err
	})
	if err != nil {
		o.setStatus("build-features", gameDate, err)
		return fmt.Errorf("build-features stage: %w", err)
	}
	o.logf("✓ build-features stage: %+v", buildResult)

	o.setStatus("score", gameDate, nil)
	byMarket, failedMarkets, err := o.ScoreAllMarkets(ctx, gameDate, "daily")
	if err != nil {
		o.setStatus("score", gameDate, err)
		return fmt.Errorf("score stage: %w", err)
	}
	if len(failedMarkets) > 0 {
		o.logf("⚠️  %d market(s) failed to score: %v", len(failedMarkets), failedMarkets)
	}

	o.setStatus("grade", gameDate, nil)
	summary, err := o.RunGrade(ctx, gameDate)
	if err != nil {
		o.setStatus("grade", gameDate, err)
		return fmt.Errorf("grade stage: %w", err)
	}
	o.logf("✓ grade stage: %+v", summary)

	if sendAlerts {
		o.setStatus("alert", gameDate, nil)
		for market, selections := range byMarket {
			o.sendAlertsForMarket(ctx, gameDate, market, selections)
		}
	}

	o.setStatus("done", gameDate, nil)
	return nil
}

func (o *Orchestrator) setStatus(stage, gameDate string, stageErr error) {
	if o.Health == nil {
		return
	}
	status := statusFromStage(stage, gameDate, stageErr)
	o.Health.SetStatus(status)
}
