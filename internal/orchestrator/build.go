package orchestrator

import (
	"context"
	"fmt"

	"github.com/fortuna/mlbedge/internal/features"
)

// BuildStageResult tallies rows written by each of the six feature
// builders: the two rolling-window aggregators followed by the four daily
// snapshot builders they feed.
type BuildStageResult struct {
	BatterWindows int
	PitcherWindows int
	BatterDaily   int
	PitcherDaily  int
	TeamDaily     int
	GameContext   int
}

// BuildFeatures runs every feature builder for gameDate, in the dependency
// order the models need: rolling windows first (batter_stats,
// pitcher_stats), then the four daily snapshots that read them, per
// spec.md §4.4.
func (o *Orchestrator) BuildFeatures(ctx context.Context, gameDate string) (BuildStageResult, error) {
	var result BuildStageResult

	bw, err := features.BuildBatterWindowStats(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build batter window stats: %w", err)
	}
	result.BatterWindows = bw.Upserted

	pw, err := features.BuildPitcherWindowStats(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build pitcher window stats: %w", err)
	}
	result.PitcherWindows = pw.Upserted

	bd, err := features.BuildBatterDailyFeatures(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build batter daily features: %w", err)
	}
	result.BatterDaily = bd.Upserted

	pd, err := features.BuildPitcherDailyFeatures(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build pitcher daily features: %w", err)
	}
	result.PitcherDaily = pd.Upserted

	td, err := features.BuildTeamDailyFeatures(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build team daily features: %w", err)
	}
	result.TeamDaily = td.Upserted

	gc, err := features.BuildGameContextFeatures(ctx, o.St, gameDate)
	if err != nil {
		return result, fmt.Errorf("build game context features: %w", err)
	}
	result.GameContext = gc.Upserted

	return result, nil
}
