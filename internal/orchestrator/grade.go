package orchestrator

import (
	"context"

	"github.com/fortuna/mlbedge/internal/grading"
)

// RunGrade extracts outcomes, captures closing lines, settles bets, and
// captures CLV for gameDate, per spec.md §4.7.
func (o *Orchestrator) RunGrade(ctx context.Context, gameDate string) (grading.Summary, error) {
	return grading.GradeDate(ctx, o.St, gameDate, o.closingPolicy())
}
