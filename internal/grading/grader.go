package grading

import (
	"context"
	"fmt"
	"log"

	"github.com/fortuna/mlbedge/internal/store"
)

// Summary reports one date's grading pass, the Go shape of grade_results.py's
// return dict.
type Summary struct {
	GameDate        string
	OutcomesWritten int
	ClosingLines    int
	Settled         int
	StillPending    int
	CLVCaptured     int
}

// GradeDate runs the full grading pass for one date: extract realized
// outcomes, snapshot closing lines, settle pending bets, and capture CLV —
// grade_results.py's grade_results_for_date, with the closing-line capture
// step inserted ahead of CLV since this port populates closing_lines itself
// rather than reading it from an already-populated table.
func GradeDate(ctx context.Context, st *store.Store, gameDate string, policy ClosingPolicy) (Summary, error) {
	outcomesWritten, err := ExtractOutcomes(ctx, st, gameDate)
	if err != nil {
		return Summary{}, fmt.Errorf("extract outcomes: %w", err)
	}

	closingLines, err := CaptureClosingLines(ctx, st, gameDate, policy)
	if err != nil {
		return Summary{}, fmt.Errorf("capture closing lines: %w", err)
	}

	settled, stillPending, err := SettleBets(ctx, st, gameDate)
	if err != nil {
		return Summary{}, fmt.Errorf("settle bets: %w", err)
	}

	clvCaptured, err := CaptureCLV(ctx, st, gameDate)
	if err != nil {
		return Summary{}, fmt.Errorf("capture CLV: %w", err)
	}

	summary := Summary{
		GameDate:        gameDate,
		OutcomesWritten: outcomesWritten,
		ClosingLines:    closingLines,
		Settled:         settled,
		StillPending:    stillPending,
		CLVCaptured:     clvCaptured,
	}
	log.Printf("✓ grading %s: %d outcomes, %d closing lines, %d bets settled (%d still pending), %d CLV captured",
		gameDate, outcomesWritten, closingLines, settled, stillPending, clvCaptured)
	return summary, nil
}
