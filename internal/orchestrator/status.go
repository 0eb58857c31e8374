package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/mlbedge/internal/healthserver"
)

func statusFromStage(stage, gameDate string, stageErr error) healthserver.RunStatus {
	status := healthserver.RunStatus{
		Stage:     stage,
		GameDate:  gameDate,
		StartedAt: time.Now().UTC(),
	}
	if stageErr != nil {
		status.Err = stageErr.Error()
	}
	if stage == "done" {
		finished := time.Now().UTC()
		status.FinishedAt = &finished
	}
	return status
}

// RunTypeStatus is one run_type's most recent activity, per spec.md §6's
// `status` CLI command ("prints last run timestamps per run_type, counts,
// freshness").
type RunTypeStatus struct {
	RunType       string
	LastGameDate  string
	LastStatus    string
	LastStartedAt time.Time
	LastFinishedAt *time.Time
	RowsScored    int
}

// Status queries the last ScoreRun per run_type.
func (o *Orchestrator) Status(ctx context.Context) ([]RunTypeStatus, error) {
	rows, err := o.St.QueryContext(ctx, `
		SELECT run_type, game_date, status, rows_scored, started_at, finished_at
		FROM score_runs sr
		WHERE started_at = (
			SELECT MAX(started_at) FROM score_runs WHERE run_type = sr.run_type
		)
		ORDER BY run_type
	`)
	if err != nil {
		return nil, fmt.Errorf("query status: %w", err)
	}
	defer rows.Close()

	var out []RunTypeStatus
	for rows.Next() {
		var s RunTypeStatus
		if err := rows.Scan(&s.RunType, &s.LastGameDate, &s.LastStatus, &s.RowsScored, &s.LastStartedAt, &s.LastFinishedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FormatStatus renders Status's result as the human-readable lines the
// `status` CLI command prints to stdout.
func FormatStatus(rows []RunTypeStatus) string {
	if len(rows) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for _, r := range rows {
		freshness := "unknown"
		if r.LastFinishedAt != nil {
			freshness = time.Since(*r.LastFinishedAt).Round(time.Minute).String() + " ago"
		}
		fmt.Fprintf(&b, "%-20s %-12s %-10s rows=%-6d freshness=%s\n",
			r.RunType, r.LastGameDate, r.LastStatus, r.RowsScored, freshness)
	}
	return b.String()
}
