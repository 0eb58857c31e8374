package orchestrator

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// dateRange enumerates every calendar date in [start, end] inclusive.
func dateRange(start, end string) ([]string, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("end date %s before start date %s", end, start)
	}

	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dateLayout))
	}
	return out, nil
}

// chunk60 splits dates into consecutive runs of at most 60, per spec.md
// §4.8's "60-day chunking" memory bound for Phase 1.
func chunk60(dates []string) [][]string {
	const size = 60
	var chunks [][]string
	for i := 0; i < len(dates); i += size {
		end := i + size
		if end > len(dates) {
			end = len(dates)
		}
		chunks = append(chunks, dates[i:end])
	}
	return chunks
}
