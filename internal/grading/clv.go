package grading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/mlbedge/internal/store"
)

// ClosingPolicy selects which market_odds snapshot a selection's closing
// line is drawn from, per spec.md §4.7 and the CLV_CLOSING_POLICY
// environment variable.
type ClosingPolicy string

const (
	// ClosingPolicyLatestPregame takes the single most-recently-fetched
	// market_odds row for a selection, whichever sportsbook it came from.
	ClosingPolicyLatestPregame ClosingPolicy = "latest_pregame"
	// ClosingPolicyBestAvailable takes the most-recently-fetched row among
	// the rows the normalizer already flagged is_best_available for that
	// selection (internal/normalize's cross-book best-price resolution).
	ClosingPolicyBestAvailable ClosingPolicy = "best_available"
)

// CaptureClosingLines snapshots one closing_lines row per selection_key
// traded on gameDate, drawn from this date's market_odds history under the
// given policy. clv-calculator/internal/calculator read a pre-populated
// closing_lines table from a separate database; this port populates that
// table itself from market_odds, since this repo keeps odds history and
// closing snapshots in the same store.
func CaptureClosingLines(ctx context.Context, st *store.Store, gameDate string, policy ClosingPolicy) (int, error) {
	filterClause := ""
	if policy == ClosingPolicyBestAvailable {
		filterClause = "AND is_best_available = TRUE"
	}

	rows, err := st.QueryContext(ctx, st.Rebind(fmt.Sprintf(`
		SELECT o.selection_key, o.sportsbook, o.price_american, o.implied_prob, o.line, o.fetched_at
		FROM market_odds o
		INNER JOIN (
			SELECT selection_key, MAX(fetched_at) AS max_fetched_at
			FROM market_odds
			WHERE game_date = $1 %s
			GROUP BY selection_key
		) latest ON latest.selection_key = o.selection_key AND latest.max_fetched_at = o.fetched_at
		WHERE o.game_date = $1
	`, filterClause)), gameDate)
	if err != nil {
		return 0, fmt.Errorf("query closing snapshot candidates: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var out []store.UpsertRow
	for rows.Next() {
		var selectionKey, sportsbook string
		var priceAmerican int
		var impliedProb float64
		var line sql.NullFloat64
		var fetchedAt time.Time
		if err := rows.Scan(&selectionKey, &sportsbook, &priceAmerican, &impliedProb, &line, &fetchedAt); err != nil {
			return 0, err
		}
		var linePtr *float64
		if line.Valid {
			v := line.Float64
			linePtr = &v
		}
		out = append(out, store.UpsertRow{
			Columns: []string{
				"game_date", "selection_key", "sportsbook", "price_american",
				"implied_prob", "line", "snapshot_at", "closed_at",
			},
			Values: []any{
				gameDate, selectionKey, sportsbook, priceAmerican,
				impliedProb, linePtr, fetchedAt, now,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}

	var written int
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := st.BatchUpsert(ctx, tx, "closing_lines", out, []string{"selection_key", "game_date", "sportsbook"})
		written = n
		return err
	})
	return written, err
}

// CaptureCLV resolves implied_prob_close/clv_open_to_close/line_delta for
// every bet on gameDate that doesn't have them yet, reading each bet's
// stored open price/implied probability against the closing_lines row for
// its selection_key — spec.md §4.7 point 4. A bet whose selection never
// traded a closing line (e.g. a line that vanished pregame) is left with
// nil CLV fields rather than defaulted to zero, so it can be told apart
// from a genuinely flat close.
func CaptureCLV(ctx context.Context, st *store.Store, gameDate string) (int, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT b.id, b.selection_key, b.line, b.implied_prob_open
		FROM bets b
		LEFT JOIN bet_settlements s ON s.bet_id = b.id
		WHERE b.game_date = $1 AND (s.implied_prob_close IS NULL)
	`), gameDate)
	if err != nil {
		return 0, fmt.Errorf("query bets needing CLV: %w", err)
	}
	type betRow struct {
		ID              int64
		SelectionKey    string
		Line            *float64
		ImpliedProbOpen float64
	}
	var bets []betRow
	for rows.Next() {
		var b betRow
		if err := rows.Scan(&b.ID, &b.SelectionKey, &b.Line, &b.ImpliedProbOpen); err != nil {
			rows.Close()
			return 0, err
		}
		bets = append(bets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(bets) == 0 {
		return 0, nil
	}

	closeRows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT selection_key, implied_prob, line FROM closing_lines WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return 0, fmt.Errorf("query closing lines: %w", err)
	}
	type closeLine struct {
		ImpliedProb float64
		Line        *float64
	}
	closes := make(map[string]closeLine)
	for closeRows.Next() {
		var key string
		var impliedProb float64
		var line sql.NullFloat64
		if err := closeRows.Scan(&key, &impliedProb, &line); err != nil {
			closeRows.Close()
			return 0, err
		}
		cl := closeLine{ImpliedProb: impliedProb}
		if line.Valid {
			v := line.Float64
			cl.Line = &v
		}
		// Best-available policy may surface more than one sportsbook row per
		// selection if prices tie at fetch time; first one wins, consistent
		// with normalize.MarkBestAvailable's own single-winner tie-break.
		if _, exists := closes[key]; !exists {
			closes[key] = cl
		}
	}
	closeRows.Close()
	if err := closeRows.Err(); err != nil {
		return 0, err
	}

	var written int
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, b := range bets {
			cl, ok := closes[b.SelectionKey]
			if !ok {
				continue
			}
			clvOpenToClose := b.ImpliedProbOpen - cl.ImpliedProb
			var lineDelta *float64
			if b.Line != nil && cl.Line != nil {
				v := *cl.Line - *b.Line
				lineDelta = &v
			}
			if _, err := tx.ExecContext(ctx, st.Rebind(`
				INSERT INTO bet_settlements (bet_id, status, implied_prob_close, clv_open_to_close, line_delta)
				VALUES ($1, 'pending', $2, $3, $4)
				ON CONFLICT (bet_id) DO UPDATE SET
					implied_prob_close = EXCLUDED.implied_prob_close,
					clv_open_to_close = EXCLUDED.clv_open_to_close,
					line_delta = EXCLUDED.line_delta
			`), b.ID, cl.ImpliedProb, clvOpenToClose, lineDelta); err != nil {
				return fmt.Errorf("capture CLV for bet %d: %w", b.ID, err)
			}
			written++
		}
		return nil
	})
	return written, err
}
