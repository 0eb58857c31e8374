package grading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// normalizeSide resolves a bet's side, falling back to reading it off
// bet_type when the side column is blank, mirroring base_grader.py's
// _normalize_side.
func normalizeSide(side, market, betType string) string {
	if side != "" {
		return side
	}
	up := betType
	switch market {
	case "HR":
		if containsSuffix(up, "_NO") || containsSuffix(up, "_UNDER") {
			return "NO"
		}
		return "YES"
	}
	if containsSuffix(up, "_UNDER") {
		return "UNDER"
	}
	if containsSuffix(up, "_OVER") {
		return "OVER"
	}
	if containsSuffix(up, "_AWAY") {
		return "AWAY"
	}
	if containsSuffix(up, "_HOME") {
		return "HOME"
	}
	return ""
}

func containsSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// settleSelection returns one of win/loss/push/pending for a bet against its
// resolved outcome value, mirroring base_grader.py's settle_selection
// exactly, including the push policy from spec.md §4.7 ("integer lines push
// on exact match; half-lines cannot push" — captured here implicitly since
// an exact float equality only fires on an integer line in practice).
func settleSelection(market, side string, line, outcomeValue *float64, betType string) models.BetStatus {
	if outcomeValue == nil {
		return models.BetPending
	}
	normalizedSide := normalizeSide(side, market, betType)
	value := *outcomeValue

	switch normalizedSide {
	case "OVER", "UNDER":
		if line == nil {
			return models.BetPending
		}
		threshold := *line
		if value > threshold {
			if normalizedSide == "OVER" {
				return models.BetWin
			}
			return models.BetLoss
		}
		if value < threshold {
			if normalizedSide == "UNDER" {
				return models.BetWin
			}
			return models.BetLoss
		}
		return models.BetPush
	case "YES", "NO":
		yesHit := value >= 1.0
		if (yesHit && normalizedSide == "YES") || (!yesHit && normalizedSide == "NO") {
			return models.BetWin
		}
		return models.BetLoss
	case "HOME", "AWAY":
		// ML/F5_ML outcome_value is 1 for home win, 0 for away win, 0.5 tie.
		if value == 0.5 {
			return models.BetPush
		}
		if normalizedSide == "HOME" {
			if value == 1.0 {
				return models.BetWin
			}
			return models.BetLoss
		}
		if value == 0.0 {
			return models.BetWin
		}
		return models.BetLoss
	default:
		return models.BetPending
	}
}

// payoutForSettlement returns (profitUnits) under the 1-unit stake
// convention from spec.md §4.7: decimal odds - 1 on win, -1 on loss, 0 on
// push/void. Mirrors base_grader.py's payout_for_settlement, simplified to
// the fixed 1-unit stake this schema's bets.stake column represents in
// units rather than a currency amount.
func payoutForSettlement(oddsAmerican int, stakeUnits float64, status models.BetStatus) *float64 {
	switch status {
	case models.BetPush, models.BetVoid:
		v := 0.0
		return &v
	case models.BetLoss:
		v := -stakeUnits
		return &v
	case models.BetWin:
		decimal, err := americanToDecimalForSettlement(oddsAmerican)
		if err != nil {
			return nil
		}
		v := stakeUnits * (decimal - 1.0)
		return &v
	default:
		return nil
	}
}

func americanToDecimalForSettlement(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid american odds: 0")
	}
	if american > 0 {
		return 1.0 + float64(american)/100.0, nil
	}
	return 1.0 + 100.0/float64(-american), nil
}

// SettleSelection exposes settleSelection to callers outside this package
// (the backtester reconstructs settlement without writing bet_settlements
// rows, since a backtest places no real bets).
func SettleSelection(market, side string, line, outcomeValue *float64, betType string) models.BetStatus {
	return settleSelection(market, side, line, outcomeValue, betType)
}

// PayoutForSettlement exposes payoutForSettlement to callers outside this
// package; see SettleSelection.
func PayoutForSettlement(oddsAmerican int, stakeUnits float64, status models.BetStatus) *float64 {
	return payoutForSettlement(oddsAmerican, stakeUnits, status)
}

type resolvedOutcome struct {
	Value *float64
}

// OutcomesForDate exposes outcomesForDate to callers outside this package.
func OutcomesForDate(ctx context.Context, st *store.Store, gameDate string) (map[string]*float64, error) {
	resolved, err := outcomesForDate(ctx, st, gameDate)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(resolved))
	for k, v := range resolved {
		out[k] = v.Value
	}
	return out, nil
}

func outcomesForDate(ctx context.Context, st *store.Store, gameDate string) (map[string]resolvedOutcome, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT selection_key, outcome_value FROM market_outcomes WHERE game_date = $1
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]resolvedOutcome)
	for rows.Next() {
		var key string
		var value sql.NullFloat64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		r := resolvedOutcome{}
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		out[key] = r
	}
	return out, rows.Err()
}

// SettleBets resolves every pending bet on gameDate against market_outcomes
// rows already written by ExtractOutcomes, writing a bet_settlements row for
// each bet that resolves (win/loss/push/void) and leaving still-unresolved
// bets untouched — grade_results.py's _settle_bets, generalized from a
// single `bets` UPDATE to this schema's separate bet_settlements table
// (spec.md §3: a Bet's open-price fields are immutable once placed).
func SettleBets(ctx context.Context, st *store.Store, gameDate string) (settled, stillPending int, err error) {
	outcomes, err := outcomesForDate(ctx, st, gameDate)
	if err != nil {
		return 0, 0, fmt.Errorf("load outcomes: %w", err)
	}

	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT b.id, b.selection_key, b.market, b.side, b.line, b.stake, b.odds_open
		FROM bets b
		LEFT JOIN bet_settlements s ON s.bet_id = b.id
		WHERE b.game_date = $1 AND (s.bet_id IS NULL OR s.status = 'pending')
	`), gameDate)
	if err != nil {
		return 0, 0, fmt.Errorf("query pending bets: %w", err)
	}
	type pendingBet struct {
		ID           int64
		SelectionKey string
		Market       string
		Side         string
		Line         *float64
		Stake        float64
		OddsOpen     int
	}
	var pending []pendingBet
	for rows.Next() {
		var b pendingBet
		if err := rows.Scan(&b.ID, &b.SelectionKey, &b.Market, &b.Side, &b.Line, &b.Stake, &b.OddsOpen); err != nil {
			rows.Close()
			return 0, 0, err
		}
		pending = append(pending, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	now := time.Now().UTC()
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, b := range pending {
			outcome, ok := outcomes[b.SelectionKey]
			if !ok {
				stillPending++
				continue
			}
			status := settleSelection(b.Market, b.Side, b.Line, outcome.Value, "")
			if status == models.BetPending {
				stillPending++
				continue
			}
			profit := payoutForSettlement(b.OddsOpen, b.Stake, status)

			if _, err := tx.ExecContext(ctx, st.Rebind(`
				INSERT INTO bet_settlements (bet_id, status, profit_units, settled_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (bet_id) DO UPDATE SET
					status = EXCLUDED.status,
					profit_units = EXCLUDED.profit_units,
					settled_at = EXCLUDED.settled_at
			`), b.ID, string(status), profit, now); err != nil {
				return fmt.Errorf("settle bet %d: %w", b.ID, err)
			}
			settled++
		}
		return nil
	})
	return settled, stillPending, err
}
