package oddsmath

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectionKey builds the stable join-axis string shared across market_odds,
// model_scores, market_outcomes, bets, and closing_lines, per spec.md §4.3:
//
//	HR|player:12345|YES
//	K|player:678|line:6.5|OVER
//	ML|game:9|HOME
func SelectionKey(market, entityKind string, entityID int64, line *float64, side string) string {
	var b strings.Builder
	b.WriteString(market)
	b.WriteByte('|')
	b.WriteString(entityKind)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(entityID, 10))
	if line != nil {
		b.WriteString("|line:")
		b.WriteString(formatLine(*line))
	}
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(side))
	return b.String()
}

func formatLine(line float64) string {
	s := strconv.FormatFloat(line, 'f', -1, 64)
	return s
}

// ParseSelectionKey is the inverse of SelectionKey, used by the grader and
// backtester to recover the entity/side pair from a persisted row without
// re-deriving it from the model_scores columns.
func ParseSelectionKey(key string) (market, entityKind string, entityID int64, line *float64, side string, err error) {
	parts := strings.Split(key, "|")
	if len(parts) < 2 {
		return "", "", 0, nil, "", fmt.Errorf("malformed selection key: %q", key)
	}
	market = parts[0]
	entityPart := parts[1]
	kv := strings.SplitN(entityPart, ":", 2)
	if len(kv) != 2 {
		return "", "", 0, nil, "", fmt.Errorf("malformed entity segment: %q", entityPart)
	}
	entityKind = kv[0]
	entityID, err = strconv.ParseInt(kv[1], 10, 64)
	if err != nil {
		return "", "", 0, nil, "", fmt.Errorf("malformed entity id: %w", err)
	}
	rest := parts[2:]
	if len(rest) == 0 {
		return "", "", 0, nil, "", fmt.Errorf("missing side in selection key: %q", key)
	}
	side = rest[len(rest)-1]
	if len(rest) == 2 && strings.HasPrefix(rest[0], "line:") {
		v, perr := strconv.ParseFloat(strings.TrimPrefix(rest[0], "line:"), 64)
		if perr != nil {
			return "", "", 0, nil, "", fmt.Errorf("malformed line segment: %w", perr)
		}
		line = &v
	}
	return market, entityKind, entityID, line, side, nil
}
