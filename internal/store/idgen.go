package store

import (
	"sync/atomic"
	"time"
)

// idCounter disambiguates ids minted within the same nanosecond.
var idCounter uint64

// NewID mints a monotonically increasing int64 safe for use as a BIGINT
// primary key across every table in this schema that doesn't derive its key
// from a natural column set (score_runs, model_scores, market_odds, bets).
// Millisecond timestamp in the high bits, an atomic counter in the low bits
// — simple enough to need no sequence table, and ordered so id order tracks
// insertion order even across dialects (SQLite has no serial/identity type
// shared with the Postgres path, so a DB-side sequence would mean two
// codepaths; this keeps one).
func NewID() int64 {
	ms := time.Now().UnixMilli()
	seq := atomic.AddUint64(&idCounter, 1) & 0xFFFFF
	return (ms << 20) | int64(seq)
}
