// Package normalize maps raw sportsbook market keys onto the eleven internal
// market codes the scoring engine understands, and marks best-available
// pricing on a batch of normalized odds rows. It is the odds-normalizer
// component of spec.md §4.3, separate from the fetchers that retrieve raw
// book rows and the oddsmath package that does the pure arithmetic.
package normalize

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// MarketKeyRegistry maps a source-book market key (e.g. "batter_home_runs")
// to an internal market code (e.g. "HR"), guarded the same way
// normalizer/internal/registry.NormalizerRegistry guards its per-sport
// normalizers, generalized here from a per-sport table to a per-book-market
// table for the eleven MLB markets.
type MarketKeyRegistry struct {
	mappings map[string]string
	mu       sync.RWMutex
}

// NewMarketKeyRegistry returns a registry pre-loaded with DefaultMappings.
func NewMarketKeyRegistry() *MarketKeyRegistry {
	r := &MarketKeyRegistry{mappings: make(map[string]string)}
	for bookKey, marketCode := range DefaultMappings() {
		_ = r.Register(bookKey, marketCode)
	}
	return r
}

// Register adds a book-market-key to internal-market-code mapping. It
// returns an error if the book key is already mapped.
func (r *MarketKeyRegistry) Register(bookKey, marketCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(bookKey)
	if _, exists := r.mappings[key]; exists {
		return fmt.Errorf("book market key %s is already mapped", bookKey)
	}
	r.mappings[key] = strings.ToUpper(marketCode)
	return nil
}

// Resolve maps a book market key to an internal market code. Per spec.md
// §4.3, an unknown key is logged and skipped rather than treated as an
// error — callers check the ok return and drop the row.
func (r *MarketKeyRegistry) Resolve(bookKey string) (marketCode string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	marketCode, ok = r.mappings[strings.ToLower(bookKey)]
	if !ok {
		log.Printf("⚠️  unknown odds market key %q — skipping", bookKey)
	}
	return marketCode, ok
}

// DefaultMappings is the book-market-key -> internal-market-code table for
// every market The Odds API exposes a liquid line for. Markets with no book
// equivalent (HITS_1P, HITS_LINE, TB_LINE, OUTS_RECORDED, F5_ML, F5_TOTAL,
// TEAM_TOTAL) are scored off model-only projections per spec.md §4.3's
// "book line optional" note and have no entry here.
func DefaultMappings() map[string]string {
	return map[string]string{
		"batter_home_runs": "HR",
		"batter_strikeouts": "K",
		"totals":           "TOTAL",
		"h2h":               "ML",
	}
}
