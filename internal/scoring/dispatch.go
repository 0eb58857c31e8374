package scoring

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// Dispatch holds the fixed set of market Models, guarded by sync.RWMutex the
// same way normalizer/internal/registry.NormalizerRegistry and
// marketspec.Registry guard their maps: built once at process start and
// never mutated concurrently with reads thereafter.
type Dispatch struct {
	models map[string]Model
	mu     sync.RWMutex
}

// NewDispatch returns an empty Dispatch. Call Register for each Model, or
// pass it to RegisterAll in internal/scoring/models to get all eleven wired
// at once.
func NewDispatch() *Dispatch {
	return &Dispatch{models: make(map[string]Model)}
}

// Register adds a Model, erroring if its market is already registered.
func (d *Dispatch) Register(m Model) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.models[m.Market()]; exists {
		return fmt.Errorf("scoring: model for market %s already registered", m.Market())
	}
	d.models[m.Market()] = m
	return nil
}

// Get retrieves the Model for a market code.
func (d *Dispatch) Get(market string) (Model, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.models[market]
	return m, ok
}

// Markets returns every registered market code, sorted.
func (d *Dispatch) Markets() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.models))
	for k := range d.models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ScoreGame runs one market's model against one game, logging and skipping
// (rather than aborting the run) on a per-game failure — one bad game must
// never block the rest of a date's slate, per spec.md §4.8's orchestrator
// fault isolation.
func (d *Dispatch) ScoreGame(ctx context.Context, st *store.Store, market, gameDate string, game models.Game) []models.ScoredSelection {
	m, ok := d.Get(market)
	if !ok {
		log.Printf("⚠️  scoring: no model registered for market %s", market)
		return nil
	}
	rows, err := m.Score(ctx, st, gameDate, game)
	if err != nil {
		log.Printf("❌ scoring: %s game %d on %s: %v", market, game.GameID, gameDate, err)
		return nil
	}
	return rows
}
