package models

import (
	"context"
	"log"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// F5TotalModel is a scaffold: grounded on f5_total_model.py, which returns
// no scores at all pending first-5-innings-specific feature fetchers this
// schema doesn't carry (the daily_features tables are whole-game windows,
// not split by inning range). It stays registered so the market appears in
// Dispatch.Markets and the orchestrator's slate, matching the original's
// posture of a market that exists in market_specs but scores nothing yet.
type F5TotalModel struct{}

func (F5TotalModel) Market() string { return "F5_TOTAL" }

func (F5TotalModel) RequiredInputs() []string { return nil }

func (F5TotalModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	log.Printf("⚠️  F5_TOTAL: no first-5-innings feature fetchers wired yet, skipping game %d", game.GameID)
	return nil, nil
}
