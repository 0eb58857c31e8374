package models

import (
	"context"
	"log"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// F5MLModel is a scaffold: F5_ML has a market_specs entry in the original
// but never had a *_model.py file backing it at all. Registered for the
// same reason as F5TotalModel — it appears in the market catalog without
// ever producing a row.
type F5MLModel struct{}

func (F5MLModel) Market() string { return "F5_ML" }

func (F5MLModel) RequiredInputs() []string { return nil }

func (F5MLModel) Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error) {
	log.Printf("⚠️  F5_ML: unimplemented market, skipping game %d", game.GameID)
	return nil, nil
}
