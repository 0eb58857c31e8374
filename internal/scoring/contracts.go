package scoring

import (
	"context"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// Model is one market's scoring implementation. Each of the eleven markets
// has exactly one Model, registered into a Dispatch at process start, per
// spec.md §4.6's "dynamic per-market model dispatch" — the Go replacement
// being a compile-time-known slice of values rather than a runtime module
// lookup.
type Model interface {
	// Market returns the market code this model scores (e.g. "HR", "ML").
	Market() string

	// RequiredInputs lists the feature tables/columns this model needs,
	// surfaced to the orchestrator so it can skip scoring when upstream
	// builders haven't run yet, per marketspec.Spec.RequiredFeatureTables.
	RequiredInputs() []string

	// Score produces every selection row for one game on one date. It
	// returns an empty slice (not an error) when the game has no scoreable
	// universe (e.g. no confirmed probable pitcher for a pitcher market),
	// matching the Python score_game convention of "no crash, no rows."
	Score(ctx context.Context, st *store.Store, gameDate string, game models.Game) ([]models.ScoredSelection, error)
}
