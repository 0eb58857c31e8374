// Package orchestrator sequences the daily fetch -> feature -> score ->
// grade -> alert pipeline and its batch siblings (backfill, backtest,
// lineup rescoring, status), per spec.md §4.8. Grounded on
// original_source/pipeline/daily_runner.py's stage sequencing, generalized
// from a single-script runner into a struct holding the shared dependencies
// (store, HTTP client, scoring dispatch, alert notifier) every stage needs.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/mlbedge/internal/alerts"
	"github.com/fortuna/mlbedge/internal/cache"
	"github.com/fortuna/mlbedge/internal/config"
	"github.com/fortuna/mlbedge/internal/grading"
	"github.com/fortuna/mlbedge/internal/healthserver"
	"github.com/fortuna/mlbedge/internal/httpx"
	"github.com/fortuna/mlbedge/internal/marketspec"
	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/scoring"
	scoringmodels "github.com/fortuna/mlbedge/internal/scoring/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// Orchestrator bundles every dependency a pipeline stage needs. One
// instance is built per process invocation and threaded through every
// stage function — there is no package-level mutable state, per SPEC_FULL.md
// §9's "Global mutable state: none required."
type Orchestrator struct {
	St       *store.Store
	Cfg      config.Config
	Client   *httpx.Client
	Dispatch *scoring.Dispatch
	Notifier *alerts.Notifier
	Thresholds map[string]alerts.Thresholds
	Health   *healthserver.Server
	Cache    *cache.Cache // nil disables caching; every Cache method is nil-safe

	// RunID correlates every log line this invocation emits across stages,
	// independent of the int64 primary keys store.NewID mints for persisted
	// rows — useful when several orchestrator invocations interleave in the
	// same job-runner log stream.
	RunID string
}

// New builds an Orchestrator from already-opened dependencies. Redis is
// optional: an empty cfg.RedisURL yields a nil *cache.Cache and every
// cached lookup falls back to the database transparently.
func New(st *store.Store, cfg config.Config) (*Orchestrator, error) {
	client := httpx.New(cfg.HTTPTimeout, cfg.HTTPRetries, cfg.HTTPRetryDelay)

	dispatch := scoring.NewDispatch()
	if err := scoringmodels.RegisterAll(dispatch); err != nil {
		return nil, fmt.Errorf("register scoring models: %w", err)
	}

	rdb, err := cache.New(context.Background(), cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Printf("⚠️  redis cache disabled: %v", err)
	}

	return &Orchestrator{
		St:         st,
		Cfg:        cfg,
		Client:     client,
		Dispatch:   dispatch,
		Notifier:   alerts.NewNotifier(cfg.AlertWebhook),
		Thresholds: alerts.ParseThresholds(cfg.AlertThresholdsJSON),
		Cache:      rdb,
		RunID:      uuid.New().String(),
	}, nil
}

func (o *Orchestrator) logf(format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{o.RunID}, args...)...)
}

// closingPolicy resolves cfg.ClosingLinePolicy to a grading.ClosingPolicy,
// defaulting to latest_pregame for any unrecognized value rather than
// failing the run over a typo'd environment variable.
func (o *Orchestrator) closingPolicy() grading.ClosingPolicy {
	switch o.Cfg.ClosingLinePolicy {
	case string(grading.ClosingPolicyBestAvailable):
		return grading.ClosingPolicyBestAvailable
	default:
		return grading.ClosingPolicyLatestPregame
	}
}

// lineupSensitiveMarkets returns every market code whose spec marks
// LineupRequired, the set rescoreOnLineup restricts itself to.
func lineupSensitiveMarkets() []string {
	var out []string
	for _, spec := range marketspec.DefaultSpecs() {
		if spec.LineupRequirement == marketspec.LineupRequired {
			out = append(out, spec.Market)
		}
	}
	return out
}

// SendAlertsForMarket exposes sendAlertsForMarket to callers outside this
// package (cmd/mlbedge's `score --all-markets --send-alerts` path, which
// has no other reason to reach into this package's alert filtering).
func (o *Orchestrator) SendAlertsForMarket(ctx context.Context, gameDate, market string, selections []models.ScoredSelection) {
	o.sendAlertsForMarket(ctx, gameDate, market, selections)
}

// sendAlertsForMarket filters and posts one market's scored selections,
// no-op when the caller didn't request alerts.
func (o *Orchestrator) sendAlertsForMarket(ctx context.Context, gameDate, market string, selections []models.ScoredSelection) {
	filtered := alerts.FilterForAlert(selections, o.Thresholds, market)
	if len(filtered) == 0 {
		return
	}
	payload := alerts.BuildPayload(gameDate, market, filtered)
	if err := o.Notifier.Send(ctx, payload); err != nil {
		o.logf("❌ alert send failed for %s %s: %v", gameDate, market, err)
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
