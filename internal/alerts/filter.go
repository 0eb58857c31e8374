// Package alerts builds and sends the post-scoring webhook alert spec.md §6
// describes: date, market, top-K scored rows passing per-market thresholds,
// and a dashboard link placeholder. Grounded on alert-service's
// filter/notifier split, generalized from a single global threshold pair
// (min edge %, max data age) to per-market {signals, min_score, max_rows}
// thresholds keyed by market code.
package alerts

import (
	"encoding/json"
	"sort"

	"github.com/fortuna/mlbedge/internal/models"
)

// Thresholds is one market's alert gate, mirroring
// alert-service/internal/filter.Filter's two cutoffs generalized to the
// {signals, min_score, max_rows} shape spec.md §6 names for
// ALERT_THRESHOLDS_JSON.
type Thresholds struct {
	Signals  []string `json:"signals"`
	MinScore float64  `json:"min_score"`
	MaxRows  int      `json:"max_rows"`
}

// defaultThresholds applies to any market with no entry in
// ALERT_THRESHOLDS_JSON: BET or LEAN signals only, a score of at least 60, capped at 20
// rows — conservative enough that an unconfigured market never floods a
// webhook.
var defaultThresholds = Thresholds{
	Signals:  []string{"BET", "LEAN"},
	MinScore: 60.0,
	MaxRows:  20,
}

// ParseThresholds decodes ALERT_THRESHOLDS_JSON, a map of market code to
// Thresholds. An empty or unparseable string yields an empty map, so every
// market falls back to defaultThresholds rather than failing the run.
func ParseThresholds(raw string) map[string]Thresholds {
	if raw == "" {
		return map[string]Thresholds{}
	}
	var parsed map[string]Thresholds
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return map[string]Thresholds{}
	}
	return parsed
}

func thresholdsFor(byMarket map[string]Thresholds, market string) Thresholds {
	if t, ok := byMarket[market]; ok {
		return t
	}
	return defaultThresholds
}

func signalAllowed(signals []string, signal models.Signal) bool {
	for _, s := range signals {
		if s == string(signal) {
			return true
		}
	}
	return false
}

// FilterForAlert narrows a market's scored selections down to the rows
// worth alerting on: signal must be in the market's allowed set, model
// score must clear min_score, and the result is capped at max_rows, highest
// score first — alert-service/internal/filter.Filter.FilterOpportunities'
// threshold-then-truncate shape, with the truncation step added since this
// port's thresholds also carry a row cap the original's did not.
func FilterForAlert(selections []models.ScoredSelection, byMarket map[string]Thresholds, market string) []models.ScoredSelection {
	t := thresholdsFor(byMarket, market)

	var kept []models.ScoredSelection
	for _, sel := range selections {
		if !signalAllowed(t.Signals, sel.Signal) {
			continue
		}
		if sel.ModelScore < t.MinScore {
			continue
		}
		kept = append(kept, sel)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ModelScore > kept[j].ModelScore
	})

	if t.MaxRows > 0 && len(kept) > t.MaxRows {
		kept = kept[:t.MaxRows]
	}
	return kept
}
