package alerts

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func sel(signal models.Signal, score float64) models.ScoredSelection {
	return models.ScoredSelection{Market: "HR", Signal: signal, ModelScore: score}
}

func TestParseThresholdsEmptyAndInvalid(t *testing.T) {
	if got := ParseThresholds(""); len(got) != 0 {
		t.Errorf("empty input: got %v, want empty map", got)
	}
	if got := ParseThresholds("not json"); len(got) != 0 {
		t.Errorf("invalid input: got %v, want empty map", got)
	}
}

func TestParseThresholdsValid(t *testing.T) {
	raw := `{"HR": {"signals": ["BET"], "min_score": 80, "max_rows": 5}}`
	parsed := ParseThresholds(raw)
	hr, ok := parsed["HR"]
	if !ok {
		t.Fatal("expected HR entry")
	}
	if hr.MinScore != 80 || hr.MaxRows != 5 || len(hr.Signals) != 1 || hr.Signals[0] != "BET" {
		t.Errorf("unexpected parse result: %+v", hr)
	}
}

func TestFilterForAlertDefaultThresholds(t *testing.T) {
	selections := []models.ScoredSelection{
		sel(models.SignalBet, 90),
		sel(models.SignalLean, 65),
		sel(models.SignalFade, 95), // excluded: signal not in default allow-list
		sel(models.SignalLean, 50), // excluded: below default min_score
	}
	got := FilterForAlert(selections, map[string]Thresholds{}, "HR")
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].ModelScore != 90 || got[1].ModelScore != 65 {
		t.Errorf("expected descending score order, got %+v", got)
	}
}

func TestFilterForAlertMaxRowsTruncates(t *testing.T) {
	selections := []models.ScoredSelection{
		sel(models.SignalBet, 99),
		sel(models.SignalBet, 95),
		sel(models.SignalBet, 90),
	}
	byMarket := map[string]Thresholds{
		"HR": {Signals: []string{"BET"}, MinScore: 0, MaxRows: 2},
	}
	got := FilterForAlert(selections, byMarket, "HR")
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].ModelScore != 99 || got[1].ModelScore != 95 {
		t.Errorf("expected top-2 by score, got %+v", got)
	}
}
