package scoring

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/marketspec"
	"github.com/fortuna/mlbedge/internal/models"
)

func f(x float64) *float64 { return &x }

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5,0,10) = %v, want 5", got)
	}
	if got := Clamp(-5, 0, 10); got != 0 {
		t.Errorf("Clamp(-5,0,10) = %v, want 0", got)
	}
	if got := Clamp(15, 0, 10); got != 10 {
		t.Errorf("Clamp(15,0,10) = %v, want 10", got)
	}
}

func TestFactorScoreLinearNilIsNeutral(t *testing.T) {
	if got := FactorScoreLinear(nil, 0, 100); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestFactorScoreLinearScalesAndClamps(t *testing.T) {
	if got := FactorScoreLinear(f(50), 0, 100); got != 50.0 {
		t.Errorf("midpoint got %v, want 50", got)
	}
	if got := FactorScoreLinear(f(200), 0, 100); got != 100.0 {
		t.Errorf("above range got %v, want 100", got)
	}
	if got := FactorScoreLinear(f(-50), 0, 100); got != 0.0 {
		t.Errorf("below range got %v, want 0", got)
	}
}

func TestFactorScoreRelativeSlopeNilIsNeutral(t *testing.T) {
	if got := FactorScoreRelativeSlope(nil, 10, 1, 10, 20, 80); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestFactorScoreRelativeSlopeUsesFloorWhenBaselineSmall(t *testing.T) {
	got := FactorScoreRelativeSlope(f(1.0), 0.1, 1.0, 100, 0, 100)
	want := Clamp(50.0+(1.0/1.0)*100, 0, 100)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlatoonAdvantageNeutralOnMissingSplit(t *testing.T) {
	if got := PlatoonAdvantage(nil, f(0.3)); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
	if got := PlatoonAdvantage(f(0.3), nil); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestPlatoonAdvantageNeutralOnNonPositiveAverage(t *testing.T) {
	if got := PlatoonAdvantage(f(-0.1), f(-0.1)); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestPlatoonAdvantageFavorsHigherSplit(t *testing.T) {
	got := PlatoonAdvantage(f(0.4), f(0.2))
	if got <= 50.0 {
		t.Errorf("expected above-neutral score for stronger split, got %v", got)
	}
	if got > 80.0 {
		t.Errorf("expected cap at 80, got %v", got)
	}
}

func TestPercentileScoreEmptyPopulation(t *testing.T) {
	if got := PercentileScore(nil, 10); got != 50.0 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestPercentileScoreCountsStrictlyBelow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := PercentileScore(values, 3); got != 40.0 {
		t.Errorf("got %v, want 40", got)
	}
	if got := PercentileScore(values, 100); got != 100.0 {
		t.Errorf("got %v, want 100", got)
	}
	if got := PercentileScore(values, -100); got != 0.0 {
		t.Errorf("got %v, want 0", got)
	}
}

func defaultSpec() marketspec.Spec {
	return marketspec.Spec{Market: "TEST", ThresholdPreset: marketspec.PresetDefault}
}

func TestAssignSignalBet(t *testing.T) {
	got := AssignSignal(defaultSpec(), 80, f(6.0))
	if got != models.SignalBet {
		t.Errorf("got %v, want BET", got)
	}
}

func TestAssignSignalLeanWhenScoreHighButEdgeTooLow(t *testing.T) {
	got := AssignSignal(defaultSpec(), 80, f(3.0))
	if got != models.SignalLean {
		t.Errorf("got %v, want LEAN", got)
	}
}

func TestAssignSignalFadeOnLowScore(t *testing.T) {
	got := AssignSignal(defaultSpec(), 20, f(-5.0))
	if got != models.SignalFade {
		t.Errorf("got %v, want FADE", got)
	}
}

func TestAssignSignalSkipDefault(t *testing.T) {
	got := AssignSignal(defaultSpec(), 50, f(0))
	if got != models.SignalSkip {
		t.Errorf("got %v, want SKIP", got)
	}
}

// TestAssignSignalSkipWhenOnlyScoreIsLow mirrors spec.md §4.5's "FADE
// mirrors BET on the negative side": both score and edge must clear the
// fade bar, so a low score riding a fair/good price is SKIP, not FADE.
func TestAssignSignalSkipWhenOnlyScoreIsLow(t *testing.T) {
	got := AssignSignal(defaultSpec(), 20, f(0))
	if got != models.SignalSkip {
		t.Errorf("got %v, want SKIP (edge 0 does not clear FadeMaxEdgePct)", got)
	}
}

// TestAssignSignalSkipWhenOnlyEdgeIsLow mirrors the other half of the same
// rule: a strong score with merely a poor price is SKIP/LEAN territory,
// never FADE.
func TestAssignSignalSkipWhenOnlyEdgeIsLow(t *testing.T) {
	got := AssignSignal(defaultSpec(), 80, f(-5.0))
	if got != models.SignalSkip {
		t.Errorf("got %v, want SKIP (score 80 does not clear FadeMaxScore)", got)
	}
}

func TestAssignSignalNilEdgeTreatedAsZero(t *testing.T) {
	got := AssignSignal(defaultSpec(), 80, nil)
	if got != models.SignalSkip {
		t.Errorf("got %v, want SKIP (edge defaults to 0, below every min-edge threshold)", got)
	}
}

// TestConfidenceBand exercises spec.md §4.5's exact algorithm: base
// HIGH≥78, MEDIUM≥60, else LOW; degrade HIGH to MEDIUM at 2+ risk flags;
// degrade MEDIUM to LOW at 3+.
func TestConfidenceBand(t *testing.T) {
	cases := []struct {
		score         float64
		riskFlagCount int
		want          models.ConfidenceBand
	}{
		{80, 0, models.BandHigh},
		{78, 0, models.BandHigh},
		{77.9, 0, models.BandMedium},
		{80, 1, models.BandHigh},   // below the 2-flag degrade threshold
		{80, 2, models.BandMedium}, // HIGH degrades one step at 2 flags
		{60, 1, models.BandMedium},
		{60, 2, models.BandMedium}, // below the 3-flag degrade threshold
		{60, 3, models.BandLow},    // MEDIUM degrades one step at 3 flags
		{59.9, 0, models.BandLow},
		{10, 0, models.BandLow},
	}
	for _, c := range cases {
		if got := ConfidenceBand(c.score, c.riskFlagCount); got != c.want {
			t.Errorf("ConfidenceBand(%v,%v) = %v, want %v", c.score, c.riskFlagCount, got, c.want)
		}
	}
}

func TestRiskFlags(t *testing.T) {
	got := RiskFlags([]string{"batter_window_stats"}, true, true)
	want := []string{"missing:batter_window_stats", "lineup_pending", "weather_pending"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRiskFlagsEmptyWhenNothingMissing(t *testing.T) {
	got := RiskFlags(nil, false, false)
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestVisibilityTier(t *testing.T) {
	if got := VisibilityTier(models.SignalBet, models.BandHigh); got != models.TierFree {
		t.Errorf("got %v, want FREE", got)
	}
	if got := VisibilityTier(models.SignalBet, models.BandMedium); got != models.TierPro {
		t.Errorf("got %v, want PRO", got)
	}
	if got := VisibilityTier(models.SignalLean, models.BandHigh); got != models.TierPro {
		t.Errorf("got %v, want PRO", got)
	}
}

func TestBuildReasonsRanksByDeviationFromNeutral(t *testing.T) {
	factors := map[string]float64{
		"a": 60, // deviation 10
		"b": 90, // deviation 40
		"c": 45, // deviation 5
	}
	got := BuildReasons(factors, 2)
	if len(got) != 2 {
		t.Fatalf("got %d reasons, want 2", len(got))
	}
	if got[0] != "b favors" {
		t.Errorf("got[0] = %q, want %q", got[0], "b favors")
	}
	if got[1] != "a favors" {
		t.Errorf("got[1] = %q, want %q", got[1], "a favors")
	}
}

func TestBuildReasonsDirectionAgainst(t *testing.T) {
	got := BuildReasons(map[string]float64{"x": 10}, 1)
	if got[0] != "x against" {
		t.Errorf("got %q, want %q", got[0], "x against")
	}
}

func TestBuildReasonsTopKClampedToAvailable(t *testing.T) {
	got := BuildReasons(map[string]float64{"a": 10}, 5)
	if len(got) != 1 {
		t.Errorf("got %d reasons, want 1", len(got))
	}
}

func TestSigmoidMidpoint(t *testing.T) {
	if got := Sigmoid(0); got != 0.5 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
}

func TestSigmoidMonotonic(t *testing.T) {
	if Sigmoid(1) <= Sigmoid(0) {
		t.Error("expected Sigmoid to increase with x")
	}
	if Sigmoid(-1) >= Sigmoid(0) {
		t.Error("expected Sigmoid to decrease for negative x")
	}
}
