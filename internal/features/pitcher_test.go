package features

import (
	"math"
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func TestStarterRoleConfidenceThresholds(t *testing.T) {
	tests := []struct {
		name        string
		w14, w30    models.PitcherWindowStats
		has14, has30 bool
		want        float64
	}{
		{"no windows at all", models.PitcherWindowStats{}, models.PitcherWindowStats{}, false, false, 0.2},
		{"30d heavy workload", models.PitcherWindowStats{}, models.PitcherWindowStats{BattersFaced: 85}, false, true, 0.9},
		{"30d moderate workload", models.PitcherWindowStats{}, models.PitcherWindowStats{BattersFaced: 55}, false, true, 0.75},
		{"30d light workload", models.PitcherWindowStats{}, models.PitcherWindowStats{BattersFaced: 25}, false, true, 0.55},
		{"30d thin workload", models.PitcherWindowStats{}, models.PitcherWindowStats{BattersFaced: 5}, false, true, 0.35},
		{"14d only heavy", models.PitcherWindowStats{BattersFaced: 45}, models.PitcherWindowStats{}, true, false, 0.7},
		{"14d only moderate", models.PitcherWindowStats{BattersFaced: 25}, models.PitcherWindowStats{}, true, false, 0.5},
		{"14d only thin", models.PitcherWindowStats{BattersFaced: 5}, models.PitcherWindowStats{}, true, false, 0.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := starterRoleConfidence(tt.w14, tt.w30, tt.has14, tt.has30)
			if got != tt.want {
				t.Errorf("starterRoleConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPitcherWindowRateBelowMinBFIsNull(t *testing.T) {
	if got := pitcherWindowRate(minBFForRates-1, 3); got != nil {
		t.Fatalf("expected nil below minBFForRates, got %v", *got)
	}
}

func TestPitcherWindowRateAtMinBFComputes(t *testing.T) {
	got := pitcherWindowRate(minBFForRates, 5)
	if got == nil || math.Abs(*got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestHR9ConvertsOutsToNineInnings(t *testing.T) {
	got := hr9(27, 1)
	if got == nil || math.Abs(*got-1.0) > 1e-9 {
		t.Fatalf("expected HR9 of 1.0 over 27 outs with 1 HR, got %v", got)
	}
}

func TestHR9NullOnZeroOuts(t *testing.T) {
	if got := hr9(0, 0); got != nil {
		t.Fatalf("expected nil on zero outs recorded, got %v", *got)
	}
}

func TestHrFlyBallRateNullOnZeroFlyBalls(t *testing.T) {
	if got := hrFlyBallRate(0, 0); got != nil {
		t.Fatalf("expected nil on zero fly balls, got %v", *got)
	}
}

func TestHR9ByBFBelowFloorIsNull(t *testing.T) {
	if got := hr9ByBF(minTTOBFForDecay-1, 2); got != nil {
		t.Fatalf("expected nil below minTTOBFForDecay, got %v", *got)
	}
}

func TestHR9ByBFApproximatesPerNineBatters(t *testing.T) {
	got := hr9ByBF(minTTOBFForDecay, 2)
	want := 2.0 / float64(minTTOBFForDecay) * 4.5
	if got == nil || math.Abs(*got-want) > 1e-9 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBuildPitcherRowTTOMetricsRequireBothBucketsAboveFloor(t *testing.T) {
	w30 := models.PitcherWindowStats{
		BattersFaced: 100, OutsRecorded: 81,
		TTOBattersFaced: [3]int{minTTOBFForDecay - 1, 20, 20},
	}
	windows := map[int]models.PitcherWindowStats{30: w30}
	row := buildPitcherRow("2024-07-15", 7, probableStarter{TeamAbbr: "SEA"}, windows)
	if row.TTOKDecayPct != nil || row.TTOHRIncreasePct != nil || row.TTOEnduranceScore != nil {
		t.Fatal("expected TTO metrics to stay nil when the 1st-time-through bucket is below the BF floor")
	}
}

func TestBuildPitcherRowTTOEnduranceClampedToOne(t *testing.T) {
	w30 := models.PitcherWindowStats{
		BattersFaced: 100, OutsRecorded: 81,
		TTOBattersFaced: [3]int{10, 15, 30},
		TTOStrikeouts:   [3]int{3, 4, 5},
		TTOHomeRuns:     [3]int{0, 1, 1},
	}
	windows := map[int]models.PitcherWindowStats{30: w30}
	row := buildPitcherRow("2024-07-15", 7, probableStarter{TeamAbbr: "SEA"}, windows)
	if row.TTOEnduranceScore == nil {
		t.Fatal("expected TTO endurance score to be computed")
	}
	if *row.TTOEnduranceScore != 1.0 {
		t.Fatalf("expected endurance score clamped to 1.0, got %v", *row.TTOEnduranceScore)
	}
}

func TestBuildPitcherRowLeavesWhiffChaseAlwaysNull(t *testing.T) {
	w14 := models.PitcherWindowStats{BattersFaced: 50, OutsRecorded: 40}
	windows := map[int]models.PitcherWindowStats{14: w14}
	row := buildPitcherRow("2024-07-15", 7, probableStarter{TeamAbbr: "SEA"}, windows)
	if row.WhiffPct14 != nil || row.WhiffPct30 != nil || row.ChasePct14 != nil || row.ChasePct30 != nil {
		t.Fatal("expected whiff/chase fields to stay null: no swing-level tracking exists in this schema")
	}
}
