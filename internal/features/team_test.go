package features

import (
	"math"
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func TestAggregateTeamOffenseSumsRawCounts(t *testing.T) {
	rows := []models.BatterWindowStats{
		{PlateAppearances: 50, AtBats: 45, Hits: 15, TotalBases: 25, Walks: 5, HomeRuns: 2, Strikeouts: 10},
		{PlateAppearances: 30, AtBats: 27, Hits: 9, TotalBases: 14, Walks: 3, HomeRuns: 1, Strikeouts: 8},
	}
	agg := aggregateTeamOffense(rows)

	wantBA := (15.0 + 9.0) / (45.0 + 27.0)
	if agg.BA == nil || math.Abs(*agg.BA-wantBA) > 1e-9 {
		t.Fatalf("BA = %v, want %v", agg.BA, wantBA)
	}
	wantKPct := (10.0 + 8.0) / (50.0 + 30.0)
	if agg.KPct == nil || math.Abs(*agg.KPct-wantKPct) > 1e-9 {
		t.Fatalf("KPct = %v, want %v", agg.KPct, wantKPct)
	}
	wantISO := *agg.SLG - *agg.BA
	if agg.ISO == nil || math.Abs(*agg.ISO-wantISO) > 1e-9 {
		t.Fatalf("ISO = %v, want SLG-BA = %v", agg.ISO, wantISO)
	}
}

func TestAggregateTeamOffenseEmptyRosterYieldsAllNil(t *testing.T) {
	agg := aggregateTeamOffense(nil)
	if agg.BA != nil || agg.KPct != nil || agg.ISO != nil || agg.HRRate != nil {
		t.Fatal("expected every field nil when no roster window rows are available")
	}
}

func TestAggregateTeamBullpenClampsZeroBFToFloor(t *testing.T) {
	rows := []models.PitcherWindowStats{
		{BattersFaced: 0, OutsRecorded: 9, HomeRunsAllowed: 1},
	}
	agg := aggregateTeamBullpen(rows)
	if agg.HR9 == nil {
		t.Fatal("expected a computed HR9 even with zero batters faced recorded")
	}
}

func TestAggregateTeamBullpenEmptyYieldsAllNil(t *testing.T) {
	agg := aggregateTeamBullpen(nil)
	if agg.HR9 != nil || agg.WHIP != nil || agg.KPct != nil {
		t.Fatal("expected all-nil bullpen aggregate with no recent-starter windows")
	}
}

func TestAggregateTeamBullpenWeightsByBattersFaced(t *testing.T) {
	rows := []models.PitcherWindowStats{
		{BattersFaced: 100, OutsRecorded: 81, HomeRunsAllowed: 1, Strikeouts: 30, Walks: 8},
		{BattersFaced: 20, OutsRecorded: 16, HomeRunsAllowed: 3, Strikeouts: 4, Walks: 2},
	}
	agg := aggregateTeamBullpen(rows)
	if agg.KPct == nil {
		t.Fatal("expected a computed K%")
	}
	// The heavier-workload pitcher's K% (0.30) should dominate the weighted
	// average over the thinner sample's K% (0.20).
	if *agg.KPct <= 0.20 || *agg.KPct >= 0.30 {
		t.Fatalf("expected weighted K%% between the two inputs, skewed toward 0.30, got %v", *agg.KPct)
	}
}

func TestBullpenTierClassification(t *testing.T) {
	elite := 0.7
	k := 0.3
	tier := bullpenTier(&elite, &k)
	if tier == nil || *tier != "elite" {
		t.Fatalf("expected elite tier, got %v", tier)
	}

	weakHR9 := 2.0
	tier = bullpenTier(&weakHR9, &k)
	if tier == nil || *tier != "weak" {
		t.Fatalf("expected weak tier on high HR9, got %v", tier)
	}

	avgHR9, avgK := 1.0, 0.20
	tier = bullpenTier(&avgHR9, &avgK)
	if tier == nil || *tier != "average" {
		t.Fatalf("expected average tier, got %v", tier)
	}
}

func TestBullpenTierNilWithoutBothInputs(t *testing.T) {
	k := 0.25
	if got := bullpenTier(nil, &k); got != nil {
		t.Fatalf("expected nil tier without HR9, got %v", *got)
	}
	if got := bullpenTier(&k, nil); got != nil {
		t.Fatalf("expected nil tier without K%%, got %v", *got)
	}
}
