package features

import (
	"math"
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func TestSafeDiv(t *testing.T) {
	if got := safeDiv(10, 0); got != nil {
		t.Fatalf("expected nil on zero denominator, got %v", *got)
	}
	got := safeDiv(3, 4)
	if got == nil || math.Abs(*got-0.75) > 1e-9 {
		t.Fatalf("expected 0.75, got %v", got)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n, start int
		want     string
	}{
		{1, 1, "$1"},
		{3, 1, "$1, $2, $3"},
		{2, 5, "$5, $6"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n, tt.start); got != tt.want {
			t.Errorf("placeholders(%d, %d) = %q, want %q", tt.n, tt.start, got, tt.want)
		}
	}
}

func TestAsOfBoundsRejectsMalformedDate(t *testing.T) {
	if _, _, err := asOfBounds("not-a-date", 3); err == nil {
		t.Fatal("expected error for malformed game date")
	}
}

func TestAsOfBoundsUpperEqualsGameDate(t *testing.T) {
	lower, upper, err := asOfBounds("2024-07-15", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upper != "2024-07-15" {
		t.Fatalf("expected upper to equal game date, got %q", upper)
	}
	if lower >= upper {
		t.Fatalf("expected lower %q to precede upper %q", lower, upper)
	}
}

func TestScalePct(t *testing.T) {
	if got := scalePct(nil); got != nil {
		t.Fatalf("expected nil passthrough, got %v", *got)
	}
	r := 0.25
	got := scalePct(&r)
	if got == nil || *got != 25.0 {
		t.Fatalf("expected 25.0, got %v", got)
	}
}

func TestFirstNonNil(t *testing.T) {
	a, b := 1.0, 2.0
	if got := firstNonNil(nil, nil, &b); got != &b {
		t.Fatalf("expected third value, got %v", got)
	}
	if got := firstNonNil(&a, &b); got != &a {
		t.Fatalf("expected first value, got %v", got)
	}
	if got := firstNonNil(nil, nil); got != nil {
		t.Fatalf("expected nil when all inputs nil, got %v", *got)
	}
}

func TestWindowRateBelowMinPAIsNull(t *testing.T) {
	w := models.BatterWindowStats{PlateAppearances: minPAForRates - 1, Hits: 3}
	if got := windowRate(w, float64(w.Hits)); got != nil {
		t.Fatalf("expected nil below minPAForRates, got %v", *got)
	}
}

func TestWindowRateAtOrAboveMinPAComputes(t *testing.T) {
	w := models.BatterWindowStats{PlateAppearances: minPAForRates, Hits: 5}
	got := windowRate(w, float64(w.Hits))
	if got == nil {
		t.Fatal("expected a computed rate")
	}
	want := 5.0 / float64(minPAForRates)
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("got %v want %v", *got, want)
	}
}

func TestWindowBattedBallRateDividesByBattedBallsNotPA(t *testing.T) {
	w := models.BatterWindowStats{PlateAppearances: minPAForRates, BattedBalls: 20, BarrelCount: 5}
	got := windowBattedBallRate(w, float64(w.BarrelCount))
	if got == nil || math.Abs(*got-0.25) > 1e-9 {
		t.Fatalf("expected 0.25, got %v", got)
	}
}

func TestDecodeBattingOrderRejectsMalformedJSON(t *testing.T) {
	if _, err := decodeBattingOrder("{not json"); err == nil {
		t.Fatal("expected error for malformed batting_order_json")
	}
}

func TestDecodeBattingOrderParsesSlots(t *testing.T) {
	slots, err := decodeBattingOrder(`[{"slot":1,"player_id":100,"position":"CF"},{"slot":2,"player_id":101,"position":"2B"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].PlayerID != 100 || slots[0].Slot != 1 {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
}

func TestBuildBatterRowDerivesISOFromSLGMinusBA(t *testing.T) {
	w30 := models.BatterWindowStats{
		PlateAppearances: 100, AtBats: 90, Hits: 30, TotalBases: 50,
	}
	windows := map[int]models.BatterWindowStats{30: w30}
	row := buildBatterRow("2024-07-15", 42, "NYY", windows)

	if row.BA30 == nil || row.SLG30 == nil || row.ISO30 == nil {
		t.Fatal("expected BA30/SLG30/ISO30 to be populated")
	}
	want := *row.SLG30 - *row.BA30
	if math.Abs(*row.ISO30-want) > 1e-9 {
		t.Fatalf("ISO30 = %v, want SLG30-BA30 = %v", *row.ISO30, want)
	}
	if row.PlayerID != 42 || row.TeamAbbr != "NYY" || row.GameDate != "2024-07-15" {
		t.Fatalf("unexpected row identity fields: %+v", row)
	}
}

func TestBuildBatterRowLeavesMissingWindowsNull(t *testing.T) {
	row := buildBatterRow("2024-07-15", 1, "BOS", map[int]models.BatterWindowStats{})
	if row.BA7 != nil || row.BA14 != nil || row.BA30 != nil {
		t.Fatal("expected all windows to be null when no window rows exist")
	}
	if row.PA7 != 0 || row.PA14 != 0 || row.PA30 != 0 {
		t.Fatal("expected PA counts to stay zero when no window rows exist")
	}
}

func TestBuildBatterRowHotColdDeltaRequiresBothWindows(t *testing.T) {
	w7 := models.BatterWindowStats{PlateAppearances: minPAForRates, AtBats: minPAForRates, Hits: 6, TotalBases: 9}
	row := buildBatterRow("2024-07-15", 1, "BOS", map[int]models.BatterWindowStats{7: w7})
	if row.HotColdISODelta != nil || row.HotColdHitRateDelta != nil {
		t.Fatal("expected hot/cold deltas to stay nil without a 30d window to compare against")
	}
}
