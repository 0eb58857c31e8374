package marketspec

import "testing"

func TestNewRegistryHasAllElevenMarkets(t *testing.T) {
	r := NewRegistry()
	markets := r.ListMarkets()
	if len(markets) != 11 {
		t.Fatalf("expected 11 markets, got %d: %v", len(markets), markets)
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("hr"); !ok {
		t.Fatal("expected lowercase lookup to find HR spec")
	}
}

func TestHRUsesConservativeThresholds(t *testing.T) {
	r := NewRegistry()
	spec, ok := r.Get("HR")
	if !ok {
		t.Fatal("HR spec not found")
	}
	if spec.ThresholdPreset != PresetConservative {
		t.Fatalf("expected HR to use conservative thresholds, got %s", spec.ThresholdPreset)
	}
	th := spec.Thresholds()
	if th.BetMinScore != 78.0 {
		t.Fatalf("expected conservative BetMinScore 78.0, got %v", th.BetMinScore)
	}
}

func TestHITS1PRequiresLineup(t *testing.T) {
	r := NewRegistry()
	spec, _ := r.Get("HITS_1P")
	if spec.LineupRequirement != LineupRequired {
		t.Fatalf("expected HITS_1P to require lineup, got %s", spec.LineupRequirement)
	}
}

func TestRegisterDuplicateMarketErrors(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Spec{Market: "HR"})
	if err == nil {
		t.Fatal("expected error re-registering HR")
	}
}
