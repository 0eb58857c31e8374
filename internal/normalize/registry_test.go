package normalize

import "testing"

func TestNewMarketKeyRegistryResolvesDefaults(t *testing.T) {
	r := NewMarketKeyRegistry()
	code, ok := r.Resolve("batter_home_runs")
	if !ok || code != "HR" {
		t.Fatalf("got (%q, %v), want (HR, true)", code, ok)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewMarketKeyRegistry()
	code, ok := r.Resolve("H2H")
	if !ok || code != "ML" {
		t.Fatalf("got (%q, %v), want (ML, true)", code, ok)
	}
}

func TestResolveUnknownKeyIsSkippedNotError(t *testing.T) {
	r := NewMarketKeyRegistry()
	_, ok := r.Resolve("player_points")
	if ok {
		t.Fatal("expected unknown key to resolve false")
	}
}

func TestRegisterDuplicateKeyErrors(t *testing.T) {
	r := NewMarketKeyRegistry()
	if err := r.Register("batter_home_runs", "HR"); err == nil {
		t.Fatal("expected error registering duplicate book key")
	}
}
