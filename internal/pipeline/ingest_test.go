package pipeline

import "testing"

func TestBoolOrFalse(t *testing.T) {
	yes := true
	if !boolOrFalse(&yes) {
		t.Error("expected true")
	}
	if boolOrFalse(nil) {
		t.Error("expected false for nil")
	}
}
