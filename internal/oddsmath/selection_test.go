package oddsmath_test

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/oddsmath"
)

func TestSelectionKeyShapes(t *testing.T) {
	line := 6.5
	tests := []struct {
		name       string
		market     string
		entityKind string
		entityID   int64
		line       *float64
		side       string
		want       string
	}{
		{"HR yes/no", "HR", "player", 12345, nil, "YES", "HR|player:12345|YES"},
		{"K over/under", "K", "player", 678, &line, "OVER", "K|player:678|line:6.5|OVER"},
		{"ML home/away", "ML", "game", 9, nil, "HOME", "ML|game:9|HOME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := oddsmath.SelectionKey(tt.market, tt.entityKind, tt.entityID, tt.line, tt.side)
			if got != tt.want {
				t.Errorf("SelectionKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectionKeyRoundTrip(t *testing.T) {
	line := 6.5
	key := oddsmath.SelectionKey("K", "player", 678, &line, "OVER")
	market, entityKind, entityID, gotLine, side, err := oddsmath.ParseSelectionKey(key)
	if err != nil {
		t.Fatalf("ParseSelectionKey: %v", err)
	}
	if market != "K" || entityKind != "player" || entityID != 678 || side != "OVER" {
		t.Fatalf("unexpected parse: market=%s entityKind=%s entityID=%d side=%s", market, entityKind, entityID, side)
	}
	if gotLine == nil || *gotLine != 6.5 {
		t.Fatalf("expected line 6.5, got %v", gotLine)
	}
}
