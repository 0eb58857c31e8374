package oddsmath_test

import (
	"math"
	"testing"

	"github.com/fortuna/mlbedge/internal/oddsmath"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"positive +100", 100, 2.0},
		{"positive +150", 150, 2.5},
		{"positive +320", 320, 4.2},
		{"negative -110", -110, 1.909090909},
		{"negative -150", -150, 1.666666667},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.AmericanToDecimal(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("AmericanToDecimal(%d) = %f, want %f", tt.american, got, tt.want)
			}
		})
	}
}

func TestAmericanToDecimalRejectsZero(t *testing.T) {
	if _, err := oddsmath.AmericanToDecimal(0); err == nil {
		t.Fatal("expected error for american odds of 0")
	}
}

func TestAmericanRoundTripIsIdentity(t *testing.T) {
	for _, american := range []int{100, 150, 200, 320, -110, -150, -200, -340} {
		decimal, err := oddsmath.AmericanToDecimal(american)
		if err != nil {
			t.Fatalf("AmericanToDecimal(%d): %v", american, err)
		}
		back, err := oddsmath.DecimalToAmerican(decimal)
		if err != nil {
			t.Fatalf("DecimalToAmerican(%f): %v", decimal, err)
		}
		if back != american {
			t.Errorf("round trip %d -> %f -> %d, want %d", american, decimal, back, american)
		}
	}
}

func TestAmericanToImpliedIsInOpenUnitInterval(t *testing.T) {
	for _, american := range []int{100, 150, 320, -110, -340} {
		p, err := oddsmath.AmericanToImplied(american)
		if err != nil {
			t.Fatalf("AmericanToImplied(%d): %v", american, err)
		}
		if p <= 0 || p >= 1 {
			t.Errorf("AmericanToImplied(%d) = %f, want value in (0,1)", american, p)
		}
	}
}

func TestAmericanToImpliedScenario6BestAvailable(t *testing.T) {
	// Three books price HR YES at +320, +340, +300: the lowest implied
	// probability (highest payoff) is +340.
	prices := []int{320, 340, 300}
	best := -1
	bestProb := math.MaxFloat64
	for i, p := range prices {
		implied, err := oddsmath.AmericanToImplied(p)
		if err != nil {
			t.Fatalf("AmericanToImplied(%d): %v", p, err)
		}
		if implied < bestProb {
			bestProb = implied
			best = i
		}
	}
	if prices[best] != 340 {
		t.Fatalf("expected best available price to be +340, got %+d", prices[best])
	}
	if math.Abs(bestProb-0.2273) > 0.001 {
		t.Errorf("implied probability for +340 = %f, want ~0.2273", bestProb)
	}
}
