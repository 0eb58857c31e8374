// Package oddsmath provides pure odds-math conversions shared by the
// normalizer, scoring engine, and grader: American/decimal/implied-probability
// conversions and edge/no-vig helpers. Ported from this codebase's
// normalizer service and narrowed to the sign conventions spec.md defines.
package oddsmath

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds to decimal odds.
// +150 -> 2.50, -150 -> 1.67.
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return 1.0 + float64(american)/100.0, nil
	}
	return 1.0 + 100.0/float64(-american), nil
}

// DecimalToAmerican converts decimal odds back to American odds.
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal < 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be >= 1.0")
	}
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// AmericanToImplied converts American odds directly to implied probability,
// per spec.md §4.3: 100/(p+100) for p>0, else |p|/(|p|+100).
func AmericanToImplied(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}
	abs := float64(-american)
	return abs / (abs + 100.0), nil
}

// ImpliedToAmerican converts an implied probability back to American odds.
func ImpliedToAmerican(prob float64) (int, error) {
	if prob <= 0 || prob >= 1 {
		return 0, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	decimal := 1.0 / prob
	return DecimalToAmerican(decimal)
}

// DecimalToImplied converts decimal odds to implied probability.
func DecimalToImplied(decimal float64) (float64, error) {
	if decimal <= 0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 0")
	}
	return 1.0 / decimal, nil
}
