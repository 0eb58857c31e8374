package oddsmath

import "fmt"

// OutputType mirrors marketspec.OutputType without importing it, to keep
// oddsmath dependency-free (it is used by both normalize and scoring).
type OutputType string

const (
	OutputProbability OutputType = "probability"
	OutputProjection  OutputType = "projection"
	OutputHybrid      OutputType = "hybrid"
)

// ComputeEdge implements spec.md §4.5's compute_edge: for probability markets,
// (model_prob - implied_prob) * 100; for projection markets,
// (projection - line) / |line| * 100, undefined (nil) when line is zero.
func ComputeEdge(outputType OutputType, modelProb, projection, line, impliedProb *float64) (edge *float64, logicRiskFlag string) {
	switch outputType {
	case OutputProbability:
		if modelProb == nil || impliedProb == nil {
			return nil, ""
		}
		v := (*modelProb - *impliedProb) * 100.0
		return &v, ""
	case OutputProjection:
		if projection == nil || line == nil {
			return nil, ""
		}
		if *line == 0 {
			return nil, "logic:line_zero"
		}
		v := (*projection - *line) / absFloat(*line) * 100.0
		return &v, ""
	case OutputHybrid:
		// Hybrid markets prefer probability edge when both model_prob and
		// implied_prob are present, else fall back to projection edge.
		if modelProb != nil && impliedProb != nil {
			v := (*modelProb - *impliedProb) * 100.0
			return &v, ""
		}
		if projection != nil && line != nil {
			if *line == 0 {
				return nil, "logic:line_zero"
			}
			v := (*projection - *line) / absFloat(*line) * 100.0
			return &v, ""
		}
		return nil, ""
	}
	return nil, ""
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RemoveVigMultiplicative normalizes two implied probabilities that sum above
// 1.0 (the standard two-way overround) back to fair probabilities summing to 1.
func RemoveVigMultiplicative(prob1, prob2 float64) (fair1, fair2 float64, err error) {
	if prob1 <= 0 || prob1 >= 1 || prob2 <= 0 || prob2 >= 1 {
		return 0, 0, fmt.Errorf("probabilities must be between 0 and 1")
	}
	total := prob1 + prob2
	if total <= 1.0 {
		return 0, 0, fmt.Errorf("no vig detected: probabilities sum to <= 1.0")
	}
	return prob1 / total, prob2 / total, nil
}
