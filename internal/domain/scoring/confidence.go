// Package scoring provides the auxiliary signal computations of the
// consensus engine: weighted confidence aggregation, intent similarity and
// out-of-scope detection statistics.
package scoring

// ConfidenceScorer aggregates independent validator scores into a single
// 0-100 confidence value using per-validator weights.
type ConfidenceScorer struct {
	weights map[string]float64
}

// DefaultWeights returns the default per-validator weights.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"intent":        0.30,
		"entity":        0.30,
		"semantic":      0.25,
		"response_time": 0.15,
	}
}

// NewConfidenceScorer creates a scorer with the given weights. Negative
// weights clamp to zero and the set is normalized to sum to 1.0; an all-zero
// set falls back to equal weights.
func NewConfidenceScorer(weights map[string]float64) *ConfidenceScorer {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	normalized := make(map[string]float64, len(weights))
	total := 0.0
	for name, w := range weights {
		if w < 0 {
			w = 0
		}
		normalized[name] = w
		total += w
	}

	if total == 0 {
		equal := 1.0 / float64(len(normalized))
		for name := range normalized {
			normalized[name] = equal
		}
	} else {
		for name := range normalized {
			normalized[name] /= total
		}
	}

	return &ConfidenceScorer{weights: normalized}
}

// Calculate returns the weighted average of the provided scores over the
// intersection with the configured validators, scaled to [0,100]. Missing
// validators are excluded rather than redistributed: the average is taken
// only over present weights. Empty input or an empty intersection yields 0.
func (s *ConfidenceScorer) Calculate(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	weighted := 0.0
	weightSum := 0.0
	for name, score := range scores {
		w, ok := s.weights[name]
		if !ok {
			continue
		}
		weighted += clamp01(score) * w
		weightSum += w
	}

	if weightSum == 0 {
		return 0
	}
	return weighted / weightSum * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
