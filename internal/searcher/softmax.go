package searcher

import "math"

// softmax converts raw relevance scores into probabilities summing to
// 1.0 over the candidate set. The max is subtracted before
// exponentiating for numerical stability. A single input yields 1.0;
// an empty input yields an empty output.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
