package ml

import (
	"math/rand"
	"sort"
)

// Sampling strategies over a probability row (one softmax output).
const (
	SamplingGreedy  = "greedy"
	SamplingUniform = "uniform"
	SamplingTopK    = "topk"
)

// Sample picks a class index from a probability row using the named
// strategy. Unknown strategies fall back to greedy.
func Sample(probs []float64, strategy string, k int) int {
	switch strategy {
	case SamplingUniform:
		return Multinomial(probs)
	case SamplingTopK:
		return TopK(probs, k)
	case SamplingGreedy:
		return ArgMax(probs)
	default:
		return ArgMax(probs)
	}
}

// ArgMax returns the index of the maximum value.
func ArgMax(probs []float64) int {
	maxProb := probs[0]
	maxIdx := 0
	for i, p := range probs {
		if p > maxProb {
			maxProb = p
			maxIdx = i
		}
	}
	return maxIdx
}

// Multinomial samples an index with probability proportional to its value.
func Multinomial(probs []float64) int {
	r := rand.Float64()
	cumulativeProb := 0.0
	for i, p := range probs {
		cumulativeProb += p
		if r < cumulativeProb {
			return i
		}
	}
	// Fallback in case of floating point inaccuracies, return the last index.
	return len(probs) - 1
}

// TopK zeroes out probabilities outside the K largest, renormalizes, and
// samples multinomial from the remainder.
func TopK(probs []float64, k int) int {
	numClasses := len(probs)
	if k <= 0 || k >= numClasses {
		// Invalid K falls back to standard multinomial sampling.
		return Multinomial(probs)
	}

	type probIndex struct {
		prob float64
		idx  int
	}
	indexedProbs := make([]probIndex, numClasses)
	for i, p := range probs {
		indexedProbs[i] = probIndex{prob: p, idx: i}
	}
	sort.Slice(indexedProbs, func(i, j int) bool {
		return indexedProbs[i].prob > indexedProbs[j].prob
	})

	topProbs := make([]float64, k)
	newSum := 0.0
	for i := 0; i < k; i++ {
		topProbs[i] = indexedProbs[i].prob
		newSum += topProbs[i]
	}
	if newSum == 0.0 {
		return Multinomial(probs)
	}
	for i := range topProbs {
		topProbs[i] /= newSum
	}

	return indexedProbs[Multinomial(topProbs)].idx
}
