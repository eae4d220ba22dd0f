package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleDispatchesByStrategy(t *testing.T) {
	probs := []float64{0, 0.9, 0.1}

	assert.Equal(t, 1, Sample(probs, SamplingGreedy, 0))
	assert.Equal(t, 1, Sample(probs, "nonsense", 0))
	for i := 0; i < 100; i++ {
		assert.Contains(t, []int{1, 2}, Sample(probs, SamplingUniform, 0))
		assert.Contains(t, []int{1, 2}, Sample(probs, SamplingTopK, 2))
	}
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.6, 0.1}))
	assert.Equal(t, 0, ArgMax([]float64{0.5, 0.5}))
	assert.Equal(t, 0, ArgMax([]float64{1}))
}

func TestMultinomialStaysInRange(t *testing.T) {
	probs := []float64{0.2, 0.3, 0.5}
	for i := 0; i < 1000; i++ {
		idx := Multinomial(probs)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 3)
	}
}

func TestMultinomialDegenerateDistribution(t *testing.T) {
	probs := []float64{0, 1, 0}
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, Multinomial(probs))
	}
}

func TestTopKRestrictsSupport(t *testing.T) {
	probs := []float64{0.05, 0.4, 0.05, 0.5}
	for i := 0; i < 1000; i++ {
		idx := TopK(probs, 2)
		assert.Contains(t, []int{1, 3}, idx)
	}
}

func TestTopKInvalidKFallsBack(t *testing.T) {
	probs := []float64{0, 0, 1}
	assert.Equal(t, 2, TopK(probs, 0))
	assert.Equal(t, 2, TopK(probs, 10))
}
