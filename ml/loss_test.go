package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoss(t *testing.T) {
	for _, name := range []string{"mse", "mean_squared_error", "categorical_crossentropy"} {
		_, err := GetLoss(name)
		assert.NoError(t, err, name)
	}
	_, err := GetLoss("hinge")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMSE(t *testing.T) {
	pred := NewMatrixFromSlice(2, 2, []float64{1, 2, 3, 4})
	truth := NewMatrixFromSlice(2, 2, []float64{1, 0, 3, 2})

	// Two elements off by 2 each: (4+4)/4 = 2.
	assert.InDelta(t, 2.0, MSE{}.ComputeLoss(nil, pred, truth), 1e-12)

	grad := MSE{}.Backward(pred, truth)
	assert.InDeltaSlice(t, []float64{0, 1, 0, 1}, grad.Data(), 1e-12)
}

func TestCrossEntropyPerfectPrediction(t *testing.T) {
	pred := NewMatrixFromSlice(2, 3, []float64{1, 0, 0, 0, 1, 0})
	truth := NewMatrixFromSlice(2, 3, []float64{1, 0, 0, 0, 1, 0})
	assert.InDelta(t, 0.0, CrossEntropy{}.ComputeLoss(nil, pred, truth), 1e-12)
}

func TestCrossEntropyUniformPrediction(t *testing.T) {
	third := 1.0 / 3.0
	pred := NewMatrixFromSlice(1, 3, []float64{third, third, third})
	truth := NewMatrixFromSlice(1, 3, []float64{0, 1, 0})
	assert.InDelta(t, -math.Log(third), CrossEntropy{}.ComputeLoss(nil, pred, truth), 1e-9)
}

func TestCrossEntropyHandlesZeroPrediction(t *testing.T) {
	pred := NewMatrixFromSlice(1, 2, []float64{0, 1})
	truth := NewMatrixFromSlice(1, 2, []float64{1, 0})

	loss := CrossEntropy{}.ComputeLoss(nil, pred, truth)
	require.False(t, math.IsInf(loss, 0))
	require.False(t, math.IsNaN(loss))

	grad := CrossEntropy{}.Backward(pred, truth)
	for _, v := range grad.Data() {
		assert.False(t, math.IsInf(v, 0))
		assert.False(t, math.IsNaN(v))
	}
}

func TestCrossEntropyBackward(t *testing.T) {
	pred := NewMatrixFromSlice(1, 2, []float64{0.8, 0.2})
	truth := NewMatrixFromSlice(1, 2, []float64{1, 0})

	grad := CrossEntropy{}.Backward(pred, truth)
	assert.InDelta(t, -1.0/0.8, grad.At(0, 0), 1e-9)
	assert.InDelta(t, 0.0, grad.At(0, 1), 1e-12)
}
