package ml

import (
	"fmt"
	"math"
)

// epsilon keeps log() away from zero probabilities.
const epsilon = 1e-15

// Loss scores predictions against labels and seeds the gradient chain.
type Loss interface {
	Name() string
	// ComputeLoss returns the scalar loss for a batch.
	ComputeLoss(m *Model, yPred, yTrue *Matrix) float64
	// Backward returns dLoss/dPred, same shape as yPred.
	Backward(yPred, yTrue *Matrix) *Matrix
}

var lossMap = map[string]func() Loss{
	"mse":                      func() Loss { return MSE{} },
	"mean_squared_error":       func() Loss { return MSE{} },
	"categorical_crossentropy": func() Loss { return CrossEntropy{} },
}

// GetLoss resolves a loss function by name.
func GetLoss(name string) (Loss, error) {
	fn, ok := lossMap[name]
	if !ok {
		return nil, &ConfigError{Op: "loss", Reason: fmt.Sprintf("unknown loss %q", name)}
	}
	return fn(), nil
}

// MSE is the mean squared error over every element of the batch.
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) ComputeLoss(m *Model, yPred, yTrue *Matrix) float64 {
	total := 0.0
	for i, p := range yPred.data {
		diff := p - yTrue.data[i]
		total += diff * diff
	}
	return total / float64(len(yPred.data))
}

func (MSE) Backward(yPred, yTrue *Matrix) *Matrix {
	grad := NewMatrix(yPred.rows, yPred.cols)
	scale := 2.0 / float64(len(yPred.data))
	for i, p := range yPred.data {
		grad.data[i] = scale * (p - yTrue.data[i])
	}
	return grad
}

// CrossEntropy is the categorical cross-entropy over one-hot labels. Pairs
// with a softmax output layer.
type CrossEntropy struct{}

func (CrossEntropy) Name() string { return "categorical_crossentropy" }

func (CrossEntropy) ComputeLoss(m *Model, yPred, yTrue *Matrix) float64 {
	total := 0.0
	for i, t := range yTrue.data {
		if t != 0 {
			total += -t * math.Log(yPred.data[i]+epsilon)
		}
	}
	return total / float64(yPred.rows)
}

func (CrossEntropy) Backward(yPred, yTrue *Matrix) *Matrix {
	grad := NewMatrix(yPred.rows, yPred.cols)
	scale := 1.0 / float64(yPred.rows)
	for i, t := range yTrue.data {
		if t != 0 {
			grad.data[i] = -scale * t / (yPred.data[i] + epsilon)
		}
	}
	return grad
}
