package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActivation(t *testing.T) {
	for _, name := range []string{"linear", "relu", "sigmoid", "tanh", "softmax"} {
		act, err := GetActivation(name)
		require.NoError(t, err)
		assert.Equal(t, name, act.Name())
	}

	_, err := GetActivation("swish")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	z := NewMatrixFromSlice(2, 3, []float64{
		1, 2, 3,
		-100, 0, 100,
	})
	s := Softmax{}.Apply(z)

	for i := 0; i < 2; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			v := s.At(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
	// The original input must survive Apply.
	assert.Equal(t, 1.0, z.At(0, 0))
}

func TestSoftmaxJacobianMatchesAnalytic(t *testing.T) {
	z := NewMatrixFromSlice(1, 3, []float64{0.2, -0.4, 1.1})
	s := Softmax{}.Apply(z)
	jac := Softmax{}.Jacobian(z)

	n := 3
	require.Len(t, jac, n*n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			want := -s.At(0, k) * s.At(0, j)
			if k == j {
				want = s.At(0, k) * (1.0 - s.At(0, j))
			}
			assert.InDelta(t, want, jac[k*n+j], 1e-12)
		}
	}
}

func TestSigmoidGradient(t *testing.T) {
	z := NewMatrixFromSlice(1, 2, []float64{0, 2})
	g := Sigmoid{}.Gradient(z)

	// At z=0 the sigmoid derivative peaks at 0.25.
	assert.InDelta(t, 0.25, g.At(0, 0), 1e-12)

	s := 1.0 / (1.0 + math.Exp(-2.0))
	assert.InDelta(t, s*(1.0-s), g.At(0, 1), 1e-12)
}

func TestReluGradient(t *testing.T) {
	z := NewMatrixFromSlice(1, 4, []float64{-1, 0, 0.5, 3})
	g := ReLU{}.Gradient(z)
	assert.Equal(t, []float64{0, 0, 1, 1}, g.Data())
}

func TestTanhGradient(t *testing.T) {
	z := NewMatrixFromSlice(1, 1, []float64{0.7})
	g := Tanh{}.Gradient(z)
	th := math.Tanh(0.7)
	assert.InDelta(t, 1.0-th*th, g.At(0, 0), 1e-12)
}
