package ml

import (
	"fmt"
	"math"
)

// Activation is a differentiable function applied to a layer's pre-activation
// output. Implementations additionally satisfy ElementwiseActivation or
// JacobianActivation depending on the structure of their derivative.
type Activation interface {
	Name() string
	Apply(z *Matrix) *Matrix
}

// ElementwiseActivation has a diagonal Jacobian: each output component
// depends only on its own pre-activation component.
type ElementwiseActivation interface {
	Activation
	// Gradient returns d(activation)/dz evaluated elementwise, same shape as z.
	Gradient(z *Matrix) *Matrix
}

// JacobianActivation has a full per-sample Jacobian: output components depend
// on multiple pre-activation components (softmax).
type JacobianActivation interface {
	Activation
	// Jacobian returns a flat [batch * n * n] buffer where entry
	// [i*n*n + k*n + j] is d(out_j)/d(z_k) for sample i.
	Jacobian(z *Matrix) []float64
}

var activationMap = map[string]func() Activation{
	"linear":  func() Activation { return Identity{} },
	"relu":    func() Activation { return ReLU{} },
	"sigmoid": func() Activation { return Sigmoid{} },
	"tanh":    func() Activation { return Tanh{} },
	"softmax": func() Activation { return Softmax{} },
}

// GetActivation resolves an activation by name.
func GetActivation(name string) (Activation, error) {
	fn, ok := activationMap[name]
	if !ok {
		return nil, &ConfigError{Op: "activation", Reason: fmt.Sprintf("unknown activation %q", name)}
	}
	return fn(), nil
}

// ------- ELEMENTWISE ACTIVATIONS ------- //

// Identity passes z through unchanged.
type Identity struct{}

func (Identity) Name() string { return "linear" }

func (Identity) Apply(z *Matrix) *Matrix { return z }

func (Identity) Gradient(z *Matrix) *Matrix {
	g := NewMatrix(z.rows, z.cols)
	for i := range g.data {
		g.data[i] = 1
	}
	return g
}

type ReLU struct{}

func (ReLU) Name() string { return "relu" }

func (ReLU) Apply(z *Matrix) *Matrix {
	a := z.Clone()
	a.ApplyRelu()
	return a
}

func (ReLU) Gradient(z *Matrix) *Matrix {
	g := NewMatrix(z.rows, z.cols)
	for i, v := range z.data {
		if v > 0 {
			g.data[i] = 1
		}
	}
	return g
}

type Sigmoid struct{}

func (Sigmoid) Name() string { return "sigmoid" }

func (Sigmoid) Apply(z *Matrix) *Matrix {
	a := z.Clone()
	a.ApplySigmoid()
	return a
}

func (Sigmoid) Gradient(z *Matrix) *Matrix {
	g := z.Clone()
	g.ApplySigmoid()
	for i, s := range g.data {
		g.data[i] = s * (1.0 - s)
	}
	return g
}

type Tanh struct{}

func (Tanh) Name() string { return "tanh" }

func (Tanh) Apply(z *Matrix) *Matrix {
	a := z.Clone()
	a.ApplyFunc(math.Tanh)
	return a
}

func (Tanh) Gradient(z *Matrix) *Matrix {
	g := z.Clone()
	g.ApplyFunc(func(v float64) float64 {
		t := math.Tanh(v)
		return 1.0 - t*t
	})
	return g
}

// ------- JACOBIAN ACTIVATIONS ------- //

// Softmax normalizes every row into a probability distribution. Its
// derivative is a per-sample square matrix, not a diagonal.
type Softmax struct{}

func (Softmax) Name() string { return "softmax" }

func (Softmax) Apply(z *Matrix) *Matrix {
	a := z.Clone()
	SoftmaxRow(a)
	return a
}

// Jacobian returns the per-sample matrices J[k][j] = s_k*(delta_kj - s_j)
// packed into one flat buffer so the delta contraction can run in a single
// pass over all samples.
func (sm Softmax) Jacobian(z *Matrix) []float64 {
	s := sm.Apply(z)
	n := z.cols
	buf := make([]float64, z.rows*n*n)
	for i := 0; i < z.rows; i++ {
		row := s.data[i*n : (i+1)*n]
		base := i * n * n
		for k, sk := range row {
			off := base + k*n
			for j, sj := range row {
				if k == j {
					buf[off+j] = sk * (1.0 - sj)
				} else {
					buf[off+j] = -sk * sj
				}
			}
		}
	}
	return buf
}

// SoftmaxRow applies softmax to each row of the matrix in place.
func SoftmaxRow(m *Matrix) {
	for i := 0; i < m.rows; i++ {
		maxVal := -math.MaxFloat64
		for j := 0; j < m.cols; j++ {
			if m.data[i*m.cols+j] > maxVal {
				maxVal = m.data[i*m.cols+j]
			}
		}
		sum := 0.0
		for j := 0; j < m.cols; j++ {
			val := math.Exp(m.data[i*m.cols+j] - maxVal)
			m.data[i*m.cols+j] = val
			sum += val
		}
		for j := 0; j < m.cols; j++ {
			m.data[i*m.cols+j] /= sum
		}
	}
}
