package ml

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Shape describes a tensor shape, leading dimension first. For batched data
// the first entry is the batch size; 0 means the batch size is not yet known.
type Shape []int

func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i, v := range s {
		if v != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// features returns the product of all non-batch dimensions.
func (s Shape) features() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, v := range s[1:] {
		n *= v
	}
	return n
}

// GradientSet holds the calculated parameter gradients for one layer.
type GradientSet struct {
	DW *Matrix
	DB *Matrix
}

// Layer is a forward/backward unit in a sequential chain.
//
// Lifecycle: a layer is created un-initialized; Initialize allocates its
// parameters and fixes its shapes; only then may Forward/Backward/Delta run.
// Forward records a context (the inputs and the pre-activation value) that
// the matching Backward consumes. Backward clears that context, so within one
// batch Forward must be followed by exactly one Backward before the next
// Forward on the same layer; a second Forward overwrites the earlier context
// and its state is lost.
type Layer interface {
	Name() string

	// Initialize computes the output shape from the predecessor's output
	// shape and allocates parameters. ShapeError if inputShape violates the
	// layer's requirements.
	Initialize(inputShape Shape) error
	Initialized() bool
	InputShape() Shape
	OutputShape() Shape
	Trainable() bool
	SetTrainable(bool)

	// Forward computes activation(z) for z the layer's pre-activation output,
	// caching inputs and z for the next Backward. StateError before Initialize.
	Forward(inputs *Matrix, training bool) (*Matrix, error)

	// Backward converts dLoss/dOutput into dLoss/dInputs: it computes the
	// delta, derives parameter gradients from the cached inputs, applies the
	// optimizer update when the layer is trainable, and propagates the input
	// gradient. opt may be nil to skip the update.
	Backward(dOut *Matrix, opt Optimizer) (*Matrix, error)

	// Delta computes dLoss/dz from dLoss/dOutput through the attached
	// activation via the chain rule.
	Delta(dOut *Matrix) (*Matrix, error)

	// InputGradient computes dLoss/dInputs from the delta.
	InputGradient(delta *Matrix) (*Matrix, error)

	// Update delegates to the optimizer; no-op for non-trainable or
	// parameter-free layers.
	Update(opt Optimizer, grads GradientSet)

	CountParams() int
	Summary() string
}

// paramLayer is satisfied by layers that carry weights and bias; optimizers
// resolve parameters through it.
type paramLayer interface {
	Weights() *Matrix
	Bias() *Matrix
}

// forwardContext is the per-call state a backward pass needs. Read once: the
// consuming Backward clears it, and every Forward overwrites it.
type forwardContext struct {
	inputs *Matrix
	preAct *Matrix
}

// baseLayer carries the state shared by all layer kinds.
type baseLayer struct {
	name        string
	inputShape  Shape
	outputShape Shape
	activation  Activation
	trainable   bool
	initialized bool
	ctx         *forwardContext
}

func (l *baseLayer) Name() string        { return l.name }
func (l *baseLayer) Initialized() bool   { return l.initialized }
func (l *baseLayer) InputShape() Shape   { return l.inputShape }
func (l *baseLayer) OutputShape() Shape  { return l.outputShape }
func (l *baseLayer) Trainable() bool     { return l.trainable }
func (l *baseLayer) SetTrainable(t bool) { l.trainable = t }

func (l *baseLayer) Activation() Activation { return l.activation }

// cache records the forward context and applies the activation.
func (l *baseLayer) cache(inputs, preAct *Matrix) *Matrix {
	l.ctx = &forwardContext{inputs: inputs, preAct: preAct}
	if l.activation == nil {
		return preAct
	}
	return l.activation.Apply(preAct)
}

// Delta computes dLoss/dz from dLoss/dOutput. Elementwise activations use the
// Hadamard shortcut; Jacobian activations contract each sample's gradient row
// with its Jacobian in one batched pass.
func (l *baseLayer) Delta(dOut *Matrix) (*Matrix, error) {
	if !l.initialized {
		return nil, &StateError{Op: "delta", Layer: l.name, Reason: "layer is not initialized"}
	}
	if l.activation == nil {
		return dOut, nil
	}
	if l.ctx == nil {
		return nil, &StateError{Op: "delta", Layer: l.name, Reason: "no pending forward pass"}
	}
	switch act := l.activation.(type) {
	case ElementwiseActivation:
		g := act.Gradient(l.ctx.preAct)
		delta := dOut.Clone()
		floats.Mul(delta.data, g.data)
		return delta, nil
	case JacobianActivation:
		return contractJacobian(dOut, act.Jacobian(l.ctx.preAct)), nil
	default:
		return nil, &StateError{Op: "delta", Layer: l.name,
			Reason: fmt.Sprintf("activation %q has no gradient form", l.activation.Name())}
	}
}

// contractJacobian computes delta_i = dOut_i x J_i for every sample in one
// pass over the flat [batch*n*n] buffer. No per-sample matrices are built, so
// a malformed buffer fails uniformly for the whole batch.
func contractJacobian(dOut *Matrix, jac []float64) *Matrix {
	n := dOut.cols
	out := NewMatrix(dOut.rows, n)
	for i := 0; i < dOut.rows; i++ {
		base := i * n * n
		dRow := dOut.data[i*n : (i+1)*n]
		oRow := out.data[i*n : (i+1)*n]
		for k, d := range dRow {
			if d == 0 {
				continue
			}
			floats.AddScaled(oRow, d, jac[base+k*n:base+k*n+n])
		}
	}
	return out
}

// ------- LAYER OPTIONS ------- //
type LayerOption func(*baseLayer)

// WithActivation attaches an activation function to the layer.
func WithActivation(a Activation) LayerOption {
	return func(l *baseLayer) {
		l.activation = a
	}
}

// WithActivationName attaches an activation resolved from the registry,
// panicking on an unknown name. Use GetActivation to handle the error.
func WithActivationName(name string) LayerOption {
	act, err := GetActivation(name)
	if err != nil {
		panic(err)
	}
	return WithActivation(act)
}

// WithName overrides the layer's generated name.
func WithName(name string) LayerOption {
	return func(l *baseLayer) {
		l.name = name
	}
}
