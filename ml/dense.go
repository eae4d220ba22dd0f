package ml

import (
	"fmt"
)

var denseCount int

// Dense is a fully connected layer: z = x*W + b, output = activation(z).
// Weights are (in_features, units), bias is (1, units).
type Dense struct {
	baseLayer
	units   int
	weights *Matrix
	bias    *Matrix
}

// NewDense creates an un-initialized fully connected layer with the given
// output width.
func NewDense(units int, opts ...LayerOption) *Dense {
	denseCount++
	d := &Dense{units: units}
	d.name = fmt.Sprintf("dense_%d", denseCount)
	d.trainable = true
	for _, opt := range opts {
		opt(&d.baseLayer)
	}
	return d
}

// Initialize allocates the parameters for a (batch, features) input shape.
// Saturating activations get Xavier weights, the rest He.
func (d *Dense) Initialize(inputShape Shape) error {
	if len(inputShape) != 2 || inputShape[1] <= 0 {
		return &ShapeError{Layer: d.name, Reason: "dense layer requires a (batch, features) input shape", Got: inputShape.Clone()}
	}
	in := inputShape[1]
	d.inputShape = inputShape.Clone()
	d.outputShape = Shape{inputShape[0], d.units}

	d.weights = NewMatrix(in, d.units)
	switch d.activation.(type) {
	case Sigmoid, Tanh, Softmax:
		d.weights.RandomizeXavier()
	default:
		d.weights.Randomize()
	}
	d.bias = NewMatrix(1, d.units)

	d.initialized = true
	return nil
}

func (d *Dense) Forward(inputs *Matrix, training bool) (*Matrix, error) {
	if !d.initialized {
		return nil, &StateError{Op: "forward", Layer: d.name, Reason: "layer is not initialized"}
	}
	if inputs.cols != d.weights.rows {
		return nil, &ShapeError{Layer: d.name,
			Reason: fmt.Sprintf("expected %d input features", d.weights.rows),
			Got:    Shape{inputs.rows, inputs.cols}}
	}
	z := NewMatrix(inputs.rows, d.units)
	MatMul(inputs.dense, d.weights.dense, z)
	z.AddVector(d.bias)
	return d.cache(inputs, z), nil
}

func (d *Dense) Backward(dOut *Matrix, opt Optimizer) (*Matrix, error) {
	if !d.initialized {
		return nil, &StateError{Op: "backward", Layer: d.name, Reason: "layer is not initialized"}
	}
	if d.ctx == nil {
		return nil, &StateError{Op: "backward", Layer: d.name, Reason: "no pending forward pass"}
	}
	delta, err := d.Delta(dOut)
	if err != nil {
		return nil, err
	}

	inputs := d.ctx.inputs
	d.ctx = nil

	dW := NewMatrix(d.weights.rows, d.weights.cols)
	MatMul(inputs.dense.T(), delta.dense, dW)
	db := delta.ColSums()

	d.Update(opt, GradientSet{DW: dW, DB: db})
	return d.InputGradient(delta)
}

func (d *Dense) InputGradient(delta *Matrix) (*Matrix, error) {
	if !d.initialized {
		return nil, &StateError{Op: "input_gradient", Layer: d.name, Reason: "layer is not initialized"}
	}
	dIn := NewMatrix(delta.rows, d.weights.rows)
	MatMul(delta.dense, d.weights.dense.T(), dIn)
	return dIn, nil
}

func (d *Dense) Update(opt Optimizer, grads GradientSet) {
	if opt == nil || !d.trainable || d.weights == nil {
		return
	}
	opt.Update(d, grads)
}

func (d *Dense) Weights() *Matrix { return d.weights }
func (d *Dense) Bias() *Matrix    { return d.bias }

func (d *Dense) CountParams() int {
	if !d.initialized {
		return 0
	}
	return d.weights.rows*d.weights.cols + d.bias.cols
}

func (d *Dense) Summary() string {
	act := "linear"
	if d.activation != nil {
		act = d.activation.Name()
	}
	return fmt.Sprintf("%s: Dense(%d)  activation=%s  output_shape=%s  params=%d",
		d.name, d.units, act, d.outputShape, d.CountParams())
}
