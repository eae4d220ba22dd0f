package ml

import "fmt"

// InputLayer fixes the entry shape of a chain. It has no parameters and
// passes data through unchanged. A model must start with exactly one.
type InputLayer struct {
	baseLayer
	features Shape
}

// NewInput declares the per-sample feature shape; the batch dimension stays
// unknown until the model finalizes it.
func NewInput(features ...int) *InputLayer {
	l := &InputLayer{features: Shape(features)}
	l.name = "input"
	l.outputShape = append(Shape{0}, features...)
	return l
}

func (l *InputLayer) Initialize(inputShape Shape) error {
	if len(inputShape) < 2 {
		return &ShapeError{Layer: l.name, Reason: "input layer requires a (batch, features...) shape", Got: inputShape.Clone()}
	}
	if len(l.features) > 0 && !Shape(inputShape[1:]).Equal(l.features) {
		return &ShapeError{Layer: l.name,
			Reason: fmt.Sprintf("declared feature shape %s does not match", l.features),
			Got:    inputShape.Clone()}
	}
	l.features = Shape(inputShape[1:]).Clone()
	l.inputShape = inputShape.Clone()
	l.outputShape = inputShape.Clone()
	l.initialized = true
	return nil
}

func (l *InputLayer) Forward(inputs *Matrix, training bool) (*Matrix, error) {
	if !l.initialized {
		return nil, &StateError{Op: "forward", Layer: l.name, Reason: "layer is not initialized"}
	}
	return l.cache(inputs, inputs), nil
}

// Backward is part of the Layer contract but the chain never propagates into
// the input layer; it hands the gradient back unchanged.
func (l *InputLayer) Backward(dOut *Matrix, opt Optimizer) (*Matrix, error) {
	if !l.initialized {
		return nil, &StateError{Op: "backward", Layer: l.name, Reason: "layer is not initialized"}
	}
	l.ctx = nil
	return dOut, nil
}

func (l *InputLayer) InputGradient(delta *Matrix) (*Matrix, error) {
	if !l.initialized {
		return nil, &StateError{Op: "input_gradient", Layer: l.name, Reason: "layer is not initialized"}
	}
	return delta, nil
}

func (l *InputLayer) Update(opt Optimizer, grads GradientSet) {}

func (l *InputLayer) CountParams() int { return 0 }

func (l *InputLayer) Summary() string {
	return fmt.Sprintf("%s: Input  shape=%s", l.name, l.features)
}
