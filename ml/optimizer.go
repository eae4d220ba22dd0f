package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default settings generally recommended for Adam
var DefaultAdamConfig = AdamConfig{
	Beta1:        0.9,
	Beta2:        0.999,
	Epsilon:      1e-8,
	LearningRate: 0.001,
}

type AdamConfig struct {
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	LearningRate float64
}

// Optimizer mutates a layer's parameters in place from its gradients.
// Stateful variants hold per-layer accumulator slots keyed by layer identity;
// AddSlot is called once per layer at compile time and replaces any slot left
// over from an earlier compile.
type Optimizer interface {
	AddSlot(layer Layer)
	Update(layer Layer, grads GradientSet)
}

// ------ SGD ------ //

// SGD is stateless fixed-rate descent: w -= lr * dw.
type SGD struct {
	LearningRate float64
}

func NewSGD(lr float64) *SGD {
	if lr == 0 {
		lr = 0.01
	}
	return &SGD{LearningRate: lr}
}

func (opt *SGD) AddSlot(layer Layer) {}

func (opt *SGD) Update(layer Layer, grads GradientSet) {
	pl, ok := layer.(paramLayer)
	if !ok {
		return
	}
	floats.AddScaled(pl.Weights().data, -opt.LearningRate, grads.DW.data)
	floats.AddScaled(pl.Bias().data, -opt.LearningRate, grads.DB.data)
}

// ------ MOMENTUM ------ //

type momentumSlot struct {
	vW, vB *Matrix
}

// Momentum keeps a per-layer velocity: v = mu*v - lr*g; w += v.
type Momentum struct {
	LearningRate float64
	Mu           float64
	slots        map[Layer]*momentumSlot
}

func NewMomentum(lr, mu float64) *Momentum {
	if lr == 0 {
		lr = 0.01
	}
	if mu == 0 {
		mu = 0.9
	}
	return &Momentum{
		LearningRate: lr,
		Mu:           mu,
		slots:        make(map[Layer]*momentumSlot),
	}
}

func (opt *Momentum) AddSlot(layer Layer) {
	pl, ok := layer.(paramLayer)
	if !ok || pl.Weights() == nil {
		return
	}
	w, b := pl.Weights(), pl.Bias()
	opt.slots[layer] = &momentumSlot{
		vW: NewMatrix(w.rows, w.cols),
		vB: NewMatrix(b.rows, b.cols),
	}
}

func (opt *Momentum) Update(layer Layer, grads GradientSet) {
	pl, ok := layer.(paramLayer)
	if !ok {
		return
	}
	slot, ok := opt.slots[layer]
	if !ok {
		opt.AddSlot(layer)
		slot = opt.slots[layer]
	}

	apply := func(params, grads, velocity []float64) {
		for i := range params {
			velocity[i] = (opt.Mu * velocity[i]) - (opt.LearningRate * grads[i])
			params[i] += velocity[i]
		}
	}
	apply(pl.Weights().data, grads.DW.data, slot.vW.data)
	apply(pl.Bias().data, grads.DB.data, slot.vB.data)
}

// ------ ADAM ------ //

type adamSlot struct {
	mW, vW *Matrix
	mB, vB *Matrix
	// 't' in the Adam paper, tracks number of updates on this layer
	timeStep int
}

type Adam struct {
	cfg   AdamConfig
	slots map[Layer]*adamSlot
}

func NewAdam(cfg AdamConfig) *Adam {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = DefaultAdamConfig.Beta1
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = DefaultAdamConfig.Beta2
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultAdamConfig.Epsilon
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = DefaultAdamConfig.LearningRate
	}
	return &Adam{cfg: cfg, slots: make(map[Layer]*adamSlot)}
}

func (opt *Adam) AddSlot(layer Layer) {
	pl, ok := layer.(paramLayer)
	if !ok || pl.Weights() == nil {
		return
	}
	w, b := pl.Weights(), pl.Bias()
	opt.slots[layer] = &adamSlot{
		mW: NewMatrix(w.rows, w.cols),
		vW: NewMatrix(w.rows, w.cols),
		mB: NewMatrix(b.rows, b.cols),
		vB: NewMatrix(b.rows, b.cols),
	}
}

func (opt *Adam) Update(layer Layer, grads GradientSet) {
	pl, ok := layer.(paramLayer)
	if !ok {
		return
	}
	slot, ok := opt.slots[layer]
	if !ok {
		opt.AddSlot(layer)
		slot = opt.slots[layer]
	}

	slot.timeStep++
	t := float64(slot.timeStep)

	// correction1 = 1 - beta1^t
	// correction2 = 1 - beta2^t
	correction1 := 1.0 - math.Pow(opt.cfg.Beta1, t)
	correction2 := 1.0 - math.Pow(opt.cfg.Beta2, t)

	apply := func(params, grads, m, v []float64) {
		beta1 := opt.cfg.Beta1
		beta2 := opt.cfg.Beta2
		eps := opt.cfg.Epsilon
		lr := opt.cfg.LearningRate

		for i := range params {
			g := grads[i]

			// m_t = beta1 * m_{t-1} + (1 - beta1) * g
			m[i] = beta1*m[i] + (1.0-beta1)*g

			// v_t = beta2 * v_{t-1} + (1 - beta2) * g^2
			v[i] = beta2*v[i] + (1.0-beta2)*(g*g)

			// Bias correction
			mHat := m[i] / correction1
			vHat := v[i] / correction2

			// theta = theta - lr * mHat / (sqrt(vHat) + eps)
			params[i] -= lr * mHat / (math.Sqrt(vHat) + eps)
		}
	}
	apply(pl.Weights().data, grads.DW.data, slot.mW.data, slot.vW.data)
	apply(pl.Bias().data, grads.DB.data, slot.mB.data, slot.vB.data)
}
