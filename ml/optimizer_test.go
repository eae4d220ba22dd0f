package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optTestLayer(t *testing.T) (*Dense, GradientSet) {
	t.Helper()
	d := NewDense(2)
	require.NoError(t, d.Initialize(Shape{0, 1}))
	copy(d.Weights().Data(), []float64{1, 1})
	copy(d.Bias().Data(), []float64{0, 0})
	grads := GradientSet{
		DW: NewMatrixFromSlice(1, 2, []float64{0.5, -0.5}),
		DB: NewMatrixFromSlice(1, 2, []float64{0.1, 0.2}),
	}
	return d, grads
}

func TestSGDStep(t *testing.T) {
	d, grads := optTestLayer(t)
	opt := NewSGD(0.1)
	opt.Update(d, grads)

	assert.InDeltaSlice(t, []float64{0.95, 1.05}, d.Weights().Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{-0.01, -0.02}, d.Bias().Data(), 1e-12)
}

func TestSGDDefaultLearningRate(t *testing.T) {
	assert.Equal(t, 0.01, NewSGD(0).LearningRate)
}

func TestMomentumAccumulatesVelocity(t *testing.T) {
	d, grads := optTestLayer(t)
	opt := NewMomentum(0.1, 0.9)
	opt.AddSlot(d)

	// Step 1: v = -lr*g, w = 1 - 0.05 = 0.95
	opt.Update(d, grads)
	assert.InDelta(t, 0.95, d.Weights().At(0, 0), 1e-12)

	// Step 2: v = 0.9*(-0.05) - 0.05 = -0.095, w = 0.855
	opt.Update(d, grads)
	assert.InDelta(t, 0.855, d.Weights().At(0, 0), 1e-12)
}

func TestMomentumLazySlot(t *testing.T) {
	d, grads := optTestLayer(t)
	opt := NewMomentum(0.1, 0.9)

	// No AddSlot call; the first update must bootstrap the slot itself.
	opt.Update(d, grads)
	assert.InDelta(t, 0.95, d.Weights().At(0, 0), 1e-12)
}

func TestAdamFirstStepMovesByLearningRate(t *testing.T) {
	d, grads := optTestLayer(t)
	opt := NewAdam(AdamConfig{LearningRate: 0.001})
	opt.AddSlot(d)
	opt.Update(d, grads)

	// With bias correction the very first Adam step is ~lr * sign(g).
	assert.InDelta(t, 1.0-0.001, d.Weights().At(0, 0), 1e-6)
	assert.InDelta(t, 1.0+0.001, d.Weights().At(0, 1), 1e-6)
}

func TestAdamHandComputedStep(t *testing.T) {
	d, grads := optTestLayer(t)
	cfg := AdamConfig{Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8, LearningRate: 0.01}
	opt := NewAdam(cfg)
	opt.AddSlot(d)
	opt.Update(d, grads)

	g := 0.5
	m := (1 - cfg.Beta1) * g
	v := (1 - cfg.Beta2) * g * g
	mHat := m / (1 - cfg.Beta1)
	vHat := v / (1 - cfg.Beta2)
	want := 1.0 - cfg.LearningRate*mHat/(math.Sqrt(vHat)+cfg.Epsilon)

	assert.InDelta(t, want, d.Weights().At(0, 0), 1e-12)
}

func TestAdamZeroConfigFallsBackToDefaults(t *testing.T) {
	opt := NewAdam(AdamConfig{})
	assert.Equal(t, DefaultAdamConfig, opt.cfg)
}

func TestAddSlotReplacesState(t *testing.T) {
	d, grads := optTestLayer(t)
	opt := NewMomentum(0.1, 0.9)
	opt.AddSlot(d)
	opt.Update(d, grads)
	require.NotZero(t, opt.slots[d].vW.At(0, 0))

	// Recompiling registers the layer again, wiping accumulated velocity.
	opt.AddSlot(d)
	assert.Zero(t, opt.slots[d].vW.At(0, 0))
}

func TestOptimizerIgnoresParamlessLayers(t *testing.T) {
	l := NewInput(2)
	require.NoError(t, l.Initialize(Shape{1, 2}))

	opt := NewAdam(DefaultAdamConfig)
	opt.AddSlot(l)
	assert.Empty(t, opt.slots)

	// Update on an unregistered paramless layer must be a no-op, not a panic.
	opt.Update(l, GradientSet{})
}
