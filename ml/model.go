package ml

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// History maps a series name ("loss", "accuracy", "val_loss", ...) to its
// per-epoch values.
type History map[string][]float64

// FitConfig controls a single training run.
type FitConfig struct {
	Epochs    int
	BatchSize int
	// Verbose 0 is silent, 1 logs per batch, 2 logs per epoch.
	Verbose int
	// ValidationData and ValidationSplit are mutually exclusive.
	ValidationData  *Batch
	ValidationSplit float64
	Shuffle         bool
	// InitialEpoch offsets epoch numbering when resuming training.
	InitialEpoch int
}

// Model chains layers into a sequential network. Layers are shape-checked as
// they are added; Compile binds the optimizer, loss and metrics before fit.
type Model struct {
	Layers    []Layer
	Name      string
	Trainable bool

	loss      Loss
	optimizer Optimizer
	metrics   map[string]Metric
}

func NewModel(name string, layers ...Layer) (*Model, error) {
	m := &Model{Name: name, Trainable: true}
	for _, l := range layers {
		if err := m.Add(l); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewSequential is NewModel with a default name.
func NewSequential(layers ...Layer) (*Model, error) {
	return NewModel("sequential", layers...)
}

// Add appends a layer and eagerly propagates the output shape of the layer
// before it. The first layer must be an InputLayer; its shape may stay
// unknown until fit sees the data.
func (m *Model) Add(layer Layer) error {
	if len(m.Layers) == 0 {
		if _, ok := layer.(*InputLayer); !ok {
			return &ConfigError{Op: "add", Reason: "first layer must be an input layer"}
		}
		m.Layers = append(m.Layers, layer)
		return nil
	}
	if _, ok := layer.(*InputLayer); ok {
		return &ConfigError{Op: "add", Reason: "input layer must be the first layer"}
	}

	prev := m.Layers[len(m.Layers)-1]
	if prev.Initialized() {
		if err := layer.Initialize(prev.OutputShape()); err != nil {
			return err
		}
	}
	m.Layers = append(m.Layers, layer)
	return nil
}

// Compile binds the training capabilities and registers optimizer slots for
// every layer. Recompiling replaces existing slots.
func (m *Model) Compile(opt Optimizer, loss Loss, metricNames ...string) error {
	if opt == nil {
		return &ConfigError{Op: "compile", Reason: "optimizer must be non-nil"}
	}
	if loss == nil {
		return &ConfigError{Op: "compile", Reason: "loss must be non-nil"}
	}

	metrics := make(map[string]Metric, len(metricNames))
	for _, name := range metricNames {
		metric, err := GetMetric(name)
		if err != nil {
			return err
		}
		metrics[metric.Name()] = metric
	}

	m.optimizer = opt
	m.loss = loss
	m.metrics = metrics
	for _, l := range m.Layers {
		opt.AddSlot(l)
	}
	return nil
}

func (m *Model) compiled() bool { return m.optimizer != nil && m.loss != nil }

func (m *Model) inputFeatures() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[0].OutputShape().features()
}

func (m *Model) outputFeatures() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[len(m.Layers)-1].OutputShape().features()
}

func (m *Model) forward(x *Matrix, training bool) (*Matrix, error) {
	out := x
	var err error
	for _, l := range m.Layers {
		if out, err = l.Forward(out, training); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetGradients runs the backward sweep. The loss gradient seeds the last
// layer; each layer's output gradient is the input gradient of the layer
// after it. Parameter updates happen inside Backward when the model is
// trainable; a frozen model still propagates gradients without updating.
// The returned slice holds one gradient per layer, grads[i] being the
// gradient flowing INTO layer i; grads[0] is computed but never consumed.
func (m *Model) GetGradients(yPred, yTrue *Matrix) ([]*Matrix, error) {
	if !m.compiled() {
		return nil, &ConfigError{Op: "gradients", Reason: "model must be compiled first"}
	}

	opt := m.optimizer
	if !m.Trainable {
		opt = nil
	}

	grads := make([]*Matrix, len(m.Layers))
	grads[len(grads)-1] = m.loss.Backward(yPred, yTrue)
	for i := len(m.Layers) - 1; i >= 1; i-- {
		g, err := m.Layers[i].Backward(grads[i], opt)
		if err != nil {
			return nil, err
		}
		grads[i-1] = g
	}
	return grads, nil
}

// Fit trains for cfg.Epochs epochs and returns the per-epoch history. The
// first call finalizes layer shapes from the data when the input layer was
// declared without one.
func (m *Model) Fit(x, y *Matrix, cfg FitConfig) (History, error) {
	if !m.compiled() {
		return nil, &ConfigError{Op: "fit", Reason: "model must be compiled first"}
	}
	if cfg.Epochs <= 0 {
		return nil, &ConfigError{Op: "fit", Reason: "epochs must be positive"}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.ValidationData != nil && cfg.ValidationSplit > 0 {
		return nil, &ConfigError{Op: "fit", Reason: "validation_data and validation_split are mutually exclusive"}
	}
	hasValidation := cfg.ValidationData != nil || cfg.ValidationSplit > 0
	if hasValidation && cfg.Verbose == 0 {
		return nil, &ConfigError{Op: "fit", Reason: "validation requires verbose > 0"}
	}

	if err := m.finalizeShapes(x, cfg.BatchSize); err != nil {
		return nil, err
	}

	xVal, yVal := (*Matrix)(nil), (*Matrix)(nil)
	if cfg.ValidationData != nil {
		xVal, yVal = cfg.ValidationData.X, cfg.ValidationData.Y
	} else if cfg.ValidationSplit > 0 {
		var err error
		x, y, xVal, yVal, err = splitValidation(x, y, cfg.ValidationSplit)
		if err != nil {
			return nil, err
		}
	}

	history := make(History)
	for epoch := cfg.InitialEpoch; epoch < cfg.InitialEpoch+cfg.Epochs; epoch++ {
		gen, err := NewBatchGenerator(x, y, cfg.BatchSize, cfg.Shuffle)
		if err != nil {
			return nil, err
		}

		epochLoss := 0.0
		metricSums := make(map[string]float64, len(m.metrics))
		batch := 0
		for {
			xb, yb, ok := gen.Next()
			if !ok {
				break
			}
			yPred, err := m.forward(xb, true)
			if err != nil {
				return nil, err
			}
			if _, err := m.GetGradients(yPred, yb); err != nil {
				return nil, err
			}
			batchLoss := m.loss.ComputeLoss(m, yPred, yb)
			epochLoss += batchLoss
			for name, metric := range m.metrics {
				metricSums[name] += metric.ComputeMetric(m, yPred, yb) * float64(xb.rows)
			}

			if cfg.Verbose == 1 {
				ev := log.Info().Int("epoch", epoch).Int("batch", batch).Float64("loss", batchLoss)
				for name, metric := range m.metrics {
					ev = ev.Float64(name, metric.ComputeMetric(m, yPred, yb))
				}
				ev.Msg("batch done")
			}
			batch++
		}

		history["loss"] = append(history["loss"], epochLoss)
		for name := range m.metrics {
			history[name] = append(history[name], metricSums[name]/float64(x.rows))
		}

		if cfg.Verbose > 0 {
			ev := log.Info().Int("epoch", epoch).Float64("loss", epochLoss)
			for name := range m.metrics {
				ev = ev.Float64(name, metricSums[name]/float64(x.rows))
			}
			if xVal != nil {
				valPred, err := m.Predict(xVal, cfg.BatchSize)
				if err != nil {
					return nil, err
				}
				valLoss := m.loss.ComputeLoss(m, valPred, yVal)
				history["val_loss"] = append(history["val_loss"], valLoss)
				ev = ev.Float64("val_loss", valLoss)
				for name, metric := range m.metrics {
					v := metric.ComputeMetric(m, xVal, yVal)
					history["val_"+name] = append(history["val_"+name], v)
					ev = ev.Float64("val_"+name, v)
				}
			}
			ev.Msg("epoch done")
		}
	}
	return history, nil
}

// finalizeShapes initializes the chain from the data on the first fit. Layers
// already initialized through Add are left alone.
func (m *Model) finalizeShapes(x *Matrix, batchSize int) error {
	if len(m.Layers) == 0 {
		return &ConfigError{Op: "fit", Reason: "model has no layers"}
	}
	if m.Layers[0].Initialized() {
		return nil
	}
	shape := Shape{batchSize, x.cols}
	for _, l := range m.Layers {
		if err := l.Initialize(shape); err != nil {
			return err
		}
		shape = l.OutputShape()
	}
	return nil
}

// splitValidation carves the last fraction of a shared shuffle off as the
// validation set, keeping x and y rows paired.
func splitValidation(x, y *Matrix, fraction float64) (xt, yt, xv, yv *Matrix, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, nil, nil, &ConfigError{Op: "fit", Reason: "validation split must be in (0, 1)"}
	}
	nVal := int(float64(x.rows) * fraction)
	if nVal == 0 || nVal == x.rows {
		return nil, nil, nil, nil, &ConfigError{Op: "fit", Reason: "validation split leaves an empty partition"}
	}
	perm := NewIndexList(x.rows)
	ShuffleIndices(perm)
	cut := x.rows - nVal
	return gatherRows(x, perm[:cut]), gatherRows(y, perm[:cut]),
		gatherRows(x, perm[cut:]), gatherRows(y, perm[cut:]), nil
}

// Predict runs inference over x in batches and concatenates the outputs in
// row order. Unlike fit and evaluate, a trailing partial batch is included.
func (m *Model) Predict(x *Matrix, batchSize int) (*Matrix, error) {
	if len(m.Layers) == 0 || !m.Layers[0].Initialized() {
		return nil, &StateError{Op: "predict", Reason: "layers are not initialized"}
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	out := NewMatrix(x.rows, m.outputFeatures())
	for from := 0; from < x.rows; from += batchSize {
		to := min(from+batchSize, x.rows)
		yPred, err := m.forward(x.Rows(from, to), false)
		if err != nil {
			return nil, err
		}
		copy(out.data[from*out.cols:to*out.cols], yPred.data)
	}
	return out, nil
}

// Evaluate sums per-batch losses over x and divides by the full row count.
// Trailing rows that do not fill a batch are dropped, matching fit, but the
// denominator stays len(x), so the result scales with 1/batchSize.
func (m *Model) Evaluate(x, y *Matrix, batchSize int) (float64, error) {
	if !m.compiled() {
		return 0, &ConfigError{Op: "evaluate", Reason: "model must be compiled first"}
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	gen, err := NewBatchGenerator(x, y, batchSize, false)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for {
		xb, yb, ok := gen.Next()
		if !ok {
			break
		}
		yPred, err := m.forward(xb, false)
		if err != nil {
			return 0, err
		}
		total += m.loss.ComputeLoss(m, yPred, yb)
	}
	return total / float64(x.rows), nil
}

// CountParams sums trainable parameters across all layers.
func (m *Model) CountParams() int {
	total := 0
	for _, l := range m.Layers {
		total += l.CountParams()
	}
	return total
}

// Summary renders a layer-per-line description of the model.
func (m *Model) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s\n", m.Name)
	for _, l := range m.Layers {
		b.WriteString(l.Summary())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total params: %d\n", m.CountParams())
	return b.String()
}
