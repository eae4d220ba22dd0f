package ml

import (
	"fmt"
	"math"
)

// Metric scores a batch. ComputeMetric accepts either (predictions, labels)
// or (raw inputs, labels): when the first argument's width matches the
// model's input features rather than its outputs, the metric runs the forward
// pass itself. Both call shapes occur in the training loop. The detection is
// width-based, so when a model's input and output widths coincide the first
// argument is always treated as predictions.
type Metric interface {
	Name() string
	ComputeMetric(m *Model, a, b *Matrix) float64
}

var metricMap = map[string]func() Metric{
	"accuracy": func() Metric { return Accuracy{} },
}

// GetMetric resolves a metric by name.
func GetMetric(name string) (Metric, error) {
	fn, ok := metricMap[name]
	if !ok {
		return nil, &ConfigError{Op: "metric", Reason: fmt.Sprintf("unknown metric %q", name)}
	}
	return fn(), nil
}

// Accuracy is the fraction of samples whose argmax prediction matches the
// label. Labels may be one-hot rows or a single class-index column.
type Accuracy struct{}

func (Accuracy) Name() string { return "accuracy" }

func (Accuracy) ComputeMetric(m *Model, a, b *Matrix) float64 {
	preds := a
	if m != nil && a.cols == m.inputFeatures() && a.cols != m.outputFeatures() {
		p, err := m.Predict(a, a.rows)
		if err != nil {
			// Raw inputs cannot stand in for predictions; a failed forward
			// pass has no meaningful score.
			return math.NaN()
		}
		preds = p
	}

	correct := 0
	for i := 0; i < preds.rows; i++ {
		var want int
		if b.cols == 1 {
			want = int(b.data[i])
		} else {
			want = ArgMax(b.data[i*b.cols : (i+1)*b.cols])
		}
		if ArgMax(preds.data[i*preds.cols:(i+1)*preds.cols]) == want {
			correct++
		}
	}
	return float64(correct) / float64(preds.rows)
}
