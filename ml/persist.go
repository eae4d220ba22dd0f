package ml

import (
	"encoding/gob"
	"fmt"
	"os"
)

type layerData struct {
	Kind        string
	Name        string
	Activation  string
	InputShape  Shape
	OutputShape Shape
	Weights     *Matrix
	Bias        *Matrix
}

type modelData struct {
	Name   string
	Layers []layerData
}

// Save writes the model's architecture metadata and parameters with gob.
func (m *Model) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	data := modelData{Name: m.Name}
	for _, l := range m.Layers {
		ld := layerData{
			Name:        l.Name(),
			InputShape:  l.InputShape(),
			OutputShape: l.OutputShape(),
		}
		switch t := l.(type) {
		case *InputLayer:
			ld.Kind = "input"
		case *Dense:
			ld.Kind = "dense"
			ld.Weights = t.weights
			ld.Bias = t.bias
			if t.activation != nil {
				ld.Activation = t.activation.Name()
			}
		default:
			return fmt.Errorf("save: unsupported layer type %T", l)
		}
		data.Layers = append(data.Layers, ld)
	}
	return gob.NewEncoder(file).Encode(data)
}

// LoadWeights restores saved parameters into a model with matching
// architecture. Layer count, kinds and dimensions must line up.
func (m *Model) LoadWeights(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var data modelData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if len(data.Layers) != len(m.Layers) {
		return fmt.Errorf("load: file has %d layers, model has %d", len(data.Layers), len(m.Layers))
	}
	for i, ld := range data.Layers {
		switch t := m.Layers[i].(type) {
		case *InputLayer:
			if ld.Kind != "input" {
				return fmt.Errorf("load: layer %d is %q in file, input in model", i, ld.Kind)
			}
		case *Dense:
			if ld.Kind != "dense" {
				return fmt.Errorf("load: layer %d is %q in file, dense in model", i, ld.Kind)
			}
			if err := checkDims(ld.Weights, t.weights, ld.Name, "weights"); err != nil {
				return err
			}
			if err := checkDims(ld.Bias, t.bias, ld.Name, "bias"); err != nil {
				return err
			}
			copy(t.weights.data, ld.Weights.data)
			copy(t.bias.data, ld.Bias.data)
		default:
			return fmt.Errorf("load: unsupported layer type %T", t)
		}
	}
	return nil
}

func checkDims(saved, live *Matrix, layer, what string) error {
	if saved == nil || live == nil {
		return fmt.Errorf("load: layer %q has no %s", layer, what)
	}
	if saved.rows != live.rows || saved.cols != live.cols {
		return fmt.Errorf("load: layer %q %s is %dx%d in file, %dx%d in model",
			layer, what, saved.rows, saved.cols, live.rows, live.cols)
	}
	return nil
}
