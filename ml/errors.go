package ml

import "fmt"

// ConfigError reports a misconfigured model or invalid call arguments:
// compiling with nil collaborators, adding layers in an illegal order,
// conflicting fit options. Raised before any state is mutated.
type ConfigError struct {
	Op     string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ml: %s: %s", e.Op, e.Reason)
}

// StateError reports a layer method invoked out of lifecycle order: forward
// before initialize, or backward without a pending forward.
type StateError struct {
	Op     string
	Layer  string
	Reason string
}

func (e *StateError) Error() string {
	if e.Layer == "" {
		return fmt.Sprintf("ml: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("ml: %s: layer %q: %s", e.Op, e.Layer, e.Reason)
}

// ShapeError reports an input shape that violates a layer's declared
// requirements.
type ShapeError struct {
	Layer  string
	Reason string
	Got    Shape
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("ml: layer %q: %s, got %v", e.Layer, e.Reason, e.Got)
}
