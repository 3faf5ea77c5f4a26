package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates invalid gains, scale factors or model artifacts.
	// Always fatal and detected at startup.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrInference indicates a per-tick model failure. Recoverable.
	ErrInference = errors.New("dynamo: inference failed")

	// ErrDisturbance indicates wind sampling exhausted its retry budget.
	ErrDisturbance = errors.New("dynamo: disturbance sampling exhausted")

	// ErrPhysics indicates the physics engine could not advance. Fatal.
	ErrPhysics = errors.New("dynamo: physics engine failure")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrStopped indicates the loop was asked to tick after a stop request.
	ErrStopped = errors.New("dynamo: simulation stopped")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// TickError wraps a fatal error with the tick it happened in.
type TickError struct {
	Tick    int
	Time    float64
	Stage   string
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f) %s: %v", e.Tick, e.Time, e.Stage, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
