package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates a malformed or ambiguous layer stack or
	// stimulus. It is always reported before any integration starts.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDiverged indicates a NaN or Inf appeared in the magnetization.
	ErrDiverged = errors.New("dynamo: integration diverged (NaN or Inf detected)")

	// ErrWorker indicates a parallel worker failed or panicked.
	ErrWorker = errors.New("dynamo: worker failed")

	// ErrTimeout indicates a sweep point exceeded its time budget.
	ErrTimeout = errors.New("dynamo: sweep point timed out")

	// ErrDimensionMismatch indicates mismatched state and stack sizes.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrAlreadyStarted indicates Run was called on a driver that left Idle.
	ErrAlreadyStarted = errors.New("dynamo: driver already started")
)

// ConfigError names the offending field of a configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dynamo: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigError with a formatted reason.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	Layer   int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4g s, layer %d): %v", e.Step, e.Time, e.Layer, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// WorkerError ties a failure to the pool slot that produced it.
type WorkerError struct {
	Index   int
	Wrapped error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("dynamo: worker %d: %v", e.Index, e.Wrapped)
}

func (e *WorkerError) Unwrap() error { return e.Wrapped }

func (e *WorkerError) Is(target error) bool { return target == ErrWorker }
