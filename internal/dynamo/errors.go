package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState    = errors.New("dynamo: state contains NaN or Inf")
	ErrParameterBounds = errors.New("dynamo: parameter out of bounds")
	ErrContextCanceled = errors.New("dynamo: canceled")
	ErrStepTooSmall    = errors.New("dynamo: step size fell below the minimum")
	ErrStepBudget      = errors.New("dynamo: step budget exhausted before target time")
	// ErrSizeMismatch marks a vector whose length differs from its grid.
	ErrSizeMismatch = errors.New("dynamo: vector length does not match grid")
)

// SimulationError is a fatal integration failure. State is the last
// accepted state, so callers can report how far the run got.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error { return e.Wrapped }

// Warning is a non-fatal diagnostic. The run continues and the warning is
// attached to its result.
type Warning struct {
	Source  string
	Message string
	Err     error
}

func (w Warning) Error() string {
	msg := w.Source + ": " + w.Message
	if w.Err != nil {
		msg += ": " + w.Err.Error()
	}
	return msg
}

func (w Warning) Unwrap() error { return w.Err }
