package randomwalk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid engine parameters.
	ErrInvalidConfig = errors.New("randomwalk: invalid configuration")

	// ErrInvalidDomain indicates invalid or incomplete domain parameters,
	// detected when the domain is registered.
	ErrInvalidDomain = errors.New("randomwalk: invalid domain")
)

// StepError wraps a fatal error with the step at which it occurred.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%g ns): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
