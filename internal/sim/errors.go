package sim

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState    = errors.New("sim: invalid state (NaN or Inf detected)")
	ErrInvalidDt       = errors.New("sim: dt must be positive")
	ErrInvalidDuration = errors.New("sim: duration must be positive")
	ErrNoScript        = errors.New("sim: no script")
)

// TickError wraps an error with the tick it happened on.
type TickError struct {
	Tick    int
	Time    float64
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f): %v", e.Tick, e.Time, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
