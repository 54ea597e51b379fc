// Package opt wraps derivative-free optimizers behind a small interface so
// fitting code does not depend on a specific library.
package opt

import (
	"errors"
	"fmt"
)

// Optimizer minimizes an objective over a box.
type Optimizer interface {
	// Run minimizes eval over dim parameters with per-dimension bounds
	// lower[i] <= x[i] <= upper[i]. Returns the best parameters and cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}

// ErrBounds is returned for inconsistent bounds.
var ErrBounds = errors.New("invalid bounds")

func checkBounds(lower, upper []float64, dim int) error {
	if dim < 1 {
		return fmt.Errorf("%w: dimension %d", ErrBounds, dim)
	}
	if len(lower) != dim || len(upper) != dim {
		return fmt.Errorf("%w: got %d lower and %d upper bounds for %d dimensions", ErrBounds, len(lower), len(upper), dim)
	}
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return fmt.Errorf("%w: dimension %d has lower %g >= upper %g", ErrBounds, i, lower[i], upper[i])
		}
	}
	return nil
}
