package lca

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange indicates cluster-count bounds outside the allowed range.
	ErrInvalidRange = errors.New("lca: invalid cluster count range")
	// ErrConvergence indicates a fit degenerated numerically.
	ErrConvergence = errors.New("lca: mixture fit degenerated")
	// ErrInvalidMatrix indicates the response matrix cannot be fitted.
	ErrInvalidMatrix = errors.New("lca: invalid response matrix")
	// ErrUnknownCategory indicates a response code absent from the fitted model.
	ErrUnknownCategory = errors.New("lca: response code not seen during fitting")
)

// RangeError reports a requested cluster-count range that violates Bounds.
type RangeError struct {
	Min    int
	Max    int
	Bounds Bounds
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("lca: invalid cluster count range [%d, %d]: want %d <= min <= max <= %d",
		e.Min, e.Max, e.Bounds.Lower, e.Bounds.Upper)
}

// Is reports whether target is ErrInvalidRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// ConvergenceError reports the class and iteration at which a fit degenerated.
type ConvergenceError struct {
	Clusters  int
	Component int
	Iteration int
	Reason    string
}

func (e *ConvergenceError) Error() string {
	if e.Component < 0 {
		return fmt.Sprintf("lca: %d-class fit degenerated at iteration %d: %s",
			e.Clusters, e.Iteration, e.Reason)
	}
	return fmt.Sprintf("lca: %d-class fit degenerated at iteration %d: class %d %s",
		e.Clusters, e.Iteration, e.Component, e.Reason)
}

// Is reports whether target is ErrConvergence.
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}
