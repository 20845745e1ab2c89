package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrConstruction marks a malformed matrix: empty, non-square, or with
	// labels that do not line up with its rows and columns.
	ErrConstruction = errors.New("malformed distance matrix")

	// ErrCompatibility marks inputs that cannot be used together: matrices
	// with different sizes or sample orders, or metadata missing a sample.
	ErrCompatibility = errors.New("incompatible inputs")

	// ErrParameter marks an invalid method parameter.
	ErrParameter = errors.New("invalid parameter")

	// ErrNotComparable marks values that cannot be ordered (NaN).
	ErrNotComparable = errors.New("values are not comparable")
)

// Error constructors with context
func NewConstructionError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConstruction, fmt.Sprintf(format, args...))
}

func NewCompatibilityError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCompatibility, fmt.Sprintf(format, args...))
}

func NewParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrParameter, field, reason)
}

// Error checking helpers
func IsConstructionError(err error) bool {
	return errors.Is(err, ErrConstruction)
}

func IsCompatibilityError(err error) bool {
	return errors.Is(err, ErrCompatibility)
}

func IsParameterError(err error) bool {
	return errors.Is(err, ErrParameter) || errors.Is(err, ErrNotComparable)
}
