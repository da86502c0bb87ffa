package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Argument errors
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrShapeMismatch        = fmt.Errorf("%w: shape mismatch", ErrInvalidArgument)
	ErrInvalidPredicate     = fmt.Errorf("%w: predicate is not boolean-convertible", ErrInvalidArgument)
	ErrInvalidLabels        = fmt.Errorf("%w: invalid labels", ErrInvalidArgument)
	ErrInvalidNumClasses    = fmt.Errorf("%w: num_classes must be at least 2", ErrInvalidArgument)
	ErrIncompatibleContexts = fmt.Errorf("%w: contexts do not share a raw context", ErrInvalidArgument)
	ErrMissingMemoizer      = fmt.Errorf("%w: structure memoizer is required", ErrInvalidArgument)

	// Lookup errors
	ErrNotFound    = errors.New("resource not found")
	ErrKeyNotFound = fmt.Errorf("%w: memoizer key", ErrNotFound)
)

// Error constructors with context
func NewShapeError(what string, want, got interface{}) error {
	return fmt.Errorf("%w: %s expected %v, got %v", ErrShapeMismatch, what, want, got)
}

func NewLabelError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidLabels, reason)
}

func NewNumClassesError(numClasses int) error {
	return fmt.Errorf("%w (got %d)", ErrInvalidNumClasses, numClasses)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
