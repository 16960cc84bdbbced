package core

import (
	"errors"
	"fmt"
)

// Simulation errors - centralized error definitions
var (
	// Misuse errors, raised at the point of misuse and never retried
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnsupportedPattern   = errors.New("unsupported effect pattern")
	ErrUnknownMethod        = errors.New("unknown correction method")

	// Execution errors
	ErrWorkerFailure = errors.New("worker failure")
)

// NewValidationError builds an ErrInvalidConfiguration for a named field.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfiguration, field, reason)
}

// Error checking helpers
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsUnsupportedPattern(err error) bool {
	return errors.Is(err, ErrUnsupportedPattern)
}

func IsUnknownMethod(err error) bool {
	return errors.Is(err, ErrUnknownMethod)
}

func IsWorkerFailure(err error) bool {
	return errors.Is(err, ErrWorkerFailure)
}

// IsMisuseError reports errors that indicate programmer or config error rather
// than a transient failure.
func IsMisuseError(err error) bool {
	return IsInvalidConfiguration(err) ||
		IsUnsupportedPattern(err) ||
		IsUnknownMethod(err)
}
