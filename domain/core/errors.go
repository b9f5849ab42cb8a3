package core

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Every failure the engine reports wraps one of
// these sentinels so callers can branch with errors.Is.
var (
	// ErrConfiguration covers malformed designs, effect specifications
	// and engine settings.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSchemaMismatch is returned when an externally supplied dataset
	// does not conform to the design it is analyzed against.
	ErrSchemaMismatch = errors.New("dataset schema mismatch")

	// ErrInsufficientData is returned when an analysis or power
	// evaluation does not have enough data to be meaningful.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNotAchievable is returned when the sample size search exhausts
	// its budget without reaching the target power.
	ErrNotAchievable = errors.New("target power not achievable")
)

// Error constructors with context

func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func NewSchemaMismatchError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

func NewInsufficientDataError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}

func NewNotAchievableError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotAchievable, fmt.Sprintf(format, args...))
}

// Error checking helpers

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsSchemaMismatchError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsNotAchievableError(err error) bool {
	return errors.Is(err, ErrNotAchievable)
}
