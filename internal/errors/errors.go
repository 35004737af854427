package errors

import (
	"errors"
	"fmt"
)

// Common error values shared across the session client packages
var (
	// Platform errors
	ErrRandomUnavailable = errors.New("secure random source unavailable")

	// Storage errors
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("storage unavailable")
	ErrCorrupt     = errors.New("stored value corrupt")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}
