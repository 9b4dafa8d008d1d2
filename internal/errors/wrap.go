/**
 * Error Wrapping Utilities for dbscope
 *
 * Provides convenience functions for error wrapping and creation so callers
 * can import a single errors package.
 *
 * Author: dbscope Team
 * Created: 2025-02-03
 */

package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// NewSimple creates a simple error without the full Error struct.
func NewSimple(message string) error {
	return errors.New(message)
}

// Errorf creates a formatted error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, or nil if all are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// AsError checks if an error is of type *Error and assigns it.
func AsError(err error, target **Error) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}
