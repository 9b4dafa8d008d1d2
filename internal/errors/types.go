/**
 * Error Types for dbscope
 *
 * Structured errors carrying the failure category (connectivity, conversion,
 * cancellation, invalid operation, configuration) so callers can tell a
 * broken connection from a bad cast or a cancelled context.
 *
 * Author: dbscope Team
 * Created: 2025-02-03
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error.
type ErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeConnectivity represents open/close/begin/execute failures
	// reported by the driver
	ErrorTypeConnectivity

	// ErrorTypeConversion represents a value that cannot be converted to the
	// requested Go type
	ErrorTypeConversion

	// ErrorTypeContext represents context cancellation or deadline expiry
	ErrorTypeContext

	// ErrorTypeInvalidOperation represents a call made in the wrong
	// connection or transaction state
	ErrorTypeInvalidOperation

	// ErrorTypeConfiguration represents invalid configuration values
	ErrorTypeConfiguration
)

// Sentinel errors wrapped by typed errors.
var (
	ErrNoConnection          = errors.New("command has no connection")
	ErrConnectionOpen        = errors.New("connection is already open")
	ErrConnectionNotOpen     = errors.New("connection is not open")
	ErrTransactionActive     = errors.New("connection already has an active transaction")
	ErrNullValue             = errors.New("null value cannot be assigned to a non-nullable type")
	ErrUnsupportedCapability = errors.New("capability not supported by connection")
)

// String returns the string representation of ErrorType.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConnectivity:
		return "Connectivity"
	case ErrorTypeConversion:
		return "Conversion"
	case ErrorTypeContext:
		return "Context"
	case ErrorTypeInvalidOperation:
		return "InvalidOperation"
	case ErrorTypeConfiguration:
		return "Configuration"
	default:
		return "Unknown"
	}
}

// Error represents a structured error with metadata.
type Error struct {
	// Err is the underlying error
	Err error

	// Context contains additional context information
	Context map[string]interface{}

	// Timestamp when the error occurred
	Timestamp time.Time

	// Op is the operation being performed (open, begin, scalar, ...)
	Op string

	// Target names the resource involved, e.g. a Go type or column name
	Target string

	// Type categorizes the error
	Type ErrorType
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s [%s] %v", e.Type, e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %s %v", e.Type, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error.
func New(errorType ErrorType, op, target string, err error) *Error {
	return &Error{
		Type:      errorType,
		Op:        op,
		Target:    target,
		Err:       err,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds context information.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsContextError checks if the error is due to context cancellation.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// GetErrorType returns the category of err, looking through wrapping.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}

	if IsContextError(err) {
		return ErrorTypeContext
	}

	return ErrorTypeUnknown
}

// FromDriver classifies an error returned by a driver call. Errors that are
// already typed pass through unchanged.
func FromDriver(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if IsContextError(err) {
		return New(ErrorTypeContext, op, "", err)
	}
	return New(ErrorTypeConnectivity, op, "", err)
}

// InvalidOperation reports a call made in the wrong state.
func InvalidOperation(op string, err error) *Error {
	return New(ErrorTypeInvalidOperation, op, "", err)
}

// Conversion reports a failed value conversion to the named target type.
func Conversion(target string, err error) *Error {
	return New(ErrorTypeConversion, "convert", target, err)
}

// Configuration reports an invalid configuration key.
func Configuration(key string, err error) *Error {
	return New(ErrorTypeConfiguration, "config", key, err)
}
