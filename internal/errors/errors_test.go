/**
 * Error Package Tests
 *
 * Unit tests for error types, classification and wrapping helpers.
 *
 * Author: dbscope Team
 * Created: 2025-02-03
 */

package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test error type string representation
func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		stringRep string
	}{
		{"Connectivity", ErrorTypeConnectivity, "Connectivity"},
		{"Conversion", ErrorTypeConversion, "Conversion"},
		{"Context", ErrorTypeContext, "Context"},
		{"InvalidOperation", ErrorTypeInvalidOperation, "InvalidOperation"},
		{"Configuration", ErrorTypeConfiguration, "Configuration"},
		{"Unknown", ErrorTypeUnknown, "Unknown"},
		{"OutOfRange", ErrorType(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stringRep, tt.errorType.String())
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Run("WithTarget", func(t *testing.T) {
		err := New(ErrorTypeConversion, "convert", "int", ErrNullValue)
		assert.Equal(t, "Conversion: convert [int] "+ErrNullValue.Error(), err.Error())
	})

	t.Run("WithoutTarget", func(t *testing.T) {
		err := New(ErrorTypeConnectivity, "open", "", errors.New("refused"))
		assert.Equal(t, "Connectivity: open refused", err.Error())
	})

	t.Run("ContextMetadata", func(t *testing.T) {
		err := New(ErrorTypeConnectivity, "open", "", errors.New("refused")).
			WithContext("driver", "sqlite3")
		assert.Equal(t, "sqlite3", err.Context["driver"])
		assert.False(t, err.Timestamp.IsZero())
	})
}

func TestFromDriver(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, FromDriver("open", nil))
	})

	t.Run("DriverError", func(t *testing.T) {
		err := FromDriver("exec", sql.ErrConnDone)
		require.Error(t, err)
		assert.Equal(t, ErrorTypeConnectivity, GetErrorType(err))
		assert.True(t, errors.Is(err, sql.ErrConnDone))
	})

	t.Run("Cancellation", func(t *testing.T) {
		err := FromDriver("open", fmt.Errorf("dial: %w", context.Canceled))
		assert.Equal(t, ErrorTypeContext, GetErrorType(err))
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("AlreadyTyped", func(t *testing.T) {
		typed := InvalidOperation("open", ErrConnectionOpen)
		assert.Same(t, typed, FromDriver("scope", typed))
	})
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(nil))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("plain")))
	assert.Equal(t, ErrorTypeContext, GetErrorType(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeConversion, GetErrorType(Wrap(Conversion("bool", ErrNullValue), "scalar")))
	assert.Equal(t, ErrorTypeConfiguration, GetErrorType(Configuration("database.driver", errors.New("empty"))))
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("base")

	assert.Nil(t, Wrap(nil, "message"))
	assert.Nil(t, Wrapf(nil, "message %d", 1))

	wrapped := Wrapf(base, "step %d", 2)
	assert.Equal(t, "step 2: base", wrapped.Error())
	assert.True(t, Is(wrapped, base))

	var typed *Error
	assert.True(t, AsError(Wrap(InvalidOperation("begin", ErrTransactionActive), "scope"), &typed))
	assert.Equal(t, ErrorTypeInvalidOperation, typed.Type)
	assert.False(t, AsError(nil, &typed))

	joined := Join(base, nil, ErrNullValue)
	assert.True(t, Is(joined, base))
	assert.True(t, Is(joined, ErrNullValue))
	assert.Nil(t, Join(nil, nil))
}

func TestIsContextError(t *testing.T) {
	assert.False(t, IsContextError(nil))
	assert.True(t, IsContextError(context.Canceled))
	assert.True(t, IsContextError(Wrap(context.DeadlineExceeded, "query")))
	assert.False(t, IsContextError(ErrNoConnection))
}
