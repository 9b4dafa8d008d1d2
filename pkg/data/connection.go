package data

import (
	"context"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// OpenWithCheck opens conn only if it is closed and returns the state it was
// in beforehand. Any other state, including broken or transitional ones, is
// left alone.
func OpenWithCheck(conn Connection) (ConnectionState, error) {
	if conn == nil {
		return StateClosed, errors.InvalidOperation("open", errors.ErrNoConnection)
	}

	initial := conn.State()
	if initial != StateClosed {
		return initial, nil
	}
	if err := conn.Open(); err != nil {
		return initial, errors.FromDriver("open", err)
	}
	return initial, nil
}

// OpenWithCheckContext is OpenWithCheck with a cancellable open.
func OpenWithCheckContext(ctx context.Context, conn Connection) (ConnectionState, error) {
	if conn == nil {
		return StateClosed, errors.InvalidOperation("open", errors.ErrNoConnection)
	}

	initial := conn.State()
	if initial != StateClosed {
		return initial, nil
	}
	if err := AsContextConnection(conn).OpenContext(ctx); err != nil {
		return initial, errors.FromDriver("open", err)
	}
	return initial, nil
}

// CloseWithCheck closes conn only if initial is StateClosed and the
// connection is not already closed.
func CloseWithCheck(conn Connection, initial ConnectionState) error {
	if conn == nil || initial != StateClosed {
		return nil
	}
	if conn.State() == StateClosed {
		return nil
	}
	return errors.FromDriver("close", conn.Close())
}

// Clone returns a closed copy of conn with the same settings.
func Clone(conn Connection) (Connection, error) {
	c, ok := conn.(Cloner)
	if !ok {
		return nil, errors.InvalidOperation("clone", errors.ErrUnsupportedCapability)
	}
	return c.Clone(), nil
}

// CreateCommand returns a command with the given text bound to conn.
func CreateCommand(conn Connection, text string) (Command, error) {
	c, ok := conn.(CommandCreator)
	if !ok {
		return nil, errors.InvalidOperation("create command", errors.ErrUnsupportedCapability)
	}
	return c.CreateCommand(text), nil
}
