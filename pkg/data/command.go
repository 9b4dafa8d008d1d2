package data

import (
	"context"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/internal/logger"
)

func commandConnection(op string, cmd Command) (Connection, error) {
	if cmd == nil {
		return nil, errors.InvalidOperation(op, errors.NewSimple("command is nil"))
	}
	conn := cmd.Connection()
	if conn == nil {
		return nil, errors.InvalidOperation(op, errors.ErrNoConnection)
	}
	return conn, nil
}

// withScope runs fn inside a scope over the command's connection.
func withScope[R any](op string, cmd Command, fn func() (R, error)) (result R, err error) {
	conn, err := commandConnection(op, cmd)
	if err != nil {
		return result, err
	}

	s, err := NewScope(conn)
	if err != nil {
		return result, err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	return fn()
}

func withScopeContext[R any](ctx context.Context, op string, cmd Command, fn func() (R, error)) (result R, err error) {
	conn, err := commandConnection(op, cmd)
	if err != nil {
		return result, err
	}

	s, err := NewScopeContext(ctx, conn)
	if err != nil {
		return result, err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	return fn()
}

// ExecuteNonQueryAuto executes cmd, opening and closing its connection as
// needed, and returns the number of rows affected.
func ExecuteNonQueryAuto(cmd Command) (int64, error) {
	return withScope("exec", cmd, func() (int64, error) {
		n, err := cmd.ExecuteNonQuery()
		return n, errors.FromDriver("exec", err)
	})
}

// ExecuteNonQueryAutoContext is ExecuteNonQueryAuto with cancellation.
func ExecuteNonQueryAutoContext(ctx context.Context, cmd Command) (int64, error) {
	return withScopeContext(ctx, "exec", cmd, func() (int64, error) {
		n, err := AsContextCommand(cmd).ExecuteNonQueryContext(ctx)
		return n, errors.FromDriver("exec", err)
	})
}

// ExecuteScalarAuto executes cmd and returns the first column of the first
// row: DBNull for SQL NULL, nil when there were no rows.
func ExecuteScalarAuto(cmd Command) (any, error) {
	return withScope("scalar", cmd, func() (any, error) {
		v, err := cmd.ExecuteScalar()
		return v, errors.FromDriver("scalar", err)
	})
}

// ExecuteScalarAutoContext is ExecuteScalarAuto with cancellation.
func ExecuteScalarAutoContext(ctx context.Context, cmd Command) (any, error) {
	return withScopeContext(ctx, "scalar", cmd, func() (any, error) {
		v, err := AsContextCommand(cmd).ExecuteScalarContext(ctx)
		return v, errors.FromDriver("scalar", err)
	})
}

// ExecuteScalarAs executes cmd on its connection as-is and converts the
// result to T. The connection must already be open.
func ExecuteScalarAs[T any](cmd Command) (T, error) {
	var zero T
	if _, err := commandConnection("scalar", cmd); err != nil {
		return zero, err
	}
	v, err := cmd.ExecuteScalar()
	if err != nil {
		return zero, errors.FromDriver("scalar", err)
	}
	return ConvertValue[T](v)
}

// ExecuteScalarAsContext is ExecuteScalarAs with cancellation.
func ExecuteScalarAsContext[T any](ctx context.Context, cmd Command) (T, error) {
	var zero T
	if _, err := commandConnection("scalar", cmd); err != nil {
		return zero, err
	}
	v, err := AsContextCommand(cmd).ExecuteScalarContext(ctx)
	if err != nil {
		return zero, errors.FromDriver("scalar", err)
	}
	return ConvertValue[T](v)
}

// ExecuteScalarAutoAs is ExecuteScalarAuto followed by conversion to T. SQL
// NULL becomes the zero value of a nullable T, such as *string, and an error
// wrapping ErrNullValue for any other T.
func ExecuteScalarAutoAs[T any](cmd Command) (T, error) {
	return withScope("scalar", cmd, func() (T, error) {
		return ExecuteScalarAs[T](cmd)
	})
}

// ExecuteScalarAutoAsContext is ExecuteScalarAutoAs with cancellation.
func ExecuteScalarAutoAsContext[T any](ctx context.Context, cmd Command) (T, error) {
	return withScopeContext(ctx, "scalar", cmd, func() (T, error) {
		return ExecuteScalarAsContext[T](ctx, cmd)
	})
}

// ExecuteReaderAuto opens the command's connection if it is closed and
// executes cmd. When the connection was opened here the reader is created
// with BehaviorCloseConnection, so closing the reader closes the
// connection. If the reader cannot be created the connection is closed
// again.
//
// The caller must close the returned reader; a reader that is never closed
// keeps the connection open.
func ExecuteReaderAuto(cmd Command, behavior CommandBehavior) (Reader, error) {
	conn, err := commandConnection("reader", cmd)
	if err != nil {
		return nil, err
	}

	initial, err := OpenWithCheck(conn)
	if err != nil {
		return nil, err
	}
	if initial == StateClosed {
		behavior |= BehaviorCloseConnection
	}

	r, err := cmd.ExecuteReader(behavior)
	if err != nil {
		return nil, errors.Join(errors.FromDriver("reader", err), CloseWithCheck(conn, initial))
	}
	logger.Global().Trace("reader opened", "initial_state", initial.String(), "close_connection", behavior.Has(BehaviorCloseConnection))
	return r, nil
}

// ExecuteReaderAutoContext is ExecuteReaderAuto with cancellable open and
// execute steps.
func ExecuteReaderAutoContext(ctx context.Context, cmd Command, behavior CommandBehavior) (Reader, error) {
	conn, err := commandConnection("reader", cmd)
	if err != nil {
		return nil, err
	}

	initial, err := OpenWithCheckContext(ctx, conn)
	if err != nil {
		return nil, err
	}
	if initial == StateClosed {
		behavior |= BehaviorCloseConnection
	}

	r, err := AsContextCommand(cmd).ExecuteReaderContext(ctx, behavior)
	if err != nil {
		return nil, errors.Join(errors.FromDriver("reader", err), CloseWithCheck(conn, initial))
	}
	logger.FromContext(ctx).Trace("reader opened", "initial_state", initial.String(), "close_connection", behavior.Has(BehaviorCloseConnection))
	return r, nil
}

// ExecuteDataTableAuto executes cmd and loads the result into a new
// DataTable.
func ExecuteDataTableAuto(cmd Command, option LoadOption) (*DataTable, error) {
	table := NewDataTable("")
	if err := FillDataTableAuto(cmd, table, option); err != nil {
		return nil, err
	}
	return table, nil
}

// ExecuteDataTableAutoContext is ExecuteDataTableAuto with cancellation.
func ExecuteDataTableAutoContext(ctx context.Context, cmd Command, option LoadOption) (*DataTable, error) {
	table := NewDataTable("")
	if err := FillDataTableAutoContext(ctx, cmd, table, option); err != nil {
		return nil, err
	}
	return table, nil
}

// FillDataTableAuto executes cmd and merges the result into table according
// to option.
func FillDataTableAuto(cmd Command, table *DataTable, option LoadOption) (err error) {
	if table == nil {
		return errors.InvalidOperation("fill", errors.NewSimple("table is nil"))
	}
	table.BeginLoadData()
	defer func() {
		err = errors.Join(err, table.EndLoadData())
	}()

	r, err := ExecuteReaderAuto(cmd, BehaviorDefault)
	if err != nil {
		return err
	}
	loadErr := table.Load(r, option)
	return errors.Join(loadErr, errors.FromDriver("close reader", r.Close()))
}

// FillDataTableAutoContext is FillDataTableAuto with cancellation.
func FillDataTableAutoContext(ctx context.Context, cmd Command, table *DataTable, option LoadOption) (err error) {
	if table == nil {
		return errors.InvalidOperation("fill", errors.NewSimple("table is nil"))
	}
	table.BeginLoadData()
	defer func() {
		err = errors.Join(err, table.EndLoadData())
	}()

	r, err := ExecuteReaderAutoContext(ctx, cmd, BehaviorDefault)
	if err != nil {
		return err
	}
	loadErr := table.LoadContext(ctx, r, option)
	return errors.Join(loadErr, errors.FromDriver("close reader", r.Close()))
}
