package data

import (
	"context"
	"database/sql"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// AsContextConnection returns conn itself when it already supports
// cancellation, otherwise a wrapper whose context methods check ctx and then
// fall back to the blocking calls.
func AsContextConnection(conn Connection) ContextConnection {
	if conn == nil {
		return nil
	}
	if cc, ok := conn.(ContextConnection); ok {
		return cc
	}
	return &connectionContextAdapter{Connection: conn}
}

type connectionContextAdapter struct {
	Connection
}

func (a *connectionContextAdapter) OpenContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.FromDriver("open", err)
	}
	return a.Connection.Open()
}

func (a *connectionContextAdapter) BeginContext(ctx context.Context, opts *sql.TxOptions) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromDriver("begin", err)
	}
	return a.Connection.Begin(opts)
}

// AsContextCommand returns cmd itself when it already supports cancellation,
// otherwise a wrapper that checks ctx before each blocking call.
func AsContextCommand(cmd Command) ContextCommand {
	if cmd == nil {
		return nil
	}
	if cc, ok := cmd.(ContextCommand); ok {
		return cc
	}
	return &commandContextAdapter{Command: cmd}
}

type commandContextAdapter struct {
	Command
}

func (a *commandContextAdapter) ExecuteNonQueryContext(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.FromDriver("exec", err)
	}
	return a.Command.ExecuteNonQuery()
}

func (a *commandContextAdapter) ExecuteScalarContext(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromDriver("scalar", err)
	}
	return a.Command.ExecuteScalar()
}

func (a *commandContextAdapter) ExecuteReaderContext(ctx context.Context, behavior CommandBehavior) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromDriver("reader", err)
	}
	return a.Command.ExecuteReader(behavior)
}

// AsContextReader returns r itself when it already supports cancellation,
// otherwise a wrapper that checks ctx before advancing.
func AsContextReader(r Reader) ContextReader {
	if r == nil {
		return nil
	}
	if cr, ok := r.(ContextReader); ok {
		return cr
	}
	return &readerContextAdapter{Reader: r}
}

type readerContextAdapter struct {
	Reader
}

func (a *readerContextAdapter) NextContext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.FromDriver("read", err)
	}
	if a.Reader.Next() {
		return true, nil
	}
	return false, a.Reader.Err()
}

// ReadContext advances r, honouring cancellation of ctx.
func ReadContext(ctx context.Context, r Reader) (bool, error) {
	return AsContextReader(r).NextContext(ctx)
}
