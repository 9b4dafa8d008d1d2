package data

import (
	"context"
	"database/sql"
)

// Connection is a borrowed handle to one database session. Implementations
// are not safe for concurrent use.
type Connection interface {
	// State reports the current lifecycle state without changing it.
	State() ConnectionState

	// Open establishes the session. Opening an open connection is an error.
	Open() error

	// Close ends the session, rolling back any pending transaction.
	Close() error

	// Begin starts a transaction. A nil opts uses the provider default.
	Begin(opts *sql.TxOptions) (Transaction, error)
}

// ContextConnection is a Connection whose open and begin steps can be
// cancelled.
type ContextConnection interface {
	Connection
	OpenContext(ctx context.Context) error
	BeginContext(ctx context.Context, opts *sql.TxOptions) (Transaction, error)
}

// Transaction is a transaction owned by whoever began it.
type Transaction interface {
	Commit() error
	Rollback() error

	// Close rolls the transaction back if it is still pending and is a
	// no-op once it has been committed or rolled back.
	Close() error
}

// Command is a statement bound to a connection.
type Command interface {
	Connection() Connection
	Text() string
	Parameters() *Parameters
	CreateParameter() *Parameter
	ExecuteNonQuery() (int64, error)

	// ExecuteScalar returns the first column of the first row, DBNull for
	// SQL NULL, or nil when the statement produced no rows.
	ExecuteScalar() (any, error)

	ExecuteReader(behavior CommandBehavior) (Reader, error)
}

// ContextCommand is a Command whose execution can be cancelled.
type ContextCommand interface {
	Command
	ExecuteNonQueryContext(ctx context.Context) (int64, error)
	ExecuteScalarContext(ctx context.Context) (any, error)
	ExecuteReaderContext(ctx context.Context, behavior CommandBehavior) (Reader, error)
}

// ColumnInfo describes one column of a result set.
type ColumnInfo struct {
	Name         string
	Type         DbType
	DatabaseType string
}

// Reader is a forward-only cursor over a result set. Values returns SQL
// NULL as nil.
type Reader interface {
	Columns() ([]ColumnInfo, error)
	Next() bool
	Values() ([]any, error)
	Scan(dest ...any) error
	Err() error
	Close() error
}

// ContextReader is a Reader whose advance step can be cancelled.
type ContextReader interface {
	Reader
	NextContext(ctx context.Context) (bool, error)
}

// Cloner is implemented by connections that can produce a closed copy of
// themselves with the same settings.
type Cloner interface {
	Clone() Connection
}

// CommandCreator is implemented by connections that build commands bound to
// themselves.
type CommandCreator interface {
	CreateCommand(text string) Command
}
