/*
PostgreSQL Connection Handles for dbscope

Features:
- One pgx connection per open handle, dialled on Open
- Transactions mapped from database/sql options to pgx options
- Injectable dialer so handles can run against pgxmock

Author: dbscope Team
Update History:
- 2025-02-05: Initial implementation
*/

package pgxconn

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// PgxConn is the part of *pgx.Conn a handle uses.
type PgxConn interface {
	Close(ctx context.Context) error
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Ensure *pgx.Conn implements PgxConn.
var _ PgxConn = (*pgx.Conn)(nil)

// DialFunc establishes a new server connection.
type DialFunc func(ctx context.Context) (PgxConn, error)

// Dial returns a DialFunc that connects with pgx.Connect.
func Dial(connString string) DialFunc {
	return func(ctx context.Context) (PgxConn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Conn is a connection handle. It dials on Open and disconnects on Close.
// A Conn is not safe for concurrent use.
type Conn struct {
	dial           DialFunc
	conn           PgxConn
	tx             *Tx
	ConnectTimeout time.Duration
	broken         bool
}

// Ensure *Conn implements the connection capabilities.
var (
	_ data.ContextConnection = (*Conn)(nil)
	_ data.Cloner            = (*Conn)(nil)
	_ data.CommandCreator    = (*Conn)(nil)
)

// New returns a closed handle that connects with dial.
func New(dial DialFunc) *Conn {
	return &Conn{dial: dial, ConnectTimeout: 10 * time.Second}
}

// State reports Closed, Open or Broken. A handle whose server connection
// was lost is Broken until it is closed.
func (c *Conn) State() data.ConnectionState {
	switch {
	case c.conn == nil:
		return data.StateClosed
	case c.broken:
		return data.StateBroken
	}
	if ic, ok := c.conn.(interface{ IsClosed() bool }); ok && ic.IsClosed() {
		return data.StateBroken
	}
	return data.StateOpen
}

func (c *Conn) Open() error {
	ctx := context.Background()
	if c.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ConnectTimeout)
		defer cancel()
	}
	return c.OpenContext(ctx)
}

func (c *Conn) OpenContext(ctx context.Context) error {
	if c.conn != nil {
		return errors.InvalidOperation("open", errors.ErrConnectionOpen)
	}
	if err := ctx.Err(); err != nil {
		return errors.FromDriver("open", err)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return errors.FromDriver("open", err)
	}
	c.conn = conn
	c.broken = false
	return nil
}

// Close rolls back any pending transaction and disconnects.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}

	var txErr error
	if c.tx != nil {
		txErr = c.tx.Close()
	}

	err := c.conn.Close(context.Background())
	c.conn = nil
	c.broken = false
	return errors.Join(txErr, errors.FromDriver("close", err))
}

func (c *Conn) Begin(opts *sql.TxOptions) (data.Transaction, error) {
	return c.BeginContext(context.Background(), opts)
}

func (c *Conn) BeginContext(ctx context.Context, opts *sql.TxOptions) (data.Transaction, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("begin", errors.ErrConnectionNotOpen)
	}
	if c.tx != nil {
		return nil, errors.InvalidOperation("begin", errors.ErrTransactionActive)
	}

	pgOpts, err := TxOptions(opts)
	if err != nil {
		return nil, err
	}
	tx, err := c.conn.BeginTx(ctx, pgOpts)
	if err != nil {
		c.markBroken(err)
		return nil, errors.FromDriver("begin", err)
	}
	c.tx = &Tx{tx: tx, conn: c}
	return c.tx, nil
}

// Clone returns a closed handle with the same dialer.
func (c *Conn) Clone() data.Connection {
	return &Conn{dial: c.dial, ConnectTimeout: c.ConnectTimeout}
}

func (c *Conn) CreateCommand(text string) data.Command {
	return NewCommand(c, text)
}

// querier returns the transaction if one is active, otherwise the
// connection.
func (c *Conn) querier() (querier, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("execute", errors.ErrConnectionNotOpen)
	}
	if c.tx != nil {
		return c.tx.tx, nil
	}
	return c.conn, nil
}

func (c *Conn) markBroken(err error) {
	if pgconn.SafeToRetry(err) || errors.Is(err, pgx.ErrTxClosed) {
		return
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.IsContextError(err) {
		return
	}
	if ic, ok := c.conn.(interface{ IsClosed() bool }); ok && ic.IsClosed() {
		c.broken = true
	}
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var isoLevels = map[sql.IsolationLevel]pgx.TxIsoLevel{
	sql.LevelReadUncommitted: pgx.ReadUncommitted,
	sql.LevelReadCommitted:   pgx.ReadCommitted,
	sql.LevelRepeatableRead:  pgx.RepeatableRead,
	sql.LevelSnapshot:        pgx.RepeatableRead,
	sql.LevelSerializable:    pgx.Serializable,
}

// TxOptions maps database/sql transaction options to pgx. A nil opts and
// LevelDefault use the server default.
func TxOptions(opts *sql.TxOptions) (pgx.TxOptions, error) {
	var out pgx.TxOptions
	if opts == nil {
		return out, nil
	}

	if opts.Isolation != sql.LevelDefault {
		level, ok := isoLevels[opts.Isolation]
		if !ok {
			return out, errors.InvalidOperation("begin",
				errors.Errorf("isolation level %s is not supported by PostgreSQL", opts.Isolation))
		}
		out.IsoLevel = level
	}
	if opts.ReadOnly {
		out.AccessMode = pgx.ReadOnly
	}
	return out, nil
}

// Tx is a transaction begun on a Conn.
type Tx struct {
	tx   pgx.Tx
	conn *Conn
	done bool
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.InvalidOperation("commit", pgx.ErrTxClosed)
	}
	t.finish()
	return errors.FromDriver("commit", t.tx.Commit(context.Background()))
}

func (t *Tx) Rollback() error {
	if t.done {
		return errors.InvalidOperation("rollback", pgx.ErrTxClosed)
	}
	t.finish()
	return errors.FromDriver("rollback", t.tx.Rollback(context.Background()))
}

// Close rolls the transaction back if it is still pending.
func (t *Tx) Close() error {
	if t.done {
		return nil
	}
	err := t.Rollback()
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Done reports whether the transaction was committed or rolled back.
func (t *Tx) Done() bool {
	return t.done
}

func (t *Tx) finish() {
	t.done = true
	if t.conn.tx == t {
		t.conn.tx = nil
	}
}
