/*
Connection Handles for dbscope

Features:
- One dedicated pool connection per open handle
- Transactions bound to the handle that began them
- Broken connection detection from driver errors

Author: dbscope Team
Update History:
- 2025-02-04: Initial implementation
*/

package sqlxconn

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// execer is satisfied by both *sqlx.Conn and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

var (
	_ execer = (*sqlx.Conn)(nil)
	_ execer = (*sqlx.Tx)(nil)
)

// Conn is a connection handle. It holds no pool connection while closed and
// checks one out on Open. A Conn is not safe for concurrent use.
type Conn struct {
	db     *DB
	conn   *sqlx.Conn
	tx     *Tx
	broken bool
}

// Ensure *Conn implements the connection capabilities.
var (
	_ data.ContextConnection = (*Conn)(nil)
	_ data.Cloner            = (*Conn)(nil)
	_ data.CommandCreator    = (*Conn)(nil)
)

// State reports Closed, Open or Broken.
func (c *Conn) State() data.ConnectionState {
	switch {
	case c.conn == nil:
		return data.StateClosed
	case c.broken:
		return data.StateBroken
	default:
		return data.StateOpen
	}
}

// Open checks a connection out of the pool, waiting at most the configured
// connect timeout.
func (c *Conn) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.db.connectTimeout)
	defer cancel()

	return c.OpenContext(ctx)
}

// OpenContext checks a connection out of the pool.
func (c *Conn) OpenContext(ctx context.Context) error {
	if c.conn != nil {
		return errors.InvalidOperation("open", errors.ErrConnectionOpen)
	}

	conn, err := c.db.Connx(ctx)
	if err != nil {
		return errors.FromDriver("open", err)
	}
	c.conn = conn
	c.broken = false
	return nil
}

// Close rolls back any pending transaction and returns the connection to
// the pool. Closing a closed handle is a no-op.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}

	var txErr error
	if c.tx != nil {
		txErr = c.tx.Close()
	}

	err := c.conn.Close()
	c.conn = nil
	c.broken = false
	if errors.Is(err, sql.ErrConnDone) {
		err = nil
	}
	return errors.Join(txErr, errors.FromDriver("close", err))
}

// Begin starts a transaction on the open connection.
func (c *Conn) Begin(opts *sql.TxOptions) (data.Transaction, error) {
	return c.BeginContext(context.Background(), opts)
}

// BeginContext starts a transaction on the open connection. The context
// governs the whole transaction, as with database/sql.
func (c *Conn) BeginContext(ctx context.Context, opts *sql.TxOptions) (data.Transaction, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("begin", errors.ErrConnectionNotOpen)
	}
	if c.tx != nil {
		return nil, errors.InvalidOperation("begin", errors.ErrTransactionActive)
	}

	tx, err := c.conn.BeginTxx(ctx, opts)
	if err != nil {
		c.markBroken(err)
		return nil, errors.FromDriver("begin", err)
	}
	c.tx = &Tx{tx: tx, conn: c}
	return c.tx, nil
}

// Clone returns a closed handle on the same pool.
func (c *Conn) Clone() data.Connection {
	return &Conn{db: c.db}
}

// CreateCommand returns a command bound to c.
func (c *Conn) CreateCommand(text string) data.Command {
	return NewCommand(c, text)
}

func (c *Conn) execer() (execer, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("execute", errors.ErrConnectionNotOpen)
	}
	if c.tx != nil {
		return c.tx.tx, nil
	}
	return c.conn, nil
}

func (c *Conn) markBroken(err error) {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		c.broken = true
	}
}

// Tx is a transaction begun on a Conn. Once it is committed or rolled back
// the Conn can begin another one.
type Tx struct {
	tx   *sqlx.Tx
	conn *Conn
	done bool
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.InvalidOperation("commit", sql.ErrTxDone)
	}
	t.finish()
	return errors.FromDriver("commit", t.tx.Commit())
}

func (t *Tx) Rollback() error {
	if t.done {
		return errors.InvalidOperation("rollback", sql.ErrTxDone)
	}
	t.finish()
	return errors.FromDriver("rollback", t.tx.Rollback())
}

// Close rolls the transaction back if it is still pending.
func (t *Tx) Close() error {
	if t.done {
		return nil
	}
	err := t.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
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
