package data

import (
	"context"
	"database/sql"
)

// recorder collects lifecycle events in the order they happen.
type recorder struct {
	events []string
}

func (r *recorder) add(e string) {
	r.events = append(r.events, e)
}

// fakeConn only offers the blocking methods.
type fakeConn struct {
	rec        *recorder
	openErr    error
	beginErr   error
	closeErr   error
	lastTxOpts *sql.TxOptions
	state      ConnectionState
	opens      int
	closes     int
	begins     int
}

func newFakeConn(state ConnectionState) *fakeConn {
	return &fakeConn{state: state, rec: &recorder{}}
}

func (c *fakeConn) State() ConnectionState { return c.state }

func (c *fakeConn) Open() error {
	c.opens++
	c.rec.add("open")
	if c.openErr != nil {
		return c.openErr
	}
	c.state = StateOpen
	return nil
}

func (c *fakeConn) Close() error {
	c.closes++
	c.rec.add("close")
	if c.closeErr != nil {
		return c.closeErr
	}
	c.state = StateClosed
	return nil
}

func (c *fakeConn) Begin(opts *sql.TxOptions) (Transaction, error) {
	c.begins++
	c.lastTxOpts = opts
	c.rec.add("begin")
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return &fakeTx{rec: c.rec}, nil
}

func (c *fakeConn) Clone() Connection {
	return &fakeConn{state: StateClosed, rec: &recorder{}}
}

func (c *fakeConn) CreateCommand(text string) Command {
	return &fakeCommand{conn: c, text: text, params: NewParameters()}
}

// fakeContextConn adds the cancellable methods.
type fakeContextConn struct {
	*fakeConn
}

func (c *fakeContextConn) OpenContext(ctx context.Context) error {
	c.rec.add("open-context")
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeConn.Open()
}

func (c *fakeContextConn) BeginContext(ctx context.Context, opts *sql.TxOptions) (Transaction, error) {
	c.rec.add("begin-context")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.fakeConn.Begin(opts)
}

type fakeTx struct {
	rec  *recorder
	done bool
}

func (tx *fakeTx) Commit() error {
	tx.rec.add("commit")
	tx.done = true
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.rec.add("rollback")
	tx.done = true
	return nil
}

func (tx *fakeTx) Done() bool { return tx.done }

func (tx *fakeTx) Close() error {
	tx.rec.add("tx-close")
	if !tx.done {
		return tx.Rollback()
	}
	return nil
}

type fakeCommand struct {
	conn         Connection
	scalar       any
	scalarErr    error
	execErr      error
	readerErr    error
	params       *Parameters
	text         string
	columns      []ColumnInfo
	rows         [][]any
	affected     int64
	lastBehavior CommandBehavior
	contextCalls int
}

func (c *fakeCommand) Connection() Connection  { return c.conn }
func (c *fakeCommand) Text() string            { return c.text }
func (c *fakeCommand) Parameters() *Parameters { return c.params }

func (c *fakeCommand) CreateParameter() *Parameter {
	return &Parameter{}
}

func (c *fakeCommand) ExecuteNonQuery() (int64, error) {
	if c.conn.State() != StateOpen {
		return 0, sql.ErrConnDone
	}
	return c.affected, c.execErr
}

func (c *fakeCommand) ExecuteScalar() (any, error) {
	if c.conn.State() != StateOpen {
		return nil, sql.ErrConnDone
	}
	return c.scalar, c.scalarErr
}

func (c *fakeCommand) ExecuteReader(behavior CommandBehavior) (Reader, error) {
	c.lastBehavior = behavior
	if c.readerErr != nil {
		return nil, c.readerErr
	}
	if c.conn.State() != StateOpen {
		return nil, sql.ErrConnDone
	}
	r := &fakeReader{columns: c.columns, rows: c.rows, pos: -1}
	if behavior.Has(BehaviorCloseConnection) {
		r.conn = c.conn
	}
	return r, nil
}

// fakeContextCommand counts calls made through the cancellable methods.
type fakeContextCommand struct {
	*fakeCommand
}

func (c *fakeContextCommand) ExecuteNonQueryContext(ctx context.Context) (int64, error) {
	c.contextCalls++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ExecuteNonQuery()
}

func (c *fakeContextCommand) ExecuteScalarContext(ctx context.Context) (any, error) {
	c.contextCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ExecuteScalar()
}

func (c *fakeContextCommand) ExecuteReaderContext(ctx context.Context, behavior CommandBehavior) (Reader, error) {
	c.contextCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ExecuteReader(behavior)
}

type fakeReader struct {
	conn    Connection
	err     error
	columns []ColumnInfo
	rows    [][]any
	pos     int
	closed  bool
}

func (r *fakeReader) Columns() ([]ColumnInfo, error) { return r.columns, nil }

func (r *fakeReader) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeReader) Values() ([]any, error) {
	return r.rows[r.pos], nil
}

func (r *fakeReader) Scan(dest ...any) error {
	for i, d := range dest {
		if p, ok := d.(*any); ok {
			*p = r.rows[r.pos][i]
		}
	}
	return nil
}

func (r *fakeReader) Err() error { return r.err }

func (r *fakeReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
