package sqlxconn

import (
	"context"
	"database/sql"
	"strings"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// Command is a statement bound to a Conn. Parameters with a name are sent
// as sql.Named arguments and unnamed ones positionally, in order.
type Command struct {
	conn   *Conn
	params *data.Parameters
	text   string
}

// Ensure *Command implements data.ContextCommand.
var _ data.ContextCommand = (*Command)(nil)

// NewCommand returns a command with the given text bound to conn.
func NewCommand(conn *Conn, text string) *Command {
	return &Command{conn: conn, text: text, params: data.NewParameters()}
}

// Connection returns the bound connection, or nil if there is none.
func (c *Command) Connection() data.Connection {
	if c.conn == nil {
		return nil
	}
	return c.conn
}

func (c *Command) Text() string                 { return c.text }
func (c *Command) Parameters() *data.Parameters { return c.params }

func (c *Command) CreateParameter() *data.Parameter {
	return &data.Parameter{Direction: data.DirectionInput, Type: data.DbTypeObject}
}

func (c *Command) ExecuteNonQuery() (int64, error) {
	return c.ExecuteNonQueryContext(context.Background())
}

func (c *Command) ExecuteNonQueryContext(ctx context.Context) (int64, error) {
	ex, err := c.execer()
	if err != nil {
		return 0, err
	}

	res, err := ex.ExecContext(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return 0, errors.FromDriver("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.FromDriver("rows affected", err)
	}
	return n, nil
}

func (c *Command) ExecuteScalar() (any, error) {
	return c.ExecuteScalarContext(context.Background())
}

// ExecuteScalarContext returns the first column of the first row, DBNull for
// SQL NULL and nil when there are no rows.
func (c *Command) ExecuteScalarContext(ctx context.Context) (any, error) {
	ex, err := c.execer()
	if err != nil {
		return nil, err
	}

	rows, err := ex.QueryxContext(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return nil, errors.FromDriver("scalar", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.FromDriver("scalar", rows.Err())
	}
	values, err := rows.SliceScan()
	if err != nil {
		return nil, errors.FromDriver("scalar", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	if values[0] == nil {
		return data.DBNull, nil
	}
	return values[0], nil
}

func (c *Command) ExecuteReader(behavior data.CommandBehavior) (data.Reader, error) {
	return c.ExecuteReaderContext(context.Background(), behavior)
}

// ExecuteReaderContext runs the query and returns a reader over its rows.
// With BehaviorCloseConnection, closing the reader closes the connection.
func (c *Command) ExecuteReaderContext(ctx context.Context, behavior data.CommandBehavior) (data.Reader, error) {
	ex, err := c.execer()
	if err != nil {
		return nil, err
	}

	rows, err := ex.QueryxContext(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return nil, errors.FromDriver("reader", err)
	}
	return &Reader{rows: rows, conn: c.conn, behavior: behavior}, nil
}

func (c *Command) execer() (execer, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("execute", errors.ErrNoConnection)
	}
	return c.conn.execer()
}

// args converts the parameter collection to database/sql arguments. DBNull
// becomes nil and return-value parameters are not sent.
func (c *Command) args() []any {
	params := c.params.All()
	args := make([]any, 0, len(params))

	for _, p := range params {
		if p.Direction == data.DirectionReturnValue {
			continue
		}

		value := p.Value
		if data.IsNull(value) {
			value = nil
		}

		name := strings.TrimLeft(p.Name, "@:$")
		switch {
		case name == "":
			args = append(args, value)
		case p.Direction == data.DirectionOutput || p.Direction == data.DirectionInputOutput:
			p.Value = value
			args = append(args, sql.Named(name, sql.Out{
				Dest: &p.Value,
				In:   p.Direction == data.DirectionInputOutput,
			}))
		default:
			args = append(args, sql.Named(name, value))
		}
	}
	return args
}
