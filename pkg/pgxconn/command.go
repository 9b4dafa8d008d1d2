package pgxconn

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// Command is a statement bound to a Conn. If any parameter is named, all
// parameters are sent as pgx.NamedArgs and the text refers to them as
// @name. Otherwise they are sent positionally as $1, $2, ...
type Command struct {
	conn   *Conn
	params *data.Parameters
	text   string
}

// Ensure *Command implements data.ContextCommand.
var _ data.ContextCommand = (*Command)(nil)

func NewCommand(conn *Conn, text string) *Command {
	return &Command{conn: conn, text: text, params: data.NewParameters()}
}

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
	q, err := c.querier()
	if err != nil {
		return 0, err
	}

	tag, err := q.Exec(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return 0, errors.FromDriver("exec", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Command) ExecuteScalar() (any, error) {
	return c.ExecuteScalarContext(context.Background())
}

// ExecuteScalarContext returns the first column of the first row, DBNull for
// SQL NULL and nil when there are no rows.
func (c *Command) ExecuteScalarContext(ctx context.Context) (any, error) {
	q, err := c.querier()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return nil, errors.FromDriver("scalar", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.FromDriver("scalar", rows.Err())
	}
	values, err := rows.Values()
	if err != nil {
		return nil, errors.FromDriver("scalar", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	v := normalizeValue(values[0])
	if v == nil {
		return data.DBNull, nil
	}
	return v, nil
}

func (c *Command) ExecuteReader(behavior data.CommandBehavior) (data.Reader, error) {
	return c.ExecuteReaderContext(context.Background(), behavior)
}

func (c *Command) ExecuteReaderContext(ctx context.Context, behavior data.CommandBehavior) (data.Reader, error) {
	q, err := c.querier()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, c.text, c.args()...)
	if err != nil {
		c.conn.markBroken(err)
		return nil, errors.FromDriver("reader", err)
	}
	return &Reader{rows: rows, conn: c.conn, behavior: behavior}, nil
}

func (c *Command) querier() (querier, error) {
	if c.conn == nil {
		return nil, errors.InvalidOperation("execute", errors.ErrNoConnection)
	}
	return c.conn.querier()
}

// args converts the parameter collection. PostgreSQL has no output
// parameters, so every direction except ReturnValue is sent as input.
func (c *Command) args() []any {
	params := c.params.All()

	named := false
	for _, p := range params {
		if strings.TrimLeft(p.Name, "@:$") != "" {
			named = true
			break
		}
	}

	if named {
		na := pgx.NamedArgs{}
		for _, p := range params {
			if p.Direction == data.DirectionReturnValue {
				continue
			}
			na[strings.TrimLeft(p.Name, "@:$")] = argValue(p.Value)
		}
		return []any{na}
	}

	args := make([]any, 0, len(params))
	for _, p := range params {
		if p.Direction == data.DirectionReturnValue {
			continue
		}
		args = append(args, argValue(p.Value))
	}
	return args
}

func argValue(v any) any {
	if data.IsNull(v) {
		return nil
	}
	return v
}
