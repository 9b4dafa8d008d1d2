package data

import (
	"context"
	"database/sql"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/internal/logger"
)

// Scope guards a borrowed connection for the duration of a unit of work. It
// opens the connection if it was closed, optionally owns a transaction, and
// on Close restores the connection to the state it was found in.
//
// A Scope is not safe for concurrent use.
type Scope struct {
	conn    Connection
	tx      Transaction
	log     *logger.Logger
	initial ConnectionState
	closed  bool
}

type scopeOptions struct {
	txOpts *sql.TxOptions
	log    *logger.Logger
	begin  bool
}

// ScopeOption configures NewScope and NewScopeContext.
type ScopeOption func(*scopeOptions)

// WithTransaction begins a transaction at the provider's default isolation
// level.
func WithTransaction() ScopeOption {
	return func(o *scopeOptions) {
		o.begin = true
	}
}

// WithIsolation begins a transaction at the given isolation level.
func WithIsolation(level sql.IsolationLevel) ScopeOption {
	return func(o *scopeOptions) {
		o.begin = true
		o.txOpts = &sql.TxOptions{Isolation: level}
	}
}

// WithTxOptions begins a transaction with the given options.
func WithTxOptions(opts *sql.TxOptions) ScopeOption {
	return func(o *scopeOptions) {
		o.begin = true
		o.txOpts = opts
	}
}

// WithLogger sets the logger used for lifecycle trace messages.
func WithLogger(l *logger.Logger) ScopeOption {
	return func(o *scopeOptions) {
		o.log = l
	}
}

// NewScope enters a scope over conn. If beginning the transaction fails after
// the connection was opened here, the connection is closed again before the
// error is returned.
func NewScope(conn Connection, opts ...ScopeOption) (*Scope, error) {
	o := buildScopeOptions(opts)
	if o.log == nil {
		o.log = logger.Global()
	}

	initial, err := OpenWithCheck(conn)
	if err != nil {
		return nil, err
	}

	s := &Scope{conn: conn, initial: initial, log: o.log}
	s.log.Trace("scope entered", "initial_state", initial.String(), "opened", initial == StateClosed)

	if o.begin {
		tx, err := conn.Begin(o.txOpts)
		if err != nil {
			return nil, s.abort(errors.FromDriver("begin", err))
		}
		s.tx = tx
	}
	return s, nil
}

// NewScopeContext is NewScope with cancellable open and begin steps. A
// cancelled open leaves the connection closed.
func NewScopeContext(ctx context.Context, conn Connection, opts ...ScopeOption) (*Scope, error) {
	o := buildScopeOptions(opts)
	if o.log == nil {
		o.log = logger.FromContext(ctx)
	}

	initial, err := OpenWithCheckContext(ctx, conn)
	if err != nil {
		return nil, err
	}

	s := &Scope{conn: conn, initial: initial, log: o.log}
	s.log.Trace("scope entered", "initial_state", initial.String(), "opened", initial == StateClosed)

	if o.begin {
		tx, err := AsContextConnection(conn).BeginContext(ctx, o.txOpts)
		if err != nil {
			return nil, s.abort(errors.FromDriver("begin", err))
		}
		s.tx = tx
	}
	return s, nil
}

func buildScopeOptions(opts []ScopeOption) *scopeOptions {
	o := &scopeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (s *Scope) abort(cause error) error {
	s.closed = true
	if err := CloseWithCheck(s.conn, s.initial); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Connection returns the guarded connection.
func (s *Scope) Connection() Connection {
	return s.conn
}

// InitialState returns the connection state recorded when the scope was
// entered.
func (s *Scope) InitialState() ConnectionState {
	return s.initial
}

// Transaction returns the scope's transaction, or nil if none was requested.
func (s *Scope) Transaction() Transaction {
	return s.tx
}

// Close releases the transaction, rolling it back if it was neither committed
// nor rolled back, and then closes the connection if the scope opened it.
// Close is idempotent and safe on a nil Scope.
func (s *Scope) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	var txErr error
	if s.tx != nil {
		txErr = errors.FromDriver("rollback", s.tx.Close())
		s.tx = nil
	}

	closeErr := CloseWithCheck(s.conn, s.initial)
	s.log.Trace("scope closed", "initial_state", s.initial.String(), "state", s.conn.State().String())

	return errors.Join(txErr, closeErr)
}

// RunScope runs fn inside a scope over conn and closes the scope however fn
// returns.
func RunScope(ctx context.Context, conn Connection, fn func(*Scope) error, opts ...ScopeOption) (err error) {
	s, err := NewScopeContext(ctx, conn, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return fn(s)
}

// RunInTransaction runs fn inside a transactional scope. The transaction is
// committed if fn returns nil and rolled back otherwise. fn may commit or roll
// back through s.Transaction() itself; a finished transaction is left alone.
func RunInTransaction(ctx context.Context, conn Connection, fn func(*Scope) error, opts ...ScopeOption) error {
	opts = append([]ScopeOption{WithTransaction()}, opts...)

	return RunScope(ctx, conn, func(s *Scope) error {
		if err := fn(s); err != nil {
			if !txPending(s.tx) {
				return err
			}
			if rbErr := s.tx.Rollback(); rbErr != nil {
				return errors.Join(err, errors.Wrap(rbErr, "rollback failed"))
			}
			return err
		}
		if !txPending(s.tx) {
			s.log.Trace("transaction finished by caller")
			return nil
		}
		return errors.FromDriver("commit", s.tx.Commit())
	}, opts...)
}

// txPending reports whether tx still needs a commit or rollback. A
// transaction that does not implement Done is assumed pending.
func txPending(tx Transaction) bool {
	if d, ok := tx.(interface{ Done() bool }); ok {
		return !d.Done()
	}
	return tx != nil
}
