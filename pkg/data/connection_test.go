package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VatsalSy/dbscope/internal/errors"
)

func TestOpenWithCheck(t *testing.T) {
	tests := []struct {
		name      string
		state     ConnectionState
		wantOpens int
		wantState ConnectionState
	}{
		{"closed is opened", StateClosed, 1, StateOpen},
		{"open is left open", StateOpen, 0, StateOpen},
		{"broken is not touched", StateBroken, 0, StateBroken},
		{"connecting is not touched", StateConnecting, 0, StateConnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.state)

			initial, err := OpenWithCheck(conn)
			require.NoError(t, err)
			assert.Equal(t, tt.state, initial)
			assert.Equal(t, tt.wantOpens, conn.opens)
			assert.Equal(t, tt.wantState, conn.State())
		})
	}
}

func TestOpenWithCheck_NilConnection(t *testing.T) {
	_, err := OpenWithCheck(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
	assert.Equal(t, errors.ErrorTypeInvalidOperation, errors.GetErrorType(err))

	_, err = OpenWithCheckContext(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestOpenWithCheckContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := newFakeConn(StateClosed)
	initial, err := OpenWithCheckContext(ctx, conn)
	require.Error(t, err)
	assert.Equal(t, StateClosed, initial)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, conn.opens)

	open := newFakeConn(StateOpen)
	initial, err = OpenWithCheckContext(ctx, open)
	require.NoError(t, err, "an open connection needs no open call, so cancellation is not observed")
	assert.Equal(t, StateOpen, initial)
}

func TestCloseWithCheck(t *testing.T) {
	tests := []struct {
		name       string
		initial    ConnectionState
		current    ConnectionState
		wantCloses int
	}{
		{"opened by us", StateClosed, StateOpen, 1},
		{"opened by us but already closed", StateClosed, StateClosed, 0},
		{"opened by caller", StateOpen, StateOpen, 0},
		{"broken on entry", StateBroken, StateOpen, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.current)

			require.NoError(t, CloseWithCheck(conn, tt.initial))
			assert.Equal(t, tt.wantCloses, conn.closes)
		})
	}
}

func TestCloseWithCheck_NilConnection(t *testing.T) {
	assert.NoError(t, CloseWithCheck(nil, StateClosed))
}

func TestClone(t *testing.T) {
	conn := newFakeConn(StateOpen)

	clone, err := Clone(conn)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, clone.State())
	assert.NotSame(t, conn, clone)

	_, err = Clone(&fakeContextConn{conn})
	require.NoError(t, err, "capability is promoted through embedding")
}

func TestClone_Unsupported(t *testing.T) {
	_, err := Clone(struct{ Connection }{newFakeConn(StateClosed)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedCapability)
}

func TestCreateCommand(t *testing.T) {
	conn := newFakeConn(StateClosed)

	cmd, err := CreateCommand(conn, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", cmd.Text())
	assert.Same(t, conn, cmd.Connection())

	_, err = CreateCommand(struct{ Connection }{conn}, "SELECT 1")
	assert.ErrorIs(t, err, errors.ErrUnsupportedCapability)
}

func TestAdapters_PassThrough(t *testing.T) {
	cc := &fakeContextConn{newFakeConn(StateClosed)}
	assert.Same(t, cc, AsContextConnection(cc))

	plain := newFakeConn(StateClosed)
	adapted := AsContextConnection(plain)
	require.NotNil(t, adapted)
	require.NoError(t, adapted.OpenContext(context.Background()))
	assert.Equal(t, StateOpen, plain.State())

	assert.Nil(t, AsContextConnection(nil))
	assert.Nil(t, AsContextCommand(nil))
	assert.Nil(t, AsContextReader(nil))
}

func TestReadContext(t *testing.T) {
	r := &fakeReader{rows: [][]any{{1}, {2}}, pos: -1}

	ok, err := ReadContext(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = ReadContext(ctx, r)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)

	ok, err = ReadContext(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ReadContext(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, ok)
}
