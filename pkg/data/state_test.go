package data

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VatsalSy/dbscope/internal/errors"
)

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "Broken", StateBroken.String())
	assert.Equal(t, "ConnectionState(42)", ConnectionState(42).String())
}

func TestCommandBehavior_Has(t *testing.T) {
	b := BehaviorSingleRow | BehaviorCloseConnection

	assert.True(t, b.Has(BehaviorSingleRow))
	assert.True(t, b.Has(BehaviorCloseConnection))
	assert.False(t, BehaviorSingleRow.Has(BehaviorCloseConnection))
	assert.NotEqual(t, BehaviorSingleRow, BehaviorCloseConnection)
}

func TestParseIsolationLevel(t *testing.T) {
	tests := []struct {
		in   string
		want sql.IsolationLevel
	}{
		{"", sql.LevelDefault},
		{"read_committed", sql.LevelReadCommitted},
		{"Read Committed", sql.LevelReadCommitted},
		{"repeatable-read", sql.LevelRepeatableRead},
		{"SERIALIZABLE", sql.LevelSerializable},
		{"snapshot", sql.LevelSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIsolationLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseIsolationLevel("chaos")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfiguration, errors.GetErrorType(err))
}

func TestParseLoadOption(t *testing.T) {
	tests := []struct {
		in   string
		want LoadOption
	}{
		{"", LoadPreserveChanges},
		{"preserve", LoadPreserveChanges},
		{"PreserveChanges", LoadPreserveChanges},
		{"overwrite_changes", LoadOverwriteChanges},
		{"Overwrite", LoadOverwriteChanges},
		{"upsert", LoadUpsert},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLoadOption(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLoadOption("merge")
	assert.Equal(t, errors.ErrorTypeConfiguration, errors.GetErrorType(err))
	assert.Equal(t, "PreserveChanges", LoadOption(0).String())
}
