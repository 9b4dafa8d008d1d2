package data

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// ConnectionState describes the lifecycle state of a Connection.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateOpen
	StateConnecting
	StateExecuting
	StateFetching
	StateBroken
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateConnecting:
		return "Connecting"
	case StateExecuting:
		return "Executing"
	case StateFetching:
		return "Fetching"
	case StateBroken:
		return "Broken"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// CommandBehavior is a set of flags passed to Command.ExecuteReader.
type CommandBehavior int

const (
	BehaviorDefault CommandBehavior = 0

	// BehaviorSingleRow stops the reader after the first row.
	BehaviorSingleRow CommandBehavior = 1 << iota

	// BehaviorCloseConnection closes the command's connection when the
	// reader is closed.
	BehaviorCloseConnection
)

// Has reports whether all flags in f are set.
func (b CommandBehavior) Has(f CommandBehavior) bool {
	return b&f == f
}

// ParameterDirection tells a provider how a parameter value flows.
type ParameterDirection int

const (
	DirectionInput ParameterDirection = iota
	DirectionOutput
	DirectionInputOutput
	DirectionReturnValue
)

func (d ParameterDirection) String() string {
	switch d {
	case DirectionInput:
		return "Input"
	case DirectionOutput:
		return "Output"
	case DirectionInputOutput:
		return "InputOutput"
	case DirectionReturnValue:
		return "ReturnValue"
	default:
		return fmt.Sprintf("ParameterDirection(%d)", int(d))
	}
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                 sql.LevelDefault,
	"default":          sql.LevelDefault,
	"read_uncommitted": sql.LevelReadUncommitted,
	"read_committed":   sql.LevelReadCommitted,
	"write_committed":  sql.LevelWriteCommitted,
	"repeatable_read":  sql.LevelRepeatableRead,
	"snapshot":         sql.LevelSnapshot,
	"serializable":     sql.LevelSerializable,
	"linearizable":     sql.LevelLinearizable,
}

// ParseIsolationLevel maps configuration names such as "read_committed" or
// "Serializable" to sql.IsolationLevel.
func ParseIsolationLevel(name string) (sql.IsolationLevel, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if level, ok := isolationLevels[key]; ok {
		return level, nil
	}
	return sql.LevelDefault, errors.Configuration("isolation", errors.Errorf("unknown isolation level %q", name))
}
