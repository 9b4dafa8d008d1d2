package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VatsalSy/dbscope/internal/app"
	"github.com/VatsalSy/dbscope/internal/bench"
	"github.com/VatsalSy/dbscope/internal/config"
	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
	"github.com/VatsalSy/dbscope/pkg/sqlxconn"
)

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{raw: "42", want: int64(42)},
		{raw: "-7", want: int64(-7)},
		{raw: "0", want: int64(0)},
		{raw: "007", want: "007"},
		{raw: "1.5", want: 1.5},
		{raw: "2e3", want: 2000.0},
		{raw: "true", want: true},
		{raw: "FALSE", want: false},
		{raw: "null", want: nil},
		{raw: "'42'", want: "42"},
		{raw: "alice", want: "alice"},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseParamValue(tt.raw))
		})
	}
}

func TestBindParams(t *testing.T) {
	command := sqlxconn.NewCommand(nil, "SELECT 1")

	err := bindParams(command, []string{"id=3", "name='bob'", "nothing=null", "17"})
	require.NoError(t, err)

	ps := command.Parameters()
	require.Equal(t, 4, ps.Len())

	id, ok := ps.Get("@id")
	require.True(t, ok)
	assert.Equal(t, int64(3), id.Value)
	assert.Equal(t, data.DbTypeInt64, id.Type)

	name, ok := ps.Get("name")
	require.True(t, ok)
	assert.Equal(t, "bob", name.Value)

	nothing, ok := ps.Get("nothing")
	require.True(t, ok)
	assert.Equal(t, data.DBNull, nothing.Value)

	positional := ps.All()[3]
	assert.Empty(t, positional.Name)
	assert.Equal(t, int64(17), positional.Value)

	err = bindParams(command, []string{"=5"})
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	color.NoColor = true

	table := data.NewDataTable("people")
	_, err := table.AddColumn("id", data.DbTypeInt64)
	require.NoError(t, err)
	_, err = table.AddColumn("name", data.DbTypeString)
	require.NoError(t, err)
	_, err = table.AddRow(int64(1), "alice")
	require.NoError(t, err)
	_, err = table.AddRow(int64(2), nil)
	require.NoError(t, err)
	deleted, err := table.AddRow(int64(3), "carol")
	require.NoError(t, err)
	table.AcceptChanges()
	deleted.Delete()

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, table, renderOptions{Format: "csv", NullText: "NULL"}))
		out := buf.String()
		assert.Contains(t, out, "1,alice\n")
		assert.Contains(t, out, "2,NULL\n")
		assert.NotContains(t, out, "carol")
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, table, renderOptions{Format: "markdown", NullText: "-"}))
		out := buf.String()
		assert.Contains(t, out, "| id | name |")
		assert.Contains(t, out, "| 2 | - |")
		assert.NotContains(t, out, "carol")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, table, renderOptions{Format: "table", NullText: "NULL"}))
		assert.Contains(t, buf.String(), "alice")
		assert.Contains(t, buf.String(), "NULL")
	})

	t.Run("html", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, table, renderOptions{Format: "html"}))
		assert.Contains(t, buf.String(), "<table")
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, renderTable(&buf, table, renderOptions{Format: "xml"}))
	})
}

func TestFormatScalar(t *testing.T) {
	s := "text"
	var nilString *string
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	assert.Equal(t, "NULL", formatScalar(nil, "NULL"))
	assert.Equal(t, "NULL", formatScalar(data.DBNull, "NULL"))
	assert.Equal(t, "NULL", formatScalar(nilString, "NULL"))
	assert.Equal(t, "text", formatScalar(&s, "NULL"))
	assert.Equal(t, "42", formatScalar(int64(42), "NULL"))
	assert.Equal(t, id.String(), formatScalar(id, "NULL"))
	assert.Equal(t, "2025-02-03T04:05:06Z", formatScalar(ts, "NULL"))
	assert.Equal(t, "0x0aff", formatScalar([]byte{0x0a, 0xff}, "NULL"))
}

func TestScalarTypes(t *testing.T) {
	conn := openTestConn(t)

	tests := []struct {
		as   string
		sql  string
		want string
	}{
		{as: "int64", sql: "SELECT 6 * 7", want: "42"},
		{as: "string", sql: "SELECT 'hi'", want: "hi"},
		{as: "*string", sql: "SELECT NULL", want: "NULL"},
		{as: "bool", sql: "SELECT 1", want: "true"},
		{as: "decimal", sql: "SELECT '1.25'", want: "1.25"},
		{as: "any", sql: "SELECT NULL", want: "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.as, func(t *testing.T) {
			fn, ok := scalarTypes[tt.as]
			require.True(t, ok)

			value, err := fn(context.Background(), conn.CreateCommand(tt.sql))
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatScalar(value, "NULL"))
			assert.Equal(t, data.StateClosed, conn.State())
		})
	}

	_, err := scalarTypes["int"](context.Background(), conn.CreateCommand("SELECT NULL"))
	assert.Error(t, err, "NULL cannot become a non-nullable int")
}

func TestScalarBench(t *testing.T) {
	conn := openTestConn(t)

	ticks := 0
	stats, err := runScalarBench(context.Background(), conn.CreateCommand("SELECT 1"), bench.Options{
		Iterations: 5,
		OnResult:   func(error) { ticks++ },
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Executions)
	assert.Zero(t, stats.Failures)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, data.StateClosed, conn.State())

	stats, err = runScalarBench(context.Background(), conn.CreateCommand("SELECT * FROM missing"), bench.Options{Iterations: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Failures)
	assert.Zero(t, stats.Executions)
	assert.Equal(t, data.StateClosed, conn.State())

	var buf bytes.Buffer
	renderBench(&buf, stats)
	assert.Contains(t, buf.String(), "3 executions failed")
}

func openTestConn(t *testing.T) *sqlxconn.Conn {
	t.Helper()

	cfg := sqlxconn.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "cli.db")
	db, err := sqlxconn.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db.NewConnection()
}

func TestLoggedPassesThroughResult(t *testing.T) {
	setupApplication(t)

	cmd := &cobra.Command{Use: "query"}
	var gotArgs []string
	err := logged(func(c *cobra.Command, args []string) error {
		gotArgs = args
		return nil
	})(cmd, []string{"SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, gotArgs)

	boom := errors.NewSimple("boom")
	err = logged(func(*cobra.Command, []string) error { return boom })(cmd, nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewCommandBindsParams(t *testing.T) {
	setupApplication(t)

	params = []string{"n=41"}
	t.Cleanup(func() { params = nil })

	command, err := newCommand("SELECT @n + 1")
	require.NoError(t, err)

	n, err := data.ExecuteScalarAutoAsContext[int64](context.Background(), command)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func setupApplication(t *testing.T) {
	t.Helper()

	v := viper.New()
	config.SetViperDefaults(v)
	v.Set("database.dsn", filepath.Join(t.TempDir(), "cli.db"))
	v.Set("log.level", "error")
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)

	a, err := app.New()
	require.NoError(t, err)
	require.NoError(t, a.InitializeWithConfig(cfg))

	application = a
	t.Cleanup(func() {
		_ = a.Stop()
		application = nil
	})
}
