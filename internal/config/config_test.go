package config

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetViperDefaults(v)
	return v
}

func TestLoadDefaultConfig(t *testing.T) {
	viper.Reset()
	cfg, err := Load(filepath.Join(t.TempDir(), "non_existent_config.yaml"))
	require.NoError(t, err, "Load() with non-existent path should not produce an error")
	require.NotNil(t, cfg)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(DataDir(), "dbscope.db"), cfg.Database.DSN)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "NULL", cfg.Output.NullText)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Bench.Iterations)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout())
	assert.NoError(t, cfg.Validate())
	assert.Same(t, cfg, Get())
}

func TestLoadFromFile(t *testing.T) {
	v := newTestViper()

	tempConfigFile := filepath.Join(t.TempDir(), "test_config.yaml")
	configContent := `
database:
  driver: pgx
  dsn: "postgres://localhost/app"
  connect_timeout: 3
query:
  load_option: upsert
  isolation: serializable
  transaction: true
output:
  format: markdown
log:
  level: debug
`
	require.NoError(t, os.WriteFile(tempConfigFile, []byte(configContent), 0600))

	v.SetConfigFile(tempConfigFile)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.DSN)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout())
	assert.True(t, cfg.Query.Transaction)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Log.Level)

	opt, err := cfg.LoadOption()
	require.NoError(t, err)
	assert.Equal(t, data.LoadUpsert, opt)

	level, err := cfg.Isolation()
	require.NoError(t, err)
	assert.Equal(t, sql.LevelSerializable, level)

	// Not in the file
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.MaxIdleTime())
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("DBSCOPE_DATABASE_DSN", "file:env.db")
	t.Setenv("DBSCOPE_BENCH_ITERATIONS", "7")

	v := newTestViper()
	v.SetEnvPrefix("DBSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "file:env.db", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.Bench.Iterations)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:env.db", cfg.GetString("database.dsn"))
}

func TestLoadFromViperFillsEmptyFields(t *testing.T) {
	cfg, err := LoadFromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "preserve", cfg.Query.LoadOption)
	assert.Equal(t, "default", cfg.Query.Isolation)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		key    string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "unknown driver", modify: func(c *Config) { c.Database.Driver = "oracle" }, key: "database.driver"},
		{name: "empty dsn", modify: func(c *Config) { c.Database.DSN = "" }, key: "database.dsn"},
		{name: "unknown format", modify: func(c *Config) { c.Output.Format = "xml" }, key: "output.format"},
		{name: "unknown log output", modify: func(c *Config) { c.Log.Output = "syslog" }, key: "log.output"},
		{name: "file output without path", modify: func(c *Config) { c.Log.Output = "file" }, key: "log.file"},
		{name: "unknown load option", modify: func(c *Config) { c.Query.LoadOption = "merge" }, key: "load_option"},
		{name: "unknown isolation", modify: func(c *Config) { c.Query.Isolation = "chaos" }, key: "isolation"},
		{name: "zero iterations", modify: func(c *Config) { c.Bench.Iterations = 0 }, key: "bench.iterations"},
		{name: "negative rate", modify: func(c *Config) { c.Bench.Rate = -1 }, key: "bench.rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromViper(newTestViper())
			require.NoError(t, err)
			tt.modify(cfg)

			err = cfg.Validate()
			if tt.key == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeConfiguration, errors.GetErrorType(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	viper.Reset()
	tempSavePath := filepath.Join(t.TempDir(), "nested", "saved_config.yaml")

	viper.Set("database.driver", "pgx")
	viper.Set("bench.iterations", 12)
	viper.SetConfigFile(tempSavePath)

	require.NoError(t, Save())

	readerViper := viper.New()
	readerViper.SetConfigFile(tempSavePath)
	require.NoError(t, readerViper.ReadInConfig())

	assert.Equal(t, "pgx", readerViper.GetString("database.driver"))
	assert.Equal(t, 12, readerViper.GetInt("bench.iterations"))
}

func TestConfigPath(t *testing.T) {
	viper.Reset()
	assert.Equal(t, filepath.Join(DataDir(), "config.yaml"), ConfigPath())

	customConfigPath := filepath.Join(t.TempDir(), "custom_config.yaml")
	viper.SetConfigFile(customConfigPath)
	assert.Equal(t, customConfigPath, ConfigPath())
	viper.Reset()
}

func TestGenericGetters(t *testing.T) {
	v := viper.New()
	v.Set("mykey.string", "testval")
	v.Set("mykey.int", 123)
	v.Set("mykey.durationsec", 5)

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "testval", cfg.GetString("mykey.string"))
	assert.Equal(t, 123, cfg.GetInt("mykey.int"))
	assert.Equal(t, 5*time.Second, cfg.GetDuration("mykey.durationsec"))
}
