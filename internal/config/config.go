package config

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

var (
	once   sync.Once
	config *Config
)

// Config represents the application configuration
type Config struct {
	// Database connection
	Database DatabaseConfig `mapstructure:"database"`

	// Query execution
	Query QueryConfig `mapstructure:"query"`

	// Result rendering
	Output OutputConfig `mapstructure:"output"`

	// Benchmark loop
	Bench BenchConfig `mapstructure:"bench"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Application
	Version string `mapstructure:"version"`

	viper *viper.Viper
}

// DatabaseConfig contains connection settings
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"` // sqlite3, pgx, postgres
	DSN            string `mapstructure:"dsn"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MaxIdleTime    int    `mapstructure:"max_idle_time"`   // seconds
	ConnectTimeout int    `mapstructure:"connect_timeout"` // seconds
}

// QueryConfig contains statement execution settings
type QueryConfig struct {
	Timeout     int    `mapstructure:"timeout"`      // seconds, 0 = none
	LoadOption  string `mapstructure:"load_option"`  // overwrite, preserve, upsert
	Isolation   string `mapstructure:"isolation"`    // default, read_committed, serializable, ...
	Transaction bool   `mapstructure:"transaction"`
}

// OutputConfig contains result rendering settings
type OutputConfig struct {
	Format   string `mapstructure:"format"` // table, csv, markdown, html
	NullText string `mapstructure:"null_text"`
	Color    bool   `mapstructure:"color"`
}

// BenchConfig contains benchmark settings
type BenchConfig struct {
	Iterations int     `mapstructure:"iterations"`
	Rate       float64 `mapstructure:"rate"` // iterations per second, 0 = unlimited
}

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, pretty
	Output     string `mapstructure:"output"` // stderr, stdout, file
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
}

var (
	validDrivers = []string{"sqlite3", "pgx", "postgres"}
	validFormats = []string{"table", "csv", "markdown", "html"}
	validOutputs = []string{"stderr", "stdout", "file"}
)

// Load initializes and loads the configuration
func Load(cfgFile ...string) (*Config, error) {
	once.Do(func() {
		configFile := ""
		if len(cfgFile) > 0 {
			configFile = cfgFile[0]
		}
		initViper(configFile)
	})

	cfg, err := LoadFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	config = cfg
	return cfg, nil
}

// LoadFromViper unmarshals the configuration held by v.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Configuration("config", errors.Wrap(err, "failed to unmarshal config"))
	}

	setDefaults(cfg)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	if config == nil {
		config, _ = Load("")
	}
	return config
}

// Save writes the current configuration to file
func Save() error {
	configFile := ConfigPath()

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Configuration("config", errors.Wrap(err, "failed to create config directory"))
	}

	return viper.WriteConfigAs(configFile)
}

// initViper sets up viper configuration
func initViper(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(DataDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// DBSCOPE_DATABASE_DSN overrides database.dsn
	viper.SetEnvPrefix("DBSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetViperDefaults(viper.GetViper())

	// A missing file leaves defaults and environment in place.
	_ = viper.ReadInConfig()
}

// SetViperDefaults registers the default value of every key on v.
func SetViperDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", filepath.Join(DataDir(), "dbscope.db"))
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_idle_time", 300)
	v.SetDefault("database.connect_timeout", 10)

	// Query defaults
	v.SetDefault("query.timeout", 30)
	v.SetDefault("query.load_option", "preserve")
	v.SetDefault("query.isolation", "default")
	v.SetDefault("query.transaction", false)

	// Output defaults
	v.SetDefault("output.format", "table")
	v.SetDefault("output.null_text", "NULL")
	v.SetDefault("output.color", true)

	// Bench defaults
	v.SetDefault("bench.iterations", 100)
	v.SetDefault("bench.rate", 0)

	// Log defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "pretty")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)

	// Version
	v.SetDefault("version", "0.1.0")
}

// setDefaults ensures all config fields have sensible defaults
func setDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "table"
	}

	if cfg.Query.LoadOption == "" {
		cfg.Query.LoadOption = "preserve"
	}

	if cfg.Query.Isolation == "" {
		cfg.Query.Isolation = "default"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if !contains(validDrivers, c.Database.Driver) {
		return errors.Configuration("database.driver",
			errors.Errorf("unknown driver %q (want one of %s)", c.Database.Driver, strings.Join(validDrivers, ", ")))
	}
	if c.Database.DSN == "" {
		return errors.Configuration("database.dsn", errors.NewSimple("dsn is required"))
	}
	if !contains(validFormats, c.Output.Format) {
		return errors.Configuration("output.format",
			errors.Errorf("unknown format %q (want one of %s)", c.Output.Format, strings.Join(validFormats, ", ")))
	}
	if !contains(validOutputs, c.Log.Output) {
		return errors.Configuration("log.output", errors.Errorf("unknown log output %q", c.Log.Output))
	}
	if c.Log.Output == "file" && c.Log.File == "" {
		return errors.Configuration("log.file", errors.NewSimple("log.file is required when log.output is file"))
	}
	if _, err := c.LoadOption(); err != nil {
		return err
	}
	if _, err := c.Isolation(); err != nil {
		return err
	}
	if c.Bench.Iterations < 1 {
		return errors.Configuration("bench.iterations", errors.Errorf("iterations must be positive, got %d", c.Bench.Iterations))
	}
	if c.Bench.Rate < 0 {
		return errors.Configuration("bench.rate", errors.Errorf("rate must not be negative, got %v", c.Bench.Rate))
	}
	return nil
}

// LoadOption parses query.load_option.
func (c *Config) LoadOption() (data.LoadOption, error) {
	return data.ParseLoadOption(c.Query.LoadOption)
}

// Isolation parses query.isolation.
func (c *Config) Isolation() (sql.IsolationLevel, error) {
	return data.ParseIsolationLevel(c.Query.Isolation)
}

// QueryTimeout returns query.timeout as a duration, 0 meaning none.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Query.Timeout) * time.Second
}

// ConnectTimeout returns database.connect_timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeout) * time.Second
}

// MaxIdleTime returns database.max_idle_time as a duration.
func (c *Config) MaxIdleTime() time.Duration {
	return time.Duration(c.Database.MaxIdleTime) * time.Second
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = filepath.Join(DataDir(), "config.yaml")
	}
	return configFile
}

// DataDir returns the dbscope data directory
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dbscope")
}

// GetString returns a string value from viper
func (c *Config) GetString(key string) string {
	return c.v().GetString(key)
}

// GetInt returns an int value from viper
func (c *Config) GetInt(key string) int {
	return c.v().GetInt(key)
}

// GetDuration returns a duration value from viper, read as seconds
func (c *Config) GetDuration(key string) time.Duration {
	return time.Duration(c.v().GetInt(key)) * time.Second
}

func (c *Config) v() *viper.Viper {
	if c.viper == nil {
		return viper.GetViper()
	}
	return c.viper
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
