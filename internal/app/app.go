/**
 * Application Coordinator for dbscope
 *
 * Features:
 * - Configuration and logger initialization
 * - Connection construction for the configured driver
 * - Graceful shutdown handling
 * - Signal handling (SIGINT/SIGTERM)
 *
 * Author: dbscope Team
 * Updated: 2025-02-07
 */

package app

import (
	"context"
	"database/sql"
	"io"
	"os"
	"sync"

	"github.com/spf13/viper"

	"github.com/VatsalSy/dbscope/internal/config"
	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/internal/logger"
	"github.com/VatsalSy/dbscope/pkg/data"
	"github.com/VatsalSy/dbscope/pkg/pgxconn"
	"github.com/VatsalSy/dbscope/pkg/sqlxconn"
)

// App is the main application coordinator.
type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlxconn.DB
	logFile       io.Closer
	ctx           context.Context
	cancel        context.CancelFunc
	shutdownChan  chan struct{}
	mu            sync.RWMutex
	ctxOnce       sync.Once
	shutdownOnce  sync.Once
	isInitialized bool
}

// New creates a new application instance.
func New() (*App, error) {
	return &App{
		shutdownChan: make(chan struct{}),
	}, nil
}

// Initialize loads configuration from cfgFile (or the default location)
// and initializes the application with it.
func (app *App) Initialize(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	return app.InitializeWithConfig(cfg)
}

// InitializeWithConfig initializes the application with cfg.
func (app *App) InitializeWithConfig(cfg *config.Config) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.isInitialized {
		return errors.Errorf("application already initialized")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	app.config = cfg

	output, closer, err := logOutput(cfg.Log)
	if err != nil {
		return err
	}
	app.logFile = closer

	logConfig := &logger.Config{
		Level:         cfg.Log.Level,
		Output:        output,
		Pretty:        cfg.Log.Format == "pretty",
		IncludeCaller: cfg.Log.Level == "trace",
		TimeFormat:    "15:04:05",
	}
	logger.Init(logConfig)
	app.logger = logger.Global()

	app.logger.Debug("Initializing dbscope",
		"version", cfg.Version,
		"config", viper.ConfigFileUsed(),
		"driver", cfg.Database.Driver,
	)

	app.isInitialized = true
	return nil
}

// Config returns the loaded configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *App) Logger() *logger.Logger {
	if app.logger == nil {
		return logger.Global()
	}
	return app.logger
}

// Context returns a context that is cancelled on SIGINT/SIGTERM or Stop.
// The application logger travels with it.
func (app *App) Context() context.Context {
	app.ctxOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		app.ctx = app.Logger().WithContext(ctx)
		app.cancel = cancel
		go app.handleSignals(cancel)
	})
	return app.ctx
}

// NewConnection returns a closed connection for the configured driver.
// SQLite connections are checked out of a pool opened on first use.
func (app *App) NewConnection() (data.Connection, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if !app.isInitialized {
		return nil, errors.Errorf("application not initialized")
	}

	db := app.config.Database
	switch db.Driver {
	case "pgx", "postgres":
		conn := pgxconn.New(pgxconn.Dial(db.DSN))
		if timeout := app.config.ConnectTimeout(); timeout > 0 {
			conn.ConnectTimeout = timeout
		}
		return conn, nil

	case "sqlite3":
		if app.db == nil {
			pool, err := sqlxconn.Open(sqlxconn.DBConfig{
				Driver:         db.Driver,
				DSN:            db.DSN,
				MaxOpenConns:   db.MaxOpenConns,
				MaxIdleConns:   db.MaxIdleConns,
				MaxIdleTime:    app.config.MaxIdleTime(),
				ConnectTimeout: app.config.ConnectTimeout(),
			})
			if err != nil {
				return nil, errors.Wrap(err, "failed to open database")
			}
			app.db = pool
			app.logger.Debug("Database pool opened", "dsn", db.DSN)
		}
		return app.db.NewConnection(), nil
	}

	return nil, errors.Configuration("database.driver", errors.Errorf("unknown driver %q", db.Driver))
}

// ScopeOptions returns the scope options selected by the query section of
// the configuration. transaction forces a transaction even when the
// configuration does not ask for one.
func (app *App) ScopeOptions(transaction bool) ([]data.ScopeOption, error) {
	opts := []data.ScopeOption{data.WithLogger(app.Logger())}

	if !transaction && !app.config.Query.Transaction {
		return opts, nil
	}

	level, err := app.config.Isolation()
	if err != nil {
		return nil, err
	}
	if level == sql.LevelDefault {
		return append(opts, data.WithTransaction()), nil
	}
	return append(opts, data.WithIsolation(level)), nil
}

// QueryContext derives a context bounded by query.timeout from parent.
func (app *App) QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if timeout := app.config.QueryTimeout(); timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// Stop stops the application gracefully.
func (app *App) Stop() error {
	var stopErr error
	app.shutdownOnce.Do(func() {
		close(app.shutdownChan)

		app.mu.Lock()
		defer app.mu.Unlock()

		if app.cancel != nil {
			app.cancel()
		}

		if app.db != nil {
			if err := app.db.Close(); err != nil {
				app.Logger().Error(err, "Failed to close database pool")
				stopErr = err
			}
			app.db = nil
		}

		app.Logger().Debug("dbscope shutdown complete")

		if app.logFile != nil {
			stopErr = errors.Join(stopErr, app.logFile.Close())
			app.logFile = nil
		}
	})

	return stopErr
}

// Private methods

func (app *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	app.setupSignalHandling(sigChan)
	defer app.stopSignalHandling(sigChan)

	select {
	case sig := <-sigChan:
		app.Logger().Info("Received signal", "signal", sig)
		cancel()
	case <-app.shutdownChan:
		cancel()
	}
}

func logOutput(cfg config.LogConfig) (io.Writer, io.Closer, error) {
	switch cfg.Output {
	case "stdout":
		return os.Stdout, nil, nil
	case "file":
		maxSize := int64(cfg.MaxSize) * 1024 * 1024
		fw, err := logger.NewFileWriter(cfg.File, maxSize, cfg.MaxBackups)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open log file")
		}
		return fw, fw, nil
	default:
		return os.Stderr, nil, nil
	}
}
