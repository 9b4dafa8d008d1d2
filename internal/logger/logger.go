/**
 * Logger Implementation for dbscope
 *
 * Structured logging using zerolog. Library code logs connection lifecycle
 * decisions at trace level; the CLI raises the level with --verbose. Output
 * defaults to stderr because query results are written to stdout.
 *
 * Author: dbscope Team
 * Created: 2025-02-03
 */

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with key/value helpers.
type Logger struct {
	logger zerolog.Logger
	config *Config
}

// Config configures the logger behavior.
type Config struct {
	Output        io.Writer
	Level         string
	TimeFormat    string
	Pretty        bool
	IncludeCaller bool
}

// DefaultConfig logs info and above as JSON to stderr.
var DefaultConfig = &Config{
	Level:      "info",
	Output:     os.Stderr,
	TimeFormat: time.RFC3339,
}

type contextKey struct{}

// New creates a logger from config, or from DefaultConfig when config is nil.
// An unknown level falls back to info.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
			NoColor:    !isTerminal(out),
		}
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if config.IncludeCaller {
		ctx = ctx.CallerWithSkipFrameCount(3)
	}
	return &Logger{logger: ctx.Logger(), config: config}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), config: &Config{Level: "disabled"}}
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext retrieves the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*Logger); ok && l != nil {
			return l
		}
	}
	return Global()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(fields ...interface{}) *Logger {
	child := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			child = child.Interface(key, fields[i+1])
		}
	}
	return &Logger{logger: child.Logger(), config: l.config}
}

func (l *Logger) Trace(msg string, fields ...interface{}) {
	emit(l.logger.Trace(), msg, fields)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	emit(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	emit(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	emit(l.logger.Warn(), msg, fields)
}

// Error logs msg at error level with err attached.
func (l *Logger) Error(err error, msg string, fields ...interface{}) {
	emit(l.logger.Error().Err(err), msg, fields)
}

// emit is a no-op for events below the logger's level, where zerolog hands
// back a nil event.
func emit(event *zerolog.Event, msg string, fields []interface{}) {
	if event == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			event = event.Interface(key, fields[i+1])
		}
	}
	event.Msg(msg)
}

// Operation runs fn, logging its name and duration at debug level, or at
// error level when fn fails. fn's error is returned unchanged.
func (l *Logger) Operation(name string, fn func() error) error {
	start := time.Now()
	l.Debug("operation started", "operation", name)

	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		l.Error(err, "operation failed", "operation", name, "duration", elapsed)
		return err
	}
	l.Debug("operation finished", "operation", name, "duration", elapsed)
	return nil
}

// SetLevel changes the level of l in place. Loggers derived from l before the
// call keep their old level.
func (l *Logger) SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	l.logger = l.logger.Level(parsed)
	return nil
}

var global *Logger

// Init replaces the global logger and points zerolog's log.Logger at it.
func Init(config *Config) {
	global = New(config)
	log.Logger = global.logger
}

// Global returns the global logger, initializing it from DefaultConfig on
// first use.
func Global() *Logger {
	if global == nil {
		Init(DefaultConfig)
	}
	return global
}

// FileWriter appends to a log file and rotates it to name.1, name.2, ...
// once a write would take it past maxSize bytes. maxSize 0 disables
// rotation.
type FileWriter struct {
	file       *os.File
	name       string
	maxSize    int64
	maxBackups int
}

// NewFileWriter opens name for appending, creating its directory if needed.
func NewFileWriter(name string, maxSize int64, maxBackups int) (*FileWriter, error) {
	fw := &FileWriter{name: name, maxSize: maxSize, maxBackups: maxBackups}
	if err := fw.open(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	if fw.maxSize > 0 {
		if info, err := fw.file.Stat(); err == nil && info.Size() > 0 && info.Size()+int64(len(p)) > fw.maxSize {
			if err := fw.rotate(); err != nil {
				return 0, err
			}
		}
	}
	return fw.file.Write(p)
}

func (fw *FileWriter) Close() error {
	if fw.file == nil {
		return nil
	}
	err := fw.file.Close()
	fw.file = nil
	return err
}

func (fw *FileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(fw.name), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(fw.name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fw.file = f
	return nil
}

func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return err
	}
	// The oldest backup is overwritten by the shift.
	for i := fw.maxBackups - 1; i > 0; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fw.name, i), fmt.Sprintf("%s.%d", fw.name, i+1))
	}
	if err := os.Rename(fw.name, fw.name+".1"); err != nil {
		return err
	}
	return fw.open()
}
