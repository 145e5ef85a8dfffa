package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// VerboseChecker interface for checking verbose state
type VerboseChecker interface {
	IsVerbose() bool
}

// Options configures the shared log sink
type Options struct {
	Level  string    // debug|info|warn|error
	Format string    // text|json
	Writer io.Writer // defaults to stderr
}

var (
	baseMu sync.RWMutex
	base   = newBase(Options{})
)

// Configure replaces the sink used by every Logger, including ones created earlier.
func Configure(opts Options) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = newBase(opts)
}

func newBase(opts Options) zerolog.Logger {
	var w io.Writer = opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: opts.Writer != nil}
	}
	return zerolog.New(w).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func current() zerolog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// Logger provides structured logging with verbose support
type Logger struct {
	component      string
	verboseChecker VerboseChecker
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger instance
func New(component string, verboseChecker VerboseChecker) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: verboseChecker,
	}
}

// NewWithCallback creates a new logger instance with a callback function
func NewWithCallback(component string, verboseCheck func() bool) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: &callbackChecker{callback: verboseCheck},
	}
}

// Quiet returns a logger that drops debug and info lines and still reports
// warnings and errors. Packages fall back to it when no logger is supplied.
func Quiet(component string) *Logger {
	return New(component, nil)
}

// WithComponent creates a logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: l.verboseChecker,
	}
}

// callbackChecker implements VerboseChecker with a callback function
type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	if c.callback == nil {
		return false
	}
	return c.callback()
}

func (l *Logger) verbose() bool {
	return l != nil && l.verboseChecker != nil && l.verboseChecker.IsVerbose()
}

// Debug logs debug messages (only when verbose=true)
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.verbose() {
		l.log(zerolog.DebugLevel, msg, nil, args...)
	}
}

// Info logs informational messages (only when verbose=true)
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.verbose() {
		l.log(zerolog.InfoLevel, msg, nil, args...)
	}
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(zerolog.WarnLevel, msg, nil, args...)
}

// Error logs error messages (always shown)
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(zerolog.ErrorLevel, msg, nil, args...)
}

// DebugWithFields logs debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.log(zerolog.DebugLevel, msg, fields, args...)
	}
}

// InfoWithFields logs info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.log(zerolog.InfoLevel, msg, fields, args...)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.log(zerolog.WarnLevel, msg, fields, args...)
}

func (l *Logger) log(level zerolog.Level, msg string, fields []Field, args ...interface{}) {
	component := "main"
	if l != nil && l.component != "" {
		component = l.component
	}

	zl := current()
	event := zl.WithLevel(level)
	if event == nil {
		return
	}
	event = event.Str("component", component)
	for _, field := range fields {
		event = event.Interface(field.Key, field.Value)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	event.Msg(msg)
}

// Helper functions for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
