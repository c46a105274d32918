// Package driverlog is the driver's internal logging glue. It keeps the
// teacher's leveled Trace/Info/Error surface (log/log.go) but backs it with
// a zap.SugaredLogger so the driver's log lines (handshake completion,
// HELLO success, liveness-RESET and connection-release failures) are
// structured key/value records instead of formatted strings.
//
// This is intentionally the thinnest possible collaborator: spec §1 lists
// "logging glue" as out of scope for the hard core, so there is no
// env/file-driven configuration here, only an injection point.
package driverlog

import "go.uber.org/zap"

// Level mirrors the teacher's LogLevel enum (log/log.go).
type Level int

const (
	NoneLevel Level = iota
	ErrorLevel
	InfoLevel
	TraceLevel
)

// Logger is the driver-wide logging sink. Nil-safe: every method no-ops
// against a nil *Logger so components can hold one without a presence check.
type Logger struct {
	level Level
	sugar *zap.SugaredLogger
}

// New wraps a *zap.Logger at the given level. Pass nil to get a
// no-op logger (NoneLevel, discards everything).
func New(z *zap.Logger, level Level) *Logger {
	if z == nil {
		return &Logger{level: NoneLevel}
	}
	return &Logger{level: level, sugar: z.Sugar()}
}

// NewNop returns a logger that discards everything, used as the driver's
// zero-value default.
func NewNop() *Logger {
	return &Logger{level: NoneLevel}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.sugar != nil && l.level >= level
}

func (l *Logger) Trace(msg string, kv ...interface{}) {
	if l.enabled(TraceLevel) {
		l.sugar.Debugw(msg, kv...)
	}
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	if l.enabled(InfoLevel) {
		l.sugar.Infow(msg, kv...)
	}
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	if l.enabled(ErrorLevel) {
		l.sugar.Errorw(msg, kv...)
	}
}
