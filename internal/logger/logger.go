// Package logger is the process-wide leveled logger. It always writes to
// stderr so the stdio transport keeps stdout for protocol frames.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zapcore.Level with an extra trace alias.
type Level = zapcore.Level

const (
	TraceLevel = zapcore.DebugLevel
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
	PanicLevel = zapcore.PanicLevel
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(InfoLevel)
	base   = build(level)
	sugar  = base.Sugar()
	format = "console"
)

func build(lvl zap.AtomicLevel) *zap.Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// ParseLevel converts a flag value into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level: %q", s)
}

// SetLevel changes the level of every logger handed out by this package.
func SetLevel(l Level) {
	level.SetLevel(l)
}

// SetFormat switches between "console" and "json" encoders.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if f != "json" {
		f = "console"
	}
	if f == format {
		return
	}
	format = f
	base = build(level)
	sugar = base.Sugar()
}

// Replace swaps the underlying logger, mostly for tests (zaptest, zap.NewNop).
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prevBase, prevSugar := base, sugar
	base, sugar = l, l.Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		base, sugar = prevBase, prevSugar
		mu.Unlock()
	}
}

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Named returns a structured logger scoped to a component.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Trace(format string, args ...any) { s().Debugf(format, args...) }
func Debug(format string, args ...any) { s().Debugf(format, args...) }
func Info(format string, args ...any)  { s().Infof(format, args...) }
func Warn(format string, args ...any)  { s().Warnf(format, args...) }
func Error(format string, args ...any) { s().Errorf(format, args...) }
func Fatal(format string, args ...any) { s().Fatalf(format, args...) }

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}
