// Package logger holds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	// Level is a zap level name. Empty means info.
	Level string
	// Format "console" selects the development encoder. Anything else is JSON.
	Format string
	// Service, when set, is attached to every entry.
	Service string
}

var (
	global = func() *atomic.Pointer[zap.Logger] {
		var p atomic.Pointer[zap.Logger]
		p.Store(zap.NewNop())
		return &p
	}()
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// New builds a logger from cfg whose level follows SetLevel.
func New(cfg Config) (*zap.Logger, error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.SetLevel(lvl)

	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	if service := strings.TrimSpace(cfg.Service); service != "" {
		l = l.With(zap.String("service", service))
	}
	return l, nil
}

// Init builds a logger from cfg and installs it globally.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	global.Store(l)
	return nil
}

// SetLevel changes the level of loggers built by New without rebuilding them.
func SetLevel(name string) error {
	lvl, err := parseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

func parseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logger: %w", err)
	}
	return lvl, nil
}

// Logger returns the global logger. It is a no-op logger until Init runs.
func Logger() *zap.Logger {
	return global.Load()
}

// Replace swaps the global logger and returns a func that restores the previous one.
func Replace(l *zap.Logger) func() {
	if l == nil {
		l = zap.NewNop()
	}
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
