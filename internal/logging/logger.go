// Package logging provides categorized structured logging for kernelcheck.
// Every subsystem logs through a named zap logger for its category, and
// categories can be switched off individually from the config file.
// Until Initialize is called all loggers are no-ops, so library code and
// tests stay silent by default.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot         Category = "boot"         // CLI startup, config loading
	CategoryGenerator    Category = "generator"    // Case generation
	CategoryInvoker      Category = "invoker"      // Kernel invocation and outcome classification
	CategoryTactile      Category = "tactile"      // Child process execution
	CategoryVerification Category = "verification" // Oracle comparison
	CategoryCampaign     Category = "campaign"     // Campaign phases and trials
	CategorySelfTest     Category = "selftest"     // Fault-injection self checks
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // console, json
	Output     string          // stderr (default), stdout, or a file path
	Categories map[string]bool // per-category toggles; missing means enabled
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
)

// New builds a zap logger from opts without installing it.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.Development = false
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: console, json)", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	out := opts.Output
	if out == "" {
		out = "stderr"
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// ParseLevel maps a config level name onto a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Initialize builds a logger from opts and installs it as the base for
// every category.
func Initialize(opts Options) (*zap.Logger, error) {
	l, err := New(opts)
	if err != nil {
		return nil, err
	}
	Install(l, opts.Categories)
	Get(CategoryBoot).Debug("logging initialized",
		zap.String("level", opts.Level),
		zap.String("format", opts.Format),
		zap.Int("category_overrides", len(opts.Categories)))
	return l, nil
}

// Install sets l as the base logger. A nil logger restores the no-op default.
func Install(l *zap.Logger, cats map[string]bool) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	categories = cats
}

// Base returns the installed base logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns the named logger for category, or a no-op logger if the
// category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}
	return Base().Named(string(category))
}

// Sync flushes the base logger. Errors from syncing stderr are ignored.
func Sync() {
	_ = Base().Sync()
}

// Printf-style helpers for the process layer.

func Tactile(format string, args ...interface{}) {
	Get(CategoryTactile).Sugar().Infof(format, args...)
}

func TactileDebug(format string, args ...interface{}) {
	Get(CategoryTactile).Sugar().Debugf(format, args...)
}

func TactileWarn(format string, args ...interface{}) {
	Get(CategoryTactile).Sugar().Warnf(format, args...)
}

func TactileError(format string, args ...interface{}) {
	Get(CategoryTactile).Sugar().Errorf(format, args...)
}

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Sugar().Infof(format, args...)
}

func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Sugar().Debugf(format, args...)
}
