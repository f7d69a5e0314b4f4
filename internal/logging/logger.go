// Package logging provides config-driven categorized logging for outreach.
// Each subsystem logs through its own category. With debug_mode on, every
// category writes to its own file under the logs directory; otherwise all
// categories share one stderr stream filtered by level.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and shutdown
	CategoryEngine  Category = "engine"  // Engine state machine and run loop
	CategoryAdapter Category = "adapter" // Page adapter scripts and extraction
	CategoryBrowser Category = "browser" // Browser session, tabs
	CategoryStore   Category = "store"   // KV and log sink backends
	CategoryControl Category = "control" // HTTP control plane
	CategoryConfig  Category = "config"  // Config load and hot reload
)

// Categories lists every known category.
var Categories = []Category{
	CategoryBoot, CategoryEngine, CategoryAdapter, CategoryBrowser,
	CategoryStore, CategoryControl, CategoryConfig,
}

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string // "json" or "console"
	DebugMode  bool
	Categories map[string]bool
	Dir        string
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	mu          sync.RWMutex
	cfg         Config
	initialized bool
	loggers                         = make(map[Category]*Logger)
	level                           = zap.NewAtomicLevelAt(zap.InfoLevel)
	stderr      zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
)

// Initialize applies the logging configuration. It may be called again after
// a config reload; open category files are closed and reopened lazily.
func Initialize(c Config) error {
	if c.DebugMode && c.Dir == "" {
		return fmt.Errorf("logs directory required in debug mode")
	}
	if c.DebugMode {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	CloseAll()

	mu.Lock()
	cfg = c
	initialized = true
	mu.Unlock()
	SetLevel(c.Level)

	Boot("logging initialized: level=%s debug_mode=%v dir=%s", level.Level(), c.DebugMode, c.Dir)
	return nil
}

// SetLevel changes the active level for every category at once.
func SetLevel(s string) {
	level.SetLevel(parseLevel(s))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// IsDebugMode returns whether per-category file logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Unlisted categories are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return false
	}
	enabled, exists := cfg.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger before Initialize or if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	sink := stderr
	if cfg.DebugMode {
		date := time.Now().Format("2006-01-02")
		logPath := filepath.Join(cfg.Dir, fmt.Sprintf("%s_%s.log", date, category))
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		} else {
			l.file = file
			sink = zapcore.AddSync(file)
		}
	}
	core := zapcore.NewCore(encoder(cfg.Format), sink, level)
	l.sugar = zap.New(core).With(zap.String("category", string(category))).Sugar()
	loggers[category] = l
	return l
}

func encoder(format string) zapcore.Encoder {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key-value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open loggers (call at shutdown)
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Engine(format string, args ...interface{})      { Get(CategoryEngine).Info(format, args...) }
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debug(format, args...) }
func EngineWarn(format string, args ...interface{})  { Get(CategoryEngine).Warn(format, args...) }
func EngineError(format string, args ...interface{}) { Get(CategoryEngine).Error(format, args...) }

func Adapter(format string, args ...interface{})      { Get(CategoryAdapter).Info(format, args...) }
func AdapterDebug(format string, args ...interface{}) { Get(CategoryAdapter).Debug(format, args...) }
func AdapterWarn(format string, args ...interface{})  { Get(CategoryAdapter).Warn(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).Info(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }
func BrowserError(format string, args ...interface{}) { Get(CategoryBrowser).Error(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Control(format string, args ...interface{})      { Get(CategoryControl).Info(format, args...) }
func ControlDebug(format string, args ...interface{}) { Get(CategoryControl).Debug(format, args...) }
func ControlError(format string, args ...interface{}) { Get(CategoryControl).Error(format, args...) }

func ConfigInfo(format string, args ...interface{}) { Get(CategoryConfig).Info(format, args...) }
func ConfigWarn(format string, args ...interface{}) { Get(CategoryConfig).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
