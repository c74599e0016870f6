// Package logger provides the shared zap sugared logger used by the client,
// the CLI and the sandbox backend. Level comes from LOG_LEVEL and the encoder
// from ENVIRONMENT.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// IsTest switches the logger to a quiet no-op configuration for unit tests.
var IsTest bool

// Output is where log entries go. The CLI keeps stdout for rendered views,
// so everything logs to stderr by default.
var Output = "stderr"

func initLoggerInternal() {
	if IsTest {
		logger = zap.NewNop().Sugar()
		return
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if os.Getenv("ENVIRONMENT") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{Output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger = zapLogger.Sugar()
}

// InitLogger initializes the global logger once. Safe for concurrent calls.
func InitLogger() {
	once.Do(initLoggerInternal)
}

// GetLogger returns the shared logger, initializing it on first use.
func GetLogger() *zap.SugaredLogger {
	once.Do(initLoggerInternal)
	return logger
}

// SetLevel re-initializes the logger with the given level string. It is used
// by the CLI when --log-level is passed explicitly and must be called before
// the first GetLogger.
func SetLevel(level string) {
	if level != "" {
		_ = os.Setenv("LOG_LEVEL", level)
	}
}

// Close flushes buffered log entries. Syncing a terminal-backed stderr fails
// on some platforms, so callers usually ignore the returned error.
func Close() error {
	if logger == nil || IsTest {
		return nil
	}
	return logger.Sync()
}
