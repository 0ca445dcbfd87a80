package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger  *zap.Logger
	sugar   *zap.SugaredLogger
	mu      sync.Mutex
	isSetup bool
)

// Options controls how the process logger is built
type Options struct {
	Debug   bool
	LogFile string
}

// SetupLogger builds the process logger, installs it as the zap global and returns it.
// Calling it again returns the logger that is already installed.
func SetupLogger(opts Options) (*zap.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return logger, nil
	}

	var cfg zap.Config
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if opts.LogFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.LogFile)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.LogFile)
	}

	built, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger = built
	sugar = built.Sugar()
	zap.ReplaceGlobals(built)
	isSetup = true

	logger.Debug("logger started", zap.Bool("debug", opts.Debug), zap.String("logfile", opts.LogFile))
	return logger, nil
}

// CloseLogger flushes the logger and resets the package state
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		_ = logger.Sync()
		logger = nil
		sugar = nil
		isSetup = false
	}
}

// L returns the installed logger, or a no-op logger before SetupLogger
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func sugared() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if sugar == nil {
		return zap.S()
	}
	return sugar
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	sugared().Infof(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	sugared().Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	sugared().Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	sugared().Warnf(format, args...)
}

// LogImageProcessed logs the outcome of processing one image
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		sugared().Debugw("processed", "path", path)
	} else {
		sugared().Warnw("failed", "path", path, "error", errMsg)
	}
}
