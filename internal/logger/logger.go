// Package logger configures the application-wide zap logger.
//
// Logs are emitted as structured JSON on stdout with ISO 8601 timestamps.
// The level is chosen once at startup from configuration and cannot be
// changed at runtime:
//
//	log, err := logger.New("info")
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync(log)
package logger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidLogLevel reports a level string zap does not recognize.
var ErrInvalidLogLevel = errors.New("invalid log level")

// New builds the production logger at the given level.
//
// Accepted levels are the zap names (debug, info, warn, error, dpanic,
// panic, fatal), matched case-insensitively. Entries are sampled after
// the first hundred per second so a hot loop cannot flood the output.
func New(level string) (*zap.Logger, error) {
	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("resolving log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}

	return log, nil
}

// ParseLevel resolves a level name to its zapcore.Level. Unknown names
// return ErrInvalidLogLevel.
func ParseLevel(level string) (zapcore.Level, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLogLevel, err)
	}
	return parsed, nil
}

// Sync flushes buffered entries, typically deferred in main. A nil logger
// is a no-op. Sync errors are dropped because syncing stdout is not
// supported on every platform.
func Sync(logger *zap.Logger) {
	if logger == nil {
		return
	}
	_ = logger.Sync()
}
