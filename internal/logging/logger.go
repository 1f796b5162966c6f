package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger = zap.NewNop()
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// baseLevel is the level chosen at Initialize time. SetDebug(false)
	// returns to it.
	baseLevel = zapcore.InfoLevel
	levelMu   sync.Mutex
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "PTZLINK_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks PTZLINK_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(lvl string) error {
	if lvl == "" {
		lvl = os.Getenv(LogLevelEnvVar)
	}

	if lvl == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel := ParseLevel(lvl)

	levelMu.Lock()
	baseLevel = zapLevel
	level.SetLevel(zapLevel)
	levelMu.Unlock()

	config := zap.Config{
		Level:            level,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(lvl string) zapcore.Level {
	switch lvl {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetDebug raises the logger to debug level, or restores the level chosen
// at Initialize time. It backs the per-device debugLogging option and takes
// effect without rebuilding the logger.
func SetDebug(enabled bool) {
	levelMu.Lock()
	defer levelMu.Unlock()
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(baseLevel)
}

// DebugEnabled reports whether debug entries are currently written.
func DebugEnabled() bool {
	return GetLogger().Core().Enabled(zapcore.DebugLevel)
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogTransportStatus logs a change of the command channel state
func LogTransportStatus(target string, status string, reason string) {
	Info("Transport status",
		zap.String("target", target),
		zap.String("status", status),
		zap.String("reason", reason),
	)
}

// LogHTTPRequest logs an outgoing device HTTP request
func LogHTTPRequest(method string, url string) {
	Debug("HTTP request",
		zap.String("method", method),
		zap.String("url", url),
	)
}

// LogHTTPResponse logs a device HTTP response
func LogHTTPResponse(url string, statusCode int, contentType string, body []byte) {
	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.String("content_type", contentType),
		zap.Int("length", len(body)),
	}
	if DebugEnabled() {
		fields = append(fields, zap.String("body", asciiDump(body)))
	}
	Debug("HTTP response", fields...)
}

// LogPacket logs a VISCA packet in either direction
func LogPacket(direction string, data []byte) {
	Debug("VISCA packet",
		zap.String("direction", direction),
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes for logging
	if len(data) > 256 {
		return hex.EncodeToString(data[:256]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > 256 {
		data = data[:256]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
