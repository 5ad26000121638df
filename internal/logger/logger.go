package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger used by the engines and the CLI.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a production logger writing JSON to stdout at info level.
func NewLogger() (*Logger, error) {
	return NewLoggerWithLevel(zapcore.InfoLevel)
}

// NewLoggerWithLevel creates a production logger at the given level.
func NewLoggerWithLevel(level zapcore.Level) (*Logger, error) {
	return NewLoggerWithOutput(level, "stdout")
}

// NewLoggerWithOutput creates a production logger at level writing to outputPath, which
// takes any zap sink URL such as "stderr" or a file path. The CLI logs to stderr so that
// stdout carries only the report.
func NewLoggerWithOutput(level zapcore.Level, outputPath string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{outputPath}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// NewNopLogger returns a logger that discards everything. Engines fall back
// to it when no logger is supplied.
func NewNopLogger() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
