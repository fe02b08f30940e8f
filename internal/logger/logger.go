// Package logger wraps zap construction so every binary configures logging
// the same way.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process-wide zap logger.
type Logger struct {
	// Log is a no-op logger until Init succeeds.
	Log *zap.Logger

	out io.Writer
}

// New returns a Logger writing to stderr once initialized.
func New() *Logger {
	return &Logger{Log: zap.NewNop(), out: os.Stderr}
}

// NewWithWriter is like New but writes to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{Log: zap.NewNop(), out: w}
}

// Init builds a console logger at the given level ("debug", "Info", "warn"...).
func (l *Logger) Init(level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(l.out),
		lvl,
	)
	l.Log = zap.New(core)
	return nil
}
