package logger

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so every package depends on one local type.
type Logger struct {
	*slog.Logger
}

func New(level string) *Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return &Logger{Logger: slog.New(handler)}
}

// Critical logs at Error level with a CRITICAL marker. Reserved for
// conditions that mean the recorded ledger no longer matches reality.
func (l *Logger) Critical(msg string, args ...any) {
	l.Error("CRITICAL: "+msg, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}
