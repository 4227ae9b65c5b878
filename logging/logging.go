// Package logging configures structured JSON logging for SDK consumers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds a JSON slog.Logger tagged with the service name and, when
// provided, the environment. The returned logger satisfies client.Logger and
// is installed as the slog default.
func Setup(service, env, level string) *slog.Logger {
	return setup(os.Stdout, service, env, level)
}

func setup(w io.Writer, service, env, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	args := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		args = append(args, slog.String("env", env))
	}

	logger := slog.New(handler).With(args...)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
