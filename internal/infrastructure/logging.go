package infrastructure

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// SetupLogging installs a JSON slog handler as the default logger and bridges
// the standard library logger onto it.
func SetupLogging(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", service)}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	logger := slog.New(handler.WithAttrs(attrs))
	slog.SetDefault(logger)

	std := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	log.SetOutput(std.Writer())
	log.SetFlags(0)

	return logger
}
