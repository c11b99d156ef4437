// Package telemetry wires structured logging and the OpenTelemetry
// instruments used across the service. Exporter setup is left to the
// embedding binary; without one the otel instruments are no-ops.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogging installs the process-wide slog default handler. Format
// "json" emits one JSON object per record, anything else a text line.
// An optional file path tees output to disk alongside stdout.
func SetupLogging(level, format, filePath string) error {
	var out io.Writer = os.Stdout
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		out = io.MultiWriter(os.Stdout, f)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLevel maps a config string to a slog level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Component returns a logger tagged with the originating component name.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
