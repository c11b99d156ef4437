package telemetry

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggingTeesToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "service.log")
	if err := SetupLogging("debug", "json", path); err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}

	Component("pipeline").Info("stage reached", "stage", "plan")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"component":"pipeline"`) {
		t.Errorf("missing component attribute: %s", line)
	}
	if !strings.Contains(line, `"stage":"plan"`) {
		t.Errorf("missing record attribute: %s", line)
	}
}

func TestSetupLoggingBadPath(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	err := SetupLogging("info", "text", filepath.Join(t.TempDir(), "no", "such", "dir", "x.log"))
	if err == nil {
		t.Error("unwritable path should fail")
	}
}
