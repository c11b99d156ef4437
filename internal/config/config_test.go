package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}

	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Generation.MaxFrames != 32 {
		t.Errorf("max frames = %d, want default 32", cfg.Generation.MaxFrames)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9090"
  read_timeout: 45s
workers:
  count: 2
neural:
  endpoint: "http://localhost:5100"
video:
  fps: 24
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Workers.Count != 2 {
		t.Errorf("workers = %d", cfg.Workers.Count)
	}
	if cfg.Neural.Endpoint != "http://localhost:5100" {
		t.Errorf("neural endpoint = %s", cfg.Neural.Endpoint)
	}
	if cfg.Video.FPS != 24 {
		t.Errorf("fps = %d", cfg.Video.FPS)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %s", cfg.Log.Level)
	}

	// Untouched sections keep their defaults.
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("write timeout = %v, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Intelligence.Provider != "gemini" {
		t.Errorf("provider = %s, want default", cfg.Intelligence.Provider)
	}
	if cfg.Generation.MinFrames != 4 {
		t.Errorf("min frames = %d, want default", cfg.Generation.MinFrames)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("generation:\n  min_frames: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid frame bounds should fail validation")
	}

	if err := os.WriteFile(path, []byte("not: [valid: yaml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"unknown store", func(c *Config) { c.Store.Driver = "cassandra" }, "store driver"},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "postgres_url"},
		{"unknown artifacts", func(c *Config) { c.Artifacts.Driver = "tape" }, "artifacts driver"},
		{"minio without creds", func(c *Config) { c.Artifacts.Driver = "minio" }, "minio"},
		{"unknown provider", func(c *Config) { c.Intelligence.Provider = "oracle" }, "intelligence provider"},
		{"min frames too low", func(c *Config) { c.Generation.MinFrames = 1 }, "min_frames"},
		{"max below min", func(c *Config) { c.Generation.MaxFrames = 3 }, "max_frames"},
		{"dimension too small", func(c *Config) { c.Generation.MaxDimension = 32 }, "max_dimension"},
		{"blend depth out of range", func(c *Config) { c.Neural.BlendDepth = 9 }, "blend_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("INBETWEEN_TEST_KEY", "secret")

	ic := IntelligenceConfig{APIKeyEnv: "INBETWEEN_TEST_KEY"}
	if got := ic.APIKey(); got != "secret" {
		t.Errorf("APIKey = %q", got)
	}

	ic.APIKeyEnv = ""
	if got := ic.APIKey(); got != "" {
		t.Errorf("empty env name should yield empty key, got %q", got)
	}
}
