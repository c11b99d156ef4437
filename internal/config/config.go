package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BuildVersion is stamped at link time via -ldflags.
var BuildVersion = "dev"

// Config is the full runtime configuration for the inbetween service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Paths        PathsConfig        `yaml:"paths"`
	Workers      WorkersConfig      `yaml:"workers"`
	Store        StoreConfig        `yaml:"store"`
	Artifacts    ArtifactsConfig    `yaml:"artifacts"`
	Intelligence IntelligenceConfig `yaml:"intelligence"`
	Neural       NeuralConfig       `yaml:"neural"`
	Generation   GenerationConfig   `yaml:"generation"`
	Video        VideoConfig        `yaml:"video"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PathsConfig locates on-disk working directories.
type PathsConfig struct {
	Uploads string `yaml:"uploads"`
	Outputs string `yaml:"outputs"`
}

// WorkersConfig sizes the background generation pool. Count 0 means
// auto-size from host resources.
type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

// StoreConfig selects the job store backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver"` // "memory" or "postgres"
	PostgresURL string        `yaml:"postgres_url"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// ArtifactsConfig selects where rendered frames are persisted.
type ArtifactsConfig struct {
	Driver string      `yaml:"driver"` // "local" or "minio"
	MinIO  MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds S3-compatible object store credentials.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// IntelligenceConfig configures the generative model used for motion
// analysis, principle detection and quality assessment. Provider "none"
// runs the pipeline on deterministic fallbacks only.
type IntelligenceConfig struct {
	Provider        string  `yaml:"provider"` // "gemini" or "none"
	Model           string  `yaml:"model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	RequestsPerSec  float64 `yaml:"requests_per_sec"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	MaxRetries      int     `yaml:"max_retries"`
}

// NeuralConfig points at an optional frame interpolation sidecar. An
// empty endpoint disables the neural path entirely.
type NeuralConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MidpointOnly bool          `yaml:"midpoint_only"`
	BlendDepth   int           `yaml:"blend_depth"`
}

// GenerationConfig bounds the planner and selects the subject detector.
type GenerationConfig struct {
	MinFrames    int    `yaml:"min_frames"`
	MaxFrames    int    `yaml:"max_frames"`
	MaxDimension int    `yaml:"max_dimension"`
	Detector     string `yaml:"detector"` // "alpha" is the only variant built in
}

// VideoConfig controls the optional mp4 export.
type VideoConfig struct {
	FPS     int    `yaml:"fps"`
	Encoder string `yaml:"encoder"` // empty = probe for best available
	Quality int    `yaml:"quality"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // "text" or "json"
	File   string `yaml:"file"`   // optional, tees output to this path
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxUploadBytes:  10 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Paths: PathsConfig{
			Uploads: "uploads",
			Outputs: "outputs",
		},
		Workers: WorkersConfig{
			Count:     0,
			QueueSize: 64,
		},
		Store: StoreConfig{
			Driver:      "memory",
			PingTimeout: 2 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			Driver: "local",
			MinIO: MinIOConfig{
				Bucket: "inbetween-frames",
				Region: "us-east-1",
			},
		},
		Intelligence: IntelligenceConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			APIKeyEnv:       "GEMINI_API_KEY",
			RequestsPerSec:  2,
			MaxOutputTokens: 2048,
			MaxRetries:      3,
		},
		Neural: NeuralConfig{
			Timeout:    120 * time.Second,
			BlendDepth: 3,
		},
		Generation: GenerationConfig{
			MinFrames:    4,
			MaxFrames:    32,
			MaxDimension: 1024,
			Detector:     "alpha",
		},
		Video: VideoConfig{
			FPS:     12,
			Quality: 23,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file on top of the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	switch c.Artifacts.Driver {
	case "local":
	case "minio":
		m := c.Artifacts.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return fmt.Errorf("artifacts.minio requires endpoint, access_key, secret_key and bucket")
		}
	default:
		return fmt.Errorf("unknown artifacts driver: %s", c.Artifacts.Driver)
	}
	switch c.Intelligence.Provider {
	case "gemini", "none":
	default:
		return fmt.Errorf("unknown intelligence provider: %s", c.Intelligence.Provider)
	}
	if c.Generation.MinFrames < 2 {
		return fmt.Errorf("generation.min_frames must be at least 2")
	}
	if c.Generation.MaxFrames < c.Generation.MinFrames {
		return fmt.Errorf("generation.max_frames must be >= min_frames")
	}
	if c.Generation.MaxDimension < 64 {
		return fmt.Errorf("generation.max_dimension must be at least 64")
	}
	if c.Neural.BlendDepth < 1 || c.Neural.BlendDepth > 6 {
		return fmt.Errorf("neural.blend_depth must be in [1,6]")
	}
	return nil
}

// APIKey resolves the intelligence API key from the configured
// environment variable.
func (c *IntelligenceConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}
