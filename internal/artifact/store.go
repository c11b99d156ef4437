// Package artifact persists rendered job outputs: frame PNGs, plan
// files and encoded videos. Backends share a flat per-job namespace so
// the HTTP layer can serve and bundle artifacts without knowing where
// they live.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/inbetween/internal/config"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store is a per-job artifact namespace. Save returns a backend
// location string useful for logs; List returns names sorted
// lexicographically, which keeps zero-padded frame sequences in order.
type Store interface {
	Save(ctx context.Context, jobID, name string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, jobID, name string) ([]byte, error)
	List(ctx context.Context, jobID string) ([]string, error)
	Remove(ctx context.Context, jobID string) error
}

// NewStore builds the configured backend.
func NewStore(ctx context.Context, cfg config.ArtifactsConfig, localRoot string) (Store, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(localRoot)
	case "minio":
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown artifacts driver: %s", cfg.Driver)
	}
}

// ValidName rejects names that could escape a job's namespace. Artifact
// names are single path elements like frame_004.png.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
