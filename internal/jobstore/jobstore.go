// Package jobstore tracks generation jobs for the polling API. The
// memory backend serves single-process deployments; postgres keeps job
// history across restarts.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/inbetween/internal/config"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle of a job as seen by clients.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Job is the externally visible record of one generation request.
// Frames lists the artifact names of the authoritative sequence and
// Params the planned generation parameters once the job completes.
type Job struct {
	ID          string            `json:"job_id"`
	Status      Status            `json:"status"`
	Stage       string            `json:"stage,omitempty"`
	Progress    int               `json:"progress"`
	Instruction string            `json:"instruction"`
	Frames      []string          `json:"frames,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store persists job records. Update replaces the whole record; each
// job has a single writer (its worker), so field-level updates are not
// needed.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	List(ctx context.Context, limit int) ([]*Job, error)
	Close() error
}

// NewStore builds the configured backend.
func NewStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
