package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ivlev/inbetween/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	stage       TEXT NOT NULL DEFAULT '',
	progress    INT  NOT NULL DEFAULT 0,
	instruction TEXT NOT NULL,
	frames      JSONB NOT NULL DEFAULT '[]',
	params      JSONB NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists jobs through database/sql over the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	frames, err := json.Marshal(framesOrEmpty(job.Frames))
	if err != nil {
		return err
	}
	params, err := json.Marshal(paramsOrEmpty(job.Params))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, stage, progress, instruction, frames, params, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Status, job.Stage, job.Progress, job.Instruction, frames, params, job.Error,
		job.CreatedAt, job.UpdatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	var (
		job    Job
		frames []byte
		params []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, stage, progress, instruction, frames, params, error, created_at, updated_at
		FROM jobs WHERE id = $1`, id).
		Scan(&job.ID, &job.Status, &job.Stage, &job.Progress, &job.Instruction,
			&frames, &params, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(frames, &job.Frames); err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}
	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) Update(ctx context.Context, job *Job) error {
	frames, err := json.Marshal(framesOrEmpty(job.Frames))
	if err != nil {
		return err
	}
	params, err := json.Marshal(paramsOrEmpty(job.Params))
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, stage = $3, progress = $4, frames = $5, params = $6, error = $7, updated_at = $8
		WHERE id = $1`,
		job.ID, job.Status, job.Stage, job.Progress, frames, params, job.Error, job.UpdatedAt)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, stage, progress, instruction, frames, params, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			job    Job
			frames []byte
			params []byte
		)
		if err := rows.Scan(&job.ID, &job.Status, &job.Stage, &job.Progress, &job.Instruction,
			&frames, &params, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(frames, &job.Frames); err != nil {
			return nil, fmt.Errorf("decode frames: %w", err)
		}
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func framesOrEmpty(frames []string) []string {
	if frames == nil {
		return []string{}
	}
	return frames
}

func paramsOrEmpty(params map[string]string) map[string]string {
	if params == nil {
		return map[string]string{}
	}
	return params
}
