// Package worker runs generation jobs in the background. A bounded
// queue feeds a fixed set of workers, each driving the pipeline engine
// for one job at a time and mirroring its progress into the job store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/engine"
	"github.com/ivlev/inbetween/internal/jobstore"
	"github.com/ivlev/inbetween/internal/source"
	"github.com/ivlev/inbetween/internal/system"
)

const meterName = "github.com/ivlev/inbetween"

// autoSizeCap bounds auto-sized pools. Generation is memory heavy, so
// more workers than this rarely helps even on large hosts.
const autoSizeCap = 8

var (
	// ErrQueueFull is returned by Submit when the job queue is at capacity.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Submit after the pool has been shut down.
	ErrClosed = errors.New("worker pool is closed")
)

// Job is one unit of work: a validated keyframe pair plus the
// instruction, under an already created job record.
type Job struct {
	ID          string
	Instruction string
	Pair        *source.Pair
}

// Pool drains a job queue with a fixed number of workers.
type Pool struct {
	workers int
	store   jobstore.Store
	opts    engine.Options
	log     *slog.Logger

	queue chan Job
	group *errgroup.Group

	mu     sync.Mutex
	closed bool

	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
}

// NewPool builds a pool sized from cfg. A zero worker count auto-sizes
// from host resources. The engine options are a template, each job runs
// its own engine with a job-scoped logger and progress callback.
func NewPool(cfg config.WorkersConfig, store jobstore.Store, opts engine.Options, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	workers := cfg.Count
	if workers <= 0 {
		workers = system.SuggestWorkers(autoSizeCap)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	p := &Pool{
		workers: workers,
		store:   store,
		opts:    opts,
		log:     log,
		queue:   make(chan Job, queueSize),
	}

	meter := otel.Meter(meterName)
	var err error
	if p.started, err = meter.Int64Counter("jobs.started"); err != nil {
		log.Warn("metric counter unavailable", "name", "jobs.started", "error", err)
	}
	if p.completed, err = meter.Int64Counter("jobs.completed"); err != nil {
		log.Warn("metric counter unavailable", "name", "jobs.completed", "error", err)
	}
	if p.failed, err = meter.Int64Counter("jobs.failed"); err != nil {
		log.Warn("metric counter unavailable", "name", "jobs.failed", "error", err)
	}

	return p
}

// Start launches the workers. They run until ctx is canceled or the
// pool is shut down.
func (p *Pool) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	p.group = g
	for i := 0; i < p.workers; i++ {
		g.Go(func() error { return p.drain(ctx) })
	}
	p.log.Info("worker pool started", "workers", p.workers, "queue_size", cap(p.queue))
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(jb Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- jb:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight work to finish
// or ctx to expire, whichever comes first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	if p.group == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case jb, ok := <-p.queue:
			if !ok {
				return nil
			}
			p.process(ctx, jb)
		}
	}
}

func (p *Pool) process(ctx context.Context, jb Job) {
	log := p.log.With("job_id", jb.ID)
	p.count(ctx, p.started)

	job, err := p.store.Get(ctx, jb.ID)
	if err != nil {
		log.Error("job record missing", "error", err)
		return
	}

	job.Status = jobstore.StatusProcessing
	job.Stage = string(engine.StageAnalyze)
	if err := p.store.Update(ctx, job); err != nil {
		log.Warn("job update failed", "error", err)
	}

	opts := p.opts
	opts.Log = log
	opts.Progress = func(stage engine.Stage, percent int) {
		job.Stage = string(stage)
		job.Progress = percent
		if err := p.store.Update(ctx, job); err != nil {
			log.Warn("progress update failed", "error", err)
		}
	}

	st := engine.NewState(jb.ID, jb.Instruction, jb.Pair)
	runErr := engine.New(opts).Run(ctx, st)

	// The terminal status still gets recorded when the job was
	// canceled mid-run.
	finalCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		job.Status = jobstore.StatusFailed
		job.Error = runErr.Error()
		p.count(finalCtx, p.failed)
		log.Error("job failed", "error", runErr)
	} else {
		job.Status = jobstore.StatusComplete
		job.Stage = string(engine.StageDone)
		job.Progress = 100
		job.Error = ""
		job.Frames = frameNames(st)
		job.Params = planParams(st)
		p.count(finalCtx, p.completed)
		log.Info("job complete", "frames", len(job.Frames), "iterations", st.Iterations)
	}
	if err := p.store.Update(finalCtx, job); err != nil {
		log.Warn("final job update failed", "error", err)
	}
}

func (p *Pool) count(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

// planParams summarizes what the director planned for the job record.
func planParams(st *engine.State) map[string]string {
	if st.Plan == nil {
		return nil
	}
	return map[string]string{
		"mode":         st.Plan.Mode,
		"frame_count":  strconv.Itoa(st.Plan.FrameCount),
		"timing_curve": string(st.Plan.TimingCurve),
		"arc_type":     st.Plan.ArcType,
	}
}

// frameNames lists the artifact names of the delivered sequence, the
// refined frames when a refinement pass ran, the generated ones
// otherwise.
func frameNames(st *engine.State) []string {
	prefix := "frame"
	if len(st.RefinedFrames) > 0 {
		prefix = "refined_frame"
	}
	names := make([]string, len(st.ActiveFrames()))
	for i := range names {
		names[i] = fmt.Sprintf("%s_%03d.png", prefix, i)
	}
	return names
}
