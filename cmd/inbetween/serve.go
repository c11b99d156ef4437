package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/jobstore"
	"github.com/ivlev/inbetween/internal/server"
	"github.com/ivlev/inbetween/internal/system"
	"github.com/ivlev/inbetween/internal/video"
	"github.com/ivlev/inbetween/internal/worker"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP generation service",
	Long: `Start the API server with its background worker pool. Jobs are
accepted on POST /api/generate and polled on GET /api/jobs/:job_id.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address override, e.g. :9090")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	system.InitResourceLimits()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	store, err := jobstore.NewStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}
	defer store.Close()

	arts, err := artifact.NewStore(ctx, cfg.Artifacts, cfg.Paths.Outputs)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}

	opts, err := buildEngineOptions(ctx, cfg, arts, log)
	if err != nil {
		return err
	}

	pool := worker.NewPool(cfg.Workers, store, opts, log)
	pool.Start(ctx)

	var enc *video.Encoder
	if e, encErr := video.NewEncoder(cfg.Video, log); encErr != nil {
		log.Warn("video export disabled", "error", encErr)
	} else {
		enc = e
	}

	srv := server.New(*cfg, store, arts, pool, enc, log)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	drainTimeout := cfg.Server.ShutdownTimeout
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := pool.Shutdown(drainCtx); err != nil {
		log.Warn("worker pool drained incompletely", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
