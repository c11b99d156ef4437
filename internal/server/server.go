// Package server exposes the generation pipeline over HTTP: job
// submission, polling, frame download and optional video export.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/jobstore"
	"github.com/ivlev/inbetween/internal/video"
	"github.com/ivlev/inbetween/internal/worker"
)

const serviceName = "inbetween"

// Server wires the HTTP surface to the job store, the worker pool and
// the artifact store. The video encoder is nil when ffmpeg is missing,
// the export endpoint then answers 503.
type Server struct {
	cfg    config.Config
	store  jobstore.Store
	arts   artifact.Store
	pool   *worker.Pool
	enc    *video.Encoder
	log    *slog.Logger
	router *gin.Engine
}

func New(cfg config.Config, store jobstore.Store, arts artifact.Store, pool *worker.Pool, enc *video.Encoder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		arts:  arts,
		pool:  pool,
		enc:   enc,
		log:   log,
	}
	s.router = s.routes()
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is canceled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	r.GET("/", s.handleBanner)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/generate", s.handleGenerate)
		api.GET("/jobs", s.handleJobList)
		api.GET("/jobs/:job_id", s.handleJob)
		api.GET("/frames/:job_id/:frame", s.handleFrame)
		api.GET("/download/:job_id", s.handleDownload)
		api.GET("/video/:job_id", s.handleVideo)
	}

	return r
}
