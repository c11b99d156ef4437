package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/inbetween/internal/analyzer"
	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/engine"
	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/neural"
	"github.com/ivlev/inbetween/internal/refiner"
	"github.com/ivlev/inbetween/internal/renderer"
	"github.com/ivlev/inbetween/internal/telemetry"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "inbetween",
	Short: "Generate animation inbetweens from two keyframes",
	Long: `inbetween synthesizes the intermediate frames between two keyframe
images from a natural language instruction. A director plans timing and
motion arcs, frames are rendered procedurally or through a neural
interpolation sidecar, and a quality gate drives refinement passes
before the sequence is delivered.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return telemetry.SetupLogging(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (built-in defaults when empty)")
}

// buildEngineOptions assembles the pipeline collaborators shared by the
// service and the offline generator.
func buildEngineOptions(ctx context.Context, cfg *config.Config, arts artifact.Store, log *slog.Logger) (engine.Options, error) {
	detector, err := analyzer.NewDetector(cfg.Generation.Detector)
	if err != nil {
		return engine.Options{}, fmt.Errorf("detector: %w", err)
	}

	var intel intelligence.Service
	switch cfg.Intelligence.Provider {
	case "", "none":
	case "gemini":
		if os.Getenv(cfg.Intelligence.APIKeyEnv) == "" {
			log.Warn("api key not set, running on heuristic fallbacks", "env", cfg.Intelligence.APIKeyEnv)
			break
		}
		client, err := intelligence.NewGeminiClient(ctx, cfg.Intelligence, log)
		if err != nil {
			return engine.Options{}, fmt.Errorf("intelligence client: %w", err)
		}
		intel = client
	default:
		return engine.Options{}, fmt.Errorf("unknown intelligence provider: %s", cfg.Intelligence.Provider)
	}

	var itp neural.Interpolator
	if cfg.Neural.Endpoint != "" {
		client, err := neural.NewHTTPClient(cfg.Neural, log)
		if err != nil {
			return engine.Options{}, fmt.Errorf("neural client: %w", err)
		}
		itp = client
	}

	return engine.Options{
		Intelligence: intel,
		Director:     director.NewDirector(cfg.Generation.MinFrames, cfg.Generation.MaxFrames),
		Renderer:     renderer.New(detector, itp, cfg.Neural.BlendDepth, log),
		Refiner:      refiner.New(log),
		Artifacts:    arts,
		Log:          log,
	}, nil
}
