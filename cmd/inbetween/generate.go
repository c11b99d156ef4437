package main

import (
	"fmt"
	"image"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/engine"
	"github.com/ivlev/inbetween/internal/source"
	"github.com/ivlev/inbetween/internal/system"
	"github.com/ivlev/inbetween/internal/video"
)

var (
	genInstruction string
	genFrames      int
	genMode        string
	genOut         string
	genVideo       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <keyframe1> <keyframe2> [keyframe3...]",
	Short: "Generate inbetween frames offline",
	Long: `Run the pipeline directly, without the server. With more than two
keyframes the images are chained pairwise and each segment gets its own
sequence directory.

Examples:
  inbetween generate a.png b.png -i "bounce across the screen in 8 frames"
  inbetween generate a.png b.png c.png -i "slow ease to the right" --video`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genInstruction, "instruction", "i", "", "motion instruction, e.g. \"arc to the right in 8 frames\"")
	generateCmd.Flags().IntVar(&genFrames, "frames", 0, "frame count hint, used when the instruction does not name one")
	generateCmd.Flags().StringVar(&genMode, "mode", "", "rendering mode hint: procedural, neural or auto")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "output directory (default from config paths.outputs)")
	generateCmd.Flags().BoolVar(&genVideo, "video", false, "also encode the sequence to mp4 (needs ffmpeg)")
	_ = generateCmd.MarkFlagRequired("instruction")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	instruction := applyHints(genInstruction, genFrames, genMode)
	if err := source.ValidateInstruction(instruction); err != nil {
		return err
	}

	outRoot := genOut
	if outRoot == "" {
		outRoot = cfg.Paths.Outputs
	}
	arts, err := artifact.NewLocalStore(outRoot)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	opts, err := buildEngineOptions(ctx, cfg, arts, log)
	if err != nil {
		return err
	}
	eng := engine.New(opts)

	runID := time.Now().Format("20060102_150405")
	var sequence []*image.RGBA

	for seg := 0; seg+1 < len(args); seg++ {
		pair, err := source.LoadPair(args[seg], args[seg+1], cfg.Generation.MaxDimension)
		if err != nil {
			return err
		}

		jobID := runID
		if len(args) > 2 {
			jobID = fmt.Sprintf("%s_seg%02d", runID, seg)
		}

		st := engine.NewState(jobID, instruction, pair)
		if err := eng.Run(ctx, st); err != nil {
			return fmt.Errorf("segment %d: %w", seg, err)
		}

		frames := st.ActiveFrames()
		fmt.Printf("segment %d: %d frames, %d refinement iterations -> %s\n",
			seg, len(frames), st.Iterations, filepath.Join(outRoot, jobID))

		// Segment boundaries share a keyframe, keep it once.
		for i, f := range frames {
			if seg > 0 && i == 0 {
				continue
			}
			sequence = append(sequence, f.Image)
		}
	}

	if genVideo {
		enc, err := video.NewEncoder(cfg.Video, log)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outRoot, runID+".mp4")
		if err := enc.EncodeSequence(ctx, sequence, outPath); err != nil {
			return err
		}
		fmt.Printf("video: %s\n", outPath)
	}

	return nil
}

// applyHints folds flag hints into the instruction, where the director
// reads generation parameters from. Values already present in the
// instruction text take precedence.
func applyHints(instruction string, frames int, mode string) string {
	if frames > 0 {
		instruction = fmt.Sprintf("%s (%d frames)", instruction, frames)
	}
	switch mode {
	case "procedural", "neural":
		instruction = fmt.Sprintf("%s (%s rendering)", instruction, mode)
	}
	return instruction
}
