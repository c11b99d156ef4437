// Package video exports a finished frame sequence as an H.264 mp4 by
// streaming raw RGBA frames into an external ffmpeg process over stdin.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/system"
)

// ErrFFmpegMissing is returned when no ffmpeg binary is on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

// Encoder drives an external ffmpeg process.
type Encoder struct {
	cfg config.VideoConfig
	log *slog.Logger
}

// NewEncoder checks that ffmpeg is installed and returns an encoder
// using the configured fps, quality and codec. An empty codec selects
// the best one available on this host.
func NewEncoder(cfg config.VideoConfig, log *slog.Logger) (*Encoder, error) {
	if !system.FFmpegAvailable() {
		return nil, ErrFFmpegMissing
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 12
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 23
	}
	if cfg.Encoder == "" {
		cfg.Encoder = system.BestH264Encoder()
	}
	return &Encoder{cfg: cfg, log: log}, nil
}

// EncodeSequence writes frames to outPath as mp4. Every frame must have
// the dimensions of the first one. Odd dimensions are padded by one
// pixel because yuv420p subsampling needs even sizes.
func (e *Encoder) EncodeSequence(ctx context.Context, frames []*image.RGBA, outPath string) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	w := frames[0].Bounds().Dx()
	h := frames[0].Bounds().Dy()
	outW, outH := w+w%2, h+h%2

	cmd := exec.CommandContext(ctx, "ffmpeg", e.buildArgs(outW, outH, outPath)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	writeErr := streamFrames(stdin, frames, outW, outH)
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", e.cfg.Encoder, err, tail(stderr.String()))
	}
	if writeErr != nil {
		return fmt.Errorf("stream frames: %w", writeErr)
	}

	e.log.Info("encoded video",
		"path", outPath,
		"frames", len(frames),
		"encoder", e.cfg.Encoder,
		"fps", e.cfg.FPS)
	return nil
}

func (e *Encoder) buildArgs(w, h int, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", e.cfg.FPS),
		"-i", "-",
		"-c:v", e.cfg.Encoder,
		"-pix_fmt", "yuv420p",
	}

	switch e.cfg.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", e.cfg.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", e.cfg.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", e.cfg.Quality), "-preset", "medium")
	}

	return append(args, outPath)
}

// streamFrames emits each frame as packed RGBA bytes, drawing onto a
// pooled canvas first when the output size differs from the frame size.
func streamFrames(w io.Writer, frames []*image.RGBA, outW, outH int) error {
	first := frames[0].Bounds()
	pad := outW != first.Dx() || outH != first.Dy()

	var canvas *image.RGBA
	if pad {
		canvas = system.GetImage(image.Rect(0, 0, outW, outH))
		defer system.PutImage(canvas)
	}

	for i, frame := range frames {
		b := frame.Bounds()
		if b.Dx() != first.Dx() || b.Dy() != first.Dy() {
			return fmt.Errorf("frame %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), first.Dx(), first.Dy())
		}
		out := frame
		if pad {
			draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), frame, b.Min, draw.Src)
			out = canvas
		}
		if err := writeRawRGBA(w, out); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	if img.Stride != bounds.Dx()*4 || bounds.Min.X != 0 || bounds.Min.Y != 0 {
		tight := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(tight, tight.Bounds(), img, bounds.Min, draw.Src)
		img = tight
	}
	_, err := w.Write(img.Pix)
	return err
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 400 {
		s = s[len(s)-400:]
	}
	return s
}
