// Package renderer synthesizes the intermediate frames of a plan,
// either procedurally from detected subject geometry or by delegating
// pixel synthesis to a neural interpolator and warping the result onto
// the planned path.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"

	"github.com/ivlev/inbetween/internal/analyzer"
	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/neural"
	"github.com/ivlev/inbetween/internal/source"
)

// ErrNoSubject is returned when object detection finds no usable
// subject in a keyframe, which makes procedural synthesis impossible.
var ErrNoSubject = errors.New("no subject detected in keyframe")

// Frame is one rendered frame of a sequence. T is the linear time of
// the frame, matching its schedule entry.
type Frame struct {
	Index int
	T     float64
	Image *image.RGBA
}

// Renderer renders a plan against a keyframe pair. The interpolator is
// optional; without one every plan renders procedurally.
type Renderer struct {
	detector     analyzer.Detector
	interpolator neural.Interpolator
	blendDepth   int
	log          *slog.Logger
}

// New builds a renderer. A nil interpolator disables the neural path.
func New(detector analyzer.Detector, interpolator neural.Interpolator, blendDepth int, log *slog.Logger) *Renderer {
	if blendDepth < 1 {
		blendDepth = 3
	}
	return &Renderer{
		detector:     detector,
		interpolator: interpolator,
		blendDepth:   blendDepth,
		log:          log,
	}
}

// Render produces the full frame sequence for a plan. Neural failures
// never fail the job: they log and fall back to the procedural path.
func (r *Renderer) Render(ctx context.Context, pair *source.Pair, plan *director.Plan) ([]Frame, error) {
	switch plan.Mode {
	case director.ModeProcedural:
		return r.renderProcedural(pair, plan)
	case director.ModeNeural, director.ModeAuto, "":
		if r.interpolator == nil {
			if plan.Mode == director.ModeNeural {
				r.log.Warn("neural mode requested but no interpolator configured, rendering procedurally")
			}
			return r.renderProcedural(pair, plan)
		}
		frames, err := r.renderNeural(ctx, pair, plan)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			r.log.Warn("neural interpolation failed, falling back to procedural rendering", "error", err)
			return r.renderProcedural(pair, plan)
		}
		return frames, nil
	default:
		return nil, fmt.Errorf("unknown generation mode %q", plan.Mode)
	}
}

// renderNeural asks the interpolator for each scheduled frame. Models
// that only support midpoint queries are driven through a dyadic anchor
// sequence with cross-fade blending for off-anchor times.
func (r *Renderer) renderNeural(ctx context.Context, pair *source.Pair, plan *director.Plan) ([]Frame, error) {
	caps, err := r.interpolator.Capabilities(ctx)
	if err != nil {
		return nil, err
	}

	var frameAt func(t float64) (*image.RGBA, error)
	if caps.ArbitraryT {
		frameAt = func(t float64) (*image.RGBA, error) {
			return r.interpolator.Interpolate(ctx, pair.First, pair.Second, t)
		}
	} else {
		r.log.Info("interpolator is midpoint-only, blending across a dyadic anchor sequence",
			"depth", r.blendDepth, "model", caps.Model)
		anchors, err := neural.Sequence(ctx, r.interpolator, pair.First, pair.Second, r.blendDepth)
		if err != nil {
			return nil, err
		}
		blender, err := neural.NewMidpointBlender(anchors)
		if err != nil {
			return nil, err
		}
		frameAt = func(t float64) (*image.RGBA, error) {
			return blender.FrameAt(t), nil
		}
	}

	warp := plan.ArcType == director.ArcParabolic && plan.ArcIntensity > 0
	var subjA, subjB *analyzer.Subject
	if warp {
		subjA = r.detector.Detect(pair.First)
		subjB = r.detector.Detect(pair.Second)
		if subjA == nil || subjB == nil {
			r.log.Warn("arc warp disabled, subject not detected in both keyframes")
			warp = false
		}
	}

	frames := make([]Frame, 0, len(plan.Schedule))
	last := len(plan.Schedule) - 1
	for _, step := range plan.Schedule {
		switch step.Index {
		case 0:
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: pair.First})
		case last:
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: pair.Second})
		default:
			img, err := frameAt(step.Eased)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", step.Index, err)
			}
			if warp {
				img = arcWarp(img, subjA, subjB, step)
			}
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: img})
		}
	}
	return frames, nil
}

// arcWarp translates a neurally interpolated frame onto the planned
// arc. The model blends pixels linearly, so the subject is assumed to
// sit at the linear blend of the keyframe centroids; the warp moves it
// from there to the scheduled arc position, exposing transparent
// borders. Negligible offsets leave the frame untouched.
func arcWarp(img *image.RGBA, subjA, subjB *analyzer.Subject, step director.FrameStep) *image.RGBA {
	b := img.Bounds()
	estX := lerp(subjA.Centroid.X, subjB.Centroid.X, step.Eased)
	estY := lerp(subjA.Centroid.Y, subjB.Centroid.Y, step.Eased)
	dx := step.ArcPos.X*float64(b.Dx()) - estX
	dy := step.ArcPos.Y*float64(b.Dy()) - estY
	if math.Abs(dx) < 0.5 && math.Abs(dy) < 0.5 {
		return img
	}

	out := image.NewRGBA(b)
	offset := image.Pt(int(math.Round(dx)), int(math.Round(dy)))
	draw.Draw(out, b.Add(offset), img, b.Min, draw.Src)
	return out
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
