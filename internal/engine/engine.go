// Package engine drives the generation pipeline: a bounded state
// machine sequencing analysis, principle detection, planning, frame
// synthesis and quality-gated refinement.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/refiner"
	"github.com/ivlev/inbetween/internal/renderer"
	"github.com/ivlev/inbetween/internal/source"
	"github.com/ivlev/inbetween/internal/system"
)

// Routing thresholds for the validate stage.
const (
	acceptScore   = 8.0
	replanScore   = 6.0
	maxReplans    = 2
	maxIterations = 3
)

// Frames sent to quality assessment are downscaled to this edge first;
// full-resolution PNGs inflate request size without changing scores.
const assessMaxDim = 512

// Options carries the engine's collaborators. Intelligence may be nil,
// in which case every capability call resolves to its documented
// fallback and the pipeline runs fully offline.
type Options struct {
	Intelligence intelligence.Service
	Director     *director.Director
	Renderer     *renderer.Renderer
	Refiner      *refiner.Refiner
	Artifacts    artifact.Store
	Log          *slog.Logger
	Progress     func(stage Stage, percent int)
}

// Engine executes one job's pipeline at a time. It holds no per-job
// state; everything mutable lives in the State record.
type Engine struct {
	intel    intelligence.Service
	director *director.Director
	renderer *renderer.Renderer
	refiner  *refiner.Refiner
	store    artifact.Store
	log      *slog.Logger
	progress func(stage Stage, percent int)
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Intelligence == nil {
		log.Info("no intelligence service configured, heuristic fallbacks active")
	}
	return &Engine{
		intel:    opts.Intelligence,
		director: opts.Director,
		renderer: opts.Renderer,
		refiner:  opts.Refiner,
		store:    opts.Artifacts,
		log:      log,
		progress: opts.Progress,
	}
}

// Run drives a job until Done or a domain failure. Capability failures
// never stop the pipeline; they degrade to documented fallback records.
// The iteration budget guarantees termination regardless of scores.
func (e *Engine) Run(ctx context.Context, st *State) error {
	e.log.Info("pipeline started", "job", st.JobID, "instruction", st.Instruction)

	stage := StageAnalyze
	for stage != StageDone {
		if err := ctx.Err(); err != nil {
			st.LastError = err
			st.appendEvent(stage, "canceled", err.Error())
			return err
		}

		next, err := e.step(ctx, stage, st)
		if err != nil {
			st.LastError = err
			st.appendEvent(stage, "failed", err.Error())
			e.log.Error("pipeline failed", "job", st.JobID, "stage", stage, "error", err)
			return err
		}
		stage = next
	}

	e.report(StageDone, 100)
	e.log.Info("pipeline finished", "job", st.JobID,
		"frames", len(st.ActiveFrames()), "iterations", st.Iterations)
	return nil
}

func (e *Engine) step(ctx context.Context, stage Stage, st *State) (Stage, error) {
	switch stage {
	case StageAnalyze:
		return e.analyze(ctx, st)
	case StageDetectPrinciples:
		return e.detectPrinciples(ctx, st)
	case StagePlan:
		return e.plan(st)
	case StageGenerate:
		return e.generate(ctx, st)
	case StageValidate:
		return e.validate(ctx, st)
	case StageRefine:
		return e.refine(ctx, st)
	}
	return StageDone, fmt.Errorf("unknown stage %q", stage)
}

// route decides the transition out of the validate stage. The iteration
// count only grows on validate visits that do not end the job, and the
// table forces Done once the budget runs out, so every job terminates.
func route(score float64, iterations int) Stage {
	switch {
	case score >= acceptScore:
		return StageDone
	case score < replanScore && iterations < maxReplans:
		return StagePlan
	case score >= replanScore && iterations < maxIterations:
		return StageRefine
	default:
		return StageDone
	}
}

func (e *Engine) analyze(ctx context.Context, st *State) (Stage, error) {
	e.report(StageAnalyze, 10)

	analysis, err := e.callAnalyze(ctx, st)
	if err != nil {
		if e.intel != nil {
			e.log.Warn("motion analysis failed, using fallback", "job", st.JobID, "error", err)
		}
		st.Analysis = intelligence.FallbackAnalysis()
		st.appendEvent(StageAnalyze, "fallback", err.Error())
		return StageDetectPrinciples, nil
	}

	st.Analysis = analysis
	st.appendEvent(StageAnalyze, "completed",
		fmt.Sprintf("%s motion, %s energy", analysis.MotionType, analysis.Energy))
	return StageDetectPrinciples, nil
}

func (e *Engine) callAnalyze(ctx context.Context, st *State) (*intelligence.MotionAnalysis, error) {
	if e.intel == nil {
		return nil, errors.New("no intelligence service")
	}
	kf1, err := encodeThumbnail(st.Pair.First)
	if err != nil {
		return nil, err
	}
	kf2, err := encodeThumbnail(st.Pair.Second)
	if err != nil {
		return nil, err
	}
	return e.intel.AnalyzeMotion(ctx, kf1, kf2, st.Instruction)
}

func (e *Engine) detectPrinciples(ctx context.Context, st *State) (Stage, error) {
	e.report(StageDetectPrinciples, 20)

	if e.intel == nil {
		st.Principles = intelligence.DefaultPrinciples(st.Analysis)
		st.appendEvent(StageDetectPrinciples, "fallback", "no intelligence service")
		return StagePlan, nil
	}

	principles, err := e.intel.DetectPrinciples(ctx, st.Analysis, st.Instruction)
	if err != nil {
		e.log.Warn("principle detection failed, using defaults", "job", st.JobID, "error", err)
		st.Principles = intelligence.DefaultPrinciples(st.Analysis)
		st.appendEvent(StageDetectPrinciples, "fallback", err.Error())
		return StagePlan, nil
	}

	st.Principles = principles
	st.appendEvent(StageDetectPrinciples, "completed",
		fmt.Sprintf("%d principles, dominant %s", len(principles.Principles), principles.DominantPrinciple))
	return StagePlan, nil
}

func (e *Engine) plan(st *State) (Stage, error) {
	e.report(StagePlan, 30)

	plan := e.director.Plan(st.Analysis, st.Principles, st.Instruction)
	st.Plan = plan
	// A replan restarts generation, so any earlier refinement output is
	// no longer authoritative.
	st.RefinedFrames = nil
	st.appendEvent(StagePlan, "completed", plan.Summary())
	return StageGenerate, nil
}

func (e *Engine) generate(ctx context.Context, st *State) (Stage, error) {
	e.report(StageGenerate, 50)

	frames, err := e.renderer.Render(ctx, st.Pair, st.Plan)
	if err != nil {
		return StageDone, fmt.Errorf("generate frames: %w", err)
	}
	st.Frames = frames

	if err := e.saveFrames(ctx, st, frames, "frame"); err != nil {
		return StageDone, err
	}
	if err := e.savePlan(ctx, st); err != nil {
		e.log.Warn("plan artifact not saved", "job", st.JobID, "error", err)
	}

	st.appendEvent(StageGenerate, "completed", fmt.Sprintf("%d frames", len(frames)))
	return StageValidate, nil
}

func (e *Engine) validate(ctx context.Context, st *State) (Stage, error) {
	e.report(StageValidate, 80)

	frames := st.ActiveFrames()
	validation, err := e.callAssess(ctx, st, frames)
	if err != nil {
		if e.intel != nil {
			e.log.Warn("quality assessment failed, using neutral fallback", "job", st.JobID, "error", err)
		}
		validation = intelligence.NeutralValidation()
		st.appendEvent(StageValidate, "fallback", err.Error())
	}
	st.Validation = validation

	next := route(validation.Overall, st.Iterations)
	switch next {
	case StagePlan:
		st.Iterations++
		st.appendEvent(StageValidate, "replan",
			fmt.Sprintf("overall %.1f, iteration %d", validation.Overall, st.Iterations))
	case StageRefine:
		st.Iterations++
		st.appendEvent(StageValidate, "refine",
			fmt.Sprintf("overall %.1f, iteration %d", validation.Overall, st.Iterations))
	default:
		st.appendEvent(StageValidate, "accepted", fmt.Sprintf("overall %.1f", validation.Overall))
	}
	return next, nil
}

func (e *Engine) callAssess(ctx context.Context, st *State, frames []renderer.Frame) (*intelligence.Validation, error) {
	if e.intel == nil {
		return nil, errors.New("no intelligence service")
	}

	sampled := sampleIndices(len(frames))
	encoded := make([][]byte, 0, len(sampled))
	for _, idx := range sampled {
		data, err := encodeThumbnail(frames[idx].Image)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", idx, err)
		}
		encoded = append(encoded, data)
	}

	kf1, err := encodeThumbnail(st.Pair.First)
	if err != nil {
		return nil, err
	}
	kf2, err := encodeThumbnail(st.Pair.Second)
	if err != nil {
		return nil, err
	}
	return e.intel.AssessQuality(ctx, encoded, kf1, kf2, st.Plan.Summary())
}

func (e *Engine) refine(ctx context.Context, st *State) (Stage, error) {
	e.report(StageRefine, 90)

	refined, fixed := e.refiner.Refine(st.ActiveFrames(), st.Validation)
	st.RefinedFrames = refined

	if err := e.saveFrames(ctx, st, refined, "refined_frame"); err != nil {
		return StageDone, err
	}
	st.appendEvent(StageRefine, "completed", strings.Join(fixed, ", "))
	return StageValidate, nil
}

func (e *Engine) saveFrames(ctx context.Context, st *State, frames []renderer.Frame, prefix string) error {
	for _, f := range frames {
		data, err := source.EncodePNG(f.Image)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Index, err)
		}
		name := fmt.Sprintf("%s_%03d.png", prefix, f.Index)
		if _, err := e.store.Save(ctx, st.JobID, name, data, "image/png"); err != nil {
			return fmt.Errorf("save frame %d: %w", f.Index, err)
		}
	}
	return nil
}

func (e *Engine) savePlan(ctx context.Context, st *State) error {
	data, err := director.EncodePlan(st.Plan)
	if err != nil {
		return err
	}
	_, err = e.store.Save(ctx, st.JobID, "plan.yaml", data, "application/yaml")
	return err
}

func (e *Engine) report(stage Stage, percent int) {
	if e.progress != nil {
		e.progress(stage, percent)
	}
}

// sampleIndices picks the frames sent to quality assessment: endpoints
// plus quarter points, deduplicated for short sequences.
func sampleIndices(n int) []int {
	if n == 0 {
		return nil
	}
	candidates := []int{0, n / 4, n / 2, 3 * n / 4, n - 1}
	out := candidates[:0]
	prev := -1
	for _, idx := range candidates {
		if idx == prev {
			continue
		}
		out = append(out, idx)
		prev = idx
	}
	return out
}

func encodeThumbnail(img *image.RGBA) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() <= assessMaxDim && b.Dy() <= assessMaxDim {
		return source.EncodePNG(img)
	}

	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = h * assessMaxDim / w
		w = assessMaxDim
	} else {
		w = w * assessMaxDim / h
		h = assessMaxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	thumb := system.GetImage(image.Rect(0, 0, w, h))
	defer system.PutImage(thumb)
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, xdraw.Src, nil)
	return source.EncodePNG(thumb)
}
