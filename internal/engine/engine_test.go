package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/ivlev/inbetween/internal/analyzer"
	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/refiner"
	"github.com/ivlev/inbetween/internal/renderer"
	"github.com/ivlev/inbetween/internal/source"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		score      float64
		iterations int
		want       Stage
	}{
		{8.5, 0, StageDone},
		{5.5, 0, StagePlan},
		{7.0, 0, StageRefine},
		{7.0, 3, StageDone},
		{8.0, 3, StageDone},
		{5.5, 1, StagePlan},
		{5.5, 2, StageDone},
		{6.0, 2, StageRefine},
		{7.9, 3, StageDone},
	}

	for _, tt := range tests {
		if got := route(tt.score, tt.iterations); got != tt.want {
			t.Errorf("route(%.1f, %d) = %s, want %s", tt.score, tt.iterations, got, tt.want)
		}
	}
}

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{4, []int{0, 1, 2, 3}},
		{5, []int{0, 1, 2, 3, 4}},
		{8, []int{0, 2, 4, 6, 7}},
		{16, []int{0, 4, 8, 12, 15}},
	}

	for _, tt := range tests {
		got := sampleIndices(tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("sampleIndices(%d) = %v, want %v", tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("sampleIndices(%d) = %v, want %v", tt.n, got, tt.want)
				break
			}
		}
	}
}

func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(t *testing.T, intel intelligence.Service) (*Engine, artifact.Store) {
	t.Helper()
	store, err := artifact.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	log := quietLog()
	return New(Options{
		Intelligence: intel,
		Director:     director.NewDirector(4, 32),
		Renderer:     renderer.New(analyzer.NewAlphaDetector(), nil, 3, log),
		Refiner:      refiner.New(log),
		Artifacts:    store,
		Log:          log,
	}), store
}

func TestPipelineEndToEnd(t *testing.T) {
	first := image.NewRGBA(image.Rect(0, 0, 400, 400))
	second := image.NewRGBA(image.Rect(0, 0, 400, 400))
	drawCircle(first, 100, 200, 50, color.RGBA{R: 255, A: 255})
	drawCircle(second, 300, 200, 50, color.RGBA{B: 255, A: 255})
	pair := &source.Pair{First: first, Second: second}

	eng, store := testEngine(t, nil)
	st := NewState("job-e2e", "create 8 bouncy frames", pair)

	if err := eng.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Plan.FrameCount != 8 {
		t.Errorf("frame count = %d, want 8", st.Plan.FrameCount)
	}
	if len(st.Frames) != 8 {
		t.Fatalf("rendered %d frames, want 8", len(st.Frames))
	}

	// Without an intelligence service every validation is the neutral
	// 7.0 record, which drives refinement until the budget is spent.
	if st.Iterations != maxIterations {
		t.Errorf("iterations = %d, want %d", st.Iterations, maxIterations)
	}
	if len(st.RefinedFrames) != 8 {
		t.Fatalf("refined %d frames, want 8", len(st.RefinedFrames))
	}

	// Endpoints survive synthesis and refinement byte for byte.
	active := st.ActiveFrames()
	wantFirst, _ := source.EncodePNG(first)
	wantSecond, _ := source.EncodePNG(second)
	gotFirst, _ := source.EncodePNG(active[0].Image)
	gotSecond, _ := source.EncodePNG(active[7].Image)
	if !bytes.Equal(gotFirst, wantFirst) {
		t.Error("frame 0 should be keyframe 1 unchanged")
	}
	if !bytes.Equal(gotSecond, wantSecond) {
		t.Error("frame 7 should be keyframe 2 unchanged")
	}

	// The middle of the motion blends both keyframe colors.
	det := analyzer.NewAlphaDetector()
	mid := det.Detect(st.Frames[4].Image)
	if mid == nil {
		t.Fatal("no subject detected in frame 4")
	}
	at := st.Frames[4].Image.RGBAAt(int(mid.Centroid.X), int(mid.Centroid.Y))
	if at.R == 0 || at.B == 0 {
		t.Errorf("frame 4 centroid color = %v, want a red+blue blend", at)
	}
	if at.R == 255 && at.B == 0 || at.B == 255 && at.R == 0 {
		t.Errorf("frame 4 centroid color = %v, should be neither pure red nor pure blue", at)
	}

	names, err := store.List(context.Background(), "job-e2e")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	byName := make(map[string]bool, len(names))
	for _, n := range names {
		byName[n] = true
	}
	for _, want := range []string{"frame_000.png", "frame_007.png", "refined_frame_004.png", "plan.yaml"} {
		if !byName[want] {
			t.Errorf("artifact %s missing, have %v", want, names)
		}
	}

	if len(st.Events) == 0 {
		t.Error("event log should not be empty")
	}
}

type stubIntelligence struct {
	analysis    *intelligence.MotionAnalysis
	principles  *intelligence.PrincipleSet
	validation  *intelligence.Validation
	assessCalls int
}

func (s *stubIntelligence) AnalyzeMotion(ctx context.Context, kf1, kf2 []byte, instruction string) (*intelligence.MotionAnalysis, error) {
	if s.analysis == nil {
		return nil, errors.New("analysis unavailable")
	}
	return s.analysis, nil
}

func (s *stubIntelligence) DetectPrinciples(ctx context.Context, analysis *intelligence.MotionAnalysis, instruction string) (*intelligence.PrincipleSet, error) {
	if s.principles == nil {
		return nil, errors.New("principles unavailable")
	}
	return s.principles, nil
}

func (s *stubIntelligence) AssessQuality(ctx context.Context, frames [][]byte, kf1, kf2 []byte, planSummary string) (*intelligence.Validation, error) {
	s.assessCalls++
	if s.validation == nil {
		return nil, errors.New("assessment unavailable")
	}
	return s.validation, nil
}

func TestPipelineAcceptsHighScore(t *testing.T) {
	first := image.NewRGBA(image.Rect(0, 0, 200, 200))
	second := image.NewRGBA(image.Rect(0, 0, 200, 200))
	drawCircle(first, 60, 100, 30, color.RGBA{R: 200, A: 255})
	drawCircle(second, 140, 100, 30, color.RGBA{G: 200, A: 255})
	pair := &source.Pair{First: first, Second: second}

	intel := &stubIntelligence{
		analysis: &intelligence.MotionAnalysis{
			MotionType: intelligence.MotionTranslation,
			Magnitude:  intelligence.MotionMagnitude{DistancePercent: 40},
			Direction:  intelligence.MotionDirection{Description: "left to right"},
			Energy:     intelligence.EnergyFast,
		},
		validation: &intelligence.Validation{Overall: 8.6, Smoothness: 9, ArcAdherence: 9, Volume: 9, Artifacts: 9, Style: 9},
	}
	eng, _ := testEngine(t, intel)
	st := NewState("job-accept", "slide the ball to the right", pair)

	if err := eng.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Iterations != 0 {
		t.Errorf("iterations = %d, want 0 for a first-pass accept", st.Iterations)
	}
	if len(st.RefinedFrames) != 0 {
		t.Error("no refinement should run on a first-pass accept")
	}
	if intel.assessCalls != 1 {
		t.Errorf("assess calls = %d, want 1", intel.assessCalls)
	}
	// Fast energy maps to a short sequence.
	if len(st.Frames) != 6 {
		t.Errorf("rendered %d frames, want 6 for fast energy", len(st.Frames))
	}
	// Principle detection failed, so the deterministic defaults applied.
	if st.Principles == nil || st.Principles.Find(intelligence.PrincipleTiming) == nil {
		t.Error("default principle set should always include timing")
	}
}

func TestPipelineDomainFailure(t *testing.T) {
	blank1 := image.NewRGBA(image.Rect(0, 0, 100, 100))
	blank2 := image.NewRGBA(image.Rect(0, 0, 100, 100))
	pair := &source.Pair{First: blank1, Second: blank2}

	eng, _ := testEngine(t, nil)
	st := NewState("job-blank", "move it to the right please", pair)

	err := eng.Run(context.Background(), st)
	if !errors.Is(err, renderer.ErrNoSubject) {
		t.Fatalf("Run = %v, want ErrNoSubject", err)
	}
	if st.LastError == nil {
		t.Error("state should record the failure")
	}
	last := st.Events[len(st.Events)-1]
	if last.Action != "failed" {
		t.Errorf("last event action = %q, want failed", last.Action)
	}
}

func TestPipelineProgressCallback(t *testing.T) {
	first := image.NewRGBA(image.Rect(0, 0, 100, 100))
	second := image.NewRGBA(image.Rect(0, 0, 100, 100))
	drawCircle(first, 30, 50, 15, color.RGBA{R: 180, A: 255})
	drawCircle(second, 70, 50, 15, color.RGBA{R: 180, A: 255})
	pair := &source.Pair{First: first, Second: second}

	store, err := artifact.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	log := quietLog()

	var stages []Stage
	eng := New(Options{
		Intelligence: &stubIntelligence{validation: &intelligence.Validation{Overall: 9}},
		Director:     director.NewDirector(4, 32),
		Renderer:     renderer.New(analyzer.NewAlphaDetector(), nil, 3, log),
		Refiner:      refiner.New(log),
		Artifacts:    store,
		Log:          log,
		Progress: func(stage Stage, percent int) {
			stages = append(stages, stage)
		},
	})

	st := NewState("job-progress", "drift gently to the right", pair)
	if err := eng.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []Stage{StageAnalyze, StageDetectPrinciples, StagePlan, StageGenerate, StageValidate, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("progress stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("progress stages = %v, want %v", stages, want)
		}
	}
}
