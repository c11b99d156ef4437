package refiner

import (
	"image"
	"image/color"
	"log/slog"
	"testing"

	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/renderer"
)

func uniformFrame(idx int, c color.RGBA) renderer.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return renderer.Frame{Index: idx, T: float64(idx) / 2, Image: img}
}

func validationWith(smooth, artifacts, style float64) *intelligence.Validation {
	return &intelligence.Validation{
		Overall:      7,
		Smoothness:   smooth,
		ArcAdherence: 8,
		Volume:       8,
		Artifacts:    artifacts,
		Style:        style,
	}
}

func TestSelectOps(t *testing.T) {
	tests := []struct {
		name string
		v    *intelligence.Validation
		want []string
	}{
		{"all high", validationWith(8, 8, 8), []string{"light smoothing"}},
		{"low smoothness", validationWith(5, 8, 8), []string{"temporal smoothing"}},
		{"low artifacts", validationWith(8, 5, 8), []string{"alpha edge cleanup"}},
		{"low style", validationWith(8, 8, 5), []string{"color normalization"}},
		{"everything low", validationWith(5, 5, 5), []string{"temporal smoothing", "alpha edge cleanup", "color normalization"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := selectOps(tt.v)
			if len(ops) != len(tt.want) {
				t.Fatalf("expected %d ops, got %d", len(tt.want), len(ops))
			}
			for i, op := range ops {
				if op.Name() != tt.want[i] {
					t.Errorf("op %d = %q, want %q", i, op.Name(), tt.want[i])
				}
			}
		})
	}
}

func TestRefineKeepsEndpoints(t *testing.T) {
	frames := []renderer.Frame{
		uniformFrame(0, color.RGBA{R: 220, A: 255}),
		uniformFrame(1, color.RGBA{R: 110, B: 110, A: 255}),
		uniformFrame(2, color.RGBA{B: 220, A: 255}),
	}

	refined, fixed := New(slog.Default()).Refine(frames, validationWith(5, 5, 5))

	if refined[0].Image != frames[0].Image {
		t.Error("first frame must pass through untouched")
	}
	if refined[2].Image != frames[2].Image {
		t.Error("last frame must pass through untouched")
	}
	if len(fixed) != 3 {
		t.Errorf("expected 3 fixes reported, got %v", fixed)
	}
}

func TestSmoothFramePullsTowardNeighbors(t *testing.T) {
	frames := []renderer.Frame{
		uniformFrame(0, color.RGBA{R: 100, G: 100, B: 100, A: 255}),
		uniformFrame(1, color.RGBA{R: 200, G: 200, B: 200, A: 255}),
		uniformFrame(2, color.RGBA{R: 100, G: 100, B: 100, A: 255}),
	}

	out := smoothFrame(frames, 1, 1.0)

	// Weights 1:2:1 over values 100, 200, 100.
	if got := out.RGBAAt(4, 4).R; got != 150 {
		t.Errorf("smoothed value = %d, want 150", got)
	}
	if got := out.RGBAAt(4, 4).A; got != 255 {
		t.Errorf("alpha = %d, want 255", got)
	}
}

func TestCleanAlphaRemovesSpecks(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	// A solid block that should survive and an isolated speck that
	// should not.
	for y := 2; y < 10; y++ {
		for x := 2; x < 10; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	img.SetRGBA(14, 14, color.RGBA{R: 200, A: 255})

	out := cleanAlpha(img)

	if got := out.RGBAAt(5, 5).A; got != 255 {
		t.Errorf("block interior alpha = %d, want 255", got)
	}
	if got := out.RGBAAt(14, 14).A; got != 0 {
		t.Errorf("speck alpha = %d, want 0", got)
	}
}

func TestColorNormalization(t *testing.T) {
	frames := []renderer.Frame{
		uniformFrame(0, color.RGBA{R: 220, A: 255}),
		uniformFrame(1, color.RGBA{R: 220, A: 255}), // drifted: should gain blue
		uniformFrame(2, color.RGBA{B: 220, A: 255}),
	}

	out := colorOp{}.Apply(frames)

	mid := out[1].Image.RGBAAt(4, 4)
	if mid.B == 0 {
		t.Errorf("normalized middle frame should gain a blue component, got %v", mid)
	}
	if mid.R >= 220 {
		t.Errorf("normalized middle frame should lose red, got %v", mid)
	}
}
