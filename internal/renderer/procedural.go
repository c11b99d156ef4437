package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/ivlev/inbetween/internal/analyzer"
	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/source"
)

// renderProcedural draws every interior frame from the detected
// subjects: position, color and scale interpolate at the eased time,
// and the first subject's contour is redrawn as a filled polygon.
// Endpoints bypass synthesis and reuse the keyframes unchanged.
func (r *Renderer) renderProcedural(pair *source.Pair, plan *director.Plan) ([]Frame, error) {
	subjA := r.detector.Detect(pair.First)
	if subjA == nil {
		return nil, fmt.Errorf("first keyframe: %w", ErrNoSubject)
	}
	subjB := r.detector.Detect(pair.Second)
	if subjB == nil {
		return nil, fmt.Errorf("second keyframe: %w", ErrNoSubject)
	}

	scale := scaleBetween(subjA, subjB)
	bounds := pair.First.Bounds()

	frames := make([]Frame, 0, len(plan.Schedule))
	last := len(plan.Schedule) - 1
	for _, step := range plan.Schedule {
		switch step.Index {
		case 0:
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: pair.First})
		case last:
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: pair.Second})
		default:
			img := drawInterpolated(bounds, subjA, subjB, scale, step.Eased)
			frames = append(frames, Frame{Index: step.Index, T: step.T, Image: img})
		}
	}
	return frames, nil
}

// scaleBetween is the uniform scale factor from the first subject to
// the second. A zero-sized first subject yields 1.0.
func scaleBetween(a, b *analyzer.Subject) float64 {
	if d := a.AvgDimension(); d > 0 {
		return b.AvgDimension() / d
	}
	return 1.0
}

// drawInterpolated renders one interior frame on a transparent canvas:
// the first subject's contour, centered on its own centroid, scaled
// uniformly, translated to the interpolated centroid and filled with
// the interpolated color.
func drawInterpolated(bounds image.Rectangle, a, b *analyzer.Subject, scaleRatio, t float64) *image.RGBA {
	canvas := image.NewRGBA(bounds)
	if len(a.Contour) < 3 {
		return canvas
	}

	cx := lerp(a.Centroid.X, b.Centroid.X, t)
	cy := lerp(a.Centroid.Y, b.Centroid.Y, t)
	scale := lerp(1.0, scaleRatio, t)
	col := blendColor(a.AverageColor, b.AverageColor, t)

	poly := make([]analyzer.PointF, len(a.Contour))
	for i, p := range a.Contour {
		poly[i] = analyzer.PointF{
			X: (float64(p.X)-a.Centroid.X)*scale + cx,
			Y: (float64(p.Y)-a.Centroid.Y)*scale + cy,
		}
	}
	fillPolygon(canvas, poly, col)
	return canvas
}

func blendColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(lerp(float64(a.R), float64(b.R), t) + 0.5),
		G: uint8(lerp(float64(a.G), float64(b.G), t) + 0.5),
		B: uint8(lerp(float64(a.B), float64(b.B), t) + 0.5),
		A: 255,
	}
}

// fillPolygon rasterizes a closed polygon using even-odd scanline
// filling. Sampling happens at pixel centers; spans are clipped to the
// canvas.
func fillPolygon(dst *image.RGBA, poly []analyzer.PointF, col color.RGBA) {
	minY, maxY := poly[0].Y, poly[0].Y
	for _, p := range poly[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	bounds := dst.Bounds()
	y0 := int(math.Floor(minY))
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	y1 := int(math.Ceil(maxY))
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}

	xs := make([]float64, 0, 8)
	for y := y0; y < y1; y++ {
		yc := float64(y) + 0.5
		xs = xs[:0]
		for i := range poly {
			p1 := poly[i]
			p2 := poly[(i+1)%len(poly)]
			if (p1.Y <= yc) == (p2.Y <= yc) {
				continue
			}
			xs = append(xs, p1.X+(yc-p1.Y)/(p2.Y-p1.Y)*(p2.X-p1.X))
		}
		sort.Float64s(xs)

		for k := 0; k+1 < len(xs); k += 2 {
			left := int(math.Ceil(xs[k] - 0.5))
			right := int(math.Ceil(xs[k+1] - 0.5))
			if left < bounds.Min.X {
				left = bounds.Min.X
			}
			if right > bounds.Max.X {
				right = bounds.Max.X
			}
			for x := left; x < right; x++ {
				dst.SetRGBA(x, y, col)
			}
		}
	}
}
