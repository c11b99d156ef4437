package neural

import (
	"context"
	"fmt"
	"image"
	"math"
)

// Sequence synthesizes 2^depth+1 frames between a and b using only
// midpoint queries. Frames are filled by recursive subdivision so each
// midpoint is computed exactly once and shared by both halves.
func Sequence(ctx context.Context, itp Interpolator, a, b *image.RGBA, depth int) ([]*image.RGBA, error) {
	if depth < 1 {
		depth = 1
	}
	n := (1 << depth) + 1
	frames := make([]*image.RGBA, n)
	frames[0] = a
	frames[n-1] = b
	if err := fillMidpoints(ctx, itp, frames, 0, n-1); err != nil {
		return nil, err
	}
	return frames, nil
}

func fillMidpoints(ctx context.Context, itp Interpolator, frames []*image.RGBA, lo, hi int) error {
	if hi-lo < 2 {
		return nil
	}
	mid := (lo + hi) / 2
	frame, err := itp.Interpolate(ctx, frames[lo], frames[hi], 0.5)
	if err != nil {
		return fmt.Errorf("midpoint %d: %w", mid, err)
	}
	frames[mid] = frame
	if err := fillMidpoints(ctx, itp, frames, lo, mid); err != nil {
		return err
	}
	return fillMidpoints(ctx, itp, frames, mid, hi)
}

// MidpointBlender turns a dyadic anchor sequence into an arbitrary-t
// source by cross-fading between the two anchors bracketing t.
type MidpointBlender struct {
	anchors []*image.RGBA
}

// NewMidpointBlender wraps a sequence produced by Sequence. At least
// two anchors are required.
func NewMidpointBlender(anchors []*image.RGBA) (*MidpointBlender, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("midpoint blender needs at least two anchors, got %d", len(anchors))
	}
	return &MidpointBlender{anchors: anchors}, nil
}

// FrameAt returns the frame at fraction t in [0, 1]. Values that land
// on an anchor return it directly; everything else is a per-pixel
// cross-fade of the bracketing pair.
func (m *MidpointBlender) FrameAt(t float64) *image.RGBA {
	if t <= 0 {
		return m.anchors[0]
	}
	if t >= 1 {
		return m.anchors[len(m.anchors)-1]
	}

	pos := t * float64(len(m.anchors)-1)
	i := int(math.Floor(pos))
	if i >= len(m.anchors)-1 {
		return m.anchors[len(m.anchors)-1]
	}
	frac := pos - float64(i)
	if frac < 1e-6 {
		return m.anchors[i]
	}
	return crossFade(m.anchors[i], m.anchors[i+1], frac)
}

// crossFade blends two same-sized frames, alpha included.
func crossFade(a, b *image.RGBA, t float64) *image.RGBA {
	bounds := a.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		aRow := a.Pix[a.PixOffset(bounds.Min.X, y):]
		bRow := b.Pix[b.PixOffset(bounds.Min.X, y):]
		oRow := out.Pix[out.PixOffset(bounds.Min.X, y):]
		n := bounds.Dx() * 4
		for i := 0; i < n; i++ {
			oRow[i] = uint8(float64(aRow[i])*(1-t) + float64(bRow[i])*t + 0.5)
		}
	}
	return out
}
