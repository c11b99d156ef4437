package analyzer

import (
	"image"
	"image/color"
)

// PointF is a sub-pixel position on the canvas.
type PointF struct {
	X float64
	Y float64
}

// Subject is the primary foreground object isolated from one keyframe.
// Produced fresh per detection call and never mutated afterwards.
type Subject struct {
	Mask         *image.Gray // 255 = foreground
	Centroid     PointF      // first-order moment center
	Bounds       image.Rectangle
	AverageColor color.RGBA
	Contour      []image.Point // ordered boundary walk
	Width        int
	Height       int
}

// AvgDimension is the mean of the bounding box sides, used as the
// uniform size measure when interpolating scale.
func (s *Subject) AvgDimension() float64 {
	return (float64(s.Width) + float64(s.Height)) / 2
}

// Detector is the interface for subject isolation strategies.
// A nil Subject means nothing was found; that is a valid outcome for
// degenerate input (solid white, fully transparent), not an error.
type Detector interface {
	Detect(img *image.RGBA) *Subject
}
