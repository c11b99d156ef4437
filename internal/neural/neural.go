// Package neural is the client side of the optional frame interpolation
// capability: a sidecar model service that synthesizes one frame between
// two images. Absence or failure of the capability is an expected
// condition that callers absorb by falling back to procedural rendering.
package neural

import (
	"context"
	"errors"
	"image"
)

// ErrUnavailable marks the capability as absent or unreachable. Callers
// test with errors.Is and fall back; it never aborts a job.
var ErrUnavailable = errors.New("neural interpolation unavailable")

// Capabilities is what the sidecar negotiates up front. Models that
// only synthesize the exact midpoint (ArbitraryT false) are driven
// through midpoint doubling plus blending instead of per-t sampling.
type Capabilities struct {
	ArbitraryT bool   `json:"arbitrary_t"`
	Model      string `json:"model,omitempty"`
}

// Interpolator synthesizes one frame at fraction t between two images
// of identical size.
type Interpolator interface {
	Capabilities(ctx context.Context) (Capabilities, error)
	Interpolate(ctx context.Context, a, b *image.RGBA, t float64) (*image.RGBA, error)
}
