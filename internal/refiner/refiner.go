// Package refiner post-processes a rendered frame sequence. Operations
// are selected by which validation dimensions scored low; first and
// last frames always pass through untouched so the keyframes survive
// refinement byte for byte.
package refiner

import (
	"log/slog"

	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/renderer"
)

// Sub-scores below this trigger their corresponding operation.
const triggerThreshold = 7.0

// Op is a single refinement operation over a frame sequence.
type Op interface {
	Name() string
	Apply(frames []renderer.Frame) []renderer.Frame
}

type Refiner struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Refiner {
	return &Refiner{log: log}
}

// Refine applies the operations selected by the validation scores and
// reports the issues addressed. When no dimension triggers, a light
// smoothing pass runs as the default.
func (r *Refiner) Refine(frames []renderer.Frame, v *intelligence.Validation) ([]renderer.Frame, []string) {
	ops := selectOps(v)

	fixed := make([]string, 0, len(ops))
	for _, op := range ops {
		frames = op.Apply(frames)
		fixed = append(fixed, op.Name())
		r.log.Debug("refinement operation applied", "op", op.Name())
	}
	return frames, fixed
}

func selectOps(v *intelligence.Validation) []Op {
	var ops []Op
	if v.Smoothness < triggerThreshold {
		ops = append(ops, smoothOp{name: "temporal smoothing", strength: 1.0})
	}
	if v.Artifacts < triggerThreshold {
		ops = append(ops, alphaOp{})
	}
	if v.Style < triggerThreshold {
		ops = append(ops, colorOp{})
	}
	if len(ops) == 0 {
		ops = append(ops, smoothOp{name: "light smoothing", strength: 0.5})
	}
	return ops
}
