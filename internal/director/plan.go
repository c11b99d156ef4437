package director

import (
	"fmt"
	"math"
)

// Arc path types.
const (
	ArcNone      = "none"
	ArcParabolic = "parabolic"
)

// Render modes. Auto prefers neural interpolation when a capability is
// available and falls back to procedural rendering otherwise.
const (
	ModeAuto       = "auto"
	ModeProcedural = "procedural"
	ModeNeural     = "neural"
)

// Position is a normalized point on the canvas, both axes in [0,1].
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// FrameStep schedules one frame: its linear progress, eased progress
// and the planned path position at that moment.
type FrameStep struct {
	Index  int      `yaml:"index" json:"index"`
	T      float64  `yaml:"t" json:"t"`
	Eased  float64  `yaml:"eased" json:"eased"`
	ArcPos Position `yaml:"arc_pos" json:"arc_pos"`
}

// Plan is the full trajectory for one generation run. The schedule
// always satisfies len(Schedule) == FrameCount with Eased exactly 0.0
// on the first step and 1.0 on the last.
type Plan struct {
	FrameCount    int         `yaml:"frame_count" json:"frame_count"`
	TimingCurve   Curve       `yaml:"timing_curve" json:"timing_curve"`
	ArcType       string      `yaml:"arc_type" json:"arc_type"`
	ArcIntensity  float64     `yaml:"arc_intensity" json:"arc_intensity"`
	StartPosition Position    `yaml:"start_position" json:"start_position"`
	EndPosition   Position    `yaml:"end_position" json:"end_position"`
	Mode          string      `yaml:"mode" json:"mode"`
	Schedule      []FrameStep `yaml:"schedule" json:"schedule"`
}

// Summary renders the plan as one line for logs and quality prompts.
func (p *Plan) Summary() string {
	return fmt.Sprintf("%d frames, %s timing, %s arc (intensity %.1f), mode %s, (%.2f,%.2f) to (%.2f,%.2f)",
		p.FrameCount, p.TimingCurve, p.ArcType, p.ArcIntensity, p.Mode,
		p.StartPosition.X, p.StartPosition.Y, p.EndPosition.X, p.EndPosition.Y)
}

// PathAt returns the planned position at eased progress t: a parabolic
// arc when the plan calls for one, a straight blend otherwise.
func (p *Plan) PathAt(t float64) Position {
	if p.ArcType == ArcParabolic {
		return ArcPoint(p.StartPosition, p.EndPosition, t, p.ArcIntensity)
	}
	return Position{
		X: lerp(p.StartPosition.X, p.EndPosition.X, t),
		Y: lerp(p.StartPosition.Y, p.EndPosition.Y, t),
	}
}

// ArcPoint places t along a parabolic arc between start and end. The
// parabola passes through both endpoints for any intensity, peaking at
// t=0.5 with height proportional to travel distance.
func ArcPoint(start, end Position, t, intensity float64) Position {
	x := lerp(start.X, end.X, t)
	y := lerp(start.Y, end.Y, t)

	height := distance(start, end) * intensity * 0.3
	y -= height * 4 * t * (1 - t)

	return Position{X: x, Y: y}
}

// distance is the euclidean distance between two normalized points.
func distance(a, b Position) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}
