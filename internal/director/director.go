package director

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ivlev/inbetween/internal/intelligence"
)

// Director turns a motion analysis, a principle set and the raw
// instruction into a concrete generation plan.
type Director struct {
	MinFrames int
	MaxFrames int
}

// NewDirector creates a Director with the given frame count bounds.
// Zero values fall back to the standard 4..32 window.
func NewDirector(minFrames, maxFrames int) *Director {
	if minFrames <= 0 {
		minFrames = 4
	}
	if maxFrames < minFrames {
		maxFrames = 32
	}
	return &Director{MinFrames: minFrames, MaxFrames: maxFrames}
}

// Plan computes the frame schedule. It is deterministic: the same
// inputs always produce the same plan, so a replan only changes the
// outcome when its inputs changed.
func (d *Director) Plan(analysis *intelligence.MotionAnalysis, principles *intelligence.PrincipleSet, instruction string) *Plan {
	if analysis == nil {
		analysis = intelligence.FallbackAnalysis()
	}
	if principles == nil {
		principles = intelligence.DefaultPrinciples(analysis)
	}

	frameCount := d.frameCount(instruction, analysis.Energy)
	curve := timingCurve(principles)
	arcType, arcIntensity := arcSettings(principles, analysis)
	start, end := extractPositions(analysis)

	plan := &Plan{
		FrameCount:    frameCount,
		TimingCurve:   curve,
		ArcType:       arcType,
		ArcIntensity:  arcIntensity,
		StartPosition: start,
		EndPosition:   end,
		Mode:          parseMode(instruction),
	}

	plan.Schedule = make([]FrameStep, frameCount)
	for i := 0; i < frameCount; i++ {
		t := 0.0
		if frameCount > 1 {
			t = float64(i) / float64(frameCount-1)
		}
		eased := Ease(curve, t)
		plan.Schedule[i] = FrameStep{
			Index:  i,
			T:      t,
			Eased:  eased,
			ArcPos: plan.PathAt(eased),
		}
	}

	return plan
}

var frameCountPattern = regexp.MustCompile(`\b(\d+)\b`)

// frameCount honors an explicit count in the instruction, otherwise
// maps motion energy to a count: fast motion gets fewer frames (shorter
// implied screen time), slow motion gets finer temporal resolution.
func (d *Director) frameCount(instruction, energy string) int {
	if m := frameCountPattern.FindStringSubmatch(instruction); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return d.clampFrames(n)
		}
	}

	switch energy {
	case intelligence.EnergyVerySlow:
		return d.clampFrames(16)
	case intelligence.EnergySlow:
		return d.clampFrames(12)
	case intelligence.EnergyFast:
		return d.clampFrames(6)
	case intelligence.EnergyVeryFast, intelligence.EnergyExplosive:
		return d.clampFrames(4)
	default:
		return d.clampFrames(8)
	}
}

func (d *Director) clampFrames(n int) int {
	if n < d.MinFrames {
		return d.MinFrames
	}
	if n > d.MaxFrames {
		return d.MaxFrames
	}
	return n
}

// timingCurve picks the curve: a slow_in_slow_out principle's declared
// ease wins, then the timing principle's speed category, then linear.
func timingCurve(principles *intelligence.PrincipleSet) Curve {
	if p := principles.Find(intelligence.PrincipleSlowInSlowOut); p != nil {
		if p.Parameters.EaseType != "" {
			return Curve(p.Parameters.EaseType)
		}
		return CurveEaseInOut
	}

	if p := principles.Find(intelligence.PrincipleTiming); p != nil {
		switch p.Parameters.SpeedCategory {
		case "slow":
			return CurveEaseInOut
		case "fast":
			return CurveLinear
		}
	}

	return CurveLinear
}

// arcSettings enables the parabolic path when an arc principle is
// present or the analysis saw a curved motion.
func arcSettings(principles *intelligence.PrincipleSet, analysis *intelligence.MotionAnalysis) (string, float64) {
	if p := principles.Find(intelligence.PrincipleArc); p != nil {
		intensity := p.Parameters.ArcIntensity
		if intensity <= 0 {
			intensity = 0.5
		}
		return ArcParabolic, intensity
	}

	if analysis.Direction.ArcDetected {
		return ArcParabolic, 0.5
	}

	return ArcNone, 0
}

// extractPositions synthesizes start and end points from the coarse
// direction description and travel distance, symmetric around center
// and clamped to the canvas interior to avoid edge clipping.
func extractPositions(analysis *intelligence.MotionAnalysis) (Position, Position) {
	desc := strings.ToLower(analysis.Direction.Description)

	dx, dy := 0.0, 0.0
	// "left to right" names the destination last but contains both
	// keywords; rightward and upward win the tie.
	if strings.Contains(desc, "right") {
		dx = 1
	} else if strings.Contains(desc, "left") {
		dx = -1
	}
	if strings.Contains(desc, "up") || strings.Contains(desc, "rise") || strings.Contains(desc, "rising") {
		dy = -1
	} else if strings.Contains(desc, "down") || strings.Contains(desc, "fall") || strings.Contains(desc, "falling") {
		dy = 1
	}
	if dx == 0 && dy == 0 {
		dx = 1
	}

	span := analysis.Magnitude.DistancePercent / 100

	start := Position{X: clampPos(0.5 - dx*span/2), Y: clampPos(0.5 - dy*span/2)}
	end := Position{X: clampPos(0.5 + dx*span/2), Y: clampPos(0.5 + dy*span/2)}
	return start, end
}

// clampPos keeps a normalized coordinate inside [0.1, 0.9].
func clampPos(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 0.9 {
		return 0.9
	}
	return v
}

// parseMode honors an explicit render mode request in the instruction.
func parseMode(instruction string) string {
	lower := strings.ToLower(instruction)
	if strings.Contains(lower, "procedural") {
		return ModeProcedural
	}
	if strings.Contains(lower, "neural") {
		return ModeNeural
	}
	return ModeAuto
}
