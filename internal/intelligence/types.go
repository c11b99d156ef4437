// Package intelligence defines the contracts for the generative-model
// capabilities the pipeline consumes: motion analysis, animation
// principle detection and quality assessment. Payloads coming back from
// the model are sanitized at this boundary so the rest of the pipeline
// only ever sees well-formed records.
package intelligence

import "context"

// Service is the set of reasoning capabilities the orchestrator calls.
// Every method may fail; callers substitute the documented fallback and
// continue rather than aborting the job.
type Service interface {
	AnalyzeMotion(ctx context.Context, keyframe1, keyframe2 []byte, instruction string) (*MotionAnalysis, error)
	DetectPrinciples(ctx context.Context, analysis *MotionAnalysis, instruction string) (*PrincipleSet, error)
	AssessQuality(ctx context.Context, frames [][]byte, keyframe1, keyframe2 []byte, planSummary string) (*Validation, error)
}

// Motion type classifications.
const (
	MotionTranslation = "translation"
	MotionRotation    = "rotation"
	MotionScaling     = "scaling"
	MotionDeformation = "deformation"
	MotionComplex     = "complex"
	MotionUnknown     = "unknown"
)

// Motion energy categories, slowest to fastest.
const (
	EnergyVerySlow  = "very_slow"
	EnergySlow      = "slow"
	EnergyMedium    = "medium"
	EnergyFast      = "fast"
	EnergyVeryFast  = "very_fast"
	EnergyExplosive = "explosive"
)

// The classical animation principles the detector may report.
const (
	PrincipleArc            = "arc"
	PrincipleSlowInSlowOut  = "slow_in_slow_out"
	PrincipleTiming         = "timing"
	PrincipleSquashStretch  = "squash_and_stretch"
	PrincipleAnticipation   = "anticipation"
	PrincipleFollowThrough  = "follow_through"
	PrincipleSecondaryMove  = "secondary_action"
	PrincipleExaggeration   = "exaggeration"
	PrincipleStaging        = "staging"
	PrincipleAppeal         = "appeal"
	PrincipleSolidDrawing   = "solid_drawing"
	PrinciplePoseToPose     = "pose_to_pose"
)

// MotionAnalysis describes what changes between the two keyframes.
type MotionAnalysis struct {
	MotionType            string          `json:"motion_type"`
	Magnitude             MotionMagnitude `json:"motion_magnitude"`
	Direction             MotionDirection `json:"motion_direction"`
	Energy                string          `json:"motion_energy"`
	Style                 string          `json:"style"`
	VisualCharacteristics []string        `json:"visual_characteristics"`
}

// MotionMagnitude quantifies how far the subject travels.
type MotionMagnitude struct {
	DistancePercent float64 `json:"distance_percent"`
	RotationDegrees float64 `json:"rotation_degrees"`
}

// MotionDirection is a coarse description of where the subject goes.
type MotionDirection struct {
	Description string `json:"description"`
	ArcDetected bool   `json:"arc_detected"`
}

// Principle is one detected animation principle with a confidence and
// the parameters the planner consumes.
type Principle struct {
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Parameters PrincipleParams `json:"parameters"`
}

// PrincipleParams is the strict schema for principle tuning knobs.
type PrincipleParams struct {
	EaseType      string  `json:"ease_type,omitempty"`
	ArcIntensity  float64 `json:"arc_intensity,omitempty"`
	SpeedCategory string  `json:"speed_category,omitempty"`
}

// PrincipleSet is the ordered principle list for one motion.
type PrincipleSet struct {
	Principles        []Principle `json:"principles"`
	DominantPrinciple string      `json:"dominant_principle"`
	ComplexityScore   float64     `json:"complexity_score"`
}

// Find returns the first principle with the given name, or nil.
func (ps *PrincipleSet) Find(name string) *Principle {
	for i := range ps.Principles {
		if ps.Principles[i].Name == name {
			return &ps.Principles[i]
		}
	}
	return nil
}

// Validation is the quality assessment of a generated sequence. All
// scores run 0-10; for Artifacts higher means fewer artifacts.
type Validation struct {
	Overall         float64  `json:"overall_score"`
	Smoothness      float64  `json:"smoothness"`
	ArcAdherence    float64  `json:"arc_adherence"`
	Volume          float64  `json:"volume_consistency"`
	Artifacts       float64  `json:"artifact_level"`
	Style           float64  `json:"style_consistency"`
	Issues          []string `json:"issues"`
	Suggestions     []string `json:"suggestions"`
	NeedsRefinement bool     `json:"needs_refinement"`
}

var knownEnergies = map[string]bool{
	EnergyVerySlow:  true,
	EnergySlow:      true,
	EnergyMedium:    true,
	EnergyFast:      true,
	EnergyVeryFast:  true,
	EnergyExplosive: true,
}

var knownMotionTypes = map[string]bool{
	MotionTranslation: true,
	MotionRotation:    true,
	MotionScaling:     true,
	MotionDeformation: true,
	MotionComplex:     true,
	MotionUnknown:     true,
}

var knownPrinciples = map[string]bool{
	PrincipleArc:           true,
	PrincipleSlowInSlowOut: true,
	PrincipleTiming:        true,
	PrincipleSquashStretch: true,
	PrincipleAnticipation:  true,
	PrincipleFollowThrough: true,
	PrincipleSecondaryMove: true,
	PrincipleExaggeration:  true,
	PrincipleStaging:       true,
	PrincipleAppeal:        true,
	PrincipleSolidDrawing:  true,
	PrinciplePoseToPose:    true,
}

var knownEaseTypes = map[string]bool{
	"linear":      true,
	"ease_in":     true,
	"ease_out":    true,
	"ease_in_out": true,
	"bounce":      true,
	"elastic":     true,
}
