package engine

import (
	"time"

	"github.com/ivlev/inbetween/internal/director"
	"github.com/ivlev/inbetween/internal/intelligence"
	"github.com/ivlev/inbetween/internal/renderer"
	"github.com/ivlev/inbetween/internal/source"
)

// Stage names the pipeline states. A job moves through them strictly
// sequentially; only the validate stage branches.
type Stage string

const (
	StageAnalyze          Stage = "analyze"
	StageDetectPrinciples Stage = "detect_principles"
	StagePlan             Stage = "plan"
	StageGenerate         Stage = "generate"
	StageValidate         Stage = "validate"
	StageRefine           Stage = "refine"
	StageDone             Stage = "done"
)

// Event is one stage-completion record. The event log is append-only
// and keeps one record per stage visit, so replan and refine loops stay
// fully auditable.
type Event struct {
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

// State is the single record threaded through all pipeline stages.
// Exactly one stage owns it at any instant.
type State struct {
	JobID       string
	Instruction string
	Pair        *source.Pair

	Analysis      *intelligence.MotionAnalysis
	Principles    *intelligence.PrincipleSet
	Plan          *director.Plan
	Frames        []renderer.Frame
	Validation    *intelligence.Validation
	RefinedFrames []renderer.Frame
	Iterations    int

	Events    []Event
	LastError error
}

// NewState builds the initial record for one job.
func NewState(jobID, instruction string, pair *source.Pair) *State {
	return &State{
		JobID:       jobID,
		Instruction: instruction,
		Pair:        pair,
	}
}

// ActiveFrames returns the authoritative sequence: refined frames
// supersede the originals once a refinement pass has run.
func (s *State) ActiveFrames() []renderer.Frame {
	if len(s.RefinedFrames) > 0 {
		return s.RefinedFrames
	}
	return s.Frames
}

func (s *State) appendEvent(stage Stage, action, detail string) {
	s.Events = append(s.Events, Event{
		Stage:     stage,
		Timestamp: time.Now(),
		Action:    action,
		Detail:    detail,
	})
}
