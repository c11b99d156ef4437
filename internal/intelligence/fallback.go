package intelligence

// Fallback records substituted when a capability call fails. The
// pipeline degrades quality silently instead of aborting the job, so
// every record here must be safe to plan and validate against.

// FallbackAnalysis is the neutral motion analysis: unknown type, medium
// energy, a modest travel distance so the planner still produces a
// usable trajectory.
func FallbackAnalysis() *MotionAnalysis {
	return &MotionAnalysis{
		MotionType: MotionUnknown,
		Magnitude:  MotionMagnitude{DistancePercent: 30},
		Direction:  MotionDirection{Description: "left to right"},
		Energy:     EnergyMedium,
		Style:      "unknown",
	}
}

// DefaultPrinciples derives a deterministic principle set from the
// motion analysis: arc for rotational or translational motion, slow in
// and out for unhurried motion, timing always.
func DefaultPrinciples(analysis *MotionAnalysis) *PrincipleSet {
	if analysis == nil {
		analysis = FallbackAnalysis()
	}

	var principles []Principle

	if analysis.MotionType == MotionRotation || analysis.MotionType == MotionTranslation || analysis.Direction.ArcDetected {
		principles = append(principles, Principle{
			Name:       PrincipleArc,
			Confidence: 0.7,
			Reason:     "directional motion benefits from a curved path",
			Parameters: PrincipleParams{ArcIntensity: 0.5},
		})
	}

	if analysis.Energy == EnergyVerySlow || analysis.Energy == EnergySlow || analysis.Energy == EnergyMedium {
		principles = append(principles, Principle{
			Name:       PrincipleSlowInSlowOut,
			Confidence: 0.6,
			Reason:     "unhurried motion reads better with eased endpoints",
			Parameters: PrincipleParams{EaseType: "ease_in_out"},
		})
	}

	principles = append(principles, defaultTiming(analysis))

	return &PrincipleSet{
		Principles:        principles,
		DominantPrinciple: principles[0].Name,
		ComplexityScore:   clamp(0.25*float64(len(principles)), 0, 1),
	}
}

func defaultTiming(analysis *MotionAnalysis) Principle {
	speed := "medium"
	if analysis != nil {
		switch analysis.Energy {
		case EnergyVerySlow, EnergySlow:
			speed = "slow"
		case EnergyFast, EnergyVeryFast, EnergyExplosive:
			speed = "fast"
		}
	}
	return Principle{
		Name:       PrincipleTiming,
		Confidence: 0.9,
		Reason:     "every motion carries timing",
		Parameters: PrincipleParams{SpeedCategory: speed},
	}
}

// NeutralValidation is the passing score substituted when quality
// assessment is unavailable, keeping the routing table moving toward
// termination.
func NeutralValidation() *Validation {
	return &Validation{
		Overall:      7.0,
		Smoothness:   7.0,
		ArcAdherence: 7.0,
		Volume:       7.0,
		Artifacts:    7.0,
		Style:        7.0,
		Issues:       []string{},
		Suggestions:  []string{},
	}
}
