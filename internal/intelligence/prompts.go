package intelligence

import "fmt"

const analysisSystemPrompt = `You are an animation motion analyst. You receive two keyframes of a 2D animation and the animator's instruction, and you describe the motion between them.

Respond with a single JSON object and nothing else:
{
  "motion_type": "translation|rotation|scaling|deformation|complex|unknown",
  "motion_magnitude": {"distance_percent": 0-100, "rotation_degrees": -360-360},
  "motion_direction": {"description": "short phrase like 'left to right, rising'", "arc_detected": true|false},
  "motion_energy": "very_slow|slow|medium|fast|very_fast|explosive",
  "style": "short description of the drawing style",
  "visual_characteristics": ["notable traits of the subject"]
}

distance_percent is the subject's travel relative to the canvas width. Set arc_detected when the motion would naturally curve rather than follow a straight line.`

const principlesSystemPrompt = `You are an expert in the twelve classical animation principles. Given a motion analysis and the animator's instruction, decide which principles apply to the inbetweens.

Principle names you may use: arc, slow_in_slow_out, timing, squash_and_stretch, anticipation, follow_through, secondary_action, exaggeration, staging, appeal, solid_drawing, pose_to_pose.

Respond with a single JSON object and nothing else:
{
  "principles": [
    {
      "name": "principle name from the list",
      "confidence": 0.0-1.0,
      "reason": "one sentence",
      "parameters": {"ease_type": "linear|ease_in|ease_out|ease_in_out|bounce|elastic", "arc_intensity": 0.0-1.0, "speed_category": "slow|medium|fast"}
    }
  ],
  "dominant_principle": "name of the most important principle",
  "complexity_score": 0.0-1.0
}

Include parameters only where they apply: ease_type for slow_in_slow_out, arc_intensity for arc, speed_category for timing. Always include a timing principle.`

const validationSystemPrompt = `You are a quality reviewer for generated animation inbetweens. You receive the two original keyframes, a sample of generated frames in order, and a summary of the generation plan. Score the sequence.

Respond with a single JSON object and nothing else:
{
  "overall_score": 0-10,
  "smoothness": 0-10,
  "arc_adherence": 0-10,
  "volume_consistency": 0-10,
  "artifact_level": 0-10,
  "style_consistency": 0-10,
  "issues": ["specific problems found"],
  "suggestions": ["concrete improvements"],
  "needs_refinement": true|false
}

smoothness: no jumps or stutters between neighboring frames. arc_adherence: the motion follows the planned path. volume_consistency: the subject keeps its mass. artifact_level: higher means fewer artifacts (10 = clean). style_consistency: the frames match the keyframes' drawing style.`

func analysisUserPrompt(instruction string) string {
	return fmt.Sprintf("Instruction: %q\n\nThe first image is the starting keyframe, the second the ending keyframe. Analyze the motion between them.", instruction)
}

func principlesUserPrompt(analysis *MotionAnalysis, instruction string) string {
	return fmt.Sprintf(
		"Instruction: %q\n\nMotion analysis: type=%s energy=%s distance=%.0f%% rotation=%.0fdeg direction=%q arc_detected=%t style=%q\n\nSelect the applicable animation principles.",
		instruction,
		analysis.MotionType,
		analysis.Energy,
		analysis.Magnitude.DistancePercent,
		analysis.Magnitude.RotationDegrees,
		analysis.Direction.Description,
		analysis.Direction.ArcDetected,
		analysis.Style,
	)
}

func validationUserPrompt(planSummary string, sampled int) string {
	return fmt.Sprintf(
		"Plan: %s\n\nThe first two images are the original keyframes. The following %d images are generated frames sampled across the sequence in order. Score the sequence.",
		planSummary, sampled,
	)
}
