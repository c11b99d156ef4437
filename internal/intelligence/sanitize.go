package intelligence

import (
	"encoding/json"
	"fmt"
	"strings"
)

// minConfidence filters out principles the model itself is unsure of.
const minConfidence = 0.5

// stripFences removes the markdown code fences models like to wrap
// JSON responses in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeAnalysis parses and sanitizes a motion analysis payload.
func decodeAnalysis(raw string) (*MotionAnalysis, error) {
	var a MotionAnalysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &a); err != nil {
		return nil, fmt.Errorf("malformed motion analysis: %w", err)
	}
	a.sanitize()
	return &a, nil
}

func (a *MotionAnalysis) sanitize() {
	if !knownMotionTypes[a.MotionType] {
		a.MotionType = MotionUnknown
	}
	if !knownEnergies[a.Energy] {
		a.Energy = EnergyMedium
	}
	a.Magnitude.DistancePercent = clamp(a.Magnitude.DistancePercent, 0, 100)
	for a.Magnitude.RotationDegrees < -360 {
		a.Magnitude.RotationDegrees += 360
	}
	for a.Magnitude.RotationDegrees > 360 {
		a.Magnitude.RotationDegrees -= 360
	}
}

// decodePrinciples parses and sanitizes a principle set payload:
// confidences clamped, unknown principle names and low-confidence
// entries dropped, timing coverage guaranteed.
func decodePrinciples(raw string, analysis *MotionAnalysis) (*PrincipleSet, error) {
	var ps PrincipleSet
	if err := json.Unmarshal([]byte(stripFences(raw)), &ps); err != nil {
		return nil, fmt.Errorf("malformed principle set: %w", err)
	}
	ps.sanitize(analysis)
	return &ps, nil
}

func (ps *PrincipleSet) sanitize(analysis *MotionAnalysis) {
	kept := ps.Principles[:0]
	for _, p := range ps.Principles {
		if !knownPrinciples[p.Name] {
			continue
		}
		p.Confidence = clamp(p.Confidence, 0, 1)
		if p.Confidence < minConfidence {
			continue
		}
		if p.Parameters.EaseType != "" && !knownEaseTypes[p.Parameters.EaseType] {
			p.Parameters.EaseType = ""
		}
		p.Parameters.ArcIntensity = clamp(p.Parameters.ArcIntensity, 0, 1)
		kept = append(kept, p)
	}
	ps.Principles = kept

	if ps.Find(PrincipleTiming) == nil {
		ps.Principles = append(ps.Principles, defaultTiming(analysis))
	}
	if !knownPrinciples[ps.DominantPrinciple] || ps.Find(ps.DominantPrinciple) == nil {
		ps.DominantPrinciple = ps.Principles[0].Name
	}
	ps.ComplexityScore = clamp(ps.ComplexityScore, 0, 1)
}

// decodeValidation parses and sanitizes a quality assessment payload,
// clamping every score into [0,10].
func decodeValidation(raw string) (*Validation, error) {
	var v Validation
	if err := json.Unmarshal([]byte(stripFences(raw)), &v); err != nil {
		return nil, fmt.Errorf("malformed validation: %w", err)
	}
	v.sanitize()
	return &v, nil
}

func (v *Validation) sanitize() {
	v.Overall = clamp(v.Overall, 0, 10)
	v.Smoothness = clamp(v.Smoothness, 0, 10)
	v.ArcAdherence = clamp(v.ArcAdherence, 0, 10)
	v.Volume = clamp(v.Volume, 0, 10)
	v.Artifacts = clamp(v.Artifacts, 0, 10)
	v.Style = clamp(v.Style, 0, 10)
	if v.Issues == nil {
		v.Issues = []string{}
	}
	if v.Suggestions == nil {
		v.Suggestions = []string{}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
