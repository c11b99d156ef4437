package intelligence

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeAnalysis(t *testing.T) {
	raw := "```json\n" + `{
		"motion_type": "teleportation",
		"motion_magnitude": {"distance_percent": 250, "rotation_degrees": 800},
		"motion_direction": {"description": "left to right"},
		"motion_energy": "ballistic"
	}` + "\n```"

	a, err := decodeAnalysis(raw)
	if err != nil {
		t.Fatalf("decodeAnalysis: %v", err)
	}
	if a.MotionType != MotionUnknown {
		t.Errorf("unknown motion type kept: %s", a.MotionType)
	}
	if a.Energy != EnergyMedium {
		t.Errorf("unknown energy kept: %s", a.Energy)
	}
	if a.Magnitude.DistancePercent != 100 {
		t.Errorf("distance = %v, want clamp to 100", a.Magnitude.DistancePercent)
	}
	if a.Magnitude.RotationDegrees != 80 {
		t.Errorf("rotation = %v, want 800 wrapped to 80", a.Magnitude.RotationDegrees)
	}

	if _, err := decodeAnalysis("not json at all"); err == nil {
		t.Error("malformed payload should error")
	}
}

func TestDecodePrinciples(t *testing.T) {
	raw := `{
		"principles": [
			{"name": "arc", "confidence": 1.7, "parameters": {"arc_intensity": 3.0}},
			{"name": "jazz_hands", "confidence": 0.9},
			{"name": "anticipation", "confidence": 0.2},
			{"name": "slow_in_slow_out", "confidence": 0.8, "parameters": {"ease_type": "sproing"}}
		],
		"dominant_principle": "jazz_hands",
		"complexity_score": 4.2
	}`

	ps, err := decodePrinciples(raw, FallbackAnalysis())
	if err != nil {
		t.Fatalf("decodePrinciples: %v", err)
	}

	var names []string
	for _, p := range ps.Principles {
		names = append(names, p.Name)
	}
	want := []string{PrincipleArc, PrincipleSlowInSlowOut, PrincipleTiming}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("kept principles %v, want %v", names, want)
	}

	arc := ps.Find(PrincipleArc)
	if arc.Confidence != 1 {
		t.Errorf("confidence = %v, want clamp to 1", arc.Confidence)
	}
	if arc.Parameters.ArcIntensity != 1 {
		t.Errorf("arc intensity = %v, want clamp to 1", arc.Parameters.ArcIntensity)
	}
	if slow := ps.Find(PrincipleSlowInSlowOut); slow.Parameters.EaseType != "" {
		t.Errorf("invalid ease type kept: %q", slow.Parameters.EaseType)
	}
	if ps.DominantPrinciple != PrincipleArc {
		t.Errorf("dominant = %s, want first kept principle", ps.DominantPrinciple)
	}
	if ps.ComplexityScore != 1 {
		t.Errorf("complexity = %v, want clamp to 1", ps.ComplexityScore)
	}
	if timing := ps.Find(PrincipleTiming); timing.Parameters.SpeedCategory != "medium" {
		t.Errorf("timing speed = %q, want medium from the analysis", timing.Parameters.SpeedCategory)
	}
}

func TestDecodeValidation(t *testing.T) {
	raw := `{"overall_score": 14, "smoothness": -3, "artifact_level": 6.5}`

	v, err := decodeValidation(raw)
	if err != nil {
		t.Fatalf("decodeValidation: %v", err)
	}
	if v.Overall != 10 {
		t.Errorf("overall = %v, want clamp to 10", v.Overall)
	}
	if v.Smoothness != 0 {
		t.Errorf("smoothness = %v, want clamp to 0", v.Smoothness)
	}
	if v.Artifacts != 6.5 {
		t.Errorf("artifacts = %v, want 6.5", v.Artifacts)
	}
	if v.Issues == nil || v.Suggestions == nil {
		t.Error("issue lists should never be nil after sanitizing")
	}
}

func TestFallbackAnalysis(t *testing.T) {
	a := FallbackAnalysis()
	if a.Energy != EnergyMedium || a.MotionType != MotionUnknown {
		t.Errorf("fallback = %+v", a)
	}
	if a.Magnitude.DistancePercent != 30 {
		t.Errorf("distance = %v, want 30", a.Magnitude.DistancePercent)
	}
	if a.Direction.Description == "" {
		t.Error("fallback needs a direction for position extraction")
	}
}

func TestDefaultPrinciples(t *testing.T) {
	tests := []struct {
		name      string
		analysis  *MotionAnalysis
		wantArc   bool
		wantSlow  bool
		wantSpeed string
	}{
		{"nil analysis", nil, false, true, "medium"},
		{
			"translation",
			&MotionAnalysis{MotionType: MotionTranslation, Energy: EnergySlow},
			true, true, "slow",
		},
		{
			"fast deformation",
			&MotionAnalysis{MotionType: MotionDeformation, Energy: EnergyExplosive},
			false, false, "fast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := DefaultPrinciples(tt.analysis)
			if got := ps.Find(PrincipleArc) != nil; got != tt.wantArc {
				t.Errorf("arc present = %v, want %v", got, tt.wantArc)
			}
			if got := ps.Find(PrincipleSlowInSlowOut) != nil; got != tt.wantSlow {
				t.Errorf("slow in slow out present = %v, want %v", got, tt.wantSlow)
			}
			timing := ps.Find(PrincipleTiming)
			if timing == nil {
				t.Fatal("timing principle is always present")
			}
			if timing.Parameters.SpeedCategory != tt.wantSpeed {
				t.Errorf("speed = %q, want %q", timing.Parameters.SpeedCategory, tt.wantSpeed)
			}
			if ps.DominantPrinciple == "" {
				t.Error("dominant principle unset")
			}
			if ps.ComplexityScore < 0 || ps.ComplexityScore > 1 {
				t.Errorf("complexity %v outside [0,1]", ps.ComplexityScore)
			}
		})
	}
}

func TestNeutralValidation(t *testing.T) {
	v := NeutralValidation()
	if v.Overall != 7.0 {
		t.Errorf("overall = %v, want the neutral 7.0", v.Overall)
	}
	if v.NeedsRefinement {
		t.Error("neutral assessment should not demand refinement")
	}
}
