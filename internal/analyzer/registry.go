package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "alpha", "":
		return NewAlphaDetector(), nil
	case "saliency":
		return nil, fmt.Errorf("saliency detector not yet implemented")
	case "ml":
		return nil, fmt.Errorf("ML detector not yet implemented")
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
