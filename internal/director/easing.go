package director

import "math"

// Curve identifies a timing curve. Values match the ease_type strings
// reported by principle detection.
type Curve string

const (
	CurveLinear    Curve = "linear"
	CurveEaseIn    Curve = "ease_in"
	CurveEaseOut   Curve = "ease_out"
	CurveEaseInOut Curve = "ease_in_out"
	CurveBounce    Curve = "bounce"
	CurveElastic   Curve = "elastic"
)

// Curves lists every supported timing curve.
var Curves = []Curve{CurveLinear, CurveEaseIn, CurveEaseOut, CurveEaseInOut, CurveBounce, CurveElastic}

// Ease maps linear progress t in [0,1] onto the curve. Both endpoints
// are exact: Ease(c, 0) == 0 and Ease(c, 1) == 1 for every curve.
func Ease(curve Curve, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch curve {
	case CurveEaseIn:
		return t * t
	case CurveEaseOut:
		return 1 - (1-t)*(1-t)
	case CurveEaseInOut, CurveBounce:
		// A true bounce would move frames backward; bounce keeps the
		// monotonic eased curve instead.
		if t < 0.5 {
			return 2 * t * t
		}
		u := 1 - t
		return 1 - 2*u*u
	case CurveElastic:
		p := 0.3
		s := p / 4
		return math.Pow(2, -10*t)*math.Sin((t-s)*(2*math.Pi)/p) + 1
	default:
		return t
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
