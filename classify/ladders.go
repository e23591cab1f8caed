package classify

// Roughness maps jitter and shimmer percentages onto 0, 60 or 85. It is nil
// when neither measurement exists.
func Roughness(jitter, shimmer *float64) *float64 {
	if jitter == nil && shimmer == nil {
		return nil
	}
	switch {
	case ge(jitter, 2.0) || ge(shimmer, 5.0):
		return ptr(85)
	case ge(jitter, 1.0) || ge(shimmer, 3.0):
		return ptr(60)
	default:
		return ptr(0)
	}
}

// Strain maps H1-H2 onto 0, 60 or 85; lower H1-H2 means more pressed
func Strain(h1h2 *float64) *float64 {
	if h1h2 == nil {
		return nil
	}
	switch {
	case *h1h2 < -4:
		return ptr(85)
	case *h1h2 < 0:
		return ptr(60)
	default:
		return ptr(0)
	}
}

// Overall labels
const (
	OverallBreathy = "Primarily breathy"
	OverallPressed = "Primarily pressed/strained"
	OverallRough   = "Rough/irregular"
	OverallModal   = "Mostly modal/clean"
)

// OverallLabel combines the three perceptual scores. Missing scores count as 0.
func OverallLabel(breathiness, roughness, strain *float64) string {
	b, r, s := orZero(breathiness), orZero(roughness), orZero(strain)
	switch {
	case b > 70 && s < 40:
		return OverallBreathy
	case s > 60 && b < 40:
		return OverallPressed
	case r > 60:
		return OverallRough
	default:
		return OverallModal
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
