package animation

import "github.com/ivlev/template2video/internal/scene"

// Ease reparameterizes linear progress t in [0,1]. Every curve satisfies
// Ease(0) = 0 and Ease(1) = 1. Unknown easings fall back to linear.
func Ease(easing scene.Easing, t float64) float64 {
	switch easing {
	case scene.EaseIn:
		return easeInQuad(t)
	case scene.EaseOut:
		return easeOutQuad(t)
	case scene.EaseInOut:
		return easeInOutQuad(t)
	default:
		return t
	}
}

func easeInQuad(t float64) float64 {
	return t * t
}

func easeOutQuad(t float64) float64 {
	return 1 - pow(1-t, 2)
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - pow(-2*t+2, 2)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
