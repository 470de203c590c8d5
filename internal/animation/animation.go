// Package animation maps an element's animation and the elapsed scene time
// to the opacity and transform it is drawn with.
package animation

import (
	"github.com/ivlev/template2video/internal/scene"
)

// slideDistance is how far slideIn/slideOut move an element, in pixels.
const slideDistance = 100.0

// State is the visual state of an element at one instant.
type State struct {
	Progress float64 // eased progress in [0,1]
	Opacity  float64 // 1 = fully opaque
	OffsetX  float64 // horizontal translation in pixels
	Scale    float64 // uniform scale about the canvas origin
}

// Identity is the state of an element without animation.
var Identity = State{Progress: 1, Opacity: 1, Scale: 1}

// Visible reports whether the element is drawn at all. Progress 0 means the
// animation has not started yet and the element is skipped entirely.
func (s State) Visible() bool {
	return s.Progress > 0
}

// Progress returns the eased progress of anim at timeInScene.
func Progress(anim *scene.Animation, timeInScene float64) float64 {
	if anim == nil {
		return 1
	}

	start := anim.Delay
	end := start + anim.Duration

	if timeInScene < start {
		return 0
	}
	if timeInScene >= end {
		return 1
	}

	return Ease(anim.EasingOrDefault(), (timeInScene-start)/anim.Duration)
}

// Apply derives the visual state of anim at the given progress.
func Apply(anim *scene.Animation, progress float64) State {
	s := Identity
	s.Progress = progress
	if anim == nil {
		return s
	}

	switch anim.Type {
	case scene.FadeIn:
		s.Opacity = progress
	case scene.FadeOut:
		s.Opacity = 1 - progress
	case scene.SlideIn:
		s.OffsetX = lerp(-slideDistance, 0, progress)
	case scene.SlideOut:
		s.OffsetX = lerp(0, slideDistance, progress)
	case scene.ScaleIn:
		s.Scale = lerp(0.5, 1, progress)
	case scene.ScaleOut:
		s.Scale = lerp(1, 0.5, progress)
	}
	return s
}

// Evaluate combines Progress and Apply.
func Evaluate(anim *scene.Animation, timeInScene float64) State {
	return Apply(anim, Progress(anim, timeInScene))
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
