// Package scene holds the template data model: templates, scenes, animated
// elements and the options a render call is made with.
package scene

import "math"

// Template is a complete video description. It is treated as immutable value
// data once handed to the engine.
type Template struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Duration    float64   `yaml:"duration"` // seconds
	Width       int       `yaml:"width"`
	Height      int       `yaml:"height"`
	FPS         int       `yaml:"fps"`
	Scenes      []Scene   `yaml:"scenes"`
	Metadata    *Metadata `yaml:"metadata,omitempty"`
}

type Metadata struct {
	Author  string   `yaml:"author,omitempty"`
	Version string   `yaml:"version,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Scene is a time-bounded segment with its own background and element list.
// Elements are drawn in slice order, the first one at the bottom.
type Scene struct {
	ID              string       `yaml:"id"`
	Duration        float64      `yaml:"duration"` // seconds
	BackgroundColor string       `yaml:"backgroundColor,omitempty"`
	Elements        []Element    `yaml:"elements"`
	Transitions     *Transitions `yaml:"transitions,omitempty"`
}

// Transitions are kept for round-tripping templates; the renderer does not
// draw scene transitions.
type Transitions struct {
	In  *Animation `yaml:"in,omitempty"`
	Out *Animation `yaml:"out,omitempty"`
}

// Clone returns a copy of the scene whose element slice can be modified
// without touching the receiver.
func (s Scene) Clone() Scene {
	out := s
	out.Elements = make([]Element, len(s.Elements))
	copy(out.Elements, s.Elements)
	return out
}

// FrameCount returns the number of frames the scene spans at fps.
func (s Scene) FrameCount(fps int) int {
	return FrameCount(s.Duration, fps)
}

// frameEpsilon absorbs float error in duration*fps (0.1*30 = 3.0000000000000004).
const frameEpsilon = 1e-9

// FrameCount returns ceil(duration*fps). Products within frameEpsilon of a
// positive integer count as that integer. A positive duration always spans at
// least one frame.
func FrameCount(duration float64, fps int) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	x := duration * float64(fps)
	if r := math.Round(x); r > 0 && math.Abs(x-r) < frameEpsilon {
		return int(r)
	}
	return int(math.Ceil(x))
}

// TotalFrames sums the frame counts of all scenes of the template.
func (t *Template) TotalFrames() int {
	total := 0
	for _, s := range t.Scenes {
		total += s.FrameCount(t.FPS)
	}
	return total
}

type AnimationType string

const (
	FadeIn   AnimationType = "fadeIn"
	FadeOut  AnimationType = "fadeOut"
	SlideIn  AnimationType = "slideIn"
	SlideOut AnimationType = "slideOut"
	ScaleIn  AnimationType = "scaleIn"
	ScaleOut AnimationType = "scaleOut"
)

type Easing string

const (
	EaseLinear    Easing = "linear"
	EaseIn        Easing = "easeIn"
	EaseOut       Easing = "easeOut"
	EaseInOut     Easing = "easeInOut"
	defaultEasing        = EaseLinear
)

// Animation maps elapsed scene time to an element's opacity or transform.
type Animation struct {
	Type     AnimationType `yaml:"type"`
	Duration float64       `yaml:"duration"`
	Delay    float64       `yaml:"delay,omitempty"`
	Easing   Easing        `yaml:"easing,omitempty"`
}

// EasingOrDefault returns the configured easing, linear when unset.
func (a *Animation) EasingOrDefault() Easing {
	if a.Easing == "" {
		return defaultEasing
	}
	return a.Easing
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// AudioTrack is an optional secondary input muxed into the output.
type AudioTrack struct {
	Enabled bool     `yaml:"enabled"`
	Src     string   `yaml:"src"`
	Volume  *float64 `yaml:"volume,omitempty"`
}

// Active reports whether the track should be passed to the encoder.
func (a *AudioTrack) Active() bool {
	return a != nil && a.Enabled && a.Src != ""
}

// RenderOptions describes where and how a render call writes its video.
// Output is a local path or an s3://bucket/key URI.
type RenderOptions struct {
	Output  string      `yaml:"output"`
	Quality Quality     `yaml:"quality,omitempty"`
	Audio   *AudioTrack `yaml:"audio,omitempty"`
}
