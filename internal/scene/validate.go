package scene

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate is matched by every ValidationError.
var ErrInvalidTemplate = errors.New("invalid template")

// ValidationError lists every problem found in a template. It is reported
// before any frame work starts.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidTemplate, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidTemplate
}

// Validate checks the structural invariants of a template.
func Validate(t *Template) error {
	if t == nil {
		return &ValidationError{Problems: []string{"template is nil"}}
	}

	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.Name == "" {
		add("template name is required")
	}
	if t.Duration <= 0 {
		add("duration must be positive")
	}
	if t.Width <= 0 {
		add("width must be positive")
	}
	if t.Height <= 0 {
		add("height must be positive")
	}
	if t.FPS <= 0 {
		add("fps must be positive")
	}
	if len(t.Scenes) == 0 {
		add("at least one scene is required")
	}

	for i, s := range t.Scenes {
		for _, p := range sceneProblems(s) {
			add("scene %d: %s", i, p)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func sceneProblems(s Scene) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.ID == "" {
		add("id is required")
	}
	if s.Duration <= 0 {
		add("duration must be positive")
	}
	if s.BackgroundColor != "" {
		if _, err := ParseColor(s.BackgroundColor); err != nil {
			add("background: %v", err)
		}
	}
	if len(s.Elements) == 0 {
		add("at least one element is required")
	}

	for j, e := range s.Elements {
		for _, p := range elementProblems(e) {
			add("element %d: %s", j, p)
		}
	}
	return problems
}

func elementProblems(e Element) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	checkColor := func(field, value string) {
		if value == "" {
			return
		}
		if _, err := ParseColor(value); err != nil {
			add("%s: %v", field, err)
		}
	}

	switch b := e.Body.(type) {
	case Text:
		if b.Content == "" {
			add("text content is required")
		}
		if b.Style.FontSize <= 0 {
			add("font size must be positive")
		}
		if b.Style.Color == "" {
			add("text color is required")
		}
		checkColor("color", b.Style.Color)
		checkColor("shadowColor", b.Style.ShadowColor)
		switch b.Style.TextAlign {
		case "", AlignLeft, AlignCenter, AlignRight:
		default:
			add("unknown text alignment %q", b.Style.TextAlign)
		}
		if b.Style.ShadowBlur < 0 {
			add("shadow blur must not be negative")
		}
	case Image:
		if b.Style.Width <= 0 || b.Style.Height <= 0 {
			add("image size must be positive")
		}
		if b.Style.BorderRadius < 0 {
			add("border radius must not be negative")
		}
		if o := b.Style.OpacityOrDefault(); o < 0 || o > 1 {
			add("opacity must be within [0,1]")
		}
	case Shape:
		// The shape kind itself is checked by the rasterizer.
		if b.Size.Width <= 0 || b.Size.Height <= 0 {
			add("shape size must be positive")
		}
		if b.Style.StrokeWidth < 0 {
			add("stroke width must not be negative")
		}
		checkColor("fillColor", b.Style.FillColor)
		checkColor("strokeColor", b.Style.StrokeColor)
	case QRCode:
		if b.Content == "" {
			add("qr content is required")
		}
		if b.Size <= 0 {
			add("qr size must be positive")
		}
		checkColor("foreground", b.Style.Foreground)
		checkColor("background", b.Style.Background)
	case nil:
		add("element type is required")
	}

	if a := e.Animation; a != nil {
		switch a.Type {
		case FadeIn, FadeOut, SlideIn, SlideOut, ScaleIn, ScaleOut:
		default:
			add("unknown animation type %q", a.Type)
		}
		if a.Duration <= 0 {
			add("animation duration must be positive")
		}
		if a.Delay < 0 {
			add("animation delay must not be negative")
		}
		switch a.Easing {
		case "", EaseLinear, EaseIn, EaseOut, EaseInOut:
		default:
			add("unknown easing %q", a.Easing)
		}
	}
	return problems
}
