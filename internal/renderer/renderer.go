// Package renderer rasterizes scenes: it draws every element of a scene at a
// given instant onto a raster.Canvas.
package renderer

import (
	"errors"
	"fmt"
	"image/color"
	"iter"
	"strconv"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ivlev/template2video/internal/animation"
	"github.com/ivlev/template2video/internal/raster"
	"github.com/ivlev/template2video/internal/scene"
)

var (
	// ErrUnsupportedShape is returned for a shape kind the rasterizer cannot draw.
	ErrUnsupportedShape = errors.New("unsupported shape")
	// ErrUnknownElement is returned for an element without a drawable body.
	ErrUnknownElement = errors.New("unknown element")
)

// RenderError reports the element that failed to draw.
type RenderError struct {
	SceneID string
	Frame   int // local frame index, -1 for an arbitrary instant
	Element int
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("scene %q frame %d element %d: %v", e.SceneID, e.Frame, e.Element, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

var defaultBackground = color.NRGBA{A: 255}

// SceneRenderer draws scenes. It is safe for concurrent use as long as every
// goroutine brings its own canvas.
type SceneRenderer struct {
	logger *zap.Logger

	mu  sync.Mutex
	qrs map[string][][]bool
}

func New(logger *zap.Logger) *SceneRenderer {
	return &SceneRenderer{
		logger: logger,
		qrs:    make(map[string][][]bool),
	}
}

// RenderFrame repaints c with local frame i of s, taken at t = i/fps.
func (r *SceneRenderer) RenderFrame(c *raster.Canvas, s scene.Scene, i, fps int) error {
	return r.render(c, s, i, float64(i)/float64(fps))
}

// RenderAt repaints c with s at an arbitrary time t in seconds.
func (r *SceneRenderer) RenderAt(c *raster.Canvas, s scene.Scene, t float64) error {
	return r.render(c, s, -1, t)
}

// Frames lazily renders every frame of s into c. The canvas holds frame i
// while the loop body for i runs; iteration stops after the first error.
func (r *SceneRenderer) Frames(c *raster.Canvas, s scene.Scene, fps int) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		n := s.FrameCount(fps)
		for i := 0; i < n; i++ {
			if err := r.RenderFrame(c, s, i, fps); err != nil {
				yield(i, err)
				return
			}
			if !yield(i, nil) {
				return
			}
		}
	}
}

func (r *SceneRenderer) render(c *raster.Canvas, s scene.Scene, frame int, t float64) error {
	bg := defaultBackground
	if s.BackgroundColor != "" {
		parsed, err := scene.ParseColor(s.BackgroundColor)
		if err != nil {
			return &RenderError{SceneID: s.ID, Frame: frame, Element: -1, Err: err}
		}
		bg = parsed
	}
	c.Reset(bg)

	for idx, el := range s.Elements {
		st := animation.Evaluate(el.Animation, t)
		if !st.Visible() {
			continue
		}
		if err := r.drawElement(c, el, st); err != nil {
			return &RenderError{SceneID: s.ID, Frame: frame, Element: idx, Err: err}
		}
	}
	return nil
}

// drawElement draws el inside its own Save/Restore pair so no state leaks
// into the next element.
func (r *SceneRenderer) drawElement(c *raster.Canvas, el scene.Element, st animation.State) error {
	c.Save()
	defer c.Restore()

	c.Translate(st.OffsetX, 0)
	c.Scale(st.Scale)

	switch b := el.Body.(type) {
	case scene.Text:
		c.SetAlpha(st.Opacity)
		return drawText(c, el.Position, b)
	case scene.Image:
		c.SetAlpha(st.Opacity * b.Style.OpacityOrDefault())
		return drawImage(c, el.Position, b)
	case scene.Shape:
		c.SetAlpha(st.Opacity)
		return drawShape(c, el.Position, b)
	case scene.QRCode:
		c.SetAlpha(st.Opacity)
		return r.drawQRCode(c, el.Position, b)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownElement, el.Body)
	}
}

func drawText(c *raster.Canvas, pos scene.Position, t scene.Text) error {
	col, err := scene.ParseColor(t.Style.Color)
	if err != nil {
		return err
	}

	if t.Style.ShadowColor != "" {
		sc, err := scene.ParseColor(t.Style.ShadowColor)
		if err != nil {
			return fmt.Errorf("shadow: %w", err)
		}
		c.SetShadow(raster.Shadow{
			Color:   sc,
			Blur:    t.Style.ShadowBlur,
			OffsetX: t.Style.ShadowOffsetX,
			OffsetY: t.Style.ShadowOffsetY,
		})
	}

	spec := raster.FontSpec{
		Family: t.Style.FontFamily,
		Bold:   isBold(t.Style.FontWeight),
		Size:   t.Style.FontSize,
	}
	return c.FillText(t.Content, pos.X, pos.Y, spec, textAlign(t.Style.TextAlign), col)
}

func textAlign(a scene.Align) raster.Align {
	switch a {
	case scene.AlignCenter:
		return raster.AlignCenter
	case scene.AlignRight:
		return raster.AlignRight
	default:
		return raster.AlignLeft
	}
}

// isBold accepts CSS keywords and numeric weights.
func isBold(weight string) bool {
	w := strings.ToLower(strings.TrimSpace(weight))
	switch w {
	case "bold", "bolder":
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

var (
	placeholderFill  = color.NRGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	placeholderLabel = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const placeholderFontSize = 16

// drawImage draws a grey placeholder box; image decoding is not supported.
func drawImage(c *raster.Canvas, pos scene.Position, img scene.Image) error {
	w, h := img.Style.Width, img.Style.Height

	var p raster.Path
	p.RoundedRect(pos.X, pos.Y, w, h, img.Style.BorderRadius)
	c.Fill(&p, placeholderFill)

	spec := raster.FontSpec{Size: placeholderFontSize}
	return c.FillText("Image", pos.X+w/2, pos.Y+h/2+6, spec, raster.AlignCenter, placeholderLabel)
}

func drawShape(c *raster.Canvas, pos scene.Position, s scene.Shape) error {
	x, y := pos.X, pos.Y
	w, h := s.Size.Width, s.Size.Height

	var fill, stroke raster.Path
	lw := s.Style.StrokeWidth
	if lw <= 0 {
		lw = 1
	}

	switch s.Shape {
	case scene.Rectangle:
		pts := []raster.Pt{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
		fill.Polygon(pts...)
		stroke.StrokePolygon(lw, pts...)
	case scene.Circle:
		cx, cy, radius := x+w/2, y+h/2, min(w, h)/2
		fill.Circle(cx, cy, radius, false)
		stroke.StrokeCircle(cx, cy, radius, lw)
	case scene.Triangle:
		pts := []raster.Pt{{X: x + w/2, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
		fill.Polygon(pts...)
		stroke.StrokePolygon(lw, pts...)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedShape, s.Shape)
	}

	if s.Style.FillColor != "" {
		col, err := scene.ParseColor(s.Style.FillColor)
		if err != nil {
			return fmt.Errorf("fill: %w", err)
		}
		c.Fill(&fill, col)
	}
	if s.Style.StrokeColor != "" {
		col, err := scene.ParseColor(s.Style.StrokeColor)
		if err != nil {
			return fmt.Errorf("stroke: %w", err)
		}
		c.Fill(&stroke, col)
	}
	return nil
}

var (
	qrForeground = color.NRGBA{A: 0xff}
	qrBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func (r *SceneRenderer) drawQRCode(c *raster.Canvas, pos scene.Position, q scene.QRCode) error {
	fg, bg := qrForeground, qrBackground
	if q.Style.Foreground != "" {
		col, err := scene.ParseColor(q.Style.Foreground)
		if err != nil {
			return fmt.Errorf("foreground: %w", err)
		}
		fg = col
	}
	if q.Style.Background != "" {
		col, err := scene.ParseColor(q.Style.Background)
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		bg = col
	}

	bitmap, err := r.qrBitmap(q.Content)
	if err != nil {
		return err
	}

	var back raster.Path
	back.Rect(pos.X, pos.Y, q.Size, q.Size)
	c.Fill(&back, bg)

	module := q.Size / float64(len(bitmap))
	var dark raster.Path
	for row, line := range bitmap {
		// One rectangle per horizontal run of dark modules.
		for col := 0; col < len(line); {
			if !line[col] {
				col++
				continue
			}
			start := col
			for col < len(line) && line[col] {
				col++
			}
			dark.Rect(pos.X+float64(start)*module, pos.Y+float64(row)*module, float64(col-start)*module, module)
		}
	}
	c.Fill(&dark, fg)
	return nil
}

// qrBitmap encodes content once per renderer; the result is read-only.
func (r *SceneRenderer) qrBitmap(content string) ([][]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bm, ok := r.qrs[content]; ok {
		return bm, nil
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	bm := code.Bitmap()
	r.qrs[content] = bm
	r.logger.Debug("Encoded QR code", zap.Int("modules", len(bm)))
	return bm, nil
}
