package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Align is the horizontal anchor of a text run.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// FontSpec selects a face from the bundled Go font family.
type FontSpec struct {
	Family string
	Bold   bool
	Size   float64 // pixels, before the canvas scale
}

// maxFaces bounds the per-canvas face cache. Scale animations request a new
// size on every frame.
const maxFaces = 64

var (
	fontsOnce sync.Once
	fonts     map[fontKey]*opentype.Font
	fontsErr  error
)

type fontKey struct {
	mono bool
	bold bool
}

func loadFonts() {
	sources := map[fontKey][]byte{
		{mono: false, bold: false}: goregular.TTF,
		{mono: false, bold: true}:  gobold.TTF,
		{mono: true, bold: false}:  gomono.TTF,
		{mono: true, bold: true}:   gomonobold.TTF,
	}
	fonts = make(map[fontKey]*opentype.Font, len(sources))
	for k, ttf := range sources {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontsErr = fmt.Errorf("failed to parse bundled font: %w", err)
			return
		}
		fonts[k] = f
	}
}

// isMonospace maps CSS-like family names onto the two bundled families.
func isMonospace(family string) bool {
	f := strings.ToLower(family)
	for _, m := range []string{"mono", "courier", "consolas", "menlo"} {
		if strings.Contains(f, m) {
			return true
		}
	}
	return false
}

type faceKey struct {
	font fontKey
	size float64
}

// faceCache holds sized faces. opentype faces keep glyph buffers and must
// not be shared between goroutines, so every canvas has its own cache.
type faceCache struct {
	faces map[faceKey]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[faceKey]font.Face)}
}

func (fc *faceCache) get(spec FontSpec, size float64) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}

	// Quantize so nearly identical sizes share a face.
	size = math.Round(size*4) / 4
	key := faceKey{font: fontKey{mono: isMonospace(spec.Family), bold: spec.Bold}, size: size}
	if f, ok := fc.faces[key]; ok {
		return f, nil
	}

	if len(fc.faces) >= maxFaces {
		for k, f := range fc.faces {
			f.Close()
			delete(fc.faces, k)
		}
	}

	face, err := opentype.NewFace(fonts[key.font], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %.2fpx face: %w", size, err)
	}
	fc.faces[key] = face
	return face, nil
}

// FillText draws s with its alphabetic baseline at (x, y). align picks which
// point of the run x refers to.
func (c *Canvas) FillText(s string, x, y float64, spec FontSpec, align Align, col color.NRGBA) error {
	size := spec.Size * c.cur.scale
	if s == "" || size <= 0 || c.cur.alpha == 0 || col.A == 0 {
		return nil
	}

	face, err := c.faces.get(spec, size)
	if err != nil {
		return err
	}

	dx, dy := c.apply(x, y)
	width := float64(font.MeasureString(face, s)) / 64
	switch align {
	case AlignCenter:
		dx -= width / 2
	case AlignRight:
		dx -= width
	}

	clear(c.mask.Pix)
	d := &font.Drawer{
		Dst:  c.mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(math.Round(dx * 64)), Y: fixed.Int26_6(math.Round(dy * 64))},
	}
	bounds, _ := d.BoundString(s)
	d.DrawString(s)

	dirty := image.Rect(
		bounds.Min.X.Floor()-1, bounds.Min.Y.Floor()-1,
		bounds.Max.X.Ceil()+1, bounds.Max.Y.Ceil()+1,
	)
	c.composite(dirty, col)
	return nil
}
