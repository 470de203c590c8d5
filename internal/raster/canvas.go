// Package raster implements the drawing surface frames are painted on: an
// RGBA buffer with a save/restore graphics state, anti-aliased path filling
// and text.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

// Shadow is a drop shadow applied to every draw while set.
type Shadow struct {
	Color   color.NRGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

func (s Shadow) enabled() bool {
	return s.Color.A > 0
}

// state is the part of the canvas restored by Restore.
type state struct {
	alpha  float64
	scale  float64
	tx, ty float64
	shadow Shadow
}

var initialState = state{alpha: 1, scale: 1}

// Canvas is a reusable drawing surface. It is not safe for concurrent use;
// every concurrent render owns its own canvas.
type Canvas struct {
	img   *image.RGBA
	mask  *image.Alpha
	z     *vector.Rasterizer
	faces *faceCache

	cur   state
	stack []state
}

// NewCanvas allocates a width x height surface.
func NewCanvas(width, height int) *Canvas {
	rect := image.Rect(0, 0, width, height)
	return &Canvas{
		img:   image.NewRGBA(rect),
		mask:  image.NewAlpha(rect),
		z:     vector.NewRasterizer(width, height),
		faces: newFaceCache(),
		cur:   initialState,
	}
}

// Image returns the backing buffer. It is overwritten by the next Reset.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Width() int  { return c.img.Rect.Dx() }
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Reset paints the whole surface with bg and drops any saved state.
func (c *Canvas) Reset(bg color.Color) {
	draw.Draw(c.img, c.img.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
	c.cur = initialState
	c.stack = c.stack[:0]
}

// Save pushes the current alpha, transform and shadow.
func (c *Canvas) Save() {
	c.stack = append(c.stack, c.cur)
}

// Restore pops the state pushed by the matching Save.
func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		c.cur = initialState
		return
	}
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// SetAlpha sets the global opacity multiplier, clamped to [0,1].
func (c *Canvas) SetAlpha(a float64) {
	c.cur.alpha = math.Max(0, math.Min(1, a))
}

func (c *Canvas) Alpha() float64 { return c.cur.alpha }

// Translate moves the user-space origin by (dx, dy).
func (c *Canvas) Translate(dx, dy float64) {
	c.cur.tx += c.cur.scale * dx
	c.cur.ty += c.cur.scale * dy
}

// Scale scales user space uniformly about the current origin.
func (c *Canvas) Scale(s float64) {
	c.cur.scale *= s
}

func (c *Canvas) SetShadow(s Shadow) {
	c.cur.shadow = s
}

// apply maps a user-space point to device space.
func (c *Canvas) apply(x, y float64) (float64, float64) {
	return x*c.cur.scale + c.cur.tx, y*c.cur.scale + c.cur.ty
}

// Fill rasterizes p with the non-zero coverage rule and paints it with col.
func (c *Canvas) Fill(p *Path, col color.NRGBA) {
	if p.empty() || c.cur.alpha == 0 || col.A == 0 {
		return
	}

	w, h := c.Width(), c.Height()
	c.z.Reset(w, h)
	c.z.DrawOp = draw.Src

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	track := func(x, y float64) (float32, float32) {
		dx, dy := c.apply(x, y)
		minX, maxX = math.Min(minX, dx), math.Max(maxX, dx)
		minY, maxY = math.Min(minY, dy), math.Max(maxY, dy)
		return float32(dx), float32(dy)
	}

	for _, sub := range p.subpaths {
		x, y := track(sub.start.X, sub.start.Y)
		c.z.MoveTo(x, y)
		for _, seg := range sub.segs {
			if seg.cubic {
				x1, y1 := track(seg.c1.X, seg.c1.Y)
				x2, y2 := track(seg.c2.X, seg.c2.Y)
				x3, y3 := track(seg.to.X, seg.to.Y)
				c.z.CubeTo(x1, y1, x2, y2, x3, y3)
			} else {
				x3, y3 := track(seg.to.X, seg.to.Y)
				c.z.LineTo(x3, y3)
			}
		}
		c.z.ClosePath()
	}

	// DrawOp Src rewrites the whole mask, no clearing needed.
	c.z.Draw(c.mask, c.mask.Rect, image.Opaque, image.Point{})

	dirty := image.Rect(
		int(math.Floor(minX))-1, int(math.Floor(minY))-1,
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	)
	c.composite(dirty, col)
}

// composite paints col through the current mask inside dirty, shadow first.
func (c *Canvas) composite(dirty image.Rectangle, col color.NRGBA) {
	dirty = dirty.Intersect(c.mask.Rect)
	if dirty.Empty() {
		return
	}

	if c.cur.shadow.enabled() {
		c.drawShadow(dirty)
	}

	src := image.NewUniform(c.withAlpha(col))
	draw.DrawMask(c.img, dirty, src, image.Point{}, c.mask, dirty.Min, draw.Over)
}

func (c *Canvas) drawShadow(dirty image.Rectangle) {
	sh := c.cur.shadow
	sigma := sh.Blur / 2
	pad := int(math.Ceil(sigma*3)) + 1
	region := dirty.Inset(-pad).Intersect(c.mask.Rect)

	var blurred image.Image
	if sigma > 0 {
		blurred = imaging.Blur(c.mask.SubImage(region), sigma)
	} else {
		blurred = imaging.Crop(c.mask, region)
	}

	off := image.Pt(int(math.Round(sh.OffsetX)), int(math.Round(sh.OffsetY)))
	r := region.Add(off).Intersect(c.img.Rect)
	if r.Empty() {
		return
	}
	mp := r.Min.Sub(off).Sub(region.Min)

	src := image.NewUniform(c.withAlpha(sh.Color))
	draw.DrawMask(c.img, r, src, image.Point{}, blurred, mp, draw.Over)
}

func (c *Canvas) withAlpha(col color.NRGBA) color.NRGBA {
	col.A = uint8(math.Round(float64(col.A) * c.cur.alpha))
	return col
}
