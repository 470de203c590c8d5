package raster

import "math"

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// Pt is a point in user space.
type Pt struct{ X, Y float64 }

func (p Pt) add(q Pt) Pt { return Pt{p.X + q.X, p.Y + q.Y} }
func (p Pt) sub(q Pt) Pt { return Pt{p.X - q.X, p.Y - q.Y} }
func (p Pt) mul(k float64) Pt { return Pt{p.X * k, p.Y * k} }
func (p Pt) length() float64 { return math.Hypot(p.X, p.Y) }
func cross(a, b Pt) float64 { return a.X*b.Y - a.Y*b.X }
func dot(a, b Pt) float64 { return a.X*b.X + a.Y*b.Y }
func pt(x, y float64) Pt { return Pt{x, y} }

type segment struct {
	cubic  bool
	c1, c2 Pt
	to     Pt
}

type subpath struct {
	start Pt
	segs  []segment
}

// Path is a set of closed subpaths in user space. Overlapping subpaths of
// opposite winding cancel, which is how strokes are built.
type Path struct {
	subpaths []subpath
}

func (p *Path) empty() bool {
	return p == nil || len(p.subpaths) == 0
}

// MoveTo starts a new subpath. The previous one is closed implicitly.
func (p *Path) MoveTo(x, y float64) {
	p.subpaths = append(p.subpaths, subpath{start: pt(x, y)})
}

func (p *Path) LineTo(x, y float64) {
	p.last().segs = append(p.last().segs, segment{to: pt(x, y)})
}

func (p *Path) CubeTo(x1, y1, x2, y2, x, y float64) {
	p.last().segs = append(p.last().segs, segment{cubic: true, c1: pt(x1, y1), c2: pt(x2, y2), to: pt(x, y)})
}

func (p *Path) last() *subpath {
	if len(p.subpaths) == 0 {
		p.MoveTo(0, 0)
	}
	return &p.subpaths[len(p.subpaths)-1]
}

// Polygon appends a closed polygon through pts.
func (p *Path) Polygon(pts ...Pt) {
	if len(pts) < 3 {
		return
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		p.LineTo(q.X, q.Y)
	}
}

// Rect appends an axis-aligned rectangle.
func (p *Path) Rect(x, y, w, h float64) {
	p.Polygon(rectPoints(x, y, w, h)...)
}

// RoundedRect appends a rectangle whose corners are quarter circles of
// radius r, clamped to half the shorter side.
func (p *Path) RoundedRect(x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		p.Rect(x, y, w, h)
		return
	}
	k := r * kappa
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	p.CubeTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.LineTo(x+w, y+h-r)
	p.CubeTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.LineTo(x+r, y+h)
	p.CubeTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.LineTo(x, y+r)
	p.CubeTo(x, y+r-k, x+r-k, y, x+r, y)
}

// Circle appends a circle. reverse flips the winding so the circle can cut a
// hole into a larger one.
func (p *Path) Circle(cx, cy, r float64, reverse bool) {
	if r <= 0 {
		return
	}
	k := r * kappa
	if !reverse {
		p.MoveTo(cx+r, cy)
		p.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		p.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		p.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		p.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
		return
	}
	p.MoveTo(cx+r, cy)
	p.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
	p.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
	p.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
	p.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
}

// StrokePolygon appends the outline of a convex polygon as a ring of the
// given width centred on its edges, with mitered joins.
func (p *Path) StrokePolygon(width float64, pts ...Pt) {
	if len(pts) < 3 || width <= 0 {
		return
	}
	area := signedArea(pts)
	if area == 0 {
		return
	}

	p.Polygon(offsetPolygon(pts, width/2, area)...)

	inner := offsetPolygon(pts, -width/2, area)
	if collapsed(pts, inner) {
		// The stroke swallows the interior.
		return
	}
	p.Polygon(reversed(inner)...)
}

// collapsed reports whether an inward offset went past the centre. Such an
// offset flips every edge, which leaves the sign of the area unchanged.
func collapsed(pts, inner []Pt) bool {
	n := len(pts)
	for i := range pts {
		e := pts[(i+1)%n].sub(pts[i])
		if e.length() == 0 {
			continue
		}
		f := inner[(i+1)%n].sub(inner[i])
		if dot(e, f) <= 0 {
			return true
		}
	}
	return false
}

// StrokeCircle appends a ring of the given width centred on the circle.
func (p *Path) StrokeCircle(cx, cy, r, width float64) {
	if width <= 0 {
		return
	}
	p.Circle(cx, cy, r+width/2, false)
	p.Circle(cx, cy, r-width/2, true)
}

func rectPoints(x, y, w, h float64) []Pt {
	return []Pt{pt(x, y), pt(x+w, y), pt(x+w, y+h), pt(x, y+h)}
}

func signedArea(pts []Pt) float64 {
	a := 0.0
	for i := range pts {
		a += cross(pts[i], pts[(i+1)%len(pts)])
	}
	return a / 2
}

// offsetPolygon shifts every edge of a convex polygon outward by d (inward
// when negative) and joins neighbouring edges at their intersection.
func offsetPolygon(pts []Pt, d, area float64) []Pt {
	n := len(pts)
	sign := 1.0
	if area < 0 {
		sign = -1
	}

	type line struct{ p, dir Pt }
	lines := make([]line, n)
	for i := range pts {
		e := pts[(i+1)%n].sub(pts[i])
		l := e.length()
		if l == 0 {
			lines[i] = line{p: pts[i], dir: e}
			continue
		}
		normal := Pt{e.Y, -e.X}.mul(sign / l)
		lines[i] = line{p: pts[i].add(normal.mul(d)), dir: e}
	}

	out := make([]Pt, n)
	for i := range pts {
		a, b := lines[(i+n-1)%n], lines[i]
		den := cross(a.dir, b.dir)
		if math.Abs(den) < 1e-12 {
			out[i] = b.p
			continue
		}
		t := cross(b.p.sub(a.p), b.dir) / den
		out[i] = a.p.add(a.dir.mul(t))
	}
	return out
}

func reversed(pts []Pt) []Pt {
	out := make([]Pt, len(pts))
	for i, q := range pts {
		out[len(pts)-1-i] = q
	}
	return out
}
