package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor understands the CSS forms used by templates: #rgb, #rgba,
// #rrggbb, #rrggbbaa, rgb(), rgba() and named colors.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return color.NRGBA{}, fmt.Errorf("empty color")
	}
	if v == "transparent" {
		return color.NRGBA{}, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHex(v[1:], s)
	}
	if strings.HasPrefix(v, "rgb") {
		return parseFunc(v, s)
	}
	if c, ok := colornames.Map[v]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
}

func parseHex(h, orig string) (color.NRGBA, error) {
	switch len(h) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range h {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		h = expanded.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", orig)
	}
	if len(h) == 6 {
		h += "ff"
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", orig)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func parseFunc(v, orig string) (color.NRGBA, error) {
	open, end := strings.IndexByte(v, '('), strings.LastIndexByte(v, ')')
	if open < 0 || end < open {
		return color.NRGBA{}, fmt.Errorf("bad color %q", orig)
	}
	name := strings.TrimSpace(v[:open])
	parts := strings.Split(v[open+1:end], ",")
	if (name == "rgb" && len(parts) != 3) || (name == "rgba" && len(parts) != 4) || (name != "rgb" && name != "rgba") {
		return color.NRGBA{}, fmt.Errorf("bad color %q", orig)
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("bad color channel in %q", orig)
		}
		ch[i] = uint8(n)
	}
	alpha := uint8(255)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, fmt.Errorf("bad alpha in %q", orig)
		}
		alpha = uint8(a*255 + 0.5)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
}
