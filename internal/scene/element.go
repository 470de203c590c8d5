package scene

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindShape  Kind = "shape"
	KindQRCode Kind = "qrcode"
)

// Body is the variant part of an Element. The set of implementations is
// closed: Text, Image, Shape and QRCode.
type Body interface {
	Kind() Kind
	isBody()
}

type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Element is one drawable unit of a scene.
type Element struct {
	Position  Position
	Animation *Animation
	Body      Body
}

// Kind returns the variant tag, empty for an element without a body.
func (e Element) Kind() Kind {
	if e.Body == nil {
		return ""
	}
	return e.Body.Kind()
}

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

type TextStyle struct {
	FontSize      float64 `yaml:"fontSize"`
	Color         string  `yaml:"color"`
	FontFamily    string  `yaml:"fontFamily,omitempty"`
	FontWeight    string  `yaml:"fontWeight,omitempty"`
	TextAlign     Align   `yaml:"textAlign,omitempty"`
	ShadowColor   string  `yaml:"shadowColor,omitempty"`
	ShadowBlur    float64 `yaml:"shadowBlur,omitempty"`
	ShadowOffsetX float64 `yaml:"shadowOffsetX,omitempty"`
	ShadowOffsetY float64 `yaml:"shadowOffsetY,omitempty"`
}

// Text content may contain {{key}} placeholders.
type Text struct {
	Content string    `yaml:"content"`
	Style   TextStyle `yaml:"style"`
}

type ImageStyle struct {
	Width        float64  `yaml:"width"`
	Height       float64  `yaml:"height"`
	BorderRadius float64  `yaml:"borderRadius,omitempty"`
	Opacity      *float64 `yaml:"opacity,omitempty"`
}

// OpacityOrDefault returns the style opacity, 1 when unset.
func (s ImageStyle) OpacityOrDefault() float64 {
	if s.Opacity == nil {
		return 1
	}
	return *s.Opacity
}

type Image struct {
	Src   string     `yaml:"src"`
	Style ImageStyle `yaml:"style"`
}

type ShapeKind string

const (
	Rectangle ShapeKind = "rectangle"
	Circle    ShapeKind = "circle"
	Triangle  ShapeKind = "triangle"
)

type ShapeStyle struct {
	FillColor   string  `yaml:"fillColor,omitempty"`
	StrokeColor string  `yaml:"strokeColor,omitempty"`
	StrokeWidth float64 `yaml:"strokeWidth,omitempty"`
}

type Shape struct {
	Shape ShapeKind  `yaml:"shape"`
	Size  Size       `yaml:"size"`
	Style ShapeStyle `yaml:"style"`
}

type QRStyle struct {
	Foreground string `yaml:"foreground,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// QRCode encodes Content as a square QR symbol Size pixels wide.
type QRCode struct {
	Content string  `yaml:"content"`
	Size    float64 `yaml:"size"`
	Style   QRStyle `yaml:"style,omitempty"`
}

func (Text) Kind() Kind   { return KindText }
func (Image) Kind() Kind  { return KindImage }
func (Shape) Kind() Kind  { return KindShape }
func (QRCode) Kind() Kind { return KindQRCode }

func (Text) isBody()   {}
func (Image) isBody()  {}
func (Shape) isBody()  {}
func (QRCode) isBody() {}

// elementHeader is the part of the flat wire form shared by all variants.
type elementHeader struct {
	Type      Kind       `yaml:"type"`
	Position  Position   `yaml:"position"`
	Animation *Animation `yaml:"animation,omitempty"`
}

func (e *Element) UnmarshalYAML(value *yaml.Node) error {
	var h elementHeader
	if err := value.Decode(&h); err != nil {
		return err
	}

	var body Body
	switch h.Type {
	case KindText:
		var t Text
		if err := value.Decode(&t); err != nil {
			return err
		}
		body = t
	case KindImage:
		var img Image
		if err := value.Decode(&img); err != nil {
			return err
		}
		body = img
	case KindShape:
		var s Shape
		if err := value.Decode(&s); err != nil {
			return err
		}
		body = s
	case KindQRCode:
		var q QRCode
		if err := value.Decode(&q); err != nil {
			return err
		}
		body = q
	case "":
		return fmt.Errorf("line %d: element type is required", value.Line)
	default:
		return fmt.Errorf("line %d: unknown element type %q", value.Line, h.Type)
	}

	*e = Element{Position: h.Position, Animation: h.Animation, Body: body}
	return nil
}

func (e Element) MarshalYAML() (interface{}, error) {
	h := elementHeader{Type: e.Kind(), Position: e.Position, Animation: e.Animation}
	switch b := e.Body.(type) {
	case Text:
		return struct {
			elementHeader `yaml:",inline"`
			Text          `yaml:",inline"`
		}{h, b}, nil
	case Image:
		return struct {
			elementHeader `yaml:",inline"`
			Image         `yaml:",inline"`
		}{h, b}, nil
	case Shape:
		return struct {
			elementHeader `yaml:",inline"`
			Shape         `yaml:",inline"`
		}{h, b}, nil
	case QRCode:
		return struct {
			elementHeader `yaml:",inline"`
			QRCode        `yaml:",inline"`
		}{h, b}, nil
	default:
		return nil, fmt.Errorf("element has no body")
	}
}
