package scene

import (
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
)

const introJSON = `{
  "name": "Intro",
  "duration": 7,
  "width": 1080,
  "height": 1920,
  "fps": 30,
  "scenes": [
    {
      "id": "intro",
      "duration": 3,
      "backgroundColor": "#0a0a0a",
      "elements": [
        {
          "type": "text",
          "content": "Meet {{title}}",
          "position": { "x": 540, "y": 600 },
          "style": { "fontSize": 72, "color": "#ffffff", "fontWeight": "bold", "textAlign": "center" },
          "animation": { "type": "fadeIn", "duration": 1, "easing": "easeOut" }
        },
        {
          "type": "shape",
          "shape": "circle",
          "position": { "x": 440, "y": 900 },
          "size": { "width": 200, "height": 200 },
          "style": { "fillColor": "#00ff88", "strokeColor": "white", "strokeWidth": 4 }
        }
      ]
    },
    {
      "id": "cta",
      "duration": 4,
      "elements": [
        {
          "type": "image",
          "src": "logo.png",
          "position": { "x": 100, "y": 100 },
          "style": { "width": 300, "height": 200, "borderRadius": 12, "opacity": 0.5 }
        },
        {
          "type": "qrcode",
          "content": "https://example.com",
          "position": { "x": 400, "y": 1400 },
          "size": 280
        }
      ]
    }
  ]
}`

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(introJSON))
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	if err := Validate(tmpl); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(tmpl.Scenes) != 2 {
		t.Fatalf("Expected 2 scenes, got %d", len(tmpl.Scenes))
	}

	intro := tmpl.Scenes[0]
	text, ok := intro.Elements[0].Body.(Text)
	if !ok {
		t.Fatalf("Expected text body, got %T", intro.Elements[0].Body)
	}
	if text.Content != "Meet {{title}}" || text.Style.TextAlign != AlignCenter {
		t.Errorf("Unexpected text element: %+v", text)
	}
	if a := intro.Elements[0].Animation; a == nil || a.Type != FadeIn || a.EasingOrDefault() != EaseOut {
		t.Errorf("Unexpected animation: %+v", a)
	}

	shape := intro.Elements[1].Body.(Shape)
	if shape.Shape != Circle || shape.Size.Width != 200 || shape.Style.StrokeWidth != 4 {
		t.Errorf("Unexpected shape: %+v", shape)
	}

	img := tmpl.Scenes[1].Elements[0].Body.(Image)
	if img.Src != "logo.png" || img.Style.OpacityOrDefault() != 0.5 {
		t.Errorf("Unexpected image: %+v", img)
	}
	if qr := tmpl.Scenes[1].Elements[1].Body.(QRCode); qr.Size != 280 {
		t.Errorf("Unexpected qr code: %+v", qr)
	}
}

func TestParseTemplateUnknownElement(t *testing.T) {
	doc := `{"name": "x", "scenes": [{"id": "a", "elements": [{"type": "video"}]}]}`
	if _, err := ParseTemplate([]byte(doc)); err == nil || !strings.Contains(err.Error(), "video") {
		t.Errorf("Expected unknown element error, got %v", err)
	}
}

func TestTemplateWriteRead(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(introJSON))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "intro.yaml")
	if err := WriteTemplate(tmpl, path); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	read, err := ReadTemplate(path)
	if err != nil {
		t.Fatalf("ReadTemplate failed: %v", err)
	}

	if read.Name != tmpl.Name || len(read.Scenes) != len(tmpl.Scenes) {
		t.Fatalf("Template mismatch after write/read: %+v", read)
	}
	for i := range tmpl.Scenes {
		for j := range tmpl.Scenes[i].Elements {
			if got, want := read.Scenes[i].Elements[j].Kind(), tmpl.Scenes[i].Elements[j].Kind(); got != want {
				t.Errorf("scene %d element %d: kind %s, want %s", i, j, got, want)
			}
		}
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration float64
		fps      int
		want     int
	}{
		{3, 30, 90},
		{4, 30, 120},
		{0.1, 30, 3},
		{1.01, 30, 31},
		{2.5, 24, 60},
		{0.01, 30, 1},
		{1e-12, 30, 1},
		{1e-10, 1, 1},
		{1.0000001, 30, 31},
		{0, 30, 0},
		{1, 0, 0},
	}

	for _, tt := range tests {
		if got := FrameCount(tt.duration, tt.fps); got != tt.want {
			t.Errorf("FrameCount(%v, %d) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Template {
		return &Template{
			Name: "t", Duration: 3, Width: 100, Height: 100, FPS: 30,
			Scenes: []Scene{{
				ID: "s", Duration: 3,
				Elements: []Element{{Body: Text{Content: "hi", Style: TextStyle{FontSize: 10, Color: "#fff"}}}},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Template)
		problem string
	}{
		{"valid", func(*Template) {}, ""},
		{"no scenes", func(t *Template) { t.Scenes = nil }, "at least one scene"},
		{"zero fps", func(t *Template) { t.FPS = 0 }, "fps must be positive"},
		{"negative duration", func(t *Template) { t.Duration = -1 }, "duration must be positive"},
		{"empty scene", func(t *Template) { t.Scenes[0].Elements = nil }, "at least one element"},
		{"bad background", func(t *Template) { t.Scenes[0].BackgroundColor = "#12" }, "background"},
		{"bad animation", func(t *Template) {
			t.Scenes[0].Elements[0].Animation = &Animation{Type: "spin", Duration: 1}
		}, "unknown animation type"},
		{"zero animation duration", func(t *Template) {
			t.Scenes[0].Elements[0].Animation = &Animation{Type: FadeIn}
		}, "animation duration"},
		{"missing body", func(t *Template) { t.Scenes[0].Elements[0].Body = nil }, "element type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := valid()
			tt.mutate(tmpl)
			err := Validate(tmpl)

			if tt.problem == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.problem)
			}
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Expected ErrInvalidTemplate, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("Expected %q in %q", tt.problem, err.Error())
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#000000", color.NRGBA{0, 0, 0, 255}, false},
		{"#0a0a0a", color.NRGBA{10, 10, 10, 255}, false},
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#ff000080", color.NRGBA{255, 0, 0, 128}, false},
		{"rgb(1, 2, 3)", color.NRGBA{1, 2, 3, 255}, false},
		{"rgba(0,255,0,0.5)", color.NRGBA{0, 255, 0, 128}, false},
		{"White", color.NRGBA{255, 255, 255, 255}, false},
		{"transparent", color.NRGBA{}, false},
		{"#12", color.NRGBA{}, true},
		{"rgb(1,2)", color.NRGBA{}, true},
		{"notacolor", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSceneCloneIsolated(t *testing.T) {
	s := Scene{ID: "a", Elements: []Element{{Body: Text{Content: "x"}}}}
	c := s.Clone()
	c.Elements[0] = Element{Body: Text{Content: "y"}}

	if s.Elements[0].Body.(Text).Content != "x" {
		t.Error("Clone shares the element slice with the original")
	}
}
