package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivlev/template2video/internal/config"
	"github.com/ivlev/template2video/internal/renderer"
	"github.com/ivlev/template2video/internal/scene"
	"github.com/ivlev/template2video/internal/video"
	"github.com/ivlev/template2video/internal/video/mocks"
)

var backgrounds = []struct {
	hex  string
	want color.RGBA
}{
	{"#ff0000", color.RGBA{R: 255, A: 255}},
	{"#00ff00", color.RGBA{G: 255, A: 255}},
	{"#0000ff", color.RGBA{B: 255, A: 255}},
	{"#ffffff", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
}

// testTemplate has four scenes of 3, 4, 5 and 3 seconds at 30fps on a tiny
// canvas, each with its own background colour.
func testTemplate() *scene.Template {
	durations := []float64{3, 4, 5, 3}
	tmpl := &scene.Template{Name: "intro", Duration: 15, Width: 8, Height: 8, FPS: 30}
	for i, d := range durations {
		tmpl.Scenes = append(tmpl.Scenes, scene.Scene{
			ID:              fmt.Sprintf("s%d", i),
			Duration:        d,
			BackgroundColor: backgrounds[i].hex,
			Elements: []scene.Element{
				{
					Position:  scene.Position{X: 2, Y: 7},
					Animation: &scene.Animation{Type: scene.FadeIn, Duration: 1},
					Body:      scene.Text{Content: "{{title}}", Style: scene.TextStyle{FontSize: 4, Color: "black"}},
				},
				{
					Position: scene.Position{X: 4, Y: 4},
					Body: scene.Shape{
						Shape: scene.Rectangle,
						Size:  scene.Size{Width: 2, Height: 2},
						Style: scene.ShapeStyle{FillColor: "#808080"},
					},
				},
			},
		})
	}
	return tmpl
}

var testData = map[string]string{"title": "Hi"}

// boundaries maps global frame indices to the scene they belong to.
var boundaries = map[int]int{0: 0, 89: 0, 90: 1, 209: 1, 210: 2, 359: 2, 360: 3, 449: 3}

func newProject(t *testing.T, enc video.Encoder, pub Publisher) *Project {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = 3
	cfg.TempDir = t.TempDir()
	cfg.WorkDir = t.TempDir()

	p := NewProject(cfg, enc, pub, zap.NewNop())
	p.probeAudio = func(context.Context, string) (float64, error) { return 100, nil }
	return p
}

func TestPlan(t *testing.T) {
	spans := Plan(testTemplate())

	wantStarts := []int{0, 90, 210, 360}
	wantCounts := []int{90, 120, 150, 90}
	for i, span := range spans {
		if span.Start != wantStarts[i] || span.Count != wantCounts[i] {
			t.Errorf("Scene %d: start %d count %d, want %d / %d", i, span.Start, span.Count, wantStarts[i], wantCounts[i])
		}
	}
	last := spans[len(spans)-1]
	if last.Start+last.Count != 450 {
		t.Errorf("Total frames = %d, want 450", last.Start+last.Count)
	}
}

func TestRender(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)
	output := filepath.Join(t.TempDir(), "videos", "out.mp4")

	var frameDir string
	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		frameDir = filepath.Dir(job.FramePattern)

		if job.FrameCount != 450 || job.FPS != 30 {
			t.Errorf("Job frames %d fps %d, want 450 / 30", job.FrameCount, job.FPS)
		}
		if job.Quality != scene.QualityMedium {
			t.Errorf("Job quality = %q, want medium by default", job.Quality)
		}
		if job.Output != output {
			t.Errorf("Job output = %s, want %s", job.Output, output)
		}
		if _, err := os.Stat(filepath.Dir(output)); err != nil {
			t.Errorf("Output directory was not created: %v", err)
		}

		for i := 0; i < job.FrameCount; i++ {
			if _, err := os.Stat(fmt.Sprintf(job.FramePattern, i)); err != nil {
				t.Fatalf("Frame %d missing: %v", i, err)
			}
		}
		if _, err := os.Stat(fmt.Sprintf(job.FramePattern, 450)); !os.IsNotExist(err) {
			t.Errorf("Unexpected frame 450")
		}

		for index, sceneIndex := range boundaries {
			img, err := imaging.Open(fmt.Sprintf(job.FramePattern, index))
			if err != nil {
				t.Fatalf("Open frame %d: %v", index, err)
			}
			r, g, b, _ := img.At(0, 0).RGBA()
			got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
			if want := backgrounds[sceneIndex].want; got != want {
				t.Errorf("Frame %d background = %v, want scene %d %v", index, got, sceneIndex, want)
			}
		}
		return job.Output, nil
	})

	out, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{Output: output})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != output {
		t.Errorf("Render returned %s, want %s", out, output)
	}
	if _, err := os.Stat(frameDir); !os.IsNotExist(err) {
		t.Errorf("Frame directory %s was not removed", frameDir)
	}
}

func TestRenderMatchesFrames(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)
	tmpl := testTemplate()

	sequential := make(map[int][]byte)
	for f, err := range p.Frames(context.Background(), tmpl, testData) {
		if err != nil {
			t.Fatalf("Frames: %v", err)
		}
		if _, ok := boundaries[f.Index]; ok || f.Index == 30 {
			sequential[f.Index] = f.Clone().Pix
		}
	}

	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		for index, pix := range sequential {
			img, err := imaging.Open(fmt.Sprintf(job.FramePattern, index))
			if err != nil {
				t.Fatalf("Open frame %d: %v", index, err)
			}
			got := imaging.Clone(img)
			for i := 0; i < len(pix); i += 4 {
				// Frames are opaque, so NRGBA and RGBA bytes agree.
				if got.Pix[i] != pix[i] || got.Pix[i+1] != pix[i+1] || got.Pix[i+2] != pix[i+2] {
					t.Fatalf("Frame %d differs from the sequential render at byte %d", index, i)
				}
			}
		}
		return job.Output, nil
	})

	if _, err := p.Render(context.Background(), tmpl, testData, scene.RenderOptions{Output: filepath.Join(t.TempDir(), "out.mp4")}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRenderTinySceneKeepsOneFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)

	tmpl := testTemplate()
	tmpl.Scenes = tmpl.Scenes[:1]
	tmpl.Scenes[0].Duration = 1e-12

	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		if job.FrameCount != 1 {
			t.Errorf("Job frames = %d, want 1", job.FrameCount)
		}
		return job.Output, nil
	})

	if _, err := p.Render(context.Background(), tmpl, testData, scene.RenderOptions{Output: filepath.Join(t.TempDir(), "out.mp4")}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)

	tmpl := testTemplate()
	tmpl.Scenes = nil

	_, err := p.Render(context.Background(), tmpl, nil, scene.RenderOptions{Output: "out.mp4"})
	if !errors.Is(err, scene.ErrInvalidTemplate) {
		t.Errorf("Expected ErrInvalidTemplate, got %v", err)
	}
}

func TestRenderInvalidOptions(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name string
		opts scene.RenderOptions
	}{
		{"no output", scene.RenderOptions{}},
		{"bucket only", scene.RenderOptions{Output: "s3://bucket"}},
		{"negative volume", scene.RenderOptions{Output: "out.mp4", Audio: &scene.AudioTrack{Enabled: true, Src: "a.mp3", Volume: &neg}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			p := newProject(t, mocks.NewMockEncoder(ctrl), nil)

			_, err := p.Render(context.Background(), testTemplate(), nil, tt.opts)
			var verr *scene.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRenderEncodingErrorPassthrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)

	encErr := &video.EncodingError{Err: errors.New("exit status 1"), Diagnostic: "Unknown encoder 'libx264'"}
	var frameDir string
	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		frameDir = filepath.Dir(job.FramePattern)
		return "", encErr
	})

	_, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{Output: filepath.Join(t.TempDir(), "out.mp4")})

	var got *video.EncodingError
	if !errors.As(err, &got) || got != encErr {
		t.Fatalf("Expected the encoder's error unchanged, got %v", err)
	}
	if _, err := os.Stat(frameDir); !os.IsNotExist(err) {
		t.Errorf("Frame directory %s was not removed after a failed encode", frameDir)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProject(t, mocks.NewMockEncoder(ctrl), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Render(ctx, testTemplate(), testData, scene.RenderOptions{Output: filepath.Join(t.TempDir(), "out.mp4")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	entries, _ := os.ReadDir(p.Config.TempDir)
	if len(entries) != 0 {
		t.Errorf("Temporary frames left behind: %v", entries)
	}
}

func TestRenderRenderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProject(t, mocks.NewMockEncoder(ctrl), nil)

	tmpl := testTemplate()
	tmpl.Scenes[2].Elements[1].Body = scene.Shape{Shape: "hexagon", Size: scene.Size{Width: 1, Height: 1}}

	_, err := p.Render(context.Background(), tmpl, testData, scene.RenderOptions{Output: filepath.Join(t.TempDir(), "out.mp4")})

	var re *renderer.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("Expected RenderError, got %v", err)
	}
	if re.SceneID != "s2" || re.Element != 1 {
		t.Errorf("Unexpected error location: %+v", re)
	}
	if !errors.Is(err, renderer.ErrUnsupportedShape) {
		t.Errorf("Expected ErrUnsupportedShape in chain, got %v", err)
	}
}

type fakePublisher struct {
	local, dest string
}

func (f *fakePublisher) Publish(_ context.Context, localPath, dest string) (string, error) {
	f.local, f.dest = localPath, dest
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	return dest, nil
}

func TestRenderPublishesToS3(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	pub := &fakePublisher{}
	p := newProject(t, enc, pub)

	var encoded string
	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		if filepath.Dir(job.Output) != filepath.Dir(job.FramePattern) {
			t.Errorf("Remote renders should encode into the scratch directory, got %s", job.Output)
		}
		encoded = job.Output
		return job.Output, os.WriteFile(job.Output, []byte("mp4"), 0644)
	})

	out, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{Output: "s3://media/intro.mp4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "s3://media/intro.mp4" {
		t.Errorf("Render returned %s", out)
	}
	if pub.local != encoded || pub.dest != "s3://media/intro.mp4" {
		t.Errorf("Publisher called with %s -> %s", pub.local, pub.dest)
	}
}

func TestRenderS3WithoutPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProject(t, mocks.NewMockEncoder(ctrl), nil)

	_, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{Output: "s3://media/intro.mp4"})
	if !errors.Is(err, ErrNoPublisher) {
		t.Errorf("Expected ErrNoPublisher, got %v", err)
	}
}

func TestRenderShortAudioWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)

	core, logs := observer.New(zap.WarnLevel)
	p.logger = zap.New(core)
	p.probeAudio = func(context.Context, string) (float64, error) { return 1, nil }

	audio := &scene.AudioTrack{Enabled: true, Src: "music.mp3"}
	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
		if job.Audio != audio {
			t.Errorf("Audio track not passed to the encoder")
		}
		return job.Output, nil
	})

	if _, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Audio:  audio,
	}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if logs.FilterMessage("Аудио короче видео").Len() != 1 {
		t.Errorf("Expected a short audio warning, got %v", logs.All())
	}
}

func TestRenderAudioProbeFailureWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncoder(ctrl)
	p := newProject(t, enc, nil)

	core, logs := observer.New(zap.WarnLevel)
	p.logger = zap.New(core)
	p.probeAudio = func(context.Context, string) (float64, error) { return 0, errors.New("ffprobe not found") }

	enc.EXPECT().Encode(gomock.Any(), gomock.Any()).Return("out.mp4", nil)

	if _, err := p.Render(context.Background(), testTemplate(), testData, scene.RenderOptions{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Audio:  &scene.AudioTrack{Enabled: true, Src: "music.mp3"},
	}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if logs.FilterMessage("Не удалось получить длительность аудио").Len() != 1 {
		t.Errorf("Expected a probe failure warning, got %v", logs.All())
	}
	if logs.FilterMessage("Аудио короче видео").Len() != 0 {
		t.Errorf("Unknown audio length must not be reported as short")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		requested float64
		frames    int
	}{
		{5, 210},
		{3, 90},
		{0.5, 90},
		{100, 450},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%vs", tt.requested), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enc := mocks.NewMockEncoder(ctrl)
			p := newProject(t, enc, nil)

			enc.EXPECT().Encode(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job video.Job) (string, error) {
				if job.FrameCount != tt.frames {
					t.Errorf("Preview frames = %d, want %d", job.FrameCount, tt.frames)
				}
				if job.Quality != scene.QualityLow {
					t.Errorf("Preview quality = %q, want low", job.Quality)
				}
				if job.Output != filepath.Join(p.Config.WorkDir, "preview.mp4") {
					t.Errorf("Preview output = %s", job.Output)
				}
				return job.Output, nil
			})

			tmpl := testTemplate()
			if _, err := p.Preview(context.Background(), tmpl, testData, tt.requested); err != nil {
				t.Fatalf("Preview: %v", err)
			}
			if len(tmpl.Scenes) != 4 {
				t.Errorf("Preview modified the template")
			}
		})
	}
}

func TestPreviewInvalidDuration(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProject(t, mocks.NewMockEncoder(ctrl), nil)

	for _, d := range []float64{0, -3} {
		if _, err := p.Preview(context.Background(), testTemplate(), nil, d); !errors.Is(err, scene.ErrInvalidTemplate) {
			t.Errorf("Preview(%v): expected a validation error, got %v", d, err)
		}
	}
}
