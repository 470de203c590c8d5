// Package engine drives a template through binding, frame synthesis and
// encoding.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/template2video/internal/binder"
	"github.com/ivlev/template2video/internal/config"
	"github.com/ivlev/template2video/internal/publish"
	"github.com/ivlev/template2video/internal/renderer"
	"github.com/ivlev/template2video/internal/scene"
	"github.com/ivlev/template2video/internal/storage"
	"github.com/ivlev/template2video/internal/system"
	"github.com/ivlev/template2video/internal/video"
)

// ErrNoPublisher is returned when an s3:// output is requested without a Publisher.
var ErrNoPublisher = errors.New("no publisher configured for remote output")

// Publisher uploads a finished video to a remote destination.
type Publisher interface {
	Publish(ctx context.Context, localPath, dest string) (string, error)
}

// Frame is one rendered frame with its global index. Frames yielded by
// Project.Frames share a surface that is overwritten by the next frame; use
// Clone to keep one.
type Frame struct {
	Index int
	Image *image.RGBA
}

func (f Frame) Clone() *image.RGBA {
	return cloneRGBA(f.Image)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}

// SceneSpan locates a scene on the global frame axis.
type SceneSpan struct {
	SceneID string
	Start   int
	Count   int
}

// Plan lays the scenes of tmpl out back to back.
func Plan(tmpl *scene.Template) []SceneSpan {
	spans := make([]SceneSpan, len(tmpl.Scenes))
	start := 0
	for i, s := range tmpl.Scenes {
		n := s.FrameCount(tmpl.FPS)
		spans[i] = SceneSpan{SceneID: s.ID, Start: start, Count: n}
		start += n
	}
	return spans
}

type Project struct {
	Config    *config.Config
	Encoder   video.Encoder
	Publisher Publisher

	logger   *zap.Logger
	renderer *renderer.SceneRenderer
	pool     *system.SurfacePool
	thumbs   *cache.Cache

	probeAudio func(ctx context.Context, path string) (float64, error)
}

// NewProject wires a project. pub may be nil when only local outputs are used.
func NewProject(cfg *config.Config, enc video.Encoder, pub Publisher, logger *zap.Logger) *Project {
	return &Project{
		Config:     cfg,
		Encoder:    enc,
		Publisher:  pub,
		logger:     logger,
		renderer:   renderer.New(logger),
		pool:       system.NewSurfacePool(),
		thumbs:     cache.New(cfg.ThumbnailCacheTTL, 2*cfg.ThumbnailCacheTTL),
		probeAudio: system.GetAudioDuration,
	}
}

// Frames renders every frame of tmpl in order on a single surface. It stops
// with ctx.Err() when the context is cancelled between frames.
func (p *Project) Frames(ctx context.Context, tmpl *scene.Template, data map[string]string) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		if err := scene.Validate(tmpl); err != nil {
			yield(Frame{Index: -1}, err)
			return
		}

		c := p.pool.Get(tmpl.Width, tmpl.Height)
		defer p.pool.Put(c)

		index := 0
		for _, s := range tmpl.Scenes {
			bound := binder.Bind(s, data)
			for _, err := range p.renderer.Frames(c, bound, tmpl.FPS) {
				if err == nil {
					err = ctx.Err()
				}
				if err != nil {
					yield(Frame{Index: index}, err)
					return
				}
				if !yield(Frame{Index: index, Image: c.Image()}, nil) {
					return
				}
				index++
			}
		}
	}
}

type frameJob struct {
	scene  *scene.Scene
	local  int
	global int
}

// Render produces the video for tmpl and returns where it was written: a
// local path or the s3:// destination it was published to.
func (p *Project) Render(ctx context.Context, tmpl *scene.Template, data map[string]string, opts scene.RenderOptions) (string, error) {
	startTime := time.Now()

	if err := scene.Validate(tmpl); err != nil {
		return "", err
	}
	if err := validateOptions(opts); err != nil {
		return "", err
	}
	remote := publish.IsS3URI(opts.Output)
	if remote && p.Publisher == nil {
		return "", ErrNoPublisher
	}

	scenes := make([]scene.Scene, len(tmpl.Scenes))
	for i, s := range tmpl.Scenes {
		scenes[i] = binder.Bind(s, data)
		if keys := binder.Unresolved(scenes[i]); len(keys) > 0 {
			p.logger.Warn("Плейсхолдеры без значений", zap.String("scene", s.ID), zap.Strings("keys", keys))
		}
	}

	plan := Plan(tmpl)
	total := tmpl.TotalFrames()

	store, err := storage.NewFrameStore(p.Config.TempDir, p.Config.PNGLevel(), p.logger)
	if err != nil {
		return "", err
	}
	defer store.Cleanup()

	workers := min(system.RecommendWorkers(p.Config.Workers, tmpl.Width, tmpl.Height), total)

	p.logger.Info("Рендер шаблона",
		zap.String("template", tmpl.Name),
		zap.Int("scenes", len(scenes)),
		zap.Int("frames", total),
		zap.String("size", fmt.Sprintf("%dx%d", tmpl.Width, tmpl.Height)),
		zap.Int("fps", tmpl.FPS),
		zap.Int("workers", workers),
	)

	renderStart := time.Now()
	if err := p.renderFrames(ctx, tmpl, scenes, plan, store, workers); err != nil {
		return "", err
	}
	renderTime := time.Since(renderStart)

	if opts.Audio.Active() {
		p.checkAudio(ctx, opts.Audio.Src, float64(total)/float64(tmpl.FPS))
	}

	output := opts.Output
	if remote {
		output = filepath.Join(store.Dir(), "output.mp4")
	} else if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	quality := opts.Quality
	if quality == "" {
		quality = scene.QualityMedium
	}

	encodeStart := time.Now()
	out, err := p.Encoder.Encode(ctx, video.Job{
		FramePattern: store.Pattern(),
		FrameCount:   total,
		FPS:          tmpl.FPS,
		Quality:      quality,
		Audio:        opts.Audio,
		Output:       output,
	})
	if err != nil {
		return "", err
	}
	encodeTime := time.Since(encodeStart)

	if remote {
		out, err = p.Publisher.Publish(ctx, out, opts.Output)
		if err != nil {
			return "", err
		}
	}

	if p.Config.ShowStats {
		totalTime := time.Since(startTime)
		p.logger.Info("Отчет о производительности",
			zap.String("build", p.Config.BuildVersion),
			zap.Duration("total", totalTime),
			zap.Duration("render", renderTime),
			zap.Duration("encode", encodeTime),
			zap.Float64("effective_fps", float64(total)/totalTime.Seconds()),
		)
	}

	return out, nil
}

// renderFrames fills store with every frame. Each worker owns one surface;
// the first error cancels the rest.
func (p *Project) renderFrames(ctx context.Context, tmpl *scene.Template, scenes []scene.Scene, plan []SceneSpan, store *storage.FrameStore, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan frameJob, workers)

	g.Go(func() error {
		defer close(jobs)
		for i, span := range plan {
			for local := 0; local < span.Count; local++ {
				select {
				case jobs <- frameJob{scene: &scenes[i], local: local, global: span.Start + local}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			c := p.pool.Get(tmpl.Width, tmpl.Height)
			defer p.pool.Put(c)

			for job := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := p.renderer.RenderFrame(c, *job.scene, job.local, tmpl.FPS); err != nil {
					return err
				}
				if err := store.Write(job.global, c.Image()); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *Project) checkAudio(ctx context.Context, path string, videoDuration float64) {
	audioDuration, err := p.probeAudio(ctx, path)
	if err != nil {
		p.logger.Warn("Не удалось получить длительность аудио", zap.String("audio", path), zap.Error(err))
		return
	}
	if audioDuration < videoDuration {
		p.logger.Warn("Аудио короче видео",
			zap.Float64("audio", audioDuration),
			zap.Float64("video", videoDuration),
		)
	}
}

func validateOptions(opts scene.RenderOptions) error {
	var problems []string
	if opts.Output == "" {
		problems = append(problems, "output is required")
	} else if publish.IsS3URI(opts.Output) {
		if _, _, err := publish.ParseS3URI(opts.Output); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if a := opts.Audio; a.Active() && a.Volume != nil && *a.Volume < 0 {
		problems = append(problems, fmt.Sprintf("audio volume must not be negative, got %v", *a.Volume))
	}
	if len(problems) > 0 {
		return &scene.ValidationError{Problems: problems}
	}
	return nil
}

// Preview renders the leading scenes of tmpl, one scene per
// Config.SecondsPerPreviewScene of requested duration, at low quality.
func (p *Project) Preview(ctx context.Context, tmpl *scene.Template, data map[string]string, requestedDuration float64) (string, error) {
	if err := scene.Validate(tmpl); err != nil {
		return "", err
	}

	n := min(int(math.Ceil(requestedDuration/p.Config.SecondsPerPreviewScene)), len(tmpl.Scenes))
	if n <= 0 {
		return "", &scene.ValidationError{Problems: []string{
			fmt.Sprintf("preview duration must be positive, got %v", requestedDuration),
		}}
	}

	sub := *tmpl
	sub.Scenes = tmpl.Scenes[:n]
	sub.Duration = 0
	for _, s := range sub.Scenes {
		sub.Duration += s.Duration
	}

	p.logger.Info("Рендер превью", zap.Int("scenes", n), zap.Float64("duration", sub.Duration))
	return p.Render(ctx, &sub, data, scene.RenderOptions{
		Output:  filepath.Join(p.Config.WorkDir, "preview.mp4"),
		Quality: scene.QualityLow,
	})
}
