package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/template2video/internal/binder"
	"github.com/ivlev/template2video/internal/scene"
)

// Thumbnail renders scene sceneIndex of tmpl at half its duration. Results
// are cached by bound scene content and canvas size.
func (p *Project) Thumbnail(tmpl *scene.Template, data map[string]string, sceneIndex int) (*image.RGBA, error) {
	if err := scene.Validate(tmpl); err != nil {
		return nil, err
	}
	if sceneIndex < 0 || sceneIndex >= len(tmpl.Scenes) {
		return nil, &scene.ValidationError{Problems: []string{
			fmt.Sprintf("scene index %d out of range [0,%d)", sceneIndex, len(tmpl.Scenes)),
		}}
	}

	bound := binder.Bind(tmpl.Scenes[sceneIndex], data)
	key, err := thumbnailKey(bound, tmpl.Width, tmpl.Height)
	if err != nil {
		return nil, err
	}

	if cached, ok := p.thumbs.Get(key); ok {
		p.logger.Debug("Миниатюра взята из кэша", zap.String("scene", bound.ID))
		return cloneRGBA(cached.(*image.RGBA)), nil
	}

	c := p.pool.Get(tmpl.Width, tmpl.Height)
	defer p.pool.Put(c)

	if err := p.renderer.RenderAt(c, bound, bound.Duration/2); err != nil {
		return nil, err
	}

	img := cloneRGBA(c.Image())
	p.thumbs.Set(key, img, cache.DefaultExpiration)
	return cloneRGBA(img), nil
}

// SaveThumbnail writes Thumbnail's result to path; the format follows the
// file extension.
func (p *Project) SaveThumbnail(tmpl *scene.Template, data map[string]string, sceneIndex int, path string) error {
	img, err := p.Thumbnail(tmpl, data, sceneIndex)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	p.logger.Info("Миниатюра сохранена", zap.String("path", path), zap.Int("scene", sceneIndex))
	return nil
}

func thumbnailKey(s scene.Scene, width, height int) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to hash scene %q: %w", s.ID, err)
	}
	sum := sha256.Sum256(fmt.Appendf(data, "\n%dx%d", width, height))
	return hex.EncodeToString(sum[:]), nil
}
