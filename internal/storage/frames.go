// Package storage keeps rendered frames on disk between rendering and
// encoding.
package storage

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// FramePattern is the printf pattern of frame file names, zero-padded so the
// encoder reads them in index order.
const FramePattern = "frame_%06d.png"

// FrameStore is a scoped temporary directory of numbered PNG frames. Write
// is safe for concurrent use with distinct indices.
type FrameStore struct {
	dir         string
	compression png.CompressionLevel
	logger      *zap.Logger
}

// NewFrameStore creates a fresh directory under parent (the system temp dir
// when empty).
func NewFrameStore(parent string, compression png.CompressionLevel, logger *zap.Logger) (*FrameStore, error) {
	dir, err := os.MkdirTemp(parent, "template2video_")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &FrameStore{dir: dir, compression: compression, logger: logger}, nil
}

func (s *FrameStore) Dir() string { return s.dir }

// Pattern is the frame path pattern handed to the encoder.
func (s *FrameStore) Pattern() string {
	return filepath.Join(s.dir, FramePattern)
}

func (s *FrameStore) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(FramePattern, index))
}

func (s *FrameStore) Write(index int, img image.Image) error {
	if err := imaging.Save(img, s.Path(index), imaging.PNGCompressionLevel(s.compression)); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}
	return nil
}

// Cleanup removes the directory. Failures are logged and never returned.
func (s *FrameStore) Cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Warn("Failed to remove frame directory", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	s.logger.Debug("Removed frame directory", zap.String("dir", s.dir))
}
