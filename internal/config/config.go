// Package config loads engine settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds engine settings that are not part of a template.
type Config struct {
	Workers int    `yaml:"workers"`
	TempDir string `yaml:"tempDir"` // parent of per-render frame directories, system default when empty
	WorkDir string `yaml:"workDir"` // where previews are written

	// VideoEncoder is an ffmpeg codec name; empty means detect the best H.264 encoder.
	VideoEncoder   string `yaml:"videoEncoder"`
	PNGCompression string `yaml:"pngCompression"` // none, speed, default, best

	SecondsPerPreviewScene float64       `yaml:"secondsPerPreviewScene"`
	ThumbnailCacheTTL      time.Duration `yaml:"thumbnailCacheTTL"`

	S3 S3Config `yaml:"s3"`

	ShowStats    bool   `yaml:"showStats"`
	BuildVersion string `yaml:"-"`
}

type S3Config struct {
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Workers:                runtime.NumCPU(),
		WorkDir:                "output",
		PNGCompression:         "speed",
		SecondsPerPreviewScene: 3,
		ThumbnailCacheTTL:      10 * time.Minute,
	}
}

// Load builds a Config from defaults, the optional YAML file at path, an
// optional .env file in the working directory and finally T2V_* environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := env("T2V_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("T2V_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := env("T2V_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := env("T2V_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := env("T2V_ENCODER"); v != "" {
		c.VideoEncoder = v
	}
	if v := env("T2V_PNG_COMPRESSION"); v != "" {
		c.PNGCompression = v
	}
	if v := env("T2V_THUMBNAIL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("T2V_THUMBNAIL_TTL: %w", err)
		}
		c.ThumbnailCacheTTL = d
	}
	if v := env("T2V_S3_REGION"); v != "" {
		c.S3.Region = v
	}
	if v := env("T2V_S3_PROFILE"); v != "" {
		c.S3.Profile = v
	}
	if v := env("T2V_S3_USE_PATH_STYLE"); v != "" {
		c.S3.UsePathStyle = strings.EqualFold(v, "true")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.SecondsPerPreviewScene <= 0 {
		return fmt.Errorf("secondsPerPreviewScene must be positive, got %v", c.SecondsPerPreviewScene)
	}
	switch c.PNGCompression {
	case "none", "speed", "default", "best":
	default:
		return fmt.Errorf("unknown pngCompression %q", c.PNGCompression)
	}
	return nil
}

// PNGLevel maps PNGCompression to the encoder setting used for frames.
func (c *Config) PNGLevel() png.CompressionLevel {
	switch c.PNGCompression {
	case "none":
		return png.NoCompression
	case "default":
		return png.DefaultCompression
	case "best":
		return png.BestCompression
	default:
		return png.BestSpeed
	}
}
