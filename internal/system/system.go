// Package system wraps host facilities: resource limits, ffmpeg probing and
// worker sizing.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func InitResourceLimits(logger *zap.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("Не удалось получить лимит файлов", zap.Error(err))
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("Не удалось установить лимит файлов", zap.Error(err))
	} else {
		logger.Debug("Системный лимит открытых файлов увеличен", zap.Uint64("limit", uint64(rLimit.Cur)))
	}
}

var (
	templateExtensions = []string{".yaml", ".yml", ".json"}
	audioExtensions    = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
)

// FindLatestTemplate returns the most recently modified template file in dir.
func FindLatestTemplate(dir string) (string, error) {
	latest, err := findLatest(dir, templateExtensions)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено шаблонов", dir)
	}
	return latest, nil
}

// FindLatestAudio returns the most recently modified audio file in dir.
func FindLatestAudio(dir string) (string, error) {
	latest, err := findLatest(dir, audioExtensions)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено аудио-файлов", dir)
	}
	return latest, nil
}

func findLatest(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}
	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetAudioDuration asks ffprobe for the length of an audio file in seconds.
func GetAudioDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	return parseDuration(string(out))
}

func parseDuration(out string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", out, err)
	}
	return d, nil
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg has one.
func GetBestH264Encoder() string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(encoders, name) {
			return name
		}
	}
	return "libx264"
}
