// Package video turns numbered frame sequences into video files.
package video

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/ivlev/template2video/internal/scene"
)

//go:generate mockgen -destination=mocks/mock_encoder.go -package=mocks github.com/ivlev/template2video/internal/video Encoder

// Job describes one encode: a numbered image sequence plus optional audio.
type Job struct {
	FramePattern string // printf pattern starting at index 0, e.g. /tmp/x/frame_%06d.png
	FrameCount   int
	FPS          int
	Quality      scene.Quality
	Audio        *scene.AudioTrack
	Output       string
}

// Duration is the length of the video stream in seconds.
func (j Job) Duration() float64 {
	return float64(j.FrameCount) / float64(j.FPS)
}

// Encoder turns a frame sequence into a video file and returns its path.
type Encoder interface {
	Encode(ctx context.Context, job Job) (string, error)
}

// ErrNoFrames is wrapped in an EncodingError when a job has nothing to encode.
var ErrNoFrames = errors.New("no frames to encode")

// EncodingError wraps an encoder failure together with the encoder's own
// output.
type EncodingError struct {
	Err        error
	Diagnostic string
}

func (e *EncodingError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("encoding failed: %v", e.Err)
	}
	return fmt.Sprintf("encoding failed: %v, output: %s", e.Err, e.Diagnostic)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// maxDiagnostic bounds how much ffmpeg output is kept in an EncodingError.
const maxDiagnostic = 4096

type FFmpegEncoder struct {
	Binary string // defaults to "ffmpeg"
	Codec  string // libx264, h264_nvenc or h264_videotoolbox
	logger *zap.Logger
}

func NewFFmpegEncoder(codec string, logger *zap.Logger) *FFmpegEncoder {
	if codec == "" {
		codec = CodecX264
	}
	return &FFmpegEncoder{Binary: "ffmpeg", Codec: codec, logger: logger}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, job Job) (string, error) {
	if job.FrameCount <= 0 {
		return "", &EncodingError{Err: ErrNoFrames}
	}

	args := e.buildArgs(job)
	e.logger.Debug("Running ffmpeg", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", &EncodingError{Err: err, Diagnostic: tail(string(out), maxDiagnostic)}
	}

	e.logger.Info("Encoded video",
		zap.String("output", job.Output),
		zap.Int("frames", job.FrameCount),
		zap.String("codec", e.Codec),
		zap.String("quality", string(job.Quality)),
	)
	return job.Output, nil
}

func (e *FFmpegEncoder) buildArgs(job Job) []string {
	video := ffmpeg.Input(job.FramePattern, ffmpeg.KwArgs{
		"framerate":    job.FPS,
		"start_number": 0,
	})

	kw := ffmpeg.KwArgs{
		"c:v":      e.Codec,
		"pix_fmt":  "yuv420p",
		"frames:v": job.FrameCount,
	}
	for k, v := range PresetFor(e.Codec, job.Quality) {
		kw[k] = v
	}

	var out *ffmpeg.Stream
	if job.Audio.Active() {
		audio := ffmpeg.Input(job.Audio.Src).Audio()
		if job.Audio.Volume != nil {
			audio = audio.Filter("volume", ffmpeg.Args{strconv.FormatFloat(*job.Audio.Volume, 'f', -1, 64)})
		}
		kw["c:a"] = "aac"
		kw["b:a"] = "192k"
		// Cut the audio at the end of the video stream.
		kw["t"] = strconv.FormatFloat(job.Duration(), 'f', 3, 64)
		out = ffmpeg.Output([]*ffmpeg.Stream{video, audio}, job.Output, kw)
	} else {
		out = video.Output(job.Output, kw)
	}

	return out.OverWriteOutput().GetArgs()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
