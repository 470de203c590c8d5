package video

import (
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/template2video/internal/scene"
)

const (
	CodecX264         = "libx264"
	CodecNVENC        = "h264_nvenc"
	CodecVideoToolbox = "h264_videotoolbox"
)

// presets maps codec and quality tier to encoder options. Hardware encoders
// do not understand -crf: NVENC takes a constant quality value, VideoToolbox
// a target bitrate.
var presets = map[string]map[scene.Quality]ffmpeg.KwArgs{
	CodecX264: {
		scene.QualityLow:    {"crf": 28, "preset": "fast"},
		scene.QualityMedium: {"crf": 23, "preset": "medium"},
		scene.QualityHigh:   {"crf": 18, "preset": "slow"},
	},
	CodecNVENC: {
		scene.QualityLow:    {"cq": 28, "preset": "fast"},
		scene.QualityMedium: {"cq": 23, "preset": "medium"},
		scene.QualityHigh:   {"cq": 18, "preset": "slow"},
	},
	CodecVideoToolbox: {
		scene.QualityLow:    {"b:v": "4000k"},
		scene.QualityMedium: {"b:v": "7500k"},
		scene.QualityHigh:   {"b:v": "12000k"},
	},
}

// PresetFor returns the encoder options of a quality tier. Unknown tiers fall
// back to medium, unknown codecs to the libx264 table.
func PresetFor(codec string, q scene.Quality) ffmpeg.KwArgs {
	table, ok := presets[codec]
	if !ok {
		table = presets[CodecX264]
	}
	row, ok := table[q]
	if !ok {
		row = table[scene.QualityMedium]
	}

	out := make(ffmpeg.KwArgs, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
