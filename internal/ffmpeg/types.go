package ffmpeg

import (
	"strconv"
	"time"

	"github.com/kikiluvv/clipcutter/internal/config"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	FrameCount   int
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Speed      string
	Percentage float64
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
	// Duration of the expected output, used to fill Progress.Percentage.
	Duration time.Duration
}

// Default encoding settings
const (
	DefaultCRF          = 30
	DefaultPreset       = "ultrafast"
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "128k"
	DefaultWidth        = 854
	DefaultHeight       = 480
)

// EncodeSettings is the re-encode profile shared by clip extraction and
// the final concat.
type EncodeSettings struct {
	Width        int
	Height       int
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	CRF          int
	Preset       string
}

// SettingsFromConfig copies the encode profile out of the export section.
func SettingsFromConfig(cfg config.ExportConfig) EncodeSettings {
	return EncodeSettings{
		Width:        cfg.Width,
		Height:       cfg.Height,
		VideoCodec:   cfg.VideoCodec,
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: cfg.AudioBitrate,
		CRF:          cfg.CRF,
		Preset:       cfg.Preset,
	}
}

// args renders the scale filter and codec flags, filling in defaults.
func (s EncodeSettings) args() []string {
	width, height := s.Width, s.Height
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}

	codec := s.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	audioCodec := s.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	bitrate := s.AudioBitrate
	if bitrate == "" {
		bitrate = DefaultAudioBitrate
	}
	crf := s.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := s.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	return []string{
		"-vf", NewFilterBuilder().Scale(width, height).Build(),
		"-c:v", codec,
		"-crf", strconv.Itoa(crf),
		"-preset", preset,
		"-c:a", audioCodec,
		"-b:a", bitrate,
	}
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
