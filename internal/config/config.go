package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Bound policies for handle moves that fall outside the valid range.
const (
	PolicyClamp  = "clamp"
	PolicyReject = "reject"
)

// Config holds all application configuration
type Config struct {
	Timeline TimelineConfig `yaml:"timeline"`
	Preview  PreviewConfig  `yaml:"preview"`
	Playback PlaybackConfig `yaml:"playback"`
	UI       UIConfig       `yaml:"ui"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Export   ExportConfig   `yaml:"export"`
}

type TimelineConfig struct {
	TrackWidth  int    `yaml:"track_width"`
	HandleWidth int    `yaml:"handle_width"`
	BoundPolicy string `yaml:"bound_policy"`
}

type PreviewConfig struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	Rotate180 bool `yaml:"rotate_180"`
}

type PlaybackConfig struct {
	DefaultSpeed float64 `yaml:"default_speed"`
	FallbackFPS  float64 `yaml:"fallback_fps"`
}

type UIConfig struct {
	SelectDebounce time.Duration `yaml:"select_debounce"`
	Extensions     []string      `yaml:"extensions"`
	WindowWidth    float32       `yaml:"window_width"`
	WindowHeight   float32       `yaml:"window_height"`
}

// FFmpegConfig locates the tools. Empty paths search $PATH and then an
// assets/ directory next to the executable.
type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type ExportConfig struct {
	OutputDir    string `yaml:"output_dir"`
	FinalName    string `yaml:"final_name"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
	CRF          int    `yaml:"crf"`
	Preset       string `yaml:"preset"`
	Concurrency  int    `yaml:"concurrency"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the timeline and playback code cannot work with.
func (c *Config) Validate() error {
	t := c.Timeline
	if t.TrackWidth <= 0 || t.HandleWidth <= 0 {
		return fmt.Errorf("timeline dimensions must be positive")
	}
	if 3*t.HandleWidth > t.TrackWidth {
		return fmt.Errorf("track width %d too small for handle width %d", t.TrackWidth, t.HandleWidth)
	}
	if t.BoundPolicy != PolicyClamp && t.BoundPolicy != PolicyReject {
		return fmt.Errorf("unknown bound policy %q", t.BoundPolicy)
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		return fmt.Errorf("preview dimensions must be positive")
	}
	if c.Playback.FallbackFPS <= 0 {
		return fmt.Errorf("fallback fps must be positive")
	}
	if c.Export.Concurrency < 0 {
		return fmt.Errorf("export concurrency cannot be negative")
	}
	if len(c.UI.Extensions) == 0 {
		return fmt.Errorf("at least one video extension is required")
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timeline: TimelineConfig{
			TrackWidth:  800,
			HandleWidth: 15,
			BoundPolicy: PolicyClamp,
		},
		Preview: PreviewConfig{
			Width:     800,
			Height:    400,
			Rotate180: true,
		},
		Playback: PlaybackConfig{
			DefaultSpeed: 2.0,
			FallbackFPS:  30,
		},
		UI: UIConfig{
			SelectDebounce: 50 * time.Millisecond,
			Extensions:     []string{".mp4", ".mov", ".avi"},
			WindowWidth:    900,
			WindowHeight:   700,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
		},
		Export: ExportConfig{
			OutputDir:    "./clips",
			FinalName:    "final_video.mp4",
			Width:        854,
			Height:       480,
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "128k",
			CRF:          30,
			Preset:       "ultrafast",
			Concurrency:  3,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".clipcutter", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
