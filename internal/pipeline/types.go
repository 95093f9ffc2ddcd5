package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/clipcutter/internal/clips"
	"github.com/kikiluvv/clipcutter/internal/ffmpeg"
)

// Transcoder is the part of the ffmpeg executor the pipeline drives.
type Transcoder interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Request describes one export job.
type Request struct {
	Input     string
	OutputDir string
	// FinalPath defaults to the configured final name inside OutputDir.
	FinalPath string
	Ranges    []clips.Range
	// Progress, if set, is called after each finished step.
	Progress func(Step)
}

// Step reports progress through an export.
type Step struct {
	JobID string
	Name  string
	Done  int
	Total int
}

// Result is what a finished export produced.
type Result struct {
	JobID    string
	Clips    []string
	Manifest string
	Final    string
	Elapsed  time.Duration
}

// DefaultRanges are the offsets and lengths used when none are given.
func DefaultRanges() []clips.Range {
	return []clips.Range{
		{Name: "clip1", Offset: 60 * time.Second, Duration: 20 * time.Second},
		{Name: "clip2", Offset: 120 * time.Second, Duration: 40 * time.Second},
		{Name: "clip3", Offset: 180 * time.Second, Duration: 20 * time.Second},
	}
}
