package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/clipcutter/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	Duration     time.Duration
	Output       string
	Settings     EncodeSettings
	ProgressFunc ProgressFunc
}

// ClipArgs builds the extraction arguments. The seek goes before -i so
// ffmpeg jumps straight to the offset instead of decoding up to it.
func ClipArgs(input string, opts ClipOptions) ([]string, error) {
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("invalid clip duration %v", opts.Duration)
	}
	if opts.Start < 0 {
		return nil, fmt.Errorf("invalid clip offset %v", opts.Start)
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(opts.Duration),
	}
	args = append(args, opts.Settings.args()...)
	return append(args, opts.Output), nil
}

// ExtractClip cuts and re-encodes a segment from a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	args, err := ClipArgs(input, opts)
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", opts.Duration).
		Msg("extracting clip")

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		Duration:        opts.Duration,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}
