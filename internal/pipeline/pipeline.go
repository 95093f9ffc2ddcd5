package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/ffmpeg"
	"github.com/kikiluvv/clipcutter/internal/logging"
	"github.com/kikiluvv/clipcutter/pkg/util"
)

var (
	ErrInputMissing = errors.New("pipeline: input video not found")
	ErrNoRanges     = errors.New("pipeline: no clip ranges to export")
)

// Pipeline cuts the selected ranges out of a video and joins them into one file.
type Pipeline struct {
	logger      zerolog.Logger
	transcoder  Transcoder
	settings    ffmpeg.EncodeSettings
	finalName   string
	concurrency int
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, transcoder Transcoder, cfg config.ExportConfig) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	finalName := cfg.FinalName
	if finalName == "" {
		finalName = "final_video.mp4"
	}

	return &Pipeline{
		logger:      logging.Component(logger, "pipeline"),
		transcoder:  transcoder,
		settings:    ffmpeg.SettingsFromConfig(cfg),
		finalName:   finalName,
		concurrency: concurrency,
	}
}

// Export extracts every range to clip_<n>.mp4 in the output directory,
// writes the concat manifest there and re-encodes the clips into the final
// file. The first failing step aborts the job.
func (p *Pipeline) Export(ctx context.Context, req Request) (*Result, error) {
	if !util.FileExists(req.Input) {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, req.Input)
	}
	if len(req.Ranges) == 0 {
		return nil, ErrNoRanges
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := util.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	final := req.FinalPath
	if final == "" {
		final = filepath.Join(outDir, p.finalName)
	}

	started := time.Now()
	result := &Result{
		JobID:    uuid.NewString(),
		Clips:    make([]string, len(req.Ranges)),
		Manifest: filepath.Join(outDir, ffmpeg.ManifestName),
		Final:    final,
	}
	logger := p.logger.With().Str("job", result.JobID).Logger()

	logger.Info().
		Str("input", req.Input).
		Str("output_dir", outDir).
		Int("ranges", len(req.Ranges)).
		Msg("starting export")

	total := len(req.Ranges) + 1
	progress := newProgress(result.JobID, total, req.Progress)

	// Stage 1: cut clips
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, r := range req.Ranges {
		out := filepath.Join(outDir, fmt.Sprintf("clip_%d.mp4", i+1))
		result.Clips[i] = out

		g.Go(func() error {
			err := p.transcoder.ExtractClip(gctx, req.Input, ffmpeg.ClipOptions{
				Start:    r.Offset,
				Duration: r.Duration,
				Output:   out,
				Settings: p.settings,
			})
			if err != nil {
				return fmt.Errorf("clip %d (%s): %w", i+1, r.Name, err)
			}
			progress.step(filepath.Base(out))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("clip extraction failed")
		util.CleanupFiles(result.Clips...)
		return nil, err
	}

	// Stage 2: join
	err := p.transcoder.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:   result.Clips,
		Output:   final,
		Manifest: result.Manifest,
		Settings: p.settings,
	})
	if err != nil {
		logger.Error().Err(err).Msg("concat failed")
		return nil, err
	}
	progress.step(filepath.Base(final))

	result.Elapsed = time.Since(started)
	logger.Info().
		Str("final", final).
		Dur("elapsed", result.Elapsed).
		Msg("export complete")

	return result, nil
}

// progress serializes Step callbacks from the extraction workers.
type progress struct {
	mu    sync.Mutex
	jobID string
	done  int
	total int
	fn    func(Step)
}

func newProgress(jobID string, total int, fn func(Step)) *progress {
	return &progress{jobID: jobID, total: total, fn: fn}
}

func (p *progress) step(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.fn != nil {
		p.fn(Step{JobID: p.jobID, Name: name, Done: p.done, Total: p.total})
	}
}
