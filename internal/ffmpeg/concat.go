package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the concat list written next to the extracted clips.
const ManifestName = "concat_list.txt"

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
	// Manifest is where the file list is written. Empty means a
	// concat_list.txt beside the first input.
	Manifest     string
	Settings     EncodeSettings
	ProgressFunc ProgressFunc
}

// ConcatArgs builds the concat demuxer arguments for an existing manifest.
func ConcatArgs(manifest, output string, settings EncodeSettings) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
	}
	args = append(args, settings.args()...)
	return append(args, output)
}

// Concat writes the manifest and re-encodes the inputs into one file.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	manifest := opts.Manifest
	if manifest == "" {
		manifest = filepath.Join(filepath.Dir(opts.Inputs[0]), ManifestName)
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("manifest", manifest).
		Str("output", opts.Output).
		Msg("concatenating videos")

	if err := WriteManifest(manifest, opts.Inputs); err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}

	runOpts := RunOptions{
		Args:            ConcatArgs(manifest, opts.Output, opts.Settings),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

// WriteManifest writes one "file '<path>'" line per input. Paths are made
// absolute and use forward slashes so the list works on every platform.
func WriteManifest(path string, inputs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := fmt.Fprintf(w, "file '%s'\n", manifestEscape(filepath.ToSlash(absPath))); err != nil {
			f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// manifestEscape closes the quote around a literal ' as the concat demuxer expects.
func manifestEscape(p string) string {
	return strings.ReplaceAll(p, `'`, `'\''`)
}
