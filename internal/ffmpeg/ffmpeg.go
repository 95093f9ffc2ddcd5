package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/logging"
)

// stderrTail is how many non-progress stderr lines a failed run keeps.
const stderrTail = 20

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New resolves the configured ffmpeg and ffprobe binaries. A missing binary
// is reported as a *DependencyError.
func New(logger zerolog.Logger, cfg config.FFmpegConfig) (*Executor, error) {
	ffmpegPath, err := lookPath(cfg.BinaryPath, "ffmpeg")
	if err != nil {
		return nil, err
	}

	ffprobePath, err := lookPath(cfg.ProbePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	return &Executor{
		logger:      logging.Component(logger, "ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     cfg.Threads,
	}, nil
}

// lookPath resolves a configured binary, then PATH, then a copy bundled in
// assets/ next to the running executable.
func lookPath(configured, fallback string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", &DependencyError{Binary: configured, Err: err}
		}
		return path, nil
	}

	path, err := exec.LookPath(fallback)
	if err == nil {
		return path, nil
	}
	if bundled := bundledPath(fallback); bundled != "" {
		return bundled, nil
	}
	return "", &DependencyError{Binary: fallback, Err: err}
}

func bundledPath(name string) string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(filepath.Dir(exe), "assets", name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newLineTail(stderrTail)

	var wg sync.WaitGroup
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts, tail)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ToolError{Tool: "ffmpeg", Args: args, Stderr: tail.String(), Err: err}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output and calls handlers. Lines that are not
// part of a progress block are kept in tail for error reporting.
func (e *Executor) streamOutput(r io.Reader, opts RunOptions, tail *lineTail) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if opts.LogHandler != nil {
			opts.LogHandler(line)
		}

		key, value, ok := progressLine(line)
		if !ok {
			tail.Add(line)
			continue
		}

		switch key {
		case "frame":
			progressData.Frame, _ = strconv.Atoi(value)
		case "fps":
			progressData.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && opts.Duration > 0 {
				elapsed := time.Duration(us) * time.Microsecond
				progressData.Percentage = min(100, 100*float64(elapsed)/float64(opts.Duration))
			}
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if opts.ProgressHandler != nil && progressData.Frame > 0 {
				opts.ProgressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}

var progressKeys = map[string]bool{
	"frame": true, "fps": true, "bitrate": true, "total_size": true,
	"out_time": true, "out_time_us": true, "out_time_ms": true,
	"dup_frames": true, "drop_frames": true, "speed": true, "progress": true,
}

// progressLine splits a "-progress" key=value line.
func progressLine(line string) (key, value string, ok bool) {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	if !progressKeys[key] && !strings.HasPrefix(key, "stream_") {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

// lineTail keeps the last n lines written to it.
type lineTail struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{n: n}
}

func (t *lineTail) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

// IsNotFound reports whether err means a required binary is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
