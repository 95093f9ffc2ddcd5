package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/clips"
	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/ffmpeg"
)

// fakeTranscoder records calls instead of running ffmpeg.
type fakeTranscoder struct {
	mu       sync.Mutex
	clips    []ffmpeg.ClipOptions
	concats  []ffmpeg.ConcatOptions
	failClip string

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeTranscoder) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.clips = append(f.clips, opts)
	if filepath.Base(opts.Output) == f.failClip {
		return &ffmpeg.ToolError{Tool: "ffmpeg", Stderr: "Conversion failed!", Err: errors.New("exit status 1")}
	}
	return os.WriteFile(opts.Output, []byte("clip"), 0644)
}

func (f *fakeTranscoder) Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concats = append(f.concats, opts)
	return nil
}

func sourceVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportDefaultRanges(t *testing.T) {
	fake := &fakeTranscoder{}
	p := New(zerolog.Nop(), fake, config.Default().Export)

	outDir := filepath.Join(t.TempDir(), "clips")
	var steps []Step
	res, err := p.Export(context.Background(), Request{
		Input:     sourceVideo(t),
		OutputDir: outDir,
		Ranges:    DefaultRanges(),
		Progress:  func(s Step) { steps = append(steps, s) },
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if _, err := uuid.Parse(res.JobID); err != nil {
		t.Errorf("job id is not a uuid: %q", res.JobID)
	}
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}

	if len(fake.clips) != 3 {
		t.Fatalf("expected 3 extractions, got %d", len(fake.clips))
	}
	sort.Slice(fake.clips, func(i, j int) bool { return fake.clips[i].Output < fake.clips[j].Output })
	want := []struct {
		name          string
		start, length time.Duration
	}{
		{"clip_1.mp4", 60 * time.Second, 20 * time.Second},
		{"clip_2.mp4", 120 * time.Second, 40 * time.Second},
		{"clip_3.mp4", 180 * time.Second, 20 * time.Second},
	}
	for i, w := range want {
		got := fake.clips[i]
		if got.Output != filepath.Join(outDir, w.name) || got.Start != w.start || got.Duration != w.length {
			t.Errorf("clip %d: unexpected options %+v", i+1, got)
		}
		if got.Settings.CRF != 30 || got.Settings.Width != 854 {
			t.Errorf("clip %d: config settings not applied: %+v", i+1, got.Settings)
		}
	}

	if len(fake.concats) != 1 {
		t.Fatalf("expected one concat, got %d", len(fake.concats))
	}
	concat := fake.concats[0]
	if concat.Manifest != filepath.Join(outDir, "concat_list.txt") {
		t.Errorf("unexpected manifest %q", concat.Manifest)
	}
	if concat.Output != filepath.Join(outDir, "final_video.mp4") || res.Final != concat.Output {
		t.Errorf("unexpected final path %q", concat.Output)
	}
	for i, in := range concat.Inputs {
		if in != res.Clips[i] {
			t.Errorf("concat input %d out of order: %q", i, in)
		}
	}

	if len(steps) != 4 || steps[3].Done != 4 || steps[3].Total != 4 {
		t.Errorf("unexpected progress %+v", steps)
	}
}

func TestExportRespectsConcurrency(t *testing.T) {
	fake := &fakeTranscoder{}
	cfg := config.Default().Export
	cfg.Concurrency = 1
	p := New(zerolog.Nop(), fake, cfg)

	_, err := p.Export(context.Background(), Request{
		Input:     sourceVideo(t),
		OutputDir: t.TempDir(),
		Ranges:    DefaultRanges(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if m := fake.maxActive.Load(); m != 1 {
		t.Errorf("expected one extraction at a time, saw %d", m)
	}
}

func TestExportFinalPathOverride(t *testing.T) {
	fake := &fakeTranscoder{}
	p := New(zerolog.Nop(), fake, config.Default().Export)

	final := filepath.Join(t.TempDir(), "out.mp4")
	res, err := p.Export(context.Background(), Request{
		Input:     sourceVideo(t),
		OutputDir: t.TempDir(),
		FinalPath: final,
		Ranges:    []clips.Range{{Name: "clip1", Duration: time.Second}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Final != final {
		t.Errorf("expected %q, got %q", final, res.Final)
	}
}

func TestExportMissingInput(t *testing.T) {
	p := New(zerolog.Nop(), &fakeTranscoder{}, config.Default().Export)

	_, err := p.Export(context.Background(), Request{
		Input:  filepath.Join(t.TempDir(), "missing.mp4"),
		Ranges: DefaultRanges(),
	})
	if !errors.Is(err, ErrInputMissing) {
		t.Errorf("expected ErrInputMissing, got %v", err)
	}
}

func TestExportNoRanges(t *testing.T) {
	p := New(zerolog.Nop(), &fakeTranscoder{}, config.Default().Export)

	_, err := p.Export(context.Background(), Request{Input: sourceVideo(t)})
	if !errors.Is(err, ErrNoRanges) {
		t.Errorf("expected ErrNoRanges, got %v", err)
	}
}

func TestExportAbortsOnToolFailure(t *testing.T) {
	fake := &fakeTranscoder{failClip: "clip_2.mp4"}
	p := New(zerolog.Nop(), fake, config.Default().Export)

	outDir := t.TempDir()
	_, err := p.Export(context.Background(), Request{
		Input:     sourceVideo(t),
		OutputDir: outDir,
		Ranges:    DefaultRanges(),
	})
	if !errors.Is(err, ffmpeg.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}

	var toolErr *ffmpeg.ToolError
	if !errors.As(err, &toolErr) || toolErr.Stderr != "Conversion failed!" {
		t.Errorf("stderr should travel with the error: %v", err)
	}
	if len(fake.concats) != 0 {
		t.Error("concat must not run after a failed extraction")
	}

	for _, name := range []string{"clip_1.mp4", "clip_3.mp4"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed after the failed export", name)
		}
	}
}
