package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5.9, "0:05"},
		{59.99, "0:59"},
		{60, "1:00"},
		{150.7, "2:30"},
		{300, "5:00"},
		{3725, "62:05"},
		{-3, "0:00"},
	}

	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	got := FormatDuration(90*time.Second + 500*time.Millisecond)
	if got != "00:01:30.500" {
		t.Errorf("expected 00:01:30.500, got %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Duration{
		"45":       45 * time.Second,
		"1:30":     90 * time.Second,
		"01:00:05": time.Hour + 5*time.Second,
		"2.5":      2500 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	for _, bad := range []string{"", "a:b", "1:2:3:4", "-5"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", bad)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30/1"); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
	if got := ParseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Errorf("expected ~29.97, got %v", got)
	}
	if got := ParseFrameRate("30/0"); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %v", got)
	}
}

func TestHasExtension(t *testing.T) {
	exts := []string{".mp4", ".mov", ".avi"}
	for _, ok := range []string{"a.mp4", "/x/B.MOV", "c.Avi"} {
		if !HasExtension(ok, exts) {
			t.Errorf("%s should be accepted", ok)
		}
	}
	for _, bad := range []string{"a.mkv", "noext", "a.mp4.txt"} {
		if HasExtension(bad, exts) {
			t.Errorf("%s should be rejected", bad)
		}
	}
}

func TestCleanDropPath(t *testing.T) {
	if got := CleanDropPath(" {/tmp/my video.mp4} "); got != "/tmp/my video.mp4" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.txt")
	if FileExists(p) {
		t.Fatal("file should not exist yet")
	}
	if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(p) {
		t.Error("file should exist")
	}
	if FileExists(dir) {
		t.Error("directory should not count as a file")
	}
}
