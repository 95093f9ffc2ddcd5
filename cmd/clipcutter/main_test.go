package main

import (
	"testing"
	"time"
)

func TestParseRanges(t *testing.T) {
	got, err := parseRanges([]string{"60:20", "2:00:40", "3:00.5:1.5"})
	if err != nil {
		t.Fatalf("parseRanges failed: %v", err)
	}

	want := []struct {
		name     string
		offset   time.Duration
		duration time.Duration
	}{
		{"clip1", 60 * time.Second, 20 * time.Second},
		{"clip2", 120 * time.Second, 40 * time.Second},
		{"clip3", 180500 * time.Millisecond, 1500 * time.Millisecond},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d ranges, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Offset != w.offset || got[i].Duration != w.duration {
			t.Errorf("range %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestParseRangesInvalid(t *testing.T) {
	for _, raw := range []string{"", "60", ":20", "60:", "60:0", "a:20", "60:-5"} {
		if _, err := parseRanges([]string{raw}); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
