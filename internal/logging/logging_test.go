package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	parent := zerolog.New(&buf)

	logger := Component(parent, "playback")
	logger.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"playback"`) {
		t.Errorf("expected component field in %q", out)
	}
}

func TestInitWriterLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	InitWriter(false, &buf)
	hidden := WithComponent("test")
	hidden.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output should be filtered, got %q", buf.String())
	}

	InitWriter(true, &buf)
	shown := WithComponent("test")
	shown.Debug().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}
