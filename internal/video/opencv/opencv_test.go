package opencv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kikiluvv/clipcutter/internal/video"
)

func TestOpenMissingFile(t *testing.T) {
	src, err := Decoder{}.Open(filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil {
		src.Close()
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, video.ErrOpen) {
		t.Errorf("expected video.ErrOpen, got %v", err)
	}
}
