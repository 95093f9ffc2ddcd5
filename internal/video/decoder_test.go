package video

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

func TestFrameValid(t *testing.T) {
	ok := Frame{Width: 2, Height: 2, Data: make([]byte, 12)}
	if !ok.Valid() {
		t.Error("2x2 BGR frame with 12 bytes should be valid")
	}

	bad := []Frame{
		{},
		{Width: 2, Height: 2, Data: make([]byte, 11)},
		{Width: -1, Height: 2, Data: nil},
	}
	for _, f := range bad {
		if f.Valid() {
			t.Errorf("frame %dx%d with %d bytes should be invalid", f.Width, f.Height, len(f.Data))
		}
	}
}

func TestDecoderFunc(t *testing.T) {
	var opened string
	dec := DecoderFunc(func(path string) (Source, error) {
		opened = path
		return nil, ErrOpen
	})

	if _, err := dec.Open("/tmp/x.mp4"); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if opened != "/tmp/x.mp4" {
		t.Errorf("unexpected path %q", opened)
	}
}

// The ports must build without cgo so playback, preview and session tests
// run on machines without OpenCV.
func TestPortsDoNotImportOpenCV(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", nil, parser.ImportsOnly)
	if err != nil {
		t.Fatal(err)
	}
	for _, pkg := range pkgs {
		for name, file := range pkg.Files {
			for _, imp := range file.Imports {
				if strings.Contains(imp.Path.Value, "gocv.io") {
					t.Errorf("%s imports %s", name, imp.Path.Value)
				}
			}
		}
	}
}
