package preview

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/kikiluvv/clipcutter/internal/video"
)

func twoPixelFrame() video.Frame {
	// left pixel BGR(1,2,3), right pixel BGR(4,5,6)
	return video.Frame{Width: 2, Height: 1, Data: []byte{1, 2, 3, 4, 5, 6}}
}

func TestRenderSwapsChannels(t *testing.T) {
	img, err := Render(twoPixelFrame(), Options{Width: 2, Height: 1})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	want := color.RGBA{R: 3, G: 2, B: 1, A: 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRenderRotates180(t *testing.T) {
	f := video.Frame{Width: 2, Height: 2, Data: []byte{
		1, 1, 1, 2, 2, 2,
		3, 3, 3, 4, 4, 4,
	}}

	img, err := Render(f, Options{Width: 2, Height: 2, Rotate180: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	checks := map[image.Point]uint8{
		{0, 0}: 4,
		{1, 0}: 3,
		{0, 1}: 2,
		{1, 1}: 1,
	}
	for p, want := range checks {
		got := color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
		if got.R != want {
			t.Errorf("pixel %v: expected %d, got %d", p, want, got.R)
		}
	}
}

func TestRenderResizes(t *testing.T) {
	f := video.Frame{Width: 4, Height: 2, Data: make([]byte, 4*2*3)}

	img, err := Render(f, Options{Width: 800, Height: 400, Rotate180: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 400 {
		t.Errorf("expected 800x400, got %v", b)
	}
}

func TestRenderRejectsMalformed(t *testing.T) {
	f := video.Frame{Width: 4, Height: 2, Data: make([]byte, 5)}
	if _, err := Render(f, Options{Width: 8, Height: 4}); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}
