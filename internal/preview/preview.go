// Package preview turns decoded frames into images the window can show.
package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"

	"github.com/kikiluvv/clipcutter/internal/video"
)

var ErrMalformedFrame = errors.New("preview: malformed frame")

// Options controls the preview transform.
type Options struct {
	Width     int
	Height    int
	Rotate180 bool
}

// Render rotates the frame when asked (the usual sources are recorded upside
// down), swaps BGR to RGB and scales it to the preview size.
func Render(f video.Frame, opts Options) (image.Image, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrMalformedFrame, f.Width, f.Height, len(f.Data))
	}

	img := toRGBA(f, opts.Rotate180)

	if opts.Width <= 0 || opts.Height <= 0 || (opts.Width == f.Width && opts.Height == f.Height) {
		return img, nil
	}
	return resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear), nil
}

func toRGBA(f video.Frame, rotate bool) *image.RGBA {
	w, h := f.Width, f.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * 3
			dx, dy := x, y
			if rotate {
				dx, dy = w-1-x, h-1-y
			}
			dst := img.PixOffset(dx, dy)
			img.Pix[dst+0] = f.Data[src+2]
			img.Pix[dst+1] = f.Data[src+1]
			img.Pix[dst+2] = f.Data[src+0]
			img.Pix[dst+3] = 0xff
		}
	}
	return img
}
