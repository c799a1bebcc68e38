package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

type pngEncoder interface {
	EncodePNG(w io.Writer) error
}

// WritePNG encodes the surface as PNG. When either side exceeds maxSide the
// image is first scaled down with nearest-neighbour sampling so cells stay
// crisp. maxSide <= 0 disables scaling.
func (r *Renderer) WritePNG(w io.Writer, maxSide int) error {
	src := r.surface.Image()
	img := Downscale(src, maxSide)

	if enc, ok := r.surface.(pngEncoder); ok && img == src {
		if err := enc.EncodePNG(w); err != nil {
			return fmt.Errorf("render.Renderer.WritePNG: %w", err)
		}
		return nil
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render.Renderer.WritePNG: %w", err)
	}
	return nil
}

// Downscale fits img into a maxSide square, preserving aspect ratio.
func Downscale(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}

	nw, nh := maxSide, maxSide
	if w > h {
		nh = max(1, h*maxSide/w)
	} else if h > w {
		nw = max(1, w*maxSide/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
