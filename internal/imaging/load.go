// Package imaging decodes image files into the pixel buffers the vision
// pipeline consumes, and finds images on disk for batch analysis.
package imaging

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/shapesynth/synthd/internal/vision"
)

// Load decodes the image at path into an RGBA pixel buffer, downscaling
// so neither dimension exceeds maxDim (aspect preserved). maxDim <= 0
// disables scaling.
func Load(path string, maxDim int) (*vision.PixelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return FromImage(img, maxDim)
}

// FromImage converts a decoded image into a pixel buffer, applying the
// same downscale rule as Load.
func FromImage(img image.Image, maxDim int) (*vision.PixelBuffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: decoded image is %dx%d", vision.ErrInvalidBuffer, w, h)
	}

	outW, outH := fitWithin(w, h, maxDim)
	rgba := image.NewRGBA(image.Rect(0, 0, outW, outH))
	if outW == w && outH == h {
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), img, bounds, xdraw.Src, nil)
	}

	return vision.NewPixelBuffer(outW, outH, rgba.Pix)
}

// fitWithin shrinks (w, h) proportionally so max(w, h) <= maxDim. Images
// already inside the limit keep their size; at least one pixel survives
// in each dimension.
func fitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		scaled := h * maxDim / w
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := w * maxDim / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}
