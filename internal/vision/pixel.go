// Package vision implements the image analysis pipeline: pixel buffers,
// edge field extraction, multi-scale angularity scoring and feature
// sampling. Its output is an immutable Analysis record that the synthesis
// layer maps to sound.
package vision

import (
	"errors"
	"fmt"
)

// ErrInvalidBuffer indicates a pixel buffer with zero dimensions or a
// mismatched pixel slice.
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// PixelBuffer is a width*height RGBA image, row-major, 4 bytes per pixel.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer validates dimensions against the pixel slice and wraps it.
// The slice is not copied; callers hand over ownership.
func NewPixelBuffer(width, height int, pix []uint8) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d (want %d)", ErrInvalidBuffer, len(pix), width, height, width*height*4)
	}
	return &PixelBuffer{Width: width, Height: height, Pix: pix}, nil
}

// Luminance returns the mean of the R, G and B channels at (x, y), in 0..255.
func (p *PixelBuffer) Luminance(x, y int) float64 {
	i := (y*p.Width + x) * 4
	return (float64(p.Pix[i]) + float64(p.Pix[i+1]) + float64(p.Pix[i+2])) / 3.0
}

// luminancePlane extracts the full luminance plane in one pass.
func (p *PixelBuffer) luminancePlane() []float64 {
	lum := make([]float64, p.Width*p.Height)
	for i := range lum {
		j := i * 4
		lum[i] = (float64(p.Pix[j]) + float64(p.Pix[j+1]) + float64(p.Pix[j+2])) / 3.0
	}
	return lum
}

// Downsample reduces the buffer by an integer factor with a box filter.
// Each output pixel is the per-channel mean of a factor x factor block;
// trailing rows and columns that do not fill a block are dropped.
func (p *PixelBuffer) Downsample(factor int) *PixelBuffer {
	if factor <= 1 {
		return p
	}
	outW := p.Width / factor
	outH := p.Height / factor
	if outW < 1 || outH < 1 {
		return p
	}

	out := make([]uint8, outW*outH*4)
	area := float64(factor * factor)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var r, g, b, a float64
			for dy := 0; dy < factor; dy++ {
				rowBase := ((oy*factor+dy)*p.Width + ox*factor) * 4
				for dx := 0; dx < factor; dx++ {
					i := rowBase + dx*4
					r += float64(p.Pix[i])
					g += float64(p.Pix[i+1])
					b += float64(p.Pix[i+2])
					a += float64(p.Pix[i+3])
				}
			}
			o := (oy*outW + ox) * 4
			out[o] = uint8(r / area)
			out[o+1] = uint8(g / area)
			out[o+2] = uint8(b / area)
			out[o+3] = uint8(a / area)
		}
	}

	return &PixelBuffer{Width: outW, Height: outH, Pix: out}
}
