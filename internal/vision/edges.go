package vision

import "math"

// EdgeField holds per-pixel gradient magnitude and direction for a buffer.
// Values are defined for interior pixels only (x in 1..Width-2, y in
// 1..Height-2); border entries stay zero and must not be read.
type EdgeField struct {
	Width  int
	Height int
	Mag    []float64 // sqrt(gx^2 + gy^2)
	Dir    []float64 // atan2(gy, gx), in (-pi, pi]
}

// BuildEdgeField computes forward-difference luminance gradients:
//
//	gx = lum(x, y) - lum(x+1, y)
//	gy = lum(x, y) - lum(x, y+1)
//
// Buffers smaller than 3x3 produce an empty field, which scorers treat as
// insufficient signal. No magnitude thresholding happens here.
func BuildEdgeField(buf *PixelBuffer) *EdgeField {
	f := &EdgeField{
		Width:  buf.Width,
		Height: buf.Height,
		Mag:    make([]float64, buf.Width*buf.Height),
		Dir:    make([]float64, buf.Width*buf.Height),
	}
	if buf.Width < 3 || buf.Height < 3 {
		return f
	}

	lum := buf.luminancePlane()
	w := buf.Width
	for y := 1; y < buf.Height-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			gx := lum[i] - lum[i+1]
			gy := lum[i] - lum[i+w]
			f.Mag[i] = math.Sqrt(gx*gx + gy*gy)
			f.Dir[i] = math.Atan2(gy, gx)
		}
	}
	return f
}

// angularDiff wraps the difference between two directions into [0, pi].
func angularDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
