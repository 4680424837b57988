package vision

import (
	"math"
	"testing"
)

// gray returns a buffer whose luminance at (x, y) is value(x, y), by
// setting R=G=B.
func gray(width, height int, value func(x, y int) uint8) *PixelBuffer {
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := value(x, y)
			i := (y*width + x) * 4
			pix[i] = v
			pix[i+1] = v
			pix[i+2] = v
			pix[i+3] = 255
		}
	}
	return &PixelBuffer{Width: width, Height: height, Pix: pix}
}

func uniform(width, height int, v uint8) *PixelBuffer {
	return gray(width, height, func(x, y int) uint8 { return v })
}

func checkerboard(width, height, square int) *PixelBuffer {
	return gray(width, height, func(x, y int) uint8 {
		if ((x/square)+(y/square))%2 == 0 {
			return 255
		}
		return 0
	})
}

func TestBuildEdgeFieldHorizontalGradient(t *testing.T) {
	// Luminance rises by 30 per column: gx = -30, gy = 0.
	buf := gray(5, 5, func(x, y int) uint8 { return uint8(x * 30) })
	f := BuildEdgeField(buf)

	i := 2*f.Width + 2
	if math.Abs(f.Mag[i]-30) > 1e-9 {
		t.Errorf("Expected magnitude 30, got %f", f.Mag[i])
	}
	if math.Abs(f.Dir[i]-math.Pi) > 1e-9 {
		t.Errorf("Expected direction pi, got %f", f.Dir[i])
	}
}

func TestBuildEdgeFieldVerticalGradient(t *testing.T) {
	buf := gray(5, 5, func(x, y int) uint8 { return uint8(y * 40) })
	f := BuildEdgeField(buf)

	i := 2*f.Width + 2
	if math.Abs(f.Mag[i]-40) > 1e-9 {
		t.Errorf("Expected magnitude 40, got %f", f.Mag[i])
	}
	if math.Abs(f.Dir[i]-(-math.Pi/2)) > 1e-9 {
		t.Errorf("Expected direction -pi/2, got %f", f.Dir[i])
	}
}

func TestBuildEdgeFieldBorderStaysZero(t *testing.T) {
	buf := gray(6, 6, func(x, y int) uint8 { return uint8((x + y) * 20) })
	f := BuildEdgeField(buf)

	for x := 0; x < f.Width; x++ {
		if f.Mag[x] != 0 || f.Mag[(f.Height-1)*f.Width+x] != 0 {
			t.Errorf("Expected zero magnitude on top/bottom border at x=%d", x)
		}
	}
	for y := 0; y < f.Height; y++ {
		if f.Mag[y*f.Width] != 0 || f.Mag[y*f.Width+f.Width-1] != 0 {
			t.Errorf("Expected zero magnitude on left/right border at y=%d", y)
		}
	}
}

func TestBuildEdgeFieldTooSmall(t *testing.T) {
	buf := uniform(2, 2, 128)
	f := BuildEdgeField(buf)
	for i := range f.Mag {
		if f.Mag[i] != 0 {
			t.Errorf("Expected empty field for 2x2 buffer, got magnitude at %d", i)
		}
	}
}

func TestAngularDiffWraps(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{0, math.Pi / 2, math.Pi / 2},
		{-3 * math.Pi / 4, 3 * math.Pi / 4, math.Pi / 2},
		{0, math.Pi, math.Pi},
		{-math.Pi / 8, math.Pi / 8, math.Pi / 4},
	}
	for _, tt := range tests {
		if got := angularDiff(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("angularDiff(%f, %f): expected %f, got %f", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestDownsampleBoxFilter(t *testing.T) {
	// 4x4 buffer downsampled by 2: each output pixel averages a 2x2 block.
	buf := gray(4, 4, func(x, y int) uint8 { return uint8((y*4 + x) * 10) })
	out := buf.Downsample(2)

	if out.Width != 2 || out.Height != 2 {
		t.Fatalf("Expected 2x2 output, got %dx%d", out.Width, out.Height)
	}
	// Top-left block values: 0, 10, 40, 50 -> mean 25.
	if got := out.Luminance(0, 0); math.Abs(got-25) > 1e-9 {
		t.Errorf("Expected mean 25, got %f", got)
	}
}

func TestDownsampleDropsRemainder(t *testing.T) {
	buf := uniform(5, 7, 100)
	out := buf.Downsample(2)
	if out.Width != 2 || out.Height != 3 {
		t.Errorf("Expected 2x3 output, got %dx%d", out.Width, out.Height)
	}
}
