package vision

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	histogramBins = 64
	textureStride = 4
	// Brightness ranges narrower than this across the 16 segments are
	// left unnormalized; stretching them would amplify noise.
	normalizeEpsilon = 0.01
)

// Analysis is the immutable record produced for one image. Everything the
// synthesis layer needs lives here; it never reaches back into pixels.
type Analysis struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Global tone features.
	Brightness float64 `json:"brightness"` // mean luminance, 0..1
	Warmth     float64 `json:"warmth"`     // meanR - meanB, -1..1
	Saturation float64 `json:"saturation"` // channel mean spread, 0..1
	Texture    float64 `json:"texture"`    // fine-grain variation, 0..1

	// Derived from the segment walk.
	Rhythm     float64 `json:"rhythm"`     // mean step between segment brightnesses
	Complexity float64 `json:"complexity"` // spread of segment values, 0..1

	Angularity AngularityResult `json:"angularity"`

	Segments  []Segment      `json:"segments"` // exactly 16
	Points    []Point        `json:"points"`   // sampling coordinates, in order
	Histogram []int          `json:"histogram"`
	Method    SamplingMethod `json:"method"`
}

// Analyzer runs the full pipeline. Debug, when set, receives per-stage
// diagnostics; it is nil (silent) by default.
type Analyzer struct {
	Debug *log.Logger
	rng   *rand.Rand
}

// NewAnalyzer creates an analyzer with a time-seeded source for the one
// strategy that can need random padding.
func NewAnalyzer() *Analyzer {
	return &Analyzer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Analyze extracts the full feature record from a pixel buffer.
func (a *Analyzer) Analyze(buf *PixelBuffer, method SamplingMethod) (*Analysis, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if _, err := NewPixelBuffer(buf.Width, buf.Height, buf.Pix); err != nil {
		return nil, err
	}
	if _, err := ParseSamplingMethod(string(method)); err != nil {
		return nil, err
	}

	start := time.Now()
	rec := &Analysis{
		Width:     buf.Width,
		Height:    buf.Height,
		Method:    method,
		Histogram: make([]int, histogramBins),
	}

	// Channel means and histogram in one pass.
	var sumR, sumG, sumB, sumLum float64
	for i := 0; i < len(buf.Pix); i += 4 {
		r := float64(buf.Pix[i])
		g := float64(buf.Pix[i+1])
		b := float64(buf.Pix[i+2])
		sumR += r
		sumG += g
		sumB += b
		lum := (r + g + b) / 3.0
		sumLum += lum
		rec.Histogram[int(lum)/(256/histogramBins)]++
	}
	n := float64(buf.Width * buf.Height)
	meanR, meanG, meanB := sumR/n/255.0, sumG/n/255.0, sumB/n/255.0

	rec.Brightness = sumLum / n / 255.0
	rec.Warmth = meanR - meanB
	rec.Saturation = max(meanR, meanG, meanB) - min(meanR, meanG, meanB)
	rec.Texture = measureTexture(buf)
	a.debugf("tone: brightness=%.3f warmth=%.3f saturation=%.3f texture=%.3f",
		rec.Brightness, rec.Warmth, rec.Saturation, rec.Texture)

	rec.Angularity = ScoreAngularity(buf)
	a.debugf("angularity: %.3f (clustering=%.3f contrast=%.3f sharpness=%.3f, %d scales)",
		rec.Angularity.Angularity, rec.Angularity.Clustering,
		rec.Angularity.Contrast, rec.Angularity.Sharpness, len(rec.Angularity.Scales))

	segments, points, err := a.sample(buf, method)
	if err != nil {
		return nil, err
	}
	normalizeBrightness(segments)
	rec.Segments = segments
	rec.Points = points

	brightness := make([]float64, len(segments))
	angularity := make([]float64, len(segments))
	for i, s := range segments {
		brightness[i] = s.Brightness
		angularity[i] = s.Angularity
	}
	for i := 0; i+1 < len(brightness); i++ {
		rec.Rhythm += math.Abs(brightness[i+1] - brightness[i])
	}
	if len(brightness) > 1 {
		rec.Rhythm /= float64(len(brightness) - 1)
	}
	rec.Complexity = clamp01(3 * (stat.StdDev(brightness, nil) + stat.StdDev(angularity, nil)))

	a.debugf("segments: method=%s rhythm=%.3f complexity=%.3f (%.1fms)",
		method, rec.Rhythm, rec.Complexity, float64(time.Since(start).Microseconds())/1000.0)

	return rec, nil
}

func (a *Analyzer) debugf(format string, args ...interface{}) {
	if a.Debug != nil {
		a.Debug.Printf("[VISION] "+format, args...)
	}
}

// measureTexture averages the 8-neighbor luminance variation over a
// stride-4 interior grid.
func measureTexture(buf *PixelBuffer) float64 {
	if buf.Width < 3 || buf.Height < 3 {
		return 0
	}
	var sum float64
	var n int
	for y := 1; y < buf.Height-1; y += textureStride {
		for x := 1; x < buf.Width-1; x += textureStride {
			center := buf.Luminance(x, y)
			var local float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					local += math.Abs(buf.Luminance(x+dx, y+dy) - center)
				}
			}
			sum += local / 8.0
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n) / 30.0)
}

// normalizeBrightness rescales segment brightness to the full 0..1 range
// unless the spread is too small to be meaningful.
func normalizeBrightness(segments []Segment) {
	if len(segments) == 0 {
		return
	}
	lo, hi := segments[0].Brightness, segments[0].Brightness
	for _, s := range segments[1:] {
		if s.Brightness < lo {
			lo = s.Brightness
		}
		if s.Brightness > hi {
			hi = s.Brightness
		}
	}
	if hi-lo < normalizeEpsilon {
		return
	}
	for i := range segments {
		segments[i].Brightness = (segments[i].Brightness - lo) / (hi - lo)
	}
}
