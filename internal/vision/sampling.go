package vision

import (
	"fmt"
	"math"
	"sort"
)

// SamplingMethod selects how the 16 melodic segments are drawn from the
// image.
type SamplingMethod string

const (
	// SampleBrightness walks the image brightest-point-first with a
	// minimum spacing between picks.
	SampleBrightness SamplingMethod = "brightness"
	// SampleEdges follows the strongest gradients.
	SampleEdges SamplingMethod = "edges"
	// SampleScattered uses a fixed hand-placed pattern.
	SampleScattered SamplingMethod = "scattered"
	// SampleRegions averages a 4x4 grid of cells.
	SampleRegions SamplingMethod = "regions"
)

// ParseSamplingMethod validates a method name from config or IPC.
func ParseSamplingMethod(s string) (SamplingMethod, error) {
	switch SamplingMethod(s) {
	case SampleBrightness, SampleEdges, SampleScattered, SampleRegions:
		return SamplingMethod(s), nil
	case "":
		return SampleBrightness, nil
	}
	return "", fmt.Errorf("unknown sampling method %q", s)
}

// segmentCount is fixed: every strategy yields exactly this many samples,
// and the melodic walk indexes them cyclically.
const segmentCount = 16

// Point is a sampled pixel coordinate, kept for UI overlays.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Segment is one melodic sample: normalized brightness and local
// angularity at a sampled location.
type Segment struct {
	Brightness float64 `json:"brightness"`
	Angularity float64 `json:"angularity"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
}

const (
	brightnessGridStride = 4
	brightnessMinDist    = 20.0
	edgeGridStride       = 2
)

// scatterPattern is a hand-placed spread of 16 normalized coordinates,
// loosely even with a little drift so the samples do not read as a grid.
var scatterPattern = [segmentCount][2]float64{
	{0.12, 0.10}, {0.48, 0.07}, {0.85, 0.13}, {0.25, 0.28},
	{0.65, 0.25}, {0.92, 0.35}, {0.08, 0.45}, {0.38, 0.48},
	{0.72, 0.52}, {0.18, 0.65}, {0.55, 0.68}, {0.88, 0.72},
	{0.10, 0.85}, {0.35, 0.92}, {0.62, 0.88}, {0.90, 0.93},
}

// sample dispatches to the selected strategy. Point strategies return the
// pick locations; the regions strategy returns cell centers.
func (a *Analyzer) sample(buf *PixelBuffer, method SamplingMethod) ([]Segment, []Point, error) {
	var points []Point
	switch method {
	case SampleBrightness:
		points = sampleBrightest(buf)
	case SampleEdges:
		points = a.sampleEdges(buf)
	case SampleScattered:
		points = sampleScattered(buf)
	case SampleRegions:
		return sampleRegions(buf)
	default:
		return nil, nil, fmt.Errorf("unknown sampling method %q", method)
	}

	segments := make([]Segment, len(points))
	for i, p := range points {
		segments[i] = Segment{
			Brightness: buf.Luminance(p.X, p.Y) / 255.0,
			Angularity: localAngularity(buf, p.X, p.Y),
			X:          p.X,
			Y:          p.Y,
		}
	}
	return segments, points, nil
}

// sampleBrightest picks the brightest stride-4 grid point, then repeatedly
// the brightest remaining point at least 20px from every prior pick. When
// no candidate satisfies the spacing the requirement is halved until it
// vanishes, and when the grid itself runs out picks cycle, so 16 points
// always come back.
func sampleBrightest(buf *PixelBuffer) []Point {
	type candidate struct {
		p   Point
		lum float64
	}
	var cands []candidate
	for y := 0; y < buf.Height; y += brightnessGridStride {
		for x := 0; x < buf.Width; x += brightnessGridStride {
			cands = append(cands, candidate{Point{x, y}, buf.Luminance(x, y)})
		}
	}

	picks := make([]Point, 0, segmentCount)
	used := make([]bool, len(cands))
	minDist := brightnessMinDist

	farEnough := func(p Point, d float64) bool {
		for _, q := range picks {
			dx, dy := float64(p.X-q.X), float64(p.Y-q.Y)
			if math.Sqrt(dx*dx+dy*dy) < d {
				return false
			}
		}
		return true
	}

	for len(picks) < segmentCount {
		best := -1
		for i, c := range cands {
			if used[i] {
				continue
			}
			if minDist > 0 && !farEnough(c.p, minDist) {
				continue
			}
			if best < 0 || c.lum > cands[best].lum {
				best = i
			}
		}
		if best < 0 {
			if minDist >= 1 {
				minDist /= 2
				continue
			}
			// Grid exhausted entirely; cycle from the top.
			if len(cands) == 0 {
				break
			}
			for i := range used {
				used[i] = false
			}
			minDist = 0
			continue
		}
		used[best] = true
		picks = append(picks, cands[best].p)
	}
	return picks
}

// sampleEdges ranks stride-2 points by a two-neighbor gradient energy and
// takes evenly spaced picks through the ranked list. Candidate-starved
// inputs are padded with random in-bounds points.
func (a *Analyzer) sampleEdges(buf *PixelBuffer) []Point {
	type candidate struct {
		p      Point
		energy float64
	}
	var cands []candidate
	for y := 0; y+1 < buf.Height; y += edgeGridStride {
		for x := 0; x+1 < buf.Width; x += edgeGridStride {
			c := buf.Luminance(x, y)
			e := math.Abs(buf.Luminance(x+1, y)-c) + math.Abs(buf.Luminance(x, y+1)-c)
			cands = append(cands, candidate{Point{x, y}, e})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].energy != cands[j].energy {
			return cands[i].energy > cands[j].energy
		}
		if cands[i].p.Y != cands[j].p.Y {
			return cands[i].p.Y < cands[j].p.Y
		}
		return cands[i].p.X < cands[j].p.X
	})

	picks := make([]Point, 0, segmentCount)
	if len(cands) >= segmentCount {
		for i := 0; i < segmentCount; i++ {
			picks = append(picks, cands[i*len(cands)/segmentCount].p)
		}
		return picks
	}
	for _, c := range cands {
		picks = append(picks, c.p)
	}
	for len(picks) < segmentCount {
		picks = append(picks, Point{a.rng.Intn(buf.Width), a.rng.Intn(buf.Height)})
	}
	return picks
}

// sampleScattered scales the fixed pattern to the buffer.
func sampleScattered(buf *PixelBuffer) []Point {
	picks := make([]Point, segmentCount)
	for i, n := range scatterPattern {
		picks[i] = Point{
			X: int(n[0] * float64(buf.Width-1)),
			Y: int(n[1] * float64(buf.Height-1)),
		}
	}
	return picks
}

// sampleRegions averages brightness over every pixel of each 4x4 grid
// cell and local angularity over a stride-4 grid inside it. The sample
// coordinate is the cell center.
func sampleRegions(buf *PixelBuffer) ([]Segment, []Point, error) {
	segments := make([]Segment, 0, segmentCount)
	points := make([]Point, 0, segmentCount)
	for row := 0; row < 4; row++ {
		y0 := row * buf.Height / 4
		y1 := (row + 1) * buf.Height / 4
		for col := 0; col < 4; col++ {
			x0 := col * buf.Width / 4
			x1 := (col + 1) * buf.Width / 4

			var lumSum float64
			var lumN int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					lumSum += buf.Luminance(x, y)
					lumN++
				}
			}

			var angSum float64
			var angN int
			for y := y0; y < y1; y += brightnessGridStride {
				for x := x0; x < x1; x += brightnessGridStride {
					angSum += localAngularity(buf, x, y)
					angN++
				}
			}

			center := Point{(x0 + x1) / 2, (y0 + y1) / 2}
			seg := Segment{X: center.X, Y: center.Y}
			if lumN > 0 {
				seg.Brightness = lumSum / float64(lumN) / 255.0
			}
			if angN > 0 {
				seg.Angularity = angSum / float64(angN)
			}
			segments = append(segments, seg)
			points = append(points, center)
		}
	}
	return segments, points, nil
}

// localAngularity measures brightness variation in the 5x5 neighborhood of
// (x, y): mean absolute luminance difference from the center, normalized
// by 30 and clamped. The window is clipped at the image bounds.
func localAngularity(buf *PixelBuffer, x, y int) float64 {
	center := buf.Luminance(x, y)
	var sum float64
	var n int
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= buf.Width || ny >= buf.Height {
				continue
			}
			sum += math.Abs(buf.Luminance(nx, ny) - center)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n) / 30.0)
}
