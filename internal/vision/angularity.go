package vision

import "math"

// Tuning constants for the angularity scorer. The magnitude threshold and
// evidence minimum decide which gradients count as edges at all; scores
// computed from too little evidence collapse to the neutral 0.5 so that
// near-empty images land in the middle of the bouba/kiki axis instead of
// at an extreme.
const (
	edgeThreshold   = 15.0
	minEvidence     = 30
	directionBins   = 8
	neutralScore    = 0.5
	sharpAngle      = math.Pi / 4
	smallImageEdge  = 100
	downsampleMed   = 2
	downsampleCoars = 4
)

// Per-scale blend weights. Clustering and sharpness lean on the coarse
// scale where macro structure lives; contrast is dominated by the native
// scale where gradient magnitudes are not yet averaged away.
var (
	structureWeights = [3]float64{0.20, 0.35, 0.45}
	contrastWeights  = [3]float64{0.80, 0.15, 0.05}
)

// ScaleMetrics holds the three raw sub-scores measured at one scale.
type ScaleMetrics struct {
	Scale      string  `json:"scale"`
	Clustering float64 `json:"clustering"`
	Contrast   float64 `json:"contrast"`
	Sharpness  float64 `json:"sharpness"`
	EdgeCount  int     `json:"edgeCount"`
}

// AngularityResult is the scorer output: the final blended angularity in
// [0, 1] (0 = maximally round, 1 = maximally angular), the blended
// sub-scores, and the per-scale raw metrics for diagnostics.
type AngularityResult struct {
	Angularity float64        `json:"angularity"`
	Clustering float64        `json:"clustering"`
	Contrast   float64        `json:"contrast"`
	Sharpness  float64        `json:"sharpness"`
	Scales     []ScaleMetrics `json:"scales"`
}

// ScoreAngularity measures how angular the image reads, blending edge
// direction clustering, edge contrast and direction-change sharpness
// across three scales. Images with min(width, height) below 100 are
// scored at the native scale only. The computation is deterministic.
func ScoreAngularity(buf *PixelBuffer) AngularityResult {
	if min(buf.Width, buf.Height) < smallImageEdge {
		m := measureScale(BuildEdgeField(buf), "fine")
		return AngularityResult{
			Angularity: clamp01(0.30*m.Clustering + 0.35*m.Contrast + 0.35*m.Sharpness),
			Clustering: m.Clustering,
			Contrast:   m.Contrast,
			Sharpness:  m.Sharpness,
			Scales:     []ScaleMetrics{m},
		}
	}

	scales := []ScaleMetrics{
		measureScale(BuildEdgeField(buf), "fine"),
		measureScale(BuildEdgeField(buf.Downsample(downsampleMed)), "medium"),
		measureScale(BuildEdgeField(buf.Downsample(downsampleCoars)), "coarse"),
	}

	var clustering, contrast, sharpness float64
	for i, m := range scales {
		clustering += structureWeights[i] * m.Clustering
		sharpness += structureWeights[i] * m.Sharpness
		contrast += contrastWeights[i] * m.Contrast
	}

	return AngularityResult{
		Angularity: combineScores(clustering, contrast, sharpness),
		Clustering: clustering,
		Contrast:   contrast,
		Sharpness:  sharpness,
		Scales:     scales,
	}
}

// combineScores blends the three sub-scores into the final angularity.
// Contrast carries half the weight; it is the most reliable signal across
// image types.
func combineScores(clustering, contrast, sharpness float64) float64 {
	return clamp01(0.25*clustering + 0.50*contrast + 0.25*sharpness)
}

// measureScale computes the three sub-scores over one edge field.
func measureScale(f *EdgeField, name string) ScaleMetrics {
	m := ScaleMetrics{Scale: name}

	var bins [directionBins]int
	var count int
	var magSum float64
	binWidth := 2 * math.Pi / directionBins

	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < f.Width-1; x++ {
			i := y*f.Width + x
			if f.Mag[i] <= edgeThreshold {
				continue
			}
			count++
			magSum += f.Mag[i]
			d := f.Dir[i]
			if d < 0 {
				d += 2 * math.Pi
			}
			b := int(d / binWidth)
			if b >= directionBins {
				b = directionBins - 1
			}
			bins[b]++
		}
	}
	m.EdgeCount = count

	if count < minEvidence {
		m.Clustering = neutralScore
		m.Contrast = neutralScore
	} else {
		top1, top2 := 0, 0
		for _, n := range bins {
			if n > top1 {
				top1, top2 = n, top1
			} else if n > top2 {
				top2 = n
			}
		}
		ratio := float64(top1+top2) / float64(count)
		m.Clustering = clamp01((ratio - 0.25) / 0.75)
		m.Contrast = clamp01((magSum/float64(count) - 20) / 60)
	}

	m.Sharpness = measureSharpness(f)
	return m
}

// measureSharpness counts, over 4-connected pairs of super-threshold
// interior pixels, how often the edge direction turns by more than pi/4.
// Each unordered pair is visited once via its right and down neighbors.
func measureSharpness(f *EdgeField) float64 {
	var compared, sharp int
	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < f.Width-1; x++ {
			i := y*f.Width + x
			if f.Mag[i] <= edgeThreshold {
				continue
			}
			if x+1 < f.Width-1 && f.Mag[i+1] > edgeThreshold {
				compared++
				if angularDiff(f.Dir[i], f.Dir[i+1]) > sharpAngle {
					sharp++
				}
			}
			if y+1 < f.Height-1 && f.Mag[i+f.Width] > edgeThreshold {
				compared++
				if angularDiff(f.Dir[i], f.Dir[i+f.Width]) > sharpAngle {
					sharp++
				}
			}
		}
	}
	if compared < minEvidence {
		return neutralScore
	}
	return clamp01(float64(sharp) / float64(compared) / 0.35)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
