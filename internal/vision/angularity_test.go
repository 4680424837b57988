package vision

import (
	"math"
	"testing"
)

func TestUniformImageScoresNeutral(t *testing.T) {
	res := ScoreAngularity(uniform(200, 200, 255))

	if math.Abs(res.Angularity-0.5) > 1e-9 {
		t.Errorf("Expected neutral angularity 0.5, got %f", res.Angularity)
	}
	if res.Clustering != 0.5 || res.Contrast != 0.5 || res.Sharpness != 0.5 {
		t.Errorf("Expected neutral sub-scores, got clustering=%f contrast=%f sharpness=%f",
			res.Clustering, res.Contrast, res.Sharpness)
	}
	if len(res.Scales) != 3 {
		t.Errorf("Expected 3 scales for a 200x200 image, got %d", len(res.Scales))
	}
	for _, m := range res.Scales {
		if m.EdgeCount != 0 {
			t.Errorf("Expected no edges at scale %s, got %d", m.Scale, m.EdgeCount)
		}
	}
}

func TestCheckerboardScoresAngular(t *testing.T) {
	res := ScoreAngularity(checkerboard(200, 200, 10))

	if res.Angularity <= 0.55 {
		t.Errorf("Expected checkerboard to score clearly angular, got %f", res.Angularity)
	}
	if res.Contrast < 0.99 {
		t.Errorf("Expected saturated edge contrast for hard 255-step edges, got %f", res.Contrast)
	}

	neutral := ScoreAngularity(uniform(200, 200, 255))
	if res.Angularity <= neutral.Angularity {
		t.Errorf("Expected checkerboard (%f) to outscore uniform (%f)",
			res.Angularity, neutral.Angularity)
	}
}

func TestSmoothGradientScoresBelowCheckerboard(t *testing.T) {
	// A soft diagonal ramp has edges but no sharp turns or strong steps.
	soft := ScoreAngularity(gray(200, 200, func(x, y int) uint8 {
		return uint8((x + y) * 255 / 398)
	}))
	hard := ScoreAngularity(checkerboard(200, 200, 10))

	if soft.Angularity >= hard.Angularity {
		t.Errorf("Expected gradient (%f) below checkerboard (%f)",
			soft.Angularity, hard.Angularity)
	}
}

func TestSmallImageUsesSingleScale(t *testing.T) {
	res := ScoreAngularity(checkerboard(80, 80, 10))

	if len(res.Scales) != 1 {
		t.Fatalf("Expected single-scale scoring below 100px, got %d scales", len(res.Scales))
	}
	if res.Scales[0].Scale != "fine" {
		t.Errorf("Expected fine scale, got %s", res.Scales[0].Scale)
	}

	m := res.Scales[0]
	want := clamp01(0.30*m.Clustering + 0.35*m.Contrast + 0.35*m.Sharpness)
	if math.Abs(res.Angularity-want) > 1e-9 {
		t.Errorf("Expected small-image weights to apply: want %f, got %f", want, res.Angularity)
	}
}

func TestCombineScoresMonotonicInContrast(t *testing.T) {
	prev := -1.0
	for c := 0.0; c <= 1.0; c += 0.1 {
		got := combineScores(0.4, c, 0.4)
		if got < prev {
			t.Errorf("Expected non-decreasing angularity as contrast grows, got %f after %f", got, prev)
		}
		prev = got
	}
}

func TestSparseEdgesFallBackToNeutral(t *testing.T) {
	// A single bright pixel yields far fewer than 30 super-threshold
	// edges; clustering and contrast must not be pinned by it.
	buf := uniform(120, 120, 0)
	i := (60*120 + 60) * 4
	buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = 255, 255, 255

	res := ScoreAngularity(buf)
	for _, m := range res.Scales {
		if m.Clustering != neutralScore || m.Contrast != neutralScore {
			t.Errorf("Expected neutral scores at scale %s with %d edges, got clustering=%f contrast=%f",
				m.Scale, m.EdgeCount, m.Clustering, m.Contrast)
		}
	}
}
