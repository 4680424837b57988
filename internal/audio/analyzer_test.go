package audio

import (
	"math"
	"testing"
)

func sinePCM(freq float64, frames, channels int) []byte {
	out := make([]byte, 0, frames*channels*2)
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(testRate))
		s := int16(v * 20000)
		for c := 0; c < channels; c++ {
			out = append(out, byte(s), byte(s>>8))
		}
	}
	return out
}

func TestBandAnalyzerDetectsTone(t *testing.T) {
	a := NewBandAnalyzer(testRate, 2)

	if a.Ready() {
		t.Fatal("Expected a new analyzer to be not ready")
	}

	n, err := a.Write(sinePCM(440, fftSize, 2))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != fftSize*4 {
		t.Errorf("Expected full consumption of %d bytes, got %d", fftSize*4, n)
	}
	if !a.Ready() {
		t.Fatal("Expected analyzer ready after one full window")
	}

	// Feed more windows so temporal smoothing converges.
	a.Write(sinePCM(440, fftSize*3, 2))

	bands := a.Bands()
	if len(bands) != numBands {
		t.Fatalf("Expected %d bands, got %d", numBands, len(bands))
	}

	peakBand, peak := 0, uint8(0)
	for i, b := range bands {
		if b > peak {
			peakBand, peak = i, b
		}
	}
	if peak < 15 {
		t.Errorf("Expected a spectral peak for a loud tone, got max %d", peak)
	}
	// 440Hz lands just past the middle of the 20Hz..4kHz log scale.
	if peakBand < 14 || peakBand > 22 {
		t.Errorf("Expected the peak near band 18, got band %d", peakBand)
	}
}

func TestBandAnalyzerPushesToCallback(t *testing.T) {
	a := NewBandAnalyzer(testRate, 1)

	var got [][]uint8
	a.SetCallback(func(bands []uint8) {
		got = append(got, bands)
	})

	a.Write(sinePCM(440, fftSize*3, 1))
	if len(got) != 3 {
		t.Fatalf("Expected 3 band pushes for 3 windows, got %d", len(got))
	}
	for i, bands := range got {
		if len(bands) != numBands {
			t.Errorf("push %d: expected %d bands, got %d", i, numBands, len(bands))
		}
	}
}

func TestBandAnalyzerReset(t *testing.T) {
	a := NewBandAnalyzer(testRate, 1)
	a.Write(sinePCM(440, fftSize, 1))

	a.Reset()
	if a.Ready() {
		t.Error("Expected Reset to clear readiness")
	}
	for i, b := range a.Bands() {
		if b != 0 {
			t.Errorf("Expected silent bands after Reset, band %d is %d", i, b)
		}
	}
}
