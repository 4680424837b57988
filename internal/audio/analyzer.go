package audio

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// FFT window size. 2048 frames at 44100Hz yields around 21 spectra
	// per second, enough for a UI meter without burning a core.
	fftSize = 2048
	// Frequency bands pushed to subscribers.
	numBands = 32
	// Temporal smoothing between successive spectra.
	smoothingFactor = 0.5
)

// BandCallback receives a fresh band snapshot as soon as one is ready.
type BandCallback func(bands []uint8)

// BandAnalyzer computes a log-spaced frequency band summary of the PCM
// stream passing through it. It implements io.Writer so it can sit on a
// TeeReader between the renderer and the output device.
type BandAnalyzer struct {
	mu sync.RWMutex

	fft *fourier.FFT

	sampleBuffer []float64
	bufferIndex  int
	window       []float64

	bands         []float64
	smoothedBands []float64

	sampleRate int
	channels   int
	ready      bool

	callback BandCallback
}

// NewBandAnalyzer creates an analyzer for interleaved 16-bit PCM at the
// given rate and channel count.
func NewBandAnalyzer(sampleRate, channels int) *BandAnalyzer {
	// Hanning window
	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &BandAnalyzer{
		fft:           fourier.NewFFT(fftSize),
		sampleBuffer:  make([]float64, fftSize),
		window:        window,
		bands:         make([]float64, numBands),
		smoothedBands: make([]float64, numBands),
		sampleRate:    sampleRate,
		channels:      channels,
	}
}

// Write consumes PCM bytes, mixing channels to mono and computing a new
// spectrum each time the window fills. Always reports full consumption
// so the stream never stalls on analysis.
func (a *BandAnalyzer) Write(data []byte) (int, error) {
	var notify []uint8

	a.mu.Lock()

	frameBytes := 2 * a.channels
	for i := 0; i+frameBytes <= len(data); i += frameBytes {
		var sum float64
		for ch := 0; ch < a.channels; ch++ {
			off := i + ch*2
			sample := int16(data[off]) | int16(data[off+1])<<8
			sum += float64(sample) / 32768.0
		}
		a.sampleBuffer[a.bufferIndex] = sum / float64(a.channels)
		a.bufferIndex = (a.bufferIndex + 1) % fftSize

		if a.bufferIndex == 0 {
			a.computeSpectrum()
			a.ready = true
			if a.callback != nil {
				notify = a.snapshotLocked()
			}
		}
	}

	callback := a.callback
	a.mu.Unlock()

	// Push outside the lock so a slow subscriber cannot stall audio.
	if notify != nil && callback != nil {
		callback(notify)
	}
	return len(data), nil
}

func (a *BandAnalyzer) computeSpectrum() {
	windowed := make([]float64, fftSize)
	for i := 0; i < fftSize; i++ {
		idx := (a.bufferIndex + i) % fftSize
		windowed[i] = a.sampleBuffer[idx] * a.window[i]
	}

	coeffs := a.fft.Coefficients(nil, windowed)

	nyquist := fftSize / 2
	freqPerBin := float64(a.sampleRate) / float64(fftSize)

	for i := range a.bands {
		a.bands[i] = 0
	}

	// Log-spaced bands from 20Hz up to Nyquist give the low end, where
	// the bass and drone live, most of the resolution.
	minFreq := 20.0
	maxFreq := math.Min(20000, float64(a.sampleRate)/2)
	logMin := math.Log10(minFreq)
	logRange := math.Log10(maxFreq) - logMin

	bandCounts := make([]int, numBands)
	for bin := 1; bin < nyquist; bin++ {
		freq := float64(bin) * freqPerBin
		if freq < minFreq || freq > maxFreq {
			continue
		}

		band := int((math.Log10(freq) - logMin) / logRange * float64(numBands))
		if band >= numBands {
			band = numBands - 1
		}
		if band < 0 {
			band = 0
		}

		re := real(coeffs[bin])
		im := imag(coeffs[bin])
		magnitude := math.Sqrt(re*re + im*im)

		// Map -60dB..0dB onto 0..255.
		db := 20 * math.Log10(magnitude/float64(fftSize)+1e-10)
		normalized := (db + 60) / 60 * 255
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 255 {
			normalized = 255
		}

		a.bands[band] += normalized
		bandCounts[band]++
	}

	for i := range a.bands {
		if bandCounts[i] > 0 {
			a.bands[i] /= float64(bandCounts[i])
		}
	}

	// Bleed into neighbors to fill bands no FFT bin lands in.
	spread := make([]float64, numBands)
	for i := range a.bands {
		spread[i] = a.bands[i]
		if i > 0 {
			spread[i] += a.bands[i-1] * 0.3
		}
		if i < numBands-1 {
			spread[i] += a.bands[i+1] * 0.3
		}
		if spread[i] > 255 {
			spread[i] = 255
		}
	}

	for i := range a.smoothedBands {
		a.smoothedBands[i] = smoothingFactor*a.smoothedBands[i] + (1-smoothingFactor)*spread[i]
	}
}

func (a *BandAnalyzer) snapshotLocked() []uint8 {
	out := make([]uint8, numBands)
	for i, v := range a.smoothedBands {
		if v > 255 {
			out[i] = 255
		} else if v < 0 {
			out[i] = 0
		} else {
			out[i] = uint8(v)
		}
	}
	return out
}

// Bands returns the latest smoothed band values, 0-255 each.
func (a *BandAnalyzer) Bands() []uint8 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

// SetCallback registers a push target for new spectra. Pass nil to
// unsubscribe.
func (a *BandAnalyzer) SetCallback(cb BandCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callback = cb
}

// Ready reports whether at least one full window has been analyzed.
func (a *BandAnalyzer) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// Reset clears all accumulated state between performances.
func (a *BandAnalyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bufferIndex = 0
	a.ready = false
	for i := range a.sampleBuffer {
		a.sampleBuffer[i] = 0
	}
	for i := range a.bands {
		a.bands[i] = 0
	}
	for i := range a.smoothedBands {
		a.smoothedBands[i] = 0
	}
}
