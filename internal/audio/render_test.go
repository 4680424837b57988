package audio

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/shapesynth/synthd/internal/synth"
)

const testRate = 8000

func testSession(events []synth.Event, dur float64) *synth.Session {
	tail := dur
	for _, ev := range events {
		if end := ev.End(); end > tail {
			tail = end
		}
	}
	return &synth.Session{
		Events:       events,
		Duration:     dur,
		TailDuration: tail,
		MasterVolume: 1.0,
		Seed:         99,
	}
}

// richSession exercises every synthesis path: plain tone, FM pair,
// filtered noise burst, glide, vibrato, and a noise-blended tone.
func richSession() *synth.Session {
	return testSession([]synth.Event{
		{
			Kind: synth.KindTone, Start: 0, Duration: 0.4, Freq: 220,
			Wave: synth.Sawtooth, Level: 0.3,
			Envelope: []synth.Ramp{{At: 0, Level: 0}, {At: 0.05, Level: 1}, {At: 0.4, Level: 0.0001, Exp: true}},
			Filter:   synth.FilterLowPass, Cutoff: 1200, Q: 1.2, Noise: 0.2,
		},
		{
			Kind: synth.KindFM, Start: 0.1, Duration: 0.3, Freq: 330,
			Level: 0.25, FMRatio: 2, FMIndex: 3,
			Envelope: []synth.Ramp{{At: 0, Level: 0}, {At: 0.02, Level: 1}, {At: 0.3, Level: 0.0001, Exp: true}},
		},
		{
			Kind: synth.KindNoise, Start: 0.2, Duration: 0.1, Level: 0.2,
			Envelope: []synth.Ramp{{At: 0, Level: 0}, {At: 0.005, Level: 1}, {At: 0.1, Level: 0.0001, Exp: true}},
			Filter:   synth.FilterHighPass, Cutoff: 2000, Q: 0.7,
		},
		{
			Kind: synth.KindTone, Start: 0.3, Duration: 0.3, Freq: 200,
			Wave: synth.Sine, Level: 0.3,
			Glide:   &synth.Glide{Target: 400, StartAt: 0.1, Span: 0.2},
			Vibrato: &synth.Vibrato{RateHz: 6, DepthHz: 8, Onset: 0.05},
		},
	}, 0.6)
}

func renderBytes(t *testing.T, s *synth.Session, channels, chunk int) []byte {
	t.Helper()
	r, err := NewRenderer(s, testRate, channels)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	var out bytes.Buffer
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	return out.Bytes()
}

func decodeSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return out
}

func TestNewRendererValidation(t *testing.T) {
	s := testSession(nil, 1)

	if _, err := NewRenderer(nil, testRate, 1); err == nil {
		t.Error("Expected error for nil session")
	}
	if _, err := NewRenderer(s, 0, 1); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewRenderer(s, testRate, 3); err == nil {
		t.Error("Expected error for unsupported channel count")
	}
}

func TestRendererProducesEnergy(t *testing.T) {
	s := testSession([]synth.Event{{
		Kind: synth.KindTone, Start: 0, Duration: 0.5, Freq: 440,
		Wave: synth.Sine, Level: 0.5,
	}}, 0.5)

	samples := decodeSamples(renderBytes(t, s, 1, 4096))
	if len(samples) != int(0.5*testRate) {
		t.Fatalf("Expected %d samples, got %d", int(0.5*testRate), len(samples))
	}

	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms < 5000 {
		t.Errorf("Expected audible signal, got RMS %f", rms)
	}
}

func TestRendererChunkSizeInvariant(t *testing.T) {
	s := richSession()

	small := renderBytes(t, s, 2, 7) // odd size forces frame splits
	large := renderBytes(t, richSession(), 2, 8192)

	if len(small) == 0 {
		t.Fatal("No output produced")
	}
	if !bytes.Equal(small, large) {
		t.Error("Expected identical output regardless of read chunk size")
	}
}

func TestRenderAllMatchesStream(t *testing.T) {
	streamed := decodeSamples(renderBytes(t, richSession(), 1, 1024))

	r, err := NewRenderer(richSession(), testRate, 1)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	buf := r.RenderAll()

	if len(buf.Data) != len(streamed) {
		t.Fatalf("Expected %d samples, got %d", len(streamed), len(buf.Data))
	}
	for i := range streamed {
		if int(streamed[i]) != buf.Data[i] {
			t.Fatalf("Sample %d differs: stream %d, offline %d", i, streamed[i], buf.Data[i])
		}
	}
	if buf.SourceBitDepth != 16 {
		t.Errorf("Expected 16-bit source depth, got %d", buf.SourceBitDepth)
	}
	if buf.Format.SampleRate != testRate || buf.Format.NumChannels != 1 {
		t.Errorf("Unexpected format: %+v", buf.Format)
	}
}

func TestRendererSilenceBeforeFirstEvent(t *testing.T) {
	s := testSession([]synth.Event{{
		Kind: synth.KindTone, Start: 0.25, Duration: 0.1, Freq: 440,
		Wave: synth.Sine, Level: 0.8,
	}}, 0.4)

	samples := decodeSamples(renderBytes(t, s, 1, 4096))
	quiet := int(0.2 * testRate)
	for i := 0; i < quiet; i++ {
		if samples[i] != 0 {
			t.Fatalf("Expected silence before the first event, got %d at sample %d", samples[i], i)
		}
	}

	var active bool
	for _, v := range samples[int(0.25*testRate):] {
		if v != 0 {
			active = true
			break
		}
	}
	if !active {
		t.Error("Expected the event to produce samples after its start")
	}
}

func TestRendererStereoDuplicatesMono(t *testing.T) {
	samples := decodeSamples(renderBytes(t, richSession(), 2, 4096))
	if len(samples)%2 != 0 {
		t.Fatalf("Odd sample count %d for stereo output", len(samples))
	}
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("Frame %d: channels differ (%d vs %d)", i/2, samples[i], samples[i+1])
		}
	}
}

func TestRendererHardClipsMix(t *testing.T) {
	s := testSession([]synth.Event{
		{Kind: synth.KindTone, Start: 0, Duration: 0.2, Freq: 100, Wave: synth.Sine, Level: 3},
		{Kind: synth.KindTone, Start: 0, Duration: 0.2, Freq: 100, Wave: synth.Sine, Level: 3},
	}, 0.2)

	samples := decodeSamples(renderBytes(t, s, 1, 4096))
	var hitTop, hitBottom bool
	for _, v := range samples {
		if v == 32767 {
			hitTop = true
		}
		if v == -32767 {
			hitBottom = true
		}
	}
	if !hitTop || !hitBottom {
		t.Error("Expected the overdriven mix to clip at both rails")
	}
}

func TestRendererPositionAdvances(t *testing.T) {
	r, err := NewRenderer(richSession(), testRate, 1)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	if r.Position() != 0 || r.Done() {
		t.Fatal("Expected a fresh renderer at position zero")
	}

	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if !r.Done() {
		t.Error("Expected Done after draining")
	}
	if math.Abs(r.Position()-r.Duration()) > 1.0/testRate {
		t.Errorf("Expected position %f at end, got %f", r.Duration(), r.Position())
	}
}

func TestRendererGlideRaisesPitch(t *testing.T) {
	base := testSession([]synth.Event{{
		Kind: synth.KindTone, Start: 0, Duration: 0.5, Freq: 100,
		Wave: synth.Sine, Level: 0.8,
	}}, 0.5)
	gliding := testSession([]synth.Event{{
		Kind: synth.KindTone, Start: 0, Duration: 0.5, Freq: 100,
		Wave: synth.Sine, Level: 0.8,
		Glide: &synth.Glide{Target: 400, StartAt: 0, Span: 0.5},
	}}, 0.5)

	crossings := func(samples []int16) int {
		n := 0
		for i := 1; i < len(samples); i++ {
			if (samples[i-1] < 0) != (samples[i] < 0) {
				n++
			}
		}
		return n
	}

	flat := crossings(decodeSamples(renderBytes(t, base, 1, 4096)))
	swept := crossings(decodeSamples(renderBytes(t, gliding, 1, 4096)))

	// The exponential sweep from 100Hz to 400Hz averages well above
	// 100Hz, so it must cross zero noticeably more often.
	if swept <= flat+20 {
		t.Errorf("Expected the glide to raise pitch: %d crossings vs %d", swept, flat)
	}
}

func TestEnvelopeLevel(t *testing.T) {
	ramps := []synth.Ramp{
		{At: 0, Level: 0},
		{At: 0.1, Level: 1},
		{At: 0.3, Level: 0.0001, Exp: true},
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{-0.1, 0},     // before the envelope
		{0, 0},        // first ramp
		{0.05, 0.5},   // linear midpoint
		{0.1, 1},      // attack peak
		{0.2, 0.01},   // exponential midpoint: sqrt(1 * 0.0001)
		{0.3, 0.0001}, // decay floor
		{0.5, 0.0001}, // held past the last ramp
	}
	for _, tt := range tests {
		if got := envelopeLevel(ramps, tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("envelopeLevel(%f): expected %f, got %f", tt.t, tt.want, got)
		}
	}

	if got := envelopeLevel(nil, 0.5); got != 1 {
		t.Errorf("Expected unit level for empty envelope, got %f", got)
	}
}

func TestOscSampleWaveforms(t *testing.T) {
	tests := []struct {
		wave  synth.Waveform
		phase float64
		want  float64
	}{
		{synth.Sine, 0.25, 1},
		{synth.Sine, 0.75, -1},
		{synth.Square, 0.25, 1},
		{synth.Square, 0.75, -1},
		{synth.Sawtooth, 0, -1},
		{synth.Sawtooth, 0.5, 0},
		{synth.Triangle, 0, -1},
		{synth.Triangle, 0.25, 0},
		{synth.Triangle, 0.5, 1},
	}
	for _, tt := range tests {
		if got := oscSample(tt.wave, tt.phase); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("oscSample(%s, %f): expected %f, got %f", tt.wave, tt.phase, tt.want, got)
		}
	}
}

func TestBiquadFrequencyResponse(t *testing.T) {
	lp := newBiquad(synth.FilterLowPass, 500, 0.7, testRate)

	// DC passes a lowpass at unit gain.
	var dc float64
	for i := 0; i < 400; i++ {
		dc = lp.process(1)
	}
	if math.Abs(dc-1) > 0.05 {
		t.Errorf("Expected DC gain near 1, got %f", dc)
	}

	// Nyquist-rate alternation is strongly attenuated.
	lp = newBiquad(synth.FilterLowPass, 500, 0.7, testRate)
	var peak float64
	x := 1.0
	for i := 0; i < 400; i++ {
		y := lp.process(x)
		x = -x
		if i > 300 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	if peak > 0.05 {
		t.Errorf("Expected the lowpass to reject Nyquist, residual %f", peak)
	}

	// A highpass flips the relationship.
	hp := newBiquad(synth.FilterHighPass, 500, 0.7, testRate)
	var hpDC float64
	for i := 0; i < 400; i++ {
		hpDC = hp.process(1)
	}
	if math.Abs(hpDC) > 0.05 {
		t.Errorf("Expected the highpass to reject DC, residual %f", hpDC)
	}
}
