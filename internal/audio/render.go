// Package audio renders scheduled sessions to PCM and drives the system
// output device through Oto.
package audio

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"

	"github.com/shapesynth/synthd/internal/synth"
)

// voiceSeedStride spaces per-event noise seeds so neighboring events never
// share a generator stream.
const voiceSeedStride = 1_000_003

// Renderer synthesizes a session into 16-bit little-endian PCM. It
// implements io.Reader for the streaming path and RenderAll for the
// offline path; both walk the same per-frame core, so the bytes are
// identical regardless of how they are pulled.
type Renderer struct {
	session  *synth.Session
	rate     int
	channels int

	total  int // frames, session duration plus release tail
	cursor int
	next   int // next event to activate
	voices []*voice

	// carry for Read calls that split a frame
	pending []byte
	scratch [4]byte

	pos atomic.Int64 // frames rendered, readable from other goroutines
}

// NewRenderer prepares a renderer for one session. Channels must be 1 or
// 2; mono content is duplicated across channels.
func NewRenderer(s *synth.Session, sampleRate, channels int) (*Renderer, error) {
	if s == nil {
		return nil, fmt.Errorf("renderer needs a session")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	return &Renderer{
		session:  s,
		rate:     sampleRate,
		channels: channels,
		total:    int(s.TailDuration * float64(sampleRate)),
	}, nil
}

// TotalFrames returns the number of frames the renderer will produce.
func (r *Renderer) TotalFrames() int {
	return r.total
}

// Position returns seconds of audio rendered so far. Safe to call while
// another goroutine is reading.
func (r *Renderer) Position() float64 {
	return float64(r.pos.Load()) / float64(r.rate)
}

// Duration returns the full length of the output in seconds, tail
// included.
func (r *Renderer) Duration() float64 {
	return r.session.TailDuration
}

// Done reports whether every frame has been produced.
func (r *Renderer) Done() bool {
	return int(r.pos.Load()) >= r.total
}

// Read produces the next chunk of interleaved 16-bit PCM. Chunk size
// never affects the sample stream; a frame split across two calls is
// carried over byte-exact.
func (r *Renderer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	if len(r.pending) > 0 {
		c := copy(p, r.pending)
		r.pending = r.pending[c:]
		n += c
		if len(r.pending) > 0 {
			return n, nil
		}
	}

	frameBytes := r.channels * 2
	for r.cursor < r.total {
		if n == len(p) {
			return n, nil
		}
		frame := r.encodeFrame(r.renderFrame())
		c := copy(p[n:], frame)
		n += c
		if c < frameBytes {
			r.pending = append(r.pending[:0], frame[c:]...)
			return n, nil
		}
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// RenderAll produces every remaining frame as a go-audio buffer for the
// offline WAV path.
func (r *Renderer) RenderAll() *goaudio.IntBuffer {
	data := make([]int, 0, (r.total-r.cursor)*r.channels)
	for r.cursor < r.total {
		s := int(int16(r.renderFrame() * 32767))
		for c := 0; c < r.channels; c++ {
			data = append(data, s)
		}
	}
	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: r.channels,
			SampleRate:  r.rate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

func (r *Renderer) encodeFrame(v float64) []byte {
	s := int16(v * 32767)
	frame := r.scratch[:0]
	for c := 0; c < r.channels; c++ {
		frame = append(frame, byte(s), byte(s>>8))
	}
	return frame
}

// renderFrame advances the timeline by one frame: activates events whose
// start has arrived, sums every live voice, retires finished ones, and
// hard-clips the mix.
func (r *Renderer) renderFrame() float64 {
	t := float64(r.cursor) / float64(r.rate)
	events := r.session.Events
	for r.next < len(events) && events[r.next].Start <= t {
		r.voices = append(r.voices, newVoice(&events[r.next], r.next, r.session.Seed, r.rate))
		r.next++
	}

	var sum float64
	alive := r.voices[:0]
	for _, v := range r.voices {
		lt := t - v.ev.Start
		if lt >= v.ev.Duration {
			continue
		}
		sum += v.sample(lt)
		alive = append(alive, v)
	}
	r.voices = alive

	r.cursor++
	r.pos.Store(int64(r.cursor))

	sum *= r.session.MasterVolume
	if sum > 1 {
		sum = 1
	} else if sum < -1 {
		sum = -1
	}
	return sum
}

// voice is the per-event synthesis state: oscillator phases, filter
// memory, and a noise generator seeded from the session so activation
// order never changes the output.
type voice struct {
	ev   *synth.Event
	rate float64

	phase    float64 // cycles in [0, 1)
	modPhase float64
	rng      *rand.Rand

	filter    biquad
	hasFilter bool
}

func newVoice(ev *synth.Event, index int, seed int64, rate int) *voice {
	v := &voice{
		ev:   ev,
		rate: float64(rate),
		rng:  rand.New(rand.NewSource(seed + int64(index)*voiceSeedStride)),
	}
	if ev.Filter != synth.FilterNone {
		v.filter = newBiquad(ev.Filter, ev.Cutoff, ev.Q, v.rate)
		v.hasFilter = true
	}
	return v
}

// sample produces one mono sample at local time lt and advances the
// voice's phases.
func (v *voice) sample(lt float64) float64 {
	var raw float64

	switch v.ev.Kind {
	case synth.KindNoise:
		raw = v.rng.Float64()*2 - 1
	case synth.KindFM:
		freq := v.frequency(lt)
		mod := math.Sin(2 * math.Pi * v.modPhase)
		raw = math.Sin(2*math.Pi*v.phase + v.ev.FMIndex*mod)
		v.advance(freq)
	default:
		freq := v.frequency(lt)
		raw = oscSample(v.ev.Wave, v.phase)
		v.advance(freq)
	}

	if v.ev.Kind != synth.KindNoise && v.ev.Noise > 0 {
		n := v.rng.Float64()*2 - 1
		raw = raw*(1-v.ev.Noise) + n*v.ev.Noise
	}

	if v.hasFilter {
		raw = v.filter.process(raw)
	}

	return raw * v.ev.Level * envelopeLevel(v.ev.Envelope, lt)
}

func (v *voice) advance(freq float64) {
	v.phase += freq / v.rate
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}
	if v.ev.Kind == synth.KindFM {
		v.modPhase += freq * v.ev.FMRatio / v.rate
		if v.modPhase >= 1 {
			v.modPhase -= math.Floor(v.modPhase)
		}
	}
}

// frequency resolves the instantaneous pitch: the base frequency bent by
// the glide's exponential sweep and the vibrato's onset-ramped wobble.
func (v *voice) frequency(lt float64) float64 {
	f := v.ev.Freq
	if g := v.ev.Glide; g != nil && g.Span > 0 && f > 0 && g.Target > 0 && lt >= g.StartAt {
		u := (lt - g.StartAt) / g.Span
		if u > 1 {
			u = 1
		}
		f *= math.Pow(g.Target/f, u)
	}
	if vb := v.ev.Vibrato; vb != nil && vb.DepthHz > 0 {
		depth := vb.DepthHz
		if vb.Onset > 0 && lt < vb.Onset {
			depth *= lt / vb.Onset
		}
		f += depth * math.Sin(2*math.Pi*vb.RateHz*lt)
	}
	return f
}

func oscSample(w synth.Waveform, phase float64) float64 {
	switch w {
	case synth.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case synth.Sawtooth:
		return 2*phase - 1
	case synth.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// envelopeFloor keeps exponential segments away from zero, where the
// ratio curve degenerates.
const envelopeFloor = 1e-4

// envelopeLevel evaluates a ramp list at local time t. Linear segments
// interpolate directly; exponential segments follow the ratio curve
// v0*(v1/v0)^u. Past the last ramp the level holds.
func envelopeLevel(ramps []synth.Ramp, t float64) float64 {
	if len(ramps) == 0 {
		return 1
	}
	if t <= ramps[0].At {
		return ramps[0].Level
	}
	for i := 1; i < len(ramps); i++ {
		next := ramps[i]
		if t > next.At {
			continue
		}
		prev := ramps[i-1]
		span := next.At - prev.At
		if span <= 0 {
			return next.Level
		}
		u := (t - prev.At) / span
		if next.Exp {
			v0 := math.Max(prev.Level, envelopeFloor)
			v1 := math.Max(next.Level, envelopeFloor)
			return v0 * math.Pow(v1/v0, u)
		}
		return prev.Level + (next.Level-prev.Level)*u
	}
	return ramps[len(ramps)-1].Level
}

// biquad is the standard two-pole resonant filter in direct form 1.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// newBiquad computes lowpass, highpass, or bandpass coefficients for a
// fixed cutoff. Cutoff is clamped below Nyquist and Q away from zero to
// keep the recursion stable.
func newBiquad(kind synth.FilterKind, cutoff, q, rate float64) biquad {
	nyquist := rate / 2
	if cutoff > nyquist*0.99 {
		cutoff = nyquist * 0.99
	}
	if cutoff < 10 {
		cutoff = 10
	}
	if q < 0.1 {
		q = 0.1
	}

	w := 2 * math.Pi * cutoff / rate
	cosw := math.Cos(w)
	sinw := math.Sin(w)
	alpha := sinw / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case synth.FilterHighPass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case synth.FilterBandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	default: // lowpass
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	}

	return biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

var _ io.Reader = (*Renderer)(nil)
