package synth

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shapesynth/synthd/internal/vision"
)

// ErrNoSegments indicates an analysis record without segment data, which
// is a programming error on the caller's side, caught before any audio
// resource is touched.
var ErrNoSegments = errors.New("analysis has no segment data")

const (
	minDuration = 1.0
	maxDuration = 120.0
	// Tones carry a blended noise layer only past this texture level.
	noiseGate = 0.05
)

// Options configures one scheduled session. Duration and MasterVolume
// are clamped, not rejected. A zero Seed derives one from the clock;
// callers wanting bit-reproducible noise pass their own.
type Options struct {
	Engine       Engine
	Duration     float64
	MasterVolume float64
	Seed         int64
	Source       string // image name, carried for status display
}

// Schedule builds the complete event timeline for an analysis. The
// builder walks a fixed phase order (bass, melody, percussion, pad); each
// phase may emit zero events for a given character. The result is
// deterministic for equal inputs.
func Schedule(a *vision.Analysis, opts Options) (*Session, error) {
	if a == nil || len(a.Segments) == 0 {
		return nil, ErrNoSegments
	}

	dur := clampRange(opts.Duration, minDuration, maxDuration)
	vol := clamp01(opts.MasterVolume)
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p := NewMapper(opts.Engine).Map(a)

	b := &builder{a: a, p: p, dur: dur}
	b.run()

	sort.SliceStable(b.events, func(i, j int) bool {
		return b.events[i].Start < b.events[j].Start
	})

	tail := dur
	for i := range b.events {
		if end := b.events[i].End(); end > tail {
			tail = end
		}
	}

	return &Session{
		Events:       b.events,
		Duration:     dur,
		TailDuration: tail,
		MasterVolume: vol,
		Character:    p.Character,
		Engine:       opts.Engine,
		Seed:         seed,
		Tempo:        p.Tempo,
		Source:       opts.Source,
	}, nil
}

// buildPhase tracks the builder through its fixed phase order.
type buildPhase int

const (
	phaseIdle buildPhase = iota
	phaseBass
	phaseMelody
	phasePercussion
	phasePad
	phaseComplete
)

type builder struct {
	a      *vision.Analysis
	p      Params
	dur    float64
	phase  buildPhase
	events []Event
}

func (b *builder) run() {
	for b.phase != phaseComplete {
		b.advance()
	}
}

func (b *builder) advance() {
	b.phase++
	switch b.phase {
	case phaseBass:
		b.buildBass()
	case phaseMelody:
		b.buildMelody()
	case phasePercussion:
		b.buildPercussion()
	case phasePad:
		b.buildPad()
	}
}

// buildBass lays the low end: a driving per-beat line for kiki, a single
// sustained drone for bouba.
func (b *builder) buildBass() {
	p := b.p
	if p.Character == CharacterKiki {
		beat := p.BeatLength()
		steps := int(b.dur / beat)
		noteDur := beat * 0.9
		for i := 0; i < steps; i++ {
			freq := p.BassFreq
			if i%2 == 1 {
				freq = p.BassFreq * 1.5
			}
			b.events = append(b.events, Event{
				Kind:     KindTone,
				Start:    float64(i) * beat,
				Duration: noteDur,
				Freq:     freq,
				Wave:     p.Wave,
				Level:    p.BassLevel,
				Envelope: adEnvelope(p.Attack, p.Decay, noteDur),
				Filter:   FilterLowPass,
				Cutoff:   math.Max(200, p.Cutoff*0.5),
				Q:        p.Q,
				Noise:    b.noiseLayer(),
				Tag:      "bass",
			})
		}
		return
	}

	if p.DroneLevel <= 0 {
		return
	}
	b.events = append(b.events, Event{
		Kind:     KindTone,
		Start:    0,
		Duration: b.dur,
		Freq:     p.BassFreq,
		Wave:     p.Wave,
		Level:    p.DroneLevel,
		Envelope: padEnvelope(p.Attack*2, p.Decay, b.dur),
		Filter:   FilterLowPass,
		Cutoff:   p.Cutoff * 0.8,
		Q:        p.Q,
		Noise:    b.noiseLayer(),
		Tag:      "drone",
	})
}

// buildMelody walks the segments cyclically, one tone per note slot.
// Bouba tones glide toward the next segment's pitch and carry vibrato;
// kiki tones stay put and bite. Segment angularity accents the level.
func (b *builder) buildMelody() {
	p := b.p
	segs := b.a.Segments
	count := int(b.dur / p.NoteSpacing)

	noteDur := p.NoteSpacing * 0.9
	if p.Character == CharacterBouba {
		noteDur = p.NoteSpacing * 1.1
	}

	for i := 0; i < count; i++ {
		seg := segs[i%len(segs)]
		degree := DegreeForBrightness(seg.Brightness)
		freq := DegreeFrequency(p.BaseFreq, degree)

		ev := Event{
			Kind:     KindTone,
			Start:    float64(i) * p.NoteSpacing,
			Duration: noteDur,
			Freq:     freq,
			Wave:     p.Wave,
			Level:    p.MelodyLevel * (0.75 + 0.25*seg.Angularity),
			Envelope: adEnvelope(p.Attack, p.Decay, noteDur),
			Filter:   FilterLowPass,
			Cutoff:   p.Cutoff,
			Q:        p.Q,
			Noise:    b.noiseLayer(),
			Tag:      "melody",
		}
		if p.UseFM {
			ev.Kind = KindFM
			ev.FMRatio = p.FMRatio
			ev.FMIndex = p.FMIndex
		}
		if p.Character == CharacterBouba {
			next := segs[(i+1)%len(segs)]
			target := DegreeFrequency(p.BaseFreq, DegreeForBrightness(next.Brightness))
			if p.GlideSpan > 0 && target != freq {
				ev.Glide = &Glide{
					Target:  target,
					StartAt: noteDur * (1 - p.GlideSpan),
					Span:    noteDur * p.GlideSpan,
				}
			}
			if p.VibratoDepth > 0 {
				ev.Vibrato = &Vibrato{
					RateHz:  p.VibratoRate,
					DepthHz: p.VibratoDepth,
					Onset:   p.Attack * 0.8,
				}
			}
		}
		b.events = append(b.events, ev)
	}
}

// buildPercussion adds kick and hi-hat for kiki sessions. Kicks are
// pitch-dropping sine tones on the beat; hi-hats are high-passed noise
// bursts on the offbeat.
func (b *builder) buildPercussion() {
	p := b.p
	if p.Character != CharacterKiki {
		return
	}
	beat := p.BeatLength()
	steps := int(b.dur / beat)

	if p.KickPresent {
		kickDur := math.Min(0.22, beat*0.95)
		for i := 0; i < steps; i++ {
			b.events = append(b.events, Event{
				Kind:     KindTone,
				Start:    float64(i) * beat,
				Duration: kickDur,
				Freq:     150,
				Wave:     Sine,
				Level:    p.KickLevel,
				Envelope: adEnvelope(0.003, kickDur*0.9, kickDur),
				Glide:    &Glide{Target: 50, StartAt: 0, Span: kickDur * 0.5},
				Tag:      "kick",
			})
		}
	}

	if p.HihatPresent {
		hatDur := math.Min(0.08, beat*0.45)
		for i := 0; i < steps; i++ {
			start := (float64(i) + 0.5) * beat
			if start >= b.dur {
				break
			}
			b.events = append(b.events, Event{
				Kind:     KindNoise,
				Start:    start,
				Duration: hatDur,
				Level:    p.HihatLevel,
				Envelope: adEnvelope(0.002, hatDur*0.9, hatDur),
				Filter:   FilterHighPass,
				Cutoff:   7000,
				Q:        0.7,
				Tag:      "hihat",
			})
		}
	}
}

// buildPad stacks slow chords for bouba sessions: four overlapping spans
// across the duration, each voiced from the scale around the segment the
// span lands on.
func (b *builder) buildPad() {
	p := b.p
	if p.Character != CharacterBouba || p.ChordSize <= 0 || p.PadLevel <= 0 {
		return
	}
	segs := b.a.Segments
	spanLen := b.dur / 4 * 1.5

	for k := 0; k < 4; k++ {
		start := b.dur / 4 * float64(k)
		seg := segs[(k*4)%len(segs)]
		root := DegreeForBrightness(seg.Brightness)
		for v := 0; v < p.ChordSize; v++ {
			freq := DegreeFrequency(p.BaseFreq/2, root+v*2)
			b.events = append(b.events, Event{
				Kind:     KindTone,
				Start:    start,
				Duration: spanLen,
				Freq:     freq,
				Wave:     p.Wave,
				Level:    p.PadLevel,
				Envelope: padEnvelope(p.Attack*1.5, p.Decay*1.5, spanLen),
				Filter:   FilterLowPass,
				Cutoff:   p.Cutoff,
				Q:        p.Q,
				Tag:      "pad",
			})
		}
	}
}

func (b *builder) noiseLayer() float64 {
	if b.p.NoiseAmount > noiseGate {
		return b.p.NoiseAmount
	}
	return 0
}

// adEnvelope builds the percussive rise-and-fall shape: linear attack to
// full level, exponential decay toward silence, flat floor until the
// event closes. Attack and decay are each capped at half the duration so
// the pair can never exceed it.
func adEnvelope(attack, decay, dur float64) []Ramp {
	a := math.Min(attack, dur*0.5)
	d := math.Min(decay, dur*0.5)
	return []Ramp{
		{At: 0, Level: 0},
		{At: a, Level: 1},
		{At: a + d, Level: 0.0001, Exp: true},
	}
}

// padEnvelope builds the sustained shape: linear attack, a long gentle
// droop, then an exponential release that closes exactly at the duration.
// The same half-duration caps apply.
func padEnvelope(attack, release, dur float64) []Ramp {
	a := math.Min(attack, dur*0.5)
	r := math.Min(release, dur*0.5)
	ramps := []Ramp{
		{At: 0, Level: 0},
		{At: a, Level: 1},
	}
	if hold := dur - r; hold > a {
		ramps = append(ramps, Ramp{At: hold, Level: 0.8})
	}
	return append(ramps, Ramp{At: dur, Level: 0.0001, Exp: true})
}

// DescribeSession is a short human-readable summary used in logs and the
// one-shot CLI output.
func DescribeSession(s *Session) string {
	return fmt.Sprintf("%s/%s: %.0f BPM, %d events, %.1fs (+%.1fs tail)",
		s.Character, s.Engine, s.Tempo, len(s.Events), s.Duration, s.TailDuration-s.Duration)
}
