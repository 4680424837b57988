package synth

import (
	"github.com/shapesynth/synthd/internal/vision"
)

// Params is the full set of synthesis controls derived from one analysis.
// Times are seconds, frequencies Hz, levels linear gain.
type Params struct {
	Character Character
	Intensity float64

	Tempo       float64 // BPM
	NoteSpacing float64 // seconds between melody onsets

	Attack float64
	Decay  float64

	Wave   Waveform
	Cutoff float64
	Q      float64

	NoiseAmount float64

	UseFM   bool
	FMRatio float64
	FMIndex float64

	KickPresent  bool
	HihatPresent bool
	KickLevel    float64
	HihatLevel   float64

	BassLevel   float64
	MelodyLevel float64
	DroneLevel  float64
	PadLevel    float64

	VibratoRate  float64
	VibratoDepth float64
	GlideSpan    float64 // fraction of the note spent sliding
	ChordSize    int

	BaseFreq float64
	BassFreq float64
}

// BeatLength returns the beat duration in seconds.
func (p Params) BeatLength() float64 {
	return 60.0 / p.Tempo
}

// Intensity measures how far an angularity score sits from the midpoint
// toward its character's extreme: 0 at 0.5, 1 at the pole.
func Intensity(angularity float64, c Character) float64 {
	a := clamp01(angularity)
	if c == CharacterKiki {
		return clamp01((a - 0.5) / 0.5)
	}
	return clamp01((0.5 - a) / 0.5)
}

// ParamMapper derives synthesis parameters from an analysis record.
type ParamMapper interface {
	Map(a *vision.Analysis) Params
}

// NewMapper returns the mapper for an engine.
func NewMapper(e Engine) ParamMapper {
	if e == EngineLegacy {
		return legacyMapper{}
	}
	return continuousMapper{}
}

// features pulls the mapped inputs out of a record, clamped to their
// documented ranges so a hand-built record cannot push parameters out of
// audible bounds.
type features struct {
	angularity, warmth, saturation, texture float64
	rhythm, complexity                      float64
}

func clampFeatures(a *vision.Analysis) features {
	return features{
		angularity: clamp01(a.Angularity.Angularity),
		warmth:     clampRange(a.Warmth, -1, 1),
		saturation: clamp01(a.Saturation),
		texture:    clamp01(a.Texture),
		rhythm:     clamp01(a.Rhythm),
		complexity: clamp01(a.Complexity),
	}
}

// tempoFor is shared by both engines: busier brightness walks run faster.
func tempoFor(rhythm float64) float64 {
	return 60 + rhythm*240
}

// legacyMapper reproduces the original fixed parameter sets: one sound
// for each character, modulated only by warmth, rhythm and texture.
type legacyMapper struct{}

func (legacyMapper) Map(a *vision.Analysis) Params {
	f := clampFeatures(a)
	c := CharacterFor(f.angularity)

	p := Params{
		Character:   c,
		Intensity:   Intensity(f.angularity, c),
		Tempo:       tempoFor(f.rhythm),
		NoiseAmount: f.texture,
		UseFM:       f.complexity > 0.6,
	}

	if c == CharacterKiki {
		p.Wave = Sawtooth
		if f.warmth < 0 {
			p.Wave = Square
		}
		p.Cutoff = 500 + (f.warmth+1)*2000
		p.Q = 1.8 + f.saturation*0.8
		p.Attack = 0.01
		p.Decay = 0.15
		p.NoteSpacing = 0.5 * p.BeatLength()
		p.KickPresent = true
		p.HihatPresent = true
		p.KickLevel = 0.45
		p.HihatLevel = 0.22
		p.BassLevel = 0.30
		p.MelodyLevel = 0.26
		p.FMRatio = 3
		p.FMIndex = 4
		p.BaseFreq = 440
		p.BassFreq = 110
		return p
	}

	p.Wave = Sine
	if f.warmth < 0 {
		p.Wave = Triangle
	}
	p.Cutoff = 1400
	p.Q = 0.9 + f.saturation*0.4
	p.Attack = 0.6
	p.Decay = 0.9
	p.NoteSpacing = 2.0 * p.BeatLength()
	p.DroneLevel = 0.22
	p.PadLevel = 0.14
	p.MelodyLevel = 0.24
	p.VibratoRate = 5
	p.VibratoDepth = 5
	p.GlideSpan = 0.3
	p.ChordSize = 3
	p.FMRatio = 1.5
	p.FMIndex = 1.5
	p.BaseFreq = 220
	p.BassFreq = 55
	return p
}

// continuousMapper interpolates every parameter between a mild and an
// extreme anchor, keyed by intensity, so near-midpoint images differ only
// slightly from each other instead of snapping between two presets.
type continuousMapper struct{}

func (continuousMapper) Map(a *vision.Analysis) Params {
	f := clampFeatures(a)
	c := CharacterFor(f.angularity)
	i := Intensity(f.angularity, c)

	p := Params{
		Character:   c,
		Intensity:   i,
		Tempo:       tempoFor(f.rhythm),
		NoiseAmount: f.texture,
		UseFM:       f.complexity > 0.6 || i > 0.7,
	}

	if c == CharacterKiki {
		p.Wave = Sawtooth
		if f.warmth < 0 {
			p.Wave = Square
		}
		p.Attack = lerp(0.05, 0.004, i)
		p.Decay = lerp(0.30, 0.08, i)
		p.NoteSpacing = lerp(0.5, 0.25, i) * p.BeatLength()
		p.Cutoff = lerp(500+(f.warmth+1)*1500, 2500+(f.warmth+1)*2500, i)
		p.Q = lerp(1.2, 2.4, i) + f.saturation*0.6
		p.KickPresent = i > 0.3
		p.HihatPresent = i > 0.4
		p.KickLevel = lerp(0.25, 0.50, i)
		p.HihatLevel = lerp(0.12, 0.30, i)
		p.BassLevel = lerp(0.24, 0.34, i)
		p.MelodyLevel = lerp(0.22, 0.32, i)
		p.FMRatio = 3
		p.FMIndex = lerp(2, 6, i)
		p.BaseFreq = 440
		p.BassFreq = 110
		return p
	}

	p.Wave = Sine
	if f.warmth < 0 {
		p.Wave = Triangle
	}
	p.Attack = lerp(0.3, 1.1, i)
	p.Decay = lerp(0.5, 1.5, i)
	p.NoteSpacing = lerp(1.2, 2.8, i) * p.BeatLength()
	p.Cutoff = lerp(2200, 900, i)
	p.Q = lerp(1.0, 0.7, i) + f.saturation*0.3
	p.DroneLevel = lerp(0.18, 0.26, i)
	p.PadLevel = lerp(0.10, 0.16, i)
	p.MelodyLevel = lerp(0.26, 0.22, i)
	p.VibratoRate = lerp(4.5, 6.0, i)
	p.VibratoDepth = lerp(2, 9, i)
	p.GlideSpan = lerp(0.15, 0.5, i)
	p.ChordSize = 2 + int(i*2+0.5)
	p.FMRatio = 1.5
	p.FMIndex = lerp(1.0, 2.5, i)
	p.BaseFreq = 220
	p.BassFreq = 55
	return p
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
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

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
