// Package synth turns an image analysis into a schedulable audio session:
// it maps features to synthesis parameters (two engines: the fixed legacy
// sets and the continuous intensity-interpolated one) and builds the full
// timed event list that the audio renderers realize.
package synth

import "fmt"

// Waveform selects the oscillator shape of a tone event.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

// String returns the waveform name.
func (w Waveform) String() string {
	switch w {
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	default:
		return "sine"
	}
}

// EventKind discriminates the three voice types.
type EventKind int

const (
	// KindTone is a plain oscillator voice.
	KindTone EventKind = iota
	// KindNoise is a white-noise burst (hi-hats).
	KindNoise
	// KindFM is a two-operator FM pair.
	KindFM
)

// FilterKind selects the per-voice biquad mode.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterLowPass
	FilterHighPass
	FilterBandPass
)

// Ramp is one envelope breakpoint: the gain reaches Level at At seconds
// after the event starts. Exp ramps approach exponentially (with a small
// floor, since an exponential can never reach zero); others are linear.
type Ramp struct {
	At    float64 `json:"at"`
	Level float64 `json:"level"`
	Exp   bool    `json:"exp,omitempty"`
}

// Glide sweeps the voice pitch exponentially toward Target, starting
// StartAt seconds into the event and lasting Span seconds.
type Glide struct {
	Target  float64 `json:"target"`
	StartAt float64 `json:"startAt"`
	Span    float64 `json:"span"`
}

// Vibrato is a sine LFO on pitch. Depth ramps in linearly over Onset
// seconds so held notes bloom instead of wobbling from their first sample.
type Vibrato struct {
	RateHz  float64 `json:"rateHz"`
	DepthHz float64 `json:"depthHz"`
	Onset   float64 `json:"onset"`
}

// Event is one scheduled voice. Start is relative to session start; both
// renderers consume the same absolute-offset timeline.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Start    float64    `json:"start"`
	Duration float64    `json:"duration"`
	Freq     float64    `json:"freq,omitempty"`
	Wave     Waveform   `json:"wave"`
	Level    float64    `json:"level"`
	Envelope []Ramp     `json:"envelope"`
	Glide    *Glide     `json:"glide,omitempty"`
	Vibrato  *Vibrato   `json:"vibrato,omitempty"`
	FMRatio  float64    `json:"fmRatio,omitempty"`
	FMIndex  float64    `json:"fmIndex,omitempty"`
	Filter   FilterKind `json:"filter,omitempty"`
	Cutoff   float64    `json:"cutoff,omitempty"`
	Q        float64    `json:"q,omitempty"`
	Noise    float64    `json:"noise,omitempty"`
	Tag      string     `json:"tag"`
}

// End returns the moment the event's envelope closes.
func (e *Event) End() float64 {
	return e.Start + e.Duration
}

// Session is the complete scheduled performance. It is immutable once
// built; renderers never write back into it, so the realtime and offline
// paths can share one value.
type Session struct {
	Events       []Event   `json:"events"`
	Duration     float64   `json:"duration"`     // requested seconds
	TailDuration float64   `json:"tailDuration"` // includes trailing note tails
	MasterVolume float64   `json:"masterVolume"`
	Character    Character `json:"character"`
	Engine       Engine    `json:"engine"`
	Seed         int64     `json:"seed"`
	Tempo        float64   `json:"tempo"`
	Source       string    `json:"source,omitempty"`
}

// Character is the perceptual side of the bouba/kiki axis a session
// lands on.
type Character int

const (
	CharacterBouba Character = iota
	CharacterKiki
)

// String returns the character name.
func (c Character) String() string {
	if c == CharacterKiki {
		return "kiki"
	}
	return "bouba"
}

// CharacterFor classifies an angularity score. Values above the midpoint
// read as angular.
func CharacterFor(angularity float64) Character {
	if angularity > 0.5 {
		return CharacterKiki
	}
	return CharacterBouba
}

// Engine selects the parameter mapping strategy.
type Engine int

const (
	// EngineLegacy uses the original fixed parameter sets.
	EngineLegacy Engine = iota
	// EngineContinuous interpolates every parameter by intensity.
	EngineContinuous
)

// String returns the engine name.
func (e Engine) String() string {
	if e == EngineLegacy {
		return "legacy"
	}
	return "continuous"
}

// ParseEngine accepts the wire names of both engines. "v2" is the
// historical alias clients still send for the continuous engine, and
// "discrete" for the legacy one.
func ParseEngine(s string) (Engine, error) {
	switch s {
	case "legacy", "discrete":
		return EngineLegacy, nil
	case "continuous", "v2", "":
		return EngineContinuous, nil
	}
	return 0, fmt.Errorf("unknown engine %q", s)
}
