package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

// ErrDeviceUnavailable wraps failures to reach the system audio device.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Device owns the process-wide Oto context. Oto allows one context per
// process, so the context is created on first use and kept; players come
// and go per performance.
type Device struct {
	mu       sync.Mutex
	ctx      *oto.Context
	rate     int
	channels int
}

// NewDevice describes the output format without touching the hardware.
// The device is opened lazily on the first Open call.
func NewDevice(sampleRate, channels int) *Device {
	return &Device{rate: sampleRate, channels: channels}
}

// SampleRate returns the device sample rate.
func (d *Device) SampleRate() int { return d.rate }

// Channels returns the device channel count.
func (d *Device) Channels() int { return d.channels }

// Open creates a player pulling PCM from src. The first call initializes
// the audio backend and waits for it to become ready.
func (d *Device) Open(src io.Reader) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		ctx, ready, err := oto.NewContext(d.rate, d.channels, 2)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		<-ready
		d.ctx = ctx
	}

	return &Stream{player: d.ctx.NewPlayer(src)}, nil
}

// Stream is one playing voice on the device. Closing it releases the
// player; the context stays for the next performance.
type Stream struct {
	mu     sync.Mutex
	player oto.Player
	closed bool
}

// Play starts or resumes pulling from the source.
func (s *Stream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.player.IsPlaying() {
		return
	}
	s.player.Play()
}

// Pause halts pulling without releasing the player.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.player.IsPlaying() {
		return
	}
	s.player.Pause()
}

// IsPlaying reports whether the stream is actively pulling audio.
func (s *Stream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.player.IsPlaying()
}

// Close stops and releases the player. Safe to call twice.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.player.Close()
}

// volumeReader scales 16-bit PCM passing through it. Sits last in the
// chain so the band analyzer sees pre-volume samples and meters stay
// steady while the user rides the volume.
type volumeReader struct {
	src io.Reader

	mu     sync.Mutex
	volume float64
}

func newVolumeReader(src io.Reader, volume float64) *volumeReader {
	v := &volumeReader{src: src}
	v.setVolume(volume)
	return v
}

func (v *volumeReader) Read(p []byte) (int, error) {
	n, err := v.src.Read(p)
	if n > 0 {
		v.mu.Lock()
		vol := v.volume
		v.mu.Unlock()
		applyVolume(p[:n], vol)
	}
	return n, err
}

func (v *volumeReader) setVolume(vol float64) {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	v.mu.Lock()
	v.volume = vol
	v.mu.Unlock()
}

func (v *volumeReader) getVolume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

// applyVolume scales 16-bit little-endian PCM samples in place.
func applyVolume(data []byte, vol float64) {
	if vol >= 1.0 {
		return
	}

	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}
