package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/shapesynth/synthd/internal/media"
	"github.com/shapesynth/synthd/internal/synth"
)

// ErrPerformanceActive is returned when a new performance is requested
// while one is already running or paused.
var ErrPerformanceActive = errors.New("a performance is already active")

// PerformanceState represents the performer's lifecycle state
type PerformanceState string

const (
	StateIdle       PerformanceState = "idle"
	StatePerforming PerformanceState = "performing"
	StatePaused     PerformanceState = "paused"
)

// Status represents the current performance status
type Status struct {
	State     PerformanceState `json:"state"`
	Source    string           `json:"source,omitempty"`
	Character string           `json:"character,omitempty"`
	Engine    string           `json:"engine,omitempty"`
	Position  float64          `json:"position"` // seconds
	Duration  float64          `json:"duration"` // seconds
	Tempo     float64          `json:"tempo,omitempty"`
	Volume    float64          `json:"volume"`
	Events    int              `json:"events,omitempty"`
}

// CompleteCallback is called when a performance finishes naturally.
// Manual stops do not trigger it.
type CompleteCallback func(s *synth.Session)

// Performer owns the realtime playback path: it wires a session renderer
// through the band analyzer and volume stage into a device stream, and
// tracks exactly one performance at a time.
type Performer struct {
	mu           sync.Mutex
	device       *Device
	mediaSession media.Session
	analyzer     *BandAnalyzer

	state    PerformanceState
	current  *synth.Session
	renderer *Renderer
	stream   *Stream
	volume   *volumeReader

	baseVolume float64

	// Incremented whenever the active performance changes so a stale
	// monitor goroutine can tell it has been superseded.
	generation uint64
	cancel     chan struct{}

	onComplete CompleteCallback
}

// NewPerformer creates a performer on the given device. The media
// session may be nil when OS integration is unavailable.
func NewPerformer(device *Device, mediaSession media.Session) *Performer {
	p := &Performer{
		device:       device,
		mediaSession: mediaSession,
		analyzer:     NewBandAnalyzer(device.SampleRate(), device.Channels()),
		state:        StateIdle,
		baseVolume:   1.0,
	}
	if mediaSession != nil {
		mediaSession.SetCommandHandler(p)
	}
	return p
}

// SetOnComplete registers the natural-completion callback.
func (p *Performer) SetOnComplete(cb CompleteCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = cb
}

// SetBandCallback registers a push target for band spectra. Pass nil to
// unsubscribe.
func (p *Performer) SetBandCallback(cb BandCallback) {
	p.analyzer.SetCallback(cb)
}

// Bands returns the latest band snapshot.
func (p *Performer) Bands() []uint8 {
	return p.analyzer.Bands()
}

// Perform starts playing a session. Fails with ErrPerformanceActive if
// one is already running; callers decide whether to queue or stop first.
func (p *Performer) Perform(s *synth.Session) error {
	p.mu.Lock()

	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrPerformanceActive
	}

	r, err := NewRenderer(s, p.device.SampleRate(), p.device.Channels())
	if err != nil {
		p.mu.Unlock()
		return err
	}

	p.analyzer.Reset()
	vol := newVolumeReader(io.TeeReader(r, p.analyzer), p.baseVolume)
	stream, err := p.device.Open(vol)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to open output stream: %w", err)
	}

	p.generation++
	gen := p.generation
	cancel := make(chan struct{})

	p.state = StatePerforming
	p.current = s
	p.renderer = r
	p.stream = stream
	p.volume = vol
	p.cancel = cancel

	p.announceLocked(s)
	p.mu.Unlock()

	stream.Play()
	log.Printf("[AUDIO] Performance started (%s): %s", s.Source, synth.DescribeSession(s))

	go p.monitor(gen, r, stream, s, cancel)
	return nil
}

// monitor watches the running performance: keeps the OS position fresh
// and detects the natural end, once the renderer is exhausted and the
// device has drained its buffer.
func (p *Performer) monitor(gen uint64, r *Renderer, stream *Stream, s *synth.Session, cancel chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	lastMediaUpdate := time.Now()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.generation != gen {
				p.mu.Unlock()
				return
			}
			performing := p.state == StatePerforming
			if performing && time.Since(lastMediaUpdate) >= 5*time.Second {
				p.updateMediaLocked(media.StatePlaying)
				lastMediaUpdate = time.Now()
			}
			p.mu.Unlock()

			if performing && r.Done() && !stream.IsPlaying() {
				p.finish(gen, s)
				return
			}
		}
	}
}

// finish closes out a naturally completed performance and fires the
// completion callback.
func (p *Performer) finish(gen uint64, s *synth.Session) {
	p.mu.Lock()
	if p.generation != gen || p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	stream := p.stream
	callback := p.onComplete
	p.clearLocked()
	p.mu.Unlock()

	if stream != nil {
		stream.Close()
	}

	log.Printf("[AUDIO] Performance finished: %s", s.Source)
	if callback != nil {
		callback(s)
	}
}

// Stop ends the current performance immediately. Idempotent; does not
// fire the completion callback.
func (p *Performer) Stop() error {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return nil
	}
	source := p.current.Source
	stream := p.stream
	cancel := p.cancel
	p.clearLocked()
	p.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	if stream != nil {
		stream.Close()
	}

	log.Printf("[AUDIO] Performance stopped: %s", source)
	return nil
}

// clearLocked resets to idle and invalidates the monitor generation.
// Caller holds the lock and closes the stream afterwards.
func (p *Performer) clearLocked() {
	p.generation++
	p.state = StateIdle
	p.current = nil
	p.renderer = nil
	p.stream = nil
	p.volume = nil
	p.cancel = nil

	if p.mediaSession != nil {
		p.mediaSession.UpdatePlaybackState(media.StateStopped, 0)
	}
}

// Pause pauses the performance (idempotent - no error if paused or idle)
func (p *Performer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePerforming {
		return nil
	}

	p.state = StatePaused
	p.stream.Pause()
	p.updateMediaLocked(media.StatePaused)

	log.Printf("[AUDIO] Paused at %.1fs", p.renderer.Position())
	return nil
}

// Resume resumes a paused performance (idempotent)
func (p *Performer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return nil
	}

	p.state = StatePerforming
	p.stream.Play()
	p.updateMediaLocked(media.StatePlaying)

	log.Printf("[AUDIO] Resumed at %.1fs", p.renderer.Position())
	return nil
}

// SetVolume sets the output volume (0.0 - 1.0). Applies to the current
// stream and becomes the default for the next one.
func (p *Performer) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return errors.New("volume must be between 0.0 and 1.0")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.baseVolume = volume
	if p.volume != nil {
		p.volume.setVolume(volume)
	}
	return nil
}

// Active reports whether a performance is running or paused. The
// analysis worker throttles itself while this is true.
func (p *Performer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != StateIdle
}

// Status returns the current performance status
func (p *Performer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		State:  p.state,
		Volume: p.baseVolume,
	}
	if p.current != nil {
		st.Source = p.current.Source
		st.Character = p.current.Character.String()
		st.Engine = p.current.Engine.String()
		st.Tempo = p.current.Tempo
		st.Events = len(p.current.Events)
		st.Position = p.renderer.Position()
		st.Duration = p.renderer.Duration()
	}
	return st
}

// Close stops any performance and detaches from the media session.
func (p *Performer) Close() error {
	return p.Stop()
}

func (p *Performer) announceLocked(s *synth.Session) {
	if p.mediaSession == nil {
		return
	}

	title := filepath.Base(s.Source)
	if title == "." || title == "/" || title == "" {
		title = "untitled"
	}

	p.mediaSession.UpdateMetadata(media.Metadata{
		Title:    title,
		Artist:   "synthd",
		Album:    s.Character.String(),
		Duration: time.Duration(s.TailDuration * float64(time.Second)),
		ArtPath:  s.Source,
	})
	p.mediaSession.UpdatePlaybackState(media.StatePlaying, 0)
}

func (p *Performer) updateMediaLocked(state media.PlaybackState) {
	if p.mediaSession == nil {
		return
	}
	var pos time.Duration
	if p.renderer != nil {
		pos = time.Duration(p.renderer.Position() * float64(time.Second))
	}
	p.mediaSession.UpdatePlaybackState(state, pos)
}

// OnCommand implements media.CommandHandler for MPRIS/OS media control
func (p *Performer) OnCommand(cmd media.Command) error {
	log.Printf("[AUDIO] Received OS media command: %s", cmd)

	switch cmd {
	case media.CmdPlay:
		return p.Resume()
	case media.CmdPause:
		return p.Pause()
	case media.CmdPlayPause:
		p.mu.Lock()
		state := p.state
		p.mu.Unlock()
		if state == StatePerforming {
			return p.Pause()
		}
		return p.Resume()
	case media.CmdStop:
		return p.Stop()
	}
	return nil
}
