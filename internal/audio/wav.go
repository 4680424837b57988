package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/shapesynth/synthd/internal/synth"
)

// RenderWAV renders a session offline and writes a 16-bit PCM WAV to w.
// The sample stream matches what the realtime path would have played at
// full volume.
func RenderWAV(s *synth.Session, sampleRate, channels int, w io.WriteSeeker) error {
	r, err := NewRenderer(s, sampleRate, channels)
	if err != nil {
		return err
	}
	buf := r.RenderAll()

	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// RenderWAVFile renders a session to the named file, creating or
// truncating it.
func RenderWAVFile(s *synth.Session, sampleRate, channels int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := RenderWAV(s, sampleRate, channels, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
