// Package queue manages the pending-render queue: sonification requests
// waiting for the current performance to finish.
package queue

import (
	"errors"
	"sync"
)

// ErrEmpty indicates there is no pending request to advance to.
var ErrEmpty = errors.New("queue is empty")

// RenderRequest describes one pending sonification. Zero-valued fields
// fall back to the configured defaults when the request is started.
type RenderRequest struct {
	Path     string  `json:"path"`
	Sampling string  `json:"sampling,omitempty"`
	Engine   string  `json:"engine,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Seed     int64   `json:"seed,omitempty"`
}

// ChangeCallback is called when the queue contents change
type ChangeCallback func()

// Manager is a strictly FIFO queue of render requests. Sessions cannot
// overlap, so the performer's completion callback drains it one request
// at a time; there is no index, no shuffle and no repeat.
type Manager struct {
	mu       sync.RWMutex
	items    []RenderRequest
	onChange ChangeCallback
}

// NewManager creates an empty queue
func NewManager() *Manager {
	return &Manager{items: make([]RenderRequest, 0)}
}

// SetOnChange sets a callback to be called when the queue contents change
func (m *Manager) SetOnChange(callback ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = callback
}

// notifyChange calls the onChange callback if set (must be called without lock held)
func (m *Manager) notifyChange() {
	m.mu.RLock()
	callback := m.onChange
	m.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// Add appends a request to the end of the queue
func (m *Manager) Add(req RenderRequest) {
	m.mu.Lock()
	m.items = append(m.items, req)
	m.mu.Unlock()
	m.notifyChange()
}

// Next removes and returns the front request. Returns ErrEmpty when
// nothing is pending.
func (m *Manager) Next() (RenderRequest, error) {
	m.mu.Lock()
	if len(m.items) == 0 {
		m.mu.Unlock()
		return RenderRequest{}, ErrEmpty
	}
	req := m.items[0]
	m.items = m.items[1:]
	m.mu.Unlock()
	m.notifyChange()
	return req, nil
}

// List returns a copy of the pending requests in order
func (m *Manager) List() []RenderRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]RenderRequest, len(m.items))
	copy(items, m.items)
	return items
}

// Len returns the number of pending requests
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Clear removes all pending requests
func (m *Manager) Clear() {
	m.mu.Lock()
	m.items = m.items[:0]
	m.mu.Unlock()
	m.notifyChange()
}
