package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// analysisVersion is bumped whenever the pipeline changes in a way that
// invalidates stored records.
const analysisVersion = 2

// StoredAnalysis wraps a record with the freshness data used to decide
// whether the source image has changed underneath it.
type StoredAnalysis struct {
	Analysis   *Analysis `json:"analysis"`
	Version    int       `json:"version"`
	AnalyzedAt int64     `json:"analyzedAt"`
	ModTime    int64     `json:"modTime"`
	Size       int64     `json:"size"`
}

// Store is a JSON-file-backed cache of image analyses keyed by path and
// sampling method, held in memory behind an RWMutex. It exists so that
// generating audio from an already-analyzed image skips the pixel pass.
type Store struct {
	mu       sync.RWMutex
	dataPath string
	entries  map[string]*StoredAnalysis
	dirty    bool
}

// NewStore loads any existing cache from dataDir.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		dataPath: filepath.Join(dataDir, "image_analysis.json"),
		entries:  make(map[string]*StoredAnalysis),
	}
	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load analysis store: %w", err)
		}
	}
	return s, nil
}

func storeKey(path string, method SamplingMethod) string {
	return path + "|" + string(method)
}

// Get returns the cached record for path, or nil when absent, stale
// (mtime or size changed) or written by an older pipeline version.
func (s *Store) Get(path string, modTime, size int64, method SamplingMethod) *Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[storeKey(path, method)]
	if !ok || e.Version != analysisVersion || e.ModTime != modTime || e.Size != size {
		return nil
	}
	return e.Analysis
}

// Put stores a record.
func (s *Store) Put(path string, modTime, size int64, a *Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[storeKey(path, a.Method)] = &StoredAnalysis{
		Analysis:   a,
		Version:    analysisVersion,
		AnalyzedAt: time.Now().Unix(),
		ModTime:    modTime,
		Size:       size,
	}
	s.dirty = true
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush writes the cache to disk when it has changed since the last write.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis store: %w", err)
	}
	if err := os.WriteFile(s.dataPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write analysis store: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.dataPath)
	if err != nil {
		return err
	}
	entries := make(map[string]*StoredAnalysis)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse analysis store: %w", err)
	}
	// Drop records from older pipeline versions at load time.
	for k, e := range entries {
		if e.Version != analysisVersion || e.Analysis == nil {
			delete(entries, k)
		}
	}
	s.entries = entries
	return nil
}
