// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config represents the daemon configuration
type Config struct {
	// Audio output settings
	Audio AudioConfig `json:"audio"`

	// Render defaults applied when a request leaves a field unset
	Render RenderConfig `json:"render"`

	// Behavior settings
	Behavior BehaviorConfig `json:"behavior"`
}

// AudioConfig contains audio output settings
type AudioConfig struct {
	// SampleRate for audio output (default: 44100)
	SampleRate int `json:"sampleRate"`

	// Channels for audio output (default: 2)
	Channels int `json:"channels"`

	// BufferSize in milliseconds (default: 100)
	BufferSizeMs int `json:"bufferSizeMs"`

	// Volume level 0.0 - 1.0 (default: 0.8)
	DefaultVolume float64 `json:"defaultVolume"`
}

// RenderConfig contains defaults for generate/export requests
type RenderConfig struct {
	// DefaultDuration in seconds for a generated session
	DefaultDuration float64 `json:"defaultDuration"`

	// DefaultEngine - "legacy" or "continuous"
	DefaultEngine string `json:"defaultEngine"`

	// DefaultSampling - "brightness", "edges", "scattered" or "regions"
	DefaultSampling string `json:"defaultSampling"`

	// MaxImageDimension - images are downscaled to fit before analysis
	MaxImageDimension int `json:"maxImageDimension"`
}

// BehaviorConfig contains behavior-related settings
type BehaviorConfig struct {
	// MediaKeys - integrate with the OS media session (MPRIS on Linux)
	MediaKeys bool `json:"mediaKeys"`

	// AnalysisCacheEnabled - keep analysis records in the on-disk store
	AnalysisCacheEnabled bool `json:"analysisCacheEnabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:    44100,
			Channels:      2,
			BufferSizeMs:  100,
			DefaultVolume: 0.8,
		},
		Render: RenderConfig{
			DefaultDuration:   8.0,
			DefaultEngine:     "continuous",
			DefaultSampling:   "brightness",
			MaxImageDimension: 512,
		},
		Behavior: BehaviorConfig{
			MediaKeys:            true,
			AnalysisCacheEnabled: true,
		},
	}
}

// Manager handles loading and saving configuration. Safe for concurrent
// use: IPC handlers read and update it while the worker reads it.
type Manager struct {
	mu         sync.RWMutex
	configDir  string
	configPath string
	config     Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, creating the default file when
// none exists.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.saveLocked()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults so absent fields keep their default values.
	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update replaces the configuration and saves it
func (m *Manager) Update(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
	return m.saveLocked()
}
