// Package config provides persisted preferences for the cursor sharing
// service.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"crosscursors/internal/display"
	"crosscursors/internal/protocol"
)

// Config represents the application configuration.
type Config struct {
	// CornerEnabled toggles the hot-corner trigger.
	CornerEnabled bool `json:"corner_enabled"`

	// CornerSize is the hot-zone threshold in pixels.
	CornerSize int `json:"corner_size"`

	// CornerPosition is one of bottom-left, bottom-right, top-left, top-right.
	CornerPosition string `json:"corner_position"`

	// CornerScreen restricts the trigger to one display by name ("" = all).
	CornerScreen string `json:"corner_screen"`

	// ServerEnabled starts the event broadcaster on launch.
	ServerEnabled bool `json:"server_enabled"`

	// ServerBind is the broadcaster listen address.
	ServerBind string `json:"server_bind"`

	// ServerPort is the broadcaster TCP port.
	ServerPort int `json:"server_port"`

	// ClientHost is the broadcaster address a follower connects to.
	ClientHost string `json:"client_host"`

	// ClientPort is the broadcaster port a follower connects to.
	ClientPort int `json:"client_port"`

	// PollIntervalMs is the cursor sampling and receiver read-poll period.
	PollIntervalMs int `json:"poll_interval_ms"`

	// APIEnabled starts the local status API server.
	APIEnabled bool `json:"api_enabled"`

	// APIPort is the status API port.
	APIPort int `json:"api_port"`
}

// DefaultConfig returns a new Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CornerEnabled:  true,
		CornerSize:     60,
		CornerPosition: string(display.BottomLeft),
		CornerScreen:   "",
		ServerEnabled:  false,
		ServerBind:     "0.0.0.0",
		ServerPort:     protocol.DefaultPort,
		ClientHost:     "127.0.0.1",
		ClientPort:     protocol.DefaultPort,
		PollIntervalMs: 50,
		APIEnabled:     true,
		APIPort:        18765,
	}
}

// Manager handles loading and saving configuration.
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager backed by the user config dir.
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager backed by an explicit path.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file.
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "crosscursors")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "crosscursors")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "crosscursors")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, m.config); err != nil {
		return err
	}
	m.sanitizeLocked()
	if m.onChanged != nil {
		m.onChanged()
	}
	return nil
}

// sanitizeLocked clamps loaded values the rest of the program assumes valid.
func (m *Manager) sanitizeLocked() {
	if m.config.CornerSize < 1 {
		m.config.CornerSize = 1
	}
	if m.config.ServerPort <= 0 {
		m.config.ServerPort = protocol.DefaultPort
	}
	if m.config.ClientPort <= 0 {
		m.config.ClientPort = protocol.DefaultPort
	}
	if m.config.PollIntervalMs < 5 {
		m.config.PollIntervalMs = 5
	}
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	log.Printf("Config: saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration.
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.sanitizeLocked()
	m.mu.Unlock()
	if m.onChanged != nil {
		m.onChanged()
	}
}

// RegisterChangeCallback registers a function invoked when config changes.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
