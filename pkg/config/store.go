package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the configuration as a JSON file, written atomically
// via temp file and rename.
type FileStore struct {
	path    string
	mu      sync.RWMutex
	cfg     *Config
	version string
}

// configFile is the on-disk shape.
type configFile struct {
	Version string  `json:"version"`
	Config  *Config `json:"config"`
}

// NewFileStore opens the configuration store at path, defaulting to
// ~/.tabpilot/config.json. A missing file yields the default configuration.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tabpilot", "config.json")
	}

	store := &FileStore{
		path:    path,
		cfg:     Default(),
		version: "1.0",
	}

	if err := store.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return store, nil
}

// Load reads the configuration from disk, replacing in-memory state. Fields
// absent from the file keep their defaults.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cfg = Default()
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data := configFile{Config: Default()}
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	if data.Version != "" {
		s.version = data.Version
	}
	if data.Config != nil {
		s.cfg = data.Config
	}
	if s.cfg.EnabledTools == nil {
		s.cfg.EnabledTools = map[string]bool{}
	}
	return nil
}

// Save writes the configuration to disk atomically.
func (s *FileStore) Save() error {
	s.mu.RLock()
	data := configFile{Version: s.version, Config: s.cfg.Clone()}
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (s *FileStore) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Update applies fn to the configuration under the write lock. The change is
// in-memory only until Save is called.
func (s *FileStore) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}
