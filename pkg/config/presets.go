package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Preset is a named configuration snapshot users can switch between.
type Preset struct {
	Name   string  `yaml:"name"`
	Config *Config `yaml:"config"`
}

// PresetStore persists presets as a YAML file next to the main config.
type PresetStore struct {
	path    string
	mu      sync.Mutex
	presets map[string]*Preset
}

// presetFile is the on-disk shape.
type presetFile struct {
	Presets []*Preset `yaml:"presets"`
}

// NewPresetStore opens the preset store at path, defaulting to
// ~/.tabpilot/presets.yaml.
func NewPresetStore(path string) (*PresetStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tabpilot", "presets.yaml")
	}

	store := &PresetStore{
		path:    path,
		presets: make(map[string]*Preset),
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load presets from %s: %w", path, err)
	}
	return store, nil
}

func (s *PresetStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var data presetFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse preset file: %w", err)
	}

	s.presets = make(map[string]*Preset, len(data.Presets))
	for _, p := range data.Presets {
		if p != nil && p.Name != "" {
			s.presets[p.Name] = p
		}
	}
	return nil
}

func (s *PresetStore) saveLocked() error {
	data := presetFile{Presets: make([]*Preset, 0, len(s.presets))}
	for _, p := range s.presets {
		data.Presets = append(data.Presets, p)
	}
	sort.Slice(data.Presets, func(i, j int) bool {
		return data.Presets[i].Name < data.Presets[j].Name
	})

	raw, err := yaml.Marshal(&data)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write temp preset file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp preset file: %w", err)
	}
	return nil
}

// Save stores a snapshot of cfg under name, replacing any existing preset
// with the same name.
func (s *PresetStore) Save(name string, cfg *Config) error {
	if name == "" {
		return fmt.Errorf("preset name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[name] = &Preset{Name: name, Config: cfg.Clone()}
	return s.saveLocked()
}

// Get returns a copy of the named preset's configuration.
func (s *PresetStore) Get(name string) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q not found", name)
	}
	return p.Config.Clone(), nil
}

// Delete removes the named preset.
func (s *PresetStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[name]; !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	delete(s.presets, name)
	return s.saveLocked()
}

// Names lists the stored preset names in sorted order.
func (s *PresetStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
