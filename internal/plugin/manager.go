package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPluginNotFound is returned when no discovered plugin has the requested name.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager holds the click action plugins found under one directory.
type Manager struct {
	dir string

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for dir. Nothing is loaded until Discover.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		plugins: make(map[string]*Plugin),
	}
}

// Discover replaces the loaded plugins with the ones currently under the
// directory. Each subdirectory holding a manifest is one plugin. A missing
// directory yields no plugins; broken manifests are skipped with a warning.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.dir)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist), isNotDir(m.dir):
		entries = nil
	default:
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		p, err := loadPlugin(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("plugin", entry.Name()).Msg("Skipping plugin")
			continue
		}

		name := p.Manifest.Name
		if prev, ok := found[name]; ok {
			log.Warn().Str("plugin", name).Str("kept", prev.Path).Str("ignored", p.Path).Msg("Duplicate plugin name")
			continue
		}
		found[name] = p
		log.Debug().Str("plugin", name).Str("version", p.Manifest.Version).Strs("actions", p.Manifest.Actions).Msg("Plugin discovered")
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

func isNotDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns the plugin called name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns the discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// PluginDir returns the directory Discover scans.
func (m *Manager) PluginDir() string {
	return m.dir
}
