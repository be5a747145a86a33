// Package settings persists the small set of user-owned configuration the
// connectivity core reads and writes: the bootstrap node list, the
// auto-start flag and the local-discovery flag, plus the node's network
// parameters. Storage is a single YAML file with restrictive permissions.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the latest settings schema version. Bump when adding
// fields that require migration.
const CurrentVersion = 1

// Settings is the persisted configuration.
type Settings struct {
	Version        int      `yaml:"version,omitempty"`
	AutoStart      bool     `yaml:"auto_start"`
	LocalDiscovery bool     `yaml:"local_discovery"`
	BootstrapNodes []string `yaml:"bootstrap_nodes,omitempty"`
	Network        Network  `yaml:"network"`
}

// Network holds the node's network parameters.
type Network struct {
	ListenAddresses []string `yaml:"listen_addresses,omitempty"`
	RelayAddresses  []string `yaml:"relay_addresses,omitempty"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{
		Version:        CurrentVersion,
		AutoStart:      false,
		LocalDiscovery: true,
		Network: Network{
			ListenAddresses: []string{
				"/ip4/0.0.0.0/tcp/0",
				"/ip4/0.0.0.0/udp/0/quic-v1",
				"/ip6/::/tcp/0",
				"/ip6/::/udp/0/quic-v1",
			},
		},
	}
}

// File is a settings file handle. All accessors are safe for concurrent
// use; writes go through an atomic rename.
type File struct {
	path string

	mu sync.Mutex
	s  Settings
}

// Load reads the settings file at path. A missing file yields defaults (the
// first save creates it). Overly permissive file modes are rejected, the
// same way node configs are.
func Load(path string) (*File, error) {
	f := &File{path: path, s: Defaults()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := checkPermissions(path); err != nil {
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrVersionTooNew, s.Version, CurrentVersion)
	}
	if len(s.Network.ListenAddresses) == 0 {
		s.Network.ListenAddresses = Defaults().Network.ListenAddresses
	}
	f.s = s
	return f, nil
}

// Path returns the file's location on disk.
func (f *File) Path() string { return f.path }

// Settings returns a copy of the current settings.
func (f *File) Settings() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyLocked()
}

// BootstrapNodes returns a copy of the persisted bootstrap list.
func (f *File) BootstrapNodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.s.BootstrapNodes...)
}

// SaveBootstrapNodes replaces the bootstrap list and writes the file.
func (f *File) SaveBootstrapNodes(addrs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.BootstrapNodes = append([]string(nil), addrs...)
	return f.saveLocked()
}

// SetAutoStart persists the auto-start-on-launch flag.
func (f *File) SetAutoStart(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.AutoStart = v
	return f.saveLocked()
}

// SetLocalDiscovery persists the local-discovery-enabled flag.
func (f *File) SetLocalDiscovery(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.LocalDiscovery = v
	return f.saveLocked()
}

// Save writes the current settings to disk.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked()
}

func (f *File) copyLocked() Settings {
	s := f.s
	s.BootstrapNodes = append([]string(nil), f.s.BootstrapNodes...)
	s.Network.ListenAddresses = append([]string(nil), f.s.Network.ListenAddresses...)
	s.Network.RelayAddresses = append([]string(nil), f.s.Network.RelayAddresses...)
	return s
}

// saveLocked writes via a temp file and rename so readers never observe a
// partial file. Callers hold f.mu.
func (f *File) saveLocked() error {
	f.s.Version = CurrentVersion
	data, err := yaml.Marshal(&f.s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// checkPermissions rejects settings files readable by group or world.
func checkPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // access errors surface on read
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("settings file %s has overly permissive mode %04o; fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// DefaultPath returns the default settings location
// (~/.config/meshwire/settings.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "meshwire", "settings.yaml"), nil
}
