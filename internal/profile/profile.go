// SPDX-License-Identifier: MIT
//
// Package profile persists named snapshots of the visual state: global
// brightness and sync plus, per device, the selected effect and every effect
// option. Each profile is one YAML file in a directory.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ledviz/internal/log"
)

const ext = ".yaml"

var (
	ErrNotFound    = errors.New("profile not found")
	ErrInvalidName = errors.New("invalid profile name")
)

var logger = log.Named("Profile")

// Profile is everything needed to restore the visual state.
type Profile struct {
	Name       string                 `yaml:"name"`
	Brightness float64                `yaml:"brightness"`
	Sync       bool                   `yaml:"sync"`
	Devices    map[string]DeviceState `yaml:"devices"`
}

// DeviceState is one device's part of a profile.
type DeviceState struct {
	Effect  string                    `yaml:"effect"`
	Options map[string]map[string]any `yaml:"options"`
}

// Store reads and writes profiles under Dir.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.Dir, name+ext), nil
}

// Save writes p, replacing any profile with the same name.
func (s *Store) Save(p Profile) error {
	path, err := s.path(p.Name)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile %q: %w", p.Name, err)
	}

	// Write then rename so a crash never leaves a truncated profile.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile %q: %w", p.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write profile %q: %w", p.Name, err)
	}
	logger.Infof("saved %q", p.Name)
	return nil
}

// Load reads the named profile.
func (s *Store) Load(name string) (Profile, error) {
	path, err := s.path(name)
	if err != nil {
		return Profile{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile %q: %w", name, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile %q: %w", name, err)
	}
	p.Name = strings.TrimSpace(name)
	return p, nil
}

// List returns the saved profile names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named profile.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("failed to delete profile %q: %w", name, err)
	}
	return nil
}
