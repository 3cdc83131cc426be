// SPDX-License-Identifier: MIT
package profile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSaveLoad(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "profiles"))
	if err != nil {
		t.Fatal(err)
	}
	want := Profile{
		Name:       "party",
		Brightness: 0.6,
		Sync:       true,
		Devices: map[string]DeviceState{
			"Desk": {
				Effect: "Wave",
				Options: map[string]map[string]any{
					"Wave":   {"wipe_len": 5, "decay": 0.8, "color_mode": "Ocean"},
					"Energy": {"mirror": false},
				},
			},
		},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("party")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "party.yaml.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestList(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	for _, name := range []string{"b", "a", "c"} {
		if err := s.Save(Profile{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0o644)

	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestErrors(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	tests := []struct {
		name string
		err  error
	}{
		{"missing", ErrNotFound},
		{"", ErrInvalidName},
		{"../escape", ErrInvalidName},
		{"..", ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Load(tt.name); !errors.Is(err, tt.err) {
				t.Errorf("Load(%q) error = %v, want %v", tt.name, err, tt.err)
			}
		})
	}
	if err := s.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, ErrNotFound)
	}
}
