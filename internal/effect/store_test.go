// SPDX-License-Identifier: MIT
package effect

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"ledviz/internal/gradient"
)

func newTestStore(pixels int) *Store {
	grads := gradient.DefaultGradients()
	names := make([]string, 0, len(grads))
	for name := range grads {
		names = append(names, name)
	}
	return NewStore(NewSet(), Params{Pixels: pixels, Bands: 24}, gradient.DefaultPalette(), names)
}

func TestStoreSet(t *testing.T) {
	tests := []struct {
		name   string
		effect string
		key    string
		value  any
		want   any
		err    error
	}{
		{"float from string", Energy, "blur", "2.5", 2.5, nil},
		{"float from json", Energy, "blur", json.Number("0.5"), 0.5, nil},
		{"int from integral float", Wave, "wipe_len", 3.0, 3, nil},
		{"fractional int", Wave, "wipe_len", 3.5, nil, ErrInvalidValue},
		{"int above pixel bound", Wave, "wipe_len", 40, nil, ErrInvalidValue},
		{"float out of range", Energy, "blur", 10, nil, ErrInvalidValue},
		{"bool from string", Energy, "mirror", "false", false, nil},
		{"bool from number", Energy, "mirror", 1, true, nil},
		{"bool from 2", Energy, "mirror", 2, nil, ErrInvalidValue},
		{"known color", Single, "color", "Pink", "Pink", nil},
		{"unknown color", Single, "color", "Mauve", nil, ErrInvalidValue},
		{"known gradient", Spectrum, "color_mode", "Ocean", "Ocean", nil},
		{"unknown gradient", Spectrum, "color_mode", "Tundra", nil, ErrInvalidValue},
		{"color must be a string", Single, "color", 3, nil, ErrInvalidValue},
		{"unknown option", Energy, "sparkle", 1, nil, ErrUnknownOption},
		{"unknown effect", "Disco", "blur", 1, nil, ErrUnknownEffect},
		{"composite target", Multiple, "a", Energy, Energy, nil},
		{"empty composite slot", Multiple, "b", "", "", nil},
		{"composite referencing itself", Multiple, "a", Multiple, nil, ErrRecursiveComposite},
		{"composite referencing composite", Multiple, "c", Auto, nil, ErrRecursiveComposite},
		{"composite unknown target", Multiple, "a", "Disco", nil, ErrUnknownEffect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(100)
			err := s.Set(tt.effect, tt.key, tt.value)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Set() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			opts, err := s.Get(tt.effect)
			if err != nil {
				t.Fatal(err)
			}
			if opts[tt.key] != tt.want {
				t.Errorf("%s.%s = %v (%T), want %v (%T)", tt.effect, tt.key, opts[tt.key], opts[tt.key], tt.want, tt.want)
			}
		})
	}
}

func TestStoreApplyIsAllOrNothing(t *testing.T) {
	s := newTestStore(100)
	err := s.Apply(map[string]Options{
		Energy: {"blur": 2.0},
		Wave:   {"decay": 5.0},
	})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Apply() error = %v, want %v", err, ErrInvalidValue)
	}
	opts, _ := s.Get(Energy)
	if opts.Float("blur") != 1 {
		t.Errorf("Energy.blur = %v after rejected apply, want default 1", opts.Float("blur"))
	}

	if err := s.Apply(map[string]Options{Energy: {"blur": 2.0}, Wave: {"decay": 0.5}}); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot()[Wave].Float("decay"); got != 0.5 {
		t.Errorf("Wave.decay = %v, want 0.5", got)
	}
}

func TestStoreSnapshotIsStable(t *testing.T) {
	s := newTestStore(100)
	before := s.Snapshot()
	if err := s.Set(Energy, "scale", 0.5); err != nil {
		t.Fatal(err)
	}
	if before[Energy].Float("scale") != 0.9 {
		t.Error("an earlier snapshot observed a later write")
	}
	if s.Snapshot()[Energy].Float("scale") != 0.5 {
		t.Error("write not published")
	}
}

func TestStoreConcurrentWriters(t *testing.T) {
	s := newTestStore(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Set(Calibration, "r", (i*50+j)%256)
				_ = s.Snapshot()[Calibration].Int("r")
			}
		}(i)
	}
	wg.Wait()
	if r := s.Snapshot()[Calibration].Int("r"); r < 0 || r > 255 {
		t.Errorf("Calibration.r = %d", r)
	}
}

func TestSchemaDefaultsDependOnStrip(t *testing.T) {
	tests := []struct {
		pixels int
		sCount int
		wipe   float64
	}{
		{60, 10, 15},
		{150, 25, 37},
		{4, 0, 1},
	}
	set := NewSet()
	for _, tt := range tests {
		p := Params{Pixels: tt.pixels, Bands: 24}
		schemas := set.Schemas(p)
		if got := schemas[Power].Defaults().Int("s_count"); got != tt.sCount {
			t.Errorf("pixels=%d: Power.s_count default = %d, want %d", tt.pixels, got, tt.sCount)
		}
		spec, _ := schemas[Wave].Lookup("wipe_len")
		if spec.Max != tt.wipe {
			t.Errorf("pixels=%d: Wave.wipe_len max = %v, want %v", tt.pixels, spec.Max, tt.wipe)
		}
	}
}

func TestDefaultsWithinBounds(t *testing.T) {
	for name, schema := range NewSet().Schemas(Params{Pixels: 150, Bands: 24}) {
		for _, spec := range schema {
			if spec.Kind != KindInt && spec.Kind != KindFloat {
				continue
			}
			v := toFloatOr(spec.Default)
			if v < spec.Min || v > spec.Max {
				t.Errorf("%s.%s default %v outside [%v, %v]", name, spec.Key, v, spec.Min, spec.Max)
			}
		}
	}
}

func toFloatOr(v any) float64 {
	f, _ := toFloat(v)
	return f
}

func TestRegistry(t *testing.T) {
	if got := len(Names()); got != 21 {
		t.Errorf("%d effects registered, want 21", got)
	}
	reactive, nonReactive := NewSet().Split()
	if len(reactive)+len(nonReactive) != 21 {
		t.Errorf("Split lost effects: %d + %d", len(reactive), len(nonReactive))
	}
	for _, name := range reactive {
		if name == Multiple || name == Stars || name == Off {
			t.Errorf("%s listed as reactive", name)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("registering a duplicate name did not panic")
		}
	}()
	Register(func() Effect { return &offEffect{} })
}
