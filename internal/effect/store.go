// SPDX-License-Identifier: MIT
package effect

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"ledviz/internal/gradient"
)

// Store holds one device's option values for every effect. Reads return an
// immutable snapshot; writes validate first and then publish a new snapshot
// atomically, so a rejected write changes nothing.
type Store struct {
	set       *Set
	params    Params
	palette   gradient.Palette
	schemas   map[string]Schema
	colors    map[string]bool
	gradients map[string]bool

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[map[string]Options]
}

// NewStore seeds every effect of set with its schema defaults.
func NewStore(set *Set, p Params, palette gradient.Palette, gradients []string) *Store {
	s := &Store{
		set:       set,
		params:    p,
		palette:   palette,
		schemas:   set.Schemas(p),
		colors:    make(map[string]bool, len(palette)),
		gradients: make(map[string]bool, len(gradients)),
	}
	for name := range palette {
		s.colors[name] = true
	}
	for _, name := range gradients {
		s.gradients[name] = true
	}

	initial := make(map[string]Options, len(s.schemas))
	for name, schema := range s.schemas {
		initial[name] = schema.Defaults()
	}
	s.snap.Store(&initial)
	return s
}

// Params returns the strip parameters the schemas were built for.
func (s *Store) Params() Params { return s.params }

// Palette returns the colors option values are checked against.
func (s *Store) Palette() gradient.Palette { return s.palette }

// Snapshot returns the current values of every effect. The map and its
// values must be treated as read-only.
func (s *Store) Snapshot() map[string]Options {
	return *s.snap.Load()
}

// Get returns a copy of the named effect's options.
func (s *Store) Get(effect string) (Options, error) {
	opts, ok := s.Snapshot()[effect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, effect)
	}
	return opts.Clone(), nil
}

// Schema returns the named effect's option schema.
func (s *Store) Schema(effect string) (Schema, bool) {
	schema, ok := s.schemas[effect]
	return schema, ok
}

// Set validates and stores a single option.
func (s *Store) Set(effect, key string, value any) error {
	return s.Apply(map[string]Options{effect: {key: value}})
}

// Apply validates every value in values and stores them together. Effects
// and keys not mentioned keep their current values.
func (s *Store) Apply(values map[string]Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.prepare(values)
	if err != nil {
		return err
	}
	s.snap.Store(&next)
	return nil
}

// Check reports whether Apply would accept values, without storing them.
func (s *Store) Check(values map[string]Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.prepare(values)
	return err
}

// Merge applies whatever part of values is valid, one option at a time, and
// returns the keys it dropped. It is used to carry options across a change
// of strip size where some bounds shrink.
func (s *Store) Merge(values map[string]Options) (dropped []string) {
	for name, opts := range values {
		for key, v := range opts {
			if err := s.Set(name, key, v); err != nil {
				dropped = append(dropped, name+"."+key)
			}
		}
	}
	sort.Strings(dropped)
	return dropped
}

func (s *Store) prepare(values map[string]Options) (map[string]Options, error) {
	cur := s.Snapshot()
	next := make(map[string]Options, len(cur))
	for name, opts := range cur {
		next[name] = opts
	}

	// Sorted for deterministic error reporting.
	effects := make([]string, 0, len(values))
	for name := range values {
		effects = append(effects, name)
	}
	sort.Strings(effects)

	for _, name := range effects {
		schema, ok := s.schemas[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, name)
		}
		updated := next[name].Clone()
		for key, raw := range values[name] {
			spec, ok := schema.Lookup(key)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownOption, name, key)
			}
			v, err := s.validate(name, spec, raw)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, key, err)
			}
			updated[key] = v
		}
		next[name] = updated
	}
	return next, nil
}

func (s *Store) validate(owner string, spec OptionSpec, raw any) (any, error) {
	v, err := coerce(spec, raw)
	if err != nil {
		return nil, err
	}
	name, _ := v.(string)
	switch spec.Kind {
	case KindColor:
		if !s.colors[name] {
			return nil, fmt.Errorf("%w: unknown color %q", ErrInvalidValue, name)
		}
	case KindGradient:
		if !s.gradients[name] {
			return nil, fmt.Errorf("%w: unknown gradient %q", ErrInvalidValue, name)
		}
	case KindEffect:
		if name == "" {
			return v, nil
		}
		e, ok := s.set.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, name)
		}
		if name == owner || IsComposite(e) {
			return nil, fmt.Errorf("%w: %s cannot use %s", ErrRecursiveComposite, owner, name)
		}
	}
	return v, nil
}
