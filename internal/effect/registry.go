// SPDX-License-Identifier: MIT
package effect

import (
	"fmt"
	"sort"
	"sync"
)

// Effect names.
const (
	Off            = "Off"
	Single         = "Single"
	Calibration    = "Calibration"
	Fire           = "Fire"
	Sleep          = "Sleep"
	Fade           = "Fade"
	Gradient       = "Gradient"
	Mood           = "Mood"
	Stars          = "Stars"
	Runner         = "Runner"
	Energy         = "Energy"
	Spectrum       = "Spectrum"
	Wavelength     = "Wavelength"
	Scroll         = "Scroll"
	Bars           = "Bars"
	Wave           = "Wave"
	Power          = "Power"
	Beat           = "Beat"
	RunnerReactive = "RunnerReactive"
	Auto           = "Auto"
	Multiple       = "Multiple"
)

// Factory creates a fresh effect instance.
type Factory func() Effect

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
	order      []string
)

func init() {
	for _, f := range []Factory{
		func() Effect { return &offEffect{} },
		func() Effect { return &singleEffect{} },
		func() Effect { return &calibrationEffect{} },
		func() Effect { return &fireEffect{} },
		func() Effect { return &sleepEffect{} },
		func() Effect { return &fadeEffect{} },
		func() Effect { return &gradientEffect{name: Gradient, rollDefault: 0} },
		func() Effect { return &gradientEffect{name: Mood, rollDefault: 1, paced: true} },
		func() Effect { return &starsEffect{} },
		func() Effect { return &runnerEffect{} },
		func() Effect { return &energyEffect{} },
		func() Effect { return &spectrumEffect{} },
		func() Effect { return &wavelengthEffect{} },
		func() Effect { return &scrollEffect{} },
		func() Effect { return &barsEffect{} },
		func() Effect { return &waveEffect{} },
		func() Effect { return &powerEffect{} },
		func() Effect { return &beatEffect{} },
		func() Effect { return &runnerReactiveEffect{} },
		func() Effect { return &autoEffect{} },
		func() Effect { return &multipleEffect{} },
	} {
		Register(f)
	}
}

// Register adds an effect to the catalogue. Sets created afterwards include
// it. Registering a name twice panics.
func Register(f Factory) {
	name := f().Name()
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("effect: %s registered twice", name))
	}
	factories[name] = f
	order = append(order, name)
}

// Names lists every registered effect in registration order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]string(nil), order...)
}

// Set is one device's effect instances.
type Set struct {
	byName map[string]Effect
	names  []string
}

// NewSet instantiates every registered effect.
func NewSet() *Set {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s := &Set{byName: make(map[string]Effect, len(order)), names: append([]string(nil), order...)}
	for _, name := range order {
		s.byName[name] = factories[name]()
	}
	return s
}

// Get returns the named effect.
func (s *Set) Get(name string) (Effect, bool) {
	e, ok := s.byName[name]
	return e, ok
}

// Names lists the effects in registration order.
func (s *Set) Names() []string { return s.names }

// Split returns the reactive and non-reactive effect names, each sorted.
func (s *Set) Split() (reactive, nonReactive []string) {
	for _, name := range s.names {
		if s.byName[name].Reactive() {
			reactive = append(reactive, name)
		} else {
			nonReactive = append(nonReactive, name)
		}
	}
	sort.Strings(reactive)
	sort.Strings(nonReactive)
	return reactive, nonReactive
}

// Schemas returns every effect's schema for p.
func (s *Set) Schemas(p Params) map[string]Schema {
	out := make(map[string]Schema, len(s.names))
	for _, name := range s.names {
		out[name] = s.byName[name].Schema(p)
	}
	return out
}
