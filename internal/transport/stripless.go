// SPDX-License-Identifier: MIT
package transport

import "ledviz/internal/pixel"

// statusEvery is how many frames pass between Stripless debug lines.
const statusEvery = 600

// Stripless discards frames. It stands in for a strip that is only
// watched through the preview.
type Stripless struct {
	name   string
	frames uint64
}

func NewStripless(name string) *Stripless {
	logger.Infof("%s: using Stripless output", name)
	return &Stripless{name: name}
}

func (s *Stripless) Show(b pixel.Buffer) error {
	s.frames++
	if s.frames%statusEvery == 0 {
		logger.Debugf("%s: %d frames of %d pixels discarded", s.name, s.frames, b.Len())
	}
	return nil
}

// Frames returns how many frames were shown.
func (s *Stripless) Frames() uint64 { return s.frames }

func (s *Stripless) Close() error {
	logger.Debugf("%s: closed after %d frames", s.name, s.frames)
	return nil
}
