// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// File replays a WAV file as if it were captured live: channels are mixed
// down to mono, samples are rescaled to 16 bits, and blocks are released at
// the frame rate when paced.
type File struct {
	path     string
	f        *os.File
	dec      *wav.Decoder
	rate     int
	channels int
	depth    int
	loop     bool

	pcm    *goaudio.IntBuffer
	ticker *time.Ticker
}

// OpenFile opens the WAV file at path. A positive pace releases one block
// per interval; loop rewinds at the end instead of returning io.EOF.
func OpenFile(path string, pace time.Duration, loop bool) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	s := &File{path: path, f: f, loop: loop}
	if err := s.rewind(); err != nil {
		f.Close()
		return nil, err
	}
	if pace > 0 {
		s.ticker = time.NewTicker(pace)
	}
	logger.Infof("replaying %s (%d Hz, %d channels, %d bit)", path, s.rate, s.channels, s.depth)
	return s, nil
}

func (s *File) rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", s.path, err)
	}
	dec := wav.NewDecoder(s.f)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s is not a valid WAV file", s.path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("reading WAV PCM data: %w", err)
	}
	s.dec = dec
	s.rate = int(dec.SampleRate)
	s.channels = max(1, int(dec.NumChans))
	s.depth = int(dec.BitDepth)
	return nil
}

func (s *File) Read(buf []int16) error {
	if s.ticker != nil {
		<-s.ticker.C
	}
	need := len(buf) * s.channels
	if s.pcm == nil || cap(s.pcm.Data) < need {
		s.pcm = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: s.channels, SampleRate: s.rate},
			Data:   make([]int, need),
		}
	}
	s.pcm.Data = s.pcm.Data[:need]

	n, err := s.dec.PCMBuffer(s.pcm)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	if n == 0 {
		if !s.loop {
			return io.EOF
		}
		if err := s.rewind(); err != nil {
			return err
		}
		if n, err = s.dec.PCMBuffer(s.pcm); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode %s: %w", s.path, err)
		}
		if n == 0 {
			return io.EOF
		}
	}

	frames := n / s.channels
	for i := range buf {
		if i >= frames {
			buf[i] = 0
			continue
		}
		var sum int
		for ch := 0; ch < s.channels; ch++ {
			sum += toInt16(s.pcm.Data[i*s.channels+ch], s.depth)
		}
		buf[i] = int16(sum / s.channels)
	}
	return nil
}

// toInt16 rescales a decoded sample of the given bit depth.
func toInt16(v, depth int) int {
	switch depth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

func (s *File) SampleRate() int { return s.rate }

func (s *File) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return s.f.Close()
}
