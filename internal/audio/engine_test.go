// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"io"
	"testing"
)

const (
	testSampleRate = 48000
	testFrameSize  = 800
)

// scriptedSource returns its blocks in order, each with the matching error,
// then io.EOF.
type scriptedSource struct {
	blocks [][]int16
	errs   []error
	reads  int
	closed bool
}

func (s *scriptedSource) Read(buf []int16) error {
	if s.reads >= len(s.blocks) {
		return io.EOF
	}
	copy(buf, s.blocks[s.reads])
	var err error
	if s.reads < len(s.errs) {
		err = s.errs[s.reads]
	}
	s.reads++
	return err
}

func (s *scriptedSource) SampleRate() int { return testSampleRate }

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// endlessSource returns the same block forever.
type endlessSource struct{ value int16 }

func (s endlessSource) Read(buf []int16) error {
	for i := range buf {
		buf[i] = s.value
	}
	return nil
}

func (endlessSource) SampleRate() int { return testSampleRate }
func (endlessSource) Close() error    { return nil }

func constBlock(n int, v int16) []int16 {
	b := make([]int16, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestEngineDeliversBlocks(t *testing.T) {
	src := &scriptedSource{
		blocks: [][]int16{constBlock(4, 1), constBlock(4, 2), constBlock(4, 3)},
		errs:   []error{nil, ErrOverflow, nil},
	}
	var got []int16
	e := NewEngine(src, 4, func(b []int16) { got = append(got, b[0]) })

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("got first samples %v, want [1 2 3]", got)
	}
	if e.Overflows() != 1 {
		t.Errorf("Overflows = %d, want 1", e.Overflows())
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Error("source not closed")
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames := 0
	e := NewEngine(endlessSource{value: 7}, testFrameSize, func(b []int16) {
		frames++
		if frames == 5 {
			cancel()
		}
	})
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if frames != 5 {
		t.Errorf("processed %d frames after cancel, want 5", frames)
	}
}

func TestEngineReadError(t *testing.T) {
	broken := errors.New("device unplugged")
	src := &scriptedSource{blocks: [][]int16{constBlock(4, 0)}, errs: []error{broken}}
	e := NewEngine(src, 4, func([]int16) { t.Error("callback ran after a read error") })
	if err := e.Run(context.Background()); !errors.Is(err, broken) {
		t.Errorf("Run error = %v, want %v", err, broken)
	}
}

// BenchmarkEngineRun measures the capture loop overhead per block.
func BenchmarkEngineRun(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := 0
	e := NewEngine(endlessSource{value: 1}, testFrameSize, func([]int16) {
		n++
		if n >= b.N {
			cancel()
		}
	})
	b.ReportAllocs()
	b.ResetTimer()
	if err := e.Run(ctx); err != nil {
		b.Fatal(err)
	}
}
