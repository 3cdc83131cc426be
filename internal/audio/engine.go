// SPDX-License-Identifier: MIT
/*
Package audio captures the signal that drives the visualizer:
- Blocking PortAudio microphone capture with overflow counting
- WAV file replay paced at the frame rate
- WAV recording of whatever is captured

Thread Safety:
- Run owns the source and the frame callback; it locks its OS thread
- Recording may be started and stopped from any goroutine
- The block buffer is reused, callbacks must not retain it
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"ledviz/internal/log"
)

var logger = log.Named("Audio")

// Engine reads fixed-size blocks from a Source and hands each one to the
// frame callback.
type Engine struct {
	source    Source
	block     []int16
	process   func([]int16)
	recorder  *Recorder
	overflows *log.Counter
}

// NewEngine wires src to process with blocks of samplesPerFrame samples.
func NewEngine(src Source, samplesPerFrame int, process func([]int16)) *Engine {
	return &Engine{
		source:    src,
		block:     make([]int16, samplesPerFrame),
		process:   process,
		recorder:  NewRecorder(src.SampleRate()),
		overflows: log.NewCounter(logger, "audio overflow", time.Second),
	}
}

// Run captures until ctx is done or a finite source ends.
func (e *Engine) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if ctx.Err() != nil {
			return nil
		}
		err := e.source.Read(e.block)
		switch {
		case errors.Is(err, ErrOverflow):
			e.overflows.Inc(time.Now())
		case errors.Is(err, io.EOF):
			logger.Infof("input exhausted")
			return nil
		case err != nil:
			return fmt.Errorf("audio read: %w", err)
		}

		if err := e.recorder.Write(e.block); err != nil {
			logger.Errorf("%v; stopping recording", err)
			e.recorder.Stop()
		}
		e.process(e.block)
	}
}

// Overflows returns how many blocks arrived after an input overflow.
func (e *Engine) Overflows() uint64 { return e.overflows.Count() }

// StartRecording tees captured audio into filename.
func (e *Engine) StartRecording(filename string) error { return e.recorder.Start(filename) }

// StopRecording finalizes the current recording, if any.
func (e *Engine) StopRecording() error { return e.recorder.Stop() }

// Close stops recording and releases the source.
func (e *Engine) Close() error {
	return errors.Join(e.recorder.Stop(), e.source.Close())
}
