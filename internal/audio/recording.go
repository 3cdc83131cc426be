// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrAlreadyRecording = errors.New("already recording")

// Recorder tees captured blocks into a 16-bit mono WAV file.
type Recorder struct {
	rate int

	recording atomic.Bool
	mu        sync.Mutex // guards the fields below against Stop
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *goaudio.IntBuffer
	written   int
}

// NewRecorder returns an idle recorder for audio at rate Hz.
func NewRecorder(rate int) *Recorder {
	return &Recorder{rate: rate}
}

// RecordingPath names a new recording in dir after the start time.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "recording-"+now.Format("20060102-150405")+".wav")
}

// Start begins writing to filename, creating its directory if needed.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording.Load() {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	r.file = file
	r.encoder = wav.NewEncoder(file, r.rate, 16, 1, 1)
	r.sampleBuf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.rate},
		SourceBitDepth: 16,
	}
	r.written = 0
	r.recording.Store(true)
	logger.Infof("recording to %s", filename)
	return nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool { return r.recording.Load() }

// Write appends a block. It is a no-op while not recording.
func (r *Recorder) Write(samples []int16) error {
	if !r.recording.Load() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		r.sampleBuf.Data[i] = int(s)
	}
	if err := r.encoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	r.written += len(samples)
	return nil
}

// Stop finalizes the WAV header and closes the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording.Load() {
		return nil
	}
	r.recording.Store(false)

	var errs []error
	if r.encoder != nil {
		errs = append(errs, r.encoder.Close())
		r.encoder = nil
	}
	if r.file != nil {
		logger.Infof("recorded %.1fs to %s", float64(r.written)/float64(r.rate), r.file.Name())
		errs = append(errs, r.file.Close())
		r.file = nil
	}
	return errors.Join(errs...)
}
