// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"ledviz/internal/config"
)

// Mic is a blocking PortAudio input stream. Initialize must have been
// called first.
type Mic struct {
	stream *portaudio.Stream
	in     []int16
	rate   int
}

// OpenMic opens and starts a mono capture stream delivering blocks of
// samplesPerFrame samples.
func OpenMic(cfg config.AudioConfig, samplesPerFrame int) (*Mic, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	m := &Mic{in: make([]int16, samplesPerFrame), rate: cfg.MicRate}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: samplesPerFrame,
		SampleRate:      float64(cfg.MicRate),
	}
	m.stream, err = portaudio.OpenStream(params, m.in)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %s: %w", device.Name, err)
	}
	if err := m.stream.Start(); err != nil {
		m.stream.Close()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	logger.Infof("capturing from %s at %d Hz (latency %s)", device.Name, cfg.MicRate, latency)
	return m, nil
}

func (m *Mic) Read(buf []int16) error {
	err := m.stream.Read()
	copy(buf, m.in)
	if errors.Is(err, portaudio.InputOverflowed) {
		return ErrOverflow
	}
	return err
}

func (m *Mic) SampleRate() int { return m.rate }

func (m *Mic) Close() error {
	if m.stream == nil {
		return nil
	}
	if err := m.stream.Stop(); err != nil {
		m.stream.Close()
		m.stream = nil
		return err
	}
	err := m.stream.Close()
	m.stream = nil
	return err
}
