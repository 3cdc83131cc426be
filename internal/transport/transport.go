// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"ledviz/internal/config"
	"ledviz/internal/log"
	"ledviz/internal/pixel"
)

// Sink sends finished frames to one physical strip.
// Show is called from the frame goroutine only; Close may be called once
// from any goroutine after the last Show.
type Sink interface {
	Show(b pixel.Buffer) error
	Close() error
}

var logger = log.Named("Transport")

// New returns the sink for dc.Type.
func New(dc config.DeviceConfig) (Sink, error) {
	switch dc.Type {
	case config.TypeESP8266:
		addr := net.JoinHostPort(dc.UDPIP, strconv.Itoa(dc.UDPPort))
		return NewESP8266(addr, dc.MaxBrightness)
	case config.TypeFadecandy:
		return NewOPC(dc.OPCServer, uint8(dc.OPCChannel), dc.MaxBrightness), nil
	case config.TypeStripless:
		return NewStripless(dc.Name), nil
	default:
		return nil, fmt.Errorf("unknown device type %q", dc.Type)
	}
}

// TestPattern scrolls a red, a green and a blue pixel along an n pixel strip
// every interval until ctx is done.
func TestPattern(ctx context.Context, s Sink, n int, interval time.Duration) error {
	if n < 1 {
		return fmt.Errorf("test pattern needs at least one pixel, got %d", n)
	}
	b := pixel.New(n)
	for ch := 0; ch < 3 && ch < n; ch++ {
		b[ch][ch] = 255
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Show(b); err != nil {
			logger.Warnf("test pattern: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for ch := range b {
			last := b[ch][n-1]
			copy(b[ch][1:], b[ch][:n-1])
			b[ch][0] = last
		}
	}
}
