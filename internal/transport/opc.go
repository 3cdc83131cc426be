// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"ledviz/internal/pixel"
)

const (
	opcSetPixels   = 0
	opcDialTimeout = 500 * time.Millisecond
	opcRetryDelay  = time.Second
	opcWriteTimeout = 100 * time.Millisecond
)

// OPC sends frames to an Open Pixel Control server such as fcserver for
// Fadecandy boards. The connection is dialed lazily and redialed after a
// write failure, at most once per second. A write that stalls past the
// write timeout counts as a failure.
type OPC struct {
	addr          string
	channel       uint8
	maxBrightness int
	writeTimeout  time.Duration
	dial          func(network, addr string, timeout time.Duration) (net.Conn, error)

	mu       sync.Mutex
	conn     net.Conn
	lastDial time.Time
	closed   bool
	message  []byte
}

// NewOPC returns a sink for channel on the server at addr.
func NewOPC(addr string, channel uint8, maxBrightness int) *OPC {
	return &OPC{
		addr:          addr,
		channel:       channel,
		maxBrightness: maxBrightness,
		writeTimeout:  opcWriteTimeout,
		dial:          net.DialTimeout,
	}
}

func (o *OPC) Show(b pixel.Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("OPC %s: sink is closed", o.addr)
	}
	if err := o.connect(); err != nil {
		return err
	}

	o.message = encodeOPC(o.message[:0], o.channel, b.Bytes(o.maxBrightness))
	if err := o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil {
		o.conn.Close()
		o.conn = nil
		return fmt.Errorf("OPC %s: %w", o.addr, err)
	}
	if _, err := o.conn.Write(o.message); err != nil {
		o.conn.Close()
		o.conn = nil
		return fmt.Errorf("OPC %s: %w", o.addr, err)
	}
	return nil
}

func (o *OPC) connect() error {
	if o.conn != nil {
		return nil
	}
	if !o.lastDial.IsZero() && time.Since(o.lastDial) < opcRetryDelay {
		return fmt.Errorf("OPC %s: not connected", o.addr)
	}
	o.lastDial = time.Now()
	conn, err := o.dial("tcp", o.addr, opcDialTimeout)
	if err != nil {
		return fmt.Errorf("OPC %s: %w", o.addr, err)
	}
	logger.Infof("OPC: connected to %s", o.addr)
	o.conn = conn
	return nil
}

func (o *OPC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}

// encodeOPC appends a set-pixel-colours message: channel, command, a big
// endian length, then r, g, b per pixel.
func encodeOPC(dst []byte, channel uint8, rgb [3][]uint8) []byte {
	n := len(rgb[0])
	size := 3 * n
	dst = append(dst, channel, opcSetPixels, byte(size>>8), byte(size))
	for i := 0; i < n; i++ {
		dst = append(dst, rgb[0][i], rgb[1][i], rgb[2][i])
	}
	return dst
}
