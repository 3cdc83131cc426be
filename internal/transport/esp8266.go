// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"

	"ledviz/internal/config"
	"ledviz/internal/pixel"
	"ledviz/internal/transport/udp"
)

// PixelsPerPacket keeps each ESP8266 datagram under the firmware's 512
// byte receive buffer.
const PixelsPerPacket = 126

// ESP8266 sends frames as |i|r|g|b| records over UDP, one byte each, so
// strips are limited to 256 pixels.
type ESP8266 struct {
	sender        *udp.Sender
	maxBrightness int
	packet        []byte
}

// NewESP8266 dials the controller at addr.
func NewESP8266(addr string, maxBrightness int) (*ESP8266, error) {
	sender, err := udp.NewSender(addr)
	if err != nil {
		return nil, err
	}
	return &ESP8266{
		sender:        sender,
		maxBrightness: maxBrightness,
		packet:        make([]byte, 0, 4*PixelsPerPacket),
	}, nil
}

func (e *ESP8266) Show(b pixel.Buffer) error {
	n := b.Len()
	if n > config.MaxESP8266Pixels {
		return fmt.Errorf("ESP8266: %d pixels exceeds the %d pixel limit", n, config.MaxESP8266Pixels)
	}
	rgb := b.Bytes(e.maxBrightness)
	for start := 0; start < n; start += PixelsPerPacket {
		end := min(start+PixelsPerPacket, n)
		e.packet = e.packet[:0]
		for i := start; i < end; i++ {
			e.packet = append(e.packet, uint8(i), rgb[0][i], rgb[1][i], rgb[2][i])
		}
		if err := e.sender.Send(e.packet); err != nil {
			return err
		}
	}
	return nil
}

func (e *ESP8266) Close() error { return e.sender.Close() }
