// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"ledviz/internal/config"
	"ledviz/internal/pixel"
)

func TestESP8266Packets(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	sink, err := NewESP8266(pc.LocalAddr().String(), 200)
	if err != nil {
		t.Fatalf("NewESP8266: %v", err)
	}
	defer sink.Close()

	b := pixel.New(130)
	b.Set(0, 300, 10, -5)
	b.Set(129, 1, 2, 3)
	if err := sink.Show(b); err != nil {
		t.Fatalf("Show: %v", err)
	}

	buf := make([]byte, 2048)
	read := func() []byte {
		pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return append([]byte(nil), buf[:n]...)
	}

	first := read()
	if len(first) != 4*PixelsPerPacket {
		t.Fatalf("first packet is %d bytes, want %d", len(first), 4*PixelsPerPacket)
	}
	if got := first[:4]; got[0] != 0 || got[1] != 200 || got[2] != 10 || got[3] != 0 {
		t.Errorf("pixel 0 record = %v, want [0 200 10 0]", got)
	}
	if first[4] != 1 {
		t.Errorf("second record index = %d, want 1", first[4])
	}

	second := read()
	if len(second) != 4*(130-PixelsPerPacket) {
		t.Fatalf("second packet is %d bytes, want %d", len(second), 4*(130-PixelsPerPacket))
	}
	last := second[len(second)-4:]
	if last[0] != 129 || last[1] != 1 || last[2] != 2 || last[3] != 3 {
		t.Errorf("pixel 129 record = %v, want [129 1 2 3]", last)
	}
}

func TestESP8266RejectsLongStrips(t *testing.T) {
	sink, err := NewESP8266("127.0.0.1:9", 255)
	if err != nil {
		t.Fatalf("NewESP8266: %v", err)
	}
	defer sink.Close()
	if err := sink.Show(pixel.New(config.MaxESP8266Pixels + 2)); err == nil {
		t.Error("expected an error for an over-long strip")
	}
}

func TestOPCMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		msg := make([]byte, 4+3*3)
		if _, err := io.ReadFull(conn, msg); err != nil {
			return
		}
		got <- msg
	}()

	sink := NewOPC(ln.Addr().String(), 2, 100)
	defer sink.Close()
	b := pixel.New(3)
	b.Set(0, 255, 0, 0)
	b.Set(1, 0, 50, 0)
	b.Set(2, 0, 0, 7.9)
	if err := sink.Show(b); err != nil {
		t.Fatalf("Show: %v", err)
	}

	want := []byte{2, 0, 0, 9, 100, 0, 0, 0, 50, 0, 0, 0, 7}
	select {
	case msg := <-got:
		if string(msg) != string(want) {
			t.Errorf("message = %v, want %v", msg, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestOPCRetryIsPaced(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	sink := NewOPC(addr, 0, 255)
	if err := sink.Show(pixel.New(2)); err == nil {
		t.Fatal("expected a dial error")
	}
	first := sink.lastDial
	if err := sink.Show(pixel.New(2)); err == nil {
		t.Fatal("expected an error while disconnected")
	}
	if !sink.lastDial.Equal(first) {
		t.Error("redialed inside the retry delay")
	}
	sink.Close()
	if err := sink.Show(pixel.New(2)); err == nil {
		t.Error("expected an error after Close")
	}
}

func TestOPCStalledServerTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close() // never read, so every write stalls

	sink := NewOPC("fcserver:7890", 0, 255)
	sink.writeTimeout = 20 * time.Millisecond
	sink.dial = func(string, string, time.Duration) (net.Conn, error) {
		return client, nil
	}

	done := make(chan error, 1)
	go func() { done <- sink.Show(pixel.New(4)) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a timeout error from a stalled server")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Show blocked on a stalled server")
	}
	if sink.conn != nil {
		t.Error("connection kept after a failed write")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		dc      config.DeviceConfig
		want    string
		wantErr bool
	}{
		{"stripless", config.DeviceConfig{Name: "s", Type: config.TypeStripless}, "*transport.Stripless", false},
		{"fadecandy", config.DeviceConfig{Name: "f", Type: config.TypeFadecandy, OPCServer: "127.0.0.1:7890"}, "*transport.OPC", false},
		{"esp8266", config.DeviceConfig{Name: "e", Type: config.TypeESP8266, UDPIP: "127.0.0.1", UDPPort: config.DefaultUDPPort}, "*transport.ESP8266", false},
		{"unknown", config.DeviceConfig{Name: "x", Type: "Neopixel"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := New(tt.dc)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer sink.Close()
			if got := fmt.Sprintf("%T", sink); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}

type captureSink struct {
	mu     sync.Mutex
	frames []pixel.Buffer
	after  int
	cancel func()
}

func (c *captureSink) Show(b pixel.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, b.Clone())
	if len(c.frames) == c.after {
		c.cancel()
	}
	return nil
}

func (c *captureSink) Close() error { return nil }

func TestTestPatternScrolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &captureSink{after: 3, cancel: cancel}
	if err := TestPattern(ctx, sink, 5, time.Millisecond); err != nil {
		t.Fatalf("TestPattern: %v", err)
	}
	for k := 0; k < 3; k++ {
		f := sink.frames[k]
		for ch := 0; ch < 3; ch++ {
			lit := (ch + k) % 5
			if f[ch][lit] != 255 {
				t.Errorf("frame %d: channel %d not lit at %d: %v", k, ch, lit, f[ch])
			}
		}
	}
	if err := TestPattern(ctx, sink, 0, time.Millisecond); err == nil {
		t.Error("expected an error for an empty strip")
	}
}

func TestStriplessCountsFrames(t *testing.T) {
	s := NewStripless("bench")
	for i := 0; i < 3; i++ {
		if err := s.Show(pixel.New(4)); err != nil {
			t.Fatal(err)
		}
	}
	if s.Frames() != 3 {
		t.Errorf("Frames = %d, want 3", s.Frames())
	}
}
