// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ledviz/internal/config"
	"ledviz/internal/profile"
	"ledviz/internal/visualizer"
)

type wireResponse struct {
	Type    string          `json:"type"`
	ID      json.RawMessage `json:"id"`
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Devices []PreviewDevice `json:"devices"`
}

type harness struct {
	o      *visualizer.Orchestrator
	server *Server
	conn   *websocket.Conn
	nextID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Devices = []config.DeviceConfig{
		{Name: "left", Type: config.TypeStripless, Pixels: 60},
		{Name: "right", Type: config.TypeStripless, Pixels: 30},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	profiles, err := profile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("profile.NewStore: %v", err)
	}
	o, err := visualizer.New(cfg, nil, visualizer.Options{Profiles: profiles})
	if err != nil {
		t.Fatalf("visualizer.New: %v", err)
	}

	s := NewServer(o, "", 1)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &harness{o: o, server: s, conn: conn}
}

// read returns the next message of the given type.
func (h *harness) read(t *testing.T, kind string) wireResponse {
	t.Helper()
	for {
		h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg wireResponse
		if err := h.conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == kind {
			return msg
		}
	}
}

func (h *harness) call(t *testing.T, action string, data any) wireResponse {
	t.Helper()
	h.nextID++
	req := map[string]any{"id": h.nextID, "action": action}
	if data != nil {
		req["data"] = data
	}
	if err := h.conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp := h.read(t, typeResponse)
	if string(resp.ID) != jsonString(t, h.nextID) {
		t.Fatalf("%s: response id %s, want %d", action, resp.ID, h.nextID)
	}
	return resp
}

func jsonString(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestGetDevices(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "get/devices", nil)
	if !resp.OK {
		t.Fatalf("get/devices failed: %s", resp.Error)
	}
	var infos []visualizer.DeviceInfo
	if err := json.Unmarshal(resp.Result, &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "left" || infos[1].Pixels != 30 {
		t.Fatalf("got %+v", infos)
	}
	if infos[0].CurrentEffect != config.DefaultEffect {
		t.Errorf("current effect = %s, want %s", infos[0].CurrentEffect, config.DefaultEffect)
	}
	if len(infos[0].Reactive) == 0 || len(infos[0].NonReactive) == 0 {
		t.Error("effect lists are empty")
	}
}

func TestActions(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		action   string
		data     any
		wantCode string
	}{
		{"set/brightness", map[string]any{"brightness": 0.5}, ""},
		{"set/brightness", map[string]any{"brightness": 1.5}, "out_of_range"},
		{"set/brightness", map[string]any{}, "bad_request"},
		{"set/brightness", map[string]any{"level": 1}, "bad_request"},
		{"set/sync", map[string]any{"sync": false}, ""},
		{"set/effect", map[string]any{"device": "left", "effect": "Wave"}, ""},
		{"set/effect", map[string]any{"device": "left", "effect": "Disco"}, "unknown_effect"},
		{"set/effect", map[string]any{"device": "middle", "effect": "Wave"}, "unknown_device"},
		{"set/option", map[string]any{"device": "left", "effect": "Wave", "key": "wipe_len", "value": "5"}, ""},
		{"set/option", map[string]any{"device": "left", "effect": "Wave", "key": "wipe_len", "value": 1000}, "invalid_value"},
		{"set/option", map[string]any{"device": "left", "effect": "Wave", "key": "colour", "value": 1}, "unknown_option"},
		{"set/options", map[string]any{"device": "left", "options": map[string]any{"Energy": map[string]any{"blur": 2}}}, ""},
		{"set/frequency/min", map[string]any{"device": "left", "frequency": 100}, ""},
		{"set/frequency/max", map[string]any{"device": "left", "frequency": 50}, "out_of_range"},
		{"set/pixels", map[string]any{"device": "right", "n_pixels": 1}, "out_of_range"},
		{"profile/load", map[string]any{"name": "missing"}, "unknown_profile"},
		{"get/stats", nil, ""},
		{"dance", nil, "unknown_action"},
	}
	for _, tt := range tests {
		resp := h.call(t, tt.action, tt.data)
		if tt.wantCode == "" {
			if !resp.OK {
				t.Errorf("%s %v: unexpected error %s (%s)", tt.action, tt.data, resp.Error, resp.Code)
			}
			continue
		}
		if resp.OK || resp.Code != tt.wantCode {
			t.Errorf("%s %v: got ok=%v code=%q, want code %q", tt.action, tt.data, resp.OK, resp.Code, tt.wantCode)
		}
	}

	if got := h.o.Brightness(); got != 0.5 {
		t.Errorf("brightness = %v, want 0.5", got)
	}
	if h.o.Sync() {
		t.Error("sync still on")
	}
	d, _ := h.o.Device("left")
	if d.Effect() != "Wave" {
		t.Errorf("effect = %s, want Wave", d.Effect())
	}
	opts, _ := d.Options().Get("Wave")
	if opts["wipe_len"] != 5 {
		t.Errorf("wipe_len = %v, want 5", opts["wipe_len"])
	}
	if lo, _ := d.FrequencyRange(); lo != 100 {
		t.Errorf("min frequency = %v, want 100", lo)
	}
}

func TestMalformedRequest(t *testing.T) {
	h := newHarness(t)
	if err := h.conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	resp := h.read(t, typeResponse)
	if resp.OK || resp.Code != "bad_request" {
		t.Errorf("got ok=%v code=%q, want bad_request", resp.OK, resp.Code)
	}
	if resp := h.call(t, "get/sync", nil); !resp.OK {
		t.Error("connection unusable after a malformed request")
	}
}

func TestProfiles(t *testing.T) {
	h := newHarness(t)
	h.call(t, "set/brightness", map[string]any{"brightness": 0.25})
	if resp := h.call(t, "profile/save", map[string]any{"name": "evening"}); !resp.OK {
		t.Fatalf("profile/save: %s", resp.Error)
	}
	resp := h.call(t, "get/profiles", nil)
	var list struct {
		Profiles []string `json:"profiles"`
	}
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Profiles) != 1 || list.Profiles[0] != "evening" {
		t.Errorf("profiles = %v, want [evening]", list.Profiles)
	}

	h.call(t, "set/brightness", map[string]any{"brightness": 0.9})
	if resp := h.call(t, "profile/load", map[string]any{"name": "evening"}); !resp.OK {
		t.Fatalf("profile/load: %s", resp.Error)
	}
	if got := h.o.Brightness(); got != 0.25 {
		t.Errorf("brightness after load = %v, want 0.25", got)
	}
}

func TestPreviewSubscription(t *testing.T) {
	h := newHarness(t)
	if resp := h.call(t, "preview/subscribe", map[string]any{"enabled": true}); !resp.OK {
		t.Fatalf("subscribe: %s", resp.Error)
	}
	if err := h.o.SetEffect("left", "Single"); err != nil {
		t.Fatal(err)
	}
	h.o.ProcessFrame(make([]int16, h.o.SamplesPerFrame()))

	msg := h.read(t, typePreview)
	if len(msg.Devices) != 2 {
		t.Fatalf("preview has %d devices, want 2", len(msg.Devices))
	}
	if msg.Devices[0].Name != "left" || len(msg.Devices[0].Pixels[0]) != 60 {
		t.Errorf("unexpected first device %s with %d pixels", msg.Devices[0].Name, len(msg.Devices[0].Pixels[0]))
	}
	if h.server.Clients() != 1 {
		t.Errorf("Clients = %d, want 1", h.server.Clients())
	}
}
