// SPDX-License-Identifier: MIT
package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"ledviz/internal/effect"
	"ledviz/internal/visualizer"
)

// Request is a client command. ID is echoed back in the Response.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response answers one Request.
type Response struct {
	Type   string          `json:"type"`
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Preview carries one frame of every device to subscribed clients.
type Preview struct {
	Type    string          `json:"type"`
	Devices []PreviewDevice `json:"devices"`
}

// PreviewDevice holds one strip as rows of red, green and blue values.
type PreviewDevice struct {
	Name   string   `json:"name"`
	Pixels [3][]int `json:"pixels"`
}

const (
	typeResponse = "response"
	typePreview  = "preview"
)

var errBadRequest = errors.New("bad request")

// Error codes let clients tell rejections apart without parsing messages.
var codes = []struct {
	err  error
	code string
}{
	{visualizer.ErrUnknownDevice, "unknown_device"},
	{visualizer.ErrUnknownProfile, "unknown_profile"},
	{visualizer.ErrOutOfRange, "out_of_range"},
	{visualizer.ErrNoProfiles, "no_profiles"},
	{effect.ErrUnknownEffect, "unknown_effect"},
	{effect.ErrUnknownOption, "unknown_option"},
	{effect.ErrInvalidValue, "invalid_value"},
	{effect.ErrRecursiveComposite, "recursive_composite"},
	{errBadRequest, "bad_request"},
	{errUnknownAction, "unknown_action"},
}

func errorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// decode unmarshals data into v, rejecting unknown fields.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errBadRequest)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func newPreview(frames []visualizer.Output) Preview {
	p := Preview{Type: typePreview, Devices: make([]PreviewDevice, len(frames))}
	for i, f := range frames {
		d := PreviewDevice{Name: f.Device}
		for ch := range f.Pixels {
			d.Pixels[ch] = make([]int, len(f.Pixels[ch]))
			for j, v := range f.Pixels[ch] {
				d.Pixels[ch][j] = int(v)
			}
		}
		p.Devices[i] = d
	}
	return p
}
