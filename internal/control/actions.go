// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"errors"
	"fmt"

	"ledviz/internal/effect"
)

var errUnknownAction = errors.New("unknown action")

type handler func(s *Server, c *client, data json.RawMessage) (any, error)

type deviceArgs struct {
	Device string `json:"device"`
}

var actions = map[string]handler{
	"get/devices": func(s *Server, _ *client, _ json.RawMessage) (any, error) {
		return s.o.DeviceInfos(), nil
	},
	"get/device": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args deviceArgs
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		d, err := s.o.Device(args.Device)
		if err != nil {
			return nil, err
		}
		return d.Info(), nil
	},
	"get/brightness": func(s *Server, _ *client, _ json.RawMessage) (any, error) {
		return map[string]float64{"brightness": s.o.Brightness()}, nil
	},
	"set/brightness": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Brightness *float64 `json:"brightness"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		if args.Brightness == nil {
			return nil, fmt.Errorf("%w: brightness is required", errBadRequest)
		}
		return nil, s.o.SetBrightness(*args.Brightness)
	},
	"get/sync": func(s *Server, _ *client, _ json.RawMessage) (any, error) {
		return map[string]bool{"sync": s.o.Sync()}, nil
	},
	"set/sync": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Sync *bool `json:"sync"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		if args.Sync == nil {
			return nil, fmt.Errorf("%w: sync is required", errBadRequest)
		}
		s.o.SetSync(*args.Sync)
		return nil, nil
	},
	"set/effect": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Device string `json:"device"`
			Effect string `json:"effect"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.SetEffect(args.Device, args.Effect)
	},
	"set/option": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Device string `json:"device"`
			Effect string `json:"effect"`
			Key    string `json:"key"`
			Value  any    `json:"value"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.SetOption(args.Device, args.Effect, args.Key, args.Value)
	},
	"set/options": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Device  string                    `json:"device"`
			Options map[string]effect.Options `json:"options"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.SetOptions(args.Device, args.Options)
	},
	"set/frequency/min": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		args, err := frequencyArgs(data)
		if err != nil {
			return nil, err
		}
		return nil, s.o.SetFrequencyMin(args.Device, args.Frequency)
	},
	"set/frequency/max": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		args, err := frequencyArgs(data)
		if err != nil {
			return nil, err
		}
		return nil, s.o.SetFrequencyMax(args.Device, args.Frequency)
	},
	"set/pixels": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Device string `json:"device"`
			Pixels int    `json:"n_pixels"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.SetPixelCount(args.Device, args.Pixels)
	},
	"get/profiles": func(s *Server, _ *client, _ json.RawMessage) (any, error) {
		names, err := s.o.Profiles()
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = []string{}
		}
		return map[string][]string{"profiles": names}, nil
	},
	"profile/save": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Name string `json:"name"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.SaveProfile(args.Name)
	},
	"profile/load": func(s *Server, _ *client, data json.RawMessage) (any, error) {
		var args struct {
			Name string `json:"name"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		return nil, s.o.LoadProfile(args.Name)
	},
	"get/stats": func(s *Server, _ *client, _ json.RawMessage) (any, error) {
		return s.o.Stats(), nil
	},
	"preview/subscribe": func(_ *Server, c *client, data json.RawMessage) (any, error) {
		var args struct {
			Enabled bool `json:"enabled"`
		}
		if err := decode(data, &args); err != nil {
			return nil, err
		}
		c.preview.Store(args.Enabled)
		return nil, nil
	},
}

type freqArgs struct {
	Device    string  `json:"device"`
	Frequency float64 `json:"frequency"`
}

func frequencyArgs(data json.RawMessage) (freqArgs, error) {
	var args freqArgs
	err := decode(data, &args)
	return args, err
}

func (s *Server) dispatch(c *client, req Request) Response {
	resp := Response{Type: typeResponse, ID: req.ID}
	h, ok := actions[req.Action]
	var (
		result any
		err    error
	)
	if !ok {
		err = fmt.Errorf("%w: %q", errUnknownAction, req.Action)
	} else {
		result, err = h(s, c, req.Data)
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = errorCode(err)
		logger.Debugf("%s rejected: %v", req.Action, err)
		return resp
	}
	resp.OK = true
	resp.Result = result
	return resp
}
