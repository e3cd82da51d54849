// ABOUTME: Output device enumeration and hot switching
// ABOUTME: A new stream is opened before the old one is closed
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cuedeck/cuedeck/pkg/audio/output"
)

// ListOutputDevices returns the output device names of the configured
// backends, deduplicated case-insensitively in enumeration order
func (e *Engine) ListOutputDevices() ([]string, error) {
	outs, err := e.cfg.Outputs()
	if err != nil {
		return nil, err
	}
	defer e.release(outs...)

	var names []string
	var errs []error
	for _, o := range outs {
		lister, ok := o.(output.DeviceLister)
		if !ok {
			continue
		}
		devices, err := lister.Devices()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
			continue
		}
		names = append(names, devices...)
	}
	names = dedupeDevices(names)
	if len(names) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return names, nil
}

// SetOutputDevice switches to the named device and reports success. An
// unknown name or a device that fails to open leaves the current stream
// running.
func (e *Engine) SetOutputDevice(name string) bool {
	if err := e.SelectOutputDevice(name); err != nil {
		e.log.Warn("output device not changed", "err", err)
		return false
	}
	return true
}

// SelectOutputDevice is SetOutputDevice returning the failure. The name is
// matched case-insensitively against ListOutputDevices; an empty name opens
// the default device.
func (e *Engine) SelectOutputDevice(name string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	name = strings.TrimSpace(name)
	if name != "" {
		devices, err := e.ListOutputDevices()
		if err != nil {
			return &DeviceError{Device: name, Err: err}
		}
		match, ok := matchDevice(devices, name)
		if !ok {
			return &DeviceError{Device: name, Err: output.ErrDeviceNotFound}
		}
		name = match
	}

	outs, err := e.cfg.Outputs()
	if err != nil {
		return &DeviceError{Device: name, Err: err}
	}
	cfg := output.Config{
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		BlockFrames: e.cfg.BlockFrames,
		Device:      name,
	}

	var errs []error
	for i, o := range outs {
		if err := o.Open(cfg, e.Render); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
			e.release(o)
			continue
		}
		e.swapOutput(o, name)
		e.release(outs[i+1:]...)
		return nil
	}
	if len(errs) == 0 {
		errs = append(errs, output.ErrBackendUnavailable)
	}
	return &DeviceError{Device: name, Err: errors.Join(errs...)}
}

// Output returns the open output, or nil before Start
func (e *Engine) Output() output.Output {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	return e.out
}

// release closes backend instances that were not kept. The open output is
// never closed here.
func (e *Engine) release(outs ...output.Output) {
	current := e.Output()
	for _, o := range outs {
		if o == nil || o == current {
			continue
		}
		if err := o.Close(); err != nil {
			e.log.Debug("releasing output", "backend", o.Name(), "err", err)
		}
	}
}

func (e *Engine) useNullSink() error {
	null := output.NewNull(e.cfg.Logger, true)
	if err := null.Open(output.Config{
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		BlockFrames: e.cfg.BlockFrames,
	}, e.Render); err != nil {
		return err
	}
	e.log.Warn("no output device, rendering to null sink")
	e.swapOutput(null, "")
	return nil
}

func (e *Engine) swapOutput(next output.Output, device string) {
	e.outMu.Lock()
	prev := e.out
	e.out = next
	e.deviceName = device
	e.outMu.Unlock()

	if prev != nil && prev != next {
		if err := prev.Close(); err != nil {
			e.log.Warn("closing previous output", "backend", prev.Name(), "err", err)
		}
	}
	e.drift.Reset()
	e.log.Info("output opened", "backend", next.Name(), "device", deviceLabel(device))
}

func matchDevice(devices []string, name string) (string, bool) {
	for _, d := range devices {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	return "", false
}

func dedupeDevices(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

func deviceLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
