// ABOUTME: Error values returned by the engine
// ABOUTME: DeviceError carries the requested device name and the cause
package engine

import (
	"errors"
	"fmt"
)

var (
	ErrClosed  = errors.New("engine closed")
	ErrNoMedia = errors.New("no media loaded")
)

// DeviceError reports an output device that could not be found or opened
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	name := e.Device
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("output device %q: %v", name, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
