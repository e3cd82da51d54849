//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(_ *log.Logger) *PortAudio {
	return &PortAudio{}
}

// Name returns the backend name
func (p *PortAudio) Name() string { return BackendPortAudio }

// Devices reports that the backend is not compiled in
func (p *PortAudio) Devices() ([]string, error) {
	return nil, fmt.Errorf("%w: build with -tags portaudio", ErrBackendUnavailable)
}

// Open reports that the backend is not compiled in
func (p *PortAudio) Open(Config, RenderFunc) error {
	return fmt.Errorf("%w: build with -tags portaudio", ErrBackendUnavailable)
}

// Close is a no-op
func (p *PortAudio) Close() error {
	return nil
}
