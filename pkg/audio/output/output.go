// ABOUTME: Audio output interface definition
// ABOUTME: Pull-model backends call a render function from the driver's thread
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
)

// Backend names accepted by New and Candidates
const (
	BackendAuto      = "auto"
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

var (
	ErrDeviceNotFound     = errors.New("output device not found")
	ErrBackendUnavailable = errors.New("output backend unavailable")
	ErrNotOpen            = errors.New("output not open")
)

// RenderFunc fills out with interleaved float32 samples. It is called on the
// driver's thread and must not block.
type RenderFunc func(out []float32)

// Config describes the stream to open
type Config struct {
	SampleRate  int
	Channels    int
	BlockFrames int
	// Device is the output device name; empty selects the system default.
	Device string
}

// Output represents an audio output device
type Output interface {
	// Open starts a stream that pulls audio from render
	Open(cfg Config, render RenderFunc) error

	// Close stops the stream; render is not called after Close returns
	Close() error

	// Name is the backend name
	Name() string
}

// DeviceLister is implemented by backends that can enumerate output devices
type DeviceLister interface {
	Devices() ([]string, error)
}

// New creates a single backend by name
func New(backend string, logger *log.Logger) (Output, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch strings.ToLower(backend) {
	case BackendMalgo:
		return NewMalgo(logger), nil
	case BackendOto:
		return NewOto(logger), nil
	case BackendPortAudio:
		return NewPortAudio(logger), nil
	case BackendNull:
		return NewNull(logger, true), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", backend)
	}
}

// Candidates returns the backends to try in order. "auto" (or empty) tries
// malgo first and oto second.
func Candidates(backend string, logger *log.Logger) ([]Output, error) {
	if backend == "" || strings.EqualFold(backend, BackendAuto) {
		if logger == nil {
			logger = log.Default()
		}
		return []Output{NewMalgo(logger), NewOto(logger)}, nil
	}
	out, err := New(backend, logger)
	if err != nil {
		return nil, err
	}
	return []Output{out}, nil
}

// putFloat32LE encodes samples as little-endian float32 into dst
func putFloat32LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// blockRenderer fills device buffers of any size from a fixed block, so
// the audio callback never allocates
type blockRenderer struct {
	render   RenderFunc
	channels int
	buf      []float32
}

func newBlockRenderer(render RenderFunc, channels, blockFrames int) *blockRenderer {
	channels = max(channels, 1)
	return &blockRenderer{
		render:   render,
		channels: channels,
		buf:      make([]float32, max(blockFrames, 1)*channels),
	}
}

// fill renders frames into dst as little-endian float32, one block at a time
func (b *blockRenderer) fill(dst []byte, frames int) {
	block := len(b.buf) / b.channels
	for frames > 0 {
		n := min(frames, block)
		chunk := b.buf[:n*b.channels]
		b.render(chunk)
		putFloat32LE(dst, chunk)
		dst = dst[len(chunk)*4:]
		frames -= n
	}
}
