// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for writers of rendered mix audio
package encode

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("encoder closed")

// Encoder writes interleaved float32 samples to an output format
type Encoder interface {
	// Write encodes samples in [-1, 1]; values outside are clipped
	Write(samples []float32) error

	// Close flushes headers and trailing data
	Close() error
}

func checkBitDepth(bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}
	return nil
}

// quantize converts a float sample to a signed integer of bitDepth bits
// with clipping
func quantize(sample float32, bitDepth int) int32 {
	full := float32(int32(1)<<(bitDepth-1)) - 1
	switch {
	case sample >= 1:
		return int32(full)
	case sample <= -1:
		return -int32(full) - 1
	default:
		return int32(sample * full)
	}
}
