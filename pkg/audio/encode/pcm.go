// ABOUTME: Raw PCM encoder
// ABOUTME: Writes float samples as 16-bit or 24-bit little-endian PCM
package encode

import (
	"encoding/binary"
	"io"

	"github.com/cuedeck/cuedeck/pkg/audio"
)

// PCMEncoder writes headerless PCM
type PCMEncoder struct {
	w        io.Writer
	bitDepth int
	buf      []byte
	closed   bool
}

// NewPCM creates a raw PCM encoder writing to w
func NewPCM(w io.Writer, bitDepth int) (*PCMEncoder, error) {
	if err := checkBitDepth(bitDepth); err != nil {
		return nil, err
	}
	return &PCMEncoder{w: w, bitDepth: bitDepth}, nil
}

// Write encodes samples and writes them
func (e *PCMEncoder) Write(samples []float32) error {
	if e.closed {
		return ErrClosed
	}
	width := e.bitDepth / 8
	if need := len(samples) * width; cap(e.buf) < need {
		e.buf = make([]byte, need)
	}
	out := e.buf[:len(samples)*width]

	if e.bitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		for i, s := range samples {
			v := quantize(s, 24)
			out[i*3] = byte(v)
			out[i*3+1] = byte(v >> 8)
			out[i*3+2] = byte(v >> 16)
		}
	} else {
		for i, s := range samples {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.FloatToInt16(s)))
		}
	}
	_, err := e.w.Write(out)
	return err
}

// Close marks the encoder closed; the writer is left open
func (e *PCMEncoder) Close() error {
	e.closed = true
	return nil
}
