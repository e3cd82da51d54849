// ABOUTME: WAV file encoder
// ABOUTME: Streams float samples into a go-audio/wav encoder
package encode

import (
	"io"

	"github.com/cuedeck/cuedeck/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder writes a RIFF/WAVE file. The header is patched on Close, so
// the destination must be seekable.
type WAVEncoder struct {
	enc      *wav.Encoder
	bitDepth int
	buf      goaudio.IntBuffer
	closed   bool
}

// NewWAV creates a WAV encoder for format at bitDepth
func NewWAV(w io.WriteSeeker, format audio.Format, bitDepth int) (*WAVEncoder, error) {
	if err := checkBitDepth(bitDepth); err != nil {
		return nil, err
	}
	return &WAVEncoder{
		enc:      wav.NewEncoder(w, format.SampleRate, bitDepth, format.Channels, 1),
		bitDepth: bitDepth,
		buf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write encodes samples
func (e *WAVEncoder) Write(samples []float32) error {
	if e.closed {
		return ErrClosed
	}
	if cap(e.buf.Data) < len(samples) {
		e.buf.Data = make([]int, len(samples))
	}
	e.buf.Data = e.buf.Data[:len(samples)]
	for i, s := range samples {
		e.buf.Data[i] = int(quantize(s, e.bitDepth))
	}
	return e.enc.Write(&e.buf)
}

// Close writes the final header. The underlying writer is not closed.
func (e *WAVEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.enc.Close()
}
