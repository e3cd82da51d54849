// ABOUTME: Ogg Vorbis decoder
// ABOUTME: Streams float32 samples out of jfreymuth/oggvorbis
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

func decodeVorbis(ctx context.Context, data []byte) (*pcm, error) {
	r, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("vorbis header: %w", err)
	}

	channels := r.Channels()
	if channels <= 0 {
		return nil, ErrEmptyStream
	}
	chunk := make([]float32, 4096*channels)
	var samples []float32
	if n := r.Length(); n > 0 {
		samples = make([]float32, 0, int(n)*channels)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		samples = append(samples, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vorbis decode: %w", err)
		}
	}

	return &pcm{samples: samples, sampleRate: r.SampleRate(), channels: channels}, nil
}
