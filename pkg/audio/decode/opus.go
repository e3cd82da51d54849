// ABOUTME: Ogg Opus decoder
// ABOUTME: Decodes Ogg Opus files through libopusfile at 48 kHz
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"
)

// opusRate is the fixed output rate of libopusfile
const opusRate = 48000

// opusMaxFrame is the largest frame libopusfile returns, per channel
const opusMaxFrame = 5760

func decodeOpus(ctx context.Context, data []byte) (*pcm, error) {
	channels := opusChannels(data)
	if channels <= 0 {
		return nil, fmt.Errorf("opus: missing OpusHead: %w", ErrUnsupportedFormat)
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opus stream: %w", err)
	}
	defer stream.Close()

	frame := make([]float32, opusMaxFrame*channels)
	var samples []float32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := stream.ReadFloat32(frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus decode: %w", err)
		}
		samples = append(samples, frame[:n*channels]...)
	}

	return &pcm{samples: samples, sampleRate: opusRate, channels: channels}, nil
}

// opusChannels reads the channel count from the OpusHead identification
// header; libopusfile down-mixes nothing, so it sets the interleave stride.
func opusChannels(data []byte) int {
	idx := bytes.Index(data[:min(len(data), 256)], []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(data) {
		return 0
	}
	return int(data[idx+9])
}
