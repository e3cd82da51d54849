// ABOUTME: FLAC decoder
// ABOUTME: Decodes FLAC frame by frame to interleaved float32
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/mewkiz/flac"
)

func decodeFLAC(ctx context.Context, data []byte) (*pcm, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flac header: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels <= 0 {
		return nil, ErrEmptyStream
	}

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac frame: %w", err)
		}
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, audio.IntToFloat(int(frame.Subframes[ch].Samples[i]), bitDepth))
			}
		}
	}

	return &pcm{samples: samples, sampleRate: int(info.SampleRate), channels: channels}, nil
}
