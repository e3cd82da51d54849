// ABOUTME: WAV and AIFF decoders built on go-audio
// ABOUTME: Reads integer PCM in chunks and normalizes by source bit depth
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmChunkSamples is the number of samples read between cancellation checks
const pcmChunkSamples = 32 * 1024

// pcmReader is the common surface of the go-audio WAV and AIFF decoders
type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

func decodeWAV(ctx context.Context, data []byte) (*pcm, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wav: %w", ErrUnsupportedFormat)
	}
	// WAV stores 8-bit PCM unsigned
	return readPCM(ctx, dec, int(dec.BitDepth), dec.BitDepth == 8)
}

func decodeAIFF(ctx context.Context, data []byte) (*pcm, error) {
	dec := aiff.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("aiff: %w", ErrUnsupportedFormat)
	}
	dec.ReadInfo()
	return readPCM(ctx, dec, int(dec.BitDepth), false)
}

func readPCM(ctx context.Context, dec pcmReader, bitDepth int, unsigned bool) (*pcm, error) {
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, ErrEmptyStream
	}

	buf := &goaudio.IntBuffer{
		Data:   make([]int, pcmChunkSamples-pcmChunkSamples%format.NumChannels),
		Format: format,
	}
	var samples []float32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.PCMBuffer(buf)
		for _, s := range buf.Data[:n] {
			if unsigned {
				samples = append(samples, audio.Uint8ToFloat(s))
			} else {
				samples = append(samples, audio.IntToFloat(s, bitDepth))
			}
		}
		if n == 0 || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pcm read: %w", err)
		}
	}

	return &pcm{samples: samples, sampleRate: format.SampleRate, channels: format.NumChannels}, nil
}
