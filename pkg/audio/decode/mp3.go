// ABOUTME: MP3 decoder
// ABOUTME: Decodes MP3 to float32, skipping leading junk before the first frame sync
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// mp3ReadChunk is the number of PCM bytes read between cancellation checks
const mp3ReadChunk = 64 * 1024

func decodeMP3(ctx context.Context, data []byte) (*pcm, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		// Some files carry garbage before the first frame. Retry from the
		// first frame sync.
		offset := findFrameSync(data)
		if offset <= 0 {
			return nil, fmt.Errorf("mp3 header: %w", err)
		}
		dec, err = mp3.NewDecoder(bytes.NewReader(data[offset:]))
		if err != nil {
			return nil, fmt.Errorf("mp3 header after %d junk bytes: %w", offset, err)
		}
	}

	// go-mp3 always produces 16-bit little-endian stereo
	const channels = 2
	samples := make([]float32, 0, max(dec.Length()/2, 0))
	buf := make([]byte, mp3ReadChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.Read(buf)
		n -= n % 2
		for i := 0; i < n; i += 2 {
			samples = append(samples, audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(buf[i:]))))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(samples) > 0 {
				// Keep what decoded cleanly before a truncated tail
				break
			}
			return nil, fmt.Errorf("mp3 decode: %w", err)
		}
	}

	return &pcm{samples: samples, sampleRate: dec.SampleRate(), channels: channels}, nil
}

// findFrameSync returns the offset of the first MPEG frame sync, or -1
func findFrameSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return i
		}
	}
	return -1
}
