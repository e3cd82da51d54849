// ABOUTME: File decoder that selects a codec and converts to the engine format
// ABOUTME: Handles channel mapping and sample-rate conversion after decoding
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/resample"
	resampler "github.com/tphakala/go-audio-resampler"
)

// pcm is a codec's raw output before conversion
type pcm struct {
	samples    []float32
	sampleRate int
	channels   int
}

// codec decodes a complete file held in memory
type codec func(ctx context.Context, data []byte) (*pcm, error)

var codecsByExt = map[string]codec{
	".mp3":  decodeMP3,
	".flac": decodeFLAC,
	".wav":  decodeWAV,
	".wave": decodeWAV,
	".aif":  decodeAIFF,
	".aiff": decodeAIFF,
	".aifc": decodeAIFF,
	".ogg":  decodeOgg,
	".oga":  decodeOgg,
	".opus": decodeOpus,
}

// Decoder loads audio files into buffers of a fixed target format.
// It is safe for concurrent use.
type Decoder struct {
	target audio.Format
	log    *log.Logger
}

// New creates a decoder producing buffers in target format. A zero or invalid
// target falls back to audio.DefaultFormat.
func New(target audio.Format, logger *log.Logger) *Decoder {
	if !target.Valid() {
		target = audio.DefaultFormat()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{
		target: target,
		log:    logger.WithPrefix("decode"),
	}
}

// Format returns the format of every buffer this decoder produces
func (d *Decoder) Format() audio.Format {
	return d.target
}

// Decode reads and decodes path
func (d *Decoder) Decode(path string) (*audio.Buffer, int, error) {
	return d.DecodeContext(context.Background(), path)
}

// DecodeContext reads and decodes path, giving up between codec chunks once
// ctx is done. The returned error is always a *Error.
func (d *Decoder) DecodeContext(ctx context.Context, path string) (*audio.Buffer, int, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, newError(path, ErrNotFound)
		}
		return nil, 0, newError(path, fmt.Errorf("read: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, newError(path, err)
	}

	dec := selectCodec(path, data)
	if dec == nil {
		return nil, 0, newError(path, ErrUnsupportedFormat)
	}

	raw, err := dec(ctx, data)
	if err != nil {
		return nil, 0, newError(path, err)
	}
	if raw.channels <= 0 || raw.sampleRate <= 0 || len(raw.samples) < raw.channels {
		return nil, 0, newError(path, ErrEmptyStream)
	}

	samples := mapChannels(raw.samples, raw.channels, d.target.Channels)
	if raw.sampleRate != d.target.SampleRate {
		samples = d.convertRate(samples, raw.sampleRate)
	}

	buf := audio.NewBuffer(samples, d.target)
	if buf.Frames == 0 {
		return nil, 0, newError(path, ErrEmptyStream)
	}

	d.log.Debug("decoded",
		"path", filepath.Base(path),
		"source_rate", raw.sampleRate,
		"source_channels", raw.channels,
		"frames", buf.Frames,
		"elapsed", time.Since(start))

	return buf, buf.DurationMs(), nil
}

// selectCodec picks a codec by extension, then by sniffing the header
func selectCodec(path string, data []byte) codec {
	if c, ok := codecsByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return sniff(data)
}

func sniff(data []byte) codec {
	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return decodeFLAC
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return decodeWAV
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("FORM")) &&
		(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))):
		return decodeAIFF
	case bytes.HasPrefix(data, []byte("OggS")):
		return decodeOgg
	case bytes.HasPrefix(data, []byte("ID3")):
		return decodeMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return decodeMP3
	}
	return nil
}

// decodeOgg dispatches an Ogg container to Opus or Vorbis by its first packet
func decodeOgg(ctx context.Context, data []byte) (*pcm, error) {
	head := data[:min(len(data), 128)]
	if bytes.Contains(head, []byte("OpusHead")) {
		return decodeOpus(ctx, data)
	}
	return decodeVorbis(ctx, data)
}

// mapChannels duplicates mono or keeps the first want channels
func mapChannels(in []float32, have, want int) []float32 {
	if have == want {
		return in
	}
	frames := len(in) / have
	out := make([]float32, frames*want)
	for i := 0; i < frames; i++ {
		src := in[i*have : i*have+have]
		dst := out[i*want : i*want+want]
		for ch := range dst {
			if ch < have {
				dst[ch] = src[ch]
			} else {
				dst[ch] = src[have-1]
			}
		}
	}
	return out
}

// convertRate resamples interleaved samples in the target channel layout.
// Channels are converted one at a time with the polyphase resampler; if it
// rejects the rate pair the linear resampler is used instead.
func (d *Decoder) convertRate(in []float32, fromRate int) []float32 {
	channels := d.target.Channels
	toRate := d.target.SampleRate
	frames := len(in) / channels

	planar := make([][]float64, channels)
	mono := make([]float64, frames)
	outFrames := -1
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			mono[i] = float64(in[i*channels+ch])
		}
		out, err := resampler.ResampleMono(mono, float64(fromRate), float64(toRate), resampler.QualityMedium)
		if err != nil {
			d.log.Debug("polyphase resample failed, using linear", "from", fromRate, "to", toRate, "err", err)
			return resample.Convert(in, fromRate, toRate, channels)
		}
		planar[ch] = out
		if outFrames < 0 || len(out) < outFrames {
			outFrames = len(out)
		}
	}

	out := make([]float32, outFrames*channels)
	for ch, samples := range planar {
		for i := 0; i < outFrames; i++ {
			out[i*channels+ch] = float32(samples[i])
		}
	}
	return out
}
