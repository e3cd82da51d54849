// ABOUTME: Audio type definitions
// ABOUTME: Defines the engine format and immutable decoded buffers
package audio

import "time"

const (
	// Engine operating format. Every decoded buffer is converted to it.
	DefaultSampleRate = 44100
	DefaultChannels   = 2

	// DefaultBlockFrames is the callback block size requested from drivers
	// (~23ms at 44.1kHz).
	DefaultBlockFrames = 1024

	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM layout
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat returns the engine's operating format
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// Valid reports whether the format can carry audio
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// Buffer is decoded audio held in memory.
//
// Samples are interleaved float32 in [-1, 1], Frames*Channels long. A Buffer
// is never mutated after decode, so it can be shared between the preload
// cache and any number of voices without locking.
type Buffer struct {
	Samples []float32
	Format  Format
	Frames  int
}

// NewBuffer wraps interleaved samples. Trailing samples that do not fill a
// whole frame are dropped.
func NewBuffer(samples []float32, format Format) *Buffer {
	frames := 0
	if format.Channels > 0 {
		frames = len(samples) / format.Channels
	}
	return &Buffer{
		Samples: samples[:frames*format.Channels],
		Format:  format,
		Frames:  frames,
	}
}

// SizeBytes is the memory held by the sample data
func (b *Buffer) SizeBytes() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Samples)) * 4
}

// Duration of the buffer at its sample rate
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames) / float64(b.Format.SampleRate) * float64(time.Second))
}

// DurationMs is Duration truncated to whole milliseconds
func (b *Buffer) DurationMs() int {
	if b == nil || b.Format.SampleRate <= 0 {
		return 0
	}
	return int(float64(b.Frames) / float64(b.Format.SampleRate) * 1000.0)
}

// Int16ToFloat converts a signed 16-bit sample to [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / 32768.0
}

// IntToFloat converts a signed integer sample of the given bit depth to [-1, 1)
func IntToFloat(sample int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(sample) / 128.0
	case 16:
		return float32(sample) / 32768.0
	case 24:
		return float32(sample) / 8388608.0
	case 32:
		return float32(float64(sample) / 2147483648.0)
	default:
		if bitDepth <= 0 || bitDepth > 32 {
			return 0
		}
		return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
	}
}

// Uint8ToFloat converts an unsigned 8-bit sample, as stored in WAV files
func Uint8ToFloat(sample int) float32 {
	return (float32(sample) - 128.0) / 128.0
}

// FloatToInt16 converts a float sample to 16-bit with clipping
func FloatToInt16(sample float32) int16 {
	if sample >= 1.0 {
		return 32767
	}
	if sample <= -1.0 {
		return -32768
	}
	return int16(sample * 32767.0)
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
