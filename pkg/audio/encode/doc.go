// ABOUTME: Audio encoder package for writing rendered audio
// ABOUTME: Provides Encoder interface and implementations for raw PCM and WAV
// Package encode writes the engine's float mix to files and streams.
//
// Supports: raw little-endian PCM (16-bit and 24-bit) and WAV.
//
// Example:
//
//	enc, err := encode.NewWAV(f, format, 16)
//	err = enc.Write(block)
//	err = enc.Close()
package encode
