// ABOUTME: Audio file decoder package for cue playback
// ABOUTME: Decodes whole files to interleaved float32 in the engine format
// Package decode turns audio files into immutable in-memory buffers.
//
// Supports: MP3, FLAC, WAV, AIFF, Ogg Vorbis and Ogg Opus.
//
// The codec is chosen from the file extension and, when that fails, from the
// leading magic bytes. Every result is converted to the decoder's target
// format (44.1 kHz stereo by default): mono is duplicated, extra channels are
// dropped and the sample rate is converted.
//
// Example:
//
//	dec := decode.New(audio.DefaultFormat(), logger)
//	buf, durationMs, err := dec.Decode("cues/intro.flac")
package decode
