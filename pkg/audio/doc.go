// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the fundamental types shared by the cuedeck engine.
//
// This package defines:
//   - Format: sample rate and channel count of a PCM layout
//   - Buffer: immutable decoded audio as interleaved float32
//
// It also provides conversions from integer PCM of any common bit depth to
// float32 and back.
//
// Example:
//
//	buf := audio.NewBuffer(samples, audio.DefaultFormat())
//	fmt.Println(buf.Frames, buf.DurationMs(), buf.SizeBytes())
package audio
