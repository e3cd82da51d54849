// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-model Output interface and its backends
// Package output provides audio playback backends.
//
// Backends pull audio: the driver calls a RenderFunc with a buffer to fill
// at its own block cadence. Supported backends are malgo (miniaudio, with
// device enumeration), oto, PortAudio (build with -tags portaudio) and a null
// sink for offline rendering.
//
// Example:
//
//	out := output.NewMalgo(logger)
//	err := out.Open(output.Config{SampleRate: 44100, Channels: 2, BlockFrames: 1024}, engine.Render)
//	defer out.Close()
package output
