// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Sample rate conversion plus tempo and pitch resampling for playback
// Package resample provides linear-interpolation resampling.
//
// Three operations are offered:
//   - Resampler / Convert: sample rate conversion between two fixed rates
//   - ReadTempo: reads a block from a source buffer at a variable advance rate
//   - PitchShift: stretches a block in place of its own sample positions
//
// Tempo and pitch are decoupled: tempo changes how fast the source position
// advances (and therefore duration and pitch), while the pitch ratio returned
// by PitchRatio compensates so the perceived pitch follows the pitch setting.
//
// Example:
//
//	tempo := resample.TempoRatio(cfg.TempoPct)
//	valid, next, done := resample.ReadTempo(block, buf.Samples, 2, pos, tempo)
//	if r := resample.PitchRatio(cfg.PitchPct, tempo); resample.NeedsPitchShift(r) {
//	    resample.PitchShift(shifted, block, 2, r)
//	}
package resample
