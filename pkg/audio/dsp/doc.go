// ABOUTME: DSP package documentation
// ABOUTME: Effects chain applied per voice block
// Package dsp implements the per-voice effects chain: a ten band graphic EQ
// applied in the frequency domain, a short feedback-delay reverb and a block
// peak limiter.
//
// A Processor is owned by one voice. Process runs on the audio callback; the
// expensive parts of a configuration change (delay line, EQ curve, FFT plan)
// are built by SetConfig on the calling goroutine and swapped in under a short
// lock.
package dsp
