// ABOUTME: Four-tap feedback delay reverb with a saturating feedback path
// ABOUTME: Delay length follows the configured decay; state carries across blocks
package dsp

import "math"

var (
	reverbTapsMs   = [4]float64{21, 37, 61, 89}
	reverbTapGains = [4]float32{0.78, 0.56, 0.39, 0.28}
)

type reverb struct {
	sampleRate int
	channels   int

	buf      []float32 // frames * channels
	frames   int
	writeIdx int

	echo []float32
}

// reverbFrames is the delay line length for a decay setting in seconds
func reverbFrames(sampleRate int, reverbSec float64) int {
	amount := clampFinite(reverbSec, 0, MaxReverbSec) / MaxReverbSec
	return max(1, int(float64(sampleRate)*(0.20+0.60*amount)))
}

func newReverb(sampleRate, channels int, reverbSec float64, blockFrames int) *reverb {
	frames := reverbFrames(sampleRate, reverbSec)
	return &reverb{
		sampleRate: sampleRate,
		channels:   channels,
		buf:        make([]float32, frames*channels),
		frames:     frames,
		echo:       make([]float32, max(blockFrames, 0)*channels),
	}
}

func (r *reverb) reset() {
	clear(r.buf)
	r.writeIdx = 0
}

func (r *reverb) ensureEcho(samples int) {
	if cap(r.echo) < samples {
		r.echo = make([]float32, samples)
	}
	r.echo = r.echo[:samples]
}

// apply mixes the echo network into block. All taps for the block are read
// before any of the block is written back to the delay line.
func (r *reverb) apply(block []float32, reverbSec float64) {
	amount := clampFinite(reverbSec, 0, MaxReverbSec) / MaxReverbSec
	if amount <= activeEpsilon {
		return
	}
	wet := float32(0.10 + 0.72*amount)
	feedback := float32(0.12 + 0.34*amount)
	dilation := 0.95 + 1.05*amount

	var delays [4]int
	for i, ms := range reverbTapsMs {
		d := int(float64(r.sampleRate) * ms * dilation / 1000)
		delays[i] = max(1, min(r.frames-1, d))
	}

	ch := r.channels
	frames := len(block) / ch
	r.ensureEcho(frames * ch)
	clear(r.echo)

	for i := 0; i < frames; i++ {
		w := (r.writeIdx + i) % r.frames
		for t, d := range delays {
			rd := ((w-d)%r.frames + r.frames) % r.frames
			g := reverbTapGains[t]
			for c := 0; c < ch; c++ {
				r.echo[i*ch+c] += r.buf[rd*ch+c] * g
			}
		}
	}

	for i := 0; i < frames; i++ {
		w := (r.writeIdx + i) % r.frames
		for c := 0; c < ch; c++ {
			s := i*ch + c
			x := block[s]
			e := r.echo[s]
			r.buf[w*ch+c] = float32(math.Tanh(0.9 * float64(x+e*feedback)))
			block[s] = x + e*wet
		}
	}
	r.writeIdx = (r.writeIdx + frames) % r.frames
}
