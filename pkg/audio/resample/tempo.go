// ABOUTME: Variable-rate source reader and intra-block pitch resampler
// ABOUTME: Implements tempo (source advance rate) and pitch (block-local stretch) independently
package resample

import "math"

const (
	MinTempoRatio = 0.7
	MaxTempoRatio = 1.3

	MinPitchRatio = 0.5
	MaxPitchRatio = 1.6

	// pitchEpsilon is the smallest deviation from unity worth resampling for
	pitchEpsilon = 1e-4
)

// TempoRatio maps a tempo percentage to the source advance rate
func TempoRatio(tempoPct float64) float64 {
	return clamp(1.0+tempoPct/100.0, MinTempoRatio, MaxTempoRatio)
}

// PitchRatio is the intra-block ratio that yields the requested pitch once the
// pitch change already caused by tempo is divided out. The result is not yet
// clamped to [MinPitchRatio, MaxPitchRatio]; PitchShift does that.
func PitchRatio(pitchPct, tempoRatio float64) float64 {
	if tempoRatio <= 0 {
		tempoRatio = 1.0
	}
	return clamp(1.0+pitchPct/100.0, MinTempoRatio, MaxTempoRatio) / tempoRatio
}

// NeedsPitchShift reports whether ratio differs enough from unity to process
func NeedsPitchShift(ratio float64) bool {
	return math.Abs(ratio-1.0) > pitchEpsilon
}

// ReadTempo fills dst with len(dst)/channels output frames read from the
// interleaved src starting at fractional frame pos and advancing by ratio
// per output frame, using linear interpolation between neighbouring frames.
//
// Output frames whose source index lands at or beyond the last frame are
// zero-filled and reported via exhausted. valid is the number of frames that
// carry audio; next is the position of the following block, snapped to the
// frame count once the end is reached.
func ReadTempo(dst, src []float32, channels int, pos, ratio float64) (valid int, next float64, exhausted bool) {
	if channels <= 0 {
		return 0, pos, true
	}
	frames := len(dst) / channels
	srcFrames := len(src) / channels
	last := float64(srcFrames - 1)

	for i := 0; i < frames; i++ {
		idx := pos + float64(i)*ratio
		if srcFrames <= 1 || idx >= last || idx < 0 {
			break
		}
		i0 := int(idx)
		frac := float32(idx - float64(i0))
		i1 := i0 + 1
		base0 := i0 * channels
		base1 := i1 * channels
		out := i * channels
		for ch := 0; ch < channels; ch++ {
			s0 := src[base0+ch]
			s1 := src[base1+ch]
			dst[out+ch] = s0*(1.0-frac) + s1*frac
		}
		valid++
	}

	for i := valid * channels; i < frames*channels; i++ {
		dst[i] = 0
	}

	next = pos + float64(frames)*ratio
	if srcFrames <= 1 || next >= last {
		next = float64(max(srcFrames, 0))
	}
	return valid, next, valid < frames
}

// PitchShift stretches the block in src by ratio into dst (same length) by
// reading src at positions i*ratio, clipped to the last frame. This keeps
// zero added latency at the cost of small discontinuities at block edges.
func PitchShift(dst, src []float32, channels int, ratio float64) {
	if channels <= 0 {
		return
	}
	frames := len(src) / channels
	if frames <= 1 {
		copy(dst, src)
		return
	}
	ratio = clamp(ratio, MinPitchRatio, MaxPitchRatio)
	last := float64(frames - 1)

	for i := 0; i < frames; i++ {
		x := float64(i) * ratio
		if x > last {
			x = last
		}
		i0 := int(x)
		frac := float32(x - float64(i0))
		i1 := i0 + 1
		if i1 > frames-1 {
			i1 = frames - 1
		}
		out := i * channels
		for ch := 0; ch < channels; ch++ {
			s0 := src[i0*channels+ch]
			s1 := src[i1*channels+ch]
			dst[out+ch] = s0*(1.0-frac) + s1*frac
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
