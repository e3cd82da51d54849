// ABOUTME: Frequency-domain graphic equalizer
// ABOUTME: Builds per-block gain curves and applies them with a real FFT per channel
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// eqMinFrames is the shortest block the EQ will touch
const eqMinFrames = 8

// maxCachedCurves bounds the curve cache; it is dropped wholesale when full
const maxCachedCurves = 16

type curveKey struct {
	frames int
	bands  [NumBands]int
}

type equalizer struct {
	sampleRate int

	curves map[curveKey][]float64
	ffts   map[int]*fourier.FFT

	seq   []float64
	coeff []complex128
}

func newEqualizer(sampleRate int) *equalizer {
	return &equalizer{
		sampleRate: sampleRate,
		curves:     make(map[curveKey][]float64),
		ffts:       make(map[int]*fourier.FFT),
	}
}

// install stores a curve and FFT plan built off the render path and sizes
// the scratch space for blocks of frames.
func (e *equalizer) install(frames int, bands [NumBands]int, curve []float64, fft *fourier.FFT) {
	key := curveKey{frames: frames, bands: bands}
	if _, ok := e.curves[key]; !ok {
		if len(e.curves) >= maxCachedCurves {
			clear(e.curves)
		}
		e.curves[key] = curve
	}
	if _, ok := e.ffts[frames]; !ok {
		e.ffts[frames] = fft
	}
	e.scratch(frames)
}

func (e *equalizer) apply(block []float32, channels int, bands [NumBands]int) {
	frames := len(block) / channels
	if frames <= eqMinFrames {
		return
	}
	curve := e.curve(frames, bands)
	fft := e.fft(frames)
	e.scratch(frames)

	inv := 1.0 / float64(frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			e.seq[i] = float64(block[i*channels+ch])
		}
		fft.Coefficients(e.coeff, e.seq)
		for k := range e.coeff {
			e.coeff[k] *= complex(curve[k], 0)
		}
		fft.Sequence(e.seq, e.coeff)
		for i := 0; i < frames; i++ {
			block[i*channels+ch] = float32(e.seq[i] * inv)
		}
	}
}

func (e *equalizer) curve(frames int, bands [NumBands]int) []float64 {
	key := curveKey{frames: frames, bands: bands}
	if c, ok := e.curves[key]; ok {
		return c
	}
	if len(e.curves) >= maxCachedCurves {
		clear(e.curves)
	}
	c := buildCurve(frames, e.sampleRate, bands)
	e.curves[key] = c
	return c
}

func (e *equalizer) fft(frames int) *fourier.FFT {
	if f, ok := e.ffts[frames]; ok {
		return f
	}
	f := fourier.NewFFT(frames)
	e.ffts[frames] = f
	return f
}

func (e *equalizer) scratch(frames int) {
	if cap(e.seq) < frames {
		e.seq = make([]float64, frames)
	}
	e.seq = e.seq[:frames]
	bins := frames/2 + 1
	if cap(e.coeff) < bins {
		e.coeff = make([]complex128, bins)
	}
	e.coeff = e.coeff[:bins]
}

// buildCurve returns the linear gain for each real-FFT bin of a frames-long
// block. Band gains are interpolated linearly in dB over log2 frequency and
// held flat outside the outermost bands.
func buildCurve(frames, sampleRate int, bands [NumBands]int) []float64 {
	var logCenters [NumBands]float64
	for i, f := range BandCenters {
		logCenters[i] = math.Log2(f)
	}

	bins := frames/2 + 1
	curve := make([]float64, bins)
	for k := 0; k < bins; k++ {
		freq := float64(k) * float64(sampleRate) / float64(frames)
		if freq < BandCenters[0] {
			freq = BandCenters[0]
		}
		if freq > BandCenters[NumBands-1] {
			freq = BandCenters[NumBands-1]
		}
		db := interpolate(math.Log2(freq), logCenters[:], bands[:])
		curve[k] = math.Pow(10, db/20)
	}
	return curve
}

func interpolate(x float64, xs []float64, ys []int) float64 {
	if x <= xs[0] {
		return float64(ys[0])
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return float64(ys[last])
	}
	for i := 1; i <= last; i++ {
		if x <= xs[i] {
			t := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return float64(ys[i-1]) + t*float64(ys[i]-ys[i-1])
		}
	}
	return float64(ys[last])
}
