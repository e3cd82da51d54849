// ABOUTME: Tests for the effects chain
// ABOUTME: EQ bypass identity, reverb energy bound and limiter
package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100

func sine(frames, channels int, freq, amp float64) []float32 {
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(amp * math.Sin(2*math.Pi*freq*float64(i)/testRate))
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = v
		}
	}
	return out
}

func peak(block []float32) float64 {
	var p float64
	for _, s := range block {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}

func TestEQBypassIsIdentity(t *testing.T) {
	configs := map[string]Config{
		"disabled": {EQEnabled: false, EQBands: [NumBands]int{12, 12, 12, 12, 12, 12, 12, 12, 12, 12}},
		"flat":     {EQEnabled: true},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			p := New(testRate, 2, 1024)
			p.SetConfig(cfg)

			in := sine(1024, 2, 440, 0.5)
			out := append([]float32(nil), in...)
			p.Process(out)

			assert.Equal(t, in, out)
		})
	}
}

func TestEQFlatBoost(t *testing.T) {
	p := New(testRate, 2, 1024)
	var bands [NumBands]int
	for i := range bands {
		bands[i] = 12
	}
	p.SetConfig(Config{EQEnabled: true, EQBands: bands})

	in := sine(1024, 2, 1000, 0.1)
	out := append([]float32(nil), in...)
	p.Process(out)

	gain := math.Pow(10, 12.0/20.0)
	for i := range in {
		require.InDelta(t, float64(in[i])*gain, float64(out[i]), 1e-4, "sample %d", i)
	}
}

func TestEQSkipsTinyBlocks(t *testing.T) {
	p := New(testRate, 1, 8)
	p.SetConfig(Config{EQEnabled: true, EQBands: [NumBands]int{12, 12, 12, 12, 12, 12, 12, 12, 12, 12}})

	in := []float32{0.1, 0.2, 0.3, 0.4, 0.3, 0.2, 0.1, 0}
	out := append([]float32(nil), in...)
	p.Process(out)

	assert.Equal(t, in, out)
}

func TestEQCurveInterpolation(t *testing.T) {
	bands := [NumBands]int{0, 0, 0, 0, 0, 6, 0, 0, 0, 0}
	curve := buildCurve(44100, testRate, bands) // one bin per Hz

	assert.InDelta(t, math.Pow(10, 6.0/20), curve[1000], 1e-9)
	assert.InDelta(t, 1.0, curve[500], 1e-9)
	assert.InDelta(t, 1.0, curve[0], 1e-9, "DC holds the lowest band")
	// Halfway between 1k and 2k in log2 frequency sits at 3 dB.
	assert.InDelta(t, math.Pow(10, 3.0/20), curve[1414], 1e-3)
}

func TestReverbEchoArrivesOnNextBlock(t *testing.T) {
	p := New(testRate, 1, 1024)
	p.SetConfig(Config{ReverbSec: 20})

	first := make([]float32, 1024)
	first[0] = 1.0
	p.Process(first)
	assert.InDelta(t, 1.0, first[0], 1e-6)

	second := make([]float32, 1024)
	p.Process(second)

	// First tap: 21 ms at dilation 2.0 lands on frame 1852.
	expected := math.Tanh(0.9) * 0.78 * 0.82
	assert.InDelta(t, expected, float64(second[1852-1024]), 1e-5)
	assert.InDelta(t, 0.0, float64(second[100]), 1e-9)
}

func TestReverbRepeatedImpulsesStayBounded(t *testing.T) {
	r := newReverb(testRate, 2, MaxReverbSec, 1024)
	block := make([]float32, 1024*2)

	// An impulse at the start of every block for 10 seconds, without the
	// limiter after the reverb stage.
	for n := 0; n < 10*testRate/1024; n++ {
		clear(block)
		block[0], block[1] = 1, -1
		r.apply(block, MaxReverbSec)
		for i, s := range block {
			require.False(t, math.IsNaN(float64(s)) || math.IsInf(float64(s), 0), "block %d sample %d", n, i)
			require.Less(t, math.Abs(float64(s)), 10.0, "block %d sample %d", n, i)
		}
	}
	for _, s := range r.buf {
		require.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

func TestReverbStaysBoundedAndDecays(t *testing.T) {
	p := New(testRate, 2, 1024)
	p.SetConfig(Config{ReverbSec: 20})

	rng := rand.New(rand.NewSource(1))
	block := make([]float32, 1024*2)

	// 10 seconds of noise.
	for n := 0; n < 10*testRate/1024; n++ {
		for i := range block {
			block[i] = float32(rng.Float64() - 0.5)
		}
		p.Process(block)
		require.LessOrEqual(t, peak(block), 1.0+1e-6)
		for _, s := range block {
			require.False(t, math.IsNaN(float64(s)) || math.IsInf(float64(s), 0))
		}
	}
	for _, s := range p.reverb.buf {
		require.Less(t, math.Abs(float64(s)), 10.0)
	}

	// Then 5 seconds of silence: the tail must die away.
	for n := 0; n < 5*testRate/1024; n++ {
		clear(block)
		p.Process(block)
	}
	assert.Less(t, peak(block), 1e-3)
}

func TestResetClearsTail(t *testing.T) {
	p := New(testRate, 1, 1024)
	p.SetConfig(Config{ReverbSec: 10})

	block := sine(1024, 1, 220, 0.8)
	p.Process(block)
	p.Reset()

	clear(block)
	p.Process(block)
	assert.Equal(t, 0.0, peak(block))
}

func TestSetConfigResizesDelayLine(t *testing.T) {
	p := New(testRate, 2, 1024)
	assert.InDelta(t, 8820, p.reverb.frames, 1)

	p.SetConfig(Config{ReverbSec: 20})
	assert.InDelta(t, 35280, p.reverb.frames, 1)
	assert.Len(t, p.reverb.buf, p.reverb.frames*2)
}

func TestLimit(t *testing.T) {
	block := []float32{0.5, -2.0, 1.0}
	Limit(block)
	assert.Equal(t, []float32{0.25, -1.0, 0.5}, block)

	quiet := []float32{0.5, -1.0}
	Limit(quiet)
	assert.Equal(t, []float32{0.5, -1.0}, quiet)
}
