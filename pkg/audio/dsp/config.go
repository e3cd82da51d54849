// ABOUTME: Immutable per-voice DSP configuration value
// ABOUTME: Normalization clamps every field into its legal range
package dsp

import (
	"math"

	"github.com/cuedeck/cuedeck/pkg/audio/resample"
)

// NumBands is the number of graphic EQ bands
const NumBands = 10

const (
	MinBandGain = -12
	MaxBandGain = 12

	MaxReverbSec = 20.0

	MinTempoPct = -30.0
	MaxTempoPct = 30.0
	MinPitchPct = -30.0
	MaxPitchPct = 30.0

	activeEpsilon = 1e-9
)

// BandCenters are the EQ band centre frequencies in Hz
var BandCenters = [NumBands]float64{31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Config describes one voice's processing chain. It is a value type; callers
// build a new one and hand it over instead of mutating a shared copy.
type Config struct {
	EQEnabled bool
	EQBands   [NumBands]int
	ReverbSec float64
	TempoPct  float64
	PitchPct  float64
}

// DefaultConfig returns a configuration that leaves audio untouched
func DefaultConfig() Config {
	return Config{EQEnabled: true}
}

// BandsFromSlice pads with zeros or truncates gains to NumBands entries
func BandsFromSlice(gains []int) [NumBands]int {
	var bands [NumBands]int
	copy(bands[:], gains)
	return bands
}

// Normalize returns a copy with every field clamped
func (c Config) Normalize() Config {
	out := c
	for i, g := range out.EQBands {
		out.EQBands[i] = clampInt(g, MinBandGain, MaxBandGain)
	}
	out.ReverbSec = clampFinite(out.ReverbSec, 0, MaxReverbSec)
	out.TempoPct = clampFinite(out.TempoPct, MinTempoPct, MaxTempoPct)
	out.PitchPct = clampFinite(out.PitchPct, MinPitchPct, MaxPitchPct)
	return out
}

// EQActive reports whether the EQ stage would alter audio
func (c Config) EQActive() bool {
	if !c.EQEnabled {
		return false
	}
	for _, g := range c.EQBands {
		if g != 0 {
			return true
		}
	}
	return false
}

// HasActiveProcessing reports whether any stage, including tempo and pitch, would alter audio
func (c Config) HasActiveProcessing() bool {
	n := c.Normalize()
	return n.EQActive() ||
		n.ReverbSec > activeEpsilon ||
		math.Abs(n.TempoPct) > activeEpsilon ||
		math.Abs(n.PitchPct) > activeEpsilon
}

// TempoRatio is the source advance rate for this configuration
func (c Config) TempoRatio() float64 {
	return resample.TempoRatio(c.TempoPct)
}

// PitchRatio is the intra-block resample ratio for this configuration
func (c Config) PitchRatio() float64 {
	return resample.PitchRatio(c.PitchPct, c.TempoRatio())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampFinite maps NaN to lo
func clampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
