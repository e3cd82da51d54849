// ABOUTME: Tests for DSP config normalization
// ABOUTME: Checks clamping and the band helpers
package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClamps(t *testing.T) {
	cfg := Config{
		EQEnabled: true,
		EQBands:   [NumBands]int{-20, 20, 3, 0, 0, 0, 0, 0, 0, 12},
		ReverbSec: 35,
		TempoPct:  -80,
		PitchPct:  math.NaN(),
	}

	n := cfg.Normalize()

	assert.Equal(t, -12, n.EQBands[0])
	assert.Equal(t, 12, n.EQBands[1])
	assert.Equal(t, 3, n.EQBands[2])
	assert.Equal(t, 20.0, n.ReverbSec)
	assert.Equal(t, -30.0, n.TempoPct)
	assert.Equal(t, -30.0, n.PitchPct)

	// The receiver is a value; normalizing never touches the original.
	assert.Equal(t, 35.0, cfg.ReverbSec)
}

func TestBandsFromSlice(t *testing.T) {
	assert.Equal(t, [NumBands]int{1, 2, 3}, BandsFromSlice([]int{1, 2, 3}))
	assert.Equal(t, [NumBands]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		BandsFromSlice([]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 9}))
}

func TestHasActiveProcessing(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		active bool
	}{
		{"default", DefaultConfig(), false},
		{"eq bands set", Config{EQEnabled: true, EQBands: [NumBands]int{0, 0, 0, 0, 0, 3}}, true},
		{"eq disabled", Config{EQEnabled: false, EQBands: [NumBands]int{6}}, false},
		{"reverb", Config{ReverbSec: 0.5}, true},
		{"tempo", Config{TempoPct: -5}, true},
		{"pitch", Config{PitchPct: 2}, true},
		{"negative reverb clamps to off", Config{ReverbSec: -3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.cfg.HasActiveProcessing())
		})
	}
}

func TestConfigRatios(t *testing.T) {
	cfg := Config{TempoPct: 30}
	assert.InDelta(t, 1.3, cfg.TempoRatio(), 1e-12)
	assert.InDelta(t, 1.0/1.3, cfg.PitchRatio(), 1e-12)
}
