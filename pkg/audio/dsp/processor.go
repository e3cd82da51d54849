// ABOUTME: Per-voice real-time effects chain (EQ, reverb, peak limiter)
// ABOUTME: Processes interleaved float32 blocks in place, one voice per processor
package dsp

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Processor runs the effects chain for a single voice. Process must be called
// once per block in playback order and never concurrently with itself;
// SetConfig and Reset may be called from any goroutine.
type Processor struct {
	sampleRate int
	channels   int
	blockHint  int

	mu     sync.Mutex
	cfg    Config
	eq     *equalizer
	reverb *reverb
}

// New creates a processor. blockFrames is the expected callback block size
// and is used to pre-build EQ state; other sizes still work.
func New(sampleRate, channels, blockFrames int) *Processor {
	if channels < 1 {
		channels = 1
	}
	cfg := DefaultConfig()
	return &Processor{
		sampleRate: sampleRate,
		channels:   channels,
		blockHint:  blockFrames,
		cfg:        cfg,
		eq:         newEqualizer(sampleRate),
		reverb:     newReverb(sampleRate, channels, cfg.ReverbSec, blockFrames),
	}
}

// Config returns the active configuration
func (p *Processor) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig installs a new configuration. The delay line and EQ curve are
// built before taking the lock; a delay line of a different length resets
// the reverb tail.
func (p *Processor) SetConfig(cfg Config) {
	cfg = cfg.Normalize()

	frames := reverbFrames(p.sampleRate, cfg.ReverbSec)
	p.mu.Lock()
	needReverb := p.reverb.frames != frames
	p.mu.Unlock()

	var fresh *reverb
	if needReverb {
		fresh = newReverb(p.sampleRate, p.channels, cfg.ReverbSec, p.blockHint)
	}
	var curve []float64
	var fft *fourier.FFT
	if cfg.EQActive() && p.blockHint > eqMinFrames {
		curve = buildCurve(p.blockHint, p.sampleRate, cfg.EQBands)
		fft = fourier.NewFFT(p.blockHint)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	if fresh != nil && p.reverb.frames != frames {
		p.reverb = fresh
	}
	if curve != nil {
		p.eq.install(p.blockHint, cfg.EQBands, curve, fft)
	}
}

// Process applies EQ, reverb and the peak limiter to block in place
func (p *Processor) Process(block []float32) {
	if len(block) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.EQActive() {
		p.eq.apply(block, p.channels, p.cfg.EQBands)
	}
	if p.cfg.ReverbSec > activeEpsilon {
		p.reverb.apply(block, p.cfg.ReverbSec)
	}
	Limit(block)
}

// Reset discards the reverb tail
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reverb.reset()
}

// Limit scales block down by its peak when the peak exceeds full scale
func Limit(block []float32) {
	var peak float32
	for _, s := range block {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak <= 1.0 {
		return
	}
	g := 1.0 / peak
	for i := range block {
		block[i] *= g
	}
}
