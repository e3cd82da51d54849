// ABOUTME: The render callback that sums playing voices into the output
// ABOUTME: Never blocks: an overlapping call renders silence
package engine

import "github.com/cuedeck/cuedeck/pkg/audio/dsp"

// Render fills out with the mix of every playing voice. It is the output's
// RenderFunc and runs on the driver's thread.
func (e *Engine) Render(out []float32) {
	clear(out)

	// Two streams overlap briefly while the output device is switched.
	if !e.renderMu.TryLock() {
		e.contended.Add(1)
		return
	}
	defer e.renderMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			e.panics.Add(1)
		}
	}()

	for _, v := range *e.voices.Load() {
		if v.render(out) {
			e.nonFinite.Add(1)
		}
	}

	if e.cfg.MasterLimiter {
		dsp.Limit(out)
	}
	if !finite(out) {
		clear(out)
		e.nonFinite.Add(1)
	}

	e.renders.Add(1)
	e.drift.AddFrames(len(out) / e.cfg.Channels)
}
