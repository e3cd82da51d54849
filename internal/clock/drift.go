// ABOUTME: Output clock drift estimation against the wall clock
// ABOUTME: Tracks the effective rate at which the driver consumes frames
package clock

import (
	"sync"
	"time"
)

// Quality represents how trustworthy the drift estimate is
type Quality int

const (
	QualityLost Quality = iota
	QualityWarming
	QualityGood
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityWarming:
		return "warming"
	default:
		return "lost"
	}
}

const (
	// driftSmoothing is the weight given to each new measurement
	driftSmoothing = 0.1
	// driftMinWindow is the shortest interval worth measuring
	driftMinWindow = 250 * time.Millisecond
	// driftStale is how long without a callback before the estimate is lost
	driftStale = 2 * time.Second
	// driftMaxDeviation rejects measurements further than this from nominal
	driftMaxDeviation = 0.05
)

// DriftTracker compares the frames an output driver has pulled against the
// wall clock. Drift is (measured rate / nominal rate) - 1: a positive value
// means the device consumes audio faster than the wall clock predicts, so
// anchor-based positions lag the callback's.
type DriftTracker struct {
	mu      sync.RWMutex
	clock   Clock
	nominal float64

	drift   float64
	samples int

	windowStart  time.Time
	windowFrames int64
	lastFrame    time.Time
}

// NewDriftTracker creates a tracker for an output running at sampleRate
func NewDriftTracker(c Clock, sampleRate int) *DriftTracker {
	return &DriftTracker{clock: c, nominal: float64(sampleRate)}
}

// AddFrames records that the driver pulled n frames just now
func (d *DriftTracker) AddFrames(n int) {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastFrame = now
	if d.windowStart.IsZero() {
		d.windowStart = now
		d.windowFrames = 0
		return
	}
	d.windowFrames += int64(n)

	elapsed := now.Sub(d.windowStart)
	if elapsed < driftMinWindow {
		return
	}

	measured := float64(d.windowFrames) / elapsed.Seconds() / d.nominal
	d.windowStart = now
	d.windowFrames = 0

	deviation := measured - 1.0
	if deviation > driftMaxDeviation || deviation < -driftMaxDeviation {
		// Scheduling hiccup, not clock drift
		return
	}

	if d.samples == 0 {
		d.drift = deviation
	} else {
		d.drift += driftSmoothing * (deviation - d.drift)
	}
	d.samples++
}

// Drift returns the smoothed drift estimate
func (d *DriftTracker) Drift() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.drift
}

// Stats returns the drift, measurement count and current quality
func (d *DriftTracker) Stats() (drift float64, samples int, quality Quality) {
	now := d.clock.Now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case d.lastFrame.IsZero() || now.Sub(d.lastFrame) > driftStale:
		quality = QualityLost
	case d.samples < 3:
		quality = QualityWarming
	default:
		quality = QualityGood
	}
	return d.drift, d.samples, quality
}

// Reset forgets all measurements, e.g. after switching devices
func (d *DriftTracker) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drift = 0
	d.samples = 0
	d.windowStart = time.Time{}
	d.windowFrames = 0
	d.lastFrame = time.Time{}
}
