// ABOUTME: A single playback channel holding one decoded buffer
// ABOUTME: Transport state machine, anchor-based position and the per-block render path
package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
	"github.com/cuedeck/cuedeck/pkg/audio/resample"
	"github.com/google/uuid"
)

// Voice plays one buffer at a time. Control methods are safe to call from
// any goroutine; render is only called by the engine's mixer.
type Voice struct {
	id   string
	name string
	eng  *Engine
	proc *dsp.Processor

	volume atomic.Int32
	meterL atomic.Uint32
	meterR atomic.Uint32

	mu          sync.Mutex
	state       State
	path        string
	buf         *audio.Buffer
	durationMs  int
	sourcePos   float64
	anchorTime  time.Time
	anchorPos   float64
	anchorTempo float64
	cfg         dsp.Config
	ended       bool
	generation  uint64

	// owned by the render path
	read    []float32
	pitched []float32
}

func newVoice(e *Engine, name string) *Voice {
	samples := e.cfg.BlockFrames * e.cfg.Channels
	v := &Voice{
		id:          uuid.New().String(),
		name:        name,
		eng:         e,
		proc:        dsp.New(e.cfg.SampleRate, e.cfg.Channels, e.cfg.BlockFrames),
		cfg:         dsp.DefaultConfig(),
		anchorTempo: 1.0,
		read:        make([]float32, samples),
		pitched:     make([]float32, samples),
	}
	v.volume.Store(100)
	return v
}

// ID is the voice's unique identifier
func (v *Voice) ID() string { return v.id }

// Name is the label given at creation
func (v *Voice) Name() string { return v.name }

// SetMedia stops the voice and loads path through the preload cache,
// blocking on a miss. cfg, when non-nil, replaces the DSP settings. On error
// the previously loaded media is kept.
func (v *Voice) SetMedia(path string, cfg *dsp.Config) error {
	return v.SetMediaContext(context.Background(), path, cfg)
}

// SetMediaContext is SetMedia with a context bounding the decode
func (v *Voice) SetMediaContext(ctx context.Context, path string, cfg *dsp.Config) error {
	v.Stop()

	buf, durationMs, err := v.eng.load(ctx, path)
	if err != nil {
		v.eng.log.Warn("load failed", "voice", v.name, "path", path, "err", err)
		return err
	}
	v.install(path, buf, durationMs, cfg)
	return nil
}

// install swaps in a decoded buffer and rewinds to the start
func (v *Voice) install(path string, buf *audio.Buffer, durationMs int, cfg *dsp.Config) {
	v.mu.Lock()
	v.buf = buf
	v.path = path
	v.durationMs = durationMs
	v.sourcePos = 0
	v.ended = false
	v.resyncLocked(0)
	v.mu.Unlock()

	if cfg != nil {
		v.SetDSPConfig(*cfg)
	}
	v.proc.Reset()
	v.storeMeters(0, 0)

	v.eng.log.Debug("media loaded", "voice", v.name, "path", path, "duration_ms", durationMs)
	v.eng.emit(Event{Voice: v, Kind: DurationChanged, DurationMs: durationMs})
	v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: 0, DurationMs: durationMs})
}

// Play starts or resumes playback. It does nothing when already playing or
// when no media is loaded. A voice that has reached the end restarts from
// the beginning.
func (v *Voice) Play() {
	v.mu.Lock()
	if v.state == Playing || v.buf == nil {
		v.mu.Unlock()
		return
	}
	if v.sourcePos >= float64(v.buf.Frames-1) {
		v.sourcePos = 0
	}
	v.ended = false
	v.state = Playing
	v.resyncLocked(v.sourcePos)
	v.mu.Unlock()

	v.eng.emit(Event{Voice: v, Kind: StateChanged, State: Playing})
}

// Pause freezes the position. Only a playing voice can pause.
func (v *Voice) Pause() {
	v.mu.Lock()
	if v.state != Playing {
		v.mu.Unlock()
		return
	}
	pos := v.framePosLocked()
	v.sourcePos = pos
	v.state = Paused
	v.resyncLocked(pos)
	ms := v.msLocked(pos)
	v.mu.Unlock()

	v.storeMeters(0, 0)
	v.eng.emit(Event{Voice: v, Kind: StateChanged, State: Paused})
	v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: ms, DurationMs: v.Duration()})
}

// Stop rewinds to the start from any state
func (v *Voice) Stop() {
	v.mu.Lock()
	changed := v.state != Stopped
	v.state = Stopped
	v.sourcePos = 0
	v.ended = false
	v.resyncLocked(0)
	duration := v.durationMs
	v.mu.Unlock()

	v.storeMeters(0, 0)
	if changed {
		v.eng.emit(Event{Voice: v, Kind: StateChanged, State: Stopped})
	}
	v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: 0, DurationMs: duration})
}

// SetPosition seeks to ms, clamped to the media duration
func (v *Voice) SetPosition(ms int) {
	v.mu.Lock()
	if v.buf == nil {
		v.mu.Unlock()
		return
	}
	ms = min(max(ms, 0), v.durationMs)
	pos := float64(ms) / 1000.0 * float64(v.buf.Format.SampleRate)
	pos = min(max(pos, 0), float64(v.buf.Frames))
	v.sourcePos = pos
	v.ended = false
	v.resyncLocked(pos)
	duration := v.durationMs
	v.mu.Unlock()

	v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: ms, DurationMs: duration})
}

// SetDSPConfig replaces the voice's processing settings. A tempo change
// while playing re-anchors the position so it stays continuous.
func (v *Voice) SetDSPConfig(cfg dsp.Config) {
	cfg = cfg.Normalize()
	v.proc.SetConfig(cfg)

	v.mu.Lock()
	if v.state == Playing {
		pos := v.framePosLocked()
		v.sourcePos = pos
		v.cfg = cfg
		v.resyncLocked(pos)
	} else {
		v.cfg = cfg
		v.anchorTempo = cfg.TempoRatio()
	}
	v.mu.Unlock()
}

// DSPConfig returns the current processing settings
func (v *Voice) DSPConfig() dsp.Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// SetVolume sets the gain in percent, clamped to 0..100
func (v *Voice) SetVolume(volume int) {
	v.volume.Store(int32(min(max(volume, 0), 100)))
}

// Volume returns the gain in percent
func (v *Voice) Volume() int {
	return int(v.volume.Load())
}

// State returns the transport state
func (v *Voice) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Duration of the loaded media in milliseconds
func (v *Voice) Duration() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.durationMs
}

// Position returns the playback position in milliseconds. While playing it
// is extrapolated from the last anchor with the clock.
func (v *Voice) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.buf == nil || v.durationMs <= 0 {
		return 0
	}
	return v.msLocked(v.framePosLocked())
}

// MeterLevels returns the peak of the last rendered block per channel,
// after DSP and volume. A mono engine reports the same level twice.
func (v *Voice) MeterLevels() (left, right float32) {
	return math.Float32frombits(v.meterL.Load()), math.Float32frombits(v.meterR.Load())
}

// MediaPath is the path of the loaded media
func (v *Voice) MediaPath() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.path
}

// Active reports whether the voice is playing or paused
func (v *Voice) Active() bool {
	s := v.State()
	return s == Playing || s == Paused
}

// Poll turns an end of stream seen by the render path into a Stopped state
// at the full duration, and otherwise publishes the current position.
func (v *Voice) Poll() {
	v.mu.Lock()
	if v.state != Playing {
		v.mu.Unlock()
		return
	}
	if v.ended {
		v.ended = false
		v.state = Stopped
		v.sourcePos = float64(v.buf.Frames)
		v.resyncLocked(v.sourcePos)
		duration := v.durationMs
		v.mu.Unlock()

		v.storeMeters(0, 0)
		v.eng.log.Debug("voice ended", "voice", v.name, "path", v.MediaPath())
		v.eng.emit(Event{Voice: v, Kind: StateChanged, State: Stopped})
		v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: duration, DurationMs: duration})
		return
	}
	ms := v.msLocked(v.framePosLocked())
	duration := v.durationMs
	v.mu.Unlock()

	v.eng.emit(Event{Voice: v, Kind: PositionChanged, PositionMs: ms, DurationMs: duration})
}

// render adds the voice's next block into out. It reports whether the block
// had to be discarded because processing produced non-finite samples.
func (v *Voice) render(out []float32) (nonFinite bool) {
	channels := v.eng.cfg.Channels

	v.mu.Lock()
	if v.state != Playing || v.buf == nil || v.ended {
		v.mu.Unlock()
		return false
	}
	buf := v.buf
	pos := v.sourcePos
	gen := v.generation
	tempo := v.cfg.TempoRatio()
	pitch := v.cfg.PitchRatio()
	v.mu.Unlock()

	if len(v.read) < len(out) {
		v.read = make([]float32, len(out))
		v.pitched = make([]float32, len(out))
	}
	block := v.read[:len(out)]

	valid, next, exhausted := resample.ReadTempo(block, buf.Samples, channels, pos, tempo)
	if valid > 0 {
		if resample.NeedsPitchShift(pitch) {
			shifted := v.pitched[:len(out)]
			resample.PitchShift(shifted, block, channels, pitch)
			block = shifted
		}
		v.proc.Process(block)

		if !finite(block) {
			clear(block)
			v.proc.Reset()
			nonFinite = true
		}

		gain := float32(v.volume.Load()) / 100.0
		var peakL, peakR float32
		for i := 0; i < len(block); i += channels {
			for ch := 0; ch < channels; ch++ {
				s := block[i+ch] * gain
				out[i+ch] += s
				if s < 0 {
					s = -s
				}
				if ch == 0 {
					peakL = max(peakL, s)
				} else {
					peakR = max(peakR, s)
				}
			}
		}
		if channels == 1 {
			peakR = peakL
		}
		v.storeMeters(peakL, peakR)
	} else {
		v.storeMeters(0, 0)
	}

	now := v.eng.clock.Now()
	v.mu.Lock()
	if v.generation == gen && v.state == Playing {
		v.sourcePos = next
		v.anchorPos = next
		v.anchorTime = now
		v.anchorTempo = tempo
		if exhausted {
			v.ended = true
			v.sourcePos = float64(buf.Frames)
			v.anchorPos = v.sourcePos
		}
	}
	v.mu.Unlock()
	return nonFinite
}

// resyncLocked moves both the render position and the read-side anchor to
// pos and invalidates any render block computed from older state.
func (v *Voice) resyncLocked(pos float64) {
	v.anchorPos = pos
	v.anchorTime = v.eng.clock.Now()
	v.anchorTempo = v.cfg.TempoRatio()
	v.generation++
}

// framePosLocked is the current position in source frames
func (v *Voice) framePosLocked() float64 {
	if v.buf == nil {
		return 0
	}
	if v.state != Playing {
		return v.sourcePos
	}
	elapsed := max(v.eng.clock.Now().Sub(v.anchorTime).Seconds(), 0)
	pos := v.anchorPos + elapsed*float64(v.buf.Format.SampleRate)*v.anchorTempo
	return min(max(pos, 0), float64(v.buf.Frames))
}

func (v *Voice) msLocked(pos float64) int {
	if v.buf == nil || v.buf.Format.SampleRate <= 0 {
		return 0
	}
	ms := int(pos / float64(v.buf.Format.SampleRate) * 1000.0)
	return min(max(ms, 0), v.durationMs)
}

func (v *Voice) storeMeters(left, right float32) {
	v.meterL.Store(math.Float32bits(left))
	v.meterR.Store(math.Float32bits(right))
}

func finite(block []float32) bool {
	for _, s := range block {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
