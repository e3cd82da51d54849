// ABOUTME: Engine owns the output stream, voices, fades and the preload cache
// ABOUTME: Run drives fade ticks and voice polling on timers
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/clock"
	"github.com/cuedeck/cuedeck/internal/preload"
	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/decode"
	"github.com/cuedeck/cuedeck/pkg/audio/output"
)

// Config holds engine configuration
type Config struct {
	// SampleRate is the engine and output rate (default: 44100)
	SampleRate int

	// Channels is the output channel count (default: 2)
	Channels int

	// BlockFrames is the callback block size requested from the driver
	// (default: 1024)
	BlockFrames int

	// Backend selects the output backend: auto, malgo, oto, portaudio or
	// null (default: auto)
	Backend string

	// Device is the output device opened by Start; empty is the default
	Device string

	// MasterLimiter scales the summed mix down whenever it exceeds full scale
	MasterLimiter bool

	// FadeInterval is the fade tick period (default: 30ms)
	FadeInterval time.Duration

	// PollInterval is the voice poll period (default: 100ms)
	PollInterval time.Duration

	// EventBuffer is the capacity of the Events channel (default: 256)
	EventBuffer int

	// Preload is the initial cache policy (default: disabled, 256 MB,
	// pressure aware)
	Preload *preload.Policy

	// PreloadWorkers is the preload worker count (default: 2)
	PreloadWorkers int

	// Clock supplies time for anchors and fades (default: system clock)
	Clock clock.Clock

	// Logger receives engine logs (default: log.Default())
	Logger *log.Logger

	// Decoder overrides the file decoder used on cache misses
	Decoder preload.Decoder

	// Memory overrides the memory statistics used by the cache
	Memory preload.MemoryStats

	// Outputs returns the backends to try when opening a stream, in order.
	// Defaults to output.Candidates(Backend).
	Outputs func() ([]output.Output, error)
}

// Stats are render counters for diagnostics
type Stats struct {
	Renders      uint64
	Contended    uint64
	Panics       uint64
	NonFinite    uint64
	Drift        float64
	DriftQuality clock.Quality
	Backend      string
	Device       string
}

// Engine mixes voices into an output stream
type Engine struct {
	cfg   Config
	log   *log.Logger
	clock clock.Clock

	cache *preload.Cache
	fades *FadeScheduler
	drift *clock.DriftTracker

	events chan Event

	voicesMu sync.Mutex
	voices   atomic.Pointer[[]*Voice]

	renderMu sync.Mutex

	outMu      sync.Mutex
	out        output.Output
	deviceName string

	deckMu    sync.Mutex
	primary   *Voice
	secondary *Voice
	token     uint64

	renders   atomic.Uint64
	contended atomic.Uint64
	panics    atomic.Uint64
	nonFinite atomic.Uint64

	reportMu sync.Mutex
	reported Stats

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates an engine. No output is opened until Start.
func New(cfg Config) (*Engine, error) {
	// Set defaults
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = audio.DefaultChannels
	}
	if cfg.BlockFrames == 0 {
		cfg.BlockFrames = audio.DefaultBlockFrames
	}
	if cfg.Backend == "" {
		cfg.Backend = output.BackendAuto
	}
	if cfg.FadeInterval == 0 {
		cfg.FadeInterval = 30 * time.Millisecond
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 256
	}
	if cfg.PreloadWorkers == 0 {
		cfg.PreloadWorkers = preload.DefaultWorkers
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	format := audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
	if !format.Valid() || cfg.BlockFrames < 0 {
		return nil, fmt.Errorf("invalid engine format: %d Hz, %d channels, %d frames",
			cfg.SampleRate, cfg.Channels, cfg.BlockFrames)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decode.New(format, cfg.Logger)
	}
	if cfg.Outputs == nil {
		backend, logger := cfg.Backend, cfg.Logger
		cfg.Outputs = func() ([]output.Output, error) {
			return output.Candidates(backend, logger)
		}
	}

	policy := preload.DefaultPolicy()
	if cfg.Preload != nil {
		policy = *cfg.Preload
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:    cfg,
		log:    cfg.Logger.WithPrefix("engine"),
		clock:  cfg.Clock,
		drift:  clock.NewDriftTracker(cfg.Clock, cfg.SampleRate),
		events: make(chan Event, cfg.EventBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	e.cache = preload.New(cfg.Decoder, preload.Options{
		Policy:  policy,
		Workers: cfg.PreloadWorkers,
		Memory:  cfg.Memory,
		Logger:  cfg.Logger,
	})
	e.fades = NewFadeScheduler(cfg.Clock, cfg.Logger)
	e.voices.Store(&[]*Voice{})

	e.primary = e.NewVoice("deck-a")
	e.secondary = e.NewVoice("deck-b")
	return e, nil
}

// Format is the engine's operating format
func (e *Engine) Format() audio.Format {
	return audio.Format{SampleRate: e.cfg.SampleRate, Channels: e.cfg.Channels}
}

// Start opens the configured output device. When it cannot be opened the
// default device is tried, and failing that a paced null sink keeps the
// engine running.
func (e *Engine) Start() error {
	if e.closed.Load() {
		return ErrClosed
	}
	err := e.SelectOutputDevice(e.cfg.Device)
	if err == nil {
		return nil
	}
	e.log.Warn("output unavailable", "device", e.cfg.Device, "err", err)

	if e.cfg.Device != "" {
		if err = e.SelectOutputDevice(""); err == nil {
			return nil
		}
		e.log.Warn("default output unavailable", "err", err)
	}
	return e.useNullSink()
}

// NewVoice creates a voice mixed by this engine
func (e *Engine) NewVoice(name string) *Voice {
	v := newVoice(e, name)

	e.voicesMu.Lock()
	cur := *e.voices.Load()
	next := make([]*Voice, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, v)
	e.voices.Store(&next)
	e.voicesMu.Unlock()
	return v
}

// RemoveVoice stops v and removes it from the mix
func (e *Engine) RemoveVoice(v *Voice) {
	e.fades.Cancel(v)
	v.Stop()

	e.voicesMu.Lock()
	cur := *e.voices.Load()
	next := make([]*Voice, 0, len(cur))
	for _, other := range cur {
		if other != v {
			next = append(next, other)
		}
	}
	e.voices.Store(&next)
	e.voicesMu.Unlock()
}

// Voices returns every voice in creation order. The first two are the decks
// used by Trigger.
func (e *Engine) Voices() []*Voice {
	return append([]*Voice(nil), *e.voices.Load()...)
}

// Fades exposes the fade scheduler
func (e *Engine) Fades() *FadeScheduler {
	return e.fades
}

// Cache exposes the preload cache
func (e *Engine) Cache() *preload.Cache {
	return e.cache
}

// Events delivers voice notifications. Events are dropped when the
// consumer falls behind.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run ticks fades and polls voices until ctx is cancelled or the engine is
// closed
func (e *Engine) Run(ctx context.Context) error {
	fadeTicker := time.NewTicker(e.cfg.FadeInterval)
	defer fadeTicker.Stop()
	pollTicker := time.NewTicker(e.cfg.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.ctx.Done():
			return nil
		case <-fadeTicker.C:
			e.fades.Tick(e.clock.Now())
		case <-pollTicker.C:
			e.Poll()
		}
	}
}

// Poll observes every voice once and reports render faults counted since
// the last poll
func (e *Engine) Poll() {
	for _, v := range *e.voices.Load() {
		v.Poll()
	}
	e.reportFaults()
}

// Stats returns render counters and the output drift estimate
func (e *Engine) Stats() Stats {
	drift, _, quality := e.drift.Stats()
	e.outMu.Lock()
	backend, device := "", e.deviceName
	if e.out != nil {
		backend = e.out.Name()
	}
	e.outMu.Unlock()

	return Stats{
		Renders:      e.renders.Load(),
		Contended:    e.contended.Load(),
		Panics:       e.panics.Load(),
		NonFinite:    e.nonFinite.Load(),
		Drift:        drift,
		DriftQuality: quality,
		Backend:      backend,
		Device:       device,
	}
}

func (e *Engine) reportFaults() {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()

	s := e.Stats()
	if d := s.Panics - e.reported.Panics; d > 0 {
		e.log.Error("render panicked", "count", d)
	}
	if d := s.NonFinite - e.reported.NonFinite; d > 0 {
		e.log.Warn("non-finite audio replaced with silence", "blocks", d)
	}
	if d := s.Contended - e.reported.Contended; d > 0 {
		e.log.Debug("overlapping render calls", "count", d)
	}
	e.reported = s
}

// ConfigureAudioPreloadCache updates the cache policy; the limit is clamped
// to 64..8192 MB
func (e *Engine) ConfigureAudioPreloadCache(enabled bool, limitMB int, pressureAware bool) {
	e.cache.Configure(enabled, limitMB, pressureAware)
}

// RequestPreload queues background decodes and returns how many were queued
func (e *Engine) RequestPreload(paths ...string) int {
	return e.cache.RequestPreload(paths...)
}

// SetPreloadPaused pauses background decoding and cancels running work
func (e *Engine) SetPreloadPaused(paused bool) {
	e.cache.SetPaused(paused)
}

// PreloadStatus reports whether the cache is enabled and how many
// background decodes are in flight
func (e *Engine) PreloadStatus() (enabled bool, active int) {
	return e.cache.Status()
}

// Close stops every voice, closes the output and the cache
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.cancel()
		e.fades.Clear()
		for _, v := range *e.voices.Load() {
			v.Stop()
		}

		e.outMu.Lock()
		out := e.out
		e.out = nil
		e.outMu.Unlock()
		if out != nil {
			err = out.Close()
		}
		if cerr := e.cache.Close(); err == nil {
			err = cerr
		}
		e.log.Debug("engine closed")
	})
	return err
}

func (e *Engine) load(ctx context.Context, path string) (*audio.Buffer, int, error) {
	if e.closed.Load() {
		return nil, 0, ErrClosed
	}
	return e.cache.GetOrDecode(ctx, path)
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Debug("event dropped", "kind", ev.Kind, "voice", ev.Voice.Name())
	}
}
