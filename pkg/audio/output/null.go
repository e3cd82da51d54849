// ABOUTME: Null audio output that discards rendered audio
// ABOUTME: Used when no device opens, for offline rendering and in tests
package output

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Null is an output with no device. A paced Null calls render on its own
// goroutine at the block cadence so playback still advances in real time;
// an unpaced Null renders only when Pull is called.
type Null struct {
	log   *log.Logger
	paced bool

	mu     sync.Mutex
	cfg    Config
	render RenderFunc
	stop   chan struct{}
	done   chan struct{}
}

// NewNull creates a null output
func NewNull(logger *log.Logger, paced bool) *Null {
	return &Null{log: logger.WithPrefix("null"), paced: paced}
}

// Name returns the backend name
func (n *Null) Name() string { return BackendNull }

// Open records the render function and, when paced, starts the clock
func (n *Null) Open(cfg Config, render RenderFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cfg = cfg
	n.render = render
	if n.paced && n.stop == nil {
		n.stop = make(chan struct{})
		n.done = make(chan struct{})
		go n.run(cfg, render, n.stop, n.done)
	}
	n.log.Debug("null output opened", "rate", cfg.SampleRate, "channels", cfg.Channels, "paced", n.paced)
	return nil
}

func (n *Null) run(cfg Config, render RenderFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	block := max(cfg.BlockFrames, 1)
	period := time.Duration(block) * time.Second / time.Duration(max(cfg.SampleRate, 1))
	buf := make([]float32, block*cfg.Channels)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			render(buf)
		}
	}
}

// Pull renders frames of audio synchronously. It returns nil when closed.
func (n *Null) Pull(frames int) []float32 {
	n.mu.Lock()
	render, channels := n.render, n.cfg.Channels
	n.mu.Unlock()

	if render == nil || frames <= 0 {
		return nil
	}
	out := make([]float32, frames*channels)
	render(out)
	return out
}

// Close stops the pacing goroutine and forgets the render function
func (n *Null) Close() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.render = nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
