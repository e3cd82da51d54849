// ABOUTME: Oto-based audio output implementation
// ABOUTME: Oto pulls float32 bytes from a reader that renders on demand
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process; it is created on first use and reused
var (
	otoOnce     sync.Once
	otoCtx      *oto.Context
	otoErr      error
	otoRate     int
	otoChannels int
)

func sharedOtoContext(cfg Config) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   time.Duration(cfg.BlockFrames) * time.Second / time.Duration(max(cfg.SampleRate, 1)),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate, otoChannels = ctx, cfg.SampleRate, cfg.Channels
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != cfg.SampleRate || otoChannels != cfg.Channels {
		return nil, fmt.Errorf("oto context fixed at %dHz/%dch, requested %dHz/%dch",
			otoRate, otoChannels, cfg.SampleRate, cfg.Channels)
	}
	return otoCtx, nil
}

// Oto output implementation using oto library
type Oto struct {
	log *log.Logger

	mu     sync.Mutex
	player *oto.Player
}

// NewOto creates a new Oto output
func NewOto(logger *log.Logger) *Oto {
	return &Oto{log: logger.WithPrefix("oto")}
}

// Name returns the backend name
func (o *Oto) Name() string { return BackendOto }

// Open starts a player on the shared context. Oto cannot pick a device, so a
// named device fails.
func (o *Oto) Open(cfg Config, render RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open")
	}
	if cfg.Device != "" {
		return fmt.Errorf("%w: oto only plays to the default device", ErrDeviceNotFound)
	}

	ctx, err := sharedOtoContext(cfg)
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	o.player = ctx.NewPlayer(&renderReader{newBlockRenderer(render, cfg.Channels, cfg.BlockFrames)})
	o.player.Play()

	o.log.Info("audio output opened", "rate", cfg.SampleRate, "channels", cfg.Channels)
	return nil
}

// Close stops the player
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}

// renderReader adapts a RenderFunc to the io.Reader oto pulls from
type renderReader struct {
	*blockRenderer
}

func (r *renderReader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	r.fill(p, frames)
	return frames * frameBytes, nil
}
