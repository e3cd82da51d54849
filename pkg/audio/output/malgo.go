// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a float32 pull callback and device selection
package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	log *log.Logger

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	// blocks is only touched from the device callback
	blocks *blockRenderer
}

// NewMalgo creates a new Malgo output
func NewMalgo(logger *log.Logger) *Malgo {
	return &Malgo{log: logger.WithPrefix("malgo")}
}

// Name returns the backend name
func (m *Malgo) Name() string { return BackendMalgo }

// ensureContext creates the miniaudio context (must hold m.mu)
func (m *Malgo) ensureContext() error {
	if m.malgoCtx != nil {
		return nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.log.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	return nil
}

// Devices lists playback device names
func (m *Malgo) Devices() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureContext(); err != nil {
		return nil, err
	}
	if m.device == nil {
		defer m.releaseContext()
	}
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// releaseContext frees the miniaudio context (must hold m.mu)
func (m *Malgo) releaseContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		m.log.Warn("malgo context uninit error", "err", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

// Open initializes and starts the playback device
func (m *Malgo) Open(cfg Config, render RenderFunc) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo output already open")
	}
	if err := m.ensureContext(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			m.releaseContext()
		}
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockFrames)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.Device != "" {
		infos, err := m.malgoCtx.Devices(malgo.Playback)
		if err != nil {
			return fmt.Errorf("failed to enumerate playback devices: %w", err)
		}
		found := false
		for _, info := range infos {
			if strings.EqualFold(info.Name(), cfg.Device) {
				deviceConfig.Playback.DeviceID = info.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, cfg.Device)
		}
	}

	m.blocks = newBlockRenderer(render, cfg.Channels, cfg.BlockFrames)

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.device = device

	m.log.Info("audio output opened",
		"rate", cfg.SampleRate, "channels", cfg.Channels, "block", cfg.BlockFrames, "device", deviceLabel(cfg.Device))
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	m.blocks.fill(pOutput, int(frameCount))
}

// Close stops the device and releases the context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			m.log.Warn("device stop error", "err", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.releaseContext()
	return nil
}

func deviceLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
