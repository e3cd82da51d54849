// ABOUTME: Show runner that plays a cue list through the engine
// ABOUTME: Advances on natural cue ends and turns TUI commands into engine calls
package cli

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/config"
	"github.com/cuedeck/cuedeck/internal/ui"
	"github.com/cuedeck/cuedeck/pkg/engine"
)

// stopFade is the fade used when the operator stops the show
const stopFade = 500 * time.Millisecond

// show walks an ordered cue list
type show struct {
	eng  *engine.Engine
	cfg  *config.Config
	log  *log.Logger
	cues []string
	mode engine.FadeMode

	index    int
	current  *engine.Voice
	advanced bool
	done     bool
}

func newShow(eng *engine.Engine, cfg *config.Config, logger *log.Logger, cues []string) *show {
	mode, _ := engine.ParseFadeMode(cfg.Transition.Mode)
	return &show{eng: eng, cfg: cfg, log: logger, cues: cues, mode: mode, index: -1}
}

// Start triggers the first cue that loads
func (s *show) Start() error {
	for {
		more, err := s.Next()
		if err == nil {
			return nil
		}
		if !more || s.index+1 >= len(s.cues) {
			return err
		}
	}
}

// Next triggers the following cue. It reports false once the list is
// exhausted.
func (s *show) Next() (bool, error) {
	if s.index+1 >= len(s.cues) {
		s.done = true
		return false, nil
	}
	s.index++
	path := s.cues[s.index]

	v, err := s.eng.Trigger(s.cfg.TriggerRequest(path))
	if err != nil {
		s.log.Error("cue failed", "index", s.index+1, "path", path, "err", err)
		return true, err
	}
	s.current = v
	s.advanced = false
	s.log.Info("cue", "index", s.index+1, "of", len(s.cues), "path", path, "deck", v.Name())

	if rest := s.cues[s.index+1:]; len(rest) > 0 {
		s.eng.RequestPreload(rest...)
	}
	return true, nil
}

// HandleEvent advances when the current cue plays to its end. It reports
// whether the show has nothing left to play.
func (s *show) HandleEvent(ev engine.Event) (bool, error) {
	if ev.Voice != s.current || ev.Kind != engine.StateChanged || ev.State != engine.Stopped {
		return false, nil
	}
	v := s.current
	if v.Duration() <= 0 || v.Position() < v.Duration() {
		return false, nil
	}
	more, err := s.Next()
	return !more, err
}

// Tick starts the next cue early in crossfade mode so the overlap ends as
// the current cue does
func (s *show) Tick() error {
	if s.current == nil || s.advanced || s.mode != engine.CrossFade {
		return nil
	}
	if s.current.State() != engine.Playing || s.index+1 >= len(s.cues) {
		return nil
	}
	remaining := time.Duration(s.current.Duration()-s.current.Position()) * time.Millisecond
	if remaining > s.cfg.Transition.CrossFade {
		return nil
	}
	// a failed load keeps the current cue; it advances again at its end
	s.advanced = true
	_, err := s.Next()
	return err
}

// HandleCommand applies one TUI command
func (s *show) HandleCommand(cmd ui.Command) error {
	switch cmd.Kind {
	case ui.CmdNext:
		_, err := s.Next()
		return err
	case ui.CmdStop:
		s.eng.StopAll(stopFade)
	case ui.CmdTogglePause:
		if s.current == nil {
			return nil
		}
		switch s.current.State() {
		case engine.Playing:
			s.current.Pause()
		default:
			s.current.Play()
		}
	case ui.CmdSeek:
		if s.current != nil {
			s.current.SetPosition(s.current.Position() + cmd.Value)
		}
	case ui.CmdVolume:
		if s.current != nil {
			s.current.SetVolume(cmd.Value)
		}
	}
	return nil
}

// Status snapshots the show for the TUI
func (s *show) Status() ui.StatusMsg {
	msg := ui.StatusMsg{Mode: s.mode.String()}
	if s.current != nil {
		position, duration, volume := s.current.Position(), s.current.Duration(), s.current.Volume()
		msg.Cue = filepath.Base(s.cues[s.index])
		msg.CueIndex = s.index + 1
		msg.CueCount = len(s.cues)
		msg.Deck = s.current.Name()
		msg.State = s.current.State().String()
		msg.PositionMs = &position
		msg.DurationMs = &duration
		msg.Volume = &volume
		msg.Meters = true
		msg.MeterL, msg.MeterR = s.current.MeterLevels()
	}

	stats := s.eng.Stats()
	msg.Backend = stats.Backend
	msg.Device = stats.Device
	msg.Drift = stats.Drift
	msg.DriftQuality = stats.DriftQuality
	msg.NonFinite = stats.NonFinite
	msg.Panics = stats.Panics

	msg.Preload = true
	msg.PreloadEnabled, msg.PreloadActive = s.eng.PreloadStatus()
	msg.CachedCues = s.eng.Cache().Len()
	return msg
}
