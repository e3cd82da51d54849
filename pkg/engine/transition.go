// ABOUTME: Cue transitions between the engine's two deck voices
// ABOUTME: Fade in, fade out then start, and crossfade modes
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
)

// fadeOutGrace separates the end of a fade-out from the delayed start
const fadeOutGrace = 30 * time.Millisecond

// FadeMode selects how a new cue replaces what is playing
type FadeMode int

const (
	FadeNone FadeMode = iota
	FadeIn
	FadeOut
	FadeOutThenIn
	CrossFade
)

var fadeModeNames = map[FadeMode]string{
	FadeNone:      "none",
	FadeIn:        "fade-in",
	FadeOut:       "fade-out",
	FadeOutThenIn: "fade-out-in",
	CrossFade:     "crossfade",
}

func (m FadeMode) String() string {
	if name, ok := fadeModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseFadeMode parses the names returned by FadeMode.String
func ParseFadeMode(s string) (FadeMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FadeNone, nil
	}
	for mode, name := range fadeModeNames {
		if name == s {
			return mode, nil
		}
	}
	return FadeNone, fmt.Errorf("unknown fade mode %q", s)
}

func (m FadeMode) fadesIn() bool  { return m == FadeIn || m == FadeOutThenIn }
func (m FadeMode) fadesOut() bool { return m == FadeOut || m == FadeOutThenIn }

// TriggerRequest describes a cue to start
type TriggerRequest struct {
	// Path of the media file
	Path string

	// DSP replaces the deck's processing settings when set
	DSP *dsp.Config

	// Volume is the cue's target volume (0-100, default: 100)
	Volume int

	// Mode is the transition from whatever is playing
	Mode FadeMode

	FadeIn    time.Duration
	FadeOut   time.Duration
	CrossFade time.Duration
}

type media struct {
	path       string
	buf        *audio.Buffer
	durationMs int
}

// Trigger starts a cue on one of the two deck voices and returns that
// voice. The media is decoded before anything changes, so a load failure
// leaves playback untouched. In the fade-out modes with a cue already
// sounding the start is delayed until the fade-out finishes; a later
// Trigger or StopAll cancels that pending start.
func (e *Engine) Trigger(req TriggerRequest) (*Voice, error) {
	return e.TriggerContext(context.Background(), req)
}

// TriggerContext is Trigger with a context bounding the decode
func (e *Engine) TriggerContext(ctx context.Context, req TriggerRequest) (*Voice, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if req.Volume == 0 {
		req.Volume = 100
	}
	req.Volume = min(max(req.Volume, 0), 100)

	buf, durationMs, err := e.load(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	m := media{path: req.Path, buf: buf, durationMs: durationMs}

	e.deckMu.Lock()
	defer e.deckMu.Unlock()
	e.token++
	return e.startLocked(req, m, e.token, true), nil
}

// StopAll cancels any pending start and fades every active voice to
// silence over fade, stopping it at the end
func (e *Engine) StopAll(fade time.Duration) {
	e.deckMu.Lock()
	e.token++
	e.deckMu.Unlock()

	for _, v := range *e.voices.Load() {
		if v.Active() {
			e.fades.Start(v, 0, fade, true)
		} else {
			e.fades.Cancel(v)
		}
	}
}

// Decks returns the primary and secondary deck voices. The primary holds
// the most recently triggered cue.
func (e *Engine) Decks() (primary, secondary *Voice) {
	e.deckMu.Lock()
	defer e.deckMu.Unlock()
	return e.primary, e.secondary
}

func (e *Engine) startLocked(req TriggerRequest, m media, token uint64, allowDefer bool) *Voice {
	old, next := selectTransition(e.primary, e.secondary)

	if allowDefer && old != nil && req.Mode.fadesOut() {
		for _, v := range []*Voice{e.primary, e.secondary} {
			if v.Active() {
				e.fades.Start(v, 0, req.FadeOut, true)
			}
		}
		e.fades.After(max(req.FadeOut, time.Millisecond)+fadeOutGrace, func() {
			e.deckMu.Lock()
			defer e.deckMu.Unlock()
			if e.token != token || e.closed.Load() {
				return
			}
			e.startLocked(req, m, token, false)
		})
		e.log.Debug("start deferred after fade-out", "path", m.path, "fade", req.FadeOut)
		return e.primary
	}

	e.fades.Cancel(e.primary)
	e.fades.Cancel(e.secondary)

	if req.Mode == CrossFade {
		next.Stop()
		next.install(m.path, m.buf, m.durationMs, req.DSP)
		next.SetVolume(0)
		next.Play()
		e.fades.Start(next, req.Volume, req.CrossFade, false)
		if old != nil {
			e.fades.Start(old, 0, req.CrossFade, true)
		}
		if e.primary != next {
			e.primary, e.secondary = e.secondary, e.primary
		}
		e.log.Info("crossfade", "path", m.path, "voice", next.Name(), "duration", req.CrossFade)
		return next
	}

	e.secondary.Stop()
	e.primary.Stop()
	v := e.primary
	v.install(m.path, m.buf, m.durationMs, req.DSP)
	if req.Mode.fadesIn() {
		v.SetVolume(0)
		v.Play()
		e.fades.Start(v, req.Volume, req.FadeIn, false)
	} else {
		v.SetVolume(req.Volume)
		v.Play()
	}
	e.log.Info("cue started", "path", m.path, "voice", v.Name(), "mode", req.Mode)
	return v
}

// selectTransition picks the voice to fade out and the voice to receive
// the next cue. With both decks active the one playing, then the louder,
// is faded out.
func selectTransition(a, b *Voice) (old, next *Voice) {
	aActive, bActive := a.Active(), b.Active()
	switch {
	case aActive && bActive:
		if !scoreBelow(a, b) {
			return a, b
		}
		return b, a
	case aActive:
		return a, b
	case bActive:
		return b, a
	default:
		return nil, a
	}
}

// scoreBelow reports whether a ranks below b by (playing, volume)
func scoreBelow(a, b *Voice) bool {
	ap, bp := a.State() == Playing, b.State() == Playing
	if ap != bp {
		return bp
	}
	return a.Volume() < b.Volume()
}
