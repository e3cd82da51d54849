// ABOUTME: Tests for cue transitions between the two decks
// ABOUTME: Covers crossfade, deferred starts after a fade-out and selection rules
package engine

import (
	"testing"
	"time"

	"github.com/cuedeck/cuedeck/pkg/audio/decode"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addCue(r *testRig, name string) string {
	return r.dec.add(name, constBuffer(10*testRate, 0.2))
}

func TestTriggerPlaysOnPrimary(t *testing.T) {
	r := newRig(t)
	v, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav"), Volume: 70})
	require.NoError(t, err)

	primary, _ := r.eng.Decks()
	assert.Same(t, primary, v)
	assert.Equal(t, Playing, v.State())
	assert.Equal(t, 70, v.Volume())
	assert.Equal(t, "a.wav", v.MediaPath())
}

func TestTriggerAppliesDSP(t *testing.T) {
	r := newRig(t)
	cfg := dsp.DefaultConfig()
	cfg.TempoPct = 10
	v, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav"), DSP: &cfg})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.DSPConfig().TempoPct)
}

func TestCrossfadeScenario(t *testing.T) {
	r := newRig(t)
	a, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	b, err := r.eng.Trigger(TriggerRequest{
		Path:      addCue(r, "b.wav"),
		Mode:      CrossFade,
		CrossFade: 2 * time.Second,
	})
	require.NoError(t, err)
	require.NotSame(t, a, b)
	assert.Equal(t, 0, b.Volume())
	assert.Equal(t, Playing, b.State())

	primary, secondary := r.eng.Decks()
	assert.Same(t, b, primary)
	assert.Same(t, a, secondary)

	r.clock.Advance(time.Second)
	r.eng.Fades().Tick(start.Add(time.Second))
	assert.Equal(t, 50, a.Volume())
	assert.Equal(t, 50, b.Volume())

	out := r.null.Pull(64)
	assert.InDelta(t, 0.2, out[0], 1e-6, "equal-gain sum of two matching cues")

	r.clock.Advance(time.Second)
	r.eng.Fades().Tick(start.Add(2 * time.Second))
	assert.Equal(t, 0, a.Volume())
	assert.Equal(t, Stopped, a.State())
	assert.Equal(t, 100, b.Volume())
	assert.Equal(t, Playing, b.State())
}

func TestCrossfadeWithNothingPlayingFadesIn(t *testing.T) {
	r := newRig(t)
	start := r.clock.Now()
	v, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav"), Mode: CrossFade, CrossFade: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Volume())

	r.eng.Fades().Tick(start.Add(time.Second))
	assert.Equal(t, 100, v.Volume())
}

func TestFadeInMode(t *testing.T) {
	r := newRig(t)
	start := r.clock.Now()
	v, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav"), Volume: 80, Mode: FadeIn, FadeIn: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Volume())

	r.eng.Fades().Tick(start.Add(500 * time.Millisecond))
	assert.Equal(t, 40, v.Volume())
	r.eng.Fades().Tick(start.Add(time.Second))
	assert.Equal(t, 80, v.Volume())
}

func TestFadeOutDefersStart(t *testing.T) {
	r := newRig(t)
	a, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	v, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "b.wav"), Mode: FadeOut, FadeOut: 500 * time.Millisecond})
	require.NoError(t, err)
	assert.Same(t, a, v)
	assert.Equal(t, "a.wav", a.MediaPath(), "start waits for the fade-out")
	assert.Equal(t, 1, r.eng.Fades().Pending())

	r.eng.Fades().Tick(start.Add(500 * time.Millisecond))
	assert.Equal(t, Stopped, a.State())
	assert.Equal(t, "a.wav", a.MediaPath())

	r.clock.Advance(530 * time.Millisecond)
	r.eng.Fades().Tick(start.Add(530 * time.Millisecond))
	assert.Equal(t, "b.wav", v.MediaPath())
	assert.Equal(t, Playing, v.State())
	assert.Equal(t, 100, v.Volume())
}

func TestFadeOutThenInRampsTheDelayedCue(t *testing.T) {
	r := newRig(t)
	_, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	v, err := r.eng.Trigger(TriggerRequest{
		Path:    addCue(r, "b.wav"),
		Mode:    FadeOutThenIn,
		FadeOut: 300 * time.Millisecond,
		FadeIn:  time.Second,
	})
	require.NoError(t, err)

	r.clock.Advance(400 * time.Millisecond)
	r.eng.Fades().Tick(r.clock.Now())
	assert.Equal(t, "b.wav", v.MediaPath())
	assert.Equal(t, 0, v.Volume())

	r.clock.Advance(time.Second)
	r.eng.Fades().Tick(r.clock.Now())
	assert.Equal(t, 100, v.Volume())
	assert.True(t, start.Before(r.clock.Now()))
}

func TestNewerTriggerCancelsPendingStart(t *testing.T) {
	r := newRig(t)
	_, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	_, err = r.eng.Trigger(TriggerRequest{Path: addCue(r, "b.wav"), Mode: FadeOut, FadeOut: 500 * time.Millisecond})
	require.NoError(t, err)

	c, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "c.wav")})
	require.NoError(t, err)
	assert.Equal(t, "c.wav", c.MediaPath())
	assert.Equal(t, 100, c.Volume())

	r.eng.Fades().Tick(start.Add(time.Second))
	assert.Equal(t, "c.wav", c.MediaPath())
	assert.Equal(t, Playing, c.State())
}

func TestStopAllCancelsPendingStart(t *testing.T) {
	r := newRig(t)
	a, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	_, err = r.eng.Trigger(TriggerRequest{Path: addCue(r, "b.wav"), Mode: FadeOut, FadeOut: 200 * time.Millisecond})
	require.NoError(t, err)
	r.eng.StopAll(100 * time.Millisecond)

	r.eng.Fades().Tick(start.Add(time.Second))
	assert.Equal(t, Stopped, a.State())
	assert.Equal(t, "a.wav", a.MediaPath())
}

func TestStopAllFadesEveryVoice(t *testing.T) {
	r := newRig(t)
	extra := playingVoice(t, r, "extra")
	deck, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	start := r.clock.Now()
	r.eng.StopAll(100 * time.Millisecond)
	r.eng.Fades().Tick(start.Add(50 * time.Millisecond))
	assert.Equal(t, 50, extra.Volume())

	r.eng.Fades().Tick(start.Add(100 * time.Millisecond))
	assert.Equal(t, Stopped, extra.State())
	assert.Equal(t, Stopped, deck.State())

	r.eng.StopAll(0)
	assert.False(t, r.eng.Fades().Active())
}

func TestTriggerLoadFailureLeavesPlayback(t *testing.T) {
	r := newRig(t)
	a, err := r.eng.Trigger(TriggerRequest{Path: addCue(r, "a.wav")})
	require.NoError(t, err)

	_, err = r.eng.Trigger(TriggerRequest{Path: "missing.wav", Mode: CrossFade, CrossFade: time.Second})
	require.ErrorIs(t, err, decode.ErrNotFound)
	assert.Equal(t, Playing, a.State())
	assert.Equal(t, 100, a.Volume())
	assert.False(t, r.eng.Fades().Active())
}

func TestSelectTransition(t *testing.T) {
	r := newRig(t)
	a := r.eng.NewVoice("a")
	b := r.eng.NewVoice("b")

	old, next := selectTransition(a, b)
	assert.Nil(t, old)
	assert.Same(t, a, next)

	require.NoError(t, b.SetMedia(addCue(r, "b.wav"), nil))
	b.Play()
	old, next = selectTransition(a, b)
	assert.Same(t, b, old)
	assert.Same(t, a, next)

	require.NoError(t, a.SetMedia(addCue(r, "a.wav"), nil))
	a.Play()
	a.SetVolume(40)
	old, next = selectTransition(a, b)
	assert.Same(t, b, old, "louder voice fades out")
	assert.Same(t, a, next)

	b.Pause()
	old, _ = selectTransition(a, b)
	assert.Same(t, a, old, "playing beats paused")

	b.Play()
	b.SetVolume(40)
	old, _ = selectTransition(a, b)
	assert.Same(t, a, old, "ties go to the first voice")
}

func TestParseFadeMode(t *testing.T) {
	for _, mode := range []FadeMode{FadeNone, FadeIn, FadeOut, FadeOutThenIn, CrossFade} {
		got, err := ParseFadeMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}

	got, err := ParseFadeMode(" CrossFade ")
	require.NoError(t, err)
	assert.Equal(t, CrossFade, got)

	got, err = ParseFadeMode("")
	require.NoError(t, err)
	assert.Equal(t, FadeNone, got)

	_, err = ParseFadeMode("swoosh")
	assert.Error(t, err)
}
