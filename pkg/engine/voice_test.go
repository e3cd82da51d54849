// ABOUTME: Tests for the voice state machine and render path
// ABOUTME: Uses a manual clock for anchor-based positions
package engine

import (
	"testing"
	"time"

	"github.com/cuedeck/cuedeck/pkg/audio/decode"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekThenPlayPosition(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("ten.wav", constBuffer(10*testRate, 0.1)), nil))
	assert.Equal(t, 10000, v.Duration())

	v.SetPosition(2500)
	assert.Equal(t, 2500, v.Position())

	v.Play()
	r.clock.Advance(time.Second)
	assert.InDelta(t, 3500, v.Position(), 10)

	v.Pause()
	paused := v.Position()
	r.clock.Advance(5 * time.Second)
	assert.Equal(t, paused, v.Position())

	v.Play()
	r.clock.Advance(500 * time.Millisecond)
	assert.InDelta(t, 4000, v.Position(), 10)
}

func TestSetPositionClamps(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("one.wav", constBuffer(testRate, 0.1)), nil))

	v.SetPosition(-50)
	assert.Equal(t, 0, v.Position())
	v.SetPosition(99999)
	assert.Equal(t, 1000, v.Position())
}

func TestStateMachine(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")

	v.Play()
	assert.Equal(t, Stopped, v.State(), "play without media is a no-op")

	require.NoError(t, v.SetMedia(r.dec.add("cue.wav", constBuffer(testRate, 0.1)), nil))
	v.Pause()
	assert.Equal(t, Stopped, v.State(), "pause only applies while playing")

	v.Play()
	assert.Equal(t, Playing, v.State())
	assert.True(t, v.Active())

	v.Pause()
	assert.Equal(t, Paused, v.State())
	assert.True(t, v.Active())

	v.Play()
	assert.Equal(t, Playing, v.State())

	r.clock.Advance(200 * time.Millisecond)
	v.Stop()
	assert.Equal(t, Stopped, v.State())
	assert.Equal(t, 0, v.Position())
	assert.False(t, v.Active())

	v.Pause()
	v.Stop()
	assert.Equal(t, Stopped, v.State())
}

func TestSetMediaFailureKeepsPreviousMedia(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	good := r.dec.add("good.wav", constBuffer(2*testRate, 0.1))
	require.NoError(t, v.SetMedia(good, nil))
	v.Play()

	err := v.SetMedia("missing.wav", nil)
	require.ErrorIs(t, err, decode.ErrNotFound)
	assert.ErrorIs(t, err, decode.ErrDecode)

	assert.Equal(t, good, v.MediaPath())
	assert.Equal(t, 2000, v.Duration())
	assert.Equal(t, Stopped, v.State())

	v.Play()
	assert.Equal(t, Playing, v.State())
}

func TestSetMediaThenPlayPlaysNewMedia(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("a.wav", constBuffer(testRate, 0.2)), nil))
	v.Play()
	r.null.Pull(64)

	require.NoError(t, v.SetMedia(r.dec.add("b.wav", constBuffer(testRate, 0.6)), nil))
	v.Play()
	out := r.null.Pull(64)
	assert.InDelta(t, 0.6, out[0], 1e-6)
}

func TestRenderFollowsSeek(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("ramp")
	frames := 10 * testRate
	require.NoError(t, v.SetMedia(r.dec.add("ramp.wav", rampBuffer(frames)), nil))
	v.Play()
	out := r.null.Pull(32)
	assert.InDelta(t, 0, out[0], 1e-6)

	v.SetPosition(5000)
	out = r.null.Pull(32)
	assert.InDelta(t, 0.5, out[0], 1e-4)
	assert.InDelta(t, 0.5, out[1], 1e-4)
}

func TestRenderAdvancesWithTempo(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("fast")
	cfg := dsp.DefaultConfig()
	cfg.TempoPct = 30
	require.NoError(t, v.SetMedia(r.dec.add("fast.wav", constBuffer(10*testRate, 0.1)), &cfg))
	v.Play()

	r.null.Pull(testRate)
	assert.InDelta(t, 1300, v.Position(), 1)

	r.clock.Advance(time.Second)
	assert.InDelta(t, 2600, v.Position(), 2)
}

func TestTempoChangeKeepsPositionContinuous(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("cue.wav", constBuffer(10*testRate, 0.1)), nil))
	v.Play()
	r.clock.Advance(time.Second)
	before := v.Position()

	cfg := v.DSPConfig()
	cfg.TempoPct = -30
	v.SetDSPConfig(cfg)
	assert.Equal(t, before, v.Position())

	r.clock.Advance(time.Second)
	assert.InDelta(t, before+700, v.Position(), 2)
}

func TestEndOfMediaStopsOnPoll(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("short")
	require.NoError(t, v.SetMedia(r.dec.add("short.wav", constBuffer(1000, 0.3)), nil))
	v.Play()
	drain(r.eng)

	r.null.Pull(512)
	out := r.null.Pull(512)
	assert.InDelta(t, 0.3, out[0], 1e-6)
	assert.Zero(t, out[len(out)-1], "tail past the end is silent")
	assert.Equal(t, Playing, v.State(), "render only flags the end")

	r.eng.Poll()
	assert.Equal(t, Stopped, v.State())
	assert.Equal(t, v.Duration(), v.Position())

	var sawStop bool
	for _, ev := range drain(r.eng) {
		if ev.Voice == v && ev.Kind == StateChanged && ev.State == Stopped {
			sawStop = true
		}
	}
	assert.True(t, sawStop)

	out = r.null.Pull(64)
	assert.Zero(t, out[0])

	v.Play()
	assert.Equal(t, 0, v.Position(), "replay after the end starts over")
}

func TestPollPublishesPosition(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("cue.wav", constBuffer(5*testRate, 0.1)), nil))
	v.Play()
	drain(r.eng)

	r.clock.Advance(1200 * time.Millisecond)
	r.eng.Poll()

	events := drain(r.eng)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, PositionChanged, last.Kind)
	assert.InDelta(t, 1200, last.PositionMs, 2)
	assert.Equal(t, 5000, last.DurationMs)
}

func TestSetMediaEmitsDuration(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	drain(r.eng)
	require.NoError(t, v.SetMedia(r.dec.add("cue.wav", constBuffer(3*testRate, 0.1)), nil))

	var duration int
	for _, ev := range drain(r.eng) {
		if ev.Kind == DurationChanged {
			duration = ev.DurationMs
		}
	}
	assert.Equal(t, 3000, duration)
}

func TestEventsNeverBlock(t *testing.T) {
	r := newRig(t, func(c *Config) { c.EventBuffer = 1 })
	v := r.eng.NewVoice("cue")
	require.NoError(t, v.SetMedia(r.dec.add("cue.wav", constBuffer(testRate, 0.1)), nil))
	for i := 0; i < 50; i++ {
		v.Play()
		v.Pause()
		v.Stop()
	}
	assert.Len(t, drain(r.eng), 1)
}

func TestVolumeClamps(t *testing.T) {
	r := newRig(t)
	v := r.eng.NewVoice("cue")
	assert.Equal(t, 100, v.Volume())
	v.SetVolume(150)
	assert.Equal(t, 100, v.Volume())
	v.SetVolume(-3)
	assert.Equal(t, 0, v.Volume())
}

func TestVoiceIdentity(t *testing.T) {
	r := newRig(t)
	a := r.eng.NewVoice("a")
	b := r.eng.NewVoice("b")
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "a", a.Name())

	r.eng.RemoveVoice(b)
	assert.NotContains(t, r.eng.Voices(), b)
}
