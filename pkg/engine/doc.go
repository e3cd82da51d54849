// ABOUTME: Real-time mixing engine for cue playback
// ABOUTME: Voices, fades, transitions and output device management
// Package engine plays decoded cues through an output device.
//
// An Engine owns the output stream, the preload cache and any number of
// Voices. The driver pulls audio through Engine.Render; each playing voice
// contributes one block per call (tempo read, pitch shift, DSP, volume).
// Fades and voice polling run on Engine.Run's timers, never on the audio
// thread.
//
// Example:
//
//	eng, err := engine.New(engine.Config{Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//	if err := eng.Start(); err != nil {
//		return err
//	}
//	go eng.Run(ctx)
//
//	_, err = eng.Trigger(engine.TriggerRequest{
//		Path:      "cues/intro.flac",
//		Mode:      engine.CrossFade,
//		CrossFade: 2 * time.Second,
//	})
package engine
