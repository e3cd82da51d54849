// ABOUTME: play subcommand that runs a cue list on the selected output
// ABOUTME: Optional bubbletea transport view, streaming logs otherwise
package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/config"
	"github.com/cuedeck/cuedeck/internal/ui"
	"github.com/cuedeck/cuedeck/internal/version"
	"github.com/cuedeck/cuedeck/pkg/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// statusInterval is how often the transport view is refreshed
const statusInterval = 250 * time.Millisecond

func playCommand(a *app) *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play cues in order",
		Long: `Play triggers each file in turn. The next cue starts when the current one
ends, or earlier in crossfade mode so the overlap finishes with it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyPlayFlags(cmd.Flags(), a.cfg)
			return a.play(cmd.Context(), args, useTUI)
		},
	}

	flags := cmd.Flags()
	flags.String("mode", engine.FadeNone.String(), "Transition: none, fade-in, fade-out, fade-out-in, crossfade")
	flags.Duration("crossfade", 2*time.Second, "Crossfade duration; implies --mode crossfade")
	flags.Duration("fade-in", time.Second, "Fade-in duration")
	flags.Duration("fade-out", time.Second, "Fade-out duration")
	flags.Float64("tempo", 0, "Tempo change in percent (-30 to 30)")
	flags.Float64("pitch", 0, "Pitch change in percent (-30 to 30)")
	flags.Float64("reverb", 0, "Reverb tail in seconds (0 to 20)")
	flags.IntSlice("eq", nil, "EQ gains in dB, low band first (e.g. 3,0,-2)")
	flags.Bool("preload", false, "Decode upcoming cues ahead of time")
	flags.BoolVar(&useTUI, "tui", false, "Show the interactive transport view")

	bind(a.v, flags.Lookup("mode"), "transition.mode")
	bind(a.v, flags.Lookup("crossfade"), "transition.crossfade")
	bind(a.v, flags.Lookup("fade-in"), "transition.fadein")
	bind(a.v, flags.Lookup("fade-out"), "transition.fadeout")
	bind(a.v, flags.Lookup("tempo"), "dsp.tempo")
	bind(a.v, flags.Lookup("pitch"), "dsp.pitch")
	bind(a.v, flags.Lookup("reverb"), "dsp.reverb")
	bind(a.v, flags.Lookup("eq"), "dsp.eqbands")
	bind(a.v, flags.Lookup("preload"), "preload.enabled")

	return cmd
}

// applyPlayFlags resolves flags that imply other settings
func applyPlayFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("crossfade") && !flags.Changed("mode") {
		cfg.Transition.Mode = engine.CrossFade.String()
	}
	if flags.Changed("eq") {
		cfg.DSP.EQEnabled = true
	}
}

func (a *app) play(ctx context.Context, cues []string, useTUI bool) error {
	logger, cleanup, err := a.newLogger(useTUI)
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "version", version.String(), "cues", len(cues),
		"backend", a.cfg.Output.Backend, "mode", a.cfg.Transition.Mode)

	eng, err := engine.New(a.cfg.EngineConfig(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("closing engine", "err", err)
		}
	}()
	if err := eng.Start(); err != nil {
		return err
	}
	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine loop stopped", "err", err)
		}
	}()

	var tuiProg *tea.Program
	var ctrl *ui.Controls
	if useTUI {
		ctrl = ui.NewControls()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			return err
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				logger.Error("TUI stopped", "err", err)
			}
		}()
		defer func() {
			tuiProg.Quit()
			tuiProg.Wait()
		}()
	}

	s := newShow(eng, a.cfg, logger, cues)
	if err := s.Start(); err != nil {
		return err
	}
	return runShow(ctx, s, eng, ctrl, tuiProg, logger)
}

// runShow drives the show until it ends, the TUI quits or ctx is cancelled.
// With the TUI up the show stays open after the last cue.
func runShow(ctx context.Context, s *show, eng *engine.Engine, ctrl *ui.Controls, tuiProg *tea.Program, logger *log.Logger) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var commands <-chan ui.Command
	var quit <-chan struct{}
	if ctrl != nil {
		commands = ctrl.Commands
		quit = ctrl.Quit
	}

	update := func() {
		if tuiProg != nil {
			tuiProg.Send(s.Status())
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return nil

		case <-quit:
			logger.Info("quit from TUI")
			return nil

		case ev := <-eng.Events():
			finished, err := s.HandleEvent(ev)
			if err != nil {
				logger.Warn("skipping cue", "err", err)
			}
			if finished && ctrl == nil {
				logger.Info("show complete")
				return nil
			}

		case cmd := <-commands:
			if err := s.HandleCommand(cmd); err != nil {
				logger.Warn("command failed", "err", err)
			}
			update()

		case <-ticker.C:
			if err := s.Tick(); err != nil {
				logger.Warn("skipping cue", "err", err)
			}
			if s.done && ctrl == nil && !anyActive(eng) {
				logger.Info("show complete")
				return nil
			}
			update()
		}
	}
}

func anyActive(eng *engine.Engine) bool {
	for _, v := range eng.Voices() {
		if v.Active() {
			return true
		}
	}
	return false
}
