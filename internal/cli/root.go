// ABOUTME: Root cobra command and shared setup for the cuedeck CLI
// ABOUTME: Binds persistent flags into viper before each subcommand runs
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/config"
	"github.com/cuedeck/cuedeck/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries state shared by subcommands
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
}

// RootCommand creates the cuedeck command tree
func RootCommand() *cobra.Command {
	return newRootCommand(&app{v: config.New()})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cuedeck",
		Short:         "Live sound-cue playback engine",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, a)

	rootCmd.AddCommand(
		devicesCommand(a),
		playCommand(a),
		probeCommand(a),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(a.v, a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}

	return rootCmd
}

// setupFlags defines flags shared by every subcommand
func setupFlags(rootCmd *cobra.Command, a *app) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: ./cuedeck.yaml)")
	flags.String("backend", "auto", "Output backend: auto, malgo, oto, portaudio, null")
	flags.String("device", "", "Output device name (default: system default)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Write logs to this file")

	bind(a.v, flags.Lookup("backend"), "output.backend")
	bind(a.v, flags.Lookup("device"), "output.device")
	bind(a.v, flags.Lookup("log-level"), "log.level")
	bind(a.v, flags.Lookup("log-file"), "log.file")
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// newLogger builds the application logger. With quiet set (the TUI owns
// the terminal) logs only go to the log file.
func (a *app) newLogger(quiet bool) (*log.Logger, func(), error) {
	var out io.Writer = os.Stderr
	cleanup := func() {}

	path := a.cfg.Log.File
	if path == "" && quiet {
		path = "cuedeck.log"
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { _ = f.Close() }
		if quiet {
			out = f
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          "cuedeck",
	})
	logger.SetLevel(a.cfg.LogLevel())
	return logger, cleanup, nil
}

// bind ties a flag to a viper key so an explicit flag overrides the file
// and environment
func bind(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}
