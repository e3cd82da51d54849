// ABOUTME: devices subcommand listing output devices
// ABOUTME: Enumerates through the engine so names match what --device accepts
package cli

import (
	"fmt"

	"github.com/cuedeck/cuedeck/pkg/engine"
	"github.com/spf13/cobra"
)

func devicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cleanup, err := a.newLogger(false)
			if err != nil {
				return err
			}
			defer cleanup()

			eng, err := engine.New(a.cfg.EngineConfig(logger))
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			devices, err := eng.ListOutputDevices()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintf(out, "No output devices reported by backend %q\n", a.cfg.Output.Backend)
				return nil
			}
			for _, name := range devices {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
