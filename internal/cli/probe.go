// ABOUTME: probe subcommand that decodes media files and reports their format
// ABOUTME: Uses the same decoder the engine plays through
package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/decode"
	"github.com/spf13/cobra"
)

func probeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "Decode media files and print their format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cleanup, err := a.newLogger(false)
			if err != nil {
				return err
			}
			defer cleanup()

			dec := decode.New(audio.Format{
				SampleRate: a.cfg.Output.SampleRate,
				Channels:   a.cfg.Output.Channels,
			}, logger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tRATE\tCHANNELS\tDURATION\tSIZE")

			var errs []error
			for _, path := range args {
				buf, durationMs, err := dec.DecodeContext(cmd.Context(), path)
				if err != nil {
					logger.Error("probe failed", "path", path, "err", err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.1f MB\n",
					path,
					buf.Format.SampleRate,
					buf.Format.Channels,
					time.Duration(durationMs)*time.Millisecond,
					float64(buf.SizeBytes())/(1024*1024))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
}
