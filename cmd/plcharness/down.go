package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opcpublisher/plcharness/internal/lifecycle"
	"github.com/opcpublisher/plcharness/internal/logging"
)

func newDownCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop and remove every container of the simulator image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := lifecycle.Sweep(cmd.Context(), o.cfg, o.fixtureOptions()...)
			if err != nil {
				return err
			}
			logging.Get().Info().Int("count", n).Str("image", o.cfg.Image).Msg("reaped simulator containers")
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d container(s)\n", n)
			return nil
		},
	}
}
