package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opcpublisher/plcharness/internal/lifecycle"
)

func newEndpointCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Print the Docker engine endpoint for this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := lifecycle.ResolveEndpoint(o.goos)
			if err != nil {
				return err
			}
			ep = ep.WithOverride(o.cfg.EngineHost)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ep.Kind, ep.Address)
			return nil
		},
	}
}
