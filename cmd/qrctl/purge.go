package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Clear the history and delete every stored QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeService, err := a.service()
			defer closeService()
			if err != nil {
				return err
			}

			result, err := svc.Purge(commandContext(cmd))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "History cleared. Removed %d file(s).\n", result.Removed)
			if result.Failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) could not be deleted.\n", result.Failed)
			}
			return nil
		},
	}
}
