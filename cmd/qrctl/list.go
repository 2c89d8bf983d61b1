package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the generation history, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeService, err := a.service()
			defer closeService()
			if err != nil {
				return err
			}

			entries := svc.History()
			out := cmd.OutOrStdout()

			if asJSON {
				raw, err := json.Marshal(entries)
				if err != nil {
					return err
				}
				_, err = out.Write(pretty.Pretty(raw))
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No QR codes generated yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILENAME\tLINK\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Filename, e.Link, humanize.Time(time.Unix(e.Timestamp, 0)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the history as JSON")

	return cmd
}
