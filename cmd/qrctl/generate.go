package main

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "generate <link>",
		Short: "Generate a QR code for a link",
		Long:  `Generate a QR code PNG for the given link. Without --name the file is called QR_<link> with every character outside [A-Za-z0-9_-] replaced by an underscore.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeService, err := a.service()
			defer closeService()
			if err != nil {
				return err
			}

			link := args[0]
			if name == "" {
				name = defaultName(link)
			}

			result, err := svc.Generate(commandContext(cmd), link, name)
			if err != nil {
				return err
			}

			stored := filepath.Join(svc.OutputDir(), result.Filename)
			if result.Cached {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, reusing %s\n", result.Filename, stored)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", result.Filename, stored)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name for the generated image")

	return cmd
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func defaultName(link string) string {
	return "QR_" + unsafeNameChars.ReplaceAllString(link, "_")
}
