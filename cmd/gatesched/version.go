package main

import (
	"fmt"
	"github.com/spf13/cobra"
)

func newVersion() *cobra.Command {
	major, minor, patch := 0, 1, 0
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the gatesched version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatesched version: v%d.%d.%d\n", major, minor, patch)
		},
	}
	return cmd
}
