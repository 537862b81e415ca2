package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/weblookup/internal/app"
)

func versionString() string {
	v, _, _ := app.BuildInfo()
	return v
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading; version must work without any setup.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			v, c, d := app.BuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "weblookup version %s\n", v)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", c)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", d)
		},
	}
}
