package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of msauth",
		Long:  `All software has versions. This is msauth's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "msauth version %s (%s %s/%s)\n",
				appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
