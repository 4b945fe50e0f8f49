package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadpane/quadpane/internal/domain/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("quadpane %s\n", buildInfo.Version)
		fmt.Printf("  commit: %s\n", buildInfo.Commit)
		fmt.Printf("  built:  %s\n", buildInfo.BuildDate)
		fmt.Printf("  go:     %s\n", buildInfo.GoVersion)
		fmt.Printf("  repo:   %s\n", build.RepoURL())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
