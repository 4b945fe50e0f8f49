// Package cmd provides Cobra CLI commands for quadpane.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadpane/quadpane/internal/cli"
	"github.com/quadpane/quadpane/internal/domain/build"
)

var (
	app       *cli.App
	buildInfo build.Info

	configFile string
	serveAddr  string
	dbPath     string

	rootCmd = &cobra.Command{
		Use:   "quadpane",
		Short: "Multi-pane browser layout engine",
		Long: `Quadpane composes up to four web panes into one shareable view.

Each arrangement lives in a small descriptor carried by a URL query
parameter, so a link restores the exact layout: pane order, split
ratios and layout mode. Serving exposes a JSON API, a per-session
event stream and a browser shell that materializes composed views;
the inspect command drives the same sessions from the terminal.

Running quadpane without a subcommand starts the server.`,
		RunE: runServe,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Utility commands run without the wired engine.
			switch cmd.Name() {
			case "help", "completion", "version",
				"state", "encode", "decode",
				"config", "schema", "path":
				return nil
			}

			var err error
			app, err = cli.NewApp(cli.Options{
				ConfigFile: configFile,
				Addr:       serveAddr,
				DBPath:     dbPath,
			})
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			app.BuildInfo = buildInfo
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				_ = app.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&serveAddr, "addr", "", "listen address override (host:port)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file override")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetBuildInfo sets the build information (called from main before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}
