package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/logging"
	"github.com/quadpane/quadpane/internal/tui"
)

var inspectState string

var inspectCmd = &cobra.Command{
	Use:   "inspect [url...]",
	Short: "Open an interactive layout inspector in the terminal",
	Long: `Inspect renders a session's pane geometry as boxes in the terminal and
drives the same layout operations the browser shell issues.

Keys: arrows focus, m/M move the focused pane, + inserts after it,
x removes it, f toggles full-pane, h/v/g switch mode, e equalizes
ratios, ? toggles help, q quits.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectState, "state", "", "encoded layout state to load")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	if len(args) == 0 && inspectState == "" {
		return fmt.Errorf("provide at least one url or --state")
	}

	// The inspector owns the terminal; route logs nowhere while it runs.
	ctx := logging.WithContext(app.Context(), zerolog.Nop())

	var (
		session *compositor.Session
		err     error
	)
	if inspectState != "" {
		session, err = app.Registry.Create(ctx, inspectState, nil)
	} else {
		urls := make([]string, len(args))
		for i, arg := range args {
			urls[i] = ensureScheme(arg)
		}
		session, err = app.Registry.CreateFromInput(ctx, usecase.NewStateInput{URLs: urls}, nil)
	}
	if err != nil {
		return err
	}
	defer session.Close(context.WithoutCancel(ctx)) //nolint:errcheck

	return tui.RunInspector(ctx, session)
}

func ensureScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
