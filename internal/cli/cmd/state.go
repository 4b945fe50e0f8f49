package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
	"github.com/quadpane/quadpane/internal/urlstate"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Encode and decode layout state values",
}

var stateEncodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Encode a layout descriptor into its query value",
	Long: `Read a JSON descriptor ({"urls": [...], "ratios": [...],
"layout": "...", "titles": [...]}) from the file or stdin, validate it
the way view construction does, and print the value carried by the
state query parameter.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStateEncode,
}

var stateDecodeCmd = &cobra.Command{
	Use:   "decode [value]",
	Short: "Decode a state query value into its descriptor",
	Long: `Print the layout descriptor carried by a state value. The
argument may be the bare query value or a full link containing it;
with no argument the value is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStateDecode,
}

func init() {
	stateCmd.AddCommand(stateEncodeCmd)
	stateCmd.AddCommand(stateDecodeCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateEncode(_ *cobra.Command, args []string) error {
	raw, err := readInput(args)
	if err != nil {
		return err
	}

	var doc urlstate.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse descriptor: %w", err)
	}

	editor := usecase.NewEditLayoutUseCase(func() string { return uuid.NewString() })
	ctx := logging.WithContext(context.Background(), logging.NewFromEnv())
	state, err := editor.NewState(ctx, usecase.NewStateInput{
		URLs:   doc.URLs,
		Ratios: doc.Ratios,
		Titles: doc.Titles,
		Mode:   entity.LayoutMode(doc.Layout),
	})
	if err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	encoded, err := urlstate.Encode(state)
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}

func runStateDecode(_ *cobra.Command, args []string) error {
	raw, err := readInput(args)
	if err != nil {
		return err
	}
	value := strings.TrimSpace(string(raw))

	// Accept a full link as well as the bare parameter value.
	if u, parseErr := url.Parse(value); parseErr == nil {
		if fromQuery := u.Query().Get(urlstate.ParamName); fromQuery != "" {
			value = fromQuery
		}
	}

	doc := urlstate.Decode(value)
	if len(doc.URLs) == 0 {
		return fmt.Errorf("no layout state found in input")
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// readInput returns the single file argument's contents, or stdin when
// no argument (or "-") is given. For decode the argument is the value
// itself when it is not a readable file.
func readInput(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		if data, err := os.ReadFile(args[0]); err == nil {
			return data, nil
		}
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}
