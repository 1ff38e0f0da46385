package inspect

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/partyline/cmd/partyline/internal"
)

func NewInspectCommand() *cobra.Command {
	var statePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted chat snapshot",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return inspectCmd(statePath, asJSON)
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "State file (defaults to the configured path)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")

	return cmd
}

func inspectCmd(statePath string, asJSON bool) error {
	if statePath == "" {
		cfg, err := internal.LoadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		statePath = cfg.StatePath()
	}

	state, err := internal.LoadState(statePath)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Printf("%s %s: %d sessions\n", internal.Logo, statePath, len(state.Sessions))
	if state.ActiveSessionID != "" {
		fmt.Printf("  active: %s\n", state.ActiveSessionID)
	}
	for _, s := range state.Sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %-24s %-6s %-20s %d participants, %d messages\n",
			s.ID, s.Type, title, len(s.Participants), len(s.Messages))
	}
	return nil
}
