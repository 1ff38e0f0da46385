package run

import (
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	var debug bool
	var user string
	var client string
	var events string

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Ingest a real-time event stream into the chat state",
		Long: "Reads newline-delimited JSON envelopes from a file or stdin, applies them\n" +
			"to the chat state machine, and persists the resulting snapshot.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCmd(debug, user, client, events)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Current user id")
	cmd.Flags().StringVarP(&client, "client", "c", "", "Ephemeral client id")
	cmd.Flags().StringVarP(&events, "events", "e", "-", "Event stream file (- for stdin)")

	return cmd
}
