package repl

import (
	"github.com/spf13/cobra"
)

func NewReplCommand() *cobra.Command {
	var debug bool
	var user string
	var client string

	cmd := &cobra.Command{
		Use:     "repl",
		Aliases: []string{"i"},
		Short:   "Interactive chat state shell",
		Long: "Drives the chat state machine interactively with a loopback transport:\n" +
			"local sends are acknowledged by a simulated server echo.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return replCmd(debug, user, client)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&user, "user", "u", "me", "Current user id")
	cmd.Flags().StringVarP(&client, "client", "c", "", "Ephemeral client id")

	return cmd
}
