// Partyline - client-side chat state machine
//
// Copyright (c) 2026 Partyline contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/partyline/cmd/partyline/internal"
	"github.com/tinyland-inc/partyline/cmd/partyline/internal/inspect"
	"github.com/tinyland-inc/partyline/cmd/partyline/internal/repl"
	"github.com/tinyland-inc/partyline/cmd/partyline/internal/run"
	"github.com/tinyland-inc/partyline/cmd/partyline/internal/version"
)

func NewPartylineCommand() *cobra.Command {
	short := fmt.Sprintf("%s partyline - Chat state machine v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "partyline",
		Short:   short,
		Example: "partyline repl",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		repl.NewReplCommand(),
		inspect.NewInspectCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewPartylineCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
