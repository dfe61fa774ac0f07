package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxidewm/oxidewm/internal/ipc"
)

func newMsgCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg <command> [args...]",
		Short: "Run a command in the running window manager",
		Long: "Run one command, such as \"GoToWorkspace 3\" or \"Focus left\", in the " +
			"running window manager. Remaining arguments are joined with spaces " +
			"into the command's argument.",
		Example: "  oxidewm msg GoToWorkspace next\n  oxidewm msg Exec firefox --private-window",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ipc.NewClient(g.env.Socket)
			return client.Command(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
	// Everything after <command> belongs to it, dashes included.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
