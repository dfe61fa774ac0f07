package main

import (
	"github.com/spf13/cobra"

	"github.com/oxidewm/oxidewm/internal/ipc"
	"github.com/oxidewm/oxidewm/internal/output"
	"github.com/oxidewm/oxidewm/internal/wm"
)

func newStateCmd(g *globals) *cobra.Command {
	var format string
	var pretty, wait bool
	var since uint64

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the window manager's state",
		Long: "Print every screen, workspace and window of the running window manager. " +
			"With --wait, block until the state changes first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format, output.FormatYAML, output.FormatJSON)
			if err != nil {
				return err
			}
			client := ipc.NewClient(g.env.Socket)
			var st wm.State
			if wait {
				_, err = client.WaitState(cmd.Context(), since, &st)
			} else {
				_, err = client.State(cmd.Context(), &st)
			}
			if err != nil {
				return err
			}
			return output.Printer{W: cmd.OutOrStdout(), Format: f, Pretty: pretty}.Print(st)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the next state change")
	cmd.Flags().Uint64Var(&since, "since", 0, "with --wait, the last state version seen")
	return cmd
}
