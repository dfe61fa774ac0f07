package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/ipc"
	"github.com/oxidewm/oxidewm/internal/logging"
	"github.com/oxidewm/oxidewm/internal/output"
	"github.com/oxidewm/oxidewm/internal/wm"
)

// retryDelay is how long bar waits before reconnecting after an error.
const retryDelay = time.Second

func newBarCmd(g *globals) *cobra.Command {
	var format string
	var screen uint32
	var once bool

	cmd := &cobra.Command{
		Use:   "bar",
		Short: "Print a status line on every state change",
		Long: "Print one line per state change for a status bar to display: the " +
			"workspaces of a screen, the active one in brackets, urgent ones " +
			"marked with '!', and the focused window's title.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format, output.FormatText, output.FormatJSON)
			if err != nil {
				return err
			}
			b := &barWriter{
				client:  ipc.NewClient(g.env.Socket),
				printer: output.Printer{W: cmd.OutOrStdout(), Format: f},
				screen:  screen,
				log:     logging.NewDefault().Named("bar"),
			}
			if once {
				return b.printOnce(cmd.Context())
			}
			return b.follow(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().Uint32Var(&screen, "screen", 0, "root window of the screen to follow (default the focused screen)")
	cmd.Flags().BoolVar(&once, "once", false, "print the current line and exit")
	return cmd
}

type barWriter struct {
	client  *ipc.Client
	printer output.Printer
	screen  uint32
	last    *wm.BarState
	log     *zap.Logger
}

func (b *barWriter) printOnce(ctx context.Context) error {
	var st wm.State
	if _, err := b.client.State(ctx, &st); err != nil {
		return err
	}
	return b.print(st)
}

// follow prints a line whenever the bar's content changes, until ctx ends.
// Connection failures are retried so the bar survives a restart of the
// window manager.
func (b *barWriter) follow(ctx context.Context) error {
	var since uint64
	for {
		var st wm.State
		v, err := b.client.WaitState(ctx, since, &st)
		if err == nil {
			since = v
			if err := b.print(st); err != nil {
				return err
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		var re *ipc.RemoteError
		if errors.As(err, &re) {
			return err
		}
		b.log.Warn("lost the window manager, retrying", zap.Error(err), zap.Duration("delay", retryDelay))
		since = 0
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
	}
}

// print writes the line for the followed screen if it differs from the
// last one written.
func (b *barWriter) print(st wm.State) error {
	root := b.screen
	if root == 0 {
		root = st.FocusedScreen
	}
	for _, bar := range st.Bars() {
		if bar.Screen != root {
			continue
		}
		if b.last != nil && equalBars(*b.last, bar) {
			return nil
		}
		b.last = &bar
		return b.printer.Print(bar)
	}
	return fmt.Errorf("no screen with root 0x%x", root)
}

func equalBars(a, b wm.BarState) bool {
	return a.String() == b.String() && a.Screen == b.Screen
}
