package wm

import (
	xp "github.com/BurntSushi/xgb/xproto"
)

// PendingMove is returned by Workspace.MoveWindow. Window is the window that
// moved, or 0 if nothing moved.
type PendingMove struct {
	Window xp.Window
}

type bridgeState int

const (
	bridgeIdle bridgeState = iota
	bridgeAwaitingEnter
)

// bridge carries a window move over to the next enter event. Relayouting
// after a move slides another window under the pointer; the enter event for
// that window must focus the moved window instead.
type bridge struct {
	state   bridgeState
	pending xp.Window
}

func (b *bridge) arm(p PendingMove) {
	if p.Window == 0 {
		return
	}
	b.state = bridgeAwaitingEnter
	b.pending = p.Window
}

// consume returns the window an enter event should focus: the pending moved
// window once, and reported otherwise.
func (b *bridge) consume(reported xp.Window) xp.Window {
	if b.state != bridgeAwaitingEnter {
		return reported
	}
	w := b.pending
	b.state, b.pending = bridgeIdle, 0
	return w
}
