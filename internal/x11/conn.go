// Package x11 is the window manager's view of the X server: the requests it
// issues and the events it reads. Conn is implemented by an xgb connection
// (Dial) and by the recording fake in package x11test.
package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	xp "github.com/BurntSushi/xgb/xproto"
)

// Screen is one X root and the rectangle windows may be tiled into.
type Screen struct {
	Root xp.Window
	Rect xp.Rectangle
}

// Property classifies the atom of a PropertyNotify event.
type Property int

const (
	PropertyOther Property = iota
	PropertyTitle
	PropertyHints
)

// Conn is an open session with the X server.
//
// Requests without an error return are fire-and-forget: their errors are
// collected and reported by the next call to Flush. Requests that return an
// error wait for the server's reply.
type Conn interface {
	Screens() []Screen

	// BecomeWM selects substructure redirection on root. It fails with an
	// xproto.AccessError if another window manager already holds it.
	BecomeWM(root xp.Window) error
	TopLevelWindows(root xp.Window) ([]xp.Window, error)

	NewWindowID() (xp.Window, error)
	Geometry(win xp.Window) (xp.Rectangle, error)
	CreateFrame(frame, root xp.Window, r xp.Rectangle, borderWidth uint16, borderPixel uint32)
	ReparentWindow(win, parent xp.Window, x, y int16)
	ConfigureWindow(win xp.Window, r xp.Rectangle, borderWidth uint16)
	SetBorderColor(win xp.Window, pixel uint32)
	SelectInput(win xp.Window, mask uint32)
	MapWindow(win xp.Window)
	UnmapWindow(win xp.Window)
	DestroyWindow(win xp.Window)

	SetInputFocus(win xp.Window)
	SetActiveWindow(win xp.Window)
	WarpPointer(win xp.Window, x, y int16)
	// CloseWindow asks the client to close win with WM_DELETE_WINDOW if it
	// supports that protocol, and kills the client otherwise.
	CloseWindow(win xp.Window)

	SendConfigureNotify(win xp.Window, r xp.Rectangle, borderWidth uint16)
	ForwardConfigureRequest(e xp.ConfigureRequestEvent)

	GrabKey(root xp.Window, mods uint16, key xp.Keycode) error
	UngrabKeys(root xp.Window)
	Keycodes(key string) []xp.Keycode

	Title(win xp.Window) string
	Urgent(win xp.Window) bool
	IsDock(win xp.Window) bool
	WatchedProperty(atom xp.Atom) Property

	// WaitForEvent blocks until the next event or error. Both are nil when
	// the connection has been closed.
	WaitForEvent() (xgb.Event, xgb.Error)
	Flush() []RequestError
	Close()
}

// RequestError is the failure of a fire-and-forget request.
type RequestError struct {
	Request string
	Window  xp.Window
	Err     error
}

func (e RequestError) Error() string {
	return fmt.Sprintf("%s(0x%x): %v", e.Request, uint32(e.Window), e.Err)
}

func (e RequestError) Unwrap() error { return e.Err }

// IsAccessDenied reports whether err is an X Access error.
func IsAccessDenied(err error) bool {
	var ae xp.AccessError
	return errors.As(err, &ae)
}

// Request names used in RequestError.
const (
	ReqChangeWindowAttributes = "ChangeWindowAttributes"
	ReqCreateWindow           = "CreateWindow"
	ReqReparentWindow         = "ReparentWindow"
	ReqConfigureWindow        = "ConfigureWindow"
	ReqMapWindow              = "MapWindow"
	ReqUnmapWindow            = "UnmapWindow"
	ReqDestroyWindow          = "DestroyWindow"
	ReqSetInputFocus          = "SetInputFocus"
	ReqWarpPointer            = "WarpPointer"
	ReqSendEvent              = "SendEvent"
	ReqKillClient             = "KillClient"
	ReqUngrabKey              = "UngrabKey"
	ReqSetActiveWindow        = "SetActiveWindow"
)

// Event masks selected on roots, frames and clients.
const (
	RootEventMask = xp.EventMaskSubstructureRedirect |
		xp.EventMaskSubstructureNotify |
		xp.EventMaskEnterWindow |
		xp.EventMaskFocusChange |
		xp.EventMaskPropertyChange

	FrameEventMask = xp.EventMaskSubstructureRedirect |
		xp.EventMaskSubstructureNotify |
		xp.EventMaskEnterWindow |
		xp.EventMaskLeaveWindow

	ClientEventMask = xp.EventMaskPropertyChange
)
