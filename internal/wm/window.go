package wm

import (
	xp "github.com/BurntSushi/xgb/xproto"

	"github.com/oxidewm/oxidewm/internal/x11"
)

// WindowRecord is a managed client and the frame it is reparented into.
type WindowRecord struct {
	Client xp.Window
	Frame  xp.Window
	Title  string
	Urgent bool

	// Visible reports whether the frame is mapped.
	Visible bool
	// Geometry is the frame's outer rectangle, border included.
	Geometry xp.Rectangle

	// ignoreUnmaps counts UnmapNotify events that the manager caused itself,
	// such as the one from reparenting an already mapped window.
	ignoreUnmaps int
	configured   bool
}

// configure places the frame so that its outer rectangle is r, and sizes the
// client below the titlebar. It is a no-op if r has not changed.
func (w *WindowRecord) configure(conn x11.Conn, r xp.Rectangle, st Style) {
	if w.configured && w.Geometry == r {
		return
	}
	w.Geometry = r
	w.configured = true
	conn.ConfigureWindow(w.Frame, w.frameRect(st), st.BorderWidth)
	conn.ConfigureWindow(w.Client, w.clientRect(st), 0)
}

// frameRect is Geometry without the border, as X sizes windows.
func (w *WindowRecord) frameRect(st Style) xp.Rectangle {
	bw := int(st.BorderWidth)
	return xp.Rectangle{
		X:      w.Geometry.X,
		Y:      w.Geometry.Y,
		Width:  atLeast1(int(w.Geometry.Width) - 2*bw),
		Height: atLeast1(int(w.Geometry.Height) - 2*bw),
	}
}

// clientRect is the client's rectangle relative to its frame.
func (w *WindowRecord) clientRect(st Style) xp.Rectangle {
	f := w.frameRect(st)
	return xp.Rectangle{
		X:      0,
		Y:      int16(st.TitlebarHeight),
		Width:  f.Width,
		Height: atLeast1(int(f.Height) - int(st.TitlebarHeight)),
	}
}

// clientRootRect is the client's rectangle relative to the root, as reported
// in synthetic ConfigureNotify events.
func (w *WindowRecord) clientRootRect(st Style) xp.Rectangle {
	c := w.clientRect(st)
	c.X = w.Geometry.X + int16(st.BorderWidth)
	c.Y += w.Geometry.Y + int16(st.BorderWidth)
	return c
}

func atLeast1(n int) uint16 {
	if n < 1 {
		return 1
	}
	return uint16(n)
}
