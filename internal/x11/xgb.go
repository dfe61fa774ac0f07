package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	xp "github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"go.uber.org/zap"
)

type checker interface {
	Check() error
}

type pending struct {
	request string
	window  xp.Window
	cookie  checker
}

type xConn struct {
	conn    *xgb.Conn
	util    *xgbutil.XUtil
	log     *zap.Logger
	screens []Screen

	atomNetWMName      xp.Atom
	atomWMProtocols    xp.Atom
	atomWMDeleteWindow xp.Atom

	checkers  []pending
	closeOnce sync.Once
}

// Dial connects to the X server named by $DISPLAY.
func Dial(log *zap.Logger) (Conn, error) {
	c, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to X: %w", err)
	}
	util, err := xgbutil.NewConnXgb(c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("wrapping X connection: %w", err)
	}
	keybind.Initialize(util)

	x := &xConn{
		conn: c,
		util: util,
		log:  log.Named("x11"),
	}
	if err := x.initAtoms(); err != nil {
		c.Close()
		return nil, err
	}
	x.initScreens()
	return x, nil
}

func (x *xConn) check(request string, win xp.Window, c checker) {
	x.checkers = append(x.checkers, pending{request, win, c})
}

func (x *xConn) initAtoms() (err error) {
	intern := func(name string) xp.Atom {
		if err != nil {
			return 0
		}
		r, e := xp.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
		if e != nil {
			err = fmt.Errorf("interning %s: %w", name, e)
			return 0
		}
		return r.Atom
	}
	x.atomNetWMName = intern("_NET_WM_NAME")
	x.atomWMProtocols = intern("WM_PROTOCOLS")
	x.atomWMDeleteWindow = intern("WM_DELETE_WINDOW")
	return err
}

// initScreens records every root. The first root is narrowed to the first
// Xinerama head when the extension reports any.
func (x *xConn) initScreens() {
	setup := xp.Setup(x.conn)
	for _, r := range setup.Roots {
		x.screens = append(x.screens, Screen{
			Root: r.Root,
			Rect: xp.Rectangle{Width: r.WidthInPixels, Height: r.HeightInPixels},
		})
	}
	if len(x.screens) == 0 {
		return
	}
	if err := xinerama.Init(x.conn); err != nil {
		x.log.Debug("xinerama unavailable", zap.Error(err))
		return
	}
	xine, err := xinerama.QueryScreens(x.conn).Reply()
	if err != nil {
		x.log.Warn("querying xinerama screens", zap.Error(err))
		return
	}
	if len(xine.ScreenInfo) > 0 {
		si := xine.ScreenInfo[0]
		x.screens[0].Rect = xp.Rectangle{X: si.XOrg, Y: si.YOrg, Width: si.Width, Height: si.Height}
	}
}

func (x *xConn) Screens() []Screen {
	return append([]Screen(nil), x.screens...)
}

func (x *xConn) BecomeWM(root xp.Window) error {
	if err := xp.ChangeWindowAttributesChecked(x.conn, root, xp.CwEventMask,
		[]uint32{RootEventMask}).Check(); err != nil {
		return RequestError{ReqChangeWindowAttributes, root, err}
	}
	if err := x.setRootCursor(root); err != nil {
		x.log.Warn("setting root cursor", zap.Error(err))
	}
	return nil
}

// setRootCursor gives the root window the left_ptr cursor from the core
// cursor font instead of the default X.
func (x *xConn) setRootCursor(root xp.Window) error {
	xFont, err := xp.NewFontId(x.conn)
	if err != nil {
		return err
	}
	xCursor, err := xp.NewCursorId(x.conn)
	if err != nil {
		return err
	}
	if err := xp.OpenFontChecked(x.conn, xFont, uint16(len("cursor")), "cursor").Check(); err != nil {
		return err
	}
	const xcLeftPtr = 68 // XC_left_ptr from cursorfont.h.
	if err := xp.CreateGlyphCursorChecked(
		x.conn, xCursor, xFont, xFont, xcLeftPtr, xcLeftPtr+1,
		0, 0, 0, 0xffff, 0xffff, 0xffff).Check(); err != nil {
		return err
	}
	if err := xp.CloseFontChecked(x.conn, xFont).Check(); err != nil {
		return err
	}
	return xp.ChangeWindowAttributesChecked(x.conn, root, xp.CwCursor,
		[]uint32{uint32(xCursor)}).Check()
}

// TopLevelWindows lists the viewable, non-override-redirect children of
// root: the windows a newly started manager should adopt.
func (x *xConn) TopLevelWindows(root xp.Window) ([]xp.Window, error) {
	tree, err := xp.QueryTree(x.conn, root).Reply()
	if err != nil {
		return nil, err
	}
	var out []xp.Window
	for _, c := range tree.Children {
		attrs, err := xp.GetWindowAttributes(x.conn, c).Reply()
		if err != nil {
			continue
		}
		if attrs.OverrideRedirect || attrs.MapState != xp.MapStateViewable {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (x *xConn) NewWindowID() (xp.Window, error) {
	return xp.NewWindowId(x.conn)
}

func (x *xConn) Geometry(win xp.Window) (xp.Rectangle, error) {
	g, err := xp.GetGeometry(x.conn, xp.Drawable(win)).Reply()
	if err != nil {
		return xp.Rectangle{}, err
	}
	return xp.Rectangle{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}, nil
}

func (x *xConn) CreateFrame(frame, root xp.Window, r xp.Rectangle, borderWidth uint16, borderPixel uint32) {
	x.check(ReqCreateWindow, frame, xp.CreateWindowChecked(
		x.conn, 0, frame, root,
		r.X, r.Y, r.Width, r.Height, borderWidth,
		xp.WindowClassInputOutput, 0,
		xp.CwBorderPixel|xp.CwEventMask,
		[]uint32{borderPixel, FrameEventMask},
	))
}

func (x *xConn) ReparentWindow(win, parent xp.Window, px, py int16) {
	x.check(ReqReparentWindow, win, xp.ReparentWindowChecked(x.conn, win, parent, px, py))
}

func (x *xConn) ConfigureWindow(win xp.Window, r xp.Rectangle, borderWidth uint16) {
	x.check(ReqConfigureWindow, win, xp.ConfigureWindowChecked(x.conn, win,
		xp.ConfigWindowX|
			xp.ConfigWindowY|
			xp.ConfigWindowWidth|
			xp.ConfigWindowHeight|
			xp.ConfigWindowBorderWidth,
		[]uint32{
			uint32(uint16(r.X)),
			uint32(uint16(r.Y)),
			uint32(r.Width),
			uint32(r.Height),
			uint32(borderWidth),
		}))
}

func (x *xConn) SetBorderColor(win xp.Window, pixel uint32) {
	x.check(ReqChangeWindowAttributes, win, xp.ChangeWindowAttributesChecked(
		x.conn, win, xp.CwBorderPixel, []uint32{pixel}))
}

func (x *xConn) SelectInput(win xp.Window, mask uint32) {
	x.check(ReqChangeWindowAttributes, win, xp.ChangeWindowAttributesChecked(
		x.conn, win, xp.CwEventMask, []uint32{mask}))
}

func (x *xConn) MapWindow(win xp.Window) {
	x.check(ReqMapWindow, win, xp.MapWindowChecked(x.conn, win))
}

func (x *xConn) UnmapWindow(win xp.Window) {
	x.check(ReqUnmapWindow, win, xp.UnmapWindowChecked(x.conn, win))
}

func (x *xConn) DestroyWindow(win xp.Window) {
	x.check(ReqDestroyWindow, win, xp.DestroyWindowChecked(x.conn, win))
}

func (x *xConn) SetInputFocus(win xp.Window) {
	x.check(ReqSetInputFocus, win, xp.SetInputFocusChecked(
		x.conn, xp.InputFocusPointerRoot, win, xp.TimeCurrentTime))
}

func (x *xConn) SetActiveWindow(win xp.Window) {
	if err := ewmh.ActiveWindowSet(x.util, win); err != nil {
		x.checkers = append(x.checkers, pending{ReqSetActiveWindow, win, failed{err}})
	}
}

func (x *xConn) WarpPointer(win xp.Window, px, py int16) {
	x.check(ReqWarpPointer, win, xp.WarpPointerChecked(
		x.conn, xp.WindowNone, win, 0, 0, 0, 0, px, py))
}

func (x *xConn) CloseWindow(win xp.Window) {
	protocols, err := icccm.WmProtocolsGet(x.util, win)
	if err != nil {
		x.log.Debug("reading WM_PROTOCOLS", zap.Uint32("window", uint32(win)), zap.Error(err))
	}
	for _, p := range protocols {
		if p == "WM_DELETE_WINDOW" {
			x.sendClientMessage(win, x.atomWMDeleteWindow)
			return
		}
	}
	x.check(ReqKillClient, win, xp.KillClientChecked(x.conn, uint32(win)))
}

func (x *xConn) sendClientMessage(win xp.Window, atom xp.Atom) {
	x.check(ReqSendEvent, win, xp.SendEventChecked(x.conn, false, win, xp.EventMaskNoEvent,
		string(xp.ClientMessageEvent{
			Format: 32,
			Window: win,
			Type:   x.atomWMProtocols,
			Data: xp.ClientMessageDataUnionData32New([]uint32{
				uint32(atom),
				uint32(xp.TimeCurrentTime),
				0,
				0,
				0,
			}),
		}.Bytes()),
	))
}

func (x *xConn) SendConfigureNotify(win xp.Window, r xp.Rectangle, borderWidth uint16) {
	cne := xp.ConfigureNotifyEvent{
		Event:       win,
		Window:      win,
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		BorderWidth: borderWidth,
	}
	x.check(ReqSendEvent, win, xp.SendEventChecked(x.conn, false, win,
		xp.EventMaskStructureNotify, string(cne.Bytes())))
}

func (x *xConn) ForwardConfigureRequest(e xp.ConfigureRequestEvent) {
	mask, values := uint16(0), []uint32(nil)
	if e.ValueMask&xp.ConfigWindowX != 0 {
		mask |= xp.ConfigWindowX
		values = append(values, uint32(uint16(e.X)))
	}
	if e.ValueMask&xp.ConfigWindowY != 0 {
		mask |= xp.ConfigWindowY
		values = append(values, uint32(uint16(e.Y)))
	}
	if e.ValueMask&xp.ConfigWindowWidth != 0 {
		mask |= xp.ConfigWindowWidth
		values = append(values, uint32(e.Width))
	}
	if e.ValueMask&xp.ConfigWindowHeight != 0 {
		mask |= xp.ConfigWindowHeight
		values = append(values, uint32(e.Height))
	}
	if e.ValueMask&xp.ConfigWindowBorderWidth != 0 {
		mask |= xp.ConfigWindowBorderWidth
		values = append(values, uint32(e.BorderWidth))
	}
	if e.ValueMask&xp.ConfigWindowSibling != 0 {
		mask |= xp.ConfigWindowSibling
		values = append(values, uint32(e.Sibling))
	}
	if e.ValueMask&xp.ConfigWindowStackMode != 0 {
		mask |= xp.ConfigWindowStackMode
		values = append(values, uint32(e.StackMode))
	}
	x.check(ReqConfigureWindow, e.Window, xp.ConfigureWindowChecked(x.conn, e.Window, mask, values))
}

func (x *xConn) GrabKey(root xp.Window, mods uint16, key xp.Keycode) error {
	return xp.GrabKeyChecked(x.conn, false, root, mods, key,
		xp.GrabModeAsync, xp.GrabModeAsync).Check()
}

func (x *xConn) UngrabKeys(root xp.Window) {
	x.check(ReqUngrabKey, root, xp.UngrabKeyChecked(x.conn, xp.GrabAny, root, xp.ModMaskAny))
}

func (x *xConn) Keycodes(key string) []xp.Keycode {
	return keybind.StrToKeycodes(x.util, key)
}

// Title prefers the UTF-8 _NET_WM_NAME and falls back to WM_NAME.
func (x *xConn) Title(win xp.Window) string {
	if name, err := ewmh.WmNameGet(x.util, win); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(x.util, win)
	return name
}

func (x *xConn) Urgent(win xp.Window) bool {
	hints, err := icccm.WmHintsGet(x.util, win)
	if err != nil {
		return false
	}
	return hints.Flags&icccm.HintUrgency != 0
}

func (x *xConn) IsDock(win xp.Window) bool {
	types, err := ewmh.WmWindowTypeGet(x.util, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func (x *xConn) WatchedProperty(atom xp.Atom) Property {
	switch atom {
	case xp.AtomWmName, x.atomNetWMName:
		return PropertyTitle
	case xp.AtomWmHints:
		return PropertyHints
	}
	return PropertyOther
}

func (x *xConn) WaitForEvent() (xgb.Event, xgb.Error) {
	return x.conn.WaitForEvent()
}

// Flush waits for every outstanding fire-and-forget request and returns
// those the server rejected.
func (x *xConn) Flush() []RequestError {
	var errs []RequestError
	for i, c := range x.checkers {
		if err := c.cookie.Check(); err != nil {
			errs = append(errs, RequestError{c.request, c.window, err})
		}
		x.checkers[i] = pending{}
	}
	x.checkers = x.checkers[:0]
	return errs
}

// Close may be called more than once.
func (x *xConn) Close() {
	x.closeOnce.Do(x.conn.Close)
}

// failed is a checker for a request that failed before reaching the server.
type failed struct{ err error }

func (f failed) Check() error { return f.err }
