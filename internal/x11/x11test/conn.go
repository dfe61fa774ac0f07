// Package x11test provides a recording fake of x11.Conn.
package x11test

import (
	"sync"

	"github.com/BurntSushi/xgb"
	xp "github.com/BurntSushi/xgb/xproto"

	"github.com/oxidewm/oxidewm/internal/x11"
)

// Op is one recorded request.
type Op struct {
	Name   string
	Window xp.Window
	Parent xp.Window
	Rect   xp.Rectangle
	Border uint16
	Pixel  uint32
	Mods   uint16
	Key    xp.Keycode
}

type grab struct {
	root xp.Window
	mods uint16
	key  xp.Keycode
}

// Conn is an in-memory x11.Conn. Tests set its exported fields before use
// and inspect Ops afterwards.
type Conn struct {
	mu sync.Mutex

	ScreenList []x11.Screen
	Docks      map[xp.Window]bool
	Titles     map[xp.Window]string
	UrgentWins map[xp.Window]bool
	TopLevel   map[xp.Window][]xp.Window
	Keys       map[string][]xp.Keycode
	Geometries map[xp.Window]xp.Rectangle

	// BecomeErr is returned by BecomeWM. GrabErr is returned by GrabKey.
	BecomeErr error
	GrabErr   error
	// FlushErrs is returned, once, by the next Flush.
	FlushErrs []x11.RequestError

	Ops    []Op
	Events chan xgb.Event
	nextID xp.Window
	grabs  map[grab]bool
	closed bool
}

// New returns a fake with one 1000x800 screen rooted at window 1.
func New() *Conn {
	return &Conn{
		ScreenList: []x11.Screen{{Root: 1, Rect: xp.Rectangle{Width: 1000, Height: 800}}},
		Docks:      map[xp.Window]bool{},
		Titles:     map[xp.Window]string{},
		UrgentWins: map[xp.Window]bool{},
		TopLevel:   map[xp.Window][]xp.Window{},
		Keys:       map[string][]xp.Keycode{},
		Geometries: map[xp.Window]xp.Rectangle{},
		Events:     make(chan xgb.Event, 64),
		nextID:     0x400000,
		grabs:      map[grab]bool{},
	}
}

func (c *Conn) record(op Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ops = append(c.Ops, op)
}

// Count returns how many requests named name were recorded for win. A zero
// win matches every window.
func (c *Conn) Count(name string, win xp.Window) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, op := range c.Ops {
		if op.Name == name && (win == 0 || op.Window == win) {
			n++
		}
	}
	return n
}

// Last returns the last request named name for win.
func (c *Conn) Last(name string, win xp.Window) (Op, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Ops) - 1; i >= 0; i-- {
		if op := c.Ops[i]; op.Name == name && (win == 0 || op.Window == win) {
			return op, true
		}
	}
	return Op{}, false
}

// Reset forgets recorded requests.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ops = nil
}

// Grabbed reports whether key is grabbed on root with mods.
func (c *Conn) Grabbed(root xp.Window, mods uint16, key xp.Keycode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grabs[grab{root, mods, key}]
}

// GrabCount returns the number of active key grabs.
func (c *Conn) GrabCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.grabs)
}

func (c *Conn) Screens() []x11.Screen {
	return append([]x11.Screen(nil), c.ScreenList...)
}

func (c *Conn) BecomeWM(root xp.Window) error {
	c.record(Op{Name: "BecomeWM", Window: root})
	if c.BecomeErr != nil {
		return x11.RequestError{Request: x11.ReqChangeWindowAttributes, Window: root, Err: c.BecomeErr}
	}
	return nil
}

func (c *Conn) TopLevelWindows(root xp.Window) ([]xp.Window, error) {
	return c.TopLevel[root], nil
}

func (c *Conn) NewWindowID() (xp.Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID, nil
}

func (c *Conn) Geometry(win xp.Window) (xp.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Geometries[win], nil
}

func (c *Conn) CreateFrame(frame, root xp.Window, r xp.Rectangle, borderWidth uint16, borderPixel uint32) {
	c.record(Op{Name: "CreateFrame", Window: frame, Parent: root, Rect: r, Border: borderWidth, Pixel: borderPixel})
}

func (c *Conn) ReparentWindow(win, parent xp.Window, x, y int16) {
	c.record(Op{Name: "ReparentWindow", Window: win, Parent: parent, Rect: xp.Rectangle{X: x, Y: y}})
}

func (c *Conn) ConfigureWindow(win xp.Window, r xp.Rectangle, borderWidth uint16) {
	c.record(Op{Name: "ConfigureWindow", Window: win, Rect: r, Border: borderWidth})
}

func (c *Conn) SetBorderColor(win xp.Window, pixel uint32) {
	c.record(Op{Name: "SetBorderColor", Window: win, Pixel: pixel})
}

func (c *Conn) SelectInput(win xp.Window, mask uint32) {
	c.record(Op{Name: "SelectInput", Window: win, Pixel: mask})
}

func (c *Conn) MapWindow(win xp.Window)     { c.record(Op{Name: "MapWindow", Window: win}) }
func (c *Conn) UnmapWindow(win xp.Window)   { c.record(Op{Name: "UnmapWindow", Window: win}) }
func (c *Conn) DestroyWindow(win xp.Window) { c.record(Op{Name: "DestroyWindow", Window: win}) }
func (c *Conn) SetInputFocus(win xp.Window) { c.record(Op{Name: "SetInputFocus", Window: win}) }
func (c *Conn) SetActiveWindow(win xp.Window) {
	c.record(Op{Name: "SetActiveWindow", Window: win})
}
func (c *Conn) CloseWindow(win xp.Window) { c.record(Op{Name: "CloseWindow", Window: win}) }

func (c *Conn) WarpPointer(win xp.Window, x, y int16) {
	c.record(Op{Name: "WarpPointer", Window: win, Rect: xp.Rectangle{X: x, Y: y}})
}

func (c *Conn) SendConfigureNotify(win xp.Window, r xp.Rectangle, borderWidth uint16) {
	c.record(Op{Name: "SendConfigureNotify", Window: win, Rect: r, Border: borderWidth})
}

func (c *Conn) ForwardConfigureRequest(e xp.ConfigureRequestEvent) {
	c.record(Op{Name: "ForwardConfigureRequest", Window: e.Window,
		Rect: xp.Rectangle{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}})
}

func (c *Conn) GrabKey(root xp.Window, mods uint16, key xp.Keycode) error {
	c.record(Op{Name: "GrabKey", Window: root, Mods: mods, Key: key})
	if c.GrabErr != nil {
		return c.GrabErr
	}
	c.mu.Lock()
	c.grabs[grab{root, mods, key}] = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) UngrabKeys(root xp.Window) {
	c.record(Op{Name: "UngrabKeys", Window: root})
	c.mu.Lock()
	defer c.mu.Unlock()
	for g := range c.grabs {
		if g.root == root {
			delete(c.grabs, g)
		}
	}
}

func (c *Conn) Keycodes(key string) []xp.Keycode {
	return c.Keys[key]
}

func (c *Conn) Title(win xp.Window) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Titles[win]
}

func (c *Conn) Urgent(win xp.Window) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.UrgentWins[win]
}

func (c *Conn) IsDock(win xp.Window) bool { return c.Docks[win] }

// WatchedProperty treats atom WM_NAME as the title and WM_HINTS as hints.
func (c *Conn) WatchedProperty(atom xp.Atom) x11.Property {
	switch atom {
	case xp.AtomWmName:
		return x11.PropertyTitle
	case xp.AtomWmHints:
		return x11.PropertyHints
	}
	return x11.PropertyOther
}

// WaitForEvent returns events sent on Events, and nil, nil once Events is
// closed.
func (c *Conn) WaitForEvent() (xgb.Event, xgb.Error) {
	e, ok := <-c.Events
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (c *Conn) Flush() []x11.RequestError {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := c.FlushErrs
	c.FlushErrs = nil
	return errs
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ x11.Conn = (*Conn)(nil)
