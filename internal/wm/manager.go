// Package wm is the window manager proper: screens, their numbered
// workspaces and the tiled windows on them. A WindowManager is driven by a
// single goroutine that feeds it X events and commands; it is not safe for
// concurrent use.
package wm

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	xp "github.com/BurntSushi/xgb/xproto"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/keybind"
	"github.com/oxidewm/oxidewm/internal/x11"
)

// grabMods are OR'ed into every key grab, so bindings work with Num Lock on.
var grabMods = []uint16{0, xp.ModMask2}

// WindowManager owns every screen.
type WindowManager struct {
	conn     x11.Conn
	log      *zap.Logger
	style    Style
	bindings keybind.Bindings

	screens       map[xp.Window]*ScreenInfo
	focusedScreen xp.Window
	bridge        bridge
	dirty         bool
}

// New takes over every screen of conn. Redirection is claimed on all roots
// before any state is built; if another window manager holds a root, New
// fails with ErrAnotherWM. Each screen starts on workspace 1, and windows
// that are already mapped are adopted onto it.
func New(conn x11.Conn, style Style, bindings keybind.Bindings, log *zap.Logger) (*WindowManager, error) {
	screens := conn.Screens()
	if len(screens) == 0 {
		return nil, fmt.Errorf("%w: the X server reported no screens", ErrNoScreen)
	}
	for _, s := range screens {
		if err := conn.BecomeWM(s.Root); err != nil {
			if x11.IsAccessDenied(err) {
				return nil, fmt.Errorf("%w: root 0x%x", ErrAnotherWM, uint32(s.Root))
			}
			return nil, fmt.Errorf("selecting input on root 0x%x: %w", uint32(s.Root), err)
		}
	}

	m := &WindowManager{
		conn:          conn,
		log:           log,
		style:         style,
		screens:       make(map[xp.Window]*ScreenInfo, len(screens)),
		focusedScreen: screens[0].Root,
		dirty:         true,
	}
	for _, s := range screens {
		si := newScreenInfo(s, conn, style, log)
		si.SetWorkspaceCreateIfNotExists(1)
		m.screens[s.Root] = si
	}
	if err := m.GrabKeys(bindings); err != nil {
		return nil, err
	}
	for _, s := range screens {
		m.adopt(m.screens[s.Root])
	}
	return m, nil
}

// adopt manages the windows that were mapped before the manager started.
func (m *WindowManager) adopt(s *ScreenInfo) {
	wins, err := m.conn.TopLevelWindows(s.Root)
	if err != nil {
		m.log.Warn("could not list existing windows", zap.Uint32("root", uint32(s.Root)), zap.Error(err))
		return
	}
	k, _ := s.ActiveWorkspace()
	for _, win := range wins {
		if m.conn.IsDock(win) {
			s.AddStatusBar(xp.MapRequestEvent{Parent: s.Root, Window: win})
			continue
		}
		w, err := k.NewWindow(win)
		if err != nil {
			m.log.Warn("could not adopt window", zap.Uint32("window", uint32(win)), zap.Error(err))
			continue
		}
		// Reparenting a mapped window unmaps it.
		w.ignoreUnmaps++
	}
	if len(wins) > 0 {
		k.RemapWindows()
		m.log.Info("adopted existing windows", zap.Int("count", len(wins)))
	}
}

// Dirty reports whether the state changed since the last call.
func (m *WindowManager) Dirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}

// Screens returns the roots in ascending order.
func (m *WindowManager) Screens() []xp.Window {
	return slices.Sorted(maps.Keys(m.screens))
}

// Screen returns the screen for root.
func (m *WindowManager) Screen(root xp.Window) (*ScreenInfo, bool) {
	s, ok := m.screens[root]
	return s, ok
}

// FocusedScreen returns the screen the pointer was last seen on.
func (m *WindowManager) FocusedScreen() *ScreenInfo {
	return m.screens[m.focusedScreen]
}

func (m *WindowManager) activeWorkspace() (*Workspace, error) {
	s := m.FocusedScreen()
	if s == nil {
		return nil, fmt.Errorf("%w: focused screen 0x%x is gone", ErrNoWorkspace, uint32(m.focusedScreen))
	}
	k, ok := s.ActiveWorkspace()
	if !ok {
		return nil, fmt.Errorf("%w: screen 0x%x has no workspace %d", ErrNoWorkspace, uint32(s.Root), s.Active)
	}
	return k, nil
}

// findWindow returns the screen and workspace managing client.
func (m *WindowManager) findWindow(client xp.Window) (*ScreenInfo, *Workspace, *WindowRecord) {
	for _, s := range m.screens {
		if k, w := s.findWindow(client); w != nil {
			return s, k, w
		}
	}
	return nil, nil, nil
}

// HandleMapRequest manages a window that asks to be mapped on one of our
// roots. Docks become the screen's status bar.
func (m *WindowManager) HandleMapRequest(e xp.MapRequestEvent) error {
	if _, _, w := m.findWindow(e.Window); w != nil {
		m.conn.MapWindow(e.Window)
		return nil
	}
	s, ok := m.screens[e.Parent]
	if !ok {
		return fmt.Errorf("%w: map request for 0x%x from parent 0x%x", ErrNoScreen, uint32(e.Window), uint32(e.Parent))
	}
	m.dirty = true
	if m.conn.IsDock(e.Window) {
		s.AddStatusBar(e)
		return nil
	}
	return s.OnMapRequest(e)
}

// HandleUnmapNotify stops managing a client that withdrew itself.
func (m *WindowManager) HandleUnmapNotify(e xp.UnmapNotifyEvent) {
	if m.removeStatusBar(e.Window) {
		return
	}
	_, k, w := m.findWindow(e.Window)
	if w == nil {
		return
	}
	if w.ignoreUnmaps > 0 {
		w.ignoreUnmaps--
		return
	}
	k.RemoveWindow(e.Window)
	m.dirty = true
}

// HandleDestroyNotify stops managing a destroyed client.
func (m *WindowManager) HandleDestroyNotify(e xp.DestroyNotifyEvent) {
	if m.removeStatusBar(e.Window) {
		return
	}
	if _, k, w := m.findWindow(e.Window); w != nil {
		k.removeWindow(e.Window, true)
		m.dirty = true
	}
}

func (m *WindowManager) removeStatusBar(win xp.Window) bool {
	for _, s := range m.screens {
		if s.RemoveStatusBar(win) {
			m.dirty = true
			return true
		}
	}
	return false
}

// HandleEnterNotify focuses the window the pointer entered. Right after a
// window move the moved window is focused instead. Entering a root makes
// that screen the focused one.
func (m *WindowManager) HandleEnterNotify(e xp.EnterNotifyEvent) error {
	if _, ok := m.screens[e.Event]; ok {
		if m.focusedScreen != e.Event {
			m.focusedScreen = e.Event
			m.dirty = true
		}
		return nil
	}
	if _, ok := m.screens[e.Root]; ok {
		m.focusedScreen = e.Root
	}
	win := m.bridge.consume(e.Event)
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	k.FocusWindow(win)
	m.dirty = true
	return nil
}

// HandleLeaveNotify unfocuses the active workspace when the pointer leaves
// the focused window's frame. Moving into the frame's own client is not
// leaving it, and leaves from other frames, such as those just unmapped by a
// workspace switch, are ignored.
func (m *WindowManager) HandleLeaveNotify(e xp.LeaveNotifyEvent) error {
	if e.Detail == xp.NotifyDetailInferior {
		return nil
	}
	if _, ok := m.screens[e.Event]; ok {
		return nil
	}
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	w, ok := k.Window(k.Focused())
	if !ok || w.Frame != e.Event {
		return nil
	}
	k.UnfocusWindow()
	m.dirty = true
	return nil
}

// HandleConfigureRequest answers a managed client with its current geometry,
// since the layout decides it, and grants unmanaged windows what they ask.
func (m *WindowManager) HandleConfigureRequest(e xp.ConfigureRequestEvent) {
	if _, k, w := m.findWindow(e.Window); w != nil {
		m.conn.SendConfigureNotify(w.Client, w.clientRootRect(k.style), 0)
		return
	}
	m.conn.ForwardConfigureRequest(e)
}

// HandleConfigureNotify tracks status bar geometry.
func (m *WindowManager) HandleConfigureNotify(e xp.ConfigureNotifyEvent) {
	for _, s := range m.screens {
		if s.ConfigureStatusBar(e) {
			m.dirty = true
			return
		}
	}
}

// HandlePropertyNotify refreshes a managed window's title or urgency.
func (m *WindowManager) HandlePropertyNotify(e xp.PropertyNotifyEvent) {
	prop := m.conn.WatchedProperty(e.Atom)
	if prop == x11.PropertyOther {
		return
	}
	_, k, w := m.findWindow(e.Window)
	if w == nil {
		return
	}
	switch prop {
	case x11.PropertyTitle:
		if t := m.conn.Title(e.Window); t != w.Title {
			w.Title = t
			m.dirty = true
		}
	case x11.PropertyHints:
		if k.setUrgent(e.Window, m.conn.Urgent(e.Window)) {
			m.dirty = true
		}
	}
}

// HandleKeyPress returns the commands bound to the key press.
func (m *WindowManager) HandleKeyPress(e xp.KeyPressEvent) []command.Command {
	if _, ok := m.screens[e.Root]; ok {
		m.focusedScreen = e.Root
	}
	return m.bindings.Lookup(e.State, e.Detail)
}

// FocusMove moves the focus in the direction named by arg.
func (m *WindowManager) FocusMove(arg string) error {
	mv, err := command.ParseMovement(arg)
	if err != nil {
		return err
	}
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	if err := k.MoveFocus(mv); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// WindowMove moves the focused window in the direction named by arg.
func (m *WindowManager) WindowMove(arg string) error {
	mv, err := command.ParseMovement(arg)
	if err != nil {
		return err
	}
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	p, err := k.MoveWindow(mv)
	if err != nil {
		return err
	}
	m.bridge.arm(p)
	m.dirty = true
	return nil
}

// KillFocused asks the focused window to close.
func (m *WindowManager) KillFocused() error {
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	if k.Focused() == 0 {
		return fmt.Errorf("%w: nothing focused on workspace %d", ErrNoWindow, k.ID)
	}
	return k.KillWindow(k.Focused())
}

// SetLayout switches the active workspace to the layout named by arg. An
// empty arg cycles to the next layout.
func (m *WindowManager) SetLayout(arg string) error {
	if arg == "" {
		return m.NextLayout()
	}
	l, err := ParseLayout(arg)
	if err != nil {
		return err
	}
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	k.SetLayout(l)
	m.dirty = true
	return nil
}

// NextLayout cycles the active workspace's layout.
func (m *WindowManager) NextLayout() error {
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	k.NextLayout()
	m.dirty = true
	return nil
}

// GoToWorkspace switches the focused screen to the workspace named by arg:
// an id, "next", "previous" or "next_free".
func (m *WindowManager) GoToWorkspace(arg string) error {
	t, err := command.ParseWorkspaceTarget(arg)
	if err != nil {
		return err
	}
	s := m.FocusedScreen()
	if s == nil {
		return fmt.Errorf("%w: focused screen 0x%x is gone", ErrNoScreen, uint32(m.focusedScreen))
	}
	id := t.ID
	switch t.Kind {
	case command.TargetNext, command.TargetPrevious:
		ids := s.WorkspaceIDs()
		i := slices.Index(ids, s.Active)
		switch {
		case len(ids) == 0:
			id = 1
		case i < 0:
			id = ids[0]
		case t.Kind == command.TargetNext:
			id = ids[(i+1)%len(ids)]
		default:
			id = ids[(i+len(ids)-1)%len(ids)]
		}
	case command.TargetNextFree:
		k, err := s.CreateNewWorkspace()
		if err != nil {
			return err
		}
		id = k.ID
	}
	s.SetWorkspaceCreateIfNotExists(id)
	m.dirty = true
	return nil
}

// NewWorkspace creates a workspace with the lowest free id and switches to
// it.
func (m *WindowManager) NewWorkspace() error {
	return m.GoToWorkspace("next_free")
}

// ToggleFullscreen toggles fullscreen for the focused window.
func (m *WindowManager) ToggleFullscreen() error {
	k, err := m.activeWorkspace()
	if err != nil {
		return err
	}
	if err := k.ToggleFullscreen(); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// GrabKeys grabs every binding on every root, with and without Num Lock. A
// key already grabbed by another client is skipped with a warning.
func (m *WindowManager) GrabKeys(bindings keybind.Bindings) error {
	m.bindings = bindings
	for _, root := range m.Screens() {
		for _, b := range bindings {
			for _, mod := range grabMods {
				err := m.conn.GrabKey(root, b.Mods|mod, b.Keycode)
				switch {
				case err == nil:
				case x11.IsAccessDenied(err):
					m.log.Warn("key is grabbed by another client",
						zap.Strings("keys", b.Keys), zap.Uint8("keycode", uint8(b.Keycode)))
				default:
					return fmt.Errorf("grabbing %v: %w", b.Keys, err)
				}
			}
		}
	}
	return nil
}

// Restart swaps in a new style and key table. Screens, workspaces and
// windows are kept.
func (m *WindowManager) Restart(style Style, bindings keybind.Bindings) error {
	for _, root := range m.Screens() {
		m.conn.UngrabKeys(root)
	}
	err := m.GrabKeys(bindings)
	m.style = style
	for _, s := range m.screens {
		s.setStyle(style)
	}
	m.dirty = true
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// RefreshTitles re-reads every window title, for clients that change their
// title without a property notification we watch.
func (m *WindowManager) RefreshTitles() bool {
	changed := false
	for _, s := range m.screens {
		for _, k := range s.workspaces {
			if k.refreshTitles() {
				changed = true
			}
		}
	}
	if changed {
		m.dirty = true
	}
	return changed
}

// Counts returns the number of managed windows and of workspaces.
func (m *WindowManager) Counts() (windows, workspaces int) {
	for _, s := range m.screens {
		workspaces += len(s.workspaces)
		for _, k := range s.workspaces {
			windows += k.Len()
		}
	}
	return windows, workspaces
}

// State returns a snapshot of every screen.
func (m *WindowManager) State() State {
	st := State{
		FocusedScreen: uint32(m.focusedScreen),
		Screens:       make(map[uint32]ScreenState, len(m.screens)),
	}
	for root, s := range m.screens {
		st.Screens[uint32(root)] = s.state()
	}
	return st
}

// IsFatal reports whether a request error means the manager cannot go on:
// losing substructure redirection to another window manager.
func IsFatal(err error) bool {
	var re x11.RequestError
	return errors.As(err, &re) && re.Request == x11.ReqChangeWindowAttributes && x11.IsAccessDenied(err)
}
