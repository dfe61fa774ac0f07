package wm

import (
	"fmt"
	"maps"
	"slices"

	xp "github.com/BurntSushi/xgb/xproto"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/x11"
)

// maxWorkspaceID is the largest id CreateNewWorkspace hands out.
const maxWorkspaceID = 1<<16 - 1

// StatusBar is a dock window that reserves a strip at the top or bottom of
// its screen.
type StatusBar struct {
	Window   xp.Window
	Geometry xp.Rectangle
	Bottom   bool
}

// ScreenInfo is one root window with its workspaces. Exactly one workspace,
// Active, is visible.
type ScreenInfo struct {
	Root xp.Window
	// Rect is the whole screen; Area is Rect minus any status bar.
	Rect   xp.Rectangle
	Area   xp.Rectangle
	Active uint16
	Bar    *StatusBar

	conn       x11.Conn
	log        *zap.Logger
	style      Style
	workspaces map[uint16]*Workspace
}

func newScreenInfo(s x11.Screen, conn x11.Conn, style Style, log *zap.Logger) *ScreenInfo {
	return &ScreenInfo{
		Root:       s.Root,
		Rect:       s.Rect,
		Area:       s.Rect,
		conn:       conn,
		log:        log.With(zap.Uint32("root", uint32(s.Root))),
		style:      style,
		workspaces: map[uint16]*Workspace{},
	}
}

// WorkspaceIDs returns the existing workspace ids in ascending order.
func (s *ScreenInfo) WorkspaceIDs() []uint16 {
	return slices.Sorted(maps.Keys(s.workspaces))
}

// CreateWorkspace adds workspace id if it does not exist yet, and returns
// it. An existing workspace is never replaced.
func (s *ScreenInfo) CreateWorkspace(id uint16) *Workspace {
	if k, ok := s.workspaces[id]; ok {
		return k
	}
	k := newWorkspace(id, s.Root, s.Area, s.conn, s.style, s.log)
	s.workspaces[id] = k
	return k
}

// Workspace returns workspace id, creating it if needed.
func (s *ScreenInfo) Workspace(id uint16) *Workspace {
	return s.CreateWorkspace(id)
}

// LookupWorkspace returns workspace id without creating it.
func (s *ScreenInfo) LookupWorkspace(id uint16) (*Workspace, bool) {
	k, ok := s.workspaces[id]
	return k, ok
}

// ActiveWorkspace returns the visible workspace.
func (s *ScreenInfo) ActiveWorkspace() (*Workspace, bool) {
	return s.LookupWorkspace(s.Active)
}

// CreateNewWorkspace creates the workspace with the lowest unused id,
// starting at 1.
func (s *ScreenInfo) CreateNewWorkspace() (*Workspace, error) {
	for id := 1; id <= maxWorkspaceID; id++ {
		if _, ok := s.workspaces[uint16(id)]; !ok {
			return s.CreateWorkspace(uint16(id)), nil
		}
	}
	return nil, ErrWorkspacesExhausted
}

// SetWorkspaceCreateIfNotExists makes workspace id the active one, creating
// it if needed: the current workspace is hidden and unfocused, then the
// target is laid out, shown and focused. Switching to the active workspace
// runs the same steps and leaves it as it was.
func (s *ScreenInfo) SetWorkspaceCreateIfNotExists(id uint16) *Workspace {
	prev, hadPrev := s.ActiveWorkspace()
	if hadPrev {
		prev.UnmapWindows()
	}
	k := s.Workspace(id)
	s.Active = id
	k.RemapWindows()
	k.restoreFocus()

	if hadPrev && s.style.ReclaimEmptyWorkspaces {
		if err := s.RemoveWorkspace(prev.ID); err == nil {
			s.log.Debug("reclaimed empty workspace", zap.Uint16("workspace", prev.ID))
		}
	}
	return k
}

// RemoveWorkspace deletes an empty, inactive workspace.
func (s *ScreenInfo) RemoveWorkspace(id uint16) error {
	k, ok := s.workspaces[id]
	switch {
	case !ok:
		return fmt.Errorf("%w: workspace %d", ErrInvalidArgument, id)
	case id == s.Active:
		return fmt.Errorf("%w: workspace %d is active", ErrInvalidArgument, id)
	case k.Len() > 0:
		return fmt.Errorf("%w: workspace %d is not empty", ErrInvalidArgument, id)
	}
	delete(s.workspaces, id)
	return nil
}

// OnMapRequest manages a newly mapped window on the active workspace. If
// there is no active workspace, workspace 0 is created and made active.
func (s *ScreenInfo) OnMapRequest(e xp.MapRequestEvent) error {
	k, ok := s.ActiveWorkspace()
	if !ok {
		s.log.Warn("no active workspace, falling back to workspace 0", zap.Uint16("active", s.Active))
		k = s.SetWorkspaceCreateIfNotExists(0)
	}
	if _, err := k.NewWindow(e.Window); err != nil {
		return err
	}
	k.RemapWindows()
	return nil
}

// AddStatusBar takes a dock window as this screen's bar. The bar keeps its
// height and is stretched across the screen at the edge it is nearer to.
func (s *ScreenInfo) AddStatusBar(e xp.MapRequestEvent) {
	g, err := s.conn.Geometry(e.Window)
	if err != nil {
		s.log.Warn("could not get status bar geometry", zap.Error(err))
	}
	r := xp.Rectangle{X: s.Rect.X, Y: s.Rect.Y, Width: s.Rect.Width, Height: atLeast1(int(g.Height))}
	if int(g.Y)+int(g.Height)/2 > int(s.Rect.Y)+int(s.Rect.Height)/2 {
		r.Y = s.Rect.Y + int16(s.Rect.Height) - int16(r.Height)
	}
	s.Bar = &StatusBar{Window: e.Window, Geometry: r}
	s.conn.ConfigureWindow(e.Window, r, 0)
	s.conn.MapWindow(e.Window)
	// The server may not send a ConfigureNotify if r is where the bar
	// already is, so reserve the strip now.
	s.ConfigureStatusBar(xp.ConfigureNotifyEvent{Window: e.Window, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	s.log.Info("status bar added", zap.Uint32("window", uint32(e.Window)), zap.Bool("bottom", s.Bar.Bottom))
}

// ConfigureStatusBar applies a ConfigureNotify from the bar: a bar whose
// bottom edge is the screen's bottom edge reserves the bottom of the
// screen, any other bar reserves the top. It reports whether e was for the
// bar.
func (s *ScreenInfo) ConfigureStatusBar(e xp.ConfigureNotifyEvent) bool {
	if s.Bar == nil || s.Bar.Window != e.Window {
		return false
	}
	r := xp.Rectangle{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height + 2*e.BorderWidth}
	s.Bar.Geometry = r
	h := r.Height
	if h > s.Rect.Height {
		h = s.Rect.Height
	}
	area := xp.Rectangle{X: s.Rect.X, Width: s.Rect.Width, Height: s.Rect.Height - h}
	if int(r.Y) == int(s.Rect.Y)+int(s.Rect.Height)-int(h) {
		s.Bar.Bottom = true
		area.Y = s.Rect.Y
	} else {
		s.Bar.Bottom = false
		area.Y = s.Rect.Y + int16(h)
	}
	s.setArea(area)
	return true
}

// RemoveStatusBar gives the bar's strip back to the workspaces. It reports
// whether win was the bar.
func (s *ScreenInfo) RemoveStatusBar(win xp.Window) bool {
	if s.Bar == nil || s.Bar.Window != win {
		return false
	}
	s.Bar = nil
	s.setArea(s.Rect)
	s.log.Info("status bar removed", zap.Uint32("window", uint32(win)))
	return true
}

func (s *ScreenInfo) setArea(area xp.Rectangle) {
	if s.Area == area {
		return
	}
	s.Area = area
	for _, id := range s.WorkspaceIDs() {
		s.workspaces[id].UpdateSize(area)
	}
}

func (s *ScreenInfo) setStyle(st Style) {
	s.style = st
	for _, id := range s.WorkspaceIDs() {
		s.workspaces[id].setStyle(st)
	}
}

// findWindow returns the workspace managing client.
func (s *ScreenInfo) findWindow(client xp.Window) (*Workspace, *WindowRecord) {
	for _, k := range s.workspaces {
		if w, ok := k.windows[client]; ok {
			return k, w
		}
	}
	return nil, nil
}
