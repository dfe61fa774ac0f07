package wm

import (
	"fmt"
	"slices"

	xp "github.com/BurntSushi/xgb/xproto"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/x11"
)

// Workspace is a numbered, ordered set of windows on one screen. At most one
// workspace per screen is visible.
type Workspace struct {
	ID      uint16
	Layout  Layout
	Visible bool
	Urgent  bool
	Area    xp.Rectangle

	conn  x11.Conn
	log   *zap.Logger
	style Style
	root  xp.Window

	order      []xp.Window
	windows    map[xp.Window]*WindowRecord
	focused    xp.Window
	fullscreen xp.Window
}

func newWorkspace(id uint16, root xp.Window, area xp.Rectangle, conn x11.Conn, style Style, log *zap.Logger) *Workspace {
	return &Workspace{
		ID:      id,
		Layout:  LayoutTiling,
		Area:    area,
		conn:    conn,
		log:     log.With(zap.Uint16("workspace", id)),
		style:   style,
		root:    root,
		windows: map[xp.Window]*WindowRecord{},
	}
}

// Windows returns the client ids in tiling order.
func (k *Workspace) Windows() []xp.Window { return slices.Clone(k.order) }

// Focused returns the focused client, or 0.
func (k *Workspace) Focused() xp.Window { return k.focused }

// Fullscreen returns the fullscreen client, or 0.
func (k *Workspace) Fullscreen() xp.Window { return k.fullscreen }

// Len returns the number of windows.
func (k *Workspace) Len() int { return len(k.order) }

// Window returns the record for a client id.
func (k *Workspace) Window(client xp.Window) (*WindowRecord, bool) {
	w, ok := k.windows[client]
	return w, ok
}

// lookup finds a record by client or frame id.
func (k *Workspace) lookup(id xp.Window) *WindowRecord {
	if w, ok := k.windows[id]; ok {
		return w
	}
	for _, w := range k.windows {
		if w.Frame == id {
			return w
		}
	}
	return nil
}

// NewWindow starts managing client: it creates a frame on the root,
// reparents the client into it and maps the client. The frame is mapped by
// the next RemapWindows. Managing an already managed client returns its
// existing record.
func (k *Workspace) NewWindow(client xp.Window) (*WindowRecord, error) {
	if w, ok := k.windows[client]; ok {
		return w, nil
	}
	frame, err := k.conn.NewWindowID()
	if err != nil {
		return nil, fmt.Errorf("allocating frame for 0x%x: %w", uint32(client), err)
	}
	w := &WindowRecord{
		Client: client,
		Frame:  frame,
		Title:  k.conn.Title(client),
		Urgent: k.conn.Urgent(client),
	}
	k.conn.CreateFrame(frame, k.root, k.Area, k.style.BorderWidth, k.style.BorderColor)
	k.conn.SelectInput(client, x11.ClientEventMask)
	k.conn.ReparentWindow(client, frame, 0, int16(k.style.TitlebarHeight))
	k.conn.MapWindow(client)

	k.windows[client] = w
	k.order = append(k.order, client)
	k.updateUrgency()
	k.log.Debug("managing window", zap.Uint32("client", uint32(client)), zap.Uint32("frame", uint32(frame)), zap.String("title", w.Title))
	return w, nil
}

// RemapWindows lays the windows out over Area and maps their frames. Windows
// whose slot has not changed are not reconfigured.
func (k *Workspace) RemapWindows() {
	k.Visible = true
	if fs := k.windows[k.fullscreen]; fs != nil {
		fs.configure(k.conn, k.Area, k.style)
		k.mapFrame(fs)
		for _, id := range k.order {
			if id != k.fullscreen {
				k.unmapFrame(k.windows[id])
			}
		}
		return
	}
	slots := k.Layout.Arrange(len(k.order), k.Area)
	for i, id := range k.order {
		w := k.windows[id]
		w.configure(k.conn, inset(slots[i], int(k.style.Gap)), k.style)
		k.mapFrame(w)
	}
}

// UnmapWindows hides every frame.
func (k *Workspace) UnmapWindows() {
	k.Visible = false
	for _, id := range k.order {
		k.unmapFrame(k.windows[id])
	}
}

func (k *Workspace) mapFrame(w *WindowRecord) {
	if !w.Visible {
		k.conn.MapWindow(w.Frame)
		w.Visible = true
	}
}

func (k *Workspace) unmapFrame(w *WindowRecord) {
	if w.Visible {
		k.conn.UnmapWindow(w.Frame)
		w.Visible = false
	}
}

func (k *Workspace) index(client xp.Window) int {
	return slices.Index(k.order, client)
}

// MoveFocus focuses the geometric neighbor of the focused window. With no
// window focused it focuses the first one. Having no neighbor in that
// direction is not an error.
func (k *Workspace) MoveFocus(m command.Movement) error {
	if len(k.order) == 0 {
		return fmt.Errorf("%w: workspace %d is empty", ErrNoWindow, k.ID)
	}
	target := k.order[0]
	if i := k.index(k.focused); i >= 0 {
		j := neighbor(k.Layout.Arrange(len(k.order), k.Area), i, m)
		if j < 0 {
			return nil
		}
		target = k.order[j]
	}
	k.FocusWindow(target)
	k.warpPointerTo(k.windows[target])
	return nil
}

// warpPointerTo moves the pointer to the middle of w's frame, so that the
// enter event that follows agrees with the keyboard focus.
func (k *Workspace) warpPointerTo(w *WindowRecord) {
	r := w.frameRect(k.style)
	k.conn.WarpPointer(w.Frame, int16(r.Width/2), int16(r.Height/2))
}

// MoveWindow swaps the focused window with its geometric neighbor and
// relayouts. The returned PendingMove names the moved window; the manager
// applies it to the enter event the relayout causes, so focus follows the
// window rather than whatever is now under the pointer. Without a neighbor
// nothing changes and the zero PendingMove is returned.
func (k *Workspace) MoveWindow(m command.Movement) (PendingMove, error) {
	i := k.index(k.focused)
	if i < 0 {
		return PendingMove{}, fmt.Errorf("%w: no focused window on workspace %d", ErrNoWindow, k.ID)
	}
	j := neighbor(k.Layout.Arrange(len(k.order), k.Area), i, m)
	if j < 0 {
		return PendingMove{}, nil
	}
	k.order[i], k.order[j] = k.order[j], k.order[i]
	if k.Visible {
		k.RemapWindows()
	}
	return PendingMove{Window: k.focused}, nil
}

// KillWindow asks client to close. The record stays until the client's
// window is unmapped or destroyed.
func (k *Workspace) KillWindow(client xp.Window) error {
	if _, ok := k.windows[client]; !ok {
		return fmt.Errorf("%w: 0x%x", ErrNoWindow, uint32(client))
	}
	k.conn.CloseWindow(client)
	return nil
}

// RemoveWindow stops managing client, handing it back to the root. It
// reports whether client was managed here; removing an unknown window is a
// no-op.
func (k *Workspace) RemoveWindow(client xp.Window) bool {
	return k.removeWindow(client, false)
}

// removeWindow is RemoveWindow for a client that may already be destroyed,
// in which case it is not reparented.
func (k *Workspace) removeWindow(client xp.Window, destroyed bool) bool {
	w, ok := k.windows[client]
	if !ok {
		return false
	}
	delete(k.windows, client)
	k.order = slices.DeleteFunc(k.order, func(id xp.Window) bool { return id == client })
	if k.focused == client {
		k.focused = 0
	}
	if k.fullscreen == client {
		k.fullscreen = 0
	}
	if !destroyed {
		k.conn.ReparentWindow(client, k.root, w.Geometry.X, w.Geometry.Y)
	}
	k.conn.DestroyWindow(w.Frame)
	k.updateUrgency()
	if k.Visible {
		k.RemapWindows()
	}
	k.log.Debug("released window", zap.Uint32("client", uint32(client)), zap.Bool("destroyed", destroyed))
	return true
}

// FocusWindow gives id, a client or frame, the keyboard focus and the focus
// border. Unknown ids are ignored.
func (k *Workspace) FocusWindow(id xp.Window) {
	w := k.lookup(id)
	if w == nil {
		return
	}
	if k.focused != 0 && k.focused != w.Client {
		if old := k.windows[k.focused]; old != nil {
			k.conn.SetBorderColor(old.Frame, k.style.BorderColor)
		}
	}
	k.focused = w.Client
	k.conn.SetBorderColor(w.Frame, k.style.FocusColor)
	k.conn.SetInputFocus(w.Client)
	k.conn.SetActiveWindow(w.Client)
	if w.Urgent {
		w.Urgent = false
		k.updateUrgency()
	}
}

// UnfocusWindow clears the focused window, returning the keyboard focus to
// the root.
func (k *Workspace) UnfocusWindow() {
	if w := k.windows[k.focused]; w != nil {
		k.conn.SetBorderColor(w.Frame, k.style.BorderColor)
	}
	k.focused = 0
	k.conn.SetInputFocus(k.root)
	k.conn.SetActiveWindow(0)
}

// restoreFocus focuses the remembered window, or the root if there is none.
func (k *Workspace) restoreFocus() {
	if k.focused != 0 {
		k.FocusWindow(k.focused)
		return
	}
	k.conn.SetInputFocus(k.root)
	k.conn.SetActiveWindow(0)
}

// SetLayout switches layout, relayouting if visible.
func (k *Workspace) SetLayout(l Layout) {
	k.Layout = l
	if k.Visible {
		k.RemapWindows()
	}
}

// NextLayout switches to the next layout in the cycle.
func (k *Workspace) NextLayout() {
	k.SetLayout(k.Layout.next())
}

// UpdateSize changes the area windows are laid out in.
func (k *Workspace) UpdateSize(area xp.Rectangle) {
	k.Area = area
	if k.Visible {
		k.RemapWindows()
	}
}

// ToggleFullscreen makes the focused window cover the whole area, or
// returns to the layout if a window is already fullscreen.
func (k *Workspace) ToggleFullscreen() error {
	if k.fullscreen != 0 {
		k.fullscreen = 0
	} else {
		if k.focused == 0 {
			return fmt.Errorf("%w: no focused window on workspace %d", ErrNoWindow, k.ID)
		}
		k.fullscreen = k.focused
	}
	if k.Visible {
		k.RemapWindows()
	}
	return nil
}

// setUrgent records a client's urgency hint. It reports whether anything
// changed.
func (k *Workspace) setUrgent(client xp.Window, urgent bool) bool {
	w := k.windows[client]
	if w == nil || w.Urgent == urgent {
		return false
	}
	if urgent && client == k.focused {
		return false
	}
	w.Urgent = urgent
	k.updateUrgency()
	return true
}

func (k *Workspace) updateUrgency() {
	k.Urgent = false
	for _, w := range k.windows {
		if w.Urgent {
			k.Urgent = true
			return
		}
	}
}

// refreshTitles re-reads every title. It reports whether any changed.
func (k *Workspace) refreshTitles() bool {
	changed := false
	for _, id := range k.order {
		w := k.windows[id]
		if t := k.conn.Title(id); t != w.Title {
			w.Title = t
			changed = true
		}
	}
	return changed
}

// setStyle applies a new style to every frame.
func (k *Workspace) setStyle(st Style) {
	k.style = st
	for _, id := range k.order {
		w := k.windows[id]
		w.configured = false
		pixel := st.BorderColor
		if id == k.focused {
			pixel = st.FocusColor
		}
		k.conn.SetBorderColor(w.Frame, pixel)
	}
	if k.Visible {
		k.RemapWindows()
	}
}
