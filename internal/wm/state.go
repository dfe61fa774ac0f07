package wm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	xp "github.com/BurntSushi/xgb/xproto"
)

// Rect is a rectangle in root coordinates.
type Rect struct {
	X      int16  `cbor:"x" json:"x" yaml:"x"`
	Y      int16  `cbor:"y" json:"y" yaml:"y"`
	Width  uint16 `cbor:"width" json:"width" yaml:"width"`
	Height uint16 `cbor:"height" json:"height" yaml:"height"`
}

func rect(r xp.Rectangle) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// WindowState describes one managed window.
type WindowState struct {
	Window      uint32 `cbor:"window" json:"window" yaml:"window"`
	Frame       uint32 `cbor:"frame" json:"frame" yaml:"frame"`
	Title       string `cbor:"title" json:"title" yaml:"title"`
	Visible     bool   `cbor:"visible" json:"visible" yaml:"visible"`
	Urgent      bool   `cbor:"urgent" json:"urgent" yaml:"urgent"`
	X           int16  `cbor:"x" json:"x" yaml:"x"`
	Y           int16  `cbor:"y" json:"y" yaml:"y"`
	Width       uint16 `cbor:"width" json:"width" yaml:"width"`
	Height      uint16 `cbor:"height" json:"height" yaml:"height"`
	BorderWidth uint16 `cbor:"border_width" json:"border_width" yaml:"border_width"`
	Gap         uint16 `cbor:"gap" json:"gap" yaml:"gap"`
}

// WorkspaceState describes one workspace. Order lists window ids in tiling
// order.
type WorkspaceState struct {
	ID            uint16                 `cbor:"id" json:"id" yaml:"id"`
	FocusedWindow uint32                 `cbor:"focused_window" json:"focused_window" yaml:"focused_window"`
	Fullscreen    uint32                 `cbor:"fullscreen" json:"fullscreen" yaml:"fullscreen"`
	Urgent        bool                   `cbor:"urgent" json:"urgent" yaml:"urgent"`
	Layout        Layout                 `cbor:"layout" json:"layout" yaml:"layout"`
	Visible       bool                   `cbor:"visible" json:"visible" yaml:"visible"`
	Order         []uint32               `cbor:"order" json:"order" yaml:"order"`
	Windows       map[uint32]WindowState `cbor:"windows" json:"windows" yaml:"windows"`
}

// ScreenState describes one screen.
type ScreenState struct {
	Root            uint32                    `cbor:"root" json:"root" yaml:"root"`
	Width           uint16                    `cbor:"width" json:"width" yaml:"width"`
	Height          uint16                    `cbor:"height" json:"height" yaml:"height"`
	Area            Rect                      `cbor:"area" json:"area" yaml:"area"`
	Bar             *Rect                     `cbor:"bar,omitempty" json:"bar,omitempty" yaml:"bar,omitempty"`
	ActiveWorkspace uint16                    `cbor:"active_workspace" json:"active_workspace" yaml:"active_workspace"`
	Workspaces      map[uint16]WorkspaceState `cbor:"workspaces" json:"workspaces" yaml:"workspaces"`
}

// State is a snapshot of the whole window manager. It shares no memory with
// the manager.
type State struct {
	FocusedScreen uint32                 `cbor:"focused_screen" json:"focused_screen" yaml:"focused_screen"`
	Screens       map[uint32]ScreenState `cbor:"screens" json:"screens" yaml:"screens"`
}

func (k *Workspace) state() WorkspaceState {
	ws := WorkspaceState{
		ID:            k.ID,
		FocusedWindow: uint32(k.focused),
		Fullscreen:    uint32(k.fullscreen),
		Urgent:        k.Urgent,
		Layout:        k.Layout,
		Visible:       k.Visible,
		Order:         make([]uint32, 0, len(k.order)),
		Windows:       make(map[uint32]WindowState, len(k.order)),
	}
	for _, id := range k.order {
		w := k.windows[id]
		ws.Order = append(ws.Order, uint32(id))
		ws.Windows[uint32(id)] = WindowState{
			Window:      uint32(w.Client),
			Frame:       uint32(w.Frame),
			Title:       w.Title,
			Visible:     w.Visible,
			Urgent:      w.Urgent,
			X:           w.Geometry.X,
			Y:           w.Geometry.Y,
			Width:       w.Geometry.Width,
			Height:      w.Geometry.Height,
			BorderWidth: k.style.BorderWidth,
			Gap:         k.style.Gap,
		}
	}
	return ws
}

func (s *ScreenInfo) state() ScreenState {
	ss := ScreenState{
		Root:            uint32(s.Root),
		Width:           s.Rect.Width,
		Height:          s.Rect.Height,
		Area:            rect(s.Area),
		ActiveWorkspace: s.Active,
		Workspaces:      make(map[uint16]WorkspaceState, len(s.workspaces)),
	}
	if s.Bar != nil {
		r := rect(s.Bar.Geometry)
		ss.Bar = &r
	}
	for id, k := range s.workspaces {
		ss.Workspaces[id] = k.state()
	}
	return ss
}

// BarState is what a status bar shows for one screen.
type BarState struct {
	Screen     uint32   `cbor:"screen" json:"screen" yaml:"screen"`
	Workspaces []uint16 `cbor:"workspaces" json:"workspaces" yaml:"workspaces"`
	Active     uint16   `cbor:"active" json:"active" yaml:"active"`
	Urgent     []uint16 `cbor:"urgent" json:"urgent" yaml:"urgent"`
	Title      string   `cbor:"title" json:"title" yaml:"title"`
}

// Bars projects the state onto one BarState per screen, ordered by root.
func (st State) Bars() []BarState {
	var out []BarState
	for _, root := range slices.Sorted(maps.Keys(st.Screens)) {
		ss := st.Screens[root]
		b := BarState{
			Screen:     root,
			Workspaces: slices.Sorted(maps.Keys(ss.Workspaces)),
			Active:     ss.ActiveWorkspace,
			Urgent:     []uint16{},
		}
		for _, id := range b.Workspaces {
			if ss.Workspaces[id].Urgent {
				b.Urgent = append(b.Urgent, id)
			}
		}
		if ws, ok := ss.Workspaces[ss.ActiveWorkspace]; ok {
			b.Title = ws.Windows[ws.FocusedWindow].Title
		}
		out = append(out, b)
	}
	return out
}

// String renders the bar as one line: the active workspace in brackets,
// urgent ones marked with '!', then the focused window's title.
func (b BarState) String() string {
	var sb strings.Builder
	for i, id := range b.Workspaces {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch {
		case id == b.Active:
			fmt.Fprintf(&sb, "[%d]", id)
		case slices.Contains(b.Urgent, id):
			fmt.Fprintf(&sb, "!%d", id)
		default:
			fmt.Fprintf(&sb, "%d", id)
		}
	}
	if b.Title != "" {
		sb.WriteString(" | ")
		sb.WriteString(b.Title)
	}
	return sb.String()
}
