package wm

import (
	"testing"

	xp "github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/x11"
	"github.com/oxidewm/oxidewm/internal/x11/x11test"
)

func newTestScreen(conn *x11test.Conn, style Style) *ScreenInfo {
	s := newScreenInfo(x11.Screen{Root: 1, Rect: xp.Rectangle{Width: 1000, Height: 800}}, conn, style, zap.NewNop())
	s.SetWorkspaceCreateIfNotExists(1)
	return s
}

func TestCreateWorkspaceNeverReplaces(t *testing.T) {
	s := newTestScreen(x11test.New(), testStyle)
	k := s.CreateWorkspace(2)
	_, err := k.NewWindow(winA)
	require.NoError(t, err)

	assert.Same(t, k, s.CreateWorkspace(2))
	assert.Same(t, k, s.Workspace(2))
	assert.Equal(t, 1, s.Workspace(2).Len())
}

func TestCreateNewWorkspacePicksLowestFreeID(t *testing.T) {
	s := newTestScreen(x11test.New(), testStyle)
	s.CreateWorkspace(2)
	s.CreateWorkspace(3)

	k, err := s.CreateNewWorkspace()
	require.NoError(t, err)
	assert.Equal(t, uint16(4), k.ID)
	k, err = s.CreateNewWorkspace()
	require.NoError(t, err)
	assert.Equal(t, uint16(5), k.ID)

	require.NoError(t, s.RemoveWorkspace(3))
	k, err = s.CreateNewWorkspace()
	require.NoError(t, err)
	assert.Equal(t, uint16(3), k.ID)
}

func TestCreateNewWorkspaceExhausted(t *testing.T) {
	s := newTestScreen(x11test.New(), testStyle)
	for id := 2; id <= maxWorkspaceID; id++ {
		s.workspaces[uint16(id)] = &Workspace{ID: uint16(id)}
	}
	_, err := s.CreateNewWorkspace()
	assert.ErrorIs(t, err, ErrWorkspacesExhausted)
}

func TestSwitchWorkspace(t *testing.T) {
	conn := x11test.New()
	s := newTestScreen(conn, testStyle)
	one := s.Workspace(1)
	_, err := one.NewWindow(winA)
	require.NoError(t, err)
	one.RemapWindows()

	two := s.SetWorkspaceCreateIfNotExists(2)
	assert.Equal(t, uint16(2), s.Active)
	assert.True(t, two.Visible)
	assert.False(t, one.Visible)
	wa, _ := one.Window(winA)
	assert.False(t, wa.Visible)

	s.SetWorkspaceCreateIfNotExists(1)
	assert.True(t, one.Visible)
	assert.True(t, wa.Visible)
	assert.Contains(t, s.WorkspaceIDs(), uint16(2), "empty workspaces are kept by default")
}

func TestSwitchToActiveWorkspaceIsIdempotent(t *testing.T) {
	conn := x11test.New()
	s := newTestScreen(conn, testStyle)
	k := s.Workspace(1)
	for _, w := range []xp.Window{winA, winB} {
		_, err := k.NewWindow(w)
		require.NoError(t, err)
	}
	k.RemapWindows()
	k.FocusWindow(winB)
	before := s.state()

	s.SetWorkspaceCreateIfNotExists(1)
	assert.Equal(t, before, s.state())
	assert.Equal(t, winB, k.Focused())
}

func TestReclaimEmptyWorkspaces(t *testing.T) {
	st := testStyle
	st.ReclaimEmptyWorkspaces = true
	s := newTestScreen(x11test.New(), st)

	s.SetWorkspaceCreateIfNotExists(2)
	assert.Equal(t, []uint16{2}, s.WorkspaceIDs(), "empty workspace 1 was reclaimed")

	_, err := s.Workspace(2).NewWindow(winA)
	require.NoError(t, err)
	s.SetWorkspaceCreateIfNotExists(3)
	assert.Equal(t, []uint16{2, 3}, s.WorkspaceIDs())

	s.SetWorkspaceCreateIfNotExists(3)
	assert.Equal(t, []uint16{2, 3}, s.WorkspaceIDs(), "switching to the active workspace keeps it")
}

func TestRemoveWorkspace(t *testing.T) {
	s := newTestScreen(x11test.New(), testStyle)
	_, err := s.Workspace(2).NewWindow(winA)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveWorkspace(1), ErrInvalidArgument, "active")
	assert.ErrorIs(t, s.RemoveWorkspace(2), ErrInvalidArgument, "not empty")
	assert.ErrorIs(t, s.RemoveWorkspace(9), ErrInvalidArgument, "missing")

	s.Workspace(3)
	require.NoError(t, s.RemoveWorkspace(3))
	assert.Equal(t, []uint16{1, 2}, s.WorkspaceIDs())
}

func TestOnMapRequestFallsBackToWorkspaceZero(t *testing.T) {
	s := newTestScreen(x11test.New(), testStyle)
	delete(s.workspaces, 1)

	require.NoError(t, s.OnMapRequest(xp.MapRequestEvent{Parent: 1, Window: winA}))
	assert.Equal(t, uint16(0), s.Active)
	k, ok := s.LookupWorkspace(0)
	require.True(t, ok)
	assert.Equal(t, []xp.Window{winA}, k.Windows())
}

func TestStatusBarAnchoring(t *testing.T) {
	const bar xp.Window = 0x77
	tests := []struct {
		name   string
		y      int16
		area   xp.Rectangle
		bottom bool
	}{
		{name: "bottom", y: 780, area: xp.Rectangle{Width: 1000, Height: 780}, bottom: true},
		{name: "top", y: 0, area: xp.Rectangle{Y: 20, Width: 1000, Height: 780}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := x11test.New()
			s := newTestScreen(conn, testStyle)
			s.CreateWorkspace(2)
			s.Bar = &StatusBar{Window: bar}

			assert.False(t, s.ConfigureStatusBar(xp.ConfigureNotifyEvent{Window: 0x78, Height: 20}))
			require.True(t, s.ConfigureStatusBar(xp.ConfigureNotifyEvent{Window: bar, Y: tt.y, Width: 1000, Height: 20}))

			assert.Equal(t, tt.area, s.Area)
			assert.Equal(t, tt.bottom, s.Bar.Bottom)
			for _, id := range s.WorkspaceIDs() {
				assert.Equal(t, tt.area, s.Workspace(id).Area, "workspace %d", id)
			}

			require.True(t, s.RemoveStatusBar(bar))
			assert.Equal(t, s.Rect, s.Area)
			assert.Equal(t, s.Rect, s.Workspace(2).Area)
		})
	}
}

func TestAddStatusBarStretchesToNearestEdge(t *testing.T) {
	const bar xp.Window = 0x77
	conn := x11test.New()
	conn.Geometries[bar] = xp.Rectangle{X: 100, Y: 700, Width: 300, Height: 24}
	s := newTestScreen(conn, testStyle)

	s.AddStatusBar(xp.MapRequestEvent{Parent: 1, Window: bar})

	op, ok := conn.Last("ConfigureWindow", bar)
	require.True(t, ok)
	assert.Equal(t, xp.Rectangle{Y: 776, Width: 1000, Height: 24}, op.Rect)
	assert.Equal(t, 1, conn.Count("MapWindow", bar))
	assert.True(t, s.Bar.Bottom)
	assert.Equal(t, xp.Rectangle{Width: 1000, Height: 776}, s.Area)
}
