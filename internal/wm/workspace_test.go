package wm

import (
	"testing"

	xp "github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/x11/x11test"
)

var testStyle = Style{
	BorderWidth:    1,
	BorderColor:    0x111111,
	FocusColor:     0x222222,
	TitlebarHeight: 5,
}

const (
	winA xp.Window = 0x10
	winB xp.Window = 0x20
	winC xp.Window = 0x30
)

// newTestWorkspace returns a visible workspace on a 900x600 area holding
// the given windows.
func newTestWorkspace(t *testing.T, conn *x11test.Conn, wins ...xp.Window) *Workspace {
	t.Helper()
	k := newWorkspace(1, 1, xp.Rectangle{Width: 900, Height: 600}, conn, testStyle, zap.NewNop())
	for _, w := range wins {
		_, err := k.NewWindow(w)
		require.NoError(t, err)
	}
	k.RemapWindows()
	return k
}

func frameOf(t *testing.T, k *Workspace, client xp.Window) xp.Window {
	t.Helper()
	w, ok := k.Window(client)
	require.True(t, ok, "window 0x%x is managed", uint32(client))
	return w.Frame
}

func TestNewWindowReparentsIntoFrame(t *testing.T) {
	conn := x11test.New()
	conn.Titles[winA] = "term"
	k := newTestWorkspace(t, conn, winA)

	w, ok := k.Window(winA)
	require.True(t, ok)
	assert.Equal(t, "term", w.Title)
	assert.True(t, w.Visible)

	op, ok := conn.Last("ReparentWindow", winA)
	require.True(t, ok)
	assert.Equal(t, w.Frame, op.Parent)
	assert.Equal(t, int16(testStyle.TitlebarHeight), op.Rect.Y)

	op, ok = conn.Last("ConfigureWindow", w.Frame)
	require.True(t, ok)
	assert.Equal(t, xp.Rectangle{Width: 898, Height: 598}, op.Rect, "frame fills the area inside its border")
	op, ok = conn.Last("ConfigureWindow", winA)
	require.True(t, ok)
	assert.Equal(t, xp.Rectangle{Y: 5, Width: 898, Height: 593}, op.Rect, "client sits below the titlebar")

	again, err := k.NewWindow(winA)
	require.NoError(t, err)
	assert.Same(t, w, again)
	assert.Equal(t, 1, k.Len())
}

func TestRemoveMissingWindowIsNoop(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)
	conn.Reset()

	assert.False(t, k.RemoveWindow(0x99))
	assert.Equal(t, []xp.Window{winA, winB}, k.Windows())
	assert.Empty(t, conn.Ops)
}

func TestRemoveFocusedWindow(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB, winC)
	k.FocusWindow(winB)
	frameB := frameOf(t, k, winB)

	require.True(t, k.RemoveWindow(winB))
	assert.Equal(t, xp.Window(0), k.Focused())
	assert.Equal(t, []xp.Window{winA, winC}, k.Windows())
	assert.Equal(t, 1, conn.Count("DestroyWindow", frameB))
	op, ok := conn.Last("ReparentWindow", winB)
	require.True(t, ok)
	assert.Equal(t, xp.Window(1), op.Parent, "client goes back to the root")

	// The remaining two windows now split the area.
	wa, _ := k.Window(winA)
	assert.Equal(t, uint16(450), wa.Geometry.Width)
}

func TestRemoveDestroyedWindowSkipsReparent(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA)
	conn.Reset()

	require.True(t, k.removeWindow(winA, true))
	assert.Zero(t, conn.Count("ReparentWindow", winA))
	assert.Equal(t, 1, conn.Count("DestroyWindow", 0))
}

func TestMoveWindowRightSwapsWithOneRemap(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB, winC)
	k.FocusWindow(winA)
	frameA, frameB, frameC := frameOf(t, k, winA), frameOf(t, k, winB), frameOf(t, k, winC)
	conn.Reset()

	p, err := k.MoveWindow(command.Right)
	require.NoError(t, err)
	assert.Equal(t, PendingMove{Window: winA}, p)
	assert.Equal(t, []xp.Window{winB, winA, winC}, k.Windows())

	assert.Equal(t, 1, conn.Count("ConfigureWindow", frameA))
	assert.Equal(t, 1, conn.Count("ConfigureWindow", frameB))
	assert.Zero(t, conn.Count("ConfigureWindow", frameC), "C kept its slot")
	assert.Equal(t, winA, k.Focused())
}

func TestMoveWindowWithoutNeighbor(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)
	k.FocusWindow(winA)
	conn.Reset()

	p, err := k.MoveWindow(command.Left)
	require.NoError(t, err)
	assert.Zero(t, p)
	assert.Equal(t, []xp.Window{winA, winB}, k.Windows())
	assert.Zero(t, conn.Count("ConfigureWindow", 0))

	p, err = k.MoveWindow(command.Up)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestMoveWindowNeedsFocus(t *testing.T) {
	k := newTestWorkspace(t, x11test.New(), winA)
	_, err := k.MoveWindow(command.Right)
	assert.ErrorIs(t, err, ErrNoWindow)
}

func TestMoveFocus(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)

	require.NoError(t, k.MoveFocus(command.Right))
	assert.Equal(t, winA, k.Focused(), "with nothing focused the first window is picked")

	require.NoError(t, k.MoveFocus(command.Right))
	assert.Equal(t, winB, k.Focused())
	op, ok := conn.Last("WarpPointer", 0)
	require.True(t, ok)
	assert.Equal(t, frameOf(t, k, winB), op.Window)

	require.NoError(t, k.MoveFocus(command.Right))
	assert.Equal(t, winB, k.Focused(), "no wrap-around")

	empty := newTestWorkspace(t, conn)
	assert.ErrorIs(t, empty.MoveFocus(command.Left), ErrNoWindow)
}

func TestFocusWindowBorders(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)
	frameA, frameB := frameOf(t, k, winA), frameOf(t, k, winB)

	k.FocusWindow(frameA)
	assert.Equal(t, winA, k.Focused(), "a frame id focuses its client")
	op, _ := conn.Last("SetBorderColor", frameA)
	assert.Equal(t, testStyle.FocusColor, op.Pixel)
	op, _ = conn.Last("SetInputFocus", 0)
	assert.Equal(t, winA, op.Window)

	k.FocusWindow(winB)
	op, _ = conn.Last("SetBorderColor", frameA)
	assert.Equal(t, testStyle.BorderColor, op.Pixel)
	op, _ = conn.Last("SetBorderColor", frameB)
	assert.Equal(t, testStyle.FocusColor, op.Pixel)

	k.FocusWindow(0x999)
	assert.Equal(t, winB, k.Focused(), "unknown ids are ignored")

	k.UnfocusWindow()
	assert.Zero(t, k.Focused())
	op, _ = conn.Last("SetInputFocus", 0)
	assert.Equal(t, xp.Window(1), op.Window)
}

func TestKillWindow(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA)

	require.NoError(t, k.KillWindow(winA))
	assert.Equal(t, 1, conn.Count("CloseWindow", winA))
	assert.Equal(t, 1, k.Len(), "the record stays until the client goes away")
	assert.ErrorIs(t, k.KillWindow(winB), ErrNoWindow)
}

func TestUnmapAndRemap(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)

	k.UnmapWindows()
	assert.False(t, k.Visible)
	assert.Equal(t, 2, conn.Count("UnmapWindow", 0))
	for _, id := range k.Windows() {
		w, _ := k.Window(id)
		assert.False(t, w.Visible)
	}

	conn.Reset()
	k.RemapWindows()
	assert.True(t, k.Visible)
	assert.Equal(t, 2, conn.Count("MapWindow", 0))
	assert.Zero(t, conn.Count("ConfigureWindow", 0), "geometry did not change")
}

func TestToggleFullscreen(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)
	assert.ErrorIs(t, k.ToggleFullscreen(), ErrNoWindow)

	k.FocusWindow(winA)
	require.NoError(t, k.ToggleFullscreen())
	wa, _ := k.Window(winA)
	wb, _ := k.Window(winB)
	assert.Equal(t, k.Area, wa.Geometry)
	assert.False(t, wb.Visible)

	require.NoError(t, k.ToggleFullscreen())
	assert.Zero(t, k.Fullscreen())
	assert.True(t, wb.Visible)
	assert.Equal(t, uint16(450), wa.Geometry.Width)
}

func TestRemovingFullscreenWindowClearsIt(t *testing.T) {
	k := newTestWorkspace(t, x11test.New(), winA, winB)
	k.FocusWindow(winA)
	require.NoError(t, k.ToggleFullscreen())

	k.RemoveWindow(winA)
	assert.Zero(t, k.Fullscreen())
	wb, _ := k.Window(winB)
	assert.True(t, wb.Visible)
}

func TestUrgency(t *testing.T) {
	conn := x11test.New()
	conn.UrgentWins[winB] = true
	k := newTestWorkspace(t, conn, winA, winB)
	assert.True(t, k.Urgent)

	k.FocusWindow(winB)
	assert.False(t, k.Urgent, "focusing clears urgency")

	assert.True(t, k.setUrgent(winA, true))
	assert.True(t, k.Urgent)
	assert.False(t, k.setUrgent(winA, true), "no change")
	assert.False(t, k.setUrgent(winB, true), "the focused window is never urgent")

	k.RemoveWindow(winA)
	assert.False(t, k.Urgent)
}

func TestUpdateSize(t *testing.T) {
	k := newTestWorkspace(t, x11test.New(), winA)
	k.UpdateSize(xp.Rectangle{Y: 20, Width: 900, Height: 580})

	wa, _ := k.Window(winA)
	assert.Equal(t, xp.Rectangle{Y: 20, Width: 900, Height: 580}, wa.Geometry)
}

func TestSetStyleRecolorsAndReconfigures(t *testing.T) {
	conn := x11test.New()
	k := newTestWorkspace(t, conn, winA, winB)
	k.FocusWindow(winA)
	conn.Reset()

	st := testStyle
	st.FocusColor = 0xabcdef
	st.Gap = 4
	k.setStyle(st)

	op, _ := conn.Last("SetBorderColor", frameOf(t, k, winA))
	assert.Equal(t, uint32(0xabcdef), op.Pixel)
	wb, _ := k.Window(winB)
	assert.Equal(t, xp.Rectangle{X: 454, Y: 4, Width: 442, Height: 592}, wb.Geometry)
}
