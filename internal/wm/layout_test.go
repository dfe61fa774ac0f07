package wm

import (
	"testing"

	xp "github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidewm/oxidewm/internal/command"
)

func TestTileCoversArea(t *testing.T) {
	areas := []xp.Rectangle{
		{Width: 1000, Height: 800},
		{X: 10, Y: 20, Width: 1001, Height: 780},
		{Width: 7, Height: 3},
	}
	for _, area := range areas {
		for n := 1; n <= 9; n++ {
			slots := LayoutTiling.Arrange(n, area)
			require.Len(t, slots, n)

			x := int(area.X)
			for i, s := range slots {
				assert.Equal(t, x, int(s.X), "n=%d slot %d starts where the previous ended", n, i)
				assert.Equal(t, area.Y, s.Y)
				assert.Equal(t, area.Height, s.Height)
				x += int(s.Width)
			}
			assert.Equal(t, int(area.X)+int(area.Width), x, "n=%d columns cover the width", n)

			assert.Equal(t, slots, LayoutTiling.Arrange(n, area), "tiling is idempotent")
		}
	}
	assert.Empty(t, LayoutTiling.Arrange(0, areas[0]))
}

func TestTileMoreWindowsThanPixels(t *testing.T) {
	area := xp.Rectangle{X: 10, Width: 3, Height: 100}
	slots := LayoutTiling.Arrange(5, area)
	assert.Equal(t, []xp.Rectangle{
		{X: 10, Width: 0, Height: 100},
		{X: 10, Width: 1, Height: 100},
		{X: 11, Width: 0, Height: 100},
		{X: 11, Width: 1, Height: 100},
		{X: 12, Width: 1, Height: 100},
	}, slots, "empty columns still get a slot each")

	// Frames never go below one pixel, so an empty column's frame overlaps
	// its neighbor's.
	assert.Equal(t, xp.Rectangle{X: 10, Width: 1, Height: 100}, inset(slots[0], 0))
	assert.Equal(t, inset(slots[1], 0), inset(slots[0], 0))
}

func TestTileSpreadsRounding(t *testing.T) {
	slots := tile(3, xp.Rectangle{Width: 10, Height: 1})
	assert.Equal(t, []uint16{3, 3, 4}, []uint16{slots[0].Width, slots[1].Width, slots[2].Width})
}

func TestInset(t *testing.T) {
	assert.Equal(t, xp.Rectangle{X: 13, Y: 3, Width: 94, Height: 44},
		inset(xp.Rectangle{X: 10, Width: 100, Height: 50}, 3))
	assert.Equal(t, xp.Rectangle{X: 5, Y: 5, Width: 1, Height: 1},
		inset(xp.Rectangle{Width: 4, Height: 4}, 5))
}

func TestNeighborColumns(t *testing.T) {
	slots := tile(3, xp.Rectangle{Width: 900, Height: 600})

	assert.Equal(t, 1, neighbor(slots, 0, command.Right))
	assert.Equal(t, 2, neighbor(slots, 1, command.Right))
	assert.Equal(t, -1, neighbor(slots, 2, command.Right), "no wrap-around")
	assert.Equal(t, -1, neighbor(slots, 0, command.Left))
	assert.Equal(t, 0, neighbor(slots, 1, command.Left))
	assert.Equal(t, -1, neighbor(slots, 1, command.Up))
	assert.Equal(t, -1, neighbor(slots, 1, command.Down))
	assert.Equal(t, -1, neighbor(slots, 5, command.Right))
}

func TestNeighborGrid(t *testing.T) {
	// 0 1
	// 2 3
	slots := []xp.Rectangle{
		{X: 0, Y: 0, Width: 50, Height: 50},
		{X: 50, Y: 0, Width: 50, Height: 50},
		{X: 0, Y: 50, Width: 50, Height: 50},
		{X: 50, Y: 50, Width: 50, Height: 50},
	}
	assert.Equal(t, 2, neighbor(slots, 0, command.Down))
	assert.Equal(t, 1, neighbor(slots, 3, command.Up))
	assert.Equal(t, 3, neighbor(slots, 2, command.Right))
	assert.Equal(t, -1, neighbor(slots, 1, command.Right))
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("Tiling")
	require.NoError(t, err)
	assert.Equal(t, LayoutTiling, l)

	_, err = ParseLayout("floating")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, LayoutTiling, LayoutTiling.next())
}
