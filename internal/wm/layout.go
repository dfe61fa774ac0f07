package wm

import (
	"fmt"
	"strings"

	xp "github.com/BurntSushi/xgb/xproto"

	"github.com/oxidewm/oxidewm/internal/command"
)

// Layout is a placement strategy for a workspace's windows.
type Layout int

const (
	LayoutTiling Layout = iota
)

// layouts is the cycle order used by NextLayout.
var layouts = []Layout{LayoutTiling}

func (l Layout) String() string {
	switch l {
	case LayoutTiling:
		return "tiling"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

func (l Layout) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Layout) UnmarshalText(b []byte) error {
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLayout decodes a layout name, ignoring case.
func ParseLayout(s string) (Layout, error) {
	for _, l := range layouts {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not a layout", ErrInvalidArgument, s)
}

func (l Layout) next() Layout {
	for i, v := range layouts {
		if v == l {
			return layouts[(i+1)%len(layouts)]
		}
	}
	return layouts[0]
}

// Arrange returns one slot per window, in order. The slots partition area.
func (l Layout) Arrange(n int, area xp.Rectangle) []xp.Rectangle {
	return tile(n, area)
}

// tile splits area into n equal-width columns. Rounding is spread with the
// i*W/n formula, so the columns abut and together cover exactly area. With
// more windows than pixels of width some columns are empty; inset then gives
// their frames one pixel, overlapping the next column.
func tile(n int, area xp.Rectangle) []xp.Rectangle {
	if n <= 0 {
		return nil
	}
	slots := make([]xp.Rectangle, n)
	w := int(area.Width)
	for i := range slots {
		i0 := i * w / n
		i1 := (i + 1) * w / n
		slots[i] = xp.Rectangle{
			X:      area.X + int16(i0),
			Y:      area.Y,
			Width:  uint16(i1 - i0),
			Height: area.Height,
		}
	}
	return slots
}

// inset shrinks r by d on every side, keeping at least one pixel.
func inset(r xp.Rectangle, d int) xp.Rectangle {
	w, h := int(r.Width)-2*d, int(r.Height)-2*d
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return xp.Rectangle{X: r.X + int16(d), Y: r.Y + int16(d), Width: uint16(w), Height: uint16(h)}
}

// neighbor returns the index of the slot nearest to slots[i] in direction m
// that shares some extent with it on the other axis, or -1 if there is none.
// Ties go to the lower index.
func neighbor(slots []xp.Rectangle, i int, m command.Movement) int {
	if i < 0 || i >= len(slots) {
		return -1
	}
	a := slots[i]
	best, bestDist := -1, 0
	for j, b := range slots {
		if j == i {
			continue
		}
		var dist int
		switch m {
		case command.Left:
			if right(b) > int(a.X) || !overlap(a.Y, a.Height, b.Y, b.Height) {
				continue
			}
			dist = int(a.X) - right(b)
		case command.Right:
			if int(b.X) < right(a) || !overlap(a.Y, a.Height, b.Y, b.Height) {
				continue
			}
			dist = int(b.X) - right(a)
		case command.Up:
			if bottom(b) > int(a.Y) || !overlap(a.X, a.Width, b.X, b.Width) {
				continue
			}
			dist = int(a.Y) - bottom(b)
		case command.Down:
			if int(b.Y) < bottom(a) || !overlap(a.X, a.Width, b.X, b.Width) {
				continue
			}
			dist = int(b.Y) - bottom(a)
		default:
			return -1
		}
		if best < 0 || dist < bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func right(r xp.Rectangle) int  { return int(r.X) + int(r.Width) }
func bottom(r xp.Rectangle) int { return int(r.Y) + int(r.Height) }

func overlap(p0 int16, l0 uint16, p1 int16, l1 uint16) bool {
	return int(p0) < int(p1)+int(l1) && int(p1) < int(p0)+int(l0)
}
