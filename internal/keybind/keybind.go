// Package keybind turns configured key chords into grabbable (modifier,
// keycode) pairs and looks up the commands bound to a key press.
package keybind

import (
	"errors"
	"fmt"
	"strings"

	xp "github.com/BurntSushi/xgb/xproto"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/config"
)

// IgnoredMods are stripped from a key press before lookup, so that bindings
// fire with Caps Lock or Num Lock on.
const IgnoredMods = xp.ModMaskLock | xp.ModMask2

// ErrUnknownKey is returned when a key name has no keycode.
var ErrUnknownKey = errors.New("unknown key")

// Binding is one resolved chord.
type Binding struct {
	Mods     uint16
	Keycode  xp.Keycode
	Keys     []string
	Commands []command.Command
}

// Bindings is the resolved key table.
type Bindings []Binding

// Resolver maps a key name such as "Return" or "t" to keycodes.
type Resolver interface {
	Keycodes(key string) []xp.Keycode
}

var modifiers = map[string]uint16{
	"a":       xp.ModMask1,
	"alt":     xp.ModMask1,
	"mod1":    xp.ModMask1,
	"c":       xp.ModMaskControl,
	"ctrl":    xp.ModMaskControl,
	"control": xp.ModMaskControl,
	"s":       xp.ModMaskShift,
	"shift":   xp.ModMaskShift,
	"m":       xp.ModMask4,
	"super":   xp.ModMask4,
	"mod4":    xp.ModMask4,
	"mod2":    xp.ModMask2,
	"mod3":    xp.ModMask3,
	"mod5":    xp.ModMask5,
}

// ParseChord splits keys into a modifier mask and the final key name. Every
// token but the last must be a modifier.
func ParseChord(keys []string) (uint16, string, error) {
	if len(keys) == 0 {
		return 0, "", fmt.Errorf("%w: empty chord", ErrUnknownKey)
	}
	var mods uint16
	for _, k := range keys[:len(keys)-1] {
		m, ok := modifiers[strings.ToLower(k)]
		if !ok {
			return 0, "", fmt.Errorf("%q is not a modifier", k)
		}
		mods |= m
	}
	key := keys[len(keys)-1]
	if key == "" {
		return 0, "", fmt.Errorf("%w: empty key name", ErrUnknownKey)
	}
	return mods, key, nil
}

// Resolve builds the key table from the configured bindings. A binding that
// fails to resolve is skipped and reported in the returned error; the rest
// are still usable.
func Resolve(cfg []config.Binding, r Resolver) (Bindings, error) {
	var (
		out  Bindings
		errs []error
	)
	for _, b := range cfg {
		mods, key, err := ParseChord(b.Keys)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %v: %w", b.Keys, err))
			continue
		}
		cmds, err := b.Resolve()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		codes := r.Keycodes(key)
		if len(codes) == 0 {
			errs = append(errs, fmt.Errorf("binding %v: %w: %q", b.Keys, ErrUnknownKey, key))
			continue
		}
		for _, kc := range codes {
			out = append(out, Binding{Mods: mods, Keycode: kc, Keys: b.Keys, Commands: cmds})
		}
	}
	return out, errors.Join(errs...)
}

// Lookup returns the commands bound to a key press with modifier state
// state, or nil. Later bindings for the same chord win.
func (bs Bindings) Lookup(state uint16, key xp.Keycode) []command.Command {
	state &^= IgnoredMods
	state &= 0xff
	for i := len(bs) - 1; i >= 0; i-- {
		if b := bs[i]; b.Keycode == key && b.Mods == state {
			return b.Commands
		}
	}
	return nil
}
