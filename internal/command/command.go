// Package command defines the window manager's command vocabulary and the
// decoders for each command's single string argument.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is one of the closed set of commands.
type Kind int

const (
	Unknown Kind = iota
	Focus
	Move
	Kill
	Layout
	NextLayout
	GoToWorkspace
	NewWorkspace
	Fullscreen
	Exec
	ExecAlways
	Restart
	Quit
)

var kindNames = [...]string{
	Unknown:       "Unknown",
	Focus:         "Focus",
	Move:          "Move",
	Kill:          "Kill",
	Layout:        "Layout",
	NextLayout:    "NextLayout",
	GoToWorkspace: "GoToWorkspace",
	NewWorkspace:  "NewWorkspace",
	Fullscreen:    "Fullscreen",
	Exec:          "Exec",
	ExecAlways:    "ExecAlways",
	Restart:       "Restart",
	Quit:          "Quit",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// ErrUnknownCommand is returned by ParseKind.
var ErrUnknownCommand = errors.New("unknown command")

// ParseKind parses a command name. Matching ignores case, '_' and '-', so
// "GoToWorkspace", "go_to_workspace" and "goto-workspace" are all accepted.
func ParseKind(s string) (Kind, error) {
	norm := normalize(s)
	for k := Focus; k <= Quit; k++ {
		if normalize(kindNames[k]) == norm {
			return k, nil
		}
	}
	switch norm {
	case "goto", "workspace":
		return GoToWorkspace, nil
	case "killfocused", "close":
		return Kill, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Mutates reports whether running the command can change window manager
// state.
func (k Kind) Mutates() bool {
	switch k {
	case Exec, ExecAlways, Quit, Unknown:
		return false
	}
	return true
}

// Command is one command with its optional argument.
type Command struct {
	Kind Kind   `yaml:"command" cbor:"command" json:"command"`
	Args string `yaml:"args,omitempty" cbor:"args,omitempty" json:"args,omitempty"`
}

func (c Command) String() string {
	if c.Args == "" {
		return c.Kind.String()
	}
	return c.Kind.String() + " " + c.Args
}

// Parse builds a Command from a name and an argument. An argument of "None"
// is treated as absent.
func Parse(name, args string) (Command, error) {
	k, err := ParseKind(name)
	if err != nil {
		return Command{}, err
	}
	if strings.EqualFold(args, "none") {
		args = ""
	}
	return Command{Kind: k, Args: args}, nil
}

// ErrInvalidArgument is wrapped by every argument decoder failure.
var ErrInvalidArgument = errors.New("invalid argument")

// Movement is a direction argument.
type Movement int

const (
	Left Movement = iota
	Right
	Up
	Down
)

func (m Movement) String() string {
	switch m {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "invalid"
}

// ParseMovement decodes one of left, right, up or down, in any case.
func ParseMovement(s string) (Movement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "":
		return 0, fmt.Errorf("%w: missing movement", ErrInvalidArgument)
	}
	return 0, fmt.Errorf("%w: %q is not a valid movement", ErrInvalidArgument, s)
}

// WorkspaceTargetKind says how a GoToWorkspace argument picks a workspace.
type WorkspaceTargetKind int

const (
	TargetID WorkspaceTargetKind = iota
	TargetNext
	TargetPrevious
	TargetNextFree
)

// WorkspaceTarget is a decoded GoToWorkspace argument.
type WorkspaceTarget struct {
	Kind WorkspaceTargetKind
	ID   uint16
}

// ParseWorkspaceTarget decodes a workspace id (1-65535), "next",
// "previous"/"prev", or "next_free".
func ParseWorkspaceTarget(s string) (WorkspaceTarget, error) {
	switch normalize(s) {
	case "":
		return WorkspaceTarget{}, fmt.Errorf("%w: missing workspace", ErrInvalidArgument)
	case "next":
		return WorkspaceTarget{Kind: TargetNext}, nil
	case "prev", "previous":
		return WorkspaceTarget{Kind: TargetPrevious}, nil
	case "nextfree", "new":
		return WorkspaceTarget{Kind: TargetNextFree}, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || n == 0 {
		return WorkspaceTarget{}, fmt.Errorf("%w: %q is not a workspace", ErrInvalidArgument, s)
	}
	return WorkspaceTarget{Kind: TargetID, ID: uint16(n)}, nil
}
