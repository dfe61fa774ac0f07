package wm

import (
	"errors"

	"github.com/oxidewm/oxidewm/internal/command"
)

var (
	// ErrAnotherWM is returned by New when another window manager already
	// holds substructure redirection on a root.
	ErrAnotherWM = errors.New("another window manager is already running")

	ErrNoScreen            = errors.New("no such screen")
	ErrNoWorkspace         = errors.New("no active workspace")
	ErrNoWindow            = errors.New("no such window")
	ErrWorkspacesExhausted = errors.New("no free workspace id")

	// ErrInvalidArgument is the error wrapped by command argument decoders.
	ErrInvalidArgument = command.ErrInvalidArgument
)
