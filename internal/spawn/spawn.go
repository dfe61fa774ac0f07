// Package spawn starts user programs for the Exec commands.
package spawn

import (
	"errors"
	"os/exec"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// Spawner runs command lines with sh -c, detached from the window
// manager's process group.
type Spawner struct {
	log   *zap.Logger
	Shell string
}

// New returns a Spawner using /bin/sh.
func New(log *zap.Logger) *Spawner {
	return &Spawner{log: log, Shell: "/bin/sh"}
}

// Spawn starts cmdline and returns once it is running. The exit status is
// logged, never returned.
func (s *Spawner) Spawn(cmdline string) error {
	if strings.TrimSpace(cmdline) == "" {
		return ErrEmptyCommand
	}
	c := exec.Command(s.Shell, "-c", cmdline)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := c.Start(); err != nil {
		return err
	}
	s.log.Debug("started command", zap.String("cmd", cmdline), zap.Int("pid", c.Process.Pid))
	go func() {
		if err := c.Wait(); err != nil {
			s.log.Debug("command exited", zap.String("cmd", cmdline), zap.Error(err))
		}
	}()
	return nil
}

// SpawnAll starts every command line, logging failures.
func (s *Spawner) SpawnAll(cmdlines []string) {
	for _, cmd := range cmdlines {
		if err := s.Spawn(cmd); err != nil {
			s.log.Warn("could not start command", zap.String("cmd", cmd), zap.Error(err))
		}
	}
}
