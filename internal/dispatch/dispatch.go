// Package dispatch runs the window manager's event loop. Every X event,
// command, state query and timer tick goes through one channel and is
// handled on the goroutine running Run, the only one that touches the
// WindowManager.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/xgb"
	xp "github.com/BurntSushi/xgb/xproto"
	"go.uber.org/zap"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/config"
	"github.com/oxidewm/oxidewm/internal/keybind"
	"github.com/oxidewm/oxidewm/internal/metrics"
	"github.com/oxidewm/oxidewm/internal/spawn"
	"github.com/oxidewm/oxidewm/internal/watch"
	"github.com/oxidewm/oxidewm/internal/wm"
	"github.com/oxidewm/oxidewm/internal/x11"
)

// ErrFatal wraps errors that end the window manager with a failure status.
var ErrFatal = errors.New("fatal X error")

// ErrStopped is returned to callers once Run has returned.
var ErrStopped = errors.New("window manager stopped")

// majorChangeWindowAttributes is the X opcode of ChangeWindowAttributes.
const majorChangeWindowAttributes = 2

type xMessage struct {
	event xgb.Event
	err   xgb.Error
}

type commandMessage struct {
	cmd   command.Command
	reply chan error
}

type stateReply struct {
	state   wm.State
	version uint64
}

type stateMessage struct {
	reply chan stateReply
}

type tickMessage struct{}

// Options wires a Dispatcher.
type Options struct {
	Conn    x11.Conn
	Manager *wm.WindowManager
	Config  *config.Config
	// ConfigPath is reloaded on Restart. Empty means the search path.
	ConfigPath string
	Log        *zap.Logger
	Metrics    *metrics.Metrics
	Spawner    *spawn.Spawner
	Notifier   *watch.Notifier
}

// Dispatcher owns the event loop.
type Dispatcher struct {
	conn       x11.Conn
	wm         *wm.WindowManager
	cfg        *config.Config
	configPath string
	log        *zap.Logger
	metrics    *metrics.Metrics
	spawner    *spawn.Spawner
	notifier   *watch.Notifier

	ingress chan any
	done    chan struct{}
}

// New returns a Dispatcher. Nil Metrics, Spawner and Notifier are replaced
// with fresh ones.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		conn:       opts.Conn,
		wm:         opts.Manager,
		cfg:        opts.Config,
		configPath: opts.ConfigPath,
		log:        opts.Log,
		metrics:    opts.Metrics,
		spawner:    opts.Spawner,
		notifier:   opts.Notifier,
		ingress:    make(chan any, 64),
		done:       make(chan struct{}),
	}
	if d.metrics == nil {
		d.metrics = metrics.New()
	}
	if d.spawner == nil {
		d.spawner = spawn.New(d.log)
	}
	if d.notifier == nil {
		d.notifier = watch.New()
	}
	return d
}

// Notifier returns the state change notifier.
func (d *Dispatcher) Notifier() *watch.Notifier { return d.notifier }

// Run starts the configured programs and handles messages until a Quit
// command, a fatal X error or the end of ctx. Quit returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	d.spawner.SpawnAll(d.cfg.Exec)
	d.spawner.SpawnAll(d.cfg.ExecAlways)
	if err := d.settle(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.ingress:
			quit, reply, err := d.handle(msg)
			if err != nil {
				return err
			}
			err = d.settle()
			if reply != nil {
				reply()
			}
			if err != nil {
				return err
			}
			if quit {
				d.log.Info("quitting")
				return nil
			}
		}
	}
}

// settle checks the requests issued so far and publishes a new state
// version if anything changed.
func (d *Dispatcher) settle() error {
	for _, re := range d.conn.Flush() {
		d.metrics.RequestErrors.WithLabelValues(re.Request).Inc()
		if wm.IsFatal(re) {
			return fmt.Errorf("%w: %v", ErrFatal, re)
		}
		d.log.Warn("X request failed", zap.Error(re))
	}
	if d.wm.Dirty() {
		v := d.notifier.Publish()
		windows, workspaces := d.wm.Counts()
		d.metrics.ManagedWindows.Set(float64(windows))
		d.metrics.Workspaces.Set(float64(workspaces))
		d.log.Debug("state changed", zap.Uint64("version", v))
	}
	return nil
}

// handle processes one message. A non-nil reply is called once the
// resulting state has been published.
func (d *Dispatcher) handle(msg any) (quit bool, reply func(), err error) {
	switch m := msg.(type) {
	case xMessage:
		if m.err != nil {
			return false, nil, d.handleXError(m.err)
		}
		quit, err = d.handleEvent(m.event)
		return quit, nil, err
	case commandMessage:
		quit, cerr := d.runCommand(m.cmd)
		if !m.cmd.Kind.Mutates() {
			m.reply <- cerr
			return quit, nil, nil
		}
		// Replies wait for settle so a caller's next read sees the change.
		return quit, func() { m.reply <- cerr }, nil
	case stateMessage:
		m.reply <- stateReply{state: d.wm.State(), version: d.notifier.Version()}
	case tickMessage:
		d.wm.RefreshTitles()
	}
	return false, nil, nil
}

func (d *Dispatcher) handleXError(xerr xgb.Error) error {
	d.metrics.RequestErrors.WithLabelValues("async").Inc()
	if ae, ok := xerr.(xp.AccessError); ok && ae.MajorOpcode == majorChangeWindowAttributes {
		return fmt.Errorf("%w: %v", ErrFatal, xerr)
	}
	d.log.Warn("X error", zap.String("error", xerr.Error()))
	return nil
}

func (d *Dispatcher) handleEvent(ev xgb.Event) (quit bool, err error) {
	d.metrics.EventsTotal.WithLabelValues(eventName(ev)).Inc()
	switch e := ev.(type) {
	case xp.MapRequestEvent:
		err = d.wm.HandleMapRequest(e)
	case xp.UnmapNotifyEvent:
		d.wm.HandleUnmapNotify(e)
	case xp.DestroyNotifyEvent:
		d.wm.HandleDestroyNotify(e)
	case xp.EnterNotifyEvent:
		err = d.wm.HandleEnterNotify(e)
	case xp.LeaveNotifyEvent:
		err = d.wm.HandleLeaveNotify(e)
	case xp.ConfigureRequestEvent:
		d.wm.HandleConfigureRequest(e)
	case xp.ConfigureNotifyEvent:
		d.wm.HandleConfigureNotify(e)
	case xp.PropertyNotifyEvent:
		d.wm.HandlePropertyNotify(e)
	case xp.KeyPressEvent:
		for _, c := range d.wm.HandleKeyPress(e) {
			q, cerr := d.runCommand(c)
			if cerr != nil {
				d.log.Warn("command failed", zap.Stringer("command", c), zap.Error(cerr))
			}
			if q {
				return true, nil
			}
		}
	}
	if err != nil {
		d.log.Warn("event dropped", zap.String("event", eventName(ev)), zap.Error(err))
	}
	return false, nil
}

// eventName turns xproto.MapRequestEvent into "MapRequest".
func eventName(ev xgb.Event) string {
	name := fmt.Sprintf("%T", ev)
	name = name[strings.LastIndexByte(name, '.')+1:]
	return strings.TrimSuffix(name, "Event")
}

func (d *Dispatcher) runCommand(c command.Command) (quit bool, err error) {
	start := time.Now()
	defer func() { d.metrics.ObserveCommand(c.Kind.String(), start, err) }()

	m := d.wm
	switch c.Kind {
	case command.Focus:
		err = m.FocusMove(c.Args)
	case command.Move:
		err = m.WindowMove(c.Args)
	case command.Kill:
		err = m.KillFocused()
	case command.Layout:
		err = m.SetLayout(c.Args)
	case command.NextLayout:
		err = m.NextLayout()
	case command.GoToWorkspace:
		err = m.GoToWorkspace(c.Args)
	case command.NewWorkspace:
		err = m.NewWorkspace()
	case command.Fullscreen:
		err = m.ToggleFullscreen()
	case command.Exec, command.ExecAlways:
		err = d.spawner.Spawn(c.Args)
	case command.Restart:
		err = d.restart()
	case command.Quit:
		quit = true
	default:
		err = fmt.Errorf("%w: %v", command.ErrUnknownCommand, c.Kind)
	}
	return quit, err
}

// restart reloads the config file and applies it in place. A config that
// fails to load leaves everything as it was.
func (d *Dispatcher) restart() error {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	style, err := wm.NewStyle(cfg)
	if err != nil {
		return err
	}
	bindings, err := keybind.Resolve(cfg.Cmds, d.conn)
	if err != nil {
		d.log.Warn("some key bindings were skipped", zap.Error(err))
	}
	if err := d.wm.Restart(style, bindings); err != nil {
		return err
	}
	d.cfg = cfg
	d.metrics.Restarts.Inc()
	d.log.Info("restarted", zap.String("config", cfg.Path), zap.Int("bindings", len(bindings)))
	d.spawner.SpawnAll(cfg.ExecAlways)
	return nil
}

// send queues msg, giving up when ctx ends or Run has returned.
func (d *Dispatcher) send(ctx context.Context, msg any) error {
	select {
	case d.ingress <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// Submit runs a command on the event loop and returns its error.
func (d *Dispatcher) Submit(ctx context.Context, c command.Command) error {
	reply := make(chan error, 1)
	if err := d.send(ctx, commandMessage{cmd: c, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// Snapshot returns the current state and its version.
func (d *Dispatcher) Snapshot(ctx context.Context) (wm.State, uint64, error) {
	reply := make(chan stateReply, 1)
	if err := d.send(ctx, stateMessage{reply: reply}); err != nil {
		return wm.State{}, 0, err
	}
	select {
	case r := <-reply:
		return r.state, r.version, nil
	case <-ctx.Done():
		return wm.State{}, 0, ctx.Err()
	case <-d.done:
		return wm.State{}, 0, ErrStopped
	}
}

// ProxyEvents forwards X events and errors to the event loop until the
// connection is closed or ctx ends.
func (d *Dispatcher) ProxyEvents(ctx context.Context) error {
	for {
		ev, xerr := d.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return nil
		}
		if err := d.send(ctx, xMessage{event: ev, err: xerr}); err != nil {
			if errors.Is(err, ErrStopped) {
				return nil
			}
			return err
		}
	}
}

// Tick asks the event loop to refresh window titles every interval.
func (d *Dispatcher) Tick(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.done:
			return nil
		case <-t.C:
			if err := d.send(ctx, tickMessage{}); err != nil {
				return nil
			}
		}
	}
}
