package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/oxidewm/oxidewm/internal/command"
	"github.com/oxidewm/oxidewm/internal/ipc"
	"github.com/oxidewm/oxidewm/internal/metrics"
)

// RegisterIPC serves the control socket actions from the event loop.
// waitTimeout bounds wait_state requests; when it expires the current
// state is returned as if it had changed.
func (d *Dispatcher) RegisterIPC(s *ipc.Server, waitTimeout time.Duration) {
	s.OnRequest = func(action string, err error) {
		d.metrics.IPCRequests.WithLabelValues(action, metrics.Status(err)).Inc()
	}
	s.Handle(ipc.ActionState, d.handleState)
	s.Handle(ipc.ActionWaitState, func(ctx context.Context, req ipc.Request) (ipc.Reply, error) {
		_, err := d.notifier.Wait(ctx, req.Since, waitTimeout)
		if err != nil && !(errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
			return ipc.Reply{}, err
		}
		return d.handleState(ctx, req)
	})
	s.Handle(ipc.ActionCommand, func(ctx context.Context, req ipc.Request) (ipc.Reply, error) {
		c, err := command.Parse(req.Command, req.Args)
		if err != nil {
			return ipc.Reply{}, err
		}
		if err := d.Submit(ctx, c); err != nil {
			return ipc.Reply{}, err
		}
		return ipc.Reply{Version: d.notifier.Version()}, nil
	})
}

func (d *Dispatcher) handleState(ctx context.Context, _ ipc.Request) (ipc.Reply, error) {
	st, v, err := d.Snapshot(ctx)
	if err != nil {
		return ipc.Reply{}, err
	}
	return ipc.Reply{Version: v, Data: st}, nil
}
