// Package watch lets any number of goroutines wait for the next change of a
// versioned value without missing one.
package watch

import (
	"context"
	"sync"
	"time"
)

// Notifier hands out increasing versions. Publish bumps the version and
// wakes every waiter.
type Notifier struct {
	mu      sync.Mutex
	version uint64
	changed chan struct{}
}

// New returns a Notifier at version 0.
func New() *Notifier {
	return &Notifier{changed: make(chan struct{})}
}

// Version returns the current version.
func (n *Notifier) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// Publish advances the version and returns it.
func (n *Notifier) Publish() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.version++
	close(n.changed)
	n.changed = make(chan struct{})
	return n.version
}

// Wait blocks until the version differs from since, then returns the new
// version. It returns early with ctx's error, or with
// context.DeadlineExceeded after timeout if timeout is positive.
func (n *Notifier) Wait(ctx context.Context, since uint64, timeout time.Duration) (uint64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for {
		n.mu.Lock()
		v, ch := n.version, n.changed
		n.mu.Unlock()
		if v != since {
			return v, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
}
