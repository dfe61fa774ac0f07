package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name  string         `cbor:"name"`
	Count map[uint16]int `cbor:"count"`
}

// startServer serves s on a fresh socket until the test ends.
func startServer(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", s.socketPath)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func newTestServer(t *testing.T) *Server {
	return NewServer(filepath.Join(t.TempDir(), "wm.sock"), zap.NewNop())
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.Handle(ActionState, func(ctx context.Context, req Request) (Reply, error) {
		return Reply{Version: 7, Data: payload{Name: "wm", Count: map[uint16]int{1: 2}}}, nil
	})
	startServer(t, s)

	var got payload
	v, err := NewClient(s.socketPath).State(context.Background(), &got)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
	assert.Equal(t, payload{Name: "wm", Count: map[uint16]int{1: 2}}, got)
}

func TestCommandErrorsAreRemote(t *testing.T) {
	s := newTestServer(t)
	seen := make(chan Request, 1)
	s.Handle(ActionCommand, func(ctx context.Context, req Request) (Reply, error) {
		seen <- req
		return Reply{}, errors.New("invalid argument: \"sideways\"")
	})
	var observed atomic.Int32
	s.OnRequest = func(action string, err error) {
		if action == ActionCommand && err != nil {
			observed.Add(1)
		}
	}
	startServer(t, s)

	err := NewClient(s.socketPath).Command(context.Background(), "Focus", "sideways")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ActionCommand, re.Action)
	assert.Contains(t, re.Message, "sideways")
	assert.Equal(t, Request{Action: ActionCommand, Command: "Focus", Args: "sideways"}, <-seen)
	assert.Eventually(t, func() bool { return observed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnknownAction(t *testing.T) {
	s := newTestServer(t)
	startServer(t, s)

	_, err := NewClient(s.socketPath).Call(context.Background(), Request{Action: "dance"}, nil)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, `unknown action "dance"`)
}

func TestMissingAction(t *testing.T) {
	s := newTestServer(t)
	startServer(t, s)

	_, err := NewClient(s.socketPath).Call(context.Background(), Request{}, nil)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, "missing required field")
}

func TestWaitStatePassesSinceAndHonorsContext(t *testing.T) {
	s := newTestServer(t)
	s.Handle(ActionWaitState, func(ctx context.Context, req Request) (Reply, error) {
		if req.Since == 3 {
			return Reply{Version: 4}, nil
		}
		<-ctx.Done()
		return Reply{}, ctx.Err()
	})
	startServer(t, s)
	c := NewClient(s.socketPath)

	v, err := c.WaitState(context.Background(), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.WaitState(ctx, 9, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServeReplacesStaleSocketAndCleansUp(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(s.socketPath, nil, 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	require.Eventually(t, func() bool {
		fi, err := os.Stat(s.socketPath)
		return err == nil && fi.Mode()&os.ModeSocket != 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	_, err := os.Stat(s.socketPath)
	assert.True(t, os.IsNotExist(err))
}

func TestDialFailure(t *testing.T) {
	_, err := NewClient(filepath.Join(t.TempDir(), "none.sock")).State(context.Background(), nil)
	require.Error(t, err)
	var re *RemoteError
	assert.False(t, errors.As(err, &re))
}

func TestDuplicateHandlerPanics(t *testing.T) {
	s := newTestServer(t)
	h := func(context.Context, Request) (Reply, error) { return Reply{}, nil }
	s.Handle(ActionState, h)
	assert.Panics(t, func() { s.Handle(ActionState, h) })
}
