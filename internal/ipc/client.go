package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	dialTimeout = 5 * time.Second
	// responseTimeout bounds requests that do not block on a state
	// change.
	responseTimeout = 45 * time.Second
	maxResponseSize = 16 * 1024 * 1024
)

// RemoteError is a failure reported by the window manager.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// Client talks to a running window manager.
type Client struct {
	socketPath string
}

// NewClient returns a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends req and decodes the response's data into out, if out is not
// nil. It returns the state version of the response.
func (c *Client) Call(ctx context.Context, req Request, out any) (uint64, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("calling %q on %s: %w", req.Action, c.socketPath, err)
	}
	if !resp.OK {
		return resp.Version, &RemoteError{Action: req.Action, Message: resp.Error}
	}
	if out != nil && len(resp.Data) > 0 {
		if err := Unmarshal(resp.Data, out); err != nil {
			return resp.Version, fmt.Errorf("decoding %q response: %w", req.Action, err)
		}
	}
	return resp.Version, nil
}

// State fetches the current state into out.
func (c *Client) State(ctx context.Context, out any) (uint64, error) {
	return c.Call(ctx, Request{Action: ActionState}, out)
}

// WaitState blocks until the state version differs from since, then
// fetches the state into out.
func (c *Client) WaitState(ctx context.Context, since uint64, out any) (uint64, error) {
	return c.Call(ctx, Request{Action: ActionWaitState, Since: since}, out)
}

// Command runs a command in the window manager.
func (c *Client) Command(ctx context.Context, name, args string) error {
	_, err := c.Call(ctx, Request{Action: ActionCommand, Command: name, Args: args}, nil)
	return err
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := newEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	// Waits are bounded by the caller's context and the server's wait
	// timeout, everything else by responseTimeout.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else if req.Action != ActionWaitState {
		conn.SetReadDeadline(time.Now().Add(responseTimeout))
	}
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	var resp Response
	if err := newDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &resp, nil
}
