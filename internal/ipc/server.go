// Package ipc is the control socket: a Unix socket carrying one CBOR
// request and one CBOR response per connection.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Actions understood by the window manager.
const (
	ActionState     = "state"
	ActionWaitState = "wait_state"
	ActionCommand   = "command"
)

// Request is the wire form of every request. Fields other than Action are
// specific to the action.
type Request struct {
	Action string `cbor:"action"`
	// Since is the last state version the client has seen (wait_state).
	Since uint64 `cbor:"since,omitempty"`
	// Command and Args name a command to run (command).
	Command string `cbor:"command,omitempty"`
	Args    string `cbor:"args,omitempty"`
}

// Response is the wire envelope of every response.
type Response struct {
	OK      bool       `cbor:"ok"`
	Error   string     `cbor:"error,omitempty"`
	Version uint64     `cbor:"version,omitempty"`
	Data    RawMessage `cbor:"data,omitempty"`
}

// Reply is what an action handler returns: the state version the reply
// corresponds to and an optional payload.
type Reply struct {
	Version uint64
	Data    any
}

// ActionFunc handles one decoded request.
type ActionFunc func(ctx context.Context, req Request) (Reply, error)

// Server serves the control socket. Register actions with Handle before
// calling Serve.
type Server struct {
	socketPath string
	handlers   map[string]ActionFunc
	log        *zap.Logger

	// OnRequest, if set, is called after every request with the action and
	// its outcome.
	OnRequest func(action string, err error)

	active sync.WaitGroup
}

// NewServer creates a server that will listen on socketPath.
func NewServer(socketPath string, log *zap.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		log:        log,
	}
}

// Handle registers a handler for action. It panics on duplicates.
func (s *Server) Handle(action string, h ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("ipc: duplicate handler for action %q", action))
	}
	s.handlers[action] = h
}

// Serve accepts connections until ctx is done, then waits for the active
// ones. A stale socket file is replaced; the socket is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.log.Info("control socket listening", zap.String("path", s.socketPath))
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handleConnection(ctx, conn)
		}()
	}
	s.active.Wait()
	return nil
}

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 64 * 1024
)

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var req Request
	if err := newDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}
	h, ok := s.handlers[req.Action]
	if !ok {
		s.writeError(conn, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	reply, err := h(ctx, req)
	if s.OnRequest != nil {
		s.OnRequest(req.Action, err)
	}
	if err != nil {
		s.log.Debug("action failed", zap.String("action", req.Action), zap.Error(err))
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, reply)
}

func (s *Server) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := newEncoder(conn).Encode(Response{Error: message}); err != nil {
		s.log.Debug("failed to write error response", zap.Error(err))
	}
}

func (s *Server) writeSuccess(conn net.Conn, reply Reply) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	resp := Response{OK: true, Version: reply.Version}
	if reply.Data != nil {
		data, err := Marshal(reply.Data)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		resp.Data = data
	}
	if err := newEncoder(conn).Encode(resp); err != nil {
		s.log.Debug("failed to write response", zap.Error(err))
	}
}
