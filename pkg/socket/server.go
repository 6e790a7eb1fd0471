// Package socket serves the control protocol on a Unix socket and hands
// decoded requests to the event loop.
package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/Veraticus/idlehook/pkg/protocol"
)

// requestBuffer bounds how many requests may wait for the loop.
const requestBuffer = 4

// maxLine is the longest request line accepted.
const maxLine = 1 << 20

// Request is one decoded message waiting for the loop. The loop sends at
// most one reply on Reply; it may send none when it is shutting down.
type Request struct {
	Message protocol.Message
	Reply   chan<- protocol.Reply
}

// Server accepts control connections on a Unix socket.
type Server struct {
	path     string
	logger   *slog.Logger
	requests chan Request

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
}

// NewServer creates a server for the socket at path.
func NewServer(path string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:     path,
		logger:   logger.With("socket", path),
		requests: make(chan Request, requestBuffer),
	}
}

// Requests is the channel the loop receives requests from.
func (s *Server) Requests() <-chan Request {
	return s.requests
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

func (s *Server) createListener() (net.Listener, error) {
	if err := removeStale(s.path); err != nil {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	return l, nil
}

// Start listens and serves connections until ctx is canceled. It returns
// nil on a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	l, err := s.createListener()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = s.Shutdown()
	})
	defer stop()

	s.logger.Debug("listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.conns.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.conns.Wait()
				return nil
			}
			s.logger.Warn("failed to accept connection", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Shutdown closes the listener and removes the socket file.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("failed to close listener", "error", err)
		}
		s.listener = nil
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket file: %w", err)
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.DecodeMessage(line)
		if err != nil {
			s.logger.Warn("couldn't interpret message", "error", err)
			continue
		}

		reply, ok := s.roundTrip(ctx, msg)
		if !ok {
			return
		}

		if err := writeReply(writer, reply); err != nil {
			s.logger.Warn("couldn't send reply", "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
		s.logger.Warn("failed to read request", "error", err)
	}
}

// roundTrip hands msg to the loop and waits for its answer. It reports
// false when the loop went away without answering.
func (s *Server) roundTrip(ctx context.Context, msg protocol.Message) (protocol.Reply, bool) {
	replies := make(chan protocol.Reply, 1)

	select {
	case s.requests <- Request{Message: msg, Reply: replies}:
	case <-ctx.Done():
		return protocol.Reply{}, false
	}

	select {
	case reply := <-replies:
		return reply, true
	case <-ctx.Done():
		return protocol.Reply{}, false
	}
}

func writeReply(w *bufio.Writer, reply protocol.Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
