// Package lineserver provides a small line-oriented TCP server: every
// accepted connection gets a session that reads newline-terminated lines and
// answers each with the lines produced by a LineHandler. It is the peer the
// netclient driver talks to.
package lineserver

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/go-netclient/idgenerator"
	"github.com/cyberinferno/go-netclient/logger"
	"github.com/cyberinferno/go-netclient/safemap"
)

// NewSessionFunc creates the Session for an accepted connection.
type NewSessionFunc func(id uint32, conn net.Conn) Session

// LineServer accepts connections on Addr and hands each to a session. The
// accept loop and all sessions run in goroutines tracked by the server, so
// Stop returns only after they have finished.
type LineServer struct {
	Logger     logger.Logger
	Name       string
	Addr       string
	Handler    LineHandler
	NewSession NewSessionFunc

	listener net.Listener
	sessions *safemap.SafeMap[uint32, Session]
	ids      *idgenerator.IdGenerator
	running  atomic.Bool
	group    errgroup.Group
	mu       sync.Mutex
}

// NewLineServer creates a server that answers lines with handler.
//
// Parameters:
//   - name: Name used in log messages
//   - addr: Listen address, e.g. "127.0.0.1:3333" or "127.0.0.1:0"
//   - handler: Produces replies; nil means Echo
//   - log: Logger; nil disables logging
//
// Returns:
//   - A new *LineServer; call Start to begin accepting
func NewLineServer(name string, addr string, handler LineHandler, log logger.Logger) *LineServer {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if handler == nil {
		handler = Echo()
	}

	return &LineServer{
		Logger:   log,
		Name:     name,
		Addr:     addr,
		Handler:  handler,
		sessions: safemap.NewSafeMap[uint32, Session](),
		ids:      idgenerator.NewIdGenerator(0),
	}
}

// Start binds Addr and starts the accept loop in a goroutine.
//
// Returns:
//   - An error if the server is already running or listening fails
func (s *LineServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return fmt.Errorf("server %s already running", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err.Error()})
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.listener = ln
	s.running.Store(true)
	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})

	s.group.Go(func() error {
		s.acceptLoop(ln)
		return nil
	})

	return nil
}

// Stop closes the listener and every session, then waits for all server
// goroutines. Safe to call when the server is not running.
func (s *LineServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Swap(false) {
		return
	}

	_ = s.listener.Close()
	for _, session := range s.sessions.Drain() {
		_ = session.Close()
	}

	_ = s.group.Wait()
	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name))
}

// IsRunning reports whether the server is accepting connections.
func (s *LineServer) IsRunning() bool {
	return s.running.Load()
}

// ListenAddr returns the bound address, which differs from Addr when Addr
// uses port 0. It returns nil before Start.
func (s *LineServer) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// AddSession stores a session under id.
func (s *LineServer) AddSession(id uint32, session Session) {
	s.sessions.Store(id, session)
}

// RemoveSession forgets the session with the given id.
func (s *LineServer) RemoveSession(id uint32) {
	s.sessions.Delete(id)
}

// GetSession returns the session for id, if present.
func (s *LineServer) GetSession(id uint32) (Session, bool) {
	return s.sessions.Get(id)
}

// SessionCount returns the number of live sessions.
func (s *LineServer) SessionCount() int {
	return s.sessions.Len()
}

// Broadcast sends data to every live session and returns how many sends failed.
func (s *LineServer) Broadcast(data []byte) int {
	failed := 0
	s.sessions.Range(func(id uint32, session Session) bool {
		if err := session.Send(data); err != nil {
			failed++
		}

		return true
	})

	return failed
}

func (s *LineServer) acceptLoop(ln net.Listener) {
	for s.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err.Error()})
			continue
		}

		id := s.ids.Id()
		session := s.newSession(id, conn)
		s.AddSession(id, session)
		if !s.running.Load() {
			// Stop drained the registry before this session was added.
			s.RemoveSession(id)
			_ = session.Close()
			return
		}

		s.group.Go(func() error {
			session.Handle()
			s.RemoveSession(id)
			return nil
		})
	}
}

func (s *LineServer) newSession(id uint32, conn net.Conn) Session {
	if s.NewSession != nil {
		return s.NewSession(id, conn)
	}

	return NewLineSession(id, conn, s.Handler, s.Logger)
}
