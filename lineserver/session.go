package lineserver

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/cyberinferno/go-netclient/logger"
	"github.com/cyberinferno/go-netclient/utils"
)

// Session is implemented by each connection the server accepts. The server
// runs Handle in its own goroutine and calls Close on shutdown.
type Session interface {
	// ID returns the session's identifier assigned by the server.
	ID() uint32

	// Handle runs the session's read loop until the connection ends.
	Handle()

	// Close closes the session. It must be safe to call multiple times.
	Close() error

	// Send writes data to the connection and must be safe for concurrent use.
	Send(data []byte) error
}

// LineHandler turns one received line (without its terminator) into the
// lines to send back. Returning no lines sends nothing.
type LineHandler func(line string) []string

// Echo returns a handler that sends every line back unchanged.
func Echo() LineHandler {
	return Repeat(1)
}

// Repeat returns a handler that sends every line back n times. n below 1 is
// treated as 1.
func Repeat(n int) LineHandler {
	if n < 1 {
		n = 1
	}

	return func(line string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = line
		}

		return out
	}
}

// LineSession reads newline-terminated lines from its connection and writes
// the handler's replies, one line each, in a single write per request.
type LineSession struct {
	id      uint32
	conn    net.Conn
	reader  *bufio.Reader
	handler LineHandler
	log     logger.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewLineSession creates a session serving conn with handler.
//
// Parameters:
//   - id: Session ID assigned by the server
//   - conn: The accepted connection; the session owns it
//   - handler: Produces the reply lines for each received line
//   - log: Logger for session events
//
// Returns:
//   - A new *LineSession
func NewLineSession(id uint32, conn net.Conn, handler LineHandler, log logger.Logger) *LineSession {
	if handler == nil {
		handler = Echo()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &LineSession{
		id:      id,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		handler: handler,
		log:     log.With(logger.Field{Key: "session", Value: id}, logger.Field{Key: "remote", Value: conn.RemoteAddr().String()}),
	}
}

// ID implements Session.
func (s *LineSession) ID() uint32 {
	return s.id
}

// Handle implements Session. A final line without a terminator is still
// answered before the session ends.
func (s *LineSession) Handle() {
	defer func() {
		_ = s.Close()
	}()

	s.log.Debug("session started")
	for {
		raw, err := s.reader.ReadString('\n')
		if raw != "" {
			reply := s.handler(utils.TrimLineEnding(raw))
			if len(reply) > 0 {
				if sendErr := s.Send(utils.FrameLines(reply)); sendErr != nil {
					s.log.Warn("send failed", logger.Field{Key: "error", Value: sendErr.Error()})
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("read failed", logger.Field{Key: "error", Value: err.Error()})
			}

			s.log.Debug("session ended")
			return
		}
	}
}

// Close implements Session.
func (s *LineSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// Send implements Session.
func (s *LineSession) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.Write(data)
	return err
}
