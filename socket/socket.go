// Package socket provides a small blocking socket primitive on top of the net
// package: address setup, connect, socket options, single-call (possibly
// partial) send and receive, and a pending-data query. Failures are reported
// as *Error values whose Kind separates a peer that closed the connection from
// any other transport fault.
package socket

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Kind is the protocol a Socket speaks.
type Kind int

const (
	TCP Kind = iota // Byte stream
	UDP             // Datagrams
)

// String returns a human-readable name for the protocol kind.
func (k Kind) String() string {
	switch k {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return "Unknown"
	}
}

// Network returns the network name understood by net.Dial.
func (k Kind) Network() string {
	if k == UDP {
		return "udp"
	}

	return "tcp"
}

// Option is a boolean socket option.
type Option int

const (
	TCPNoDelay Option = iota // Disable Nagle's algorithm
	KeepAlive                // Enable TCP keep-alive probes
)

// String returns a human-readable name for the option.
func (o Option) String() string {
	switch o {
	case TCPNoDelay:
		return "TCPNoDelay"
	case KeepAlive:
		return "KeepAlive"
	default:
		return "Unknown"
	}
}

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultPendingDataWait = 50 * time.Millisecond
	readBufferSize         = 4096
)

// Socket is a blocking client socket. Configure it with SetHost, SetPort and
// SetSocketOption, then call Connect. A Socket is not safe for concurrent use.
type Socket struct {
	kind            Kind
	host            string
	port            uint16
	connectTimeout  time.Duration
	pendingDataWait time.Duration
	options         map[Option]bool

	conn      net.Conn
	reader    *bufio.Reader
	lastError error
}

// NewSocket creates an unconnected socket of the given kind.
//
// Parameters:
//   - kind: TCP or UDP
//
// Returns:
//   - A new *Socket with a 10s connect timeout and a 50ms pending-data wait
func NewSocket(kind Kind) *Socket {
	return &Socket{
		kind:            kind,
		connectTimeout:  defaultConnectTimeout,
		pendingDataWait: defaultPendingDataWait,
		options:         make(map[Option]bool),
	}
}

// Kind returns the protocol of the socket.
func (s *Socket) Kind() Kind {
	return s.kind
}

// SetHost sets the remote host name or IP address used by Connect.
func (s *Socket) SetHost(host string) {
	s.host = host
}

// Host returns the configured remote host.
func (s *Socket) Host() string {
	return s.host
}

// SetPort sets the remote port used by Connect.
func (s *Socket) SetPort(port uint16) {
	s.port = port
}

// Port returns the configured remote port.
func (s *Socket) Port() uint16 {
	return s.port
}

// Address returns the "host:port" string Connect dials.
func (s *Socket) Address() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

// SetConnectTimeout limits how long Connect waits for the dial; 0 means no limit.
func (s *Socket) SetConnectTimeout(d time.Duration) {
	s.connectTimeout = d
}

// SetPendingDataWait sets how long HasData waits for data to arrive before
// reporting that nothing is pending. Values below one millisecond are raised
// to one millisecond.
func (s *Socket) SetPendingDataWait(d time.Duration) {
	if d < time.Millisecond {
		d = time.Millisecond
	}

	s.pendingDataWait = d
}

// SetSocketOption enables or disables a socket option. Options set before
// Connect are applied when the connection is established.
//
// Parameters:
//   - opt: The option to change
//   - enabled: Whether the option is on
//
// Returns:
//   - An error if the option does not apply to this socket kind or could not be applied
func (s *Socket) SetSocketOption(opt Option, enabled bool) error {
	if s.kind != TCP {
		return fmt.Errorf("option %s is not supported on %s sockets", opt, s.kind)
	}

	if opt != TCPNoDelay && opt != KeepAlive {
		return fmt.Errorf("unknown socket option %d", int(opt))
	}

	s.options[opt] = enabled
	if s.conn == nil {
		return nil
	}

	if err := s.applyOption(opt, enabled); err != nil {
		return NewError(TransportFailure, "setsockopt", err)
	}

	return nil
}

func (s *Socket) applyOption(opt Option, enabled bool) error {
	tcpConn, ok := s.conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	switch opt {
	case TCPNoDelay:
		return tcpConn.SetNoDelay(enabled)
	case KeepAlive:
		return tcpConn.SetKeepAlive(enabled)
	}

	return nil
}

// Connect dials the configured address. On failure the reason is also kept
// for ErrorReason.
//
// Returns:
//   - nil on success; an *Error of kind ConnectFailure otherwise
func (s *Socket) Connect() error {
	if s.conn != nil {
		return s.fail(NewError(ConnectFailure, "connect", errors.New("already connected")))
	}

	if s.host == "" {
		return s.fail(NewError(ConnectFailure, "connect", errors.New("host is not set")))
	}

	dialer := net.Dialer{Timeout: s.connectTimeout}
	conn, err := dialer.Dial(s.kind.Network(), s.Address())
	if err != nil {
		return s.fail(NewError(ConnectFailure, "connect", err))
	}

	s.conn = conn
	for opt, enabled := range s.options {
		if err := s.applyOption(opt, enabled); err != nil {
			_ = conn.Close()
			s.conn = nil
			return s.fail(NewError(ConnectFailure, "setsockopt", err))
		}
	}

	s.reader = bufio.NewReaderSize(conn, readBufferSize)
	s.lastError = nil
	return nil
}

// ErrorReason returns the message of the most recent failure, or "" if the
// last operation succeeded.
func (s *Socket) ErrorReason() string {
	if s.lastError == nil {
		return ""
	}

	return s.lastError.Error()
}

// IsConnected reports whether Connect succeeded and Close has not been called.
func (s *Socket) IsConnected() bool {
	return s.conn != nil
}

// LocalAddr returns the local address, or nil when not connected.
func (s *Socket) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote address, or nil when not connected.
func (s *Socket) RemoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}

	return s.conn.RemoteAddr()
}

// Send performs a single write and returns how many bytes it transferred,
// which may be fewer than len(p).
//
// Parameters:
//   - p: Bytes to send; not modified
//
// Returns:
//   - The number of bytes written and an *Error on failure
func (s *Socket) Send(p []byte) (int, error) {
	if s.conn == nil {
		return 0, s.fail(NewError(NotConnected, "send", nil))
	}

	if len(p) == 0 {
		return 0, nil
	}

	n, err := s.conn.Write(p)
	if err != nil {
		return n, s.fail(classify("send", err))
	}

	return n, nil
}

// Receive performs a single read into p and returns how many bytes arrived,
// which may be fewer than len(p). It blocks until at least one byte is
// available or the connection fails. End of stream is reported as an *Error
// of kind ConnectionClosed.
//
// Parameters:
//   - p: Destination buffer
//
// Returns:
//   - The number of bytes read and an *Error on failure
func (s *Socket) Receive(p []byte) (int, error) {
	if s.conn == nil {
		return 0, s.fail(NewError(NotConnected, "receive", nil))
	}

	if len(p) == 0 {
		return 0, nil
	}

	n, err := s.reader.Read(p)
	if err != nil {
		return n, s.fail(classify("receive", err))
	}

	return n, nil
}

// HasData reports whether a Receive would return data without waiting longer
// than the pending-data wait. Buffered bytes count as pending. A closed peer
// is reported as no pending data; the next Receive surfaces the closure.
//
// Returns:
//   - true if data is pending
//   - An *Error if the socket is not connected or the check itself failed
func (s *Socket) HasData() (bool, error) {
	if s.conn == nil {
		return false, s.fail(NewError(NotConnected, "poll", nil))
	}

	if s.reader.Buffered() > 0 {
		return true, nil
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.pendingDataWait)); err != nil {
		return false, s.fail(NewError(TransportFailure, "poll", err))
	}

	_, peekErr := s.reader.Peek(1)

	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return false, s.fail(NewError(TransportFailure, "poll", err))
	}

	if peekErr == nil {
		return true, nil
	}

	if errors.Is(peekErr, os.ErrDeadlineExceeded) {
		return false, nil
	}

	if cerr := classify("poll", peekErr); cerr.Kind == ConnectionClosed {
		return false, nil
	}

	return false, s.fail(NewError(TransportFailure, "poll", peekErr))
}

// Close closes the connection. It is safe to call multiple times.
//
// Returns:
//   - nil if already closed, or an *Error if closing failed
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	s.reader = nil
	if err != nil {
		return s.fail(NewError(TransportFailure, "close", err))
	}

	return nil
}

func (s *Socket) fail(err *Error) error {
	s.lastError = err
	return err
}
