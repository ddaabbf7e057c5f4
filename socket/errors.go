package socket

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// ErrorKind classifies socket failures so callers can tell a peer that went
// away apart from any other transport fault.
type ErrorKind int

const (
	ConnectFailure   ErrorKind = iota // Dial failed or the socket could not be configured
	TransportFailure                  // Any other I/O fault reported by the network stack
	ConnectionClosed                  // The peer closed (or reset) the connection
	NotConnected                      // The operation needs a connected socket
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ConnectFailure:
		return "connect failure"
	case TransportFailure:
		return "transport failure"
	case ConnectionClosed:
		return "connection closed"
	case NotConnected:
		return "not connected"
	default:
		return fmt.Sprintf("unknown socket error %d", int(k))
	}
}

// Error is the error type returned by Socket. Op names the failed operation
// ("connect", "send", "receive", ...) and Err holds the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrConnectFailure   = &Error{Kind: ConnectFailure}
	ErrTransportFailure = &Error{Kind: TransportFailure}
	ErrConnectionClosed = &Error{Kind: ConnectionClosed}
	ErrNotConnected     = &Error{Kind: NotConnected}
)

// NewError builds an *Error of the given kind.
//
// Parameters:
//   - kind: The failure classification
//   - op: The operation that failed
//   - err: The underlying cause; may be nil
//
// Returns:
//   - A new *Error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// IsConnectionClosed reports whether err, or any error it wraps, signals that
// the peer closed the connection.
func IsConnectionClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed)
}

// classify maps an I/O error from the network stack onto a socket error.
func classify(op string, err error) *Error {
	if errors.Is(err, io.EOF) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return NewError(ConnectionClosed, op, err)
	}

	return NewError(TransportFailure, op, err)
}
