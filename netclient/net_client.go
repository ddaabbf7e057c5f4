// Package netclient provides a blocking TCP client with byte-exact send and
// receive loops and simple newline-delimited line reading on top of a socket
// primitive that may transfer fewer bytes than asked for in a single call.
//
// A NetClient is not safe for concurrent use. Every operation blocks until it
// is satisfied or the transport fails; failures are returned unchanged in
// kind, so errors.Is(err, socket.ErrConnectionClosed) tells a closed peer
// apart from any other transport fault.
package netclient

import (
	"fmt"
	"io"
	"time"

	"github.com/cyberinferno/go-netclient/logger"
	"github.com/cyberinferno/go-netclient/socket"
	"github.com/cyberinferno/go-netclient/utils"
)

const (
	// DefaultReceiveStringSize is the buffer size ReceiveString uses when the
	// caller does not ask for one.
	DefaultReceiveStringSize = 2048

	// initialLinesCapacity is the starting capacity of the slice returned by
	// ReceiveLines; append grows it as needed.
	initialLinesCapacity = 8

	// maxEmptyReads is how many consecutive zero-byte, error-free reads
	// ReceiveData tolerates before giving up.
	maxEmptyReads = 100
)

// Transport is the socket primitive a NetClient drives. Send and Receive each
// perform one attempt and may transfer fewer bytes than requested.
// *socket.Socket implements it.
type Transport interface {
	Send(p []byte) (int, error)
	Receive(p []byte) (int, error)
	HasData() (bool, error)
	Close() error
}

// Config holds the connection settings for NewNetClient.
type Config struct {
	// Host is the remote host name or IP address.
	Host string
	// Port is the remote TCP port.
	Port uint16
	// ConnectionTimeout bounds Connect; 0 means no timeout.
	ConnectionTimeout time.Duration
	// NoDelay disables Nagle's algorithm on the connection.
	NoDelay bool
	// KeepAlive enables TCP keep-alive probes.
	KeepAlive bool
	// PendingDataWait is how long ReceiveLines waits for another line to
	// start arriving before it returns what it has.
	PendingDataWait time.Duration
}

// DefaultNetClientConfig returns a Config with default values for the given
// host and port: ConnectionTimeout 10s, PendingDataWait 50ms, NoDelay and
// KeepAlive off.
func DefaultNetClientConfig(host string, port uint16) Config {
	return Config{
		Host:              host,
		Port:              port,
		ConnectionTimeout: 10 * time.Second,
		NoDelay:           false,
		KeepAlive:         false,
		PendingDataWait:   50 * time.Millisecond,
	}
}

// NetClient adds transfer loops and line parsing on top of a Transport.
type NetClient struct {
	transport Transport
	sock      *socket.Socket
	log       logger.Logger
}

// NewNetClient creates an unconnected client for the configured host and
// port. Call Connect before any transfer.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultNetClientConfig)
//   - log: Logger for connection lifecycle messages; nil disables logging
//
// Returns:
//   - A new *NetClient; call Close when done
func NewNetClient(config Config, log logger.Logger) *NetClient {
	sock := socket.NewSocket(socket.TCP)
	sock.SetHost(config.Host)
	sock.SetPort(config.Port)
	sock.SetConnectTimeout(config.ConnectionTimeout)
	sock.SetPendingDataWait(config.PendingDataWait)
	// Both options are valid on TCP sockets, so these cannot fail before Connect.
	_ = sock.SetSocketOption(socket.TCPNoDelay, config.NoDelay)
	_ = sock.SetSocketOption(socket.KeepAlive, config.KeepAlive)

	c := NewNetClientWithTransport(sock, log)
	c.sock = sock
	c.log = c.log.With(logger.Field{Key: "addr", Value: sock.Address()})
	return c
}

// NewNetClientWithTransport wraps a transport that is already connected.
//
// Parameters:
//   - t: The transport to drive
//   - log: Logger for lifecycle messages; nil disables logging
//
// Returns:
//   - A new *NetClient
func NewNetClientWithTransport(t Transport, log logger.Logger) *NetClient {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &NetClient{transport: t, log: log}
}

// Connect establishes the connection of a client built with NewNetClient.
// On failure ErrorReason describes the cause.
//
// Returns:
//   - nil on success; an error matching socket.ErrConnectFailure otherwise
func (c *NetClient) Connect() error {
	if c.sock == nil {
		return socket.NewError(socket.ConnectFailure, "connect", fmt.Errorf("client was built around an external transport"))
	}

	c.log.Debug("connecting")
	if err := c.sock.Connect(); err != nil {
		c.log.Debug("connect failed", logger.Field{Key: "error", Value: err.Error()})
		return err
	}

	c.log.Debug("connected", logger.Field{Key: "local", Value: c.sock.LocalAddr().String()})
	return nil
}

// ErrorReason returns the message of the socket's most recent failure, or ""
// when there is none or the client wraps an external transport.
func (c *NetClient) ErrorReason() string {
	if c.sock == nil {
		return ""
	}

	return c.sock.ErrorReason()
}

// SetSocketOption changes a socket option on the underlying socket.
//
// Parameters:
//   - opt: The option to change
//   - enabled: Whether the option is on
//
// Returns:
//   - An error if the client wraps an external transport or the option could not be applied
func (c *NetClient) SetSocketOption(opt socket.Option, enabled bool) error {
	if c.sock == nil {
		return fmt.Errorf("socket options are not available on an external transport")
	}

	return c.sock.SetSocketOption(opt, enabled)
}

// Close releases the connection. It is safe to call multiple times on a
// client built with NewNetClient.
func (c *NetClient) Close() error {
	err := c.transport.Close()
	c.log.Debug("closed")
	return err
}

// HasData reports whether the transport has data pending.
func (c *NetClient) HasData() (bool, error) {
	return c.transport.HasData()
}

// SendData sends all of data, calling the transport as many times as needed
// to get past short writes.
//
// Parameters:
//   - data: The bytes to send; not modified
//
// Returns:
//   - The number of bytes sent, len(data) on success
//   - The transport's error if a send failed; the count then covers what was sent before it
func (c *NetClient) SendData(data []byte) (int, error) {
	sent := 0
	for sent < len(data) {
		n, err := c.transport.Send(data[sent:])
		sent += n
		if err != nil {
			return sent, fmt.Errorf("send data: %w", err)
		}
	}

	return sent, nil
}

// SendString sends the bytes of text. No terminator is added.
//
// Parameters:
//   - text: The text to send
//
// Returns:
//   - The number of bytes sent and any error from SendData
func (c *NetClient) SendString(text string) (int, error) {
	return c.SendData([]byte(text))
}

// ReceiveData reads into buf. With requireFull it keeps reading until buf is
// full; otherwise it returns after the first read that delivered data. An
// empty buf returns immediately without touching the transport.
//
// Parameters:
//   - buf: Destination buffer
//   - requireFull: Whether all of buf must be filled
//
// Returns:
//   - The number of bytes received
//   - The transport's error if a read failed; the count then covers what arrived before it
func (c *NetClient) ReceiveData(buf []byte, requireFull bool) (int, error) {
	received := 0
	empty := 0
	for len(buf) > 0 && (received == 0 || (requireFull && received < len(buf))) {
		n, err := c.transport.Receive(buf[received:])
		received += n
		if err != nil {
			return received, fmt.Errorf("receive data: %w", err)
		}

		if n > 0 {
			empty = 0
			continue
		}

		empty++
		if empty >= maxEmptyReads {
			return received, fmt.Errorf("receive data: %w", socket.NewError(socket.TransportFailure, "receive", io.ErrNoProgress))
		}
	}

	return received, nil
}

// ReceiveString performs one receive into a buffer of desiredSize bytes
// (DefaultReceiveStringSize when desiredSize <= 0) and returns the text up to
// the first NUL byte. When the buffer fills completely its last byte is
// dropped, so the result is always shorter than the buffer.
//
// Parameters:
//   - desiredSize: Buffer size in bytes
//
// Returns:
//   - The received text and any error from ReceiveData
func (c *NetClient) ReceiveString(desiredSize int) (string, error) {
	size := DefaultReceiveStringSize
	if desiredSize > 0 {
		size = desiredSize
	}

	buf := make([]byte, size)
	n, err := c.ReceiveData(buf, false)
	if n >= size {
		n = size - 1
	}

	return utils.ReadStringFromBytes(buf[:n]), err
}

// ReceiveLine reads one byte at a time until a newline and returns the line
// without it. Lines may be arbitrarily long. If the peer closes the
// connection after part of a line arrived, that part is returned with a nil
// error and the closure surfaces on the next call.
//
// Returns:
//   - The line content without the delimiter
//   - An error if nothing could be read
func (c *NetClient) ReceiveLine() (string, error) {
	var (
		line []byte
		b    [1]byte
	)

	for {
		if _, err := c.ReceiveData(b[:], true); err != nil {
			if len(line) > 0 && socket.IsConnectionClosed(err) {
				return string(line), nil
			}

			return string(line), err
		}

		if b[0] == '\n' {
			return string(line), nil
		}

		line = append(line, b[0])
	}
}

// ReceiveLines reads a line, then keeps reading lines for as long as the
// transport reports pending data. The returned slice and its strings belong
// to the caller; each call returns a fresh slice.
//
// Returns:
//   - The lines in arrival order, at least one on success
//   - The first error hit; lines read before it are still returned
func (c *NetClient) ReceiveLines() ([]string, error) {
	lines := make([]string, 0, initialLinesCapacity)
	for {
		line, err := c.ReceiveLine()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)

		pending, err := c.transport.HasData()
		if err != nil {
			return lines, fmt.Errorf("receive lines: %w", err)
		}

		if !pending {
			return lines, nil
		}
	}
}
