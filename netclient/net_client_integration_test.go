package netclient

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/go-netclient/lineserver"
	"github.com/cyberinferno/go-netclient/socket"
)

func startLineServer(t *testing.T, handler lineserver.LineHandler) (string, uint16) {
	t.Helper()

	srv := lineserver.NewLineServer("peer", "127.0.0.1:0", handler, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	addr := srv.ListenAddr().(*net.TCPAddr)
	return addr.IP.String(), uint16(addr.Port)
}

func connectClient(t *testing.T, host string, port uint16) *NetClient {
	t.Helper()

	cfg := DefaultNetClientConfig(host, port)
	cfg.NoDelay = true
	cfg.PendingDataWait = 100 * time.Millisecond
	c := NewNetClient(cfg, nil)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNetClient_Connect(t *testing.T) {
	t.Run("refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := uint16(ln.Addr().(*net.TCPAddr).Port)
		require.NoError(t, ln.Close())

		c := NewNetClient(DefaultNetClientConfig("127.0.0.1", port), nil)
		err = c.Connect()
		assert.ErrorIs(t, err, socket.ErrConnectFailure)
		assert.NotEmpty(t, c.ErrorReason())
		assert.NoError(t, c.Close())
	})

	t.Run("options on a live connection", func(t *testing.T) {
		host, port := startLineServer(t, nil)
		c := connectClient(t, host, port)

		assert.NoError(t, c.SetSocketOption(socket.KeepAlive, true))
		assert.Empty(t, c.ErrorReason())
	})
}

func TestNetClient_roundTrip(t *testing.T) {
	host, port := startLineServer(t, lineserver.Echo())
	c := connectClient(t, host, port)

	n, err := c.SendString("abc\ndef\n")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	line, err := c.ReceiveLine()
	require.NoError(t, err)
	assert.Equal(t, "abc", line)

	line, err = c.ReceiveLine()
	require.NoError(t, err)
	assert.Equal(t, "def", line)

	_, err = c.SendString("xyz\n")
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err = c.ReceiveData(buf, true)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "xyz\n", string(buf))
}

func TestNetClient_ReceiveLines_overSocket(t *testing.T) {
	host, port := startLineServer(t, lineserver.Repeat(20))
	c := connectClient(t, host, port)

	_, err := c.SendString("ping\n")
	require.NoError(t, err)

	lines, err := c.ReceiveLines()
	require.NoError(t, err)
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.Equal(t, "ping", line)
	}

	pending, err := c.HasData()
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestNetClient_largeTransfer(t *testing.T) {
	host, port := startLineServer(t, lineserver.Echo())
	c := connectClient(t, host, port)

	payload := strings.Repeat("0123456789abcdef", 1<<14)

	n, err := c.SendString(payload + "\n")
	require.NoError(t, err)
	require.Equal(t, len(payload)+1, n)

	buf := make([]byte, len(payload)+1)
	n, err = c.ReceiveData(buf, true)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, payload+"\n", string(buf))
}

func TestNetClient_peerClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var g errgroup.Group
	g.Go(func() error {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(conn, "last words\nno newline")
		_ = conn.Close()
		return err
	})

	addr := ln.Addr().(*net.TCPAddr)
	c := connectClient(t, addr.IP.String(), uint16(addr.Port))
	require.NoError(t, g.Wait())

	line, err := c.ReceiveLine()
	require.NoError(t, err)
	assert.Equal(t, "last words", line)

	line, err = c.ReceiveLine()
	require.NoError(t, err)
	assert.Equal(t, "no newline", line)

	_, err = c.ReceiveLine()
	assert.ErrorIs(t, err, socket.ErrConnectionClosed)
	assert.NotErrorIs(t, err, socket.ErrTransportFailure)
}
