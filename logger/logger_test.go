package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}

	return entries
}

func TestNewZerologLogger(t *testing.T) {
	t.Run("adds service, level and fields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewZerologLogger(&buf, "netclient", zerolog.DebugLevel)

		l.Info("connected", Field{Key: "addr", Value: "127.0.0.1:3333"})

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "netclient", entries[0]["service"])
		assert.Equal(t, "info", entries[0]["level"])
		assert.Equal(t, "connected", entries[0]["message"])
		assert.Equal(t, "127.0.0.1:3333", entries[0]["addr"])
		assert.Contains(t, entries[0], "time")
	})

	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewZerologLogger(&buf, "svc", zerolog.WarnLevel)

		l.Debug("d")
		l.Info("i")
		l.Warn("w")
		l.Error("e")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 2)
		assert.Equal(t, "w", entries[0]["message"])
		assert.Equal(t, "e", entries[1]["message"])
	})
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewZerologLogger(&buf, "svc", zerolog.DebugLevel)
	child := parent.With(Field{Key: "session", Value: 7})

	child.Debug("child")
	parent.Debug("parent")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(7), entries[0]["session"])
	assert.NotContains(t, entries[1], "session")
	assert.NoError(t, child.Close())
}

func TestNewZerologFileLogger(t *testing.T) {
	t.Run("appends to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client.log")
		l, err := NewZerologFileLogger("svc", path, zerolog.InfoLevel)
		require.NoError(t, err)

		l.Info("hello")
		require.NoError(t, l.Close())
		assert.NoError(t, l.Close(), "close is idempotent")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
	})

	t.Run("bad path", func(t *testing.T) {
		_, err := NewZerologFileLogger("svc", filepath.Join(t.TempDir(), "missing", "x.log"), zerolog.InfoLevel)
		assert.Error(t, err)
	})
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotNil(t, l)
	l.Error("ignored", Field{Key: "k", Value: "v"})
	assert.NotNil(t, l.With(Field{Key: "k", Value: 1}))
	assert.NoError(t, l.Close())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)

	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestToMap(t *testing.T) {
	assert.Nil(t, toMap(nil))
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, toMap([]Field{{Key: "a", Value: 1}, {Key: "b", Value: "x"}}))
}
