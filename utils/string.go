// Package utils provides byte and string helpers shared by the client and the
// line server.
package utils

import "bytes"

// ReadStringFromBytes interprets the byte slice as a NUL-terminated string.
// It returns the text up to the first 0x00 byte, or the entire buffer if no
// NUL byte is present.
//
// Parameters:
//   - buffer: The received bytes
//
// Returns:
//   - The string content before the first NUL byte, or the whole buffer as a string
func ReadStringFromBytes(buffer []byte) string {
	if i := bytes.IndexByte(buffer, 0); i >= 0 {
		return string(buffer[:i])
	}

	return string(buffer)
}

// TrimLineEnding removes one trailing "\n" and, before it, one "\r".
//
// Parameters:
//   - line: A line as read from the wire
//
// Returns:
//   - The line content without its terminator
func TrimLineEnding(line string) string {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}

	return line[:n]
}
