package utils

// JoinBytes concatenates the given byte slices into a single new slice.
//
// Parameters:
//   - s: One or more byte slices to concatenate
//
// Returns:
//   - A new byte slice containing all input slices in order
func JoinBytes(s ...[]byte) []byte {
	n := 0
	for _, v := range s {
		n += len(v)
	}

	b := make([]byte, 0, n)
	for _, v := range s {
		b = append(b, v...)
	}

	return b
}

// FrameLines renders each line followed by a newline into one buffer, ready
// to be written with a single call.
//
// Parameters:
//   - lines: Lines without terminators
//
// Returns:
//   - The framed bytes; empty when lines is empty
func FrameLines(lines []string) []byte {
	parts := make([][]byte, 0, len(lines)*2)
	for _, line := range lines {
		parts = append(parts, []byte(line), newline)
	}

	return JoinBytes(parts...)
}

var newline = []byte{'\n'}
