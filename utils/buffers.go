package utils

import "io"

// RW composes a separate Reader and Writer into one io.ReadWriter, used by
// the WebSocket server handshake to read from a reader that still has
// buffered handshake bytes in front of the raw connection.
type RW struct {
	io.Reader
	io.Writer
}
