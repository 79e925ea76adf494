package sink

import (
	"fmt"
	"io"

	"github.com/bonimy/ibe/core/ibeerr"
)

// ChunkedSink frames writes as HTTP/1.1 chunked transfer-encoding
// ("%x\r\n" + payload + "\r\n" per chunk). The target is any io.Writer,
// typically an http.ResponseWriter with chunked transfer encoding
// negotiated by the host.
type ChunkedSink struct {
	w io.Writer
}

// NewChunkedSink wraps w, emitting chunk framing around every write.
func NewChunkedSink(w io.Writer) *ChunkedSink {
	return &ChunkedSink{w: w}
}

func (c *ChunkedSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(p)); err != nil {
		return 0, ibeerr.Internal(err)
	}
	if _, err := c.w.Write(p); err != nil {
		return 0, ibeerr.Internal(err)
	}
	if _, err := io.WriteString(c.w, "\r\n"); err != nil {
		return 0, ibeerr.Internal(err)
	}
	return len(p), nil
}

func (c *ChunkedSink) Finish() error {
	if _, err := io.WriteString(c.w, "0\r\n\r\n"); err != nil {
		return ibeerr.Internal(err)
	}
	if f, ok := c.w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// flusher matches http.Flusher without importing net/http from a package
// that has no other reason to depend on it.
type flusher interface {
	Flush()
}
