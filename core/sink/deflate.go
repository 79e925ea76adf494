package sink

import (
	"compress/gzip"

	"github.com/bonimy/ibe/core/ibeerr"
)

// defaultDeflateChunk is the buffering granularity used when the caller
// doesn't request a different chunk size (8 KiB).
const defaultDeflateChunk = 8192

// DeflateSink wraps another Sink, gzip-framing (RFC 1952) everything
// written to it before forwarding fixed-size chunks downstream. Level is
// fixed at 1, favouring throughput over ratio.
type DeflateSink struct {
	inner     Sink
	chunkSize int
	buf       *chunkWriter
	gz        *gzip.Writer
}

// chunkWriter accumulates bytes from gzip.Writer and flushes them
// downstream in fixed-size chunks, so DeflateSink controls exactly how
// much buffering sits in front of the inner sink.
type chunkWriter struct {
	inner     Sink
	chunkSize int
	pending   []byte
	err       error
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.pending = append(c.pending, p...)
	for len(c.pending) >= c.chunkSize {
		if _, err := c.inner.Write(c.pending[:c.chunkSize]); err != nil {
			c.err = err
			return 0, err
		}
		c.pending = c.pending[c.chunkSize:]
	}
	return len(p), nil
}

func (c *chunkWriter) flushTail() error {
	if c.err != nil {
		return c.err
	}
	if len(c.pending) == 0 {
		return nil
	}
	_, err := c.inner.Write(c.pending)
	c.pending = nil
	return err
}

// NewDeflateSink wraps inner, buffering compressed output in chunks of
// chunkSize bytes before forwarding. A chunkSize <= 0 uses the 8 KiB
// default.
func NewDeflateSink(inner Sink, chunkSize int) *DeflateSink {
	if chunkSize <= 0 {
		chunkSize = defaultDeflateChunk
	}
	cw := &chunkWriter{inner: inner, chunkSize: chunkSize}
	gz, _ := gzip.NewWriterLevel(cw, gzip.BestSpeed)
	return &DeflateSink{inner: inner, chunkSize: chunkSize, buf: cw, gz: gz}
}

func (d *DeflateSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := d.gz.Write(p)
	if err != nil {
		return n, ibeerr.Internal(err)
	}
	if d.buf.err != nil {
		return n, ibeerr.Internal(d.buf.err)
	}
	return n, nil
}

// Finish drains the deflate state with a terminating flush, forwards the
// remaining bytes, then finishes the inner sink.
func (d *DeflateSink) Finish() error {
	if err := d.gz.Close(); err != nil {
		return ibeerr.Internal(err)
	}
	if err := d.buf.flushTail(); err != nil {
		return ibeerr.Internal(err)
	}
	return d.inner.Finish()
}
