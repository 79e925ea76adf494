package sink

import (
	"errors"
	"math"

	"github.com/bonimy/ibe/core/ibeerr"
)

var errTooMuchData = errors.New("too much data to buffer in memory")

const defaultMemoryCapacity = 1024 * 1024

// MemorySink buffers everything written to it in memory, doubling its
// capacity as needed: same starting capacity (1 MiB), same doubling
// growth, same overflow guard as MemoryWriter.
type MemorySink struct {
	buf []byte
	cap int
}

// NewMemorySink returns a MemorySink with the default starting capacity.
func NewMemorySink() *MemorySink {
	return &MemorySink{buf: make([]byte, 0, defaultMemoryCapacity), cap: defaultMemoryCapacity}
}

func (m *MemorySink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	newLen := len(m.buf) + len(p)
	if newLen < len(m.buf) || newLen > math.MaxInt32 {
		return 0, ibeerr.Internal(errTooMuchData)
	}
	if newLen > m.cap {
		c := m.cap
		for c < newLen && c <= math.MaxInt32/2 {
			c *= 2
		}
		if c < newLen {
			c = newLen
		}
		grown := make([]byte, len(m.buf), c)
		copy(grown, m.buf)
		m.buf = grown
		m.cap = c
	}
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *MemorySink) Finish() error {
	return nil
}

// Bytes returns the content written so far. The slice is owned by the
// sink; callers must not retain it past another Write call.
func (m *MemorySink) Bytes() []byte {
	return m.buf
}

// BytesWritten returns the total number of bytes written so far.
func (m *MemorySink) BytesWritten() int {
	return len(m.buf)
}
