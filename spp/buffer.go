package spp

import (
	"github.com/pkg/errors"
	"github.com/rigado/keyfob/sliceops"
)

// DefaultBufferSize is the transmit buffer capacity.
const DefaultBufferSize = 512

// ErrShortWrite is returned by Flush when the writer accepted nothing.
var ErrShortWrite = errors.New("spp write accepted no data")

// Writer sends bytes to the peer and returns how many it accepted.
type Writer interface {
	Write(p []byte) (int, error)
}

// Buffer is the transmit queue. Bytes leave from the front in the order
// they were appended. Not safe for concurrent use.
type Buffer struct {
	b      []byte
	length int
}

// NewBuffer returns an empty buffer holding up to size bytes.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{b: make([]byte, size)}
}

// Append formats one record for s at the tail. A record that doesn't fit
// is dropped and 0 is returned.
func (b *Buffer) Append(f Formatter, s Sample) int {
	n := f.Format(b.b[b.length:], s)
	if n < 0 || n > len(b.b)-b.length {
		return 0
	}
	b.length += n
	return n
}

// Flush writes the whole queued region. It returns the number of bytes
// the writer accepted and whether some were left behind. Accepted bytes
// are removed and the rest move to the front. When the writer accepts
// nothing the buffer is untouched and an error is returned.
func (b *Buffer) Flush(w Writer) (n int, partial bool, err error) {
	if b.length == 0 {
		return 0, false, nil
	}

	n, err = w.Write(b.b[:b.length])
	if err != nil {
		return n, false, errors.Wrap(err, "spp write")
	}
	if n <= 0 {
		return n, false, ErrShortWrite
	}
	if n > b.length {
		n = b.length
	}

	partial = n < b.length
	b.length = sliceops.ShiftLeft(b.b, b.length, n)
	return n, partial, nil
}

// Reset drops everything queued.
func (b *Buffer) Reset() {
	b.length = 0
}

// Len returns the number of queued bytes.
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.b)
}

// Bytes returns the queued bytes. The slice is only valid until the next
// call that changes the buffer.
func (b *Buffer) Bytes() []byte {
	return b.b[:b.length]
}
