package ircreader

import (
	"bytes"
	"errors"
)

var (
	// ErrBufferOverflow is returned when a write would overwrite data the
	// reader has not consumed yet. The buffer is too small for the input
	// rate, or the reader is not keeping up.
	ErrBufferOverflow = errors.New("ring buffer overflow (write would overwrite unread data)")
)

// RingBuffer is a fixed-capacity circular byte buffer with independent read
// and write cursors.
//
// It is intended for exactly one reader and one writer on the same
// goroutine and is not safe for concurrent use.
type RingBuffer struct {
	buf []byte
	// absolute byte counts; positions in buf are taken modulo len(buf)
	readPos  uint64
	writePos uint64
}

// NewRingBuffer returns an empty RingBuffer holding up to capacity bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}

// Len returns the number of bytes available to read.
func (rb *RingBuffer) Len() int {
	return int(rb.writePos - rb.readPos)
}

// Free returns the number of bytes that can be written without overflowing.
func (rb *RingBuffer) Free() int {
	return len(rb.buf) - rb.Len()
}

// Write copies p into the buffer. Either all of p is written, or nothing is
// and ErrBufferOverflow is returned.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	if len(p) > rb.Free() {
		return 0, ErrBufferOverflow
	}

	capacity := uint64(len(rb.buf))
	start := int(rb.writePos % capacity)
	n := copy(rb.buf[start:], p)
	if n < len(p) {
		// wrapped around the end of the buffer
		copy(rb.buf, p[n:])
	}
	rb.writePos += uint64(len(p))
	return len(p), nil
}

// Read copies up to len(p) unread bytes into p and advances the read
// cursor. It returns 0 when the buffer is empty.
func (rb *RingBuffer) Read(p []byte) (int, error) {
	count := rb.Len()
	if len(p) < count {
		count = len(p)
	}
	if count == 0 {
		return 0, nil
	}

	capacity := uint64(len(rb.buf))
	start := int(rb.readPos % capacity)
	n := copy(p[:count], rb.buf[start:])
	if n < count {
		copy(p[n:count], rb.buf)
	}
	rb.readPos += uint64(count)
	return count, nil
}

// unread returns the unread data as at most two contiguous slices of the
// underlying buffer, in order.
func (rb *RingBuffer) unread() (first, second []byte) {
	count := rb.Len()
	if count == 0 {
		return nil, nil
	}
	start := int(rb.readPos % uint64(len(rb.buf)))
	if start+count <= len(rb.buf) {
		return rb.buf[start : start+count], nil
	}
	return rb.buf[start:], rb.buf[:start+count-len(rb.buf)]
}

// IndexByte returns the offset from the read cursor of the first unread c,
// or -1 if there is none.
func (rb *RingBuffer) IndexByte(c byte) int {
	first, second := rb.unread()
	if i := bytes.IndexByte(first, c); i != -1 {
		return i
	}
	if i := bytes.IndexByte(second, c); i != -1 {
		return len(first) + i
	}
	return -1
}

// Reset discards all unread data.
func (rb *RingBuffer) Reset() {
	rb.readPos = 0
	rb.writePos = 0
}
