package ircreader

import (
	"bytes"
	"testing"
)

func TestRingBufferLength(t *testing.T) {
	rb := NewRingBuffer(16)
	n, err := rb.Write([]byte("0123456789abcdef"))
	assertEqual(n, 16)
	assertEqual(err, nil)
	assertEqual(rb.Len(), 16)
	assertEqual(rb.Free(), 0)
}

func TestRingBufferOverflow(t *testing.T) {
	rb := NewRingBuffer(8)
	if _, err := rb.Write([]byte("12345")); err != nil {
		t.Fatal(err)
	}
	if _, err := rb.Write([]byte("6789")); err != ErrBufferOverflow {
		t.Errorf("expected overflow, got %v", err)
	}
	// the failed write must not have touched the unread data
	out := make([]byte, 8)
	n, _ := rb.Read(out)
	assertEqual(string(out[:n]), "12345")

	if _, err := NewRingBuffer(4).Write([]byte("12345")); err != ErrBufferOverflow {
		t.Errorf("expected overflow for oversized write, got %v", err)
	}
}

func TestRingBufferWraparound(t *testing.T) {
	rb := NewRingBuffer(7)
	var written, read bytes.Buffer
	out := make([]byte, 5)
	for i := 0; i < 100; i++ {
		chunk := []byte{byte(i), byte(i + 1), byte(i + 2)}[:1+i%3]
		if rb.Free() >= len(chunk) {
			if _, err := rb.Write(chunk); err != nil {
				t.Fatal(err)
			}
			written.Write(chunk)
		}
		n, _ := rb.Read(out[:1+i%5])
		read.Write(out[:n])
	}
	for rb.Len() > 0 {
		n, _ := rb.Read(out)
		read.Write(out[:n])
	}
	if !bytes.Equal(written.Bytes(), read.Bytes()) {
		t.Errorf("byte order not preserved:\n%v\n%v", written.Bytes(), read.Bytes())
	}
}

func TestRingBufferReadEmpty(t *testing.T) {
	rb := NewRingBuffer(4)
	n, err := rb.Read(make([]byte, 4))
	assertEqual(n, 0)
	assertEqual(err, nil)

	rb.Write([]byte("ab"))
	rb.Reset()
	assertEqual(rb.Len(), 0)
}

func TestRingBufferIndexByte(t *testing.T) {
	rb := NewRingBuffer(8)
	assertEqual(rb.IndexByte('\n'), -1)

	rb.Write([]byte("abcdef"))
	out := make([]byte, 5)
	rb.Read(out)
	// "f" sits at offset 5, "gh\nij" wraps to offsets 6, 7, 0, 1, 2
	rb.Write([]byte("gh\nij"))
	assertEqual(rb.IndexByte('f'), 0)
	assertEqual(rb.IndexByte('\n'), 3)
	assertEqual(rb.IndexByte('j'), 5)
	assertEqual(rb.IndexByte('a'), -1)
}
