// Copyright (c) 2020-2021 Shivaram Lingamneni
// released under the MIT license

package ircreader

import (
	"errors"
	"io"

	"golang.org/x/text/encoding"
)

var (
	ErrReadQ = errors.New("readQ exceeded (read too many bytes without terminating newline)")
)

// DefaultBufferSize is the receive buffer size used by NewIRCReader.
const DefaultBufferSize = 8192 + 1024

/*
Reader frames IRC lines out of a byte stream. Bytes read from the
connection stay in a RingBuffer until a line terminator arrives; each
complete line is then taken out of the ring and decoded with the configured
text encoding. Empty lines are discarded. A line that does not fit in the
ring fails with ErrReadQ.
*/
type Reader struct {
	conn io.Reader
	ring *RingBuffer
	// staging for connection reads and for lines taken out of the ring
	chunk   []byte
	decoder *encoding.Decoder
	eof     bool
}

// NewIRCReader returns a new *Reader with a sane buffer size that passes
// bytes through undecoded.
func NewIRCReader(conn io.Reader) *Reader {
	var reader Reader
	reader.Initialize(conn, DefaultBufferSize, nil)
	return &reader
}

// NewReader returns a new *Reader using a ring buffer of bufferSize bytes
// and decoding lines with enc (nil means no decoding).
func NewReader(conn io.Reader, bufferSize int, enc encoding.Encoding) *Reader {
	var reader Reader
	reader.Initialize(conn, bufferSize, enc)
	return &reader
}

// "Placement new" for a Reader.
func (cc *Reader) Initialize(conn io.Reader, bufferSize int, enc encoding.Encoding) {
	if enc == nil {
		enc = encoding.Nop
	}
	*cc = Reader{}
	cc.conn = conn
	cc.ring = NewRingBuffer(bufferSize)
	cc.chunk = make([]byte, cc.ring.Cap())
	cc.decoder = enc.NewDecoder()
}

// Blocks until a full, non-empty IRC line is read, then returns it without
// its terminator. Accepts either \n or \r\n as the line terminator. Passes
// through errors from the underlying connection; a partial line left at
// EOF is dropped.
func (cc *Reader) ReadLine() (string, error) {
	for {
		for {
			nlidx := cc.ring.IndexByte('\n')
			if nlidx == -1 {
				break
			}
			n, _ := cc.ring.Read(cc.chunk[:nlidx+1])
			raw := cc.chunk[:n-1]
			if 0 < len(raw) && raw[len(raw)-1] == '\r' {
				raw = raw[:len(raw)-1]
			}
			if len(raw) == 0 {
				continue
			}
			if line := cc.decode(raw); line != "" {
				return line, nil
			}
		}

		// a full ring with no terminator can never complete a line
		if cc.ring.Free() == 0 {
			return "", ErrReadQ
		}
		if cc.eof {
			return "", io.EOF
		}

		if err := cc.fill(); err != nil {
			return "", err
		}
	}
}

// fill reads once from the connection into the free part of the ring.
func (cc *Reader) fill() error {
	n, err := cc.conn.Read(cc.chunk[:cc.ring.Free()])
	if n != 0 {
		if _, werr := cc.ring.Write(cc.chunk[:n]); werr != nil {
			return werr
		}
	}
	if err == io.EOF {
		cc.eof = true
	} else if err != nil {
		return err
	}
	return nil
}

func (cc *Reader) decode(raw []byte) string {
	decoded, err := cc.decoder.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// Reset discards buffered data, including any partial line.
func (cc *Reader) Reset() {
	cc.ring.Reset()
	cc.eof = false
}
