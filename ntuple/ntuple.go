// Package ntuple produces overlapping fixed-width windows (character n-grams) from a byte stream.
package ntuple

import (
	"io"

	"github.com/pkg/errors"
)

const bufSz = 64 * 1024

// A Reader produces subsequent substrings of a predefined length from an io.Reader:
//
//	r := New(bytes.NewBufferString("123456"))
//	buf := make([]byte, 3)
//
//	// Each call to r.Next(buf) will fill buf with the following contents
//	"123"
//	"234"
//	"345"
//	"456"
type Reader struct {
	buf []byte
	in  io.Reader
	eof bool
}

// New creates a Reader with the given input.
func New(in io.Reader) *Reader {
	return &Reader{
		in: in,
	}
}

// fill reads from the underlying reader until at least n bytes are buffered or the input is exhausted.
func (r *Reader) fill(n int) error {
	for len(r.buf) < n && !r.eof {
		if cap(r.buf)-len(r.buf) < bufSz {
			grown := make([]byte, len(r.buf), len(r.buf)+bufSz)
			copy(grown, r.buf)
			r.buf = grown
		}

		m, err := r.in.Read(r.buf[len(r.buf):cap(r.buf)])
		r.buf = r.buf[:len(r.buf)+m]

		if errors.Is(err, io.EOF) {
			r.eof = true
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading from underlying after %d bytes", m)
		}
	}

	return nil
}

// skip reports whether b must not appear in a window: ASCII control bytes and bytes
// that never occur in valid UTF-8 (0xC0, 0xC1 and 0xF5 to 0xFF).
func skip(b byte) bool {
	return b < 0x20 || b == 0xC0 || b == 0xC1 || b >= 0xF5
}

// Next fills d with the next window of len(d) bytes from r's input. Next returns io.EOF
// when the input has been exhausted and passes on all other errors of the underlying
// reader. Windows containing a byte rejected by skip are left out.
func (r *Reader) Next(d []byte) error {
	if len(d) == 0 {
		return errors.New("zero-length window")
	}

	for {
		err := r.fill(len(d))
		if err != nil {
			return err
		}

		if len(r.buf) < len(d) {
			return io.EOF
		}

		bad := -1
		for idx := len(d) - 1; idx >= 0; idx-- {
			if skip(r.buf[idx]) {
				bad = idx
				break
			}
		}

		if bad >= 0 {
			// No window starting at or before bad can be used
			r.buf = r.buf[bad+1:]
			continue
		}

		copy(d, r.buf[:len(d)])
		r.buf = r.buf[1:]

		return nil
	}
}
