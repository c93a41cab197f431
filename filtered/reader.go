// Package filtered normalizes text before it is split into tokens.
//
// A Reader lowercases its input and collapses every run of punctuation or symbols
// into '!', every run of digits into '#', every run of control bytes or invalid
// UTF-8 into '*' and every run of whitespace into a single ' '.
package filtered

import (
	"bytes"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type ReaderState int

const (
	StateNormal ReaderState = iota
	StatePunct
	StateNumber
	StateSeparator
	StateError
)

func (fs ReaderState) String() string {
	switch fs {
	case StateNormal:
		return "Normal"
	case StatePunct:
		return "Punctuation"
	case StateNumber:
		return "Number"
	case StateSeparator:
		return "Separator"
	case StateError:
		return "Error"
	default:
		panic("unexpected state: " + strconv.Itoa(int(fs)))
	}
}

type Reader struct {
	r io.Reader
	s ReaderState

	in      []byte       // scratch space for reads from r
	pending []byte       // incomplete rune at the end of the last read
	out     bytes.Buffer // normalized bytes not yet returned
	err     error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: r,
		s: StateNormal,
	}
}

// State returns the class of the last rune written.
func (fr *Reader) State() ReaderState {
	return fr.s
}

func (fr *Reader) step(next ReaderState) bool {
	rv := fr.s == next
	fr.s = next
	return rv
}

func (fr *Reader) emit(r rune, class ReaderState, repl byte) {
	if class == StateNormal {
		fr.step(StateNormal)

		var enc [utf8.UTFMax]byte
		n := utf8.EncodeRune(enc[:], unicode.ToLower(r))
		fr.out.Write(enc[:n])

		return
	}

	if fr.step(class) {
		// Already inside a run of this class
		return
	}

	fr.out.WriteByte(repl)
}

func (fr *Reader) normalize(data []byte, final bool) {
	for len(data) > 0 {
		if !final && !utf8.FullRune(data) {
			fr.pending = append(fr.pending[:0], data...)
			return
		}

		r, sz := utf8.DecodeRune(data)
		if r == utf8.RuneError {
			sz = 1 // Force skip, even if the rune is short
		}
		data = data[sz:]

		switch {
		case r == utf8.RuneError || unicode.IsControl(r) && !unicode.IsSpace(r):
			fr.emit(r, StateError, '*')
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsMark(r):
			fr.emit(r, StatePunct, '!')
		case unicode.IsNumber(r):
			fr.emit(r, StateNumber, '#')
		case unicode.IsSpace(r):
			fr.emit(r, StateSeparator, ' ')
		default:
			fr.emit(r, StateNormal, 0)
		}
	}

	fr.pending = fr.pending[:0]
}

func (fr *Reader) Read(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	for fr.out.Len() == 0 && fr.err == nil {
		if len(fr.in) < len(data)+utf8.UTFMax {
			fr.in = make([]byte, len(data)+utf8.UTFMax)
		}

		n := copy(fr.in, fr.pending)
		m, err := fr.r.Read(fr.in[n:])
		fr.err = err

		fr.normalize(fr.in[:n+m], err != nil)
	}

	if fr.out.Len() > 0 {
		return fr.out.Read(data)
	}

	return 0, fr.err
}
