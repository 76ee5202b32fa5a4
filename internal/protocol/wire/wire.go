// Package wire provides cursors over the fixed-width and length-prefixed
// byte layouts the device speaks. All integers are big-endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PrefixLen is the width of a length prefix.
const PrefixLen = 2

// MaxPrefixed is the largest value a 16-bit length prefix can describe.
const MaxPrefixed = 0xffff

var (
	ErrShortBuffer  = errors.New("wire: short buffer")
	ErrTooLong      = errors.New("wire: value exceeds prefix range")
	ErrWidth        = errors.New("wire: fixed-width value has wrong length")
	ErrCountOverrun = errors.New("wire: element count exceeds one byte")
)

// Writer appends fields to one flat buffer. The first failing call is
// remembered and every later call becomes a no-op; check Err once.
type Writer struct {
	buf []byte
	err error
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) U8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// Count writes n as a one-byte element count.
func (w *Writer) Count(n int) {
	if w.err != nil {
		return
	}
	if n < 0 || n > 0xff {
		w.err = fmt.Errorf("%w: %d", ErrCountOverrun, n)
		return
	}
	w.buf = append(w.buf, byte(n))
}

// Raw appends b without any framing.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}

// Fixed appends b, which must be exactly width bytes.
func (w *Writer) Fixed(b []byte, width int) {
	if w.err != nil {
		return
	}
	if len(b) != width {
		w.err = fmt.Errorf("%w: got %d want %d", ErrWidth, len(b), width)
		return
	}
	w.buf = append(w.buf, b...)
}

// Prefixed appends a 16-bit length followed by b.
func (w *Writer) Prefixed(b []byte) {
	if w.err != nil {
		return
	}
	if len(b) > MaxPrefixed {
		w.err = fmt.Errorf("%w: %d bytes", ErrTooLong, len(b))
		return
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Err() error { return w.err }

// Bytes returns the buffer, or the first error recorded.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Reader walks a buffer front to back. Every read is bounds-checked
// against the remaining bytes; returned slices are copies.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) Pos() int { return r.pos }

func (r *Reader) U8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: u8 at offset %d", ErrShortBuffer, r.pos)
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, fmt.Errorf("%w: u16 at offset %d", ErrShortBuffer, r.pos)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// Take returns the next n bytes.
func (r *Reader) Take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d at offset %d, have %d", ErrShortBuffer, n, r.pos, r.Remaining())
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Prefixed reads a 16-bit length and then that many bytes.
func (r *Reader) Prefixed() ([]byte, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	return r.Take(int(n))
}

// Rest returns every remaining byte.
func (r *Reader) Rest() []byte {
	out, _ := r.Take(r.Remaining())
	return out
}
