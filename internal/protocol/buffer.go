// Package protocol implements the length-prefixed, XTEA-encrypted,
// Adler-32-checksummed wire codec shared by the login and game servers.
package protocol

import (
	"encoding/binary"

	"github.com/shadowot/realm/internal/apperr"
)

// MaxPacketSize is the largest declared outer frame length accepted (§4.1).
const MaxPacketSize = 24576

// PaddingByte is used to pad XTEA-framed payloads to a multiple of 8 bytes.
const PaddingByte = 0x33

// Reader provides checked, little-endian reads over a byte slice cursor.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading from offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail of the buffer without advancing the cursor.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

func (r *Reader) need(n int) error {
	if r.Len() < n {
		return apperr.BufferUnderflow(n, r.Len())
	}
	return nil
}

// U8 reads a single unsigned byte.
func (r *Reader) U8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// String reads a u16-length-prefixed byte string (no null terminator, §4.1).
func (r *Reader) String() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", apperr.InvalidString("string length exceeds remaining buffer")
	}
	return string(b), nil
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Writer accumulates a little-endian encoded packet payload.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// PutU8 appends a single byte.
func (w *Writer) PutU8(v byte) { w.buf = append(w.buf, v) }

// PutU16 appends a little-endian uint16.
func (w *Writer) PutU16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// PutU32 appends a little-endian uint32.
func (w *Writer) PutU32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutU64 appends a little-endian uint64.
func (w *Writer) PutU64(v uint64) {
	for i := 0; i < 8; i++ {
		w.buf = append(w.buf, byte(v>>(8*i)))
	}
}

// PutBytes appends raw bytes verbatim.
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutString appends a u16-length-prefixed byte string.
func (w *Writer) PutString(s string) {
	w.PutU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// PadTo8 pads the buffer with PaddingByte until its length is a multiple of 8.
func (w *Writer) PadTo8() {
	for len(w.buf)%8 != 0 {
		w.buf = append(w.buf, PaddingByte)
	}
}
