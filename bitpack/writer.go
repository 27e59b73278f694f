// Package bitpack implements the bit stream primitives used by the packed
// builtin form: fixed-width fields, the tiered variable-width unsigned
// integer, and the 5-bit string compressor.
//
// Bits are written most significant bit first. The final byte is padded
// with zero bits.
package bitpack

import (
	"errors"
	"fmt"
)

var (
	ErrVaruintRange  = errors.New("varuint out of range")
	ErrFieldRange    = errors.New("value does not fit in field")
	ErrStringTooLong = errors.New("string too long for bit packing")
	ErrUnexpectedEnd = errors.New("unexpected end of bit stream")
	ErrInvalidSymbol = errors.New("invalid packed string symbol")
)

// VaruintMax is the largest value the 20-bit fallback tier can carry.
const VaruintMax = 1<<20 - 1

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer accumulates a bit stream.
type Writer struct {
	buf   []byte
	cur   byte
	nbits uint // bits pending in cur
	total int
}

// NewWriter creates an empty bit writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bits appends the low n bits of v. n must be at most 32.
func (w *Writer) Bits(v uint32, n uint) error {
	if n > 32 {
		return fmt.Errorf("%w: width %d", ErrFieldRange, n)
	}
	if n < 32 && v>>n != 0 {
		return fmt.Errorf("%w: %d in %d bits", ErrFieldRange, v, n)
	}
	for i := int(n) - 1; i >= 0; i-- {
		w.bit(byte(v>>uint(i)) & 1)
	}
	return nil
}

// Bool appends a single flag bit.
func (w *Writer) Bool(b bool) {
	if b {
		w.bit(1)
	} else {
		w.bit(0)
	}
}

func (w *Writer) bit(b byte) {
	w.cur = w.cur<<1 | b
	w.nbits++
	w.total++
	if w.nbits == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.nbits = 0
	}
}

// Byte appends an 8-bit field.
func (w *Writer) Byte(b byte) {
	_ = w.Bits(uint32(b), 8)
}

// Raw appends every byte of data as an 8-bit field.
func (w *Writer) Raw(data []byte) {
	for _, b := range data {
		w.Byte(b)
	}
}

// Varuint appends v using the tiered encoding tuned for small values:
//
//	00                  0
//	01 xx               1..4
//	10 xxxxx            5..36
//	11 xxxxxxx          37..163 (payload 1..127)
//	11 0000000 x{20}    anything else up to VaruintMax
func (w *Writer) Varuint(v uint32) error {
	switch {
	case v == 0:
		return w.Bits(0, 2)
	case v <= 4:
		w.Bits(1, 2)
		return w.Bits(v-1, 2)
	case v <= 36:
		w.Bits(2, 2)
		return w.Bits(v-5, 5)
	case v <= 163:
		w.Bits(3, 2)
		return w.Bits(v-37+1, 7)
	case v <= VaruintMax:
		w.Bits(3, 2)
		w.Bits(0, 7)
		return w.Bits(v, 20)
	default:
		return fmt.Errorf("%w: %d", ErrVaruintRange, v)
	}
}

// Len returns the number of bits written so far.
func (w *Writer) Len() int {
	return w.total
}

// Bytes returns the stream padded to a byte boundary. The writer remains
// usable; later writes continue from the unpadded position.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf), len(w.buf)+1)
	copy(out, w.buf)
	if w.nbits > 0 {
		out = append(out, w.cur<<(8-w.nbits))
	}
	return out
}
