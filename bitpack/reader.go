package bitpack

import "fmt"

// Reader decodes a stream produced by Writer.
type Reader struct {
	data []byte
	pos  int // bit position
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Bits reads an n-bit field.
func (r *Reader) Bits(n uint) (uint32, error) {
	if r.pos+int(n) > len(r.data)*8 {
		return 0, fmt.Errorf("%w: need %d bits at %d", ErrUnexpectedEnd, n, r.pos)
	}
	var v uint32
	for i := uint(0); i < n; i++ {
		b := r.data[r.pos>>3] >> (7 - uint(r.pos&7)) & 1
		v = v<<1 | uint32(b)
		r.pos++
	}
	return v, nil
}

// Bool reads a single flag bit.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Bits(1)
	return v == 1, err
}

// Varuint reads a value written by Writer.Varuint.
func (r *Reader) Varuint() (uint32, error) {
	tag, err := r.Bits(2)
	if err != nil {
		return 0, err
	}
	switch tag {
	case 0:
		return 0, nil
	case 1:
		v, err := r.Bits(2)
		return v + 1, err
	case 2:
		v, err := r.Bits(5)
		return v + 5, err
	default:
		v, err := r.Bits(7)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return r.Bits(20)
		}
		return v + 37 - 1, nil
	}
}

// Remaining returns the number of unread bits, padding included.
func (r *Reader) Remaining() int {
	return len(r.data)*8 - r.pos
}
