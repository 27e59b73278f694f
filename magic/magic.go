// Package magic resolves the symbolic per-function "magic" descriptors of
// builtin metadata into the small integers the runtime dispatches on.
//
// Resolution is staged. Speculative resolution runs before builtin indices
// exist and reports ErrUnresolved for index references; Final resolution
// runs after index assignment and must succeed for every descriptor.
package magic

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolved  = errors.New("magic references an unassigned builtin index")
	ErrOutOfRange  = errors.New("magic value out of range")
	ErrUnknownName = errors.New("unknown magic table entry")
	ErrInvalid     = errors.New("invalid magic descriptor")
)

// Kind selects the descriptor variant.
type Kind string

const (
	KindPlain       Kind = "plain"
	KindBidx        Kind = "bidx"
	KindMathOneArg  Kind = "math_onearg"
	KindMathTwoArg  Kind = "math_twoarg"
	KindArrayIter   Kind = "array_iter"
	KindTypedArray  Kind = "typedarray_constructor"
	KindBufferRead  Kind = "buffer_readfield"
	KindBufferWrite Kind = "buffer_writefield"
)

// Plain magic values are signed 16-bit.
const (
	PlainMin = -0x8000
	PlainMax = 0x7fff
)

// Descriptor is the symbolic form of a magic value as it appears in the
// metadata. A nil *Descriptor resolves to zero.
type Descriptor struct {
	Kind Kind `yaml:"type" json:"type" cbor:"type"`

	Value    int    `yaml:"value,omitempty" json:"value,omitempty" cbor:"value,omitempty"`
	ID       string `yaml:"id,omitempty" json:"id,omitempty" cbor:"id,omitempty"`
	FuncName string `yaml:"funcname,omitempty" json:"funcname,omitempty" cbor:"funcname,omitempty"`

	// Typed array and buffer field descriptors.
	Elem       string `yaml:"elem,omitempty" json:"elem,omitempty" cbor:"elem,omitempty"`
	Shift      int    `yaml:"shift,omitempty" json:"shift,omitempty" cbor:"shift,omitempty"`
	Signed     bool   `yaml:"signed,omitempty" json:"signed,omitempty" cbor:"signed,omitempty"`
	BigEndian  bool   `yaml:"bigendian,omitempty" json:"bigendian,omitempty" cbor:"bigendian,omitempty"`
	TypedArray bool   `yaml:"typedarray,omitempty" json:"typedarray,omitempty" cbor:"typedarray,omitempty"`
}

// Plain returns a literal descriptor.
func Plain(v int) *Descriptor {
	return &Descriptor{Kind: KindPlain, Value: v}
}

// Bidx returns a descriptor referencing a builtin object's index.
func Bidx(id string) *Descriptor {
	return &Descriptor{Kind: KindBidx, ID: id}
}

// References returns the builtin id a descriptor depends on, if any.
func (d *Descriptor) References() (string, bool) {
	if d == nil || d.Kind != KindBidx {
		return "", false
	}
	return d.ID, true
}

func (d *Descriptor) String() string {
	if d == nil {
		return "0"
	}
	switch d.Kind {
	case KindPlain:
		return fmt.Sprintf("%d", d.Value)
	case KindBidx:
		return "bidx:" + d.ID
	case KindTypedArray:
		return fmt.Sprintf("%s:%s<<%d", d.Kind, d.Elem, d.Shift)
	case KindBufferRead, KindBufferWrite:
		return fmt.Sprintf("%s:%s", d.Kind, d.Elem)
	default:
		return string(d.Kind) + ":" + d.FuncName
	}
}
