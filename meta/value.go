package meta

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/builtingen/magic"
	"go.yaml.in/yaml/v3"
)

// ValueKind discriminates Value.
type ValueKind uint8

const (
	ValueUndefined ValueKind = iota
	ValueNull
	ValueBoolean
	ValueNumber
	ValueString
	ValueObject
	ValueAccessor
	ValueLightfunc

	// Shorthand kinds. Expansion replaces them before the document leaves
	// the metadata pipeline.
	ValueFunction
	ValueStructured
)

var valueKindNames = [...]string{
	"undefined", "null", "boolean", "number", "string", "object",
	"accessor", "lightfunc", "function", "structured",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is a property value.
type Value struct {
	Kind ValueKind

	Bool   bool
	Number float64
	// Raw holds explicit big-endian IEEE-754 bytes for numbers whose bit
	// pattern must be preserved (NaN payloads, negative zero).
	Raw []byte
	Str string

	// ValueObject target; ValueAccessor getter/setter targets (either may
	// be empty).
	ID     string
	Getter string
	Setter string

	Func       *FuncShorthand
	Accessor   *AccessorShorthand
	Lightfunc  *Lightfunc
	Structured *yaml.Node
}

// FuncShorthand is an inline function declaration.
type FuncShorthand struct {
	Native        string            `yaml:"native"`
	Length        int               `yaml:"length"`
	Nargs         *int              `yaml:"nargs"`
	Varargs       bool              `yaml:"varargs"`
	Magic         *magic.Descriptor `yaml:"magic"`
	Name          *string           `yaml:"name"`
	Callable      *bool             `yaml:"callable"`
	Constructable bool              `yaml:"constructable"`
	SpecialCall   bool              `yaml:"special_call"`
}

// AccessorShorthand declares getter and setter natives inline.
type AccessorShorthand struct {
	Getter      string            `yaml:"getter"`
	Setter      string            `yaml:"setter"`
	GetterNargs int               `yaml:"getter_nargs"`
	SetterNargs int               `yaml:"setter_nargs"`
	GetterMagic *magic.Descriptor `yaml:"getter_magic"`
	SetterMagic *magic.Descriptor `yaml:"setter_magic"`
}

// Lightfunc is the compact inline callable form.
type Lightfunc struct {
	Native  string `yaml:"native" json:"native" cbor:"native"`
	Length  int    `yaml:"length" json:"length" cbor:"length"`
	Nargs   int    `yaml:"nargs" json:"nargs" cbor:"nargs"`
	Varargs bool   `yaml:"varargs" json:"varargs,omitempty" cbor:"varargs,omitempty"`
	Magic   int    `yaml:"magic" json:"magic,omitempty" cbor:"magic,omitempty"`
}

// Lightfunc field limits.
const (
	LightfuncNargsMax    = 14
	LightfuncNargsVararg = 15
	LightfuncLengthMax   = 15
	LightfuncMagicMin    = -0x80
	LightfuncMagicMax    = 0x7f
)

// Flags packs the lightfunc fields into the runtime's 16-bit flags word:
// magic in bits 8..15, length in bits 4..7, nargs in bits 0..3.
func (lf *Lightfunc) Flags() uint16 {
	nargs := lf.Nargs
	if lf.Varargs {
		nargs = LightfuncNargsVararg
	}
	return uint16(lf.Magic&0xff)<<8 | uint16(lf.Length&0x0f)<<4 | uint16(nargs&0x0f)
}

// Constructors for canonical values.

func Undefined() Value { return Value{Kind: ValueUndefined} }
func Null() Value { return Value{Kind: ValueNull} }
func Bool(b bool) Value { return Value{Kind: ValueBoolean, Bool: b} }
func Number(f float64) Value { return Value{Kind: ValueNumber, Number: f} }
func Str(s string) Value { return Value{Kind: ValueString, Str: s} }
func ObjectRef(id string) Value { return Value{Kind: ValueObject, ID: id} }
func AccessorRef(get, set string) Value {
	return Value{Kind: ValueAccessor, Getter: get, Setter: set}
}

// IsShorthand reports whether the value still needs expansion.
func (v Value) IsShorthand() bool {
	switch v.Kind {
	case ValueFunction, ValueStructured:
		return true
	case ValueAccessor:
		return v.Accessor != nil
	}
	return false
}

// Int returns the value as an integer when it is an integral number.
func (v Value) Int() (int, bool) {
	if v.Kind != ValueNumber || v.Raw != nil {
		return 0, false
	}
	if v.Number != math.Trunc(v.Number) || math.IsInf(v.Number, 0) {
		return 0, false
	}
	return int(v.Number), true
}

// References calls fn for every object id the value points at.
func (v Value) References(fn func(id string)) {
	switch v.Kind {
	case ValueObject:
		fn(v.ID)
	case ValueAccessor:
		if v.Getter != "" {
			fn(v.Getter)
		}
		if v.Setter != "" {
			fn(v.Setter)
		}
	}
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// ByteOrder selects the in-memory layout of IEEE-754 doubles on the target.
type ByteOrder string

const (
	BigEndian    ByteOrder = "big"
	LittleEndian ByteOrder = "little"
	// MixedEndian is the middle-endian layout of some ARM FPA targets: two
	// little-endian 32-bit halves, high word first.
	MixedEndian ByteOrder = "mixed"
)

// ByteOrders lists every supported order in emission order.
var ByteOrders = []ByteOrder{LittleEndian, BigEndian, MixedEndian}

var byteOrderIndex = map[ByteOrder][8]int{
	BigEndian:    {0, 1, 2, 3, 4, 5, 6, 7},
	LittleEndian: {7, 6, 5, 4, 3, 2, 1, 0},
	MixedEndian:  {3, 2, 1, 0, 7, 6, 5, 4},
}

// ParseByteOrder validates a byte order name.
func ParseByteOrder(s string) (ByteOrder, error) {
	o := ByteOrder(s)
	if _, ok := byteOrderIndex[o]; !ok {
		return "", fmt.Errorf("%w: unknown byte order %q", ErrSchema, s)
	}
	return o, nil
}

// DoubleBytes returns the big-endian IEEE-754 bytes of a number value.
func (v Value) DoubleBytes() [8]byte {
	var b [8]byte
	if len(v.Raw) == 8 {
		copy(b[:], v.Raw)
		return b
	}
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Number))
	return b
}

// Reorder converts big-endian double bytes into the target layout.
func (o ByteOrder) Reorder(be [8]byte) [8]byte {
	idx, ok := byteOrderIndex[o]
	if !ok {
		idx = byteOrderIndex[BigEndian]
	}
	var out [8]byte
	for i := range out {
		out[i] = be[idx[i]]
	}
	return out
}
