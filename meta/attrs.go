package meta

import (
	"fmt"
	"strings"
)

// Attrs holds property attribute bits. Bit values match the runtime's
// property descriptor flags.
type Attrs uint8

const (
	AttrWritable     Attrs = 1 << 0
	AttrEnumerable   Attrs = 1 << 1
	AttrConfigurable Attrs = 1 << 2
	AttrAccessor     Attrs = 1 << 3

	AttrMask Attrs = AttrWritable | AttrEnumerable | AttrConfigurable | AttrAccessor
)

// Default attribute sets.
const (
	DefaultDataAttrs     = AttrWritable | AttrConfigurable
	DefaultFuncAttrs     = AttrWritable | AttrConfigurable
	DefaultLengthAttrs   = AttrConfigurable
	DefaultAccessorAttrs = AttrConfigurable | AttrAccessor
)

// ParseAttrs parses the metadata letter form ("wec", "c", "a", "").
func ParseAttrs(s string) (Attrs, error) {
	var a Attrs
	for _, r := range s {
		var bit Attrs
		switch r {
		case 'w':
			bit = AttrWritable
		case 'e':
			bit = AttrEnumerable
		case 'c':
			bit = AttrConfigurable
		case 'a':
			bit = AttrAccessor
		default:
			return 0, fmt.Errorf("%w: unsupported attribute %q in %q", ErrSchema, r, s)
		}
		if a&bit != 0 {
			return 0, fmt.Errorf("%w: duplicate attribute %q in %q", ErrSchema, r, s)
		}
		a |= bit
	}
	return a, nil
}

// Has reports whether all bits of b are set.
func (a Attrs) Has(b Attrs) bool {
	return a&b == b
}

func (a Attrs) String() string {
	var sb strings.Builder
	if a.Has(AttrWritable) {
		sb.WriteByte('w')
	}
	if a.Has(AttrEnumerable) {
		sb.WriteByte('e')
	}
	if a.Has(AttrConfigurable) {
		sb.WriteByte('c')
	}
	if a.Has(AttrAccessor) {
		sb.WriteByte('a')
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (a Attrs) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Attrs) UnmarshalText(b []byte) error {
	v, err := ParseAttrs(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
