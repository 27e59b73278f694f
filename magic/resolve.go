package magic

import "fmt"

// IndexLookup maps a builtin object id to its final index.
type IndexLookup func(id string) (int, bool)

// Resolver evaluates descriptors. The zero value resolves speculatively.
type Resolver struct {
	lookup IndexLookup
}

// Speculative returns a resolver for use before builtin indices exist.
// Index references fail with ErrUnresolved.
func Speculative() *Resolver {
	return &Resolver{}
}

// Final returns a resolver backed by the finalized object index table.
func Final(lookup IndexLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve evaluates d. A nil descriptor is zero.
func (r *Resolver) Resolve(d *Descriptor) (int, error) {
	if d == nil {
		return 0, nil
	}
	switch d.Kind {
	case KindPlain, "":
		if d.Value < PlainMin || d.Value > PlainMax {
			return 0, fmt.Errorf("%w: plain value %d", ErrOutOfRange, d.Value)
		}
		return d.Value, nil

	case KindBidx:
		if r.lookup == nil {
			return 0, fmt.Errorf("%w: %s", ErrUnresolved, d.ID)
		}
		idx, ok := r.lookup(d.ID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnresolved, d.ID)
		}
		return idx, nil

	case KindMathOneArg:
		return tableLookup(mathOneArg, d)
	case KindMathTwoArg:
		return tableLookup(mathTwoArg, d)
	case KindArrayIter:
		return tableLookup(arrayIter, d)

	case KindTypedArray:
		elem, ok := typedArrayElem[d.Elem]
		if !ok {
			return 0, fmt.Errorf("%w: typed array element %q", ErrUnknownName, d.Elem)
		}
		if d.Shift < 0 || d.Shift > typedArrayShiftMask {
			return 0, fmt.Errorf("%w: typed array shift %d", ErrOutOfRange, d.Shift)
		}
		return elem<<typedArrayElemShift | d.Shift, nil

	case KindBufferRead, KindBufferWrite:
		ft, ok := bufferField[d.Elem]
		if !ok {
			return 0, fmt.Errorf("%w: buffer field %q", ErrUnknownName, d.Elem)
		}
		v := ft & bufferFieldTypeMask
		if d.BigEndian {
			v |= bufferFlagBigEndian
		}
		if d.Signed {
			v |= bufferFlagSigned
		}
		if d.TypedArray {
			v |= bufferFlagTypedArray
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: type %q", ErrInvalid, d.Kind)
}

// Uint16 resolves d and converts the signed result to its unsigned 16-bit
// encoding, as stored in the packed form.
func (r *Resolver) Uint16(d *Descriptor) (uint32, error) {
	v, err := r.Resolve(d)
	if err != nil {
		return 0, err
	}
	return uint32(v) & 0xffff, nil
}

func tableLookup(table map[string]int, d *Descriptor) (int, error) {
	v, ok := table[d.FuncName]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownName, d.Kind, d.FuncName)
	}
	return v, nil
}
