package graph

import (
	"github.com/chazu/builtingen/meta"
)

// Packed function property limits: length and nargs are 3-bit fields and
// nargs value 7 marks varargs.
const (
	PackedLengthMax = 7
	PackedNargsMax  = 6
)

// FuncPropEligible reports whether the object a property named key points
// at can be emitted inline as a packed function property instead of a
// builtin index.
func FuncPropEligible(key string, target *meta.Object) bool {
	if target == nil || !target.HasNative() || target.BidxUsed {
		return false
	}
	if !target.Callable || target.Constructable || target.SpecialCall {
		return false
	}
	if target.Class != meta.ClassFunction || target.InternalPrototype != meta.FunctionPrototypeID {
		return false
	}
	length := 0
	for _, p := range target.Properties {
		switch p.Key {
		case "length":
			n, ok := p.Value.Int()
			if !ok || n < 0 || n > PackedLengthMax {
				return false
			}
			length = n
		case "name":
			if p.Value.Kind != meta.ValueString || p.Value.Str != key {
				return false
			}
		default:
			return false
		}
	}
	if !target.Varargs {
		nargs := length
		if target.Nargs != nil {
			nargs = *target.Nargs
		}
		if nargs != length && (nargs < 0 || nargs > PackedNargsMax) {
			return false
		}
	}
	return true
}

// PromoteForPacked gives a builtin index to every object the packed form
// can only address by index: internal prototypes, "prototype" and
// "constructor" targets, and object values that cannot be inlined as
// function properties. Promotion repeats until nothing changes.
func PromoteForPacked(doc *meta.Document, st *Stats) {
	promote := func(id string) bool {
		o := doc.Object(id)
		if o == nil || o.BidxUsed {
			return false
		}
		o.BidxUsed = true
		st.Promoted++
		log.Debugf("promoted %s to a builtin index", id)
		return true
	}
	for changed := true; changed; {
		changed = false
		for _, o := range doc.Objects {
			if !o.BidxUsed {
				continue
			}
			if o.InternalPrototype != "" && promote(o.InternalPrototype) {
				changed = true
			}
			for _, p := range o.Properties {
				if p.Value.Kind != meta.ValueObject {
					continue
				}
				target := doc.Object(p.Value.ID)
				need := p.Key == "prototype" || p.Key == "constructor" || !FuncPropEligible(p.Key, target)
				if need && promote(p.Value.ID) {
					changed = true
				}
			}
		}
	}
}

// StripConfigurable clears the configurable attribute everywhere. Literal
// form objects live in read-only memory.
func StripConfigurable(doc *meta.Document, st *Stats) {
	for _, o := range doc.Objects {
		for _, p := range o.Properties {
			if p.Attrs.Has(meta.AttrConfigurable) {
				p.Attrs &^= meta.AttrConfigurable
				st.Stripped++
			}
		}
	}
}
