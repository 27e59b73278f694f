package graph

import (
	"errors"

	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
)

// Lightfunc rejection reasons.
const (
	rejectNotNative     = "not a native function"
	rejectConstructable = "constructable"
	rejectBidx          = "has builtin index"
	rejectPrototype     = "non-standard internal prototype"
	rejectProperties    = "extra properties"
	rejectName          = "name differs from key"
	rejectNargs         = "nargs out of range"
	rejectLength        = "length out of range"
	rejectMagicIndex    = "magic needs builtin index"
	rejectMagicRange    = "magic out of range"
	rejectMagic         = "magic unresolvable"
)

// lightfuncFor returns the lightfunc form of target, or a rejection reason.
func lightfuncFor(key string, target *meta.Object, r *magic.Resolver) (*meta.Lightfunc, string) {
	switch {
	case !target.HasNative() || !target.Callable || target.SpecialCall:
		return nil, rejectNotNative
	case target.Constructable:
		return nil, rejectConstructable
	case target.BidxUsed:
		return nil, rejectBidx
	case target.InternalPrototype != meta.FunctionPrototypeID:
		return nil, rejectPrototype
	}

	lf := &meta.Lightfunc{Native: target.Native, Varargs: target.Varargs}
	for _, p := range target.Properties {
		switch p.Key {
		case "length":
			n, ok := p.Value.Int()
			if !ok || n < 0 || n > meta.LightfuncLengthMax {
				return nil, rejectLength
			}
			lf.Length = n
		case "name":
			if p.Value.Kind != meta.ValueString || p.Value.Str != key {
				return nil, rejectName
			}
		default:
			return nil, rejectProperties
		}
	}
	if !lf.Varargs {
		n := lf.Length
		if target.Nargs != nil {
			n = *target.Nargs
		}
		if n < 0 || n > meta.LightfuncNargsMax {
			return nil, rejectNargs
		}
		lf.Nargs = n
	}

	m, err := r.Resolve(target.Magic)
	switch {
	case errors.Is(err, magic.ErrUnresolved):
		return nil, rejectMagicIndex
	case err != nil:
		return nil, rejectMagic
	case m < meta.LightfuncMagicMin || m > meta.LightfuncMagicMax:
		return nil, rejectMagicRange
	}
	lf.Magic = m
	return lf, ""
}

// ConvertLightfuncs replaces eligible function-valued properties with
// lightfunc values. Converted targets become unreferenced and fall to the
// sweep. Rejections are counted per reason.
func ConvertLightfuncs(doc *meta.Document, st *Stats) error {
	if err := doc.CheckMutable(); err != nil {
		return err
	}
	r := magic.Speculative()
	for _, o := range doc.Objects {
		for _, p := range o.Properties {
			if p.Value.Kind != meta.ValueObject || !p.AutoLightfunc {
				continue
			}
			target := doc.Object(p.Value.ID)
			if target == nil || target.Class != meta.ClassFunction {
				continue
			}
			lf, reason := lightfuncFor(p.Key, target, r)
			if lf == nil {
				if st.LightfuncRejects == nil {
					st.LightfuncRejects = make(map[string]int)
				}
				st.LightfuncRejects[reason]++
				log.Debugf("%s.%s: not a lightfunc: %s", o.ID, p.Key, reason)
				continue
			}
			p.Value = meta.Value{Kind: meta.ValueLightfunc, Lightfunc: lf}
			st.Lightfuncs++
		}
	}
	return nil
}
