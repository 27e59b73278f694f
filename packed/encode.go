// Package packed encodes a finalized builtin document into the bit-packed
// form the runtime unpacks into heap objects at startup.
package packed

import (
	"errors"
	"fmt"

	"github.com/chazu/builtingen/bitpack"
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
	"github.com/tliron/commonlog"
)

var (
	ErrNotFrozen      = errors.New("document is not finalized")
	ErrNotBidx        = errors.New("referenced object has no builtin index")
	ErrUnsupported    = errors.New("value cannot be represented in packed form")
	ErrAccessorNative = errors.New("accessor target is not a native function")
	ErrAccessorMagic  = errors.New("accessor getter and setter magic differ")
	ErrStringMismatch = errors.New("packed string table does not round-trip")
	ErrHeaderField    = errors.New("object header field out of range")
)

var log = commonlog.GetLogger("builtingen.packed")

// Property type tags.
const (
	tagDouble    = 0
	tagString    = 1
	tagStridx    = 2
	tagBuiltin   = 3
	tagUndefined = 4
	tagTrue      = 5
	tagFalse     = 6
	tagAccessor  = 7
)

// Header and property field widths.
const (
	classBits        = 5
	lengthBits       = 3
	nargsBits        = 3
	nargsVarargs     = 7
	attrBits         = 3
	typeBits         = 3
	defaultPropAttrs = meta.DefaultDataAttrs
)

// Options selects the byte orders to encode object data for.
type Options struct {
	ByteOrders []meta.ByteOrder
}

// Encode serializes doc. The document must have been prepared for the
// packed target.
func Encode(doc *meta.Document, opts Options) (*Result, error) {
	if !doc.Frozen() {
		return nil, ErrNotFrozen
	}
	orders := opts.ByteOrders
	if len(orders) == 0 {
		orders = meta.ByteOrders
	}

	res := &Result{
		Natives:     doc.Natives,
		ObjectsData: make(map[meta.ByteOrder][]byte, len(orders)),
		Orders:      orders,
	}
	if err := encodeStrings(doc, res); err != nil {
		return nil, err
	}
	if err := DecodeStrings(res.StringsData, doc); err != nil {
		return nil, err
	}
	for _, order := range orders {
		e := &encoder{doc: doc, w: bitpack.NewWriter(), order: order, magic: graph.Resolver(doc)}
		if err := e.objects(); err != nil {
			return nil, fmt.Errorf("%s byte order: %w", order, err)
		}
		res.ObjectsData[order] = e.w.Bytes()
		// Orders differ only in double bytes; warnings come from the first pass.
		if order == orders[0] {
			res.Warnings = e.warnings
		}
	}
	res.fillScalars(doc)
	log.Infof("packed: %d string bytes, %d objects", len(res.StringsData), res.NumBidx)
	return res, nil
}

// stridxStrings returns the strings of the runtime string table. Ordering
// puts them ahead of the unindexed strings.
func stridxStrings(doc *meta.Document) []*meta.String {
	return doc.Strings[:graph.Layout(doc).NumStrings]
}

func encodeStrings(doc *meta.Document, res *Result) error {
	w := bitpack.NewWriter()
	for _, s := range stridxStrings(doc) {
		if err := bitpack.PackString(w, s.Str); err != nil {
			return fmt.Errorf("string %q: %w", s.Str, err)
		}
		res.MaxStrLen = max(res.MaxStrLen, len(s.Str))
	}
	res.StringsData = w.Bytes()
	return nil
}

// DecodeStrings unpacks a string blob and checks it against the document's
// string table.
func DecodeStrings(data []byte, doc *meta.Document) error {
	r := bitpack.NewReader(data)
	for _, s := range stridxStrings(doc) {
		got, err := bitpack.UnpackString(r)
		if err != nil {
			return fmt.Errorf("%w: at %q: %v", ErrStringMismatch, s.Str, err)
		}
		if got != s.Str {
			return fmt.Errorf("%w: got %q, want %q", ErrStringMismatch, got, s.Str)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Object data
// ---------------------------------------------------------------------------

type encoder struct {
	doc      *meta.Document
	w        *bitpack.Writer
	order    meta.ByteOrder
	magic    *magic.Resolver
	err      error
	warnings int
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) bits(v uint32, n uint) {
	if e.err == nil {
		if err := e.w.Bits(v, n); err != nil {
			e.fail(err)
		}
	}
}

func (e *encoder) varuint(v uint32) {
	if e.err == nil {
		if err := e.w.Varuint(v); err != nil {
			e.fail(err)
		}
	}
}

func (e *encoder) flag(b bool) {
	if e.err == nil {
		e.w.Bool(b)
	}
}

// flagged writes a 0 flag when v equals def, else a 1 flag and v in n bits.
func (e *encoder) flagged(v, def uint32, n uint) {
	if v == def {
		e.flag(false)
		return
	}
	e.flag(true)
	e.bits(v, n)
}

// stridxOrString writes stridx+1, or 0 followed by the packed string.
func (e *encoder) stridxOrString(s string) {
	if idx, ok := e.doc.Stridx(s); ok {
		e.varuint(uint32(idx) + 1)
		return
	}
	e.varuint(0)
	if e.err == nil {
		if err := bitpack.PackString(e.w, s); err != nil {
			e.fail(fmt.Errorf("string %q: %w", s, err))
		}
	}
}

func (e *encoder) bidx(id string) uint32 {
	idx, ok := e.doc.Bidx(id)
	if !ok {
		e.fail(fmt.Errorf("%w: %s", ErrNotBidx, id))
		return 0
	}
	return uint32(idx)
}

// bidxOrNone writes bidx+1, or 0 for no object.
func (e *encoder) bidxOrNone(id string) {
	if id == "" {
		e.varuint(0)
		return
	}
	e.varuint(e.bidx(id) + 1)
}

func (e *encoder) natidx(name string) uint32 {
	idx, ok := e.doc.Natidx(name)
	if !ok {
		e.fail(fmt.Errorf("native %q missing from native table", name))
	}
	return uint32(idx)
}

func (e *encoder) magicValue(m *magic.Descriptor) uint32 {
	v, err := e.magic.Uint16(m)
	if err != nil {
		e.fail(err)
	}
	return v
}

// objects writes all headers first, then all property data.
func (e *encoder) objects() error {
	objs := e.doc.BidxObjects()
	for _, o := range objs {
		e.header(o)
		if e.err != nil {
			return fmt.Errorf("object %s header: %w", o.ID, e.err)
		}
	}
	for _, o := range objs {
		e.properties(o)
		if e.err != nil {
			return fmt.Errorf("object %s properties: %w", o.ID, e.err)
		}
	}
	return nil
}

// lengthOf returns the "length" property when the header can carry it,
// or -1. Other lengths stay in the value list.
func lengthOf(o *meta.Object) int {
	if p := o.Prop("length"); p != nil {
		if n, ok := p.Value.Int(); ok && n >= 0 && n < 1<<lengthBits {
			return n
		}
	}
	return -1
}

func (e *encoder) header(o *meta.Object) {
	e.bits(uint32(o.Class), classBits)

	length := lengthOf(o)
	if length >= 0 {
		e.flag(true)
		e.bits(uint32(length), lengthBits)
	} else {
		e.flag(false)
	}

	if o.Class != meta.ClassFunction {
		return
	}
	e.varuint(e.natidx(o.Native))

	switch {
	case o.Varargs:
		e.flag(true)
		e.bits(nargsVarargs, nargsBits)
	default:
		nargs, _ := o.NargsOrDefault()
		if nargs == length {
			e.flag(false)
		} else if nargs < 0 || nargs >= nargsVarargs {
			e.fail(fmt.Errorf("%w: nargs %d", ErrHeaderField, nargs))
			return
		} else {
			e.flag(true)
			e.bits(uint32(nargs), nargsBits)
		}
	}

	name := ""
	if p := o.Prop("name"); p != nil && p.Value.Kind == meta.ValueString {
		name = p.Value.Str
	}
	e.stridxOrString(name)
	e.flag(o.Constructable)
	e.varuint(e.magicValue(o.Magic))
}

// stolen reports whether a property is carried by the header or the
// prototype/constructor slots instead of the property lists.
func stolen(o *meta.Object, p *meta.Property) bool {
	switch p.Key {
	case "length":
		return lengthOf(o) >= 0
	case "name":
		return o.Class == meta.ClassFunction && p.Value.Kind == meta.ValueString
	case "prototype", "constructor":
		return p.Value.Kind == meta.ValueObject
	}
	return false
}

func (e *encoder) properties(o *meta.Object) {
	e.bidxOrNone(o.InternalPrototype)
	e.bidxOrNone(objectProp(o, "prototype"))
	e.bidxOrNone(objectProp(o, "constructor"))

	var values, funcs []*meta.Property
	for _, p := range o.Properties {
		if stolen(o, p) {
			continue
		}
		if p.Value.Kind == meta.ValueObject {
			target := e.doc.Object(p.Value.ID)
			if target != nil && target.Index < 0 && graph.FuncPropEligible(p.Key, target) {
				funcs = append(funcs, p)
				continue
			}
		}
		values = append(values, p)
	}

	e.varuint(uint32(len(values)))
	for _, p := range values {
		e.valueProp(o, p)
	}
	e.varuint(uint32(len(funcs)))
	for _, p := range funcs {
		e.funcProp(p)
	}
}

func objectProp(o *meta.Object, key string) string {
	if p := o.Prop(key); p != nil && p.Value.Kind == meta.ValueObject {
		return p.Value.ID
	}
	return ""
}

func (e *encoder) attrs(a meta.Attrs) {
	a &^= meta.AttrAccessor
	e.flagged(uint32(a), uint32(defaultPropAttrs), attrBits)
}

func (e *encoder) valueProp(o *meta.Object, p *meta.Property) {
	e.stridxOrString(p.Key)
	e.attrs(p.Attrs)

	v := p.Value
	switch v.Kind {
	case meta.ValueNumber:
		e.bits(tagDouble, typeBits)
		b := e.order.Reorder(v.DoubleBytes())
		for _, c := range b {
			e.bits(uint32(c), 8)
		}
	case meta.ValueString:
		if idx, ok := e.doc.Stridx(v.Str); ok {
			e.bits(tagStridx, typeBits)
			e.varuint(uint32(idx))
		} else {
			e.bits(tagString, typeBits)
			if e.err == nil {
				if err := bitpack.PackString(e.w, v.Str); err != nil {
					e.fail(fmt.Errorf("property %q: %w", p.Key, err))
				}
			}
		}
	case meta.ValueObject:
		e.bits(tagBuiltin, typeBits)
		e.varuint(e.bidx(v.ID))
	case meta.ValueBoolean:
		if v.Bool {
			e.bits(tagTrue, typeBits)
		} else {
			e.bits(tagFalse, typeBits)
		}
	case meta.ValueUndefined:
		e.bits(tagUndefined, typeBits)
	case meta.ValueNull, meta.ValueLightfunc:
		log.Warningf("%s.%s: %s value not supported in packed form, using undefined", o.ID, p.Key, v.Kind)
		e.warnings++
		e.bits(tagUndefined, typeBits)
	case meta.ValueAccessor:
		e.bits(tagAccessor, typeBits)
		e.accessor(v)
	default:
		e.fail(fmt.Errorf("%w: %s.%s is %s", ErrUnsupported, o.ID, p.Key, v.Kind))
	}
}

func (e *encoder) accessor(v meta.Value) {
	var get, set uint32
	var m *magic.Descriptor
	if v.Getter != "" {
		g := e.doc.Object(v.Getter)
		if g == nil || !g.HasNative() {
			e.fail(fmt.Errorf("%w: getter %s", ErrAccessorNative, v.Getter))
			return
		}
		get = e.natidx(g.Native)
		m = g.Magic
	}
	if v.Setter != "" {
		s := e.doc.Object(v.Setter)
		if s == nil || !s.HasNative() {
			e.fail(fmt.Errorf("%w: setter %s", ErrAccessorNative, v.Setter))
			return
		}
		set = e.natidx(s.Native)
		if v.Getter != "" && e.magicValue(m) != e.magicValue(s.Magic) {
			e.fail(fmt.Errorf("%w: %s, %s", ErrAccessorMagic, v.Getter, v.Setter))
			return
		}
		m = s.Magic
	}
	e.varuint(get)
	e.varuint(set)
	e.varuint(e.magicValue(m))
}

func (e *encoder) funcProp(p *meta.Property) {
	target := e.doc.Object(p.Value.ID)
	e.stridxOrString(p.Key)
	e.varuint(e.natidx(target.Native))

	length := max(lengthOf(target), 0)
	e.bits(uint32(length), lengthBits)
	if target.Varargs {
		e.flag(true)
		e.bits(nargsVarargs, nargsBits)
	} else {
		nargs := length
		if target.Nargs != nil {
			nargs = *target.Nargs
		}
		e.flagged(uint32(nargs), uint32(length), nargsBits)
	}
	e.varuint(e.magicValue(target.Magic))
	e.attrs(p.Attrs)
}
