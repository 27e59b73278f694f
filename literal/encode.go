// Package literal lays out a finalized builtin document as initialized C
// data: read-only strings and objects the runtime uses in place, linked
// through a string lookup table and an optional pointer compression
// table.
package literal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"github.com/tliron/commonlog"
)

var (
	ErrNotFrozen            = errors.New("document is not finalized")
	ErrPtrCompOverflow      = errors.New("pointer compression table overflow")
	ErrPtrCompMissing       = errors.New("entity missing from pointer compression table")
	ErrConfigurableProperty = errors.New("configurable property in read-only object")
	ErrAccessorAttr         = errors.New("accessor attribute mismatch")
	ErrUnsupported          = errors.New("value cannot be represented in literal form")
)

var log = commonlog.GetLogger("builtingen.literal")

// Options selects the runtime profile and the target byte order.
type Options struct {
	Profile meta.Profile
	Order   meta.ByteOrder
}

// Ref points at a string (by stridx) or an object (by document position)
// together with its compressed pointer. Pos is -1 for no target.
type Ref struct {
	Pos int
	Ptr uint16
}

var noRef = Ref{Pos: -1}

// Valid reports whether the reference has a target.
func (r Ref) Valid() bool { return r.Pos >= 0 }

// SlotKind is the storage kind of one property value slot.
type SlotKind uint8

const (
	SlotValue SlotKind = iota
	SlotAccessor
)

// Shape is a distinct sequence of property slot kinds. Objects with equal
// shapes share one property table type.
type Shape struct {
	ID    int
	Kinds []SlotKind
}

func shapeKey(kinds []SlotKind) string {
	var sb strings.Builder
	for _, k := range kinds {
		if k == SlotAccessor {
			sb.WriteByte('a')
		} else {
			sb.WriteByte('v')
		}
	}
	return sb.String()
}

// StringEntry is one read-only string.
type StringEntry struct {
	// Pos is the position in the string section; Index is the stridx or -1.
	Pos     int
	Index   int
	Str     string
	Define  string
	Hash    uint32
	CharLen int
	Flags   []string
	// Next is the following string in the same lookup bucket.
	Next Ref
	Ptr  uint16
}

// PropEntry is one property slot.
type PropEntry struct {
	Key   Ref
	Attrs meta.Attrs
	Kind  meta.ValueKind

	Bool   bool
	Double [8]byte
	// Target is the string or object value.
	Target Ref
	Getter Ref
	Setter Ref

	LightfuncNative string
	LightfuncFlags  uint16
}

// ObjectEntry is one read-only object.
type ObjectEntry struct {
	Pos    int
	ID     string
	Index  int
	Define string
	Class  meta.Class
	Flags  []string
	Proto  Ref
	Shape  int
	Props  []PropEntry
	Ptr    uint16

	// Native function fields.
	Native  string
	Nargs   int
	Varargs bool
	Magic   int16
}

// Function reports whether the object is a native function.
func (o *ObjectEntry) Function() bool {
	return o.Native != ""
}

// Result is the literal layout for one byte order.
type Result struct {
	Order    meta.ByteOrder
	Buckets  int
	PtrFirst int

	Strings []StringEntry
	// Lookup holds the head of each bucket chain.
	Lookup  []Ref
	Shapes  []Shape
	Objects []ObjectEntry
	Bidx    []Ref
	Ptrs    []PtrEntry
	Natives []string
	Layout  graph.StringLayout
}

// Encode lays out doc for one byte order. The document must have been
// prepared for the literal target.
func Encode(doc *meta.Document, opts Options) (*Result, error) {
	if !doc.Frozen() {
		return nil, ErrNotFrozen
	}
	if opts.Order == "" {
		opts.Order = meta.LittleEndian
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	e := &encoder{
		doc:    doc,
		opts:   opts,
		ptrs:   NewPtrTable(opts.Profile.PtrCompFirst),
		magic:  graph.Resolver(doc),
		strPos: make(map[string]int, len(doc.Strings)),
		objPos: make(map[string]int, len(doc.Objects)),
		shapes: sequencedmap.New[string, int](),
	}
	if err := e.register(); err != nil {
		return nil, err
	}
	res := &Result{
		Order:    opts.Order,
		Buckets:  opts.Profile.StrTableBuckets,
		PtrFirst: e.ptrs.First(),
		Natives:  doc.Natives,
		Layout:   graph.Layout(doc),
	}
	if err := e.strings(res); err != nil {
		return nil, err
	}
	if err := e.objects(res); err != nil {
		return nil, err
	}
	res.Ptrs = e.ptrs.Entries()
	log.Infof("literal %s: %d strings, %d objects, %d shapes, %d compressed pointers",
		opts.Order, len(res.Strings), len(res.Objects), len(res.Shapes), len(res.Ptrs))
	return res, nil
}

// Validate checks the attribute constraints of read-only properties.
func Validate(doc *meta.Document) error {
	for _, o := range doc.Objects {
		for _, p := range o.Properties {
			if p.Attrs.Has(meta.AttrConfigurable) {
				return fmt.Errorf("%w: %s.%s", ErrConfigurableProperty, o.ID, p.Key)
			}
			isAccessor := p.Value.Kind == meta.ValueAccessor
			if isAccessor != p.Attrs.Has(meta.AttrAccessor) {
				return fmt.Errorf("%w: %s.%s is %s with attributes %q", ErrAccessorAttr, o.ID, p.Key, p.Value.Kind, p.Attrs)
			}
		}
	}
	return nil
}

type encoder struct {
	doc    *meta.Document
	opts   Options
	ptrs   *PtrTable
	magic  *magic.Resolver
	strPos map[string]int
	objPos map[string]int
	shapes *sequencedmap.Map[string, int]
}

// register fills the compression table: strings in index order followed
// by the unindexed strings, then objects in document order.
func (e *encoder) register() error {
	for i, s := range e.doc.Strings {
		e.strPos[s.Str] = i
		if _, err := e.ptrs.RegisterString(s.Str, i); err != nil {
			return err
		}
	}
	for i, o := range e.doc.Objects {
		e.objPos[o.ID] = i
		if _, err := e.ptrs.RegisterObject(o.ID, i); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) stringRef(s string) (Ref, error) {
	ptr, ok := e.ptrs.LookupString(s)
	if !ok {
		return noRef, fmt.Errorf("%w: string %q", ErrPtrCompMissing, s)
	}
	return Ref{Pos: e.strPos[s], Ptr: ptr}, nil
}

func (e *encoder) objectRef(id string) (Ref, error) {
	if id == "" {
		return noRef, nil
	}
	ptr, ok := e.ptrs.LookupObject(id)
	if !ok {
		return noRef, fmt.Errorf("%w: object %s", ErrPtrCompMissing, id)
	}
	return Ref{Pos: e.objPos[id], Ptr: ptr}, nil
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func (e *encoder) strings(res *Result) error {
	heads := make([]Ref, res.Buckets)
	for i := range heads {
		heads[i] = noRef
	}
	for i, s := range e.doc.Strings {
		ptr, _ := e.ptrs.LookupString(s.Str)
		b := lookupBucket(s.Str, res.Buckets)
		res.Strings = append(res.Strings, StringEntry{
			Pos:     i,
			Index:   s.Index,
			Str:     s.Str,
			Define:  s.Define,
			Hash:    StrHash(s.Str, e.opts.Profile, e.opts.Order),
			CharLen: s.CharLength(),
			Flags:   stringFlags(s),
			Next:    heads[b],
			Ptr:     ptr,
		})
		heads[b] = Ref{Pos: i, Ptr: ptr}
	}
	res.Lookup = heads
	return nil
}

func stringFlags(s *meta.String) []string {
	var flags []string
	ascii := true
	for i := 0; i < len(s.Str); i++ {
		if s.Str[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		flags = append(flags, "DUK_HSTRING_FLAG_ASCII")
	}
	if isArrayIndex(s.Str) {
		flags = append(flags, "DUK_HSTRING_FLAG_ARRIDX")
	}
	if s.Str != "" {
		switch s.Str[0] {
		case 0x80, 0x81:
			flags = append(flags, "DUK_HSTRING_FLAG_SYMBOL")
		case 0x82, 0xff:
			flags = append(flags, "DUK_HSTRING_FLAG_SYMBOL", "DUK_HSTRING_FLAG_HIDDEN")
		}
	}
	if s.ReservedWord {
		flags = append(flags, "DUK_HSTRING_FLAG_RESERVED_WORD")
	}
	if s.StrictReservedWord {
		flags = append(flags, "DUK_HSTRING_FLAG_STRICT_RESERVED_WORD")
	}
	if s.Str == "eval" || s.Str == "arguments" {
		flags = append(flags, "DUK_HSTRING_FLAG_EVAL_OR_ARGUMENTS")
	}
	return flags
}

// isArrayIndex reports whether s is a canonical array index: a decimal
// number without leading zeros below 2^32-1.
func isArrayIndex(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	return err == nil && n < 0xffffffff
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func (e *encoder) objects(res *Result) error {
	for i, o := range e.doc.Objects {
		ent, err := e.object(i, o)
		if err != nil {
			return fmt.Errorf("object %s: %w", o.ID, err)
		}
		res.Objects = append(res.Objects, ent)
	}
	for _, o := range e.doc.BidxObjects() {
		ref, err := e.objectRef(o.ID)
		if err != nil {
			return err
		}
		res.Bidx = append(res.Bidx, ref)
	}
	for key, id := range e.shapes.All() {
		res.Shapes = append(res.Shapes, Shape{ID: id, Kinds: shapeKinds(key)})
	}
	return nil
}

func shapeKinds(key string) []SlotKind {
	kinds := make([]SlotKind, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == 'a' {
			kinds[i] = SlotAccessor
		}
	}
	return kinds
}

func (e *encoder) object(pos int, o *meta.Object) (ObjectEntry, error) {
	ptr, _ := e.ptrs.LookupObject(o.ID)
	ent := ObjectEntry{
		Pos:    pos,
		ID:     o.ID,
		Index:  o.Index,
		Define: o.Define,
		Class:  o.Class,
		Flags:  objectFlags(o),
		Shape:  -1,
		Ptr:    ptr,
	}
	proto, err := e.objectRef(o.InternalPrototype)
	if err != nil {
		return ent, err
	}
	ent.Proto = proto

	if o.HasNative() {
		ent.Native = o.Native
		ent.Varargs = o.Varargs
		if n, ok := o.NargsOrDefault(); ok && !o.Varargs {
			ent.Nargs = n
		}
		m, err := e.magic.Uint16(o.Magic)
		if err != nil {
			return ent, err
		}
		ent.Magic = int16(m)
	}

	kinds := make([]SlotKind, 0, len(o.Properties))
	for _, p := range o.Properties {
		pe, err := e.property(p)
		if err != nil {
			return ent, fmt.Errorf("property %q: %w", p.Key, err)
		}
		ent.Props = append(ent.Props, pe)
		if pe.Kind == meta.ValueAccessor {
			kinds = append(kinds, SlotAccessor)
		} else {
			kinds = append(kinds, SlotValue)
		}
	}
	if len(kinds) > 0 {
		key := shapeKey(kinds)
		id, ok := e.shapes.Get(key)
		if !ok {
			id = e.shapes.Len()
			e.shapes.Set(key, id)
		}
		ent.Shape = id
	}
	return ent, nil
}

func objectFlags(o *meta.Object) []string {
	flags := []string{fmt.Sprintf("DUK_HOBJECT_CLASS_AS_FLAGS(DUK_HOBJECT_CLASS_%s)", strings.ToUpper(o.Class.String()))}
	if o.Callable {
		flags = append(flags, "DUK_HOBJECT_FLAG_CALLABLE")
	}
	if o.Constructable {
		flags = append(flags, "DUK_HOBJECT_FLAG_CONSTRUCTABLE")
	}
	if o.SpecialCall {
		flags = append(flags, "DUK_HOBJECT_FLAG_SPECIAL_CALL")
	}
	if o.HasNative() {
		flags = append(flags, "DUK_HOBJECT_FLAG_NATFUNC")
	}
	if o.Class == meta.ClassArray {
		flags = append(flags, "DUK_HOBJECT_FLAG_EXOTIC_ARRAY")
	}
	return flags
}

func (e *encoder) property(p *meta.Property) (PropEntry, error) {
	key, err := e.stringRef(p.Key)
	if err != nil {
		return PropEntry{}, err
	}
	pe := PropEntry{Key: key, Attrs: p.Attrs, Kind: p.Value.Kind, Target: noRef, Getter: noRef, Setter: noRef}

	v := p.Value
	switch v.Kind {
	case meta.ValueUndefined, meta.ValueNull:
	case meta.ValueBoolean:
		pe.Bool = v.Bool
	case meta.ValueNumber:
		pe.Double = e.opts.Order.Reorder(v.DoubleBytes())
	case meta.ValueString:
		pe.Target, err = e.stringRef(v.Str)
	case meta.ValueObject:
		pe.Target, err = e.objectRef(v.ID)
	case meta.ValueAccessor:
		if pe.Getter, err = e.objectRef(v.Getter); err == nil {
			pe.Setter, err = e.objectRef(v.Setter)
		}
	case meta.ValueLightfunc:
		pe.LightfuncNative = v.Lightfunc.Native
		pe.LightfuncFlags = v.Lightfunc.Flags()
	default:
		return pe, fmt.Errorf("%w: %s", ErrUnsupported, v.Kind)
	}
	return pe, err
}
