package meta

import (
	"github.com/chazu/builtingen/magic"
)

// Action is an overlay object's merge action.
type Action string

const (
	ActionAdd     Action = "add"
	ActionReplace Action = "replace"
	ActionDelete  Action = "delete"
	ActionModify  Action = "modify"
)

// PresentIf lists configuration options that must not be known-false for
// an entry to be kept.
type PresentIf []string

// Object is a builtin object declaration.
type Object struct {
	ID                string
	Class             Class
	InternalPrototype string
	Properties        []*Property

	Native        string
	Nargs         *int
	Varargs       bool
	Magic         *magic.Descriptor
	Callable      bool
	Constructable bool
	SpecialCall   bool

	BidxUsed  bool
	PresentIf PresentIf
	Disable   bool

	// Overlay merge action; empty in base documents.
	Action Action

	// Index is the bidx once ordering has run, -1 otherwise.
	Index  int
	Define string

	// fields records the top-level keys present in the source mapping so
	// that a modify overlay merges only what it sets.
	fields []string
}

// Property is one entry of an object's ordered property list.
type Property struct {
	Key           string
	Value         Value
	Attrs         Attrs
	AttrsSet      bool
	AutoLightfunc bool
	PresentIf     PresentIf
	Disable       bool

	// Overlay-only: remove the property from the modified object.
	Delete bool
	// AliasOf names a sibling property whose value this one shares.
	AliasOf string
}

// NewObject creates an object with no bidx.
func NewObject(id string, class Class) *Object {
	return &Object{ID: id, Class: class, Index: -1}
}

// HasNative reports whether the object is bound to a native function.
func (o *Object) HasNative() bool {
	return o.Native != ""
}

// Prop returns the first property with key, or nil.
func (o *Object) Prop(key string) *Property {
	for _, p := range o.Properties {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// propIndex returns the position of key, or -1.
func (o *Object) propIndex(key string) int {
	for i, p := range o.Properties {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// NargsOrDefault returns the declared nargs, falling back to the integer
// "length" property.
func (o *Object) NargsOrDefault() (int, bool) {
	if o.Nargs != nil {
		return *o.Nargs, true
	}
	if p := o.Prop("length"); p != nil {
		return p.Value.Int()
	}
	return 0, false
}

// References calls fn for every object id the object points at: internal
// prototype first, then property values in order.
func (o *Object) References(fn func(id string)) {
	if o.InternalPrototype != "" {
		fn(o.InternalPrototype)
	}
	for _, p := range o.Properties {
		p.Value.References(fn)
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	c := *o
	c.Properties = make([]*Property, len(o.Properties))
	for i, p := range o.Properties {
		pc := *p
		c.Properties[i] = &pc
	}
	if o.Nargs != nil {
		n := *o.Nargs
		c.Nargs = &n
	}
	c.PresentIf = append(PresentIf(nil), o.PresentIf...)
	c.fields = append([]string(nil), o.fields...)
	return &c
}

// String is a builtin string declaration.
type String struct {
	Str                string
	ReservedWord       bool
	StrictReservedWord bool
	StridxUsed         bool
	// Index8 marks strings the runtime addresses with 8-bit indices.
	Index8 bool
	// ForceReachable keeps the string through the sweep; the value is the
	// reason, for diagnostics.
	ForceReachable string

	// Index is the stridx once ordering has run, -1 otherwise.
	Index  int
	Define string
}

// NewString creates a string with no stridx.
func NewString(s string) *String {
	return &String{Str: s, Index: -1}
}

// CharLength returns the number of characters in the extended UTF-8 view
// the runtime uses: every byte that is not a continuation byte starts a
// character.
func (s *String) CharLength() int {
	n := 0
	for i := 0; i < len(s.Str); i++ {
		if s.Str[i]&0xc0 != 0x80 {
			n++
		}
	}
	return n
}

// NeedsStridx reports whether the runtime addresses the string by index.
func (s *String) NeedsStridx() bool {
	return s.StridxUsed || s.ReservedWord || s.Index8
}

// IsRoot reports whether the string survives the sweep regardless of use.
func (s *String) IsRoot() bool {
	return s.ForceReachable != "" || s.NeedsStridx()
}

// sameIdentity compares the attributes that must agree between duplicate
// declarations of the same string.
func (s *String) sameIdentity(o *String) bool {
	return s.ReservedWord == o.ReservedWord &&
		s.StrictReservedWord == o.StrictReservedWord &&
		s.Index8 == o.Index8
}
