package meta

import (
	"fmt"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Document is the working object/string graph. The pipeline and the graph
// passes mutate it; codecs only read a frozen document.
type Document struct {
	Objects []*Object
	Strings []*String

	// Cross-reference tables, filled in once ordering is final.
	StringIndex *sequencedmap.Map[string, int]
	ObjectIndex *sequencedmap.Map[string, int]
	NativeIndex *sequencedmap.Map[string, int]
	// Natives is the native name table; entry 0 is the empty name.
	Natives []string

	byID  map[string]*Object
	byStr map[string]*String

	nextSubobj int
	frozen     bool
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		byID:  make(map[string]*Object),
		byStr: make(map[string]*String),
	}
}

// Object returns the object with the given id, or nil.
func (d *Document) Object(id string) *Object {
	return d.byID[id]
}

// String returns the declaration of str, or nil.
func (d *Document) String(str string) *String {
	return d.byStr[str]
}

// Frozen reports whether the document is read-only.
func (d *Document) Frozen() bool {
	return d.frozen
}

// Freeze makes the document read-only. Mutating calls fail afterwards.
func (d *Document) Freeze() {
	d.frozen = true
}

// CheckMutable returns ErrFrozen on a frozen document.
func (d *Document) CheckMutable() error {
	if d.frozen {
		return ErrFrozen
	}
	return nil
}

// AddObject appends an object. The id must be new.
func (d *Document) AddObject(o *Object) error {
	if err := d.CheckMutable(); err != nil {
		return err
	}
	if _, ok := d.byID[o.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateObject, o.ID)
	}
	d.Objects = append(d.Objects, o)
	d.byID[o.ID] = o
	return nil
}

// replaceObject swaps the object with o.ID in place.
func (d *Document) replaceObject(o *Object) bool {
	for i, old := range d.Objects {
		if old.ID == o.ID {
			d.Objects[i] = o
			d.byID[o.ID] = o
			return true
		}
	}
	return false
}

// MergeString adds a string declaration or merges it into an existing one.
// Identity attributes must agree; reachability requests are OR-merged and
// the last non-empty force reason wins.
func (d *Document) MergeString(s *String) (*String, error) {
	if err := d.CheckMutable(); err != nil {
		return nil, err
	}
	if cur, ok := d.byStr[s.Str]; ok {
		if !cur.sameIdentity(s) {
			return nil, fmt.Errorf("%w: %q", ErrConflictingString, s.Str)
		}
		cur.StridxUsed = cur.StridxUsed || s.StridxUsed
		if s.ForceReachable != "" {
			cur.ForceReachable = s.ForceReachable
		}
		return cur, nil
	}
	d.Strings = append(d.Strings, s)
	d.byStr[s.Str] = s
	return s, nil
}

// RemoveObjects drops every object for which drop returns true, keeping
// the order of survivors. It returns the removed objects.
func (d *Document) RemoveObjects(drop func(*Object) bool) ([]*Object, error) {
	if err := d.CheckMutable(); err != nil {
		return nil, err
	}
	var removed []*Object
	kept := d.Objects[:0]
	for _, o := range d.Objects {
		if drop(o) {
			removed = append(removed, o)
			delete(d.byID, o.ID)
			continue
		}
		kept = append(kept, o)
	}
	d.Objects = kept
	return removed, nil
}

// RemoveStrings drops every string for which drop returns true.
func (d *Document) RemoveStrings(drop func(*String) bool) ([]*String, error) {
	if err := d.CheckMutable(); err != nil {
		return nil, err
	}
	var removed []*String
	kept := d.Strings[:0]
	for _, s := range d.Strings {
		if drop(s) {
			removed = append(removed, s)
			delete(d.byStr, s.Str)
			continue
		}
		kept = append(kept, s)
	}
	d.Strings = kept
	return removed, nil
}

// SetStrings replaces the string list with a permutation of it.
func (d *Document) SetStrings(strs []*String) error {
	if err := d.CheckMutable(); err != nil {
		return err
	}
	if len(strs) != len(d.Strings) {
		return fmt.Errorf("string reorder changes count from %d to %d", len(d.Strings), len(strs))
	}
	d.Strings = strs
	return nil
}

// newSubobjID returns the next synthesized object id.
func (d *Document) newSubobjID() string {
	for {
		id := fmt.Sprintf("subobj_%d", d.nextSubobj)
		d.nextSubobj++
		if _, taken := d.byID[id]; !taken {
			return id
		}
	}
}

// Clone returns a deep, unfrozen copy. Index tables are copied.
func (d *Document) Clone() *Document {
	c := NewDocument()
	c.nextSubobj = d.nextSubobj
	for _, o := range d.Objects {
		oc := o.Clone()
		c.Objects = append(c.Objects, oc)
		c.byID[oc.ID] = oc
	}
	for _, s := range d.Strings {
		sc := *s
		c.Strings = append(c.Strings, &sc)
		c.byStr[sc.Str] = &sc
	}
	c.StringIndex = cloneIndex(d.StringIndex)
	c.ObjectIndex = cloneIndex(d.ObjectIndex)
	c.NativeIndex = cloneIndex(d.NativeIndex)
	c.Natives = append([]string(nil), d.Natives...)
	return c
}

func cloneIndex(m *sequencedmap.Map[string, int]) *sequencedmap.Map[string, int] {
	if m == nil {
		return nil
	}
	c := sequencedmap.New[string, int]()
	for k, v := range m.All() {
		c.Set(k, v)
	}
	return c
}

// BidxObjects returns the objects that have a bidx, in bidx order.
func (d *Document) BidxObjects() []*Object {
	var out []*Object
	for _, o := range d.Objects {
		if o.Index >= 0 {
			out = append(out, o)
		}
	}
	return out
}

// Stridx returns the string index of str.
func (d *Document) Stridx(str string) (int, bool) {
	if d.StringIndex == nil {
		return 0, false
	}
	return d.StringIndex.Get(str)
}

// Bidx returns the builtin index of id.
func (d *Document) Bidx(id string) (int, bool) {
	if d.ObjectIndex == nil {
		return 0, false
	}
	return d.ObjectIndex.Get(id)
}

// Natidx returns the native table index of name; 0 means none.
func (d *Document) Natidx(name string) (int, bool) {
	if name == "" {
		return 0, true
	}
	if d.NativeIndex == nil {
		return 0, false
	}
	return d.NativeIndex.Get(name)
}

// SetObjects replaces the object list with a permutation of it.
func (d *Document) SetObjects(objs []*Object) error {
	if err := d.CheckMutable(); err != nil {
		return err
	}
	if len(objs) != len(d.Objects) {
		return fmt.Errorf("object reorder changes count from %d to %d", len(d.Objects), len(objs))
	}
	d.Objects = objs
	return nil
}
