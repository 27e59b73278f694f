package literal

import "fmt"

// ptrCompMax is the largest index a 16-bit compressed pointer can hold.
const ptrCompMax = 0xffff

// EntryKind tells strings and objects apart in the compression table.
type EntryKind uint8

const (
	EntryString EntryKind = iota
	EntryObject
)

// PtrEntry is one slot of the pointer compression table. Pos is the
// string index or the object's position in the document.
type PtrEntry struct {
	Kind EntryKind
	Key  string
	Pos  int
}

// PtrTable assigns 16-bit surrogate indices to read-only strings and
// objects so that compressed heap pointers can refer to them.
type PtrTable struct {
	first uint32
	next  uint32

	stringIndex map[string]uint16
	objectIndex map[string]uint16
	entries     []PtrEntry
}

// NewPtrTable creates a table whose first index is first.
func NewPtrTable(first int) *PtrTable {
	return &PtrTable{
		first:       uint32(first),
		next:        uint32(first),
		stringIndex: make(map[string]uint16),
		objectIndex: make(map[string]uint16),
	}
}

func (t *PtrTable) alloc(e PtrEntry) (uint16, error) {
	if t.next > ptrCompMax {
		return 0, fmt.Errorf("%w: %d entries from 0x%04x", ErrPtrCompOverflow, len(t.entries)+1, t.first)
	}
	idx := uint16(t.next)
	t.next++
	t.entries = append(t.entries, e)
	return idx, nil
}

// RegisterString assigns an index to a string.
// Returns the assigned index.
func (t *PtrTable) RegisterString(s string, pos int) (uint16, error) {
	if idx, ok := t.stringIndex[s]; ok {
		return idx, nil
	}
	idx, err := t.alloc(PtrEntry{Kind: EntryString, Key: s, Pos: pos})
	if err != nil {
		return 0, err
	}
	t.stringIndex[s] = idx
	return idx, nil
}

// LookupString returns the index for a string, or 0 and false if not found.
func (t *PtrTable) LookupString(s string) (uint16, bool) {
	idx, ok := t.stringIndex[s]
	return idx, ok
}

// RegisterObject assigns an index to an object id.
// Returns the assigned index.
func (t *PtrTable) RegisterObject(id string, pos int) (uint16, error) {
	if idx, ok := t.objectIndex[id]; ok {
		return idx, nil
	}
	idx, err := t.alloc(PtrEntry{Kind: EntryObject, Key: id, Pos: pos})
	if err != nil {
		return 0, err
	}
	t.objectIndex[id] = idx
	return idx, nil
}

// LookupObject returns the index for an object id, or 0 and false if not found.
func (t *PtrTable) LookupObject(id string) (uint16, bool) {
	idx, ok := t.objectIndex[id]
	return idx, ok
}

// First returns the index of the first entry.
func (t *PtrTable) First() int {
	return int(t.first)
}

// Entries returns the registered entries in index order.
func (t *PtrTable) Entries() []PtrEntry {
	return t.entries
}
