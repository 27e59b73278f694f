package graph

import (
	"github.com/chazu/builtingen/meta"
)

// ReachSet records the objects and strings that survive the sweep.
type ReachSet struct {
	Objects map[string]bool
	Strings map[string]bool
}

// Mark computes reachability. Roots are bidx objects; the walk follows
// internal prototypes and property object, getter and setter references.
// Strings are reachable when a surviving object uses them as a key or a
// string value, or when they are declared as roots.
func Mark(doc *meta.Document) *ReachSet {
	rs := &ReachSet{Objects: make(map[string]bool), Strings: make(map[string]bool)}

	var work []string
	visit := func(id string) {
		if rs.Objects[id] {
			return
		}
		rs.Objects[id] = true
		work = append(work, id)
	}
	for _, o := range doc.Objects {
		if o.BidxUsed {
			visit(o.ID)
		}
	}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if o := doc.Object(id); o != nil {
			o.References(visit)
		}
	}

	for _, o := range doc.Objects {
		if !rs.Objects[o.ID] {
			continue
		}
		for _, p := range o.Properties {
			rs.Strings[p.Key] = true
			if p.Value.Kind == meta.ValueString {
				rs.Strings[p.Value.Str] = true
			}
		}
	}
	for _, s := range doc.Strings {
		if s.IsRoot() {
			rs.Strings[s.Str] = true
		}
	}
	return rs
}

// Backfill declares every string a surviving property uses but the
// document lacks. The literal form addresses all keys and string values
// through the string table.
func Backfill(doc *meta.Document, rs *ReachSet, st *Stats) error {
	add := func(str string) error {
		if doc.String(str) != nil {
			return nil
		}
		s := meta.NewString(str)
		s.ForceReachable = "literal"
		if _, err := doc.MergeString(s); err != nil {
			return err
		}
		rs.Strings[str] = true
		st.StringsBackfilled++
		log.Debugf("backfilled string %q", str)
		return nil
	}
	for _, o := range doc.Objects {
		if !rs.Objects[o.ID] {
			continue
		}
		for _, p := range o.Properties {
			if err := add(p.Key); err != nil {
				return err
			}
			if p.Value.Kind == meta.ValueString {
				if err := add(p.Value.Str); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Sweep drops everything outside rs.
func Sweep(doc *meta.Document, rs *ReachSet, st *Stats) error {
	objs, err := doc.RemoveObjects(func(o *meta.Object) bool {
		return !rs.Objects[o.ID]
	})
	if err != nil {
		return err
	}
	for _, o := range objs {
		log.Debugf("swept unreachable object %s", o.ID)
	}
	strs, err := doc.RemoveStrings(func(s *meta.String) bool {
		return !rs.Strings[s.Str]
	})
	if err != nil {
		return err
	}
	for _, s := range strs {
		log.Debugf("swept unreachable string %q", s.Str)
	}
	st.ObjectsSwept += len(objs)
	st.StringsSwept += len(strs)
	return nil
}
