package graph

import (
	"fmt"
	"slices"

	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Finalize builds the cross-reference tables, checks that every magic
// value resolves against the final indices and freezes the document.
func Finalize(doc *meta.Document, st *Stats) error {
	if err := doc.CheckMutable(); err != nil {
		return err
	}

	strs := sequencedmap.New[string, int]()
	for _, s := range doc.Strings {
		if s.Index >= 0 {
			strs.Set(s.Str, s.Index)
		}
	}
	objs := sequencedmap.New[string, int]()
	for _, o := range doc.Objects {
		if o.Index >= 0 {
			objs.Set(o.ID, o.Index)
		}
	}
	doc.StringIndex = strs
	doc.ObjectIndex = objs
	doc.Natives, doc.NativeIndex = nativeTable(doc)
	st.Natives = len(doc.Natives) - 1

	r := magic.Final(doc.Bidx)
	for _, o := range doc.Objects {
		if _, err := r.Resolve(o.Magic); err != nil {
			return fmt.Errorf("object %s: magic %s: %w", o.ID, o.Magic, err)
		}
	}

	doc.Freeze()
	return nil
}

// nativeTable collects every native name, sorted, behind a reserved empty
// entry 0.
func nativeTable(doc *meta.Document) ([]string, *sequencedmap.Map[string, int]) {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, o := range doc.Objects {
		add(o.Native)
		for _, p := range o.Properties {
			if p.Value.Kind == meta.ValueLightfunc {
				add(p.Value.Lightfunc.Native)
			}
		}
	}
	slices.Sort(names)

	table := append([]string{""}, names...)
	index := sequencedmap.New[string, int]()
	for i, n := range table[1:] {
		index.Set(n, i+1)
	}
	return table, index
}
