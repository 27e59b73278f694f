package graph

import (
	"fmt"
	"slices"

	"github.com/chazu/builtingen/meta"
)

// OrderStrings arranges the strings the runtime addresses by index into
// its string table layout and assigns string indices:
//
//	[8-bit strings][other strings][reserved words][strict reserved words]
//
// Reserved words follow the profile's keyword order exactly. Surviving
// strings without a stridx binding follow the indexed block with index -1.
func OrderStrings(doc *meta.Document, prof meta.Profile, st *Stats) error {
	var index8, other, plain []*meta.String
	reserved := make(map[string]*meta.String)
	for _, s := range doc.Strings {
		switch {
		case !s.NeedsStridx():
			plain = append(plain, s)
		case s.ReservedWord && s.Index8:
			return fmt.Errorf("%w: %q is both a reserved word and an 8-bit string", ErrKeywordGroup, s.Str)
		case s.ReservedWord:
			reserved[s.Str] = s
		case s.Index8:
			index8 = append(index8, s)
		default:
			other = append(other, s)
		}
	}
	if len(index8) > prof.Index8Limit {
		return fmt.Errorf("%w: %d strings, limit %d", ErrIndex8Overflow, len(index8), prof.Index8Limit)
	}

	pluck := func(words []string, strict bool) ([]*meta.String, error) {
		out := make([]*meta.String, 0, len(words))
		for _, w := range words {
			s, ok := reserved[w]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrKeywordMissing, w)
			}
			if s.StrictReservedWord != strict {
				return nil, fmt.Errorf("%w: %q strict=%t", ErrKeywordGroup, w, s.StrictReservedWord)
			}
			delete(reserved, w)
			out = append(out, s)
		}
		return out, nil
	}
	nonStrict, err := pluck(prof.Keywords, false)
	if err != nil {
		return err
	}
	strict, err := pluck(prof.StrictKeywords, true)
	if err != nil {
		return err
	}
	for _, s := range doc.Strings {
		if reserved[s.Str] != nil {
			return fmt.Errorf("%w: %q is not in the keyword list", ErrKeywordGroup, s.Str)
		}
	}

	ordered := make([]*meta.String, 0, len(doc.Strings))
	ordered = append(ordered, index8...)
	ordered = append(ordered, other...)
	ordered = append(ordered, nonStrict...)
	ordered = append(ordered, strict...)
	if err := doc.SetStrings(append(slices.Clip(ordered), plain...)); err != nil {
		return err
	}
	for i, s := range ordered {
		s.Index = i
	}
	for _, s := range plain {
		s.Index = -1
	}
	st.Strings = len(ordered)
	st.UnindexedStrings = len(plain)
	st.Index8Strings = len(index8)
	st.ReservedWords = len(nonStrict) + len(strict)
	return nil
}

// OrderObjects assigns builtin indices to index-bound objects in input
// order and moves them ahead of the other objects.
func OrderObjects(doc *meta.Document, st *Stats) error {
	var bidx, rest []*meta.Object
	for _, o := range doc.Objects {
		if o.BidxUsed {
			o.Index = len(bidx)
			bidx = append(bidx, o)
		} else {
			o.Index = -1
			rest = append(rest, o)
		}
	}
	if err := doc.SetObjects(append(bidx, rest...)); err != nil {
		return err
	}
	st.Objects = len(doc.Objects)
	st.BidxObjects = len(bidx)
	return nil
}
