package graph

import "github.com/chazu/builtingen/meta"

// StringLayout summarizes the string table ranges a finalized document
// exposes to the runtime.
type StringLayout struct {
	NumStrings int
	NumIndex8  int
	// First indices of the reserved word blocks; NumStrings when a block
	// is empty.
	StartReserved       int
	StartStrictReserved int
}

// Layout computes the string table ranges of an ordered document.
func Layout(doc *meta.Document) StringLayout {
	l := StringLayout{StartReserved: -1, StartStrictReserved: -1}
	for _, s := range doc.Strings {
		if s.Index < 0 {
			continue
		}
		l.NumStrings++
		if s.Index8 {
			l.NumIndex8++
		}
		if s.ReservedWord && l.StartReserved < 0 {
			l.StartReserved = s.Index
		}
		if s.StrictReservedWord && l.StartStrictReserved < 0 {
			l.StartStrictReserved = s.Index
		}
	}
	if l.StartReserved < 0 {
		l.StartReserved = l.NumStrings
	}
	if l.StartStrictReserved < 0 {
		l.StartStrictReserved = l.NumStrings
	}
	return l
}
