package packed

import (
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/meta"
)

// Define is one named index constant.
type Define struct {
	Name  string
	Index int
}

// Result holds everything the packed form emits.
type Result struct {
	StringsData []byte
	// ObjectsData holds the object blob per byte order. Only doubles
	// differ between orders.
	ObjectsData map[meta.ByteOrder][]byte
	Orders      []meta.ByteOrder
	Natives     []string

	NumStrings int
	NumBidx    int
	MaxStrLen  int
	NumIndex8  int

	// First indices of the reserved word blocks.
	StartReserved       int
	StartStrictReserved int

	StringDefines []Define
	ObjectDefines []Define

	// Warnings counts values degraded to undefined.
	Warnings int
}

func (r *Result) fillScalars(doc *meta.Document) {
	l := graph.Layout(doc)
	r.NumStrings = l.NumStrings
	r.NumIndex8 = l.NumIndex8
	r.StartReserved = l.StartReserved
	r.StartStrictReserved = l.StartStrictReserved
	for _, s := range stridxStrings(doc) {
		r.StringDefines = append(r.StringDefines, Define{Name: s.Define, Index: s.Index})
	}
	for _, o := range doc.BidxObjects() {
		r.ObjectDefines = append(r.ObjectDefines, Define{Name: o.Define, Index: o.Index})
	}
	r.NumBidx = len(r.ObjectDefines)
}

// Size returns the total blob size in bytes for one byte order.
func (r *Result) Size(order meta.ByteOrder) int {
	return len(r.StringsData) + len(r.ObjectsData[order])
}
