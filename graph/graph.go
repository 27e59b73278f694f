// Package graph prunes the builtin object graph and assigns the string and
// object indices the runtime addresses builtins by.
//
// The passes run on an unfrozen meta.Document in a fixed order (see
// Prepare). Finalize builds the cross-reference tables and freezes the
// document for the codecs.
package graph

import (
	"errors"
	"fmt"

	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
	"github.com/tliron/commonlog"
)

var (
	ErrIndex8Overflow  = errors.New("too many strings need 8-bit indices")
	ErrKeywordMissing  = errors.New("reserved word missing from string table")
	ErrKeywordGroup    = errors.New("reserved word group mismatch")
	ErrDefineCollision = errors.New("define name collision")
)

var log = commonlog.GetLogger("builtingen.graph")

// Target selects the output form the graph is prepared for.
type Target string

const (
	TargetPacked  Target = "packed"
	TargetLiteral Target = "literal"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetPacked, TargetLiteral:
		return t, nil
	}
	return "", fmt.Errorf("unknown target %q", s)
}

// Stats counts what the graph passes did.
type Stats struct {
	Target            Target         `json:"target"`
	ObjectsSwept      int            `json:"objects_swept"`
	StringsSwept      int            `json:"strings_swept"`
	StringsBackfilled int            `json:"strings_backfilled"`
	Promoted          int            `json:"promoted"`
	Stripped          int            `json:"configurable_stripped"`
	Lightfuncs        int            `json:"lightfuncs"`
	LightfuncRejects  map[string]int `json:"lightfunc_rejects,omitempty"`
	Strings           int            `json:"strings"`
	UnindexedStrings  int            `json:"unindexed_strings"`
	Index8Strings     int            `json:"index8_strings"`
	ReservedWords     int            `json:"reserved_words"`
	Objects           int            `json:"objects"`
	BidxObjects       int            `json:"bidx_objects"`
	Natives           int            `json:"natives"`
}

// Options controls Prepare.
type Options struct {
	Target     Target
	Profile    meta.Profile
	Lightfuncs bool
}

// Prepare runs every pass for the target on doc and freezes it.
func Prepare(doc *meta.Document, opts Options) (*Stats, error) {
	st := &Stats{Target: opts.Target}
	if opts.Target == TargetLiteral && opts.Lightfuncs {
		if err := ConvertLightfuncs(doc, st); err != nil {
			return nil, fmt.Errorf("lightfuncs: %w", err)
		}
	}
	if opts.Target == TargetPacked {
		PromoteForPacked(doc, st)
	}

	rs := Mark(doc)
	if opts.Target == TargetLiteral {
		if err := Backfill(doc, rs, st); err != nil {
			return nil, fmt.Errorf("backfill: %w", err)
		}
	}
	if err := Sweep(doc, rs, st); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	if opts.Target == TargetLiteral {
		StripConfigurable(doc, st)
	}

	if err := OrderStrings(doc, opts.Profile, st); err != nil {
		return nil, fmt.Errorf("order strings: %w", err)
	}
	if err := OrderObjects(doc, st); err != nil {
		return nil, err
	}
	if err := AssignDefines(doc); err != nil {
		return nil, err
	}
	if err := Finalize(doc, st); err != nil {
		return nil, err
	}
	log.Infof("%s graph: %d objects (%d bidx), %d strings, %d natives",
		opts.Target, st.Objects, st.BidxObjects, st.Strings, st.Natives)
	return st, nil
}

// Resolver returns the final magic resolver for a finalized document.
func Resolver(doc *meta.Document) *magic.Resolver {
	return magic.Final(doc.Bidx)
}
