package graph

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/builtingen/meta"
)

const (
	stridxPrefix = "DUK_STRIDX_"
	bidxPrefix   = "DUK_BIDX_"
)

// AssignDefines derives the external names of string and builtin indices.
// Strings whose names collide are told apart with UC_/LC_ prefixes by the
// case of their first letter. Unindexed strings get no name.
func AssignDefines(doc *meta.Document) error {
	if err := doc.CheckMutable(); err != nil {
		return err
	}
	var indexed []*meta.String
	for _, s := range doc.Strings {
		s.Define = ""
		if s.Index >= 0 {
			indexed = append(indexed, s)
		}
	}
	groups := make(map[string][]*meta.String)
	for _, s := range indexed {
		name := stringDefineBase(s.Str)
		groups[name] = append(groups[name], s)
		s.Define = name
	}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		for _, s := range group {
			s.Define = casePrefix(s.Str) + s.Define
		}
	}

	seen := make(map[string]string, len(indexed))
	for _, s := range indexed {
		s.Define = stridxPrefix + s.Define
		if prev, dup := seen[s.Define]; dup {
			return fmt.Errorf("%w: %s for %q and %q", ErrDefineCollision, s.Define, prev, s.Str)
		}
		seen[s.Define] = s.Str
	}

	for _, o := range doc.Objects {
		if o.Index < 0 {
			o.Define = ""
			continue
		}
		o.Define = bidxPrefix + strings.ToUpper(strings.TrimPrefix(o.ID, "bi_"))
		if prev, dup := seen[o.Define]; dup {
			return fmt.Errorf("%w: %s for %s and %s", ErrDefineCollision, o.Define, prev, o.ID)
		}
		seen[o.Define] = o.ID
	}
	return nil
}

// stringDefineBase converts a string to its define suffix: camelCase
// becomes CAMEL_CASE, dots become underscores, and symbol markers turn
// into INT_/WELLKNOWN_ style prefixes.
func stringDefineBase(str string) string {
	if str == "" {
		return "EMPTY_STRING"
	}
	if sym, ok := meta.DecodeSymbol(str); ok {
		prefix := map[string]string{
			meta.SymbolGlobal:     "GLOBAL_",
			meta.SymbolWellKnown:  "WELLKNOWN_",
			meta.SymbolHidden:     "INT_",
			meta.SymbolUserHidden: "USER_",
		}[sym.Variant]
		return prefix + snakeUpper(sym.String)
	}
	return snakeUpper(str)
}

func snakeUpper(str string) string {
	var sb strings.Builder
	var prev byte
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c >= 'A' && c <= 'Z':
			if i > 0 && (prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9') {
				sb.WriteByte('_')
			}
			sb.WriteByte(c)
		case c >= 'a' && c <= 'z':
			sb.WriteByte(c - 'a' + 'A')
		case c >= '0' && c <= '9', c == '_':
			sb.WriteByte(c)
		case c == '.' || c == ' ' || c == '-':
			sb.WriteByte('_')
		default:
			fmt.Fprintf(&sb, "X%02X", c)
		}
		prev = c
	}
	return sb.String()
}

func casePrefix(str string) string {
	if sym, ok := meta.DecodeSymbol(str); ok {
		str = sym.String
	}
	r, _ := utf8.DecodeRuneInString(str)
	switch {
	case unicode.IsUpper(r):
		return "UC_"
	case unicode.IsLower(r):
		return "LC_"
	}
	return ""
}
