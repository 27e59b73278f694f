package meta

import (
	"errors"
	"fmt"
)

// Profile holds the runtime constants the generated data must agree with.
type Profile struct {
	// Index8Limit caps the strings addressable with 8-bit indices.
	Index8Limit int `toml:"index8_limit" json:"index8_limit"`
	// StrTableBuckets is the literal-form string lookup bucket count.
	StrTableBuckets int `toml:"strtab_buckets" json:"strtab_buckets"`
	// PtrCompFirst is the first surrogate index of the compression table.
	PtrCompFirst int    `toml:"ptrcomp_first" json:"ptrcomp_first"`
	HashSeed     uint32 `toml:"hash_seed" json:"hash_seed"`
	StrHashDense bool   `toml:"strhash_dense" json:"strhash_dense"`
	StrHash16    bool   `toml:"strhash16" json:"strhash16"`
	SkipShift    int    `toml:"strhash_skip_shift" json:"strhash_skip_shift"`
	// Keywords lists the reserved words in runtime order. StrictKeywords
	// follow them and are reserved in strict mode only.
	Keywords       []string `toml:"keywords" json:"keywords"`
	StrictKeywords []string `toml:"strict_keywords" json:"strict_keywords"`
}

var defaultKeywords = []string{
	"break", "case", "catch", "continue", "debugger", "default", "delete",
	"do", "else", "finally", "for", "function", "if", "in", "instanceof",
	"new", "return", "switch", "this", "throw", "try", "typeof", "var",
	"const", "void", "while", "with", "class", "enum", "export", "extends",
	"import", "super", "null", "true", "false",
}

var defaultStrictKeywords = []string{
	"implements", "interface", "let", "package", "private", "protected",
	"public", "static", "yield",
}

// DefaultProfile returns the profile of the stock runtime build.
func DefaultProfile() Profile {
	return Profile{
		Index8Limit:     256,
		StrTableBuckets: 256,
		PtrCompFirst:    0xf800,
		HashSeed:        0xabcdef01,
		SkipShift:       5,
		Keywords:        append([]string(nil), defaultKeywords...),
		StrictKeywords:  append([]string(nil), defaultStrictKeywords...),
	}
}

// ErrProfile reports an invalid profile.
var ErrProfile = errors.New("invalid profile")

// Validate checks the profile's constants.
func (p *Profile) Validate() error {
	switch {
	case p.Index8Limit <= 0 || p.Index8Limit > 256:
		return fmt.Errorf("%w: index8_limit %d not in 1..256", ErrProfile, p.Index8Limit)
	case p.StrTableBuckets <= 0 || p.StrTableBuckets&(p.StrTableBuckets-1) != 0:
		return fmt.Errorf("%w: strtab_buckets %d is not a power of two", ErrProfile, p.StrTableBuckets)
	case p.PtrCompFirst < 0 || p.PtrCompFirst > 0xffff:
		return fmt.Errorf("%w: ptrcomp_first %#x exceeds 0xffff", ErrProfile, p.PtrCompFirst)
	case p.SkipShift < 0 || p.SkipShift > 31:
		return fmt.Errorf("%w: strhash_skip_shift %d", ErrProfile, p.SkipShift)
	case len(p.Keywords) == 0:
		return fmt.Errorf("%w: empty keyword list", ErrProfile)
	}
	seen := make(map[string]bool)
	for _, kw := range p.AllKeywords() {
		if seen[kw] {
			return fmt.Errorf("%w: keyword %q listed twice", ErrProfile, kw)
		}
		seen[kw] = true
	}
	return nil
}

// AllKeywords returns the full reserved word block: non-strict words then
// strict-only words.
func (p *Profile) AllKeywords() []string {
	out := make([]string, 0, len(p.Keywords)+len(p.StrictKeywords))
	out = append(out, p.Keywords...)
	return append(out, p.StrictKeywords...)
}
