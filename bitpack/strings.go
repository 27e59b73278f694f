package bitpack

import (
	"fmt"
	"strings"
)

// 5-bit symbols of the packed string alphabet. Symbols below letterLimit
// are letters in the current case mode.
const (
	letterLimit = 26
	symLookup1  = 26 // 3-bit index into Lookup[0:8]
	symLookup2  = 27 // 3-bit index into Lookup[8:16]
	symSwitch1  = 28 // next letter uses the other case
	symSwitch   = 29 // toggle case mode, then a letter
	symUnused   = 30
	symEightBit = 31 // followed by a raw 8-bit byte
)

// Lookup is the shared table reached through the two lookup escapes. The
// runtime decoder carries an identical table.
const Lookup = "0123456789_ \x82\x80\"{"

const (
	shortLenBits  = 5
	shortLenLimit = 31 // lengths >= this use the escape + 8-bit length
	// MaxStringLen is the longest string the length prefix can express.
	MaxStringLen = 255
)

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// PackString appends s to w. The encoder starts in lowercase mode. A case
// change uses a persistent switch when the following character has the
// same case as the current one, and a one-shot switch otherwise.
func PackString(w *Writer, s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	if len(s) < shortLenLimit {
		w.Bits(uint32(len(s)), shortLenBits)
	} else {
		w.Bits(shortLenLimit, shortLenBits)
		w.Bits(uint32(len(s)), 8)
	}

	upper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		lower, up := isLower(c), isUpper(c)
		switch {
		case lower || up:
			if up != upper {
				next := i+1 < len(s) && (up && isUpper(s[i+1]) || lower && isLower(s[i+1]))
				if next {
					w.Bits(symSwitch, 5)
					upper = !upper
				} else {
					w.Bits(symSwitch1, 5)
				}
			}
			if up {
				w.Bits(uint32(c-'A'), 5)
			} else {
				w.Bits(uint32(c-'a'), 5)
			}
		case strings.IndexByte(Lookup, c) >= 0:
			idx := strings.IndexByte(Lookup, c)
			if idx < 8 {
				w.Bits(symLookup1, 5)
			} else {
				w.Bits(symLookup2, 5)
				idx -= 8
			}
			w.Bits(uint32(idx), 3)
		default:
			w.Bits(symEightBit, 5)
			w.Byte(c)
		}
	}
	return nil
}

// UnpackString reads one string written by PackString.
func UnpackString(r *Reader) (string, error) {
	n, err := r.Bits(shortLenBits)
	if err != nil {
		return "", err
	}
	if n == shortLenLimit {
		if n, err = r.Bits(8); err != nil {
			return "", err
		}
	}

	out := make([]byte, 0, n)
	upper := false
	letter := func(t uint32, up bool) (byte, error) {
		if t >= letterLimit {
			return 0, fmt.Errorf("%w: letter %d", ErrInvalidSymbol, t)
		}
		if up {
			return byte('A' + t), nil
		}
		return byte('a' + t), nil
	}

	for i := uint32(0); i < n; i++ {
		t, err := r.Bits(5)
		if err != nil {
			return "", err
		}
		var c byte
		switch {
		case t < letterLimit:
			c, err = letter(t, upper)
		case t == symSwitch1:
			if t, err = r.Bits(5); err == nil {
				c, err = letter(t, !upper)
			}
		case t == symSwitch:
			upper = !upper
			if t, err = r.Bits(5); err == nil {
				c, err = letter(t, upper)
			}
		case t == symEightBit:
			var v uint32
			v, err = r.Bits(8)
			c = byte(v)
		case t == symLookup1 || t == symLookup2:
			var idx uint32
			idx, err = r.Bits(3)
			if t == symLookup2 {
				idx += 8
			}
			c = Lookup[idx]
		default:
			err = fmt.Errorf("%w: %d", ErrInvalidSymbol, t)
		}
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	return string(out), nil
}

// PackedSize returns the number of bits PackString would write for s.
func PackedSize(s string) (int, error) {
	w := NewWriter()
	if err := PackString(w, s); err != nil {
		return 0, err
	}
	return w.Len(), nil
}
