package meta

import "fmt"

// Symbol is the YAML descriptor of a symbol-valued key or string.
type Symbol struct {
	Type    string `yaml:"type"`
	Variant string `yaml:"variant"`
	String  string `yaml:"string"`
}

// Symbol variants.
const (
	SymbolGlobal     = "global"
	SymbolWellKnown  = "wellknown"
	SymbolHidden     = "hidden"
	SymbolUserHidden = "userhidden"
)

// Marker bytes of the runtime's internal symbol representation.
const (
	markerGlobal     = 0x80
	markerWellKnown  = 0x81
	markerHidden     = 0x82
	markerUserHidden = 0xff
)

// Encode returns the internal byte string for the symbol.
func (s Symbol) Encode() (string, error) {
	switch s.Variant {
	case SymbolGlobal:
		return string([]byte{markerGlobal}) + s.String, nil
	case SymbolWellKnown:
		return string([]byte{markerWellKnown}) + s.String + string([]byte{0xff}), nil
	case SymbolHidden:
		return string([]byte{markerHidden}) + s.String, nil
	case SymbolUserHidden:
		return string([]byte{markerUserHidden}) + s.String, nil
	}
	return "", fmt.Errorf("%w: unknown symbol variant %q", ErrSchema, s.Variant)
}

// DecodeSymbol is the inverse of Encode. ok is false for plain strings.
func DecodeSymbol(str string) (sym Symbol, ok bool) {
	if str == "" {
		return Symbol{}, false
	}
	body := str[1:]
	switch str[0] {
	case markerGlobal:
		return Symbol{Type: "symbol", Variant: SymbolGlobal, String: body}, true
	case markerWellKnown:
		if n := len(body); n > 0 && body[n-1] == 0xff {
			body = body[:n-1]
		}
		return Symbol{Type: "symbol", Variant: SymbolWellKnown, String: body}, true
	case markerHidden:
		return Symbol{Type: "symbol", Variant: SymbolHidden, String: body}, true
	case markerUserHidden:
		return Symbol{Type: "symbol", Variant: SymbolUserHidden, String: body}, true
	}
	return Symbol{}, false
}
