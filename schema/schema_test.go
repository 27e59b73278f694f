package schema

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"empty", "", true},
		{"minimal", `
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: NaN
        value: {type: double, bytes: "7ff8000000000000"}
        attributes: ""
      - key: {type: symbol, variant: wellknown, string: Symbol.iterator}
        value: {type: function, native: duk_bi_iter, length: 0}
strings:
  - str: if
    reserved_word: true
`, true},
		{"symbol string", `
strings:
  - str: {type: symbol, variant: hidden, string: Value}
    stridx_used: true
`, true},
		{"symbol without text", `
strings:
  - str: {type: symbol, variant: hidden, string: 5}
`, false},
		{"overlay", `
objects:
  - id: bi_math
    modify: true
    present_if: [DUK_USE_MATH_BUILTIN]
    magic: {type: bidx, id: bi_math}
`, true},
		{"missing id", `
objects:
  - class: Object
`, false},
		{"unknown object field", `
objects:
  - id: bi_x
    colour: red
`, false},
		{"bad attributes", `
objects:
  - id: bi_x
    properties:
      - key: a
        value: 1
        attributes: "ew"
`, false},
		{"bad action", `
objects:
  - id: bi_x
    action: upsert
`, false},
		{"bad symbol variant", `
strings:
  - str: {type: symbol, variant: secret, string: x}
`, false},
		{"negative nargs", `
objects:
  - id: bi_x
    nargs: -1
`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.name+".yaml", []byte(tt.src))
			if tt.valid && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}
