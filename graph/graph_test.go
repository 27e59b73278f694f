package graph

import (
	"errors"
	"testing"

	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
)

const baseYAML = `
strings:
  - str: Object
    class_name: true
  - str: Function
    class_name: true
  - str: object
    stridx_used: true
  - str: unused
  - str: forced
    force_reachable: test
  - str: if
    reserved_word: true
  - str: do
    reserved_word: true
  - str: let
    reserved_word: true
    future_reserved_word_strict: true
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: Object
        value: {type: object, id: bi_object_constructor}
      - key: print
        value: {type: function, native: duk_bi_global_print, length: 0, varargs: true}
      - key: abs
        value: {type: function, native: duk_bi_math_abs, length: 1, magic: {type: math_onearg, funcname: fabs}}
  - id: bi_object_constructor
    class: Function
    internal_prototype: bi_function_prototype
    native: duk_bi_object_constructor
    callable: true
    constructable: true
    properties:
      - key: length
        value: 1
        attributes: c
      - key: prototype
        value: {type: object, id: bi_object_prototype}
        attributes: ""
  - id: bi_object_prototype
    class: Object
    bidx: true
    properties:
      - key: constructor
        value: {type: object, id: bi_object_constructor}
      - key: toString
        value: {type: function, native: duk_bi_object_to_string, length: 0}
  - id: bi_function_prototype
    class: Function
    internal_prototype: bi_object_prototype
    native: duk_bi_function_prototype
    callable: true
    bidx: true
  - id: bi_orphan
    class: Object
    properties:
      - key: unusedKey
        value: unused
`

func testProfile() meta.Profile {
	p := meta.DefaultProfile()
	p.Keywords = []string{"do", "if"}
	p.StrictKeywords = []string{"let"}
	return p
}

func loadDoc(t *testing.T, src string) *meta.Document {
	t.Helper()
	raw, err := meta.Parse("test.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc, _, err := meta.Load(raw, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return doc
}

func TestReachabilitySoundness(t *testing.T) {
	for _, target := range []Target{TargetPacked, TargetLiteral} {
		t.Run(string(target), func(t *testing.T) {
			doc := loadDoc(t, baseYAML)
			if _, err := Prepare(doc, Options{Target: target, Profile: testProfile()}); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if doc.Object("bi_orphan") != nil {
				t.Error("unreachable object survived")
			}
			if doc.String("unused") != nil {
				t.Error("string used only by a swept object survived")
			}
			if doc.String("forced") == nil {
				t.Error("forced string was swept")
			}
			for _, o := range doc.Objects {
				o.References(func(id string) {
					if doc.Object(id) == nil {
						t.Errorf("%s references swept object %s", o.ID, id)
					}
				})
			}
		})
	}
}

func TestOrderingInvariants(t *testing.T) {
	doc := loadDoc(t, baseYAML)
	prof := testProfile()
	st, err := Prepare(doc, Options{Target: TargetLiteral, Profile: prof})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	n := st.Strings
	for i, s := range doc.Strings[:n] {
		if s.Index != i {
			t.Fatalf("string %q index %d at position %d", s.Str, s.Index, i)
		}
		if !s.NeedsStridx() {
			t.Errorf("string %q without stridx binding in the indexed block", s.Str)
		}
	}
	if got := len(doc.Strings) - n; got != st.UnindexedStrings || got == 0 {
		t.Errorf("unindexed strings = %d, stats %d", got, st.UnindexedStrings)
	}
	for _, s := range doc.Strings[n:] {
		if s.Index != -1 || s.Define != "" {
			t.Errorf("unindexed string %q has index %d define %q", s.Str, s.Index, s.Define)
		}
	}
	if st.Index8Strings != 2 {
		t.Fatalf("index8 strings = %d, want 2", st.Index8Strings)
	}
	for _, s := range doc.Strings[:st.Index8Strings] {
		if !s.Index8 {
			t.Errorf("non 8-bit string %q in leading block", s.Str)
		}
	}
	tail := doc.Strings[n-3 : n]
	for i, want := range []string{"do", "if", "let"} {
		if tail[i].Str != want {
			t.Errorf("reserved block[%d] = %q, want %q", i, tail[i].Str, want)
		}
	}
	if !tail[2].StrictReservedWord {
		t.Error("strict word not last")
	}

	var ids []string
	for _, o := range doc.BidxObjects() {
		ids = append(ids, o.ID)
	}
	if len(ids) != 3 || ids[0] != "bi_global" || ids[1] != "bi_object_prototype" || ids[2] != "bi_function_prototype" {
		t.Errorf("bidx order = %v", ids)
	}
	if !doc.Frozen() {
		t.Error("document not frozen after Prepare")
	}
}

func TestPlainStringStaysUnindexed(t *testing.T) {
	src := `
strings:
  - str: plainKey
  - str: length
    stridx_used: true
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: plainKey
        value: 1
      - key: length
        value: 0
`
	doc := loadDoc(t, src)
	prof := testProfile()
	prof.Keywords, prof.StrictKeywords = nil, nil
	st, err := Prepare(doc, Options{Target: TargetPacked, Profile: prof})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if st.Strings != 1 || st.UnindexedStrings != 1 {
		t.Errorf("strings = %d indexed, %d unindexed; want 1, 1", st.Strings, st.UnindexedStrings)
	}
	s := doc.String("plainKey")
	if s == nil {
		t.Fatal("plainKey was swept")
	}
	if s.Index != -1 || s.Define != "" {
		t.Errorf("plainKey index %d define %q, want none", s.Index, s.Define)
	}
	if _, ok := doc.Stridx("plainKey"); ok {
		t.Error("plainKey resolves to a stridx")
	}
	if idx, ok := doc.Stridx("length"); !ok || idx != 0 {
		t.Errorf("stridx(length) = %d, %v", idx, ok)
	}
	if l := Layout(doc); l.NumStrings != 1 || l.StartReserved != 1 {
		t.Errorf("layout = %+v", l)
	}
}

func TestLiteralKeysWithoutDefines(t *testing.T) {
	src := `
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: config
        value: {type: structured, value: {fooBar: 1, foo_bar: 2}}
`
	doc := loadDoc(t, src)
	prof := testProfile()
	prof.Keywords, prof.StrictKeywords = nil, nil
	st, err := Prepare(doc, Options{Target: TargetLiteral, Profile: prof})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if st.Strings != 0 {
		t.Errorf("indexed strings = %d, want 0", st.Strings)
	}
	for _, key := range []string{"config", "fooBar", "foo_bar"} {
		s := doc.String(key)
		if s == nil {
			t.Errorf("key %q not backfilled", key)
			continue
		}
		if s.Index != -1 || s.Define != "" {
			t.Errorf("key %q index %d define %q, want none", key, s.Index, s.Define)
		}
	}
}

func TestIndex8Overflow(t *testing.T) {
	doc := loadDoc(t, baseYAML)
	prof := testProfile()
	prof.Index8Limit = 1
	_, err := Prepare(doc, Options{Target: TargetPacked, Profile: prof})
	if !errors.Is(err, ErrIndex8Overflow) {
		t.Fatalf("err = %v, want ErrIndex8Overflow", err)
	}
}

func TestKeywordMissing(t *testing.T) {
	doc := loadDoc(t, baseYAML)
	prof := testProfile()
	prof.Keywords = append(prof.Keywords, "while")
	_, err := Prepare(doc, Options{Target: TargetPacked, Profile: prof})
	if !errors.Is(err, ErrKeywordMissing) {
		t.Fatalf("err = %v, want ErrKeywordMissing", err)
	}

	doc = loadDoc(t, baseYAML)
	prof = testProfile()
	prof.Keywords, prof.StrictKeywords = []string{"do", "if", "let"}, nil
	_, err = Prepare(doc, Options{Target: TargetPacked, Profile: prof})
	if !errors.Is(err, ErrKeywordGroup) {
		t.Fatalf("err = %v, want ErrKeywordGroup", err)
	}
}

func TestDefines(t *testing.T) {
	doc := loadDoc(t, `
strings:
  - str: Object
    class_name: true
  - str: Function
    class_name: true
  - str: object
    stridx_used: true
  - str: toString
    stridx_used: true
  - str: ""
    stridx_used: true
  - str: {type: symbol, variant: hidden, string: Value}
    stridx_used: true
  - str: {type: symbol, variant: wellknown, string: Symbol.iterator}
    stridx_used: true
  - str: if
    reserved_word: true
  - str: do
    reserved_word: true
  - str: let
    reserved_word: true
    future_reserved_word_strict: true
objects:
  - id: bi_object_prototype
    class: Object
    bidx: true
    properties:
      - key: toString
        value: 1
      - key: to_string
        value: 2
`)
	if _, err := Prepare(doc, Options{Target: TargetLiteral, Profile: testProfile()}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	cases := map[string]string{
		"Object":                  "DUK_STRIDX_UC_OBJECT",
		"object":                  "DUK_STRIDX_LC_OBJECT",
		"toString":                "DUK_STRIDX_TO_STRING",
		"":                        "DUK_STRIDX_EMPTY_STRING",
		"\x82Value":               "DUK_STRIDX_INT_VALUE",
		"\x81Symbol.iterator\xff": "DUK_STRIDX_WELLKNOWN_SYMBOL_ITERATOR",
		"Function":                "DUK_STRIDX_FUNCTION",
	}
	for str, want := range cases {
		s := doc.String(str)
		if s == nil {
			t.Errorf("string %q missing", str)
			continue
		}
		if s.Define != want {
			t.Errorf("define of %q = %s, want %s", str, s.Define, want)
		}
	}
	if s := doc.String("to_string"); s == nil || s.Define != "" {
		t.Errorf("unindexed key to_string = %+v, want no define", s)
	}
	if d := doc.Object("bi_object_prototype").Define; d != "DUK_BIDX_OBJECT_PROTOTYPE" {
		t.Errorf("bidx define = %s", d)
	}
}

func TestMagicBidx(t *testing.T) {
	src := baseYAML + `
  - id: bi_typed
    class: Function
    internal_prototype: bi_function_prototype
    native: duk_bi_typed
    callable: true
    bidx: true
    magic: {type: bidx, id: bi_function_prototype}
`
	doc := loadDoc(t, src)
	if _, err := Prepare(doc, Options{Target: TargetPacked, Profile: testProfile()}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	got, err := Resolver(doc).Resolve(doc.Object("bi_typed").Magic)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want, _ := doc.Bidx("bi_function_prototype"); got != want {
		t.Errorf("magic = %d, want %d", got, want)
	}

	// The referenced object is not reachable and gets swept.
	doc = loadDoc(t, baseYAML+`
  - id: bi_typed
    class: Function
    internal_prototype: bi_function_prototype
    native: duk_bi_typed
    callable: true
    bidx: true
    magic: {type: bidx, id: bi_orphan}
`)
	_, err = Prepare(doc, Options{Target: TargetPacked, Profile: testProfile()})
	if !errors.Is(err, magic.ErrUnresolved) {
		t.Fatalf("err = %v, want magic.ErrUnresolved", err)
	}
}

func TestPromoteForPacked(t *testing.T) {
	doc := loadDoc(t, baseYAML)
	st, err := Prepare(doc, Options{Target: TargetPacked, Profile: testProfile()})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, ok := doc.Bidx("bi_object_constructor"); !ok {
		t.Error("constructor not promoted")
	}
	if st.Promoted != 1 {
		t.Errorf("promoted = %d, want 1", st.Promoted)
	}
	for _, key := range []string{"print", "abs"} {
		id := doc.Object("bi_global").Prop(key).Value.ID
		if doc.Object(id).Index >= 0 {
			t.Errorf("function property %s was promoted", key)
		}
	}
}

func TestConvertLightfuncs(t *testing.T) {
	src := baseYAML + `
  - id: bi_lf
    class: Object
    bidx: true
    properties:
      - key: big
        value: {type: function, native: duk_bi_big, length: 20}
      - key: ctor
        value: {type: function, native: duk_bi_ctor, length: 0, constructable: true}
      - key: idx
        value: {type: function, native: duk_bi_idx, length: 0, magic: {type: bidx, id: bi_global}}
      - key: off
        value: {type: function, native: duk_bi_off, length: 0}
        auto_lightfunc: false
`
	doc := loadDoc(t, src)
	st, err := Prepare(doc, Options{Target: TargetLiteral, Profile: testProfile(), Lightfuncs: true})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	g := doc.Object("bi_global")
	lf := g.Prop("print").Value
	if lf.Kind != meta.ValueLightfunc {
		t.Fatalf("print = %v, want lightfunc", lf.Kind)
	}
	if lf.Lightfunc.Flags() != 0x000f {
		t.Errorf("print flags = %#04x, want 0x000f", lf.Lightfunc.Flags())
	}
	abs := g.Prop("abs").Value
	if abs.Kind != meta.ValueLightfunc || abs.Lightfunc.Flags() != 0x0011 {
		t.Errorf("abs = %+v", abs)
	}
	o := doc.Object("bi_lf")
	for _, key := range []string{"big", "ctor", "idx", "off"} {
		if o.Prop(key).Value.Kind != meta.ValueObject {
			t.Errorf("%s converted to lightfunc", key)
		}
	}
	// Object and constructor point at the constructable Object constructor.
	want := map[string]int{rejectLength: 1, rejectConstructable: 3, rejectMagicIndex: 1}
	for reason, n := range want {
		if st.LightfuncRejects[reason] != n {
			t.Errorf("rejects[%q] = %d, want %d", reason, st.LightfuncRejects[reason], n)
		}
	}
	if doc.Natives[0] != "" {
		t.Errorf("native table entry 0 = %q", doc.Natives[0])
	}
	if _, ok := doc.Natidx("duk_bi_global_print"); !ok {
		t.Error("lightfunc native missing from native table")
	}
}

func TestStripConfigurable(t *testing.T) {
	doc := loadDoc(t, baseYAML)
	if _, err := Prepare(doc, Options{Target: TargetLiteral, Profile: testProfile()}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, o := range doc.Objects {
		for _, p := range o.Properties {
			if p.Attrs.Has(meta.AttrConfigurable) {
				t.Errorf("%s.%s still configurable", o.ID, p.Key)
			}
		}
	}
}
