package literal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/builtingen/csrc"
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/meta"
)

const testYAML = `
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: pi
        value: 3.5
      - key: name
        value: {type: string, value: global}
      - key: size
        value: {type: accessor, getter: duk_bi_size_getter, setter: duk_bi_size_setter}
      - key: proto
        value: {type: object, id: bi_function_prototype}
  - id: bi_function_prototype
    class: Function
    native: duk_bi_function_prototype
    callable: true
    bidx: true
    properties:
      - key: pi
        value: 1
      - key: name
        value: x
  - id: bi_math
    class: Math
    bidx: true
    properties:
      - key: e
        value: 2.5
      - key: pi
        value: 3
`

func testProfile() meta.Profile {
	prof := meta.DefaultProfile()
	prof.Keywords, prof.StrictKeywords = nil, nil
	return prof
}

func prepare(t *testing.T) *meta.Document {
	t.Helper()
	return prepareSrc(t, testYAML)
}

func prepareSrc(t *testing.T, src string) *meta.Document {
	t.Helper()
	raw, err := meta.Parse("test.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc, _, err := meta.Load(raw, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := graph.Prepare(doc, graph.Options{Target: graph.TargetLiteral, Profile: testProfile()}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return doc
}

func encode(t *testing.T, doc *meta.Document, order meta.ByteOrder) *Result {
	t.Helper()
	res, err := Encode(doc, Options{Profile: testProfile(), Order: order})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return res
}

func objectByID(t *testing.T, res *Result, id string) *ObjectEntry {
	t.Helper()
	for i := range res.Objects {
		if res.Objects[i].ID == id {
			return &res.Objects[i]
		}
	}
	t.Fatalf("object %s not in result", id)
	return nil
}

func TestSparseHash(t *testing.T) {
	tests := []struct {
		s    string
		seed uint32
		want uint32
	}{
		{"", 0, 0},
		{"", 7, 7},
		{"a", 0, 1*33 + 'a'},
		// h = 2; h = 2*33+'b'; h = h*33+'a'
		{"ab", 0, (2*33+'b')*33 + 'a'},
	}
	for _, tt := range tests {
		if got := sparseHash([]byte(tt.s), tt.seed, 5); got != tt.want {
			t.Errorf("sparseHash(%q, %d) = %d, want %d", tt.s, tt.seed, got, tt.want)
		}
	}

	// Long strings are sampled.
	long := strings.Repeat("x", 64)
	if sparseHash([]byte(long), 0, 5) == sparseHash([]byte(long), 0, 1) {
		t.Error("skip shift does not affect sampling")
	}
}

func TestDenseHash(t *testing.T) {
	if got := denseHash(nil, 0, meta.LittleEndian); got != 0 {
		t.Errorf("empty string hash = %#x, want 0", got)
	}
	le := denseHash([]byte("abcd"), 1, meta.LittleEndian)
	be := denseHash([]byte("dcba"), 1, meta.BigEndian)
	if le != be {
		t.Errorf("word order: little %#x, big reversed %#x", le, be)
	}
	if denseHash([]byte("abcd"), 1, meta.MixedEndian) != le {
		t.Error("mixed-endian targets read integers little-endian")
	}
	if denseHash([]byte("abcde"), 1, meta.LittleEndian) == le {
		t.Error("tail byte ignored")
	}

	prof := testProfile()
	prof.StrHashDense = true
	prof.StrHash16 = true
	if h := StrHash("abcdefgh", prof, meta.LittleEndian); h > 0xffff {
		t.Errorf("16-bit hash = %#x", h)
	}
}

func TestLookupBucket(t *testing.T) {
	tests := []struct {
		s       string
		buckets int
		want    int
	}{
		{"", 256, 0},
		{"ab", 256, (2<<4 + 'a') & 255},
		{"ab", 16, (2<<4 + 'a') & 15},
		{strings.Repeat("z", 40), 256, (40<<4 + 'z') & 255},
	}
	for _, tt := range tests {
		if got := lookupBucket(tt.s, tt.buckets); got != tt.want {
			t.Errorf("lookupBucket(%q, %d) = %d, want %d", tt.s, tt.buckets, got, tt.want)
		}
	}
}

func TestPtrTable(t *testing.T) {
	pt := NewPtrTable(0xfffe)
	a, err := pt.RegisterString("a", 0)
	if err != nil || a != 0xfffe {
		t.Fatalf("RegisterString = %#x, %v", a, err)
	}
	if again, _ := pt.RegisterString("a", 0); again != a {
		t.Errorf("re-registration gave %#x, want %#x", again, a)
	}
	o, err := pt.RegisterObject("bi_global", 0)
	if err != nil || o != 0xffff {
		t.Fatalf("RegisterObject = %#x, %v", o, err)
	}
	if _, err := pt.RegisterObject("bi_math", 1); !errors.Is(err, ErrPtrCompOverflow) {
		t.Fatalf("err = %v, want ErrPtrCompOverflow", err)
	}
	if _, ok := pt.LookupObject("bi_math"); ok {
		t.Error("overflowed object is registered")
	}
	if got := len(pt.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
}

func TestCompressionOrder(t *testing.T) {
	doc := prepare(t)
	res := encode(t, doc, meta.LittleEndian)
	if len(res.Ptrs) != len(res.Strings)+len(res.Objects) {
		t.Fatalf("ptrs = %d, want %d", len(res.Ptrs), len(res.Strings)+len(res.Objects))
	}
	for i, p := range res.Ptrs {
		if i < len(res.Strings) {
			if p.Kind != EntryString || p.Pos != i {
				t.Errorf("ptr %d = %+v, want string %d", i, p, i)
			}
			if res.Strings[i].Ptr != uint16(res.PtrFirst+i) {
				t.Errorf("string %d ptr = %#x", i, res.Strings[i].Ptr)
			}
		} else if p.Kind != EntryObject {
			t.Errorf("ptr %d = %+v, want object", i, p)
		}
	}
}

func TestBucketChains(t *testing.T) {
	res := encode(t, prepare(t), meta.LittleEndian)
	seen := 0
	for b, head := range res.Lookup {
		prev := len(res.Strings)
		for r := head; r.Valid(); r = res.Strings[r.Pos].Next {
			s := res.Strings[r.Pos]
			if lookupBucket(s.Str, res.Buckets) != b {
				t.Errorf("%q chained in bucket %d", s.Str, b)
			}
			if r.Pos >= prev {
				t.Errorf("bucket %d chain not in reverse link order", b)
			}
			prev = r.Pos
			seen++
		}
	}
	if seen != len(res.Strings) {
		t.Errorf("chains reach %d strings, want %d", seen, len(res.Strings))
	}
}

func TestShapesAndValues(t *testing.T) {
	doc := prepare(t)
	res := encode(t, doc, meta.BigEndian)

	global := objectByID(t, res, "bi_global")
	fp := objectByID(t, res, "bi_function_prototype")
	math := objectByID(t, res, "bi_math")
	if len(res.Shapes) != 2 {
		t.Fatalf("shapes = %d, want 2", len(res.Shapes))
	}
	if fp.Shape != math.Shape || global.Shape == fp.Shape {
		t.Errorf("shapes: global %d, function prototype %d, math %d", global.Shape, fp.Shape, math.Shape)
	}
	if got := res.Shapes[global.Shape].Kinds; len(got) != 4 || got[2] != SlotAccessor {
		t.Errorf("global shape = %v", got)
	}

	pi := global.Props[0]
	want := [8]byte{0x40, 0x0c, 0, 0, 0, 0, 0, 0}
	if pi.Double != want {
		t.Errorf("pi = % x, want % x", pi.Double, want)
	}
	size := global.Props[2]
	if !size.Getter.Valid() || !size.Setter.Valid() {
		t.Errorf("accessor refs = %+v, %+v", size.Getter, size.Setter)
	}
	if size.Attrs != meta.AttrAccessor {
		t.Errorf("accessor attrs = %q, want %q", size.Attrs, meta.AttrAccessor)
	}
	if proto := global.Props[3]; proto.Target.Pos != fp.Pos {
		t.Errorf("proto target = %d, want %d", proto.Target.Pos, fp.Pos)
	}
	if !fp.Function() || fp.Native != "duk_bi_function_prototype" {
		t.Errorf("function prototype entry = %+v", fp)
	}
	if len(res.Bidx) != 3 {
		t.Errorf("bidx = %d, want 3", len(res.Bidx))
	}

	for _, s := range res.Strings {
		if s.Hash != StrHash(s.Str, testProfile(), meta.BigEndian) {
			t.Errorf("%q hash = %#x", s.Str, s.Hash)
		}
	}
}

func TestUnindexedStrings(t *testing.T) {
	doc := prepareSrc(t, `
strings:
  - str: name
    stridx_used: true
objects:
  - id: bi_global
    class: global
    bidx: true
    properties:
      - key: name
        value: global
      - key: config
        value: {type: structured, value: {fooBar: 1, foo_bar: 2}}
`)
	res := encode(t, doc, meta.LittleEndian)
	if res.Layout.NumStrings != 1 {
		t.Fatalf("indexed strings = %d, want 1", res.Layout.NumStrings)
	}
	indexed := 0
	for i, s := range res.Strings {
		if s.Pos != i {
			t.Errorf("%q at %d has pos %d", s.Str, i, s.Pos)
		}
		if s.Index >= 0 {
			indexed++
			if s.Str != "name" || s.Define != "DUK_STRIDX_NAME" {
				t.Errorf("indexed string %q define %q", s.Str, s.Define)
			}
		} else if s.Define != "" {
			t.Errorf("unindexed string %q has define %q", s.Str, s.Define)
		}
	}
	if indexed != 1 || len(res.Strings) < 5 {
		t.Errorf("strings = %d (%d indexed)", len(res.Strings), indexed)
	}

	out := Emit([]*Result{res}, csrc.DefaultVisibility)
	if !strings.Contains(out.Source, "duk_rom_strings_stridx[1]") {
		t.Error("stridx array covers unindexed strings")
	}
	if strings.Contains(out.Header, "FOO_BAR") {
		t.Error("unindexed key got a define")
	}
	if !strings.Contains(out.Header, "DUK_STRIDX_NAME") {
		t.Error("header misses DUK_STRIDX_NAME")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		value meta.Value
		attrs meta.Attrs
		want  error
	}{
		{"plain", meta.Number(1), meta.AttrWritable, nil},
		{"configurable", meta.Number(1), meta.AttrConfigurable, ErrConfigurableProperty},
		{"accessor without bit", meta.AccessorRef("g", ""), 0, ErrAccessorAttr},
		{"data with accessor bit", meta.Number(1), meta.AttrAccessor, ErrAccessorAttr},
		{"accessor", meta.AccessorRef("g", ""), meta.AttrAccessor, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := meta.NewDocument()
			o := meta.NewObject("bi_test", meta.ClassObject)
			o.Properties = []*meta.Property{{Key: "k", Value: tt.value, Attrs: tt.attrs}}
			if err := doc.AddObject(o); err != nil {
				t.Fatalf("AddObject: %v", err)
			}
			err := Validate(doc)
			if tt.want == nil && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeRequiresFrozen(t *testing.T) {
	if _, err := Encode(meta.NewDocument(), Options{Profile: testProfile()}); !errors.Is(err, ErrNotFrozen) {
		t.Fatalf("err = %v, want ErrNotFrozen", err)
	}
}

func TestArrayIndex(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"0", true},
		{"12", true},
		{"4294967294", true},
		{"4294967295", false},
		{"012", false},
		{"", false},
		{"1a", false},
	}
	for _, tt := range tests {
		if got := isArrayIndex(tt.s); got != tt.want {
			t.Errorf("isArrayIndex(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestCString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc", `"abc"`},
		{`a"b`, `"a\042b"`},
		{"??=", `"\077\077="`},
		{"\x82x", `"\202x"`},
	}
	for _, tt := range tests {
		if got := cString(tt.in); got != tt.want {
			t.Errorf("cString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// TestEmitGolden compares the emitted header against testdata. Missing
// golden files are created on first run.
func TestEmitGolden(t *testing.T) {
	doc := prepare(t)
	var results []*Result
	for _, o := range meta.ByteOrders {
		results = append(results, encode(t, doc, o))
	}
	out := Emit(results, csrc.DefaultVisibility)
	for _, frag := range []string{
		"#elif defined(DUK_USE_DOUBLE_ME)",
		"duk_rom_compressed_pointers",
		"DUK__ACCESSOR(DUK__PTR(",
		"DUK_INTERNAL_DECL duk_ret_t duk_bi_size_getter(duk_context *ctx);",
	} {
		if !strings.Contains(out.Source, frag) {
			t.Errorf("source missing %q", frag)
		}
	}

	goldenDir := filepath.Join("testdata")
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		t.Fatalf("create testdata dir: %v", err)
	}
	goldenPath := filepath.Join(goldenDir, "builtins_h.golden")
	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if writeErr := os.WriteFile(goldenPath, []byte(out.Header), 0o644); writeErr != nil {
			t.Fatalf("write golden file: %v", writeErr)
		}
		t.Logf("created golden file: %s", goldenPath)
		return
	}
	if out.Header != string(expected) {
		t.Errorf("header mismatch:\n  got:\n%s\n  want:\n%s", out.Header, expected)
	}
}
