package csrc

import (
	"strings"
	"testing"
)

func TestByteArray(t *testing.T) {
	w := NewWriter()
	data := make([]byte, 17)
	for i := range data {
		data[i] = byte(i)
	}
	w.ByteArray("const duk_uint8_t duk_test_data", data)
	want := "const duk_uint8_t duk_test_data[17] = {\n" +
		"\t0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,\n" +
		"\t16\n" +
		"};\n"
	if got := w.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestArrayAndConditionals(t *testing.T) {
	w := NewWriter()
	w.If("defined(DUK_USE_DOUBLE_LE)")
	w.Array("static const char *names", []string{`"a"`, `"b"`})
	w.Endif()
	got := w.String()
	for _, frag := range []string{"#if defined(DUK_USE_DOUBLE_LE)\n", "names[2] = {\n", "\t\"a\",\n", "\t\"b\"\n", "#endif\n"} {
		if !strings.Contains(got, frag) {
			t.Errorf("output missing %q:\n%s", frag, got)
		}
	}
}

func TestVisibility(t *testing.T) {
	w := NewWriter()
	w.NativePrototypes(DefaultVisibility, []string{"", "duk_bi_math_abs", "my_native"})
	want := "DUK_INTERNAL_DECL duk_ret_t duk_bi_math_abs(duk_context *ctx);\n" +
		"DUK_EXTERNAL_DECL duk_ret_t my_native(duk_context *ctx);\n"
	if got := w.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
