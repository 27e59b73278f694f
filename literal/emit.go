package literal

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/builtingen/csrc"
	"github.com/chazu/builtingen/meta"
)

var orderMacros = map[meta.ByteOrder]string{
	meta.LittleEndian: "defined(DUK_USE_DOUBLE_LE)",
	meta.BigEndian:    "defined(DUK_USE_DOUBLE_BE)",
	meta.MixedEndian:  "defined(DUK_USE_DOUBLE_ME)",
}

// Output is the generated source and header text.
type Output struct {
	Source string
	Header string
}

// Emit renders one result per byte order into a single source file with
// a conditional block per order. All results must come from the same
// document.
func Emit(results []*Result, vis csrc.Visibility) Output {
	if len(results) == 0 {
		return Output{}
	}
	return Output{
		Source: emitSource(results, vis),
		Header: emitHeader(results[0]),
	}
}

func emitSource(results []*Result, vis csrc.Visibility) string {
	w := csrc.NewWriter()
	w.Comment("automatically generated read-only builtin data, do not edit")
	w.Blank()
	w.Raw(`#include "duk_internal.h"`)
	w.Blank()

	w.NativePrototypes(vis, results[0].Natives)
	w.Blank()

	w.If("defined(DUK_USE_HEAPPTR16)")
	w.Define("DUK__PTR(idx,ptr)", "((duk_uint16_t) (idx))")
	w.Else()
	w.Define("DUK__PTR(idx,ptr)", "((void *) (ptr))")
	w.Endif()
	w.Blank()

	for i, res := range results {
		if i == 0 {
			w.If(orderMacros[res.Order])
		} else {
			w.Elif(orderMacros[res.Order])
		}
		emitOrder(w, res)
	}
	w.Else()
	w.Raw("#error invalid endianness defines")
	w.Endif()
	return w.String()
}

func emitOrder(w *csrc.Writer, res *Result) {
	emitStrings(w, res)
	w.Blank()
	emitObjects(w, res)
	w.Blank()
	emitPtrs(w, res)
}

func strName(pos int) string { return fmt.Sprintf("duk_str_%d", pos) }
func objName(pos int) string { return fmt.Sprintf("duk_obj_%d", pos) }

func strPtr(r Ref) string {
	if !r.Valid() {
		return "NULL"
	}
	return fmt.Sprintf("DUK__PTR(0x%04x, &%s)", r.Ptr, strName(r.Pos))
}

func objPtr(r Ref) string {
	if !r.Valid() {
		return "NULL"
	}
	return fmt.Sprintf("DUK__PTR(0x%04x, &%s)", r.Ptr, objName(r.Pos))
}

func flagList(flags []string) string {
	if len(flags) == 0 {
		return "0"
	}
	return strings.Join(flags, " | ")
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func emitStrings(w *csrc.Writer, res *Result) {
	w.Comment("strings")
	var lens []int
	for _, s := range res.Strings {
		if !slices.Contains(lens, len(s.Str)) {
			lens = append(lens, len(s.Str))
		}
	}
	slices.Sort(lens)
	for _, n := range lens {
		w.Line("typedef struct duk_romstr_%d { duk_hstring hdr; duk_uint8_t data[%d]; } duk_romstr_%d;", n, n+1, n)
	}
	w.Blank()

	for _, s := range res.Strings {
		w.Line("DUK_INTERNAL const duk_romstr_%d %s = {{DUK__STRHDR(%s, 0x%08xUL, %s, %d, %d)}, %s};",
			len(s.Str), strName(s.Pos), flagList(s.Flags), s.Hash, strPtr(s.Next), len(s.Str), s.CharLen, cString(s.Str))
	}
	w.Blank()

	lookup := make([]string, len(res.Lookup))
	for i, r := range res.Lookup {
		lookup[i] = strPtr(r)
	}
	w.Array("DUK_INTERNAL const void * const duk_rom_strings_lookup", lookup)
	w.Blank()

	var stridx []string
	for _, s := range res.Strings {
		if s.Index >= 0 {
			stridx = append(stridx, "&"+strName(s.Pos)+".hdr")
		}
	}
	w.Array("DUK_INTERNAL const duk_hstring * const duk_rom_strings_stridx", stridx)
}

// cString quotes s as a C string literal. Bytes outside printable ASCII,
// quotes, backslashes and '?' (trigraphs) become three-digit octal escapes.
func cString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' || c == '?' {
			fmt.Fprintf(&sb, "\\%03o", c)
			continue
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func objType(o *ObjectEntry) string {
	if o.Function() {
		return "duk_romfun"
	}
	return "duk_romobj"
}

func emitObjects(w *csrc.Writer, res *Result) {
	w.Comment("objects")
	for i := range res.Objects {
		o := &res.Objects[i]
		w.Line("DUK_INTERNAL_DECL const %s %s;", objType(o), objName(o.Pos))
	}
	w.Blank()

	for _, sh := range res.Shapes {
		w.Line("typedef struct duk_romprops_%d {", sh.ID)
		w.Indent(1)
		for i, k := range sh.Kinds {
			if k == SlotAccessor {
				w.Line("duk_propaccessor v%d;", i)
			} else {
				w.Line("duk_tval v%d;", i)
			}
		}
		w.Line("const void *k[%d];", len(sh.Kinds))
		w.Line("duk_uint8_t f[%d];", len(sh.Kinds))
		w.Indent(-1)
		w.Line("} duk_romprops_%d;", sh.ID)
	}
	w.Blank()

	for i := range res.Objects {
		o := &res.Objects[i]
		if o.Shape < 0 {
			continue
		}
		w.Comment("%s", o.ID)
		w.Line("DUK_INTERNAL const duk_romprops_%d duk_props_%d = {", o.Shape, o.Pos)
		w.Indent(1)
		keys := make([]string, len(o.Props))
		attrs := make([]string, len(o.Props))
		for j, p := range o.Props {
			w.Line("%s,", propValue(p))
			keys[j] = strPtr(p.Key)
			attrs[j] = fmt.Sprintf("0x%02x", uint8(p.Attrs))
		}
		w.Line("{%s},", strings.Join(keys, ", "))
		w.Line("{%s}", strings.Join(attrs, ", "))
		w.Indent(-1)
		w.Line("};")
	}
	w.Blank()

	for i := range res.Objects {
		o := &res.Objects[i]
		props := "NULL"
		if o.Shape >= 0 {
			props = fmt.Sprintf("&duk_props_%d", o.Pos)
		}
		hdr := fmt.Sprintf("DUK__OBJHDR(%s, %s, %s, %d)", flagList(o.Flags), objPtr(o.Proto), props, len(o.Props))
		if o.Function() {
			nargs := fmt.Sprintf("%d", o.Nargs)
			if o.Varargs {
				nargs = "DUK_VARARGS"
			}
			w.Line("DUK_INTERNAL const duk_romfun %s = {%s, %s, %s, %d};", objName(o.Pos), hdr, o.Native, nargs, o.Magic)
		} else {
			w.Line("DUK_INTERNAL const duk_romobj %s = {%s};", objName(o.Pos), hdr)
		}
	}
	w.Blank()

	bidx := make([]string, len(res.Bidx))
	for i, r := range res.Bidx {
		bidx[i] = "(const duk_hobject *) &" + objName(r.Pos)
	}
	w.Array("DUK_INTERNAL const duk_hobject * const duk_rom_builtins_bidx", bidx)
}

func propValue(p PropEntry) string {
	switch p.Kind {
	case meta.ValueNull:
		return "DUK__TVAL_NULL()"
	case meta.ValueBoolean:
		if p.Bool {
			return "DUK__TVAL_BOOLEAN(1)"
		}
		return "DUK__TVAL_BOOLEAN(0)"
	case meta.ValueNumber:
		parts := make([]string, len(p.Double))
		for i, b := range p.Double {
			parts[i] = fmt.Sprintf("0x%02x", b)
		}
		return "DUK__TVAL_NUMBER(" + strings.Join(parts, ", ") + ")"
	case meta.ValueString:
		return "DUK__TVAL_STRING(" + strPtr(p.Target) + ")"
	case meta.ValueObject:
		return "DUK__TVAL_OBJECT(" + objPtr(p.Target) + ")"
	case meta.ValueAccessor:
		return fmt.Sprintf("DUK__ACCESSOR(%s, %s)", objPtr(p.Getter), objPtr(p.Setter))
	case meta.ValueLightfunc:
		return fmt.Sprintf("DUK__TVAL_LIGHTFUNC(%s, 0x%04x)", p.LightfuncNative, p.LightfuncFlags)
	}
	return "DUK__TVAL_UNDEFINED()"
}

// ---------------------------------------------------------------------------
// Pointer compression
// ---------------------------------------------------------------------------

func emitPtrs(w *csrc.Writer, res *Result) {
	w.If("defined(DUK_USE_HEAPPTR16)")
	items := make([]string, 0, len(res.Ptrs)+1)
	for _, p := range res.Ptrs {
		if p.Kind == EntryString {
			items = append(items, "(const void *) &"+strName(p.Pos))
		} else {
			items = append(items, "(const void *) &"+objName(p.Pos))
		}
	}
	items = append(items, "NULL")
	w.Array("DUK_INTERNAL const void * const duk_rom_compressed_pointers", items)
	w.Endif()
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

func emitHeader(res *Result) string {
	w := csrc.NewWriter()
	w.Comment("automatically generated read-only builtin data, do not edit")
	w.Blank()
	w.Raw("#if !defined(DUK_ROM_BUILTINS_H_INCLUDED)")
	w.Define("DUK_ROM_BUILTINS_H_INCLUDED", "")
	w.Blank()

	for _, s := range res.Strings {
		if s.Index >= 0 {
			w.Define(s.Define, s.Index)
		}
	}
	l := res.Layout
	w.Define("DUK_HEAP_NUM_STRINGS", l.NumStrings)
	w.Define("DUK_STRIDX_NUM_INDEX8", l.NumIndex8)
	w.Define("DUK_STRIDX_START_RESERVED", l.StartReserved)
	w.Define("DUK_STRIDX_START_STRICT_RESERVED", l.StartStrictReserved)
	w.Define("DUK_STRIDX_END_RESERVED", l.NumStrings)
	w.Define("DUK_STRTAB_ROMSTR_LOOKUP_SIZE", res.Buckets)
	w.Blank()

	for i := range res.Objects {
		if o := &res.Objects[i]; o.Index >= 0 {
			w.Define(o.Define, o.Index)
		}
	}
	w.Define("DUK_NUM_BUILTINS", len(res.Bidx))
	w.Define("DUK_NUM_BIDX_BUILTINS", len(res.Bidx))
	w.Define("DUK_NUM_ALL_BUILTINS", len(res.Objects))
	w.Blank()

	w.Define("DUK_USE_ROM_PTRCOMP_FIRST", fmt.Sprintf("%dL", res.PtrFirst))
	w.Define("DUK_ROM_PTRCOMP_COUNT", len(res.Ptrs))
	w.Blank()

	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const void * const duk_rom_strings_lookup[%d];", len(res.Lookup)))
	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const duk_hstring * const duk_rom_strings_stridx[%d];", res.Layout.NumStrings))
	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const duk_hobject * const duk_rom_builtins_bidx[%d];", len(res.Bidx)))
	w.If("defined(DUK_USE_HEAPPTR16)")
	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const void * const duk_rom_compressed_pointers[%d];", len(res.Ptrs)+1))
	w.Endif()
	w.Blank()
	w.Raw("#endif  /* DUK_ROM_BUILTINS_H_INCLUDED */")
	return w.String()
}
