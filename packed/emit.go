package packed

import (
	"fmt"

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

// Emit renders a packed result as C source and header text.
func Emit(res *Result, vis csrc.Visibility) Output {
	return Output{
		Source: emitSource(res, vis),
		Header: emitHeader(res),
	}
}

func emitSource(res *Result, vis csrc.Visibility) string {
	w := csrc.NewWriter()
	w.Comment("automatically generated builtin initialization data, do not edit")
	w.Blank()
	w.Raw(`#include "duk_internal.h"`)
	w.Blank()

	w.NativePrototypes(vis, res.Natives)
	w.Blank()
	items := make([]string, len(res.Natives))
	for i, n := range res.Natives {
		if n == "" {
			items[i] = "NULL"
		} else {
			items[i] = n
		}
	}
	w.Array("DUK_INTERNAL const duk_c_function duk_bi_native_functions", items)
	w.Blank()

	w.ByteArray("DUK_INTERNAL const duk_uint8_t duk_strings_data", res.StringsData)
	w.Blank()

	for i, order := range res.Orders {
		if i == 0 {
			w.If(orderMacros[order])
		} else {
			w.Elif(orderMacros[order])
		}
		w.ByteArray("DUK_INTERNAL const duk_uint8_t duk_builtins_data", res.ObjectsData[order])
	}
	w.Else()
	w.Raw("#error invalid endianness defines")
	w.Endif()
	return w.String()
}

func emitHeader(res *Result) string {
	w := csrc.NewWriter()
	w.Comment("automatically generated builtin initialization data, do not edit")
	w.Blank()
	w.Raw("#if !defined(DUK_BUILTINS_H_INCLUDED)")
	w.Define("DUK_BUILTINS_H_INCLUDED", "")
	w.Blank()

	w.Define("DUK_STRDATA_MAX_STRLEN", res.MaxStrLen)
	w.Define("DUK_STRDATA_DATA_LENGTH", len(res.StringsData))
	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const duk_uint8_t duk_strings_data[%d];", len(res.StringsData)))
	w.Blank()

	for _, d := range res.StringDefines {
		w.Define(d.Name, d.Index)
	}
	w.Define("DUK_HEAP_NUM_STRINGS", res.NumStrings)
	w.Define("DUK_STRIDX_NUM_INDEX8", res.NumIndex8)
	w.Define("DUK_STRIDX_START_RESERVED", res.StartReserved)
	w.Define("DUK_STRIDX_START_STRICT_RESERVED", res.StartStrictReserved)
	w.Define("DUK_STRIDX_END_RESERVED", res.NumStrings)
	w.Blank()

	for _, d := range res.ObjectDefines {
		w.Define(d.Name, d.Index)
	}
	w.Define("DUK_NUM_BUILTINS", res.NumBidx)
	w.Define("DUK_NUM_BIDX_BUILTINS", res.NumBidx)
	w.Define("DUK_NUM_ALL_BUILTINS", res.NumBidx)
	w.Blank()

	w.Raw(fmt.Sprintf("DUK_INTERNAL_DECL const duk_c_function duk_bi_native_functions[%d];", len(res.Natives)))
	for i, order := range res.Orders {
		if i == 0 {
			w.If(orderMacros[order])
		} else {
			w.Elif(orderMacros[order])
		}
		w.Define("DUK_BUILTINS_DATA_LENGTH", len(res.ObjectsData[order]))
	}
	w.Else()
	w.Raw("#error invalid endianness defines")
	w.Endif()
	w.Raw("DUK_INTERNAL_DECL const duk_uint8_t duk_builtins_data[DUK_BUILTINS_DATA_LENGTH];")
	w.Blank()
	w.Raw("#endif  /* DUK_BUILTINS_H_INCLUDED */")
	return w.String()
}
