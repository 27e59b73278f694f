package csrc

import (
	"fmt"
	"strings"
)

// Visibility classifies native functions by the storage class their
// prototypes are declared with.
type Visibility interface {
	Decl(native string) string
}

// PrefixVisibility declares natives carrying InternalPrefix with
// InternalDecl and everything else with ExternalDecl.
type PrefixVisibility struct {
	InternalPrefix string
	InternalDecl   string
	ExternalDecl   string
}

// DefaultVisibility treats the runtime's own duk_ natives as internal and
// user-provided natives as external.
var DefaultVisibility = PrefixVisibility{
	InternalPrefix: "duk_",
	InternalDecl:   "DUK_INTERNAL_DECL",
	ExternalDecl:   "DUK_EXTERNAL_DECL",
}

// Decl returns the storage class for native.
func (v PrefixVisibility) Decl(native string) string {
	if strings.HasPrefix(native, v.InternalPrefix) {
		return v.InternalDecl
	}
	return v.ExternalDecl
}

// NativePrototypes writes one prototype per native name. Entry names that
// are empty are skipped.
func (w *Writer) NativePrototypes(v Visibility, natives []string) {
	for _, n := range natives {
		if n == "" {
			continue
		}
		w.Raw(fmt.Sprintf("%s duk_ret_t %s(duk_context *ctx);", v.Decl(n), n))
	}
}
