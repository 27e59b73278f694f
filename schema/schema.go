// Package schema checks metadata documents against the CUE schema of the
// builtin metadata format before they are decoded.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/tliron/commonlog"
)

//go:embed builtins.cue
var source string

var ErrInvalid = errors.New("metadata does not match schema")

var log = commonlog.GetLogger("builtingen.schema")

// Validator holds a compiled schema. A Validator is not safe for
// concurrent use.
type Validator struct {
	ctx *cue.Context
	doc cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source, cue.Filename("builtins.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	doc := v.LookupPath(cue.ParsePath("#Document"))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &Validator{ctx: ctx, doc: doc}, nil
}

// Validate checks one YAML document. name is used in error messages.
func (v *Validator) Validate(name string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	f, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", name, ErrInvalid, err)
	}
	val := v.ctx.BuildFile(f)
	if err := val.Err(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, ErrInvalid, details(err))
	}
	if err := v.doc.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: %w: %s", name, ErrInvalid, details(err))
	}
	log.Debugf("%s matches schema", name)
	return nil
}

func details(err error) string {
	return string(bytes.TrimSpace([]byte(cueerrors.Details(err, nil))))
}
