// Package dump writes a finalized builtin document as JSON or canonical
// CBOR for inspection and diffing between runs.
package dump

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/chazu/builtingen/magic"
	"github.com/chazu/builtingen/meta"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Document is the serialized form of a finalized meta.Document.
type Document struct {
	Target  string   `json:"target" cbor:"target"`
	Strings []String `json:"strings" cbor:"strings"`
	Objects []Object `json:"objects" cbor:"objects"`
	Natives []string `json:"natives" cbor:"natives"`
}

// String is one string table entry. Bytes carries the raw form of
// strings that are not valid UTF-8, such as symbols.
type String struct {
	Index  int    `json:"index" cbor:"index"`
	Str    string `json:"str" cbor:"str"`
	Bytes  string `json:"bytes,omitempty" cbor:"bytes,omitempty"`
	Define string `json:"define" cbor:"define"`
	Flags  string `json:"flags,omitempty" cbor:"flags,omitempty"`
}

// Object is one object declaration.
type Object struct {
	ID                string            `json:"id" cbor:"id"`
	Index             int               `json:"index" cbor:"index"`
	Define            string            `json:"define,omitempty" cbor:"define,omitempty"`
	Class             string            `json:"class" cbor:"class"`
	InternalPrototype string            `json:"internal_prototype,omitempty" cbor:"internal_prototype,omitempty"`
	Native            string            `json:"native,omitempty" cbor:"native,omitempty"`
	Nargs             *int              `json:"nargs,omitempty" cbor:"nargs,omitempty"`
	Varargs           bool              `json:"varargs,omitempty" cbor:"varargs,omitempty"`
	Magic             *magic.Descriptor `json:"magic,omitempty" cbor:"magic,omitempty"`
	Callable          bool              `json:"callable,omitempty" cbor:"callable,omitempty"`
	Constructable     bool              `json:"constructable,omitempty" cbor:"constructable,omitempty"`
	SpecialCall       bool              `json:"special_call,omitempty" cbor:"special_call,omitempty"`
	Properties        []Property        `json:"properties,omitempty" cbor:"properties,omitempty"`
}

// Property is one property of an object.
type Property struct {
	Key      string `json:"key" cbor:"key"`
	KeyBytes string `json:"key_bytes,omitempty" cbor:"key_bytes,omitempty"`
	Attrs    string `json:"attributes" cbor:"attributes"`
	Value    Value  `json:"value" cbor:"value"`
}

// Value is a property value. Numbers always carry their IEEE-754 bytes;
// Number is omitted for NaN and infinities.
type Value struct {
	Type      string          `json:"type" cbor:"type"`
	Bool      bool            `json:"bool,omitempty" cbor:"bool,omitempty"`
	Number    *float64        `json:"number,omitempty" cbor:"number,omitempty"`
	Double    string          `json:"double,omitempty" cbor:"double,omitempty"`
	Str       string          `json:"str,omitempty" cbor:"str,omitempty"`
	StrBytes  string          `json:"str_bytes,omitempty" cbor:"str_bytes,omitempty"`
	ID        string          `json:"id,omitempty" cbor:"id,omitempty"`
	Getter    string          `json:"getter,omitempty" cbor:"getter,omitempty"`
	Setter    string          `json:"setter,omitempty" cbor:"setter,omitempty"`
	Lightfunc *meta.Lightfunc `json:"lightfunc,omitempty" cbor:"lightfunc,omitempty"`
}

// text returns s and, for strings that are not valid UTF-8, their hex
// bytes.
func text(s string) (string, string) {
	if utf8.ValidString(s) {
		return s, ""
	}
	return strings.ToValidUTF8(s, "�"), hex.EncodeToString([]byte(s))
}

// Snapshot converts a document into its serialized form.
func Snapshot(doc *meta.Document, target string) *Document {
	d := &Document{Target: target, Natives: doc.Natives}
	for _, s := range doc.Strings {
		ds := String{Index: s.Index, Define: s.Define}
		ds.Str, ds.Bytes = text(s.Str)
		var flags []string
		if s.Index8 {
			flags = append(flags, "index8")
		}
		if s.ReservedWord {
			flags = append(flags, "reserved")
		}
		if s.StrictReservedWord {
			flags = append(flags, "strict")
		}
		if s.StridxUsed {
			flags = append(flags, "stridx")
		}
		ds.Flags = strings.Join(flags, ",")
		d.Strings = append(d.Strings, ds)
	}
	for _, o := range doc.Objects {
		do := Object{
			ID:                o.ID,
			Index:             o.Index,
			Define:            o.Define,
			Class:             o.Class.String(),
			InternalPrototype: o.InternalPrototype,
			Native:            o.Native,
			Nargs:             o.Nargs,
			Varargs:           o.Varargs,
			Magic:             o.Magic,
			Callable:          o.Callable,
			Constructable:     o.Constructable,
			SpecialCall:       o.SpecialCall,
		}
		for _, p := range o.Properties {
			dp := Property{Attrs: p.Attrs.String(), Value: value(p.Value)}
			dp.Key, dp.KeyBytes = text(p.Key)
			do.Properties = append(do.Properties, dp)
		}
		d.Objects = append(d.Objects, do)
	}
	return d
}

func value(v meta.Value) Value {
	out := Value{Type: v.Kind.String()}
	switch v.Kind {
	case meta.ValueBoolean:
		out.Bool = v.Bool
	case meta.ValueNumber:
		b := v.DoubleBytes()
		out.Double = hex.EncodeToString(b[:])
		if f := v.Number; len(v.Raw) == 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out.Number = &f
		}
	case meta.ValueString:
		out.Str, out.StrBytes = text(v.Str)
	case meta.ValueObject:
		out.ID = v.ID
	case meta.ValueAccessor:
		out.Getter, out.Setter = v.Getter, v.Setter
	case meta.ValueLightfunc:
		out.Lightfunc = v.Lightfunc
	}
	return out
}

// WriteJSON writes d as indented JSON.
func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// MarshalCBOR serializes d to canonical CBOR bytes.
func MarshalCBOR(d *Document) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalCBOR deserializes a Document from CBOR bytes.
func UnmarshalCBOR(data []byte) (*Document, error) {
	var d Document
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("dump: unmarshal document: %w", err)
	}
	return &d, nil
}

// WriteFile writes d to path: CBOR for a .cbor extension, JSON otherwise.
func WriteFile(path string, d *Document) error {
	if filepath.Ext(path) == ".cbor" {
		data, err := MarshalCBOR(d)
		if err != nil {
			return fmt.Errorf("dump: marshal: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
