package meta

import (
	"encoding/hex"
	"fmt"

	"github.com/chazu/builtingen/magic"
	"go.yaml.in/yaml/v3"
)

// ---------------------------------------------------------------------------
// YAML decoding of metadata documents
// ---------------------------------------------------------------------------

func nodeError(node *yaml.Node, base error, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", base, node.Line, fmt.Sprintf(format, args...))
}

// UnmarshalYAML accepts a single option name or a list of names.
func (p *PresentIf) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*p = PresentIf{s}
		return nil
	case yaml.SequenceNode:
		var l []string
		if err := node.Decode(&l); err != nil {
			return err
		}
		*p = l
		return nil
	}
	return nodeError(node, ErrSchema, "invalid present_if")
}

type yamlObject struct {
	ID                string            `yaml:"id"`
	Class             string            `yaml:"class"`
	InternalPrototype string            `yaml:"internal_prototype"`
	Properties        []*Property       `yaml:"properties"`
	Native            string            `yaml:"native"`
	Nargs             *int              `yaml:"nargs"`
	Varargs           bool              `yaml:"varargs"`
	Magic             *magic.Descriptor `yaml:"magic"`
	Callable          bool              `yaml:"callable"`
	Constructable     bool              `yaml:"constructable"`
	SpecialCall       bool              `yaml:"special_call"`
	Bidx              bool              `yaml:"bidx"`
	PresentIf         PresentIf         `yaml:"present_if"`
	Disable           bool              `yaml:"disable"`

	Action  Action `yaml:"action"`
	Add     bool   `yaml:"add"`
	Replace bool   `yaml:"replace"`
	Delete  bool   `yaml:"delete"`
	Modify  bool   `yaml:"modify"`
}

// UnmarshalYAML decodes an object declaration and records which top-level
// keys it sets.
func (o *Object) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nodeError(node, ErrSchema, "object must be a mapping")
	}
	var y yamlObject
	if err := node.Decode(&y); err != nil {
		return err
	}
	if y.ID == "" {
		return nodeError(node, ErrSchema, "object without id")
	}

	*o = Object{
		ID:                y.ID,
		InternalPrototype: y.InternalPrototype,
		Properties:        y.Properties,
		Native:            y.Native,
		Nargs:             y.Nargs,
		Varargs:           y.Varargs,
		Magic:             y.Magic,
		Callable:          y.Callable,
		Constructable:     y.Constructable,
		SpecialCall:       y.SpecialCall,
		BidxUsed:          y.Bidx,
		PresentIf:         y.PresentIf,
		Disable:           y.Disable,
		Index:             -1,
	}
	if y.Class != "" {
		c, err := ParseClass(y.Class)
		if err != nil {
			return nodeError(node, ErrSchema, "object %s: %v", y.ID, err)
		}
		o.Class = c
	}

	action, err := resolveAction(y)
	if err != nil {
		return nodeError(node, ErrSchema, "object %s: %v", y.ID, err)
	}
	o.Action = action

	for i := 0; i+1 < len(node.Content); i += 2 {
		o.fields = append(o.fields, node.Content[i].Value)
	}
	return nil
}

func resolveAction(y yamlObject) (Action, error) {
	var set []Action
	if y.Add {
		set = append(set, ActionAdd)
	}
	if y.Replace {
		set = append(set, ActionReplace)
	}
	if y.Delete {
		set = append(set, ActionDelete)
	}
	if y.Modify {
		set = append(set, ActionModify)
	}
	if y.Action != "" {
		switch y.Action {
		case ActionAdd, ActionReplace, ActionDelete, ActionModify:
		default:
			return "", fmt.Errorf("unknown action %q", y.Action)
		}
		set = append(set, y.Action)
	}
	if len(set) == 0 {
		return "", nil
	}
	for _, a := range set[1:] {
		if a != set[0] {
			return "", fmt.Errorf("conflicting actions %v", set)
		}
	}
	return set[0], nil
}

type yamlProperty struct {
	Key           yaml.Node `yaml:"key"`
	Value         yaml.Node `yaml:"value"`
	Attributes    *string   `yaml:"attributes"`
	AutoLightfunc *bool     `yaml:"auto_lightfunc"`
	PresentIf     PresentIf `yaml:"present_if"`
	Disable       bool      `yaml:"disable"`
	Delete        bool      `yaml:"delete"`
	AliasOf       string    `yaml:"alias_of"`
}

// UnmarshalYAML decodes a property entry. Keys may be plain strings or
// symbol descriptors.
func (p *Property) UnmarshalYAML(node *yaml.Node) error {
	var y yamlProperty
	if err := node.Decode(&y); err != nil {
		return err
	}
	key, err := decodeKey(&y.Key)
	if err != nil {
		return err
	}
	*p = Property{
		Key:           key,
		AutoLightfunc: y.AutoLightfunc == nil || *y.AutoLightfunc,
		PresentIf:     y.PresentIf,
		Disable:       y.Disable,
		Delete:        y.Delete,
		AliasOf:       y.AliasOf,
	}
	if y.Attributes != nil {
		a, err := ParseAttrs(*y.Attributes)
		if err != nil {
			return nodeError(node, ErrSchema, "property %q: %v", key, err)
		}
		p.Attrs, p.AttrsSet = a, true
	}
	switch {
	case y.Value.Kind != 0:
		v, err := decodeValue(&y.Value)
		if err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		p.Value = v
	case y.Delete || y.AliasOf != "":
		p.Value = Undefined()
	default:
		return nodeError(node, ErrSchema, "property %q has no value", key)
	}
	return nil
}

type yamlString struct {
	Str                yaml.Node `yaml:"str"`
	ReservedWord       bool      `yaml:"reserved_word"`
	StrictReservedWord bool      `yaml:"future_reserved_word_strict"`
	StridxUsed         bool      `yaml:"stridx_used"`
	ClassName          bool      `yaml:"class_name"`
	ForceReachable     string    `yaml:"force_reachable"`
}

// UnmarshalYAML decodes a string declaration.
func (s *String) UnmarshalYAML(node *yaml.Node) error {
	var y yamlString
	if err := node.Decode(&y); err != nil {
		return err
	}
	str, err := decodeKey(&y.Str)
	if err != nil {
		return err
	}
	*s = String{
		Str:                str,
		ReservedWord:       y.ReservedWord,
		StrictReservedWord: y.StrictReservedWord,
		StridxUsed:         y.StridxUsed,
		Index8:             y.ClassName,
		ForceReachable:     y.ForceReachable,
		Index:              -1,
	}
	if s.StrictReservedWord && !s.ReservedWord {
		return nodeError(node, ErrSchema, "string %q: strict reserved word must also be reserved", str)
	}
	return nil
}

// decodeKey accepts a plain string or a symbol descriptor mapping.
func decodeKey(node *yaml.Node) (string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, nil
	case yaml.MappingNode:
		var sym Symbol
		if err := node.Decode(&sym); err != nil {
			return "", err
		}
		if sym.Type != "symbol" {
			return "", nodeError(node, ErrSchema, "key of type %q", sym.Type)
		}
		return sym.Encode()
	}
	return "", nodeError(node, ErrSchema, "missing or invalid key")
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

type yamlValue struct {
	Type     string    `yaml:"type"`
	ID       string    `yaml:"id"`
	Bytes    string    `yaml:"bytes"`
	Value    yaml.Node `yaml:"value"`
	GetterID string    `yaml:"getter_id"`
	SetterID string    `yaml:"setter_id"`
	Getter   string    `yaml:"getter"`
	Setter   string    `yaml:"setter"`
}

func decodeValue(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return decodeScalar(node)
	case yaml.MappingNode:
	default:
		return Value{}, nodeError(node, ErrSchema, "unsupported value node")
	}

	var y yamlValue
	if err := node.Decode(&y); err != nil {
		return Value{}, err
	}
	switch y.Type {
	case "undefined":
		return Undefined(), nil
	case "null":
		return Null(), nil

	case "double":
		if y.Bytes != "" {
			raw, err := hex.DecodeString(y.Bytes)
			if err != nil || len(raw) != 8 {
				return Value{}, nodeError(node, ErrSchema, "double bytes %q must be 16 hex digits", y.Bytes)
			}
			return Value{Kind: ValueNumber, Raw: raw}, nil
		}
		var f float64
		if err := y.Value.Decode(&f); err != nil {
			return Value{}, nodeError(node, ErrSchema, "double: %v", err)
		}
		return Number(f), nil

	case "string":
		var s string
		if err := y.Value.Decode(&s); err != nil {
			return Value{}, nodeError(node, ErrSchema, "string: %v", err)
		}
		return Str(s), nil

	case "symbol":
		var sym Symbol
		if err := node.Decode(&sym); err != nil {
			return Value{}, err
		}
		s, err := sym.Encode()
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil

	case "object":
		if y.ID == "" {
			return Value{}, nodeError(node, ErrSchema, "object value without id")
		}
		return ObjectRef(y.ID), nil

	case "accessor":
		if y.Getter != "" || y.Setter != "" {
			var a AccessorShorthand
			if err := node.Decode(&a); err != nil {
				return Value{}, err
			}
			return Value{Kind: ValueAccessor, Accessor: &a}, nil
		}
		return AccessorRef(y.GetterID, y.SetterID), nil

	case "function":
		var f FuncShorthand
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		if f.Native == "" {
			return Value{}, nodeError(node, ErrMalformedShorthand, "function without native")
		}
		return Value{Kind: ValueFunction, Func: &f}, nil

	case "lightfunc":
		var lf Lightfunc
		if err := node.Decode(&lf); err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueLightfunc, Lightfunc: &lf}, nil

	case "structured":
		if y.Value.Kind == 0 {
			return Value{}, nodeError(node, ErrMalformedShorthand, "structured value without value")
		}
		v := y.Value
		return Value{Kind: ValueStructured, Structured: &v}, nil

	case "buffer", "pointer":
		return Value{}, nodeError(node, ErrMalformedShorthand, "%s values are not supported for builtins", y.Type)
	}
	return Value{}, nodeError(node, ErrSchema, "unknown value type %q", y.Type)
}

func decodeScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
	return Str(node.Value), nil
}
