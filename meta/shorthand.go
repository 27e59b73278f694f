package meta

import (
	"fmt"

	"github.com/chazu/builtingen/magic"
	"go.yaml.in/yaml/v3"
)

// Well-known prototypes synthesized objects link to.
const (
	FunctionPrototypeID = "bi_function_prototype"
	ObjectPrototypeID   = "bi_object_prototype"
)

// ExpandShorthand replaces function, accessor and structured shorthand
// values with references to synthesized subobj_N objects.
func (p *Pipeline) ExpandShorthand() error {
	d := p.doc
	if err := d.CheckMutable(); err != nil {
		return err
	}
	// Synthesized objects are appended and visited too; they hold no
	// shorthand of their own.
	for i := 0; i < len(d.Objects); i++ {
		o := d.Objects[i]
		for _, pr := range o.Properties {
			if err := p.expandProperty(pr); err != nil {
				return fmt.Errorf("object %s, property %q: %w", o.ID, pr.Key, err)
			}
		}
	}
	return nil
}

func (p *Pipeline) expandProperty(pr *Property) error {
	v := pr.Value
	switch {
	case v.Kind == ValueFunction:
		id, err := p.functionObject(pr.Key, v.Func)
		if err != nil {
			return err
		}
		pr.Value = ObjectRef(id)

	case v.Kind == ValueAccessor && v.Accessor != nil:
		a := v.Accessor
		var get, set string
		var err error
		if a.Getter != "" {
			if get, err = p.accessorObject(a.Getter, a.GetterNargs, a.GetterMagic); err != nil {
				return err
			}
		}
		if a.Setter != "" {
			if set, err = p.accessorObject(a.Setter, a.SetterNargs, a.SetterMagic); err != nil {
				return err
			}
		}
		pr.Value = AccessorRef(get, set)

	case v.Kind == ValueStructured:
		nv, err := p.structuredValue(v.Structured)
		if err != nil {
			return err
		}
		pr.Value = nv
	}
	return nil
}

func (p *Pipeline) functionObject(key string, f *FuncShorthand) (string, error) {
	if f.Native == "" {
		return "", fmt.Errorf("%w: function without native", ErrMalformedShorthand)
	}
	o := NewObject(p.doc.newSubobjID(), ClassFunction)
	o.InternalPrototype = FunctionPrototypeID
	o.Native = f.Native
	o.Callable = f.Callable == nil || *f.Callable
	o.Constructable = f.Constructable
	o.SpecialCall = f.SpecialCall
	o.Varargs = f.Varargs
	o.Magic = f.Magic
	if !f.Varargs {
		n := f.Length
		if f.Nargs != nil {
			n = *f.Nargs
		}
		o.Nargs = &n
	}

	name := functionName(key)
	if f.Name != nil {
		name = *f.Name
	}
	o.Properties = []*Property{
		{Key: "length", Value: Number(float64(f.Length)), Attrs: DefaultLengthAttrs, AttrsSet: true, AutoLightfunc: true},
		{Key: "name", Value: Str(name), Attrs: DefaultLengthAttrs, AttrsSet: true, AutoLightfunc: true},
	}
	if err := p.doc.AddObject(o); err != nil {
		return "", err
	}
	p.stats.Subobjects++
	return o.ID, nil
}

// functionName derives a function's name from the property key.
func functionName(key string) string {
	sym, ok := DecodeSymbol(key)
	if !ok {
		return key
	}
	if sym.Variant == SymbolWellKnown {
		return "[" + sym.String + "]"
	}
	return ""
}

func (p *Pipeline) accessorObject(native string, nargs int, m *magic.Descriptor) (string, error) {
	o := NewObject(p.doc.newSubobjID(), ClassFunction)
	o.InternalPrototype = FunctionPrototypeID
	o.Native = native
	o.Callable = true
	o.Nargs = &nargs
	o.Magic = m
	if err := p.doc.AddObject(o); err != nil {
		return "", err
	}
	p.stats.Subobjects++
	return o.ID, nil
}

// structuredValue converts a YAML node into a value, synthesizing plain
// objects for mappings. Key order follows the source.
func (p *Pipeline) structuredValue(n *yaml.Node) (Value, error) {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.AliasNode:
		return p.structuredValue(n.Alias)
	case yaml.SequenceNode:
		return Value{}, fmt.Errorf("%w: arrays are not supported in structured values (line %d)", ErrMalformedShorthand, n.Line)
	case yaml.MappingNode:
	default:
		return Value{}, fmt.Errorf("%w: unsupported structured node (line %d)", ErrMalformedShorthand, n.Line)
	}

	o := NewObject(p.doc.newSubobjID(), ClassObject)
	o.InternalPrototype = ObjectPrototypeID
	if err := p.doc.AddObject(o); err != nil {
		return Value{}, err
	}
	p.stats.Subobjects++
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, vn := n.Content[i], n.Content[i+1]
		v, err := p.structuredValue(vn)
		if err != nil {
			return Value{}, fmt.Errorf("key %q: %w", k.Value, err)
		}
		o.Properties = append(o.Properties, &Property{
			Key:           k.Value,
			Value:         v,
			Attrs:         AttrWritable | AttrEnumerable | AttrConfigurable,
			AttrsSet:      true,
			AutoLightfunc: true,
		})
	}
	return ObjectRef(o.ID), nil
}

// ResolveAliases gives every alias_of property its sibling's value.
func (p *Pipeline) ResolveAliases() error {
	for _, o := range p.doc.Objects {
		for _, pr := range o.Properties {
			if pr.AliasOf == "" {
				continue
			}
			src := o.Prop(pr.AliasOf)
			if src == nil || src.AliasOf != "" {
				return fmt.Errorf("%w: object %s: property %q aliases missing property %q",
					ErrSchema, o.ID, pr.Key, pr.AliasOf)
			}
			pr.Value = src.Value
			if !pr.AttrsSet && src.AttrsSet {
				pr.Attrs, pr.AttrsSet = src.Attrs, true
			}
			p.stats.Aliases++
		}
	}
	return nil
}
