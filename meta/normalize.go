package meta

import "fmt"

// Normalize fills in nargs and attribute defaults and checks that every
// object reference resolves. It runs after shorthand expansion.
func (p *Pipeline) Normalize() error {
	d := p.doc
	if err := d.CheckMutable(); err != nil {
		return err
	}
	for _, o := range d.Objects {
		if o.Varargs {
			o.Nargs = nil
		} else if o.Callable && o.Nargs == nil {
			if n, ok := o.NargsOrDefault(); ok {
				o.Nargs = &n
			}
		}
		for _, pr := range o.Properties {
			if err := normalizeProperty(o, pr); err != nil {
				return err
			}
		}
	}
	return p.checkReferences()
}

func normalizeProperty(o *Object, pr *Property) error {
	if pr.Value.IsShorthand() {
		return fmt.Errorf("%w: object %s: property %q left unexpanded", ErrMalformedShorthand, o.ID, pr.Key)
	}
	if pr.Value.Kind == ValueAccessor {
		if !pr.AttrsSet {
			pr.Attrs, pr.AttrsSet = DefaultAccessorAttrs, true
			return nil
		}
		if pr.Attrs.Has(AttrWritable) {
			return fmt.Errorf("%w: object %s: accessor %q declared writable", ErrSchema, o.ID, pr.Key)
		}
		pr.Attrs |= AttrAccessor
		return nil
	}
	if !pr.AttrsSet {
		pr.Attrs, pr.AttrsSet = DefaultDataAttrs, true
	}
	if pr.Attrs.Has(AttrAccessor) {
		return fmt.Errorf("%w: object %s: data property %q has accessor attribute", ErrSchema, o.ID, pr.Key)
	}
	return nil
}

func (p *Pipeline) checkReferences() error {
	d := p.doc
	for _, o := range d.Objects {
		var missing string
		o.References(func(id string) {
			if missing == "" && d.Object(id) == nil {
				missing = id
			}
		})
		if missing != "" {
			return fmt.Errorf("%w: object %s references %s", ErrDanglingReference, o.ID, missing)
		}
	}
	return nil
}
