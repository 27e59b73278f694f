package meta

import (
	"fmt"
	"slices"
)

// applyObject merges one overlay object declaration into the document.
func (p *Pipeline) applyObject(src string, o *Object) error {
	d := p.doc
	switch o.Action {
	case "", ActionAdd:
		if err := d.AddObject(o); err != nil {
			return fmt.Errorf("%s: add: %w", src, err)
		}
		p.stats.Added++

	case ActionReplace:
		if !d.replaceObject(o) {
			log.Debugf("%s: replace of missing object %s, appending", src, o.ID)
			if err := d.AddObject(o); err != nil {
				return err
			}
		}
		p.stats.Replaced++

	case ActionDelete:
		if d.Object(o.ID) == nil {
			return fmt.Errorf("%s: delete: %w: %s", src, ErrUnknownObject, o.ID)
		}
		removed, err := d.RemoveObjects(func(x *Object) bool { return x.ID == o.ID })
		if err != nil {
			return err
		}
		p.scrub(removed)
		p.stats.Deleted++

	case ActionModify:
		cur := d.Object(o.ID)
		if cur == nil {
			return fmt.Errorf("%s: modify: %w: %s", src, ErrUnknownObject, o.ID)
		}
		if !modifyObject(cur, o) {
			log.Debugf("%s: modify of %s changes nothing", src, o.ID)
		}
		p.stats.Modified++

	default:
		return fmt.Errorf("%s: %w: unknown action %q", src, ErrSchema, o.Action)
	}
	return nil
}

// modifyObject copies the fields set in the overlay into cur and merges
// properties by key. It reports whether anything was touched.
func modifyObject(cur, o *Object) bool {
	touched := false
	for _, f := range o.fields {
		switch f {
		case "class":
			cur.Class = o.Class
		case "internal_prototype":
			cur.InternalPrototype = o.InternalPrototype
		case "native":
			cur.Native = o.Native
		case "nargs":
			cur.Nargs = o.Nargs
		case "varargs":
			cur.Varargs = o.Varargs
		case "magic":
			cur.Magic = o.Magic
		case "callable":
			cur.Callable = o.Callable
		case "constructable":
			cur.Constructable = o.Constructable
		case "special_call":
			cur.SpecialCall = o.SpecialCall
		case "bidx":
			cur.BidxUsed = o.BidxUsed
		case "present_if":
			cur.PresentIf = o.PresentIf
		case "disable":
			cur.Disable = o.Disable
		case "properties":
			mergeProperties(cur, o.Properties)
		default:
			continue
		}
		touched = true
	}
	return touched
}

func mergeProperties(cur *Object, props []*Property) {
	for _, np := range props {
		i := cur.propIndex(np.Key)
		switch {
		case np.Delete && i < 0:
			log.Debugf("object %s: delete of missing property %q", cur.ID, np.Key)
		case np.Delete:
			cur.Properties = slices.Delete(cur.Properties, i, i+1)
		case i >= 0:
			cur.Properties[i] = np
		default:
			cur.Properties = append(cur.Properties, np)
		}
	}
}

// scrub removes references to the given objects from the survivors.
func (p *Pipeline) scrub(removed []*Object) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[string]bool, len(removed))
	for _, o := range removed {
		gone[o.ID] = true
	}
	for _, o := range p.doc.Objects {
		if gone[o.InternalPrototype] {
			log.Debugf("object %s: clearing internal prototype %s", o.ID, o.InternalPrototype)
			o.InternalPrototype = ""
			p.stats.Scrubbed++
		}
		o.Properties = slices.DeleteFunc(o.Properties, func(pr *Property) bool {
			v := &pr.Value
			switch v.Kind {
			case ValueObject:
				if gone[v.ID] {
					log.Debugf("object %s: dropping property %q referencing %s", o.ID, pr.Key, v.ID)
					p.stats.Scrubbed++
					return true
				}
			case ValueAccessor:
				if gone[v.Getter] {
					v.Getter = ""
					p.stats.Scrubbed++
				}
				if gone[v.Setter] {
					v.Setter = ""
					p.stats.Scrubbed++
				}
			}
			return false
		})
	}
}

// mergeStrings folds a document's string declarations in.
func (p *Pipeline) mergeStrings(src string, strs []*String) error {
	for _, s := range strs {
		if _, err := p.doc.MergeString(s); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}
	return nil
}
