package meta

import "slices"

// Options is the active configuration bag. A name missing from the map is
// unknown, which counts as present for filtering.
type Options map[string]bool

// KnownFalse reports whether name is explicitly disabled.
func (o Options) KnownFalse(name string) bool {
	v, ok := o[name]
	return ok && !v
}

// Active reports whether an entry guarded by present_if survives.
func (o Options) Active(cond PresentIf) bool {
	for _, name := range cond {
		if o.KnownFalse(name) {
			return false
		}
	}
	return true
}

// Filter drops disabled entries and entries whose present_if names a
// known-false option. Properties of a dropped object are not reported
// separately; references to dropped objects are scrubbed.
func (p *Pipeline) Filter() error {
	removed, err := p.doc.RemoveObjects(func(o *Object) bool {
		if o.Disable || !p.opts.Active(o.PresentIf) {
			log.Debugf("dropping object %s (present_if %v, disable %t)", o.ID, o.PresentIf, o.Disable)
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	p.stats.DroppedObjects += len(removed)

	for _, o := range p.doc.Objects {
		o.Properties = slices.DeleteFunc(o.Properties, func(pr *Property) bool {
			if pr.Disable || !p.opts.Active(pr.PresentIf) {
				log.Debugf("object %s: dropping property %q", o.ID, pr.Key)
				p.stats.DroppedProperties++
				return true
			}
			return false
		})
	}
	p.scrub(removed)
	return nil
}
