package meta

import "fmt"

// Stats counts what the metadata pipeline did.
type Stats struct {
	Overlays          int `json:"overlays"`
	Added             int `json:"added"`
	Replaced          int `json:"replaced"`
	Deleted           int `json:"deleted"`
	Modified          int `json:"modified"`
	Scrubbed          int `json:"scrubbed_references"`
	DroppedObjects    int `json:"dropped_objects"`
	DroppedProperties int `json:"dropped_properties"`
	Subobjects        int `json:"subobjects"`
	Aliases           int `json:"aliases"`
	Objects           int `json:"objects"`
	Strings           int `json:"strings"`
}

// Pipeline stages raw documents into a canonical Document.
type Pipeline struct {
	doc   *Document
	opts  Options
	stats Stats
}

// NewPipeline starts an empty pipeline filtering with opts.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{doc: NewDocument(), opts: opts}
}

// Document returns the document under construction.
func (p *Pipeline) Document() *Document {
	return p.doc
}

// Stats returns a copy of the counters so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Apply merges a raw document. The base document is applied first; its
// objects normally carry no action and are added.
func (p *Pipeline) Apply(raw *RawDocument) error {
	if err := p.doc.CheckMutable(); err != nil {
		return err
	}
	if err := p.mergeStrings(raw.Name, raw.Strings); err != nil {
		return err
	}
	for _, o := range raw.Objects {
		if err := p.applyObject(raw.Name, o); err != nil {
			return err
		}
	}
	return nil
}

// Load runs the whole metadata pipeline: merge, filter, expand, alias,
// normalize.
func Load(base *RawDocument, overlays []*RawDocument, opts Options) (*Document, *Stats, error) {
	p := NewPipeline(opts)
	if err := p.Apply(base); err != nil {
		return nil, nil, fmt.Errorf("base: %w", err)
	}
	for _, ov := range overlays {
		if err := p.Apply(ov); err != nil {
			return nil, nil, fmt.Errorf("overlay: %w", err)
		}
		p.stats.Overlays++
	}
	stages := []struct {
		name string
		run  func() error
	}{
		{"filter", p.Filter},
		{"expand", p.ExpandShorthand},
		{"alias", p.ResolveAliases},
		{"normalize", p.Normalize},
	}
	for _, s := range stages {
		if err := s.run(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	p.stats.Objects = len(p.doc.Objects)
	p.stats.Strings = len(p.doc.Strings)
	log.Infof("metadata: %d objects, %d strings, %d overlays, %d subobjects",
		p.stats.Objects, p.stats.Strings, p.stats.Overlays, p.stats.Subobjects)
	st := p.stats
	return p.doc, &st, nil
}
