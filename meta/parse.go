package meta

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// RawDocument is one decoded metadata file: a base document or an overlay.
type RawDocument struct {
	Name    string    `yaml:"-"`
	Objects []*Object `yaml:"objects"`
	Strings []*String `yaml:"strings"`
}

// Parse decodes a YAML metadata document. name is used in error messages.
func Parse(name string, data []byte) (*RawDocument, error) {
	doc := &RawDocument{Name: name}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for i, o := range doc.Objects {
		if o == nil {
			return nil, fmt.Errorf("%s: %w: empty object entry %d", name, ErrSchema, i)
		}
		for j, p := range o.Properties {
			if p == nil {
				return nil, fmt.Errorf("%s: %w: object %s: empty property entry %d", name, ErrSchema, o.ID, j)
			}
		}
	}
	for i, s := range doc.Strings {
		if s == nil {
			return nil, fmt.Errorf("%s: %w: empty string entry %d", name, ErrSchema, i)
		}
	}
	log.Debugf("parsed %s: %d objects, %d strings", name, len(doc.Objects), len(doc.Strings))
	return doc, nil
}
