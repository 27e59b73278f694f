package magic

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// UnmarshalYAML accepts either a bare integer (plain magic) or a mapping
// with a "type" key.
func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v int
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalid, node.Line, err)
		}
		*d = Descriptor{Kind: KindPlain, Value: v}
		return nil
	}
	type plain Descriptor
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("%w: line %d: %v", ErrInvalid, node.Line, err)
	}
	if p.Kind == "" {
		return fmt.Errorf("%w: line %d: missing type", ErrInvalid, node.Line)
	}
	*d = Descriptor(p)
	return nil
}
