package loader

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"license_notification_bot/internal/domain/license"
)

// ParseYAML decodes every document in r. A document may hold a single
// mapping (one record) or a sequence of mappings (one record each).
// Scalars are read as their literal text so dates are never reinterpreted.
func ParseYAML(name string, r io.Reader) ([]license.Record, error) {
	decoder := yaml.NewDecoder(r)
	records := []license.Record{}

	for {
		var doc yaml.Node
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, &license.ParseError{Path: name, Err: err}
		}

		docRecords, err := recordsFromDocument(name, &doc)
		if err != nil {
			return nil, &license.ParseError{Path: name, Err: err}
		}
		records = append(records, docRecords...)
	}
}

func recordsFromDocument(name string, doc *yaml.Node) ([]license.Record, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := resolveAlias(doc.Content[0])
	switch root.Kind {
	case yaml.MappingNode:
		return []license.Record{license.FromFields(name, scalarFields(root))}, nil
	case yaml.SequenceNode:
		records := make([]license.Record, 0, len(root.Content))
		for _, item := range root.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				continue
			}
			records = append(records, license.FromFields(name, scalarFields(item)))
		}
		return records, nil
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
		return nil, fmt.Errorf("line %d: expected a mapping or a sequence, got scalar %q", root.Line, root.Value)
	default:
		return nil, fmt.Errorf("line %d: unexpected yaml node", root.Line)
	}
}

// scalarFields flattens a mapping node into its scalar key/value pairs.
// Nested collections and null values are dropped.
func scalarFields(mapping *yaml.Node) map[string]string {
	fields := make(map[string]string, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := resolveAlias(mapping.Content[i])
		value := resolveAlias(mapping.Content[i+1])
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
			continue
		}
		fields[key.Value] = value.Value
	}
	return fields
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
