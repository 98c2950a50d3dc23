package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// parseYAML walks the document node by node instead of unmarshalling into a
// map: decoding into a map rejects duplicate keys, while sources resolve them
// last-write-wins. A source holds at most one document.
func parseYAML(name string, data []byte) ([]assignment, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ParseError{Source: name, Msg: "parse YAML", Err: err}
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, &ParseError{Source: name, Msg: "parse YAML", Err: err}
	default:
		line := extra.Line
		if len(extra.Content) > 0 {
			line = extra.Content[0].Line
		}
		return nil, &ParseError{Source: name, Line: line, Msg: "a YAML source must hold a single document"}
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Source: name, Line: root.Line, Msg: "top level of a YAML source must be a mapping"}
	}

	out := make([]assignment, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		path, err := yamlKey(name, keyNode)
		if err != nil {
			return nil, err
		}
		value, err := yamlValue(name, valueNode)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{path: path, value: value, line: keyNode.Line})
	}
	return out, nil
}

func yamlKey(name string, node *yaml.Node) (KeyPath, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, &ParseError{Source: name, Line: node.Line, Msg: "mapping keys must be scalars"}
	}
	path, err := ParseKeyPath(node.Value)
	if err != nil {
		return nil, &ParseError{Source: name, Line: node.Line, Msg: "bad key", Err: err}
	}
	return path, nil
}

func yamlValue(name string, node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!str":
			return node.Value, nil
		case "!!bool":
			b, err := strconv.ParseBool(node.Value)
			if err != nil {
				// yaml.v3 resolves only true/false spellings to !!bool.
				return nil, &ParseError{Source: name, Line: node.Line, Msg: fmt.Sprintf("bad boolean %q", node.Value)}
			}
			return b, nil
		default:
			return nil, &ParseError{
				Source: name,
				Line:   node.Line,
				Msg:    fmt.Sprintf("unsupported value %q (%s): quote strings", node.Value, node.ShortTag()),
			}
		}
	case yaml.MappingNode:
		out := map[string]any{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			path, err := yamlKey(name, keyNode)
			if err != nil {
				return nil, err
			}
			value, err := yamlValue(name, node.Content[i+1])
			if err != nil {
				return nil, err
			}
			if err := assign(out, path, value); err != nil {
				return nil, &ParseError{Source: name, Line: keyNode.Line, Msg: err.Error()}
			}
		}
		return out, nil
	case yaml.AliasNode:
		return nil, &ParseError{Source: name, Line: node.Line, Msg: "aliases are not supported"}
	default:
		return nil, &ParseError{Source: name, Line: node.Line, Msg: "sequences are not supported"}
	}
}
