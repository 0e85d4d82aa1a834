package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// ParseYAML decodes a YAML mapping into a document, keeping key order.
func ParseYAML(data []byte) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errdefs.NewParse("document", err)
	}
	if root.Kind == 0 {
		return nil, errdefs.NewParse("document", errors.New("empty input"))
	}
	value, err := newNodeReader().read(&root, 0)
	if err != nil {
		return nil, errdefs.NewParse("document", err)
	}
	doc, ok := value.(*Map)
	if !ok {
		return nil, errdefs.NewParse("document", fmt.Errorf("expected mapping, got %T", value))
	}
	return doc, nil
}

// MarshalYAML renders the pruned document as an ordered mapping node.
func (m *Map) MarshalYAML() (any, error) {
	return toNode(Prune(m)), nil
}

// UnmarshalYAML replaces the receiver with the decoded mapping.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	value, err := newNodeReader().read(node, 0)
	if err != nil {
		return err
	}
	doc, ok := value.(*Map)
	if !ok {
		return fmt.Errorf("expected mapping, got %T", value)
	}
	*m = *doc
	return nil
}

// nodeReader converts yaml nodes into document values. Aliases already on
// the current path are rejected so a self-referencing anchor cannot loop.
type nodeReader struct {
	active  map[*yaml.Node]struct{}
	visited int
}

// maxYAMLNodes caps alias expansion.
const maxYAMLNodes = 1 << 20

func newNodeReader() *nodeReader {
	return &nodeReader{active: map[*yaml.Node]struct{}{}}
}

func (r *nodeReader) read(node *yaml.Node, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, errTooDeep
	}
	if r.visited++; r.visited > maxYAMLNodes {
		return nil, fmt.Errorf("document expands to more than %d nodes", maxYAMLNodes)
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewMap(), nil
		}
		return r.read(node.Content[0], depth)
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, errors.New("alias without anchor")
		}
		if _, ok := r.active[node.Alias]; ok {
			return nil, fmt.Errorf("alias *%s refers to an enclosing node", node.Value)
		}
		return r.read(node.Alias, depth)
	case yaml.MappingNode:
		r.active[node] = struct{}{}
		defer delete(r.active, node)
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value, err := r.read(node.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		return m, nil
	case yaml.SequenceNode:
		r.active[node] = struct{}{}
		defer delete(r.active, node)
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := r.read(child, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.ScalarNode:
		var decoded any
		if err := node.Decode(&decoded); err != nil {
			return nil, err
		}
		switch typed := decoded.(type) {
		case int:
			return json.Number(strconv.Itoa(typed)), nil
		case int64:
			return json.Number(strconv.FormatInt(typed, 10)), nil
		case uint64:
			return json.Number(strconv.FormatUint(typed, 10)), nil
		case float64:
			return json.Number(strconv.FormatFloat(typed, 'f', -1, 64)), nil
		default:
			return decoded, nil
		}
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d", node.Kind)
	}
}

func toNode(v any) *yaml.Node {
	switch typed := v.(type) {
	case *Map:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range typed.keys {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toNode(typed.values[k]),
			)
		}
		return node
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range typed {
			node.Content = append(node.Content, toNode(item))
		}
		return node
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: typed}
	case json.Number:
		tag := "!!float"
		if _, err := typed.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: typed.String()}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(typed)}
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		if text, ok := FormatScalar(typed); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Value: text}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(typed)}
	}
}
