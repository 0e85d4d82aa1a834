package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// JSON renders v as JSON.
func JSON(v any, indent bool) (string, error) {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAML renders v as YAML. Values are round-tripped through JSON first so
// json tags and document key order are honored.
func YAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	plain(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// plain drops the flow and quoting styles inherited from the JSON source.
func plain(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		plain(child)
	}
}
