package document

import "strings"

// PathSeparator joins nested keys into a field path. Keys that themselves
// contain the separator are not escaped.
const PathSeparator = "."

// Field is a leaf of a document addressed by its dotted path.
type Field struct {
	Path  string `json:"path"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Enumerate lists the leaves of doc depth-first in key order. Any value that
// is not a mapping is a leaf; sequences are not expanded.
func Enumerate(doc *Map) []Field {
	fields := []Field{}
	enumerate(doc, "", &fields)
	return fields
}

func enumerate(m *Map, prefix string, out *[]Field) {
	if m == nil {
		return
	}
	for _, key := range m.keys {
		path := key
		if prefix != "" {
			path = prefix + PathSeparator + key
		}
		value := m.values[key]
		if child, ok := value.(*Map); ok {
			enumerate(child, path, out)
			continue
		}
		*out = append(*out, Field{Path: path, Key: key, Value: value})
	}
}

// FieldIndex returns the position of path in fields, or -1.
func FieldIndex(fields []Field, path string) int {
	for i, f := range fields {
		if f.Path == path {
			return i
		}
	}
	return -1
}

// GetAtPath looks up the value addressed by a dotted path.
func GetAtPath(doc *Map, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}
	current := doc
	segments := strings.Split(path, PathSeparator)
	for i, segment := range segments {
		value, ok := current.Get(segment)
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return value, true
		}
		next, ok := value.(*Map)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// SetAtPath returns a copy of doc with value written at path. Missing
// intermediate mappings are created and non-mapping intermediates are
// replaced. Untouched siblings keep their order. doc is not modified.
func SetAtPath(doc *Map, path string, value any) *Map {
	out := doc.Clone()
	if path == "" {
		return out
	}

	segments := strings.Split(path, PathSeparator)
	current := out
	for _, segment := range segments[:len(segments)-1] {
		existing, _ := current.Get(segment)
		next, ok := existing.(*Map)
		if !ok {
			next = NewMap()
			current.Set(segment, next)
		}
		current = next
	}
	current.Set(segments[len(segments)-1], value)
	return out
}
