// Package document implements the structured prompt document: an ordered,
// arbitrarily nested mapping of prompt sections whose key order is kept so
// that synthesis and serialization are deterministic.
//
// Values held by a Map are one of *Map, []any, string, json.Number, float64,
// int, bool or nil.
package document

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Map is a mapping that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty document.
func NewMap() *Map {
	return &Map{values: map[string]any{}}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty document.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case *Map:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// IsEmpty reports whether v counts as absent: nil, a blank string, or an
// empty mapping or sequence.
func IsEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case *Map:
		return typed.Len() == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

// FormatScalar renders a scalar leaf as text. Mappings and sequences are
// not scalars and report false.
func FormatScalar(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}
