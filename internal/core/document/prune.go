package document

// Prune returns a copy of m without absent values. Mappings and sequences
// that become empty once their children are pruned are dropped as well.
func Prune(m *Map) *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		if value, keep := pruneValue(m.values[k]); keep {
			out.Set(k, value)
		}
	}
	return out
}

func pruneValue(v any) (any, bool) {
	switch typed := v.(type) {
	case *Map:
		pruned := Prune(typed)
		return pruned, pruned.Len() > 0
	case []any:
		items := make([]any, 0, len(typed))
		for _, item := range typed {
			if value, keep := pruneValue(item); keep {
				items = append(items, value)
			}
		}
		return items, len(items) > 0
	default:
		return v, !IsEmpty(v)
	}
}

// PruneEmptyTopLevel drops top-level sections that hold a mapping with no
// content. Scalar sections are left alone.
func PruneEmptyTopLevel(m *Map) *Map {
	out := m.Clone()
	for _, k := range out.Keys() {
		section, ok := out.values[k].(*Map)
		if !ok {
			continue
		}
		if Prune(section).Len() == 0 {
			out.Delete(k)
		}
	}
	return out
}
