package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// MaxDepth bounds how deeply objects and arrays may nest in parsed input.
const MaxDepth = 256

var errTooDeep = fmt.Errorf("document nests deeper than %d levels", MaxDepth)

// Parse decodes JSON text into a document. The top-level value must be an
// object; anything else is reported as a ParseError.
func Parse(data []byte) (*Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errdefs.NewParse("document", errors.New("empty input"))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec, 0)
	if err != nil {
		return nil, errdefs.NewParse("document", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errdefs.NewParse("document", errors.New("unexpected trailing data"))
	}

	doc, ok := value.(*Map)
	if !ok {
		return nil, errdefs.NewParse("document", fmt.Errorf("expected object, got %T", value))
	}
	return doc, nil
}

// ParseValue decodes any JSON value, keeping object key order.
func ParseValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected trailing data")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if depth >= MaxDepth {
		return nil, errTooDeep
	}

	switch delim {
	case '{':
		m := NewMap()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("invalid object key %v", keyTok)
			}
			value, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		items := []any{}
		for dec.More() {
			value, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// MarshalJSON writes the pruned document with keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	pruned := Prune(m)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range pruned.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(pruned.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the receiver with the decoded object.
func (m *Map) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = *NewMap()
		return nil
	}
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*m = *doc
	return nil
}

// MarshalIndent renders the pruned document as indented JSON.
func MarshalIndent(m *Map) (string, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}
