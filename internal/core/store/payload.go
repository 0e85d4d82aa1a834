package store

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaHistory = "history.schema.json"
	schemaStyle   = "style.schema.json"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		names := []string{schemaHistory, schemaStyle}
		for _, name := range names {
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("load schema %s: %w", name, err)
				return
			}
		}
		compiled := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			schema, err := compiler.Compile(name)
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// encodePayload marshals v and checks it against the named schema. Schema
// violations are reported as validation errors.
func encodePayload(schemaName string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	compiled, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	schema, ok := compiled[schemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %s", schemaName)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode payload for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, errdefs.NewValidation("payload", err.Error())
	}
	return payload, nil
}
