package prompt

import (
	"bytes"
	"cmp"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	promptSchemaName = "prompt.schema.json"
	fence            = "---"
)

//go:embed schemas/prompt.schema.json
var promptSchemaJSON []byte

var promptSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compile(promptSchemaName, promptSchemaJSON)
})

// Load parses and validates a prompt definition: YAML frontmatter between
// --- fences followed by a markdown body, or plain YAML. The body becomes the
// system template unless the frontmatter sets one.
func Load(source string, data []byte) (*Prompt, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(front), &cfg); err != nil {
		return nil, fmt.Errorf("parse prompt %s: invalid frontmatter: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// splitFrontmatter returns the YAML part and the body. Without an opening
// fence the whole input is YAML; without a closing fence everything after
// the opening one is.
func splitFrontmatter(data []byte) (front, body string, err error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", "", errors.New("empty prompt")
	}

	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[0]) != fence {
		return text, "", nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return strings.Join(lines[1:], "\n"), "", nil
}

// validateConfig checks the definition against the embedded prompt schema
// and compiles any response_schema it carries.
func validateConfig(cfg Config) error {
	schema, err := promptSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if len(cfg.ResponseSchema) == 0 {
		return nil
	}
	if _, err := CompileSchema(cfg.Slug, cfg.ResponseSchema); err != nil {
		return fmt.Errorf("response_schema: %w", err)
	}
	return nil
}

// CompileSchema compiles an inline JSON schema such as a prompt's
// response_schema.
func CompileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return compile(cmp.Or(strings.TrimSpace(name), "inline")+".response.json", raw)
}

func compile(resource string, raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", resource, err)
	}
	return compiler.Compile(resource)
}
