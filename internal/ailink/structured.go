package ailink

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
)

const (
	formatJSONObject = "json_object"
	formatJSONSchema = "json_schema"
)

var schemaNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// responseFormatForProvider requests strict json_schema output when both
// the driver and the prompt's schema allow it, and json_object otherwise.
func responseFormatForProvider(resolved *ResolvedProvider, def *prompt.Prompt) *driver.ResponseFormat {
	switch {
	case def == nil, resolved == nil, resolved.Driver == nil,
		!resolved.Driver.Capabilities().SupportsJSONSchema,
		!strictCompatible(def.Config.ResponseSchema):
		return &driver.ResponseFormat{Type: formatJSONObject}
	}

	name := strings.TrimSpace(def.Config.Slug)
	if name == "" {
		name = "genimage_schema"
	}
	return &driver.ResponseFormat{
		Type: formatJSONSchema,
		JSONSchema: &driver.JSONSchema{
			Name:   schemaNameUnsafe.ReplaceAllString(name, "_"),
			Strict: true,
			Schema: def.Config.ResponseSchema,
		},
	}
}

// strictCompatible reports whether a schema declares properties and closes
// the object with additionalProperties: false. Strict mode rejects anything
// looser.
func strictCompatible(schema map[string]any) bool {
	if _, ok := schema["properties"].(map[string]any); !ok {
		return false
	}
	additional, ok := schema["additionalProperties"].(bool)
	return ok && !additional
}

// schemaRejected matches the 400 a provider returns when it cannot honour a
// json_schema response format.
func schemaRejected(err error) bool {
	var perr *driver.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(perr.Message)
	return strings.Contains(msg, formatJSONSchema) || strings.Contains(msg, "response_format")
}

func downgradeToJSONObject(req *driver.Request) {
	if req != nil && req.ResponseFormat != nil {
		req.ResponseFormat = &driver.ResponseFormat{Type: formatJSONObject}
	}
}
