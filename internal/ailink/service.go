package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/encode"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
)

const (
	defaultTimeout        = 60 * time.Second
	maxTimeout            = 5 * time.Minute
	defaultTargetLanguage = "Japanese"
)

// ErrNotConfigured marks failures to resolve a provider for a role.
var ErrNotConfigured = errors.New("ai provider not configured")

// Roles names the routing role used for each operation.
type Roles struct {
	Decompose string
	Options   string
	Translate string
	Image     string
}

func (r Roles) withDefaults() Roles {
	if strings.TrimSpace(r.Decompose) == "" {
		r.Decompose = "decompose"
	}
	if strings.TrimSpace(r.Options) == "" {
		r.Options = "options"
	}
	if strings.TrimSpace(r.Translate) == "" {
		r.Translate = "translate"
	}
	if strings.TrimSpace(r.Image) == "" {
		r.Image = "image"
	}
	return r
}

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers      *Registry
	Registry       prompt.Registry
	Roles          Roles
	TargetLanguage string
	ImageSize      string

	schemas sync.Map
}

// DecomposeRequest asks for a free-text prompt to be split into fields.
type DecomposeRequest struct {
	Prompt string
	Model  string
}

// TranslateRequest asks for a document's values in another language.
type TranslateRequest struct {
	Document       *document.Map
	TargetLanguage string
	Model          string
}

// ImageRequest asks for a new image or an edit of an uploaded one.
type ImageRequest struct {
	Prompt string
	Mode   core.ImageMode
	// UploadBase64 is the source image for edits, as base64 or a data URL.
	UploadBase64 string
	Size         string
	Model        string
}

// ImageResult carries the first image returned by the provider.
type ImageResult struct {
	Base64Data string
	MimeType   string
	Provider   string
	Model      string
}

// NewService loads prompts (embedded defaults, or cfg.PromptsDir when set)
// and builds the provider registry.
func NewService(cfg Config, roles Roles) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ailink config: %w", err)
	}
	reg, err := prompt.RegistryFor(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	if err := prompt.Require(reg, prompt.StudioSlugs...); err != nil {
		return nil, err
	}
	return &Service{
		Providers: NewRegistry(cfg),
		Registry:  reg,
		Roles:     roles,
	}, nil
}

// Decompose converts a free-text prompt into a structured document. Empty
// top-level objects are dropped from the result.
func (s *Service) Decompose(ctx context.Context, req DecomposeRequest) (*document.Map, error) {
	text := strings.TrimSpace(req.Prompt)
	if text == "" {
		return nil, errdefs.NewValidation("prompt", "prompt is required")
	}

	def, raw, err := s.complete(ctx, s.Roles.withDefaults().Decompose, prompt.SlugDecompose, req.Model, map[string]string{
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.decodeDocument(def, raw)
	if err != nil {
		return nil, err
	}
	return document.PruneEmptyTopLevel(doc), nil
}

// SuggestOptions asks the model for replacement values for one field.
func (s *Service) SuggestOptions(ctx context.Context, req options.SuggestRequest) ([]string, error) {
	path := strings.TrimSpace(req.FieldPath)
	if path == "" {
		return nil, errdefs.NewValidation("field_path", "field path is required")
	}
	name := strings.TrimSpace(req.FieldName)
	if name == "" {
		name = path
	}

	vars := map[string]string{
		"field_name":    name,
		"field_path":    path,
		"current_value": req.CurrentValue,
	}
	if req.Document != nil && req.Document.Len() > 0 {
		encoded, err := document.MarshalIndent(req.Document)
		if err != nil {
			return nil, err
		}
		vars["document"] = encoded
	}

	_, raw, err := s.complete(ctx, s.Roles.withDefaults().Options, prompt.SlugOptions, "", vars)
	if err != nil {
		return nil, err
	}

	values, err := options.ExtractOptions(raw)
	if err != nil {
		return nil, withRaw(s.Providers.Config(), err, raw)
	}
	return values, nil
}

// Translate returns the document with its values translated, as indented
// JSON in the original key order.
func (s *Service) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if req.Document == nil || req.Document.Len() == 0 {
		return "", errdefs.NewValidation("document", "document is empty")
	}
	lang := strings.TrimSpace(req.TargetLanguage)
	if lang == "" {
		lang = strings.TrimSpace(s.TargetLanguage)
	}
	if lang == "" {
		lang = defaultTargetLanguage
	}

	encoded, err := document.MarshalIndent(req.Document)
	if err != nil {
		return "", err
	}

	def, raw, err := s.complete(ctx, s.Roles.withDefaults().Translate, prompt.SlugTranslate, req.Model, map[string]string{
		"document":        encoded,
		"target_language": lang,
	})
	if err != nil {
		return "", err
	}

	doc, err := s.decodeDocument(def, raw)
	if err != nil {
		return "", err
	}
	return document.MarshalIndent(doc)
}

// GenerateImage produces one image from the prompt. Edit mode sends the
// uploaded image to the provider's edit endpoint.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("ailink provider registry not configured")
	}
	text := strings.TrimSpace(req.Prompt)
	if text == "" {
		return nil, errdefs.NewValidation("prompt", "prompt is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = core.ImageModeNew
	}
	if mode == core.ImageModeEdit && strings.TrimSpace(req.UploadBase64) == "" {
		return nil, errdefs.NewValidation("image", "edit mode requires an uploaded image")
	}

	resolved, err := s.Providers.Resolve(s.Roles.withDefaults().Image, nil, req.Model, tierImage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	imageDriver, ok := resolved.Driver.(driver.ImageDriver)
	if !ok || !resolved.Driver.Capabilities().SupportsImages {
		return nil, mapProviderError(resolved.ProviderID, &driver.UnsupportedError{Provider: resolved.Driver.Name(), Operation: "image generation"})
	}

	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = strings.TrimSpace(s.ImageSize)
	}
	imageReq := driver.ImageRequest{
		Model:  resolved.Model,
		Prompt: text,
		Count:  1,
		Size:   size,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	var call func() (*driver.ImageResponse, error)
	switch mode {
	case core.ImageModeEdit:
		data, mime, decodeErr := encode.DecodeUpload(req.UploadBase64)
		if decodeErr != nil {
			return nil, errdefs.NewValidation("image", decodeErr.Error())
		}
		editReq := &driver.ImageEditRequest{
			ImageRequest:  imageReq,
			Image:         data,
			ImageMimeType: mime,
		}
		call = func() (*driver.ImageResponse, error) { return imageDriver.EditImage(ctx, editReq) }
	default:
		call = func() (*driver.ImageResponse, error) { return imageDriver.GenerateImage(ctx, &imageReq) }
	}

	var resp *driver.ImageResponse
	err = s.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = call()
		return callErr
	})
	if err != nil {
		return nil, mapProviderError(resolved.ProviderID, err)
	}

	if resp != nil {
		for _, block := range resp.Images {
			if !block.IsImage() {
				continue
			}
			return &ImageResult{
				Base64Data: encode.EncodeBase64String(block.Data),
				MimeType:   string(block.Type),
				Provider:   resolved.ProviderID,
				Model:      resolved.Model,
			}, nil
		}
	}
	return nil, errdefs.NewExternal(resolved.ProviderID, 0, &ProviderFailure{
		Code:    "AILINK_PROVIDER_EMPTY",
		Message: "provider returned no image data",
	})
}

func (s *Service) complete(ctx context.Context, role, slug, model string, vars map[string]string) (*prompt.Prompt, string, error) {
	if s == nil || s.Providers == nil {
		return nil, "", errors.New("ailink provider registry not configured")
	}
	if s.Registry == nil {
		return nil, "", errors.New("ailink prompt registry not configured")
	}

	def, err := s.Registry.Get(slug)
	if err != nil {
		return nil, "", err
	}
	if name, missing := def.MissingVariable(vars); missing {
		return nil, "", errdefs.NewValidation(name, fmt.Sprintf("required variable %q not provided", name))
	}

	messages, err := renderMessages(def, vars)
	if err != nil {
		return nil, "", err
	}

	resolved, err := s.Providers.Resolve(role, def, model, tierDefault)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	req := &driver.Request{
		Model:          resolved.Model,
		Messages:       messages,
		ResponseFormat: responseFormatForProvider(resolved, def),
		Temperature:    temperatureHint(def),
		PromptSlug:     def.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	var resp *driver.Response
	err = s.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = resolved.Driver.Complete(ctx, req)
		if callErr != nil && req.ResponseFormat.Type == formatJSONSchema && schemaRejected(callErr) {
			downgradeToJSONObject(req)
			resp, callErr = resolved.Driver.Complete(ctx, req)
		}
		return callErr
	})
	if err != nil {
		return nil, "", mapProviderError(resolved.ProviderID, err)
	}

	raw := extractContent(resp)
	if strings.TrimSpace(raw) == "" {
		return nil, "", errdefs.NewParse(slug, errors.New("empty response content"))
	}
	return def, raw, nil
}

func (s *Service) decodeDocument(def *prompt.Prompt, raw string) (*document.Map, error) {
	cfg := s.Providers.Config()
	doc, err := document.ParseLenient(raw)
	if err != nil {
		return nil, withRaw(cfg, err, raw)
	}
	if err := s.validateResponse(def, doc); err != nil {
		return nil, withRaw(cfg, errdefs.NewParse(def.Config.Slug, err), raw)
	}
	return doc, nil
}

func (s *Service) validateResponse(def *prompt.Prompt, doc *document.Map) error {
	if def == nil || len(def.Config.ResponseSchema) == 0 {
		return nil
	}

	var compiled *jsonschema.Schema
	if cached, ok := s.schemas.Load(def.Config.Slug); ok {
		compiled = cached.(*jsonschema.Schema)
	} else {
		var err error
		compiled, err = prompt.CompileSchema(def.Config.Slug, def.Config.ResponseSchema)
		if err != nil {
			return fmt.Errorf("compile response schema: %w", err)
		}
		s.schemas.Store(def.Config.Slug, compiled)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return err
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("response schema validation failed: %w", err)
	}
	return nil
}

func (s *Service) timeout() time.Duration {
	duration := s.Providers.Config().DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}
