// Package engine wires the prompt-construction core to its external
// collaborators: decomposition, option suggestion, translation, image
// generation and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/synth"
)

// ErrNotConfigured marks calls that need a collaborator the studio was
// built without.
var ErrNotConfigured = errors.New("not configured")

func notConfigured(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotConfigured)
}

// rateLimitCooldown holds an owner's image requests after a provider 429.
const rateLimitCooldown = 30 * time.Second

// Decomposer turns a free-text prompt into a structured document.
type Decomposer interface {
	Decompose(ctx context.Context, req ailink.DecomposeRequest) (*document.Map, error)
}

// Translator renders a document in another language.
type Translator interface {
	Translate(ctx context.Context, req ailink.TranslateRequest) (string, error)
}

// ImageGenerator produces images from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ailink.ImageRequest) (*ailink.ImageResult, error)
}

// HistoryStore persists generated images.
type HistoryStore interface {
	ListHistory(ctx context.Context, ownerID string) ([]core.HistoryEntry, error)
	SaveHistory(ctx context.Context, entry core.HistoryEntry) (core.HistoryEntry, error)
	DeleteHistory(ctx context.Context, id, ownerID string) error
}

// StyleStore persists styles.
type StyleStore interface {
	ListStyles(ctx context.Context, ownerID string) ([]core.Style, error)
	SaveStyle(ctx context.Context, style core.Style) (core.Style, error)
	DeleteStyle(ctx context.Context, id, ownerID string) error
}

// TemplateStore persists prompt templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context, ownerID string) ([]core.Template, error)
	SaveTemplate(ctx context.Context, tmpl core.Template) (core.Template, error)
	DeleteTemplate(ctx context.Context, id, ownerID string) error
}

// Studio coordinates the image workflow. Nil collaborators are reported as
// errors when the operation needing them is called.
type Studio struct {
	Decomposer Decomposer
	Suggester  options.Suggester
	Translator Translator
	Images     ImageGenerator
	History    HistoryStore
	Styles     StyleStore
	Templates  TemplateStore
	Limiter    *RateLimiter

	// PreviewMode names the synthesizer used when a caller asks for none.
	PreviewMode    string
	TargetLanguage string
	Clock          func() time.Time
}

// GenerateRequest asks for one image. When Prompt is empty the document is
// synthesized with the simplified registry.
type GenerateRequest struct {
	OwnerID      string
	Prompt       string
	Document     *document.Map
	StyleIDs     []string
	Mode         core.ImageMode
	UploadBase64 string
	Size         string
}

// GenerateResult carries the new history entry. Warnings list persistence
// failures that did not undo the generation.
type GenerateResult struct {
	Entry    core.HistoryEntry
	Warnings []string
}

// TranslateResult is the text for the translation panel. Translated is
// false when the original JSON is shown instead.
type TranslateResult struct {
	Text       string
	Translated bool
	Warning    string
}

// StyleResult carries a saved (or only retained) style.
type StyleResult struct {
	Style   core.Style
	Warning string
}

// TemplateResult carries a saved (or only retained) template.
type TemplateResult struct {
	Template core.Template
	Warning  string
}

// Fields lists the editable fields of doc.
func (s *Studio) Fields(doc *document.Map) []document.Field {
	return document.Enumerate(doc)
}

// Synthesize renders doc with the named synthesizer ("simplified" or
// "rich"); an empty mode uses PreviewMode.
func (s *Studio) Synthesize(doc *document.Map, mode string) (string, error) {
	if strings.TrimSpace(mode) == "" && s != nil {
		mode = s.PreviewMode
	}
	synthesizer, ok := synth.Lookup(mode)
	if !ok {
		return "", errdefs.NewValidation("mode", fmt.Sprintf("unknown synthesizer %q", mode))
	}
	return synthesizer.Synthesize(doc), nil
}

// Decompose converts a free-text prompt into a document. On failure no
// document is returned.
func (s *Studio) Decompose(ctx context.Context, prompt string) (*document.Map, error) {
	if s == nil || s.Decomposer == nil {
		return nil, notConfigured("decomposer")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errdefs.NewValidation("prompt", "prompt is required")
	}
	return s.Decomposer.Decompose(ctx, ailink.DecomposeRequest{Prompt: prompt})
}

// SuggestOptions asks for replacement values for the field at path.
func (s *Studio) SuggestOptions(ctx context.Context, path, currentValue string, doc *document.Map) ([]string, error) {
	if s == nil || s.Suggester == nil {
		return nil, notConfigured("option suggester")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errdefs.NewValidation("path", "field path is required")
	}
	catalog := &options.Catalog{}
	return catalog.RequestAIOptions(ctx, s.Suggester, path, currentValue, doc)
}

// Translate renders doc for display in the target language. Missing
// configuration or a failed call falls back to the indented original.
func (s *Studio) Translate(ctx context.Context, doc *document.Map, targetLanguage string) TranslateResult {
	original, err := document.MarshalIndent(orEmpty(doc))
	if err != nil {
		return TranslateResult{Warning: err.Error()}
	}
	if doc == nil || doc.Len() == 0 {
		return TranslateResult{Text: original}
	}
	if s == nil || s.Translator == nil {
		return TranslateResult{Text: original, Warning: "translation not configured"}
	}

	lang := strings.TrimSpace(targetLanguage)
	if lang == "" {
		lang = s.TargetLanguage
	}
	translated, err := s.Translator.Translate(ctx, ailink.TranslateRequest{Document: doc, TargetLanguage: lang})
	if err != nil {
		return TranslateResult{Text: original, Warning: err.Error()}
	}
	return TranslateResult{Text: translated, Translated: true}
}

// Generate produces an image and records it in the owner's history.
func (s *Studio) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if s == nil || s.Images == nil {
		return nil, notConfigured("image generator")
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, errdefs.NewValidation("owner_id", "owner is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = core.ImageModeNew
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && req.Document != nil {
		prompt = synth.Simplified.Synthesize(req.Document)
	}
	if len(req.StyleIDs) > 0 {
		styled, err := s.applyStyles(ctx, owner, prompt, req.StyleIDs)
		if err != nil {
			return nil, err
		}
		prompt = styled
	}
	if prompt == "" {
		return nil, errdefs.NewValidation("prompt", "prompt is required")
	}
	if mode == core.ImageModeEdit && strings.TrimSpace(req.UploadBase64) == "" {
		return nil, errdefs.NewValidation("image", "edit mode requires an uploaded image")
	}

	key := Key(OperationImages, owner)
	slot, wait, err := s.Limiter.Reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		return nil, &errdefs.RateLimitError{Key: key, RetryAfter: wait}
	}

	image, err := s.Images.GenerateImage(ctx, ailink.ImageRequest{
		Prompt:       prompt,
		Mode:         mode,
		UploadBase64: req.UploadBase64,
		Size:         req.Size,
	})
	if err != nil {
		var ext *errdefs.ExternalServiceError
		if errors.As(err, &ext) && ext.StatusCode == 429 {
			_ = s.Limiter.Backoff(ctx, key, rateLimitCooldown)
		} else {
			_ = s.Limiter.Refund(ctx, slot)
		}
		return nil, err
	}

	entry := core.HistoryEntry{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Prompt:     prompt,
		Mode:       mode,
		Base64Data: image.Base64Data,
		MimeType:   image.MimeType,
		CreatedAt:  s.now(),
	}
	if req.Document != nil {
		entry.Document = req.Document.Clone()
	}

	result := &GenerateResult{Entry: entry}
	if s.History == nil {
		result.Warnings = append(result.Warnings, "history not saved: history store not configured")
		return result, nil
	}
	saved, err := s.History.SaveHistory(ctx, entry)
	if err != nil {
		result.Warnings = append(result.Warnings, "history not saved: "+err.Error())
		return result, nil
	}
	result.Entry = saved
	return result, nil
}

// applyStyles appends the prompts of the owner's styles, in the order
// given, to prompt.
func (s *Studio) applyStyles(ctx context.Context, owner, prompt string, ids []string) (string, error) {
	if s.Styles == nil {
		return "", notConfigured("style store")
	}
	styles, err := s.Styles.ListStyles(ctx, owner)
	if err != nil {
		return "", err
	}
	byID := make(map[string]core.Style, len(styles))
	for _, style := range styles {
		byID[style.ID] = style
	}

	parts := []string{prompt}
	for _, id := range ids {
		style, ok := byID[strings.TrimSpace(id)]
		if !ok {
			return "", errdefs.NewNotFound("style", id)
		}
		parts = append(parts, stylePrompt(style))
	}
	return joinNonEmpty(parts), nil
}

func stylePrompt(style core.Style) string {
	if text := strings.TrimSpace(style.Prompt); text != "" {
		return text
	}
	if style.Document != nil {
		return synth.Simplified.Synthesize(style.Document)
	}
	return ""
}

// SaveStyle stores a style. A failed save is reported as a warning and the
// style is still returned with its id assigned.
func (s *Studio) SaveStyle(ctx context.Context, style core.Style) (*StyleResult, error) {
	style.OwnerID = strings.TrimSpace(style.OwnerID)
	style.Name = strings.TrimSpace(style.Name)
	if style.OwnerID == "" {
		return nil, errdefs.NewValidation("owner_id", "owner is required")
	}
	if style.Name == "" {
		return nil, errdefs.NewValidation("name", "name is required")
	}
	if strings.TrimSpace(style.Prompt) == "" && (style.Document == nil || style.Document.Len() == 0) {
		return nil, errdefs.NewValidation("prompt", "a prompt or document is required")
	}
	if style.ID == "" {
		style.ID = uuid.NewString()
	}
	if style.CreatedAt.IsZero() {
		style.CreatedAt = s.now()
	}

	if s == nil || s.Styles == nil {
		return &StyleResult{Style: style, Warning: "style not saved: style store not configured"}, nil
	}
	saved, err := s.Styles.SaveStyle(ctx, style)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, err
		}
		return &StyleResult{Style: style, Warning: "style not saved: " + err.Error()}, nil
	}
	return &StyleResult{Style: saved}, nil
}

// SaveTemplate stores a template; failures become warnings as for styles.
func (s *Studio) SaveTemplate(ctx context.Context, tmpl core.Template) (*TemplateResult, error) {
	tmpl.OwnerID = strings.TrimSpace(tmpl.OwnerID)
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.OwnerID == "" {
		return nil, errdefs.NewValidation("owner_id", "owner is required")
	}
	if tmpl.Name == "" {
		return nil, errdefs.NewValidation("name", "name is required")
	}
	if tmpl.Document == nil || tmpl.Document.Len() == 0 {
		return nil, errdefs.NewValidation("document", "document is required")
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = s.now()
	}

	if s == nil || s.Templates == nil {
		return &TemplateResult{Template: tmpl, Warning: "template not saved: template store not configured"}, nil
	}
	saved, err := s.Templates.SaveTemplate(ctx, tmpl)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, err
		}
		return &TemplateResult{Template: tmpl, Warning: "template not saved: " + err.Error()}, nil
	}
	return &TemplateResult{Template: saved}, nil
}

func (s *Studio) ListHistory(ctx context.Context, ownerID string) ([]core.HistoryEntry, error) {
	if s == nil || s.History == nil {
		return nil, notConfigured("history store")
	}
	return s.History.ListHistory(ctx, ownerID)
}

func (s *Studio) DeleteHistory(ctx context.Context, id, ownerID string) error {
	if s == nil || s.History == nil {
		return notConfigured("history store")
	}
	return s.History.DeleteHistory(ctx, id, ownerID)
}

func (s *Studio) ListStyles(ctx context.Context, ownerID string) ([]core.Style, error) {
	if s == nil || s.Styles == nil {
		return nil, notConfigured("style store")
	}
	return s.Styles.ListStyles(ctx, ownerID)
}

func (s *Studio) DeleteStyle(ctx context.Context, id, ownerID string) error {
	if s == nil || s.Styles == nil {
		return notConfigured("style store")
	}
	return s.Styles.DeleteStyle(ctx, id, ownerID)
}

func (s *Studio) ListTemplates(ctx context.Context, ownerID string) ([]core.Template, error) {
	if s == nil || s.Templates == nil {
		return nil, notConfigured("template store")
	}
	return s.Templates.ListTemplates(ctx, ownerID)
}

func (s *Studio) DeleteTemplate(ctx context.Context, id, ownerID string) error {
	if s == nil || s.Templates == nil {
		return notConfigured("template store")
	}
	return s.Templates.DeleteTemplate(ctx, id, ownerID)
}

func (s *Studio) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func orEmpty(doc *document.Map) *document.Map {
	if doc == nil {
		return document.NewMap()
	}
	return doc
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ", ")
}
