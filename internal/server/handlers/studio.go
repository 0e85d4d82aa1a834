package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/errors"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/metrics"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/middleware"
)

// DefaultMaxBodyBytes bounds request bodies when StudioAPI.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 16 << 20

// StudioAPI serves the /api/v1 prompt and image endpoints.
type StudioAPI struct {
	Studio       *engine.Studio
	MaxBodyBytes int64
}

type synthesizeRequest struct {
	Document *document.Map `json:"document"`
	Mode     string        `json:"mode"`
}

type synthesizeResponse struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

type decomposeRequest struct {
	Prompt string `json:"prompt"`
}

type decomposeResponse struct {
	Document *document.Map    `json:"document"`
	Fields   []document.Field `json:"fields"`
	Preview  string           `json:"preview"`
}

type fieldsRequest struct {
	Document *document.Map `json:"document"`
}

type fieldsResponse struct {
	Fields []document.Field `json:"fields"`
}

type suggestRequest struct {
	Path         string        `json:"path"`
	CurrentValue string        `json:"current_value"`
	Document     *document.Map `json:"document"`
}

type suggestResponse struct {
	Path    string   `json:"path"`
	Options []string `json:"options"`
}

type translateRequest struct {
	Document       *document.Map `json:"document"`
	TargetLanguage string        `json:"target_language"`
}

type translateResponse struct {
	Text       string `json:"text"`
	Translated bool   `json:"translated"`
	Warning    string `json:"warning,omitempty"`
}

type generateRequest struct {
	Prompt       string        `json:"prompt"`
	Document     *document.Map `json:"document"`
	StyleIDs     []string      `json:"style_ids"`
	Mode         string        `json:"mode"`
	UploadBase64 string        `json:"upload_base64"`
	Size         string        `json:"size"`
}

type generateResponse struct {
	Entry    core.HistoryEntry `json:"entry"`
	Warnings []string          `json:"warnings,omitempty"`
}

type saveRequest struct {
	Name     string              `json:"name"`
	Prompt   string              `json:"prompt"`
	Document *document.Map       `json:"document"`
	Options  map[string][]string `json:"options"`
}

type styleResponse struct {
	Style   core.Style `json:"style"`
	Warning string     `json:"warning,omitempty"`
}

type templateResponse struct {
	Template core.Template `json:"template"`
	Warning  string        `json:"warning,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Synthesize renders a document into prompt text.
func (a *StudioAPI) Synthesize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req synthesizeRequest
	if !a.decode(w, r, &req) {
		return
	}

	prompt, err := a.Studio.Synthesize(req.Document, req.Mode)
	observe("synthesize", start, err)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	mode := req.Mode
	if strings.TrimSpace(mode) == "" {
		mode = a.Studio.PreviewMode
	}
	writeJSON(w, http.StatusOK, synthesizeResponse{Prompt: prompt, Mode: mode})
}

// Decompose converts free text into a document, with its fields and a
// rich preview.
func (a *StudioAPI) Decompose(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req decomposeRequest
	if !a.decode(w, r, &req) {
		return
	}

	doc, err := a.Studio.Decompose(r.Context(), req.Prompt)
	observe("decompose", start, err)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	preview, err := a.Studio.Synthesize(doc, "")
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decomposeResponse{
		Document: doc,
		Fields:   a.Studio.Fields(doc),
		Preview:  preview,
	})
}

// Fields enumerates the editable leaves of a document.
func (a *StudioAPI) Fields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if !a.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse{Fields: a.Studio.Fields(req.Document)})
}

// SuggestOptions asks the AI for replacement values of one field.
func (a *StudioAPI) SuggestOptions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req suggestRequest
	if !a.decode(w, r, &req) {
		return
	}

	values, err := a.Studio.SuggestOptions(r.Context(), req.Path, req.CurrentValue, req.Document)
	observe("suggest_options", start, err)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Path: req.Path, Options: values})
}

// Translate renders a document in the target language. Failures fall back
// to the original JSON with a warning, so this endpoint does not error.
func (a *StudioAPI) Translate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req translateRequest
	if !a.decode(w, r, &req) {
		return
	}

	result := a.Studio.Translate(r.Context(), req.Document, req.TargetLanguage)
	metrics.RecordOperation("translate", result.Translated, time.Since(start))
	if !result.Translated && result.Warning != "" {
		metrics.RecordTranslationFallback()
		logWarning("Translation fell back to original document", r, zap.String("reason", result.Warning))
	}
	writeJSON(w, http.StatusOK, translateResponse{
		Text:       result.Text,
		Translated: result.Translated,
		Warning:    result.Warning,
	})
}

// GenerateImage produces an image and records it in the caller's history.
func (a *StudioAPI) GenerateImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	mode, err := core.ParseImageMode(req.Mode)
	if err != nil {
		apperrors.RespondWithError(w, r, errdefs.NewValidation("mode", err.Error()))
		return
	}

	result, err := a.Studio.Generate(r.Context(), engine.GenerateRequest{
		OwnerID:      owner,
		Prompt:       req.Prompt,
		Document:     req.Document,
		StyleIDs:     req.StyleIDs,
		Mode:         mode,
		UploadBase64: req.UploadBase64,
		Size:         req.Size,
	})
	observe("generate", start, err)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	metrics.RecordImageGenerated(string(result.Entry.Mode), "")
	for _, warning := range result.Warnings {
		metrics.RecordPersistenceWarning("history")
		logWarning("Generated image kept without history", r, zap.String("warning", warning))
	}
	writeJSON(w, http.StatusCreated, generateResponse{Entry: result.Entry, Warnings: result.Warnings})
}

// ListHistory returns the caller's generated images, newest first.
func (a *StudioAPI) ListHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	items, err := a.Studio.ListHistory(r.Context(), owner)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.HistoryEntry]{Items: nonNil(items)})
}

func (a *StudioAPI) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	a.deleteEntity(w, r, a.Studio.DeleteHistory)
}

func (a *StudioAPI) ListStyles(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	items, err := a.Studio.ListStyles(r.Context(), owner)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.Style]{Items: nonNil(items)})
}

// SaveStyle stores a style. A store failure still returns the style with a
// warning.
func (a *StudioAPI) SaveStyle(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if !a.decode(w, r, &req) {
		return
	}

	result, err := a.Studio.SaveStyle(r.Context(), core.Style{
		OwnerID:  owner,
		Name:     req.Name,
		Prompt:   req.Prompt,
		Document: req.Document,
		Options:  req.Options,
	})
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	if result.Warning != "" {
		metrics.RecordPersistenceWarning("style")
		logWarning("Style kept without persistence", r, zap.String("warning", result.Warning))
	}
	writeJSON(w, http.StatusCreated, styleResponse{Style: result.Style, Warning: result.Warning})
}

func (a *StudioAPI) DeleteStyle(w http.ResponseWriter, r *http.Request) {
	a.deleteEntity(w, r, a.Studio.DeleteStyle)
}

func (a *StudioAPI) ListTemplates(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	items, err := a.Studio.ListTemplates(r.Context(), owner)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.Template]{Items: nonNil(items)})
}

// SaveTemplate stores a template with its option catalog.
func (a *StudioAPI) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if !a.decode(w, r, &req) {
		return
	}

	result, err := a.Studio.SaveTemplate(r.Context(), core.Template{
		OwnerID:  owner,
		Name:     req.Name,
		Prompt:   req.Prompt,
		Document: req.Document,
		Options:  req.Options,
	})
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	if result.Warning != "" {
		metrics.RecordPersistenceWarning("template")
		logWarning("Template kept without persistence", r, zap.String("warning", result.Warning))
	}
	writeJSON(w, http.StatusCreated, templateResponse{Template: result.Template, Warning: result.Warning})
}

func (a *StudioAPI) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	a.deleteEntity(w, r, a.Studio.DeleteTemplate)
}

func (a *StudioAPI) deleteEntity(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id, ownerID string) error) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apperrors.RespondWithError(w, r, errdefs.NewValidation("id", "id is required"))
		return
	}
	if err := del(r.Context(), id, owner); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. An empty body leaves v zero-valued.
func (a *StudioAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.RespondWithError(w, r, apperrors.NewInvalidInputError("request body too large"))
			return false
		}
		apperrors.RespondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := middleware.GetOwnerID(r.Context())
	if owner == "" {
		apperrors.RespondWithError(w, r, errdefs.NewValidation("owner_id", "missing "+middleware.OwnerIDHeader+" header"))
		return "", false
	}
	return owner, true
}

func observe(operation string, start time.Time, err error) {
	metrics.RecordOperation(operation, err == nil, time.Since(start))
	if err != nil {
		metrics.RecordOperationError(operation, apperrors.FromError(context.Background(), err).Code)
	}
}

func logWarning(msg string, r *http.Request, fields ...zap.Field) {
	if observability.ServerLogger == nil {
		return
	}
	fields = append(fields,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("owner_id", middleware.GetOwnerID(r.Context())))
	observability.ServerLogger.Warn(msg, fields...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
