package ailink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/encode"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
)

// recordingDriver answers completions from a queue and records requests.
type recordingDriver struct {
	name   string
	schema bool

	mu        sync.Mutex
	requests  []*driver.Request
	responses []string
	errs      []error
	generated []*driver.ImageRequest
	edits     []*driver.ImageEditRequest
	image     *driver.ImageResponse
	imageErr  error
}

func (d *recordingDriver) Complete(_ context.Context, req *driver.Request) (*driver.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Copy the format so a later fallback does not rewrite history.
	copied := *req
	if req.ResponseFormat != nil {
		format := *req.ResponseFormat
		copied.ResponseFormat = &format
	}
	d.requests = append(d.requests, &copied)
	idx := len(d.requests) - 1

	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}
	text := ""
	if len(d.responses) > 0 {
		text = d.responses[len(d.responses)-1]
		if idx < len(d.responses) {
			text = d.responses[idx]
		}
	}
	return &driver.Response{Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: text}}}, nil
}

func (d *recordingDriver) Name() string { return d.name }

func (d *recordingDriver) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsImages: true, SupportsImageEdits: true, SupportsJSONSchema: d.schema}
}

func (d *recordingDriver) GenerateImage(_ context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generated = append(d.generated, req)
	return d.image, d.imageErr
}

func (d *recordingDriver) EditImage(_ context.Context, req *driver.ImageEditRequest) (*driver.ImageResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edits = append(d.edits, req)
	return d.image, d.imageErr
}

// chatOnly hides the image methods of the wrapped driver.
type chatOnly struct{ driver.Driver }

func newTestService(t *testing.T, drv driver.Driver, cfg Config) *Service {
	t.Helper()
	reg, err := prompt.DefaultRegistry()
	require.NoError(t, err)

	cfg.DefaultProvider = "p"
	cfg.Providers = map[string]ProviderInstanceConfig{
		"p": {
			Enabled:     true,
			AIProvider:  "custom",
			Models:      map[string]string{"default": "m-chat"},
			Credentials: []CredentialConfig{{APIKey: "k"}},
		},
	}
	providers := NewRegistry(cfg)
	providers.drivers = map[string]cachedDriver{"p:p0": {drv: drv}}
	return &Service{Providers: providers, Registry: reg, ImageSize: "1024x1024"}
}

func messageText(msg content.Message) string {
	if len(msg.Content) == 0 {
		return ""
	}
	return msg.Content[0].Text
}

func TestDecomposeBuildsFewShotRequestAndPrunes(t *testing.T) {
	drv := &recordingDriver{name: "stub", responses: []string{"```json\n{\"subject\":{\"description\":\"a cat\"},\"mood\":{},\"format\":{\"aspectRatio\":\"1:1\"}}\n```"}}
	svc := newTestService(t, drv, Config{})

	doc, err := svc.Decompose(context.Background(), DecomposeRequest{Prompt: "  a cat --ar 1:1 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"subject", "format"}, doc.Keys())

	require.Len(t, drv.requests, 1)
	req := drv.requests[0]
	assert.Equal(t, "m-chat", req.Model)
	assert.Equal(t, prompt.SlugDecompose, req.PromptSlug)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.2, *req.Temperature, 1e-9)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "a cat --ar 1:1", messageText(req.Messages[3]))
}

func TestDecomposeRejectsEmptyPrompt(t *testing.T) {
	drv := &recordingDriver{name: "stub"}
	svc := newTestService(t, drv, Config{})

	_, err := svc.Decompose(context.Background(), DecomposeRequest{Prompt: "   "})
	require.True(t, errdefs.IsValidation(err))
	assert.Empty(t, drv.requests)
}

func TestDecomposeParseFailures(t *testing.T) {
	drv := &recordingDriver{name: "stub", responses: []string{"sorry, I cannot help"}}
	svc := newTestService(t, drv, Config{})

	_, err := svc.Decompose(context.Background(), DecomposeRequest{Prompt: "a cat"})
	require.True(t, errdefs.IsParse(err))
	var rawErr *RawResponseError
	assert.False(t, errors.As(err, &rawErr))

	captured := newTestService(t, drv, Config{Debug: DebugConfig{CaptureRawEnabled: true, CaptureRawMaxBytes: 5}})
	_, err = captured.Decompose(context.Background(), DecomposeRequest{Prompt: "a cat"})
	require.True(t, errdefs.IsParse(err))
	require.True(t, errors.As(err, &rawErr))
	assert.Equal(t, "sorry", string(rawErr.Raw))

	empty := newTestService(t, &recordingDriver{name: "stub", responses: []string{"  "}}, Config{})
	_, err = empty.Decompose(context.Background(), DecomposeRequest{Prompt: "a cat"})
	require.True(t, errdefs.IsParse(err))
}

func TestSuggestOptionsUsesStrictSchema(t *testing.T) {
	drv := &recordingDriver{name: "stub", schema: true, responses: []string{`{"options":["Crimson","Teal"]}`}}
	svc := newTestService(t, drv, Config{})

	doc, err := document.Parse([]byte(`{"subject":{"color":"Red"}}`))
	require.NoError(t, err)

	values, err := svc.SuggestOptions(context.Background(), options.SuggestRequest{
		FieldName:    "color",
		FieldPath:    "subject.color",
		CurrentValue: "Red",
		Document:     doc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Crimson", "Teal"}, values)

	req := drv.requests[0]
	require.Equal(t, "json_schema", req.ResponseFormat.Type)
	assert.Equal(t, "field_options", req.ResponseFormat.JSONSchema.Name)
	user := messageText(req.Messages[len(req.Messages)-1])
	assert.Contains(t, user, "Field path: subject.color")
	assert.Contains(t, user, "Current value: Red")
	assert.Contains(t, user, `"color": "Red"`)
}

func TestSuggestOptionsFallsBackWhenSchemaRejected(t *testing.T) {
	drv := &recordingDriver{
		name:      "stub",
		schema:    true,
		errs:      []error{&driver.ProviderError{Provider: "stub", StatusCode: 400, Message: "Invalid 'response_format'"}},
		responses: []string{"", `["Crimson"]`},
	}
	svc := newTestService(t, drv, Config{})

	values, err := svc.SuggestOptions(context.Background(), options.SuggestRequest{FieldPath: "subject.color"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Crimson"}, values)

	require.Len(t, drv.requests, 2)
	assert.Equal(t, "json_schema", drv.requests[0].ResponseFormat.Type)
	assert.Equal(t, "json_object", drv.requests[1].ResponseFormat.Type)
	assert.Contains(t, messageText(drv.requests[1].Messages[len(drv.requests[1].Messages)-1]), "The field is currently empty.")
}

func TestSuggestOptionsMapsProviderErrors(t *testing.T) {
	drv := &recordingDriver{name: "stub", errs: []error{&driver.ProviderError{Provider: "stub", StatusCode: 429, Message: "slow down"}}}
	svc := newTestService(t, drv, Config{})

	_, err := svc.SuggestOptions(context.Background(), options.SuggestRequest{FieldPath: "mood"})
	require.True(t, errdefs.IsExternal(err))
	assert.Equal(t, "AILINK_PROVIDER_RATE_LIMIT", FailureCode(err))

	_, err = svc.SuggestOptions(context.Background(), options.SuggestRequest{})
	require.True(t, errdefs.IsValidation(err))
}

func TestTranslateDefaultsToJapanese(t *testing.T) {
	drv := &recordingDriver{name: "stub", responses: []string{`{"subject":{"description":"赤い自転車"},"format":{"aspectRatio":"16:9"}}`}}
	svc := newTestService(t, drv, Config{})

	doc, err := document.Parse([]byte(`{"subject":{"description":"a red bicycle"},"format":{"aspectRatio":"16:9"}}`))
	require.NoError(t, err)

	out, err := svc.Translate(context.Background(), TranslateRequest{Document: doc})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"subject\": {\n    \"description\": \"赤い自転車\"\n  },\n  \"format\": {\n    \"aspectRatio\": \"16:9\"\n  }\n}", out)

	req := drv.requests[0]
	assert.Contains(t, messageText(req.Messages[0]), "into Japanese")
	assert.Contains(t, messageText(req.Messages[len(req.Messages)-1]), "a red bicycle")

	svc.TargetLanguage = "French"
	_, err = svc.Translate(context.Background(), TranslateRequest{Document: doc})
	require.NoError(t, err)
	assert.Contains(t, messageText(drv.requests[1].Messages[0]), "into French")

	_, err = svc.Translate(context.Background(), TranslateRequest{Document: document.NewMap()})
	require.True(t, errdefs.IsValidation(err))
}

func TestGenerateImageNewMode(t *testing.T) {
	drv := &recordingDriver{name: "stub", image: &driver.ImageResponse{Images: []content.ContentBlock{
		{Type: content.ContentTypeText, Text: "https://example.invalid/a.png"},
		{Type: content.ContentTypePNG, Data: []byte("png-bytes")},
	}}}
	svc := newTestService(t, drv, Config{})

	result, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.NoError(t, err)
	assert.Equal(t, encode.EncodeBase64String([]byte("png-bytes")), result.Base64Data)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, "p", result.Provider)

	require.Len(t, drv.generated, 1)
	assert.Equal(t, "a cat", drv.generated[0].Prompt)
	assert.Equal(t, 1, drv.generated[0].Count)
	assert.Equal(t, "1024x1024", drv.generated[0].Size)
	assert.Empty(t, drv.generated[0].Model)
	assert.Empty(t, drv.edits)
}

func TestGenerateImageEditMode(t *testing.T) {
	drv := &recordingDriver{name: "stub", image: &driver.ImageResponse{Images: []content.ContentBlock{{Type: content.ContentTypeJPEG, Data: []byte{0xff}}}}}
	svc := newTestService(t, drv, Config{})

	_, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat", Mode: core.ImageModeEdit})
	require.True(t, errdefs.IsValidation(err))

	upload := encode.DataURL("image/png", []byte("source"))
	result, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat", Mode: core.ImageModeEdit, UploadBase64: upload, Size: "512x512"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.MimeType)

	require.Len(t, drv.edits, 1)
	assert.Equal(t, []byte("source"), drv.edits[0].Image)
	assert.Equal(t, "image/png", drv.edits[0].ImageMimeType)
	assert.Equal(t, "512x512", drv.edits[0].Size)
}

func TestGenerateImageFailures(t *testing.T) {
	_, err := newTestService(t, &recordingDriver{name: "stub"}, Config{}).GenerateImage(context.Background(), ImageRequest{})
	require.True(t, errdefs.IsValidation(err))

	svc := newTestService(t, chatOnly{&recordingDriver{name: "stub"}}, Config{})
	_, err = svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.True(t, errdefs.IsExternal(err))
	assert.Equal(t, "AILINK_PROVIDER_UNSUPPORTED", FailureCode(err))

	empty := newTestService(t, &recordingDriver{name: "stub", image: &driver.ImageResponse{}}, Config{})
	_, err = empty.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.True(t, errdefs.IsExternal(err))
	assert.Equal(t, "AILINK_PROVIDER_EMPTY", FailureCode(err))

	failing := newTestService(t, &recordingDriver{name: "stub", imageErr: &driver.ProviderError{StatusCode: 401, Message: "bad key"}}, Config{})
	_, err = failing.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	assert.Equal(t, "AILINK_PROVIDER_AUTH", FailureCode(err))
}

func TestServiceWithoutProviders(t *testing.T) {
	svc, err := NewService(Config{}, Roles{})
	require.NoError(t, err)

	_, err = svc.Decompose(context.Background(), DecomposeRequest{Prompt: "a cat"})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
