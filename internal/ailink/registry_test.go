package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/openaisdk"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/xai"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
)

func TestResolveModelPrefersTier(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "image": "m-image"}}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []string{"prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", tierImage)
	require.NoError(t, err)
	require.Equal(t, "m-image", model)
}

func TestResolveModelImageTierLeavesDriverDefault(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "gpt-4o-mini"}}

	model, err := resolveModel(providerCfg, nil, "", tierImage)
	require.NoError(t, err)
	require.Empty(t, model)
}

func TestResolveModelUsesOverrideFirst(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "image": "m-image"}}

	model, err := resolveModel(providerCfg, nil, "override-model", tierImage)
	require.NoError(t, err)
	require.Equal(t, "override-model", model)
}

func TestResolveModelFallsBackToPromptPreferredModels(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []any{"", "prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", tierDefault)
	require.NoError(t, err)
	require.Equal(t, "prompt-model", model)
}

func TestResolveModelErrorsWithoutAnyModel(t *testing.T) {
	_, err := resolveModel(ProviderInstanceConfig{}, nil, "", tierDefault)
	require.ErrorContains(t, err, "model not configured")
}

func TestSelectCredentialPolicies(t *testing.T) {
	cfg := ProviderInstanceConfig{
		SelectionPolicy: "round_robin",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "a", APIKey: "ka", Priority: 1},
			{Enabled: true, Label: "b", APIKey: "kb", Priority: 1},
			{Enabled: true, Label: "low", APIKey: "kl", Priority: 0},
			{Enabled: false, Label: "off", APIKey: "ko", Priority: 9},
		},
	}

	reg := NewRegistry(Config{})
	next := func(group string, n int) int { return reg.rrIndex("p:"+group, n) }

	first, key, err := selectCredential(cfg, next)
	require.NoError(t, err)
	require.Equal(t, "a", first.Label)
	require.Equal(t, "a", key)

	second, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	require.Equal(t, "b", second.Label)

	cfg.DefaultCredential = "LOW"
	pinned, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	require.Equal(t, "low", pinned.Label)

	_, _, err = selectCredential(ProviderInstanceConfig{}, nil)
	require.ErrorContains(t, err, "no credentials")
}

func TestResolveRoutesRolesAndCachesDrivers(t *testing.T) {
	cfg := Config{
		Providers: map[string]ProviderInstanceConfig{
			"chat": {
				Enabled:     true,
				AIProvider:  ProviderXAI,
				Roles:       []string{"decompose"},
				Models:      map[string]string{"default": "grok-3-mini"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
			"images": {
				Enabled:     true,
				AIProvider:  ProviderOpenAISDK,
				BaseURL:     "http://localhost:9999/v1",
				Models:      map[string]string{"default": "gpt-4o-mini"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
		},
		Routing: map[string]string{"image": "images"},
	}
	reg := NewRegistry(cfg)

	resolved, err := reg.Resolve("decompose", nil, "", tierDefault)
	require.NoError(t, err)
	require.Equal(t, "chat", resolved.ProviderID)
	require.Equal(t, "grok-3-mini", resolved.Model)
	require.IsType(t, &xai.Client{}, resolved.Driver)
	require.Equal(t, "https://api.x.ai/v1", resolved.BaseURL)

	again, err := reg.Resolve("decompose", nil, "", tierDefault)
	require.NoError(t, err)
	require.Same(t, resolved.Driver, again.Driver)

	img, err := reg.Resolve("image", nil, "", tierImage)
	require.NoError(t, err)
	require.Equal(t, "images", img.ProviderID)
	require.Empty(t, img.Model)
	require.IsType(t, &openaisdk.Client{}, img.Driver)
	_, ok := img.Driver.(driver.ImageDriver)
	require.True(t, ok)

	_, err = reg.Resolve("translate", nil, "", tierDefault)
	require.ErrorContains(t, err, "no provider routing configured")
}

func TestResolveUsesInjectedDriver(t *testing.T) {
	drv := &recordingDriver{name: "stub"}
	reg := NewRegistry(Config{
		DefaultProvider: "p",
		Providers: map[string]ProviderInstanceConfig{
			"p": {Enabled: true, AIProvider: "custom", Models: map[string]string{"default": "m"}, Credentials: []CredentialConfig{{APIKey: "k"}}},
		},
	})
	reg.drivers = map[string]cachedDriver{"p:p0": {drv: drv}}

	resolved, err := reg.Resolve("", nil, "", tierDefault)
	require.NoError(t, err)
	require.Same(t, drv, resolved.Driver)
	require.Equal(t, "m", resolved.Model)
}

func TestResolveRejectsUnknownOrDisabledProviders(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultProvider: "gone",
		Providers: map[string]ProviderInstanceConfig{
			"off": {Enabled: false, AIProvider: ProviderOpenAI},
		},
		Routing: map[string]string{"decompose": "off"},
	})

	_, err := reg.Resolve("decompose", nil, "", tierDefault)
	require.ErrorContains(t, err, "disabled")

	_, err = reg.Resolve("options", nil, "", tierDefault)
	require.ErrorContains(t, err, "not configured")

	_, err = NewRegistry(Config{}).Resolve("", nil, "", tierDefault)
	require.ErrorContains(t, err, "no enabled providers")
}

func TestResolveImageRoleFallsBackToImageCapableProvider(t *testing.T) {
	reg := NewRegistry(Config{
		Providers: map[string]ProviderInstanceConfig{
			"chat": {
				Enabled:     true,
				AIProvider:  ProviderXAI,
				Models:      map[string]string{"default": "grok-3-mini"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
			"pictures": {
				Enabled:      true,
				AIProvider:   ProviderOpenAI,
				Capabilities: Capabilities{Images: true},
				Credentials:  []CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
		},
	})

	resolved, err := reg.Resolve("image", nil, "", tierImage)
	require.NoError(t, err)
	require.Equal(t, "pictures", resolved.ProviderID)
	require.Equal(t, "https://api.openai.com/v1", resolved.BaseURL)

	_, err = reg.Resolve("unknown-driver", nil, "", tierDefault)
	require.ErrorContains(t, err, "no provider routing configured")
}

func TestResolveRejectsUnsupportedDriver(t *testing.T) {
	reg := NewRegistry(Config{
		Providers: map[string]ProviderInstanceConfig{
			"p": {Enabled: true, Models: map[string]string{"default": "m"}, Credentials: []CredentialConfig{{APIKey: "k"}}},
		},
	})

	_, err := reg.Resolve("decompose", nil, "", tierDefault)
	require.ErrorContains(t, err, `unsupported ai_provider "(unset)"`)
}
