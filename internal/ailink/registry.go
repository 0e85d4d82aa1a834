package ailink

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/openai"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/openaisdk"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/xai"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
)

// Model tiers looked up in ProviderInstanceConfig.Models.
const (
	tierDefault = "default"
	tierImage   = "image"
)

// Supported ai_provider values.
const (
	ProviderOpenAI    = "openai"
	ProviderOpenAISDK = "openai-sdk"
	ProviderXAI       = "xai"
)

// driverFactory builds a driver and reports the base URL it will call.
type driverFactory func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string)

var driverFactories = map[string]driverFactory{
	ProviderOpenAI: func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		c := openai.NewClient(baseURL, apiKey)
		c.Timeout = timeout
		return c, c.BaseURL
	},
	ProviderOpenAISDK: func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		return openaisdk.NewClient(openaisdk.Config{APIKey: apiKey, BaseURL: baseURL, Timeout: timeout}), baseURL
	},
	ProviderXAI: func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		c := xai.NewClient(baseURL, apiKey)
		c.Timeout = timeout
		return c, c.BaseURL
	},
}

type cachedDriver struct {
	drv     driver.Driver
	baseURL string
}

// Registry routes studio roles to provider instances and caches one driver
// per provider and credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]cachedDriver
	cursor  map[string]int
}

type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

// Resolve picks the provider, credential, driver and model serving role.
// tier names the Models entry tried before the prompt's preferred models.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride, tier string) (*ResolvedProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("ailink registry not configured")
	}

	providerID, providerCfg, err := r.route(strings.TrimSpace(role))
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(providerCfg, func(group string, n int) int {
		return r.rrIndex(providerID+":"+group, n)
	})
	if err != nil {
		return nil, err
	}

	cached, err := r.driverFor(providerID, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(providerCfg, promptDef, modelOverride, tier)
	if err != nil {
		return nil, err
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     cached.drv,
		Model:      model,
		BaseURL:    strings.TrimSpace(cached.baseURL),
	}, nil
}

// route applies, in order: the explicit routing table, providers declaring
// the role, image-capable providers for the image role, the default
// provider, and finally the sole enabled provider.
func (r *Registry) route(role string) (string, ProviderInstanceConfig, error) {
	if role != "" {
		if id := strings.TrimSpace(r.cfg.Routing[role]); id != "" {
			cfg, err := r.enabledProvider(id, fmt.Sprintf("for role %q", role))
			return id, cfg, err
		}

		enabled := r.enabledIDs()
		if id, ok := firstWhere(enabled, func(cfg ProviderInstanceConfig) bool { return hasRole(cfg.Roles, role) }, r.cfg.Providers); ok {
			return id, r.cfg.Providers[id], nil
		}
		if role == tierImage {
			if id, ok := firstWhere(enabled, func(cfg ProviderInstanceConfig) bool { return cfg.Capabilities.Images }, r.cfg.Providers); ok {
				return id, r.cfg.Providers[id], nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		cfg, err := r.enabledProvider(id, "as default")
		return id, cfg, err
	}

	switch enabled := r.enabledIDs(); len(enabled) {
	case 0:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled providers configured")
	case 1:
		return enabled[0], r.cfg.Providers[enabled[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no provider routing configured for role %q", role)
	}
}

func (r *Registry) enabledProvider(id, usage string) (ProviderInstanceConfig, error) {
	cfg, ok := r.cfg.Providers[id]
	if !ok {
		return ProviderInstanceConfig{}, fmt.Errorf("provider %q %s not configured", id, usage)
	}
	if !cfg.Enabled {
		return ProviderInstanceConfig{}, fmt.Errorf("provider %q %s is disabled", id, usage)
	}
	return cfg, nil
}

// enabledIDs lists enabled provider ids in sorted order.
func (r *Registry) enabledIDs() []string {
	ids := make([]string, 0, len(r.cfg.Providers))
	for id, cfg := range r.cfg.Providers {
		if cfg.Enabled {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func firstWhere(ids []string, match func(ProviderInstanceConfig) bool, providers map[string]ProviderInstanceConfig) (string, bool) {
	for _, id := range ids {
		if match(providers[id]) {
			return id, true
		}
	}
	return "", false
}

// selectCredential returns the credential to use and a stable key for the
// driver cache. A pinned DefaultCredential wins; otherwise the highest
// priority group is used, rotating within it under round_robin.
func selectCredential(cfg ProviderInstanceConfig, rrNext func(group string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("no credentials configured")
	}

	usable := slices.DeleteFunc(slices.Clone(cfg.Credentials), func(c CredentialConfig) bool {
		labelled := strings.TrimSpace(c.Label) != ""
		return strings.TrimSpace(c.APIKey) == "" || (labelled && !c.Enabled)
	})
	if len(usable) == 0 {
		// The driver reports the missing key on first use.
		first := cfg.Credentials[0]
		return first, cmp.Or(strings.TrimSpace(first.Label), "0"), nil
	}

	if pinned := strings.TrimSpace(cfg.DefaultCredential); pinned != "" {
		idx := slices.IndexFunc(usable, func(c CredentialConfig) bool {
			return strings.EqualFold(strings.TrimSpace(c.Label), pinned)
		})
		if idx >= 0 {
			return usable[idx], strings.TrimSpace(usable[idx].Label), nil
		}
	}

	top := slices.MaxFunc(usable, func(a, b CredentialConfig) int { return a.Priority - b.Priority }).Priority
	group := slices.DeleteFunc(usable, func(c CredentialConfig) bool { return c.Priority != top })
	groupKey := strconv.Itoa(top)

	pick := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), "round_robin") && rrNext != nil {
		pick = rrNext(groupKey, len(group))
	}
	cred := group[pick]
	return cred, cmp.Or(strings.TrimSpace(cred.Label), "p"+groupKey), nil
}

func (r *Registry) driverFor(providerID string, providerCfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (cachedDriver, error) {
	if strings.TrimSpace(providerID) == "" {
		return cachedDriver{}, fmt.Errorf("provider id is required")
	}
	key := providerID
	if credKey != "" {
		key += ":" + credKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.drivers[key]; ok {
		return cached, nil
	}

	kind := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider))
	factory, ok := driverFactories[kind]
	if !ok {
		return cachedDriver{}, fmt.Errorf("unsupported ai_provider %q for provider %q", cmp.Or(kind, "(unset)"), providerID)
	}
	drv, baseURL := factory(providerCfg.BaseURL, cred.APIKey, r.cfg.DefaultTimeout)

	if r.drivers == nil {
		r.drivers = map[string]cachedDriver{}
	}
	cached := cachedDriver{drv: drv, baseURL: baseURL}
	r.drivers[key] = cached
	return cached, nil
}

// resolveModel tries the override, the tier model, the prompt's preferred
// models and the provider default in that order. The image tier stops after
// the tier model and returns "" so the driver default applies.
func resolveModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override, tier string) (string, error) {
	tier = strings.TrimSpace(tier)
	candidates := []string{override, providerCfg.Models[tier]}
	if tier != tierImage {
		candidates = append(candidates, preferredModels(promptDef)...)
		candidates = append(candidates, providerCfg.Models[tierDefault])
	}
	for _, model := range candidates {
		if model = strings.TrimSpace(model); model != "" {
			return model, nil
		}
	}
	if tier == tierImage {
		return "", nil
	}
	return "", fmt.Errorf("model not configured")
}

func preferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}
	switch hint := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case []string:
		return hint
	case []any:
		models := make([]string, 0, len(hint))
		for _, item := range hint {
			if s, ok := item.(string); ok {
				models = append(models, s)
			}
		}
		return models
	case string:
		return []string{hint}
	default:
		return nil
	}
}

func (r *Registry) rrIndex(key string, n int) int {
	if r == nil || n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == nil {
		r.cursor = map[string]int{}
	}
	idx := r.cursor[key] % n
	r.cursor[key]++
	return idx
}

func hasRole(roles []string, role string) bool {
	return slices.ContainsFunc(roles, func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), role)
	})
}
