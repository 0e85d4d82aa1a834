package config

import (
	"os"
	"slices"
	"strconv"
	"strings"
)

// providerField writes one GENIMAGE_AILINK_PROVIDERS_<ID>_<FIELD> value.
// rest holds the segments after the keyword; false means the name does not
// fit this field and the scan moves on.
type providerField func(provider map[string]any, rest []string, value string) bool

var providerFields = map[string]providerField{
	"ENABLED": func(p map[string]any, rest []string, value string) bool {
		return setWhen(len(rest) == 0, p, "enabled", parseBool(value))
	},
	"AI": func(p map[string]any, rest []string, value string) bool {
		return setWhen(matches(rest, "PROVIDER"), p, "ai_provider", strings.ToLower(value))
	},
	"BASE": func(p map[string]any, rest []string, value string) bool {
		return setWhen(matches(rest, "URL"), p, "base_url", value)
	},
	"DEFAULT": func(p map[string]any, rest []string, value string) bool {
		return setWhen(matches(rest, "CREDENTIAL"), p, "default_credential", value)
	},
	"SELECTION": func(p map[string]any, rest []string, value string) bool {
		return setWhen(matches(rest, "POLICY"), p, "selection_policy", strings.ToLower(value))
	},
	"ROLES": func(p map[string]any, rest []string, value string) bool {
		return setWhen(len(rest) == 0, p, "roles", value)
	},
	"CAPABILITIES": func(p map[string]any, rest []string, value string) bool {
		return setWhen(matches(rest, "IMAGES"), ensureMap(p, "capabilities"), "images", parseBool(value))
	},
	"MODELS": func(p map[string]any, rest []string, value string) bool {
		if len(rest) == 0 {
			return false
		}
		ensureMap(p, "models")[strings.ToLower(strings.Join(rest, "_"))] = value
		return true
	},
	"CREDENTIALS": func(p map[string]any, rest []string, value string) bool {
		if len(rest) < 2 {
			return false
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil || idx < 0 {
			return false
		}
		cred := credentialAt(p, idx)
		switch field := strings.ToLower(strings.Join(rest[1:], "_")); field {
		case "priority":
			if n, err := strconv.Atoi(value); err == nil {
				cred[field] = n
			} else {
				cred[field] = value
			}
		case "enabled":
			cred[field] = parseBool(value)
		default:
			cred[field] = value
		}
		return true
	},
}

func applyAILinkDynamicEnvOverrides(prefix string, env map[string]any) {
	providersPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, _ := strings.Cut(item, "=")
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if name, ok := strings.CutPrefix(key, providersPrefix); ok {
			applyAILinkProviderOverride(env, name, value)
		} else if role, ok := strings.CutPrefix(key, routingPrefix); ok {
			applyAILinkRoutingOverride(env, role, value)
		}
	}
}

func applyAILinkRoutingOverride(env map[string]any, rawRole, providerID string) {
	if role := toSlug(rawRole); role != "" {
		ensureMap(ensureMap(env, "ailink"), "routing")[role] = providerID
	}
}

// applyAILinkProviderOverride splits name at the first segment that starts
// a known field. Everything before it is the provider id, so IMAGE_GEN_BASE_URL
// lands on ailink.providers.image-gen.base_url.
func applyAILinkProviderOverride(env map[string]any, name, value string) {
	parts := strings.Split(strings.TrimSpace(name), "_")
	for i := 1; i < len(parts); i++ {
		field, ok := providerFields[parts[i]]
		if !ok {
			continue
		}
		id := toSlug(strings.Join(parts[:i], "_"))
		if id == "" {
			return
		}
		provider := map[string]any{}
		if !field(provider, parts[i+1:], value) {
			continue
		}
		mergeInto(ensureMap(ensureMap(ensureMap(env, "ailink"), "providers"), id), provider)
		return
	}
}

// mergeInto copies src into dst, descending into nested maps and
// credential slices so separate variables accumulate on one provider.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		switch typed := value.(type) {
		case map[string]any:
			mergeInto(ensureMap(dst, key), typed)
		case []any:
			existing, _ := dst[key].([]any)
			for len(existing) < len(typed) {
				existing = append(existing, map[string]any{})
			}
			for i, item := range typed {
				if m, ok := item.(map[string]any); ok && len(m) > 0 {
					target, ok := existing[i].(map[string]any)
					if !ok {
						target = map[string]any{}
						existing[i] = target
					}
					mergeInto(target, m)
				}
			}
			dst[key] = existing
		default:
			dst[key] = value
		}
	}
}

func credentialAt(provider map[string]any, idx int) map[string]any {
	creds, _ := provider["credentials"].([]any)
	for len(creds) <= idx {
		creds = append(creds, map[string]any{})
	}
	provider["credentials"] = creds
	cred, ok := creds[idx].(map[string]any)
	if !ok {
		cred = map[string]any{}
		creds[idx] = cred
	}
	return cred
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key].(map[string]any); ok {
		return existing
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func setWhen(ok bool, m map[string]any, key string, value any) bool {
	if ok {
		m[key] = value
	}
	return ok
}

func matches(rest []string, want ...string) bool {
	return slices.Equal(rest, want)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

// toSlug lowercases an underscore-separated name into a dashed slug.
func toSlug(raw string) string {
	var words []string
	for _, part := range strings.Split(raw, "_") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			words = append(words, part)
		}
	}
	return strings.Join(words, "-")
}
