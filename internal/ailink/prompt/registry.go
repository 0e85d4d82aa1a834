package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Slugs of the built-in prompts.
const (
	SlugDecompose = "prompt-decompose"
	SlugOptions   = "field-options"
	SlugTranslate = "document-translate"
)

// StudioSlugs lists every prompt the studio calls.
var StudioSlugs = []string{SlugDecompose, SlugOptions, SlugTranslate}

//go:embed prompts/*.md
var embeddedPrompts embed.FS

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry holds prompts keyed by slug.
type InMemoryRegistry struct {
	bySlug map[string]*Prompt
}

// NewRegistry indexes prompts by slug. Nil entries are skipped; blank and
// duplicate slugs are rejected.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	bySlug := make(map[string]*Prompt, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt %s missing slug", p.Source)
		}
		if prev, ok := bySlug[slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug: %s (%s, %s)", slug, prev.Source, p.Source)
		}
		bySlug[slug] = p
	}
	return &InMemoryRegistry{bySlug: bySlug}, nil
}

func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	if p, ok := r.bySlug[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found", slug)
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	list := make([]*Prompt, 0, len(r.bySlug))
	for _, p := range r.bySlug {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b *Prompt) int { return strings.Compare(a.Config.Slug, b.Config.Slug) })
	return list
}

// Require reports every slug missing from reg. A prompt directory that
// replaces the built-in set must still provide every prompt the studio calls.
func Require(reg Registry, slugs ...string) error {
	if reg == nil {
		return fmt.Errorf("prompt registry not configured")
	}
	var errs []error
	for _, slug := range slugs {
		if _, err := reg.Get(slug); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFS loads every top-level *.md prompt in fsys. label prefixes each
// prompt's Source.
func LoadFS(fsys fs.FS, label string) ([]*Prompt, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", name, err)
		}
		p, err := Load(path.Join(label, name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// LoadDefaults loads the built-in prompt set.
func LoadDefaults() ([]*Prompt, error) {
	sub, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		return nil, fmt.Errorf("open embedded prompts: %w", err)
	}
	return LoadFS(sub, "builtin")
}

func DefaultRegistry() (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(prompts)
}

// RegistryFor returns the built-in registry, or one loaded from dir when
// dir is set.
func RegistryFor(dir string) (Registry, error) {
	if dir == "" {
		return DefaultRegistry()
	}
	prompts, err := LoadFS(os.DirFS(dir), filepath.ToSlash(dir))
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts found in %s", dir)
	}
	return NewRegistry(prompts)
}
