package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/store"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/output"
)

// studioDeps holds what buildStudio opened so the caller can close it.
type studioDeps struct {
	Config *config.Config
	Studio *engine.Studio
	Store  *store.Store
	AI     *ailink.Service
}

func (d *studioDeps) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil && observability.CLILogger != nil {
		observability.CLILogger.Warn("Failed to close store", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildStudio loads config and wires the store and AI service into a
// studio. withStore=false skips the database for commands that never touch
// persistence. A service that fails to build leaves the AI collaborators
// unset; those operations then report that they are not configured.
func buildStudio(ctx context.Context, withStore bool) (*studioDeps, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	deps := &studioDeps{Config: cfg}
	studio := &engine.Studio{
		PreviewMode:    cfg.Studio.PreviewMode,
		TargetLanguage: cfg.Studio.TargetLanguage,
		Limiter:        newImageLimiter(cfg.Studio.ImageRateLimit),
	}

	ai, err := ailink.NewService(cfg.AILink, ailink.Roles{
		Decompose: cfg.Studio.DecomposeRole,
		Options:   cfg.Studio.OptionsRole,
		Translate: cfg.Studio.TranslateRole,
		Image:     cfg.Studio.ImageRole,
	})
	if err != nil {
		observability.CLILogger.Warn("AI service unavailable", zap.Error(err))
	} else {
		ai.TargetLanguage = cfg.Studio.TargetLanguage
		ai.ImageSize = cfg.Studio.ImageSize
		deps.AI = ai
		studio.Decomposer = ai
		studio.Suggester = ai
		studio.Translator = ai
		studio.Images = ai
	}

	if withStore {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		deps.Store = db
		studio.History = db
		studio.Styles = db
		studio.Templates = db
	}

	deps.Studio = studio
	return deps, nil
}

// newImageLimiter caps image requests per owner per minute; limit <= 0
// disables the cap.
func newImageLimiter(limit int) *engine.RateLimiter {
	if limit <= 0 {
		return nil
	}
	limiter := &engine.RateLimiter{Store: &engine.MemoryRateLimitStore{}}
	limiter.ApplyOverrides(map[string]int{engine.OperationImages: limit})
	return limiter
}

func resolveOwner(cfg *config.Config) string {
	if owner := strings.TrimSpace(ownerFlag); owner != "" {
		return owner
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.Studio.DefaultOwner)
	}
	return ""
}

// readInput reads path, or stdin when path is "" or "-".
func readInput(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readDocument loads a document from a JSON or YAML file. YAML is chosen by
// extension; stdin is tried as JSON, then YAML.
func readDocument(path string) (*document.Map, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errdefs.NewValidation("document", "document is empty")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return document.ParseYAML(data)
	case ".json":
		return document.Parse(data)
	}
	doc, jsonErr := document.Parse(data)
	if jsonErr == nil {
		return doc, nil
	}
	if doc, err := document.ParseYAML(data); err == nil {
		return doc, nil
	}
	return nil, jsonErr
}

// readOptions loads a path -> values catalog from a YAML (or JSON) file.
func readOptions(path string) (map[string][]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errdefs.NewParse(path, err)
	}
	return entries, nil
}

func outputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return output.FormatTable, nil
	}
	return output.ParseFormat(value)
}

func addOutputFlag(cmd *cobra.Command, def string) {
	cmd.Flags().StringP("output-format", "f", def, "output format: table, json, yaml")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
