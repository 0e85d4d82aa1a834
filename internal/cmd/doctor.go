package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

var errSkipped = errors.New("skipped: configuration not loaded")

// doctorCheck is one diagnostic. run returns a short detail on success.
type doctorCheck struct {
	name string
	run  func(ctx context.Context, cfg *config.Config) (string, error)
	// needsConfig checks are skipped when the config fails to load.
	needsConfig bool
}

func doctorChecks() []doctorCheck {
	return []doctorCheck{
		{name: "Go runtime", run: func(context.Context, *config.Config) (string, error) {
			return runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH, nil
		}},
		{name: "Gofulmen", run: func(context.Context, *config.Config) (string, error) {
			v := crucible.GetVersion()
			if v.Gofulmen == "" {
				return "", errors.New("version unavailable")
			}
			return fmt.Sprintf("v%s (crucible %s)", v.Gofulmen, v.Crucible), nil
		}},
		{name: "Config directory", run: func(context.Context, *config.Config) (string, error) {
			path := config.DefaultConfigPath()
			if path == "" {
				return "", errors.New("cannot resolve config directory")
			}
			return fmt.Sprintf("%s (config.yaml %s)", filepath.Dir(path), existenceStatus(fileExists(path))), nil
		}},
		{name: "Database", needsConfig: true, run: checkDatabase},
		{name: "AI providers", needsConfig: true, run: checkProviders},
	}
}

func checkDatabase(ctx context.Context, cfg *config.Config) (string, error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}
	defer db.Close() // nolint:errcheck // read-only probe
	if err := db.Ping(ctx); err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}
	return fmt.Sprintf("%s via %s", storeLocation(cfg), db.Driver()), nil
}

func checkProviders(ctx context.Context, cfg *config.Config) (string, error) {
	deps, err := buildStudio(ctx, false)
	if err != nil || deps.AI == nil {
		return "", fmt.Errorf("not configured; run '%s doctor init'", GetAppIdentity().BinaryName)
	}
	roles := []string{cfg.Studio.DecomposeRole, cfg.Studio.OptionsRole, cfg.Studio.TranslateRole, cfg.Studio.ImageRole}
	if err := (ailinkHealthChecker{service: deps.AI, roles: roles}).CheckHealth(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d roles routed", len(roles)), nil
}

type doctorResult struct {
	name   string
	detail string
	err    error
}

// runDoctor runs every check in order and reports whether all passed.
func runDoctor(ctx context.Context, checks []doctorCheck) ([]doctorResult, bool) {
	cfg, cfgErr := config.Load(ctx)
	results := []doctorResult{{name: "Configuration", detail: "loaded", err: cfgErr}}

	for _, check := range checks {
		result := doctorResult{name: check.name}
		if check.needsConfig && cfgErr != nil {
			result.err = errSkipped
		} else {
			result.detail, result.err = check.run(ctx, cfg)
		}
		results = append(results, result)
	}

	healthy := true
	for _, r := range results {
		healthy = healthy && r.err == nil
	}
	return results, healthy
}

func renderDoctor(w io.Writer, results []doctorResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Check", "Status", "Detail"})
	for i, r := range results {
		status, detail := "ok", r.detail
		if r.err != nil {
			status, detail = "warn", r.err.Error()
		}
		t.AppendRow(table.Row{i + 1, r.name, status, detail})
	}
	t.Render()
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, configuration, database and AI provider routing, and suggest fixes.",
	Run: func(cmd *cobra.Command, args []string) {
		results, healthy := runDoctor(cmd.Context(), doctorChecks())
		renderDoctor(cmd.OutOrStdout(), results)

		logger := observability.CLILogger
		for _, r := range results {
			if r.err != nil {
				logger.Warn("Check failed", zap.String("check", r.name), zap.Error(r.err))
			}
		}
		if healthy {
			logger.Info(fmt.Sprintf("All checks passed; %s is ready.", GetAppIdentity().BinaryName))
		} else {
			logger.Warn("Some checks failed; see the table above.")
		}
	},
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if path == "" {
			return errors.New("config path not resolved")
		}
		if force, _ := cmd.Flags().GetBool("force"); fileExists(path) && !force {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		apiKey := flagString(cmd, "api-key")
		if strings.EqualFold(apiKey, "prompt") {
			var err error
			if apiKey, err = promptForValue(cmd.OutOrStdout(), "Enter OpenAI API key (leave blank to skip): "); err != nil {
				return err
			}
		}

		// Keys make the file a secret.
		mode := os.FileMode(0o644)
		if apiKey != "" {
			mode = 0o600
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(buildInitConfig(apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration paths and effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		keyVar := config.EnvPrefix + "AILINK_PROVIDERS_STUDIO_OPENAI_CREDENTIALS_0_API_KEY"
		path := config.DefaultConfigPath()
		dataDir := config.DefaultDataDir()

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Setting", "Value"})
		t.AppendRows([]table.Row{
			{"config file", fmt.Sprintf("%s (%s)", path, existenceStatus(fileExists(path)))},
			{"data directory", fmt.Sprintf("%s (%s)", dataDir, existenceStatus(fileExists(dataDir)))},
			{"database", storeLocation(cfg)},
			{keyVar, envStatus(keyVar)},
			{"studio.preview_mode", cfg.Studio.PreviewMode},
			{"studio.target_language", cfg.Studio.TargetLanguage},
			{"studio.image_rate_limit", fmt.Sprintf("%d/min", cfg.Studio.ImageRateLimit)},
		})
		t.Render()
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFile()
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if !fileExists(path) {
			return fmt.Errorf("config file not found: %s", path)
		}
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := cfg.AILink.Validate(); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd, doctorConfigCmd, doctorValidateCmd)

	doctorInitCmd.Flags().Bool("force", false, "overwrite existing config file")
	doctorInitCmd.Flags().String("api-key", "", "OpenAI API key, or 'prompt' to enter it")
}

func storeLocation(cfg *config.Config) string {
	if cfg.Store.URL != "" {
		return cfg.Store.URL + " (remote)"
	}
	path, _ := filepath.Abs(cfg.Store.Path)
	return path
}

type starterCredential struct {
	Label    string `yaml:"label"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	APIKey   string `yaml:"api_key,omitempty"`
}

type starterProvider struct {
	Enabled     bool                `yaml:"enabled"`
	AIProvider  string              `yaml:"ai_provider"`
	BaseURL     string              `yaml:"base_url"`
	Models      map[string]string   `yaml:"models"`
	Credentials []starterCredential `yaml:"credentials"`
}

type starterConfig struct {
	AILink struct {
		DefaultProvider string                     `yaml:"default_provider"`
		Providers       map[string]starterProvider `yaml:"providers"`
	} `yaml:"ailink"`
	Studio struct {
		PreviewMode    string `yaml:"preview_mode"`
		TargetLanguage string `yaml:"target_language"`
		DefaultOwner   string `yaml:"default_owner"`
	} `yaml:"studio"`
}

// buildInitConfig renders the starter config written by doctor init.
func buildInitConfig(apiKey string) string {
	var cfg starterConfig
	cfg.AILink.DefaultProvider = "studio-openai"
	cfg.AILink.Providers = map[string]starterProvider{
		"studio-openai": {
			Enabled:     true,
			AIProvider:  "openai",
			BaseURL:     "https://api.openai.com/v1",
			Models:      map[string]string{"default": "gpt-4o-mini", "image": "gpt-image-1"},
			Credentials: []starterCredential{{Label: "default", Enabled: true, APIKey: strings.TrimSpace(apiKey)}},
		},
	}
	cfg.Studio.PreviewMode = "rich"
	cfg.Studio.TargetLanguage = "Japanese"
	cfg.Studio.DefaultOwner = "local"

	body, err := yaml.Marshal(cfg)
	if err != nil {
		// Plain structs always marshal.
		panic(err)
	}
	var b strings.Builder
	b.WriteString("# genimage config, created by 'genimage doctor init'\n")
	if cfg.AILink.Providers["studio-openai"].Credentials[0].APIKey == "" {
		b.WriteString("# Add api_key under credentials or set " + config.EnvPrefix + "AILINK_PROVIDERS_STUDIO_OPENAI_CREDENTIALS_0_API_KEY.\n")
	}
	b.Write(body)
	return b.String()
}

func promptForValue(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
