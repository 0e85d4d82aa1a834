// Package cmd implements the genimage command line: the HTTP server, the
// terminal field editor and one-shot prompt, image and library commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/appid"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string
	ownerFlag string

	appIdentity *appidentity.Identity

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}

	// stdin is swapped in tests.
	stdin io.Reader = os.Stdin
)

// SetVersionInfo is called by main with ldflags values. The /version
// handler reports the same build.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// GetAppIdentity returns the resolved app identity.
func GetAppIdentity() *appidentity.Identity {
	if appIdentity == nil {
		appIdentity = appid.Resolve(context.Background())
	}
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:           appid.DefaultBinaryName,
	Short:         appid.DefaultSummary,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	// Keep config loading quiet on stdout; serve installs real telemetry.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	identity := GetAppIdentity()
	rootCmd.Use = identity.BinaryName
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to build prompts, edit documents and generate images.", identity.BinaryName, identity.Description)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace AILink requests/responses to NDJSON file")
	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "owner id for history, styles and templates (default studio.default_owner)")
}

func initConfig() {
	identity := GetAppIdentity()
	if err := observability.InitCLILogger(identity.BinaryName, verbose); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	config.SetConfigFile(cfgFile)

	if traceFile != "" {
		// The trace file stays open for the life of the process.
		if _, err := driver.EnableTracing(traceFile); err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("AILink tracing enabled", zap.String("file", traceFile))
		}
	}
}
