package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	errwrap "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/errors"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

// healthCmd fails with a CONFIG_INVALID envelope, which Run turns into the
// foundry config exit code.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify the binary can start: build metadata, configuration and AILink settings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := observability.CLILogger
		if logger == nil {
			return errwrap.NewConfigInvalidError("logger not initialized")
		}

		if versionInfo.Version == "" {
			return errwrap.NewConfigInvalidError("version information missing")
		}
		logger.Debug("Build metadata present", zap.String("version", versionInfo.Version))

		cfg, err := config.Load(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
		}
		if err := cfg.AILink.Validate(); err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "ailink config invalid")
		}

		logger.Info("Health check passed", zap.String("version", versionInfo.Version))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
