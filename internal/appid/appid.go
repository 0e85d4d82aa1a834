// Package appid resolves the genimage application identity.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/assets/appidentity"
)

// Defaults used when no identity can be loaded.
const (
	DefaultBinaryName = "genimage"
	DefaultEnvPrefix  = "GENIMAGE_"
	DefaultConfigName = "genimage"
	DefaultSummary    = "Prompt-construction studio for AI image generation"
)

func init() {
	// An explicit FULMEN_APP_IDENTITY_PATH still wins over the embedded copy.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Resolve returns the loaded identity with empty fields filled from the
// defaults. It never fails.
func Resolve(ctx context.Context) *appidentity.Identity {
	identity, err := Get(ctx)
	resolved := appidentity.Identity{}
	if err == nil && identity != nil {
		resolved = *identity
	}
	if resolved.BinaryName == "" {
		resolved.BinaryName = DefaultBinaryName
	}
	if resolved.EnvPrefix == "" {
		resolved.EnvPrefix = DefaultEnvPrefix
	}
	if resolved.ConfigName == "" {
		resolved.ConfigName = DefaultConfigName
	}
	if resolved.Description == "" {
		resolved.Description = DefaultSummary
	}
	return &resolved
}
