package appid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appidentityassets "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/assets/appidentity"
)

func prepareIdentityForTest(t *testing.T) {
	t.Helper()

	// gofulmen caches identity per process; Reset also clears the embedded copy.
	appidentity.Reset()
	require.NoError(t, appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML))
	t.Cleanup(func() { appidentity.Reset() })
}

func chdirTemp(t *testing.T) {
	t.Helper()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	require.NoError(t, os.Chdir(t.TempDir()))
}

func TestGetFallsBackToEmbeddedIdentity(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, "")
	chdirTemp(t)

	identity, err := Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "genimage", identity.BinaryName)
	assert.Equal(t, "GENIMAGE_", identity.EnvPrefix)
	assert.Equal(t, "genimage", identity.ConfigName)
}

func TestExplicitIdentityPathIsAuthoritative(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, filepath.Join(t.TempDir(), "missing-app.yaml"))

	_, err := Get(context.Background())
	require.Error(t, err)

	var notFound *appidentity.NotFoundError
	require.True(t, errors.As(err, &notFound), "got %T: %v", err, err)
}

func TestResolveFillsDefaultsWhenIdentityMissing(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, filepath.Join(t.TempDir(), "missing-app.yaml"))

	identity := Resolve(context.Background())
	assert.Equal(t, DefaultBinaryName, identity.BinaryName)
	assert.Equal(t, DefaultEnvPrefix, identity.EnvPrefix)
	assert.Equal(t, DefaultConfigName, identity.ConfigName)
	assert.Equal(t, DefaultSummary, identity.Description)
}
