package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardwareSerialOverrideBypassesDetection(t *testing.T) {
	p := NewProvider("override-serial-123")
	serial, err := p.HardwareSerial(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "override-serial-123", serial)
}

func TestGatherHardwareInfoIncludesOSAndArch(t *testing.T) {
	info := gatherHardwareInfo()
	assert.NotEmpty(t, info["os"])
	assert.NotEmpty(t, info["arch"])
	assert.Contains(t, info, "cpu_cores")
}

func TestGatherNetworkInfoSetsConnectionType(t *testing.T) {
	info := gatherNetworkInfo()
	assert.Contains(t, info, "connection_type")
}

func TestCredentialSealerRoundTrips(t *testing.T) {
	sealer := NewCredentialSealer("test-passphrase")

	sealed, err := sealer.Seal("super-secret-device-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "super-secret-device-token")

	plaintext, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-device-token", plaintext)
}

func TestCredentialSealerRejectsWrongPassphrase(t *testing.T) {
	sealed, err := NewCredentialSealer("correct-passphrase").Seal("token")
	require.NoError(t, err)

	_, err = NewCredentialSealer("wrong-passphrase").Open(sealed)
	assert.Error(t, err)
}

func TestPersistCredentialsWritesSealedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	sealer := NewCredentialSealer("test-passphrase")
	resp := &ProvisionResponse{DeviceID: "dev-1", DeviceToken: "tok-abc"}

	require.NoError(t, PersistCredentials(sealer, resp, path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(contents), "tok-abc")

	decoded, err := sealer.Open(string(contents))
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", decoded)
}
