package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"fieldsync"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "fieldsync.db", cfg.DatabasePath)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.GracePeriod)
	assert.Equal(t, 10, cfg.PendingBatchSize)
	assert.False(t, cfg.LinkAfterRefresh)
}

func TestLoad_JSONOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_base_url": "https://api.example.com/v1",
		"grace_period": "720h",
		"pending_batch_size": 4,
		"link_after_refresh": true
	}`), 0o600))
	withArgs(t, "-c", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.APIBaseURL)
	assert.Equal(t, 720*time.Hour, cfg.GracePeriod)
	assert.Equal(t, 4, cfg.PendingBatchSize)
	assert.True(t, cfg.LinkAfterRefresh)
	// Untouched fields keep their defaults.
	assert.Equal(t, "fieldsync.db", cfg.DatabasePath)
}

func TestLoad_FlagsTakePrecedenceOverJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url": "https://json.example.com"}`), 0o600))
	withArgs(t, "-c", path, "-a", "https://flags.example.com", "-i", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://flags.example.com", cfg.APIBaseURL)
	assert.Equal(t, 7*time.Second, cfg.OnlineCheckInterval)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pending_batch_size": -1}`), 0o600))
	withArgs(t, "-c", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "absent.json"))

	_, err := Load()
	assert.Error(t, err)
}
