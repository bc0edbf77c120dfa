package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := New()
	cfg.Credentials.AccessToken = "token"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "https://api.intercom.io", cfg.API.BaseURL)
	assert.Equal(t, 150, cfg.API.PageSize)
	assert.Equal(t, "/tmp/intercom_data", cfg.Export.ScratchDir)
	assert.Equal(t, 10*time.Second, cfg.Export.PollInterval)
	assert.True(t, cfg.Reliability.CircuitBreaker)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := New()
	assert.Error(t, cfg.Validate(), "missing credentials")

	cfg = validConfig()
	cfg.API.PageSize = 151
	assert.Error(t, cfg.Validate(), "page size over cap")

	cfg = validConfig()
	cfg.Window.StartDate = "not-a-date"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Window.StartDate = "2024-02-01T00:00:00Z"
	cfg.Window.EndDate = "2024-01-01T00:00:00Z"
	assert.Error(t, cfg.Validate(), "end before start")

	cfg = validConfig()
	cfg.Export.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateOAuth2Credentials(t *testing.T) {
	cfg := New()
	cfg.Credentials.ClientID = "id"
	cfg.Credentials.ClientSecret = "secret"
	cfg.Credentials.TokenURL = "https://example.com/token"
	assert.NoError(t, cfg.Validate())

	cfg.Credentials.TokenURL = ""
	assert.Error(t, cfg.Validate(), "partial oauth2 config")
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credentials:
  access_token: tok-123
window:
  start_date: "2024-01-01T00:00:00Z"
catalog:
  streams: [conversations, tags]
export:
  streams: [message]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Credentials.AccessToken)
	assert.Equal(t, []string{"conversations", "tags"}, cfg.Catalog.Streams)
	assert.Equal(t, []string{"message"}, cfg.Export.Streams)
	// Defaults survive partial files.
	assert.Equal(t, 150, cfg.API.PageSize)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "credentials": {"access_token": "tok-json"},
  "api": {"page_size": 50}
}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-json", cfg.Credentials.AccessToken)
	assert.Equal(t, 50, cfg.API.PageSize)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("INTERCOM_TOKEN", "tok-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credentials:
  access_token: ${INTERCOM_TOKEN}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-env", cfg.Credentials.AccessToken)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`credentials: {}`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
