package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_ParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  media_port: "9091"
  public_host: "voice.example.com"
  environment: "production"
database:
  type: "sqlite"
  file_path: "frontdesk.db"
billing:
  settlement_interval_seconds: 300
  cutoff_poll_millis: 100
engine:
  api_key: "sk-test"
  default_model: "openai/gpt-4o-mini"
auth:
  enabled: true
  jwt_secret: "secret"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "9091", cfg.Server.MediaPort)
	assert.Equal(t, "voice.example.com", cfg.Server.PublicHost)
	assert.True(t, cfg.IsProduction())

	require.NotNil(t, cfg.Database)
	assert.Equal(t, models.SQLite, cfg.Database.Type)

	assert.Equal(t, 300, cfg.Billing.SettlementIntervalSeconds)
	assert.Equal(t, 100, cfg.Billing.CutoffPollMillis)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Engine.DefaultModel)
	assert.True(t, cfg.Auth.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_SubstitutesEnvVars(t *testing.T) {
	t.Setenv("FD_TEST_PORT", "7070")
	os.Unsetenv("FD_TEST_HOST")

	path := writeConfig(t, `
server:
  port: "${FD_TEST_PORT}"
  public_host: "${FD_TEST_HOST:-localhost:8081}"
database:
  type: "sqlite"
engine:
  api_key: "k"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "localhost:8081", cfg.Server.PublicHost)
}

func TestLoadFromFile_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFile_RejectsPathTraversal(t *testing.T) {
	_, err := LoadFromFile("../../etc/passwd.yaml")
	assert.Error(t, err)
}

func TestValidate_RequiresDatabase(t *testing.T) {
	cfg := &Config{Engine: models.EngineConfig{APIKey: "k"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresEngineKey(t *testing.T) {
	cfg := &Config{Database: &models.DatabaseConfig{Type: models.SQLite}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresJWTSecretWhenAuthEnabled(t *testing.T) {
	cfg := &Config{
		Database: &models.DatabaseConfig{Type: models.SQLite},
		Engine:   models.EngineConfig{APIKey: "k"},
		Auth:     models.AuthConfig{Enabled: true},
	}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}
