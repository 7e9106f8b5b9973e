package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "configs")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
jwt:
  secret: short
  expire_hours: 2
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "channel", cfg.Events.Publisher)
	assert.Equal(t, 3*time.Second, cfg.Viewer.RevertAfter())
	assert.Equal(t, 30*time.Minute, cfg.Viewer.SessionTTL())
	assert.Equal(t, 10*time.Second, cfg.API.Timeout())
	assert.Equal(t, "logs/learnhub.log", cfg.Log.File)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, 30, cfg.Log.MaxAgeDays)
	assert.True(t, cfg.Log.Compress)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret: from-file
storage:
  type: minio
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("API_BASE_URL", "http://api.internal:8080")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "http://api.internal:8080", cfg.API.BaseURL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: minio
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "..", ".env"), []byte("EVENTS_TOPIC=dotenv.topic\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("EVENTS_TOPIC") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv.topic", cfg.Events.Topic)
}
