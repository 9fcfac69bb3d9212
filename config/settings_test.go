package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaultsWithoutFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mysql", s.Database.Driver)
	assert.Equal(t, 30, s.Notifications.RetentionDays)
	assert.Equal(t, 30*24*time.Hour, s.Notifications.RetentionHorizon())
}

func TestLoadSettingsFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
database:
  driver: postgres
  name: forms
notifications:
  retention_days: 7
  sweep_interval: 1h
redis:
  enabled: true
  addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("DB_DATABASE", "forms_override")
	t.Setenv("NOTIFICATION_RETENTION_DAYS", "14")

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", s.Database.Driver)
	assert.Equal(t, "forms_override", s.Database.Name)
	assert.Equal(t, 14, s.Notifications.RetentionDays)
	assert.Equal(t, time.Hour, s.Notifications.SweepInterval)
	assert.True(t, s.Redis.Enabled)
	assert.Equal(t, "redis:6379", s.Redis.Addr)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	s := DefaultSettings()
	s.Database.Driver = "oracle"
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Notifications.RetentionDays = 0
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Server.GinMode = "release"
	assert.Error(t, s.Validate())
	s.Security.JWTSecret = "secret"
	assert.NoError(t, s.Validate())
}
