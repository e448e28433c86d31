package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/worklab/sessiond/errors"
	"github.com/worklab/sessiond/pkg/schema"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("CALENDAR_ID", "primary")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultCredentialPath, cfg.Credential.Path)
	assert.Equal(t, "info", cfg.Logs.Level)
	assert.Equal(t, time.Minute, cfg.Extender.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Extender.Horizon)
	assert.Equal(t, 10*time.Minute, cfg.Extender.Threshold)
	assert.Equal(t, "events", cfg.Firestore.Collection)
	assert.Equal(t, "UTC", cfg.Calendar.TimeZone)
	assert.Equal(t, schema.BackoffExponential, cfg.Auth.Retry.BackoffStrategy)
	assert.Equal(t, []string{"ev", "home", "ieee", "mcgill"}, cfg.Places)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SA_PATH", "/secrets/sa.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/secrets/sa.json", cfg.Credential.Path)
	assert.Equal(t, "test-token", cfg.Discord.Token)
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SA_PATH", "/legacy/sa.json")
	t.Setenv("SESSIOND_CREDENTIAL_PATH", "/new/sa.json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/new/sa.json", cfg.Credential.Path)
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	content := []byte("extender:\n  horizon: 20m\n  threshold: 5m\nplaces:\n  - lab\n  - home\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessiond.yaml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, cfg.Extender.Horizon)
	assert.Equal(t, 5*time.Minute, cfg.Extender.Threshold)
	assert.Equal(t, []string{"lab", "home"}, cfg.Places)
	// Untouched settings keep their defaults.
	assert.Equal(t, time.Minute, cfg.Extender.Interval)
}

func TestLoadMissingConfigFileIsFine(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(t.TempDir())
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	setRequiredEnv(t)
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*schema.Configuration)
	}{
		{"empty credential path", func(c *schema.Configuration) { c.Credential.Path = "" }},
		{"missing discord token", func(c *schema.Configuration) { c.Discord.Token = "" }},
		{"missing calendar id", func(c *schema.Configuration) { c.Calendar.CalendarID = "" }},
		{"horizon below threshold", func(c *schema.Configuration) {
			c.Extender.Horizon = time.Minute
			c.Extender.Threshold = 10 * time.Minute
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(&cfg)
			assert.ErrorIs(t, err, errUtils.ErrInvalidConfig)
		})
	}
}
