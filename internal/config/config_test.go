package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp keeps a developer's .env and shell variables out of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	for _, name := range legacyEnv {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORTFOLIO_SERVER_PORT", "9090")
	t.Setenv("PORTFOLIO_THEME_SESSION_TTL", "5m")
	t.Setenv("PORTFOLIO_CONTACT_ACCESS_KEY", "relay-key")
	t.Setenv("PORTFOLIO_ANALYTICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Theme.SessionTTL)
	assert.Equal(t, "relay-key", cfg.Contact.AccessKey)
	assert.False(t, cfg.Analytics.Enabled)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "3000")
	t.Setenv("SMTP_USER", "me@example.com")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "me@example.com", cfg.Contact.SMTP.User)
	assert.Equal(t, "s3cret", cfg.Admin.Password)
}

func TestLoadPrefixedBeatsLegacy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "3000")
	t.Setenv("PORTFOLIO_SERVER_PORT", "4000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORTFOLIO_LOGGING_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PORTFOLIO_LOGGING_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
contact:
  provider: smtp
content:
  path: site.yaml
  watch: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "smtp", cfg.Contact.Provider)
	assert.True(t, cfg.Content.Watch)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "port not a number", key: "PORTFOLIO_SERVER_PORT", val: "not-a-number"},
		{name: "port out of range", key: "PORTFOLIO_SERVER_PORT", val: "70000"},
		{name: "blank host", key: "PORTFOLIO_SERVER_HOST", val: "   "},
		{name: "bad mode", key: "PORTFOLIO_SERVER_MODE", val: "turbo"},
		{name: "bad provider", key: "PORTFOLIO_CONTACT_PROVIDER", val: "pigeon"},
		{name: "zero ttl", key: "PORTFOLIO_THEME_SESSION_TTL", val: "0s"},
		{name: "no sessions", key: "PORTFOLIO_THEME_MAX_SESSIONS", val: "0"},
		{name: "watch without path", key: "PORTFOLIO_CONTENT_WATCH", val: "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
