package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITLAB_OAUTH_CLIENT_ID", "client")
	t.Setenv("GITLAB_OAUTH_CLIENT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "client", cfg.GitLab.OAuthClientID)
	assert.Equal(t, "secret", cfg.GitLab.OAuthClientSecret)
	assert.Equal(t, "gitlab.com", cfg.GitLab.GitlabHost)
	assert.Equal(t, "https", cfg.GitLab.GitlabProtocol)
	assert.Equal(t, "sd-buildbot", cfg.GitLab.Username)
	assert.Equal(t, "dev-null@screwdriver.cd", cfg.GitLab.Email)
	assert.False(t, cfg.GitLab.HTTPS)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 600, cfg.Server.RateLimitPerMin)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GITLAB_HOST", "gitlab.example.com")
	t.Setenv("GITLAB_PROTOCOL", "http")
	t.Setenv("SCM_HTTPS", "true")
	t.Setenv("FUSEBOX_RETRIES", "3")
	t.Setenv("FUSEBOX_MIN_TIMEOUT", "250ms")
	t.Setenv("FUSEBOX_MAX_FAILURES", "not-a-number")

	cfg := Load()

	assert.Equal(t, "gitlab.example.com", cfg.GitLab.GitlabHost)
	assert.Equal(t, "http", cfg.GitLab.GitlabProtocol)
	assert.True(t, cfg.GitLab.HTTPS)
	assert.Equal(t, 3, cfg.GitLab.Fusebox.Retry.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.GitLab.Fusebox.Retry.MinTimeout)
	assert.Equal(t, uint32(0), cfg.GitLab.Fusebox.Breaker.MaxFailures)
}

func TestLoadFileOverlaysEnvironment(t *testing.T) {
	t.Setenv("GITLAB_OAUTH_CLIENT_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
gitlab:
  oauth_client_id: from-file
  gitlab_host: git.internal
  username: ci-bot
  fusebox:
    retry:
      retries: 2
      min_timeout: 1s
    breaker:
      max_failures: 7
server:
  port: "8080"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GitLab.OAuthClientID)
	assert.Equal(t, "from-env", cfg.GitLab.OAuthClientSecret)
	assert.Equal(t, "git.internal", cfg.GitLab.GitlabHost)
	assert.Equal(t, "ci-bot", cfg.GitLab.Username)
	assert.Equal(t, "dev-null@screwdriver.cd", cfg.GitLab.Email)
	assert.Equal(t, 2, cfg.GitLab.Fusebox.Retry.Retries)
	assert.Equal(t, time.Second, cfg.GitLab.Fusebox.Retry.MinTimeout)
	assert.Equal(t, uint32(7), cfg.GitLab.Fusebox.Breaker.MaxFailures)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gitlab: [unterminated"), 0600))

	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestWithDefaults(t *testing.T) {
	cfg := GitLabConfig{OAuthClientID: "id", OAuthClientSecret: "secret", Username: "custom"}.WithDefaults()

	assert.Equal(t, "gitlab.com", cfg.GitlabHost)
	assert.Equal(t, "https", cfg.GitlabProtocol)
	assert.Equal(t, "custom", cfg.Username)
	assert.Equal(t, "dev-null@screwdriver.cd", cfg.Email)
	assert.Equal(t, "https://gitlab.com", cfg.BaseURL())
}
