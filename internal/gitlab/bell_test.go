package gitlab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
)

func TestGetBellConfiguration(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := checkoutClient(t)

		bell := c.GetBellConfiguration()

		data, err := json.Marshal(bell)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"provider": "gitlab",
			"clientId": "abcdefg",
			"clientSecret": "hijklmno",
			"config": {"uri": "https://gitlab.com"},
			"forceHttps": false,
			"isSecure": false
		}`, string(data))
	})

	t.Run("self-hosted over https", func(t *testing.T) {
		c := checkoutClient(t, func(cfg *config.GitLabConfig) {
			cfg.GitlabHost = "gitlab.example.com"
			cfg.HTTPS = true
		})

		bell := c.GetBellConfiguration()

		assert.Equal(t, "https://gitlab.example.com", bell.Config.URI)
		assert.True(t, bell.ForceHTTPS)
		assert.True(t, bell.IsSecure)
	})
}

func TestOAuth2Config(t *testing.T) {
	c := checkoutClient(t, func(cfg *config.GitLabConfig) {
		cfg.GitlabHost = "gitlab.example.com"
		cfg.GitlabProtocol = "http"
	})

	oauth := c.OAuth2Config("https://cd.example.com/v4/auth/login", "api")

	assert.Equal(t, "abcdefg", oauth.ClientID)
	assert.Equal(t, "hijklmno", oauth.ClientSecret)
	assert.Equal(t, []string{"api"}, oauth.Scopes)
	assert.Equal(t, "http://gitlab.example.com/oauth/authorize", oauth.Endpoint.AuthURL)
	assert.Equal(t, "http://gitlab.example.com/oauth/token", oauth.Endpoint.TokenURL)
	assert.Contains(t, oauth.AuthCodeURL("state-1"), "redirect_uri=https%3A%2F%2Fcd.example.com%2Fv4%2Fauth%2Flogin")
}
