package gitlab

import (
	"golang.org/x/oauth2"
)

const providerName = "gitlab"

// BellConfig describes the OAuth provider the host registers for GitLab logins
type BellConfig struct {
	Provider     string        `json:"provider"`
	ClientID     string        `json:"clientId"`
	ClientSecret string        `json:"clientSecret"`
	Config       BellURIConfig `json:"config"`
	ForceHTTPS   bool          `json:"forceHttps"`
	IsSecure     bool          `json:"isSecure"`
}

// BellURIConfig points the OAuth provider at the GitLab instance
type BellURIConfig struct {
	URI string `json:"uri"`
}

// GetBellConfiguration returns the static OAuth descriptor for the configured instance
func (c *Client) GetBellConfiguration() BellConfig {
	return BellConfig{
		Provider:     providerName,
		ClientID:     c.config.OAuthClientID,
		ClientSecret: c.config.OAuthClientSecret,
		Config: BellURIConfig{
			URI: c.config.BaseURL(),
		},
		ForceHTTPS: c.config.HTTPS,
		IsSecure:   c.config.HTTPS,
	}
}

// OAuth2Config returns the authorize/token endpoints of the configured instance.
// No token exchange is performed here.
func (c *Client) OAuth2Config(redirectURL string, scopes ...string) *oauth2.Config {
	base := c.config.BaseURL()
	return &oauth2.Config{
		ClientID:     c.config.OAuthClientID,
		ClientSecret: c.config.OAuthClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/oauth/authorize",
			TokenURL: base + "/oauth/token",
		},
	}
}
