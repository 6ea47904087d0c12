package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

const (
	DefaultGitlabHost     = "gitlab.com"
	DefaultGitlabProtocol = "https"
	DefaultUsername       = "sd-buildbot"
	DefaultEmail          = "dev-null@screwdriver.cd"
)

// Config holds application configuration
type Config struct {
	GitLab  GitLabConfig   `yaml:"gitlab"`
	Server  ServerConfig   `yaml:"server"`
	Logging logging.Config `yaml:"logging"`
}

// GitLabConfig holds the adapter configuration. It is read-only once the adapter is built.
type GitLabConfig struct {
	OAuthClientID     string        `yaml:"oauth_client_id" validate:"required"`
	OAuthClientSecret string        `yaml:"oauth_client_secret" validate:"required"`
	GitlabHost        string        `yaml:"gitlab_host" validate:"omitempty,excludes=/"`
	GitlabProtocol    string        `yaml:"gitlab_protocol" validate:"omitempty,oneof=http https"`
	Username          string        `yaml:"username"` // bot identity used in checkout commands
	Email             string        `yaml:"email"`
	Fusebox           FuseboxConfig `yaml:"fusebox"`
	HTTPS             bool          `yaml:"https"`        // bell cookie is secure / force https
	InsecureTLS       bool          `yaml:"insecure_tls"` // Skip TLS certificate verification
	CACertPath        string        `yaml:"ca_cert_path"` // Path to custom CA certificate file
	// DecodeFileContent base64-decodes file contents GitLab reports as base64.
	// Off by default: callers receive content exactly as returned.
	DecodeFileContent bool `yaml:"decode_file_content"`
}

// FuseboxConfig tunes the shared outbound transport. Zero values select defaults.
type FuseboxConfig struct {
	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
	// RateLimit is the sustained number of outbound requests per second; 0 disables limiting
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// RetryConfig controls retries of transport-level failures.
// Retries of 0 selects the default; a negative value disables retries.
type RetryConfig struct {
	Retries    int           `yaml:"retries"`
	Factor     float64       `yaml:"factor"`
	MinTimeout time.Duration `yaml:"min_timeout"`
	MaxTimeout time.Duration `yaml:"max_timeout"`
	Randomize  bool          `yaml:"randomize"`
}

// BreakerConfig controls the circuit breaker around outbound calls
type BreakerConfig struct {
	MaxFailures  uint32        `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	Timeout      time.Duration `yaml:"timeout"` // per-request timeout
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string `yaml:"port"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"` // webhook requests per source per minute
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		GitLab: GitLabConfig{
			OAuthClientID:     getEnv("GITLAB_OAUTH_CLIENT_ID", ""),
			OAuthClientSecret: getEnv("GITLAB_OAUTH_CLIENT_SECRET", ""),
			GitlabHost:        getEnv("GITLAB_HOST", DefaultGitlabHost),
			GitlabProtocol:    getEnv("GITLAB_PROTOCOL", DefaultGitlabProtocol),
			Username:          getEnv("SCM_USERNAME", DefaultUsername),
			Email:             getEnv("SCM_EMAIL", DefaultEmail),
			HTTPS:             getEnv("SCM_HTTPS", "false") == "true",
			InsecureTLS:       getEnv("GITLAB_INSECURE_TLS", "false") == "true",
			CACertPath:        getEnv("GITLAB_CA_CERT_PATH", ""),
			DecodeFileContent: getEnv("GITLAB_DECODE_FILE_CONTENT", "false") == "true",
			Fusebox: FuseboxConfig{
				Retry: RetryConfig{
					Retries:    getEnvInt("FUSEBOX_RETRIES", 0),
					MinTimeout: getEnvDuration("FUSEBOX_MIN_TIMEOUT", 0),
				},
				Breaker: BreakerConfig{
					MaxFailures: uint32(getEnvInt("FUSEBOX_MAX_FAILURES", 0)),
					Timeout:     getEnvDuration("FUSEBOX_TIMEOUT", 0),
				},
			},
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			RateLimitPerMin: getEnvInt("WEBHOOK_RATE_LIMIT_PER_MIN", 600),
		},
		Logging: logging.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
	}
}

// LoadFile overlays the YAML file at path on top of the environment configuration.
// Keys absent from the file keep their environment or default values.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// WithDefaults returns a copy with empty optional fields set to their defaults
func (c GitLabConfig) WithDefaults() GitLabConfig {
	if c.GitlabHost == "" {
		c.GitlabHost = DefaultGitlabHost
	}
	if c.GitlabProtocol == "" {
		c.GitlabProtocol = DefaultGitlabProtocol
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Email == "" {
		c.Email = DefaultEmail
	}
	return c
}

// BaseURL returns the configured instance root, e.g. https://gitlab.com
func (c GitLabConfig) BaseURL() string {
	return c.GitlabProtocol + "://" + strings.TrimRight(c.GitlabHost, "/")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
