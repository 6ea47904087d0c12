package gitlab

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

const (
	apiPath       = "/api/v3"
	defaultBranch = "master"
)

var (
	sshURLPattern   = regexp.MustCompile(`^git@([^:/]+):([^/]+)/(.+?)\.git(?:#(.+))?$`)
	httpsURLPattern = regexp.MustCompile(`^https?://(?:[^@/]+@)?([^/]+)/([^/]+)/(.+?)\.git(?:#(.+))?$`)

	validate = validator.New()
)

// Client implements the SCM operations against a GitLab instance
type Client struct {
	config  config.GitLabConfig
	breaker *fusebox.Breaker
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from the TLS settings
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// createHTTPClient creates an HTTP client with custom TLS configuration
func createHTTPClient(cfg config.GitLabConfig) (*http.Client, error) {
	transport := &http.Transport{}

	// Configure TLS settings
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12, // Enforce TLS 1.2 minimum for security
	}

	// Handle insecure TLS (skip certificate verification)
	if cfg.InsecureTLS {
		tlsConfig.InsecureSkipVerify = true
	}

	// Handle custom CA certificate
	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate from %s: %w", cfg.CACertPath, err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", cfg.CACertPath)
		}

		tlsConfig.RootCAs = caCertPool
	}

	transport.TLSClientConfig = tlsConfig

	return &http.Client{
		Transport: transport,
	}, nil
}

// NewClient validates cfg and creates the adapter.
// Missing required settings are reported as *ValidationError.
func NewClient(cfg config.GitLabConfig, opts ...Option) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, &ValidationError{
				Field:  fieldErrs[0].Field(),
				Reason: fmt.Sprintf("failed on the '%s' rule", fieldErrs[0].Tag()),
			}
		}
		return nil, &ValidationError{Field: "config", Reason: err.Error()}
	}

	c := &Client{config: cfg.WithDefaults()}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		httpClient, err := createHTTPClient(c.config)
		if err != nil {
			// Fallback to default client if TLS configuration fails
			logging.Warn("TLS configuration failed, using default HTTP client", zap.Error(err))
			httpClient = &http.Client{}
		}
		c.http = httpClient
	}

	c.breaker = fusebox.New("gitlab", c.config.Fusebox, c.http)

	logging.Info("GitLab SCM adapter initialized",
		zap.String("gitlab_host", c.config.GitlabHost),
		zap.String("gitlab_protocol", c.config.GitlabProtocol),
		zap.Bool("insecure_tls", c.config.InsecureTLS))

	return c, nil
}

// Config returns the effective configuration
func (c *Client) Config() config.GitLabConfig {
	return c.config
}

// Stats returns the outbound call counters and breaker state
func (c *Client) Stats() fusebox.Stats {
	return c.breaker.Stats()
}

// Breaker exposes the shared transport, e.g. for metrics collection
func (c *Client) Breaker() *fusebox.Breaker {
	return c.breaker
}

// apiURL builds {protocol}://{host}/api/v3{path}
func (c *Client) apiURL(host, path string) string {
	return c.config.GitlabProtocol + "://" + host + apiPath + path
}

// call issues req and maps any status outside accepted to a ResponseError tagged with caller
func (c *Client) call(ctx context.Context, caller string, req fusebox.Request, accepted ...int) (*fusebox.Response, error) {
	if len(accepted) == 0 {
		accepted = []int{http.StatusOK}
	}

	logging.Debug("Calling GitLab",
		zap.String("caller", caller),
		zap.String("method", req.Method),
		zap.String("url", req.URL))

	resp, err := c.breaker.Do(ctx, req)
	if err != nil {
		logging.Warn("GitLab request failed",
			zap.String("caller", caller),
			zap.Error(err))
		return nil, err
	}

	if !slices.Contains(accepted, resp.StatusCode) {
		respErr := newResponseError(caller, resp.StatusCode, resp.Body)
		logging.Warn("GitLab returned an unexpected status",
			zap.String("caller", caller),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", respErr.Reason))
		return nil, respErr
	}

	return resp, nil
}

// decode unmarshals a response body, reporting shape mismatches as FormatError
func decode(caller string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &FormatError{Value: caller, Reason: fmt.Sprintf("unexpected response body: %v", err)}
	}
	return nil
}

// ParseURL resolves a checkout URL (ssh or https, optional #branch) into a repository identifier
func (c *Client) ParseURL(ctx context.Context, checkoutURL, token string) (string, error) {
	match := sshURLPattern.FindStringSubmatch(checkoutURL)
	if match == nil {
		match = httpsURLPattern.FindStringSubmatch(checkoutURL)
	}
	if match == nil {
		return "", &FormatError{Value: checkoutURL, Reason: "invalid checkout URL"}
	}

	host, owner, repo, branch := match[1], match[2], match[3], match[4]
	if branch == "" {
		branch = defaultBranch
	}

	resp, err := c.call(ctx, callerParseURL, fusebox.Request{
		Method: http.MethodGet,
		URL:    c.apiURL(host, "/projects/"+url.PathEscape(owner+"/"+repo)),
		Token:  token,
	})
	if err != nil {
		return "", err
	}

	var project projectResponse
	if err := decode(callerParseURL, resp.Body, &project); err != nil {
		return "", err
	}
	if project.ID == "" {
		return "", &FormatError{Value: callerParseURL, Reason: "project response has no id"}
	}

	return EncodeRepoID(host, string(project.ID), branch), nil
}

// DecorateAuthor looks up a user by username
func (c *Client) DecorateAuthor(ctx context.Context, username, token string) (*Author, error) {
	resp, err := c.call(ctx, callerDecorateAuthor, fusebox.Request{
		Method: http.MethodGet,
		URL:    c.apiURL(c.config.GitlabHost, "/users"),
		Query:  url.Values{"username": {username}},
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	var users []userResponse
	if err := decode(callerDecorateAuthor, resp.Body, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &FormatError{Value: username, Reason: "no GitLab user found"}
	}

	user := users[0]
	return &Author{
		URL:      user.WebURL,
		Name:     user.Name,
		Username: user.Username,
		Avatar:   user.AvatarURL,
	}, nil
}

// DecorateURL resolves an identifier to its browsable tree URL and project path
func (c *Client) DecorateURL(ctx context.Context, scmURI, token string) (*RepoURL, error) {
	id, err := DecodeRepoID(scmURI)
	if err != nil {
		return nil, err
	}

	project, err := c.lookupProject(ctx, id, token)
	if err != nil {
		return nil, err
	}

	return &RepoURL{
		URL:    fmt.Sprintf("%s://%s/%s/tree/%s", c.config.GitlabProtocol, id.Host, project.PathWithNamespace, id.Branch),
		Name:   project.PathWithNamespace,
		Branch: id.Branch,
	}, nil
}

func (c *Client) lookupProject(ctx context.Context, id RepoID, token string) (*projectResponse, error) {
	resp, err := c.call(ctx, callerLookupScmURI, fusebox.Request{
		Method: http.MethodGet,
		URL:    c.apiURL(id.Host, "/projects/"+url.PathEscape(id.ProjectID)),
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	var project projectResponse
	if err := decode(callerLookupScmURI, resp.Body, &project); err != nil {
		return nil, err
	}
	if project.PathWithNamespace == "" {
		return nil, &FormatError{Value: callerLookupScmURI, Reason: "project response has no path_with_namespace"}
	}

	return &project, nil
}

// GetCommitSHA returns the head commit of the identifier's branch
func (c *Client) GetCommitSHA(ctx context.Context, scmURI, token string) (string, error) {
	id, err := DecodeRepoID(scmURI)
	if err != nil {
		return "", err
	}

	resp, err := c.call(ctx, callerGetCommitSHA, fusebox.Request{
		Method: http.MethodGet,
		URL: c.apiURL(id.Host, fmt.Sprintf("/projects/%s/repository/branches/%s",
			url.PathEscape(id.ProjectID), url.PathEscape(id.Branch))),
		Token: token,
	})
	if err != nil {
		return "", err
	}

	var branch branchResponse
	if err := decode(callerGetCommitSHA, resp.Body, &branch); err != nil {
		return "", err
	}
	if branch.Commit.ID == "" {
		return "", &FormatError{Value: callerGetCommitSHA, Reason: "branch response has no commit id"}
	}

	return branch.Commit.ID, nil
}

// ParseHook normalizes an inbound webhook; see ParseHook
func (c *Client) ParseHook(header http.Header, body []byte) *HookEvent {
	return ParseHook(header, body)
}
