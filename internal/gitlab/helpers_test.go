package gitlab

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
)

const testToken = "sometoken"

// redirectTransport sends every request to target while keeping the
// original Host, so identifiers never have to carry a port
type redirectTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (r redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Host = req.URL.Host
	clone.URL.Scheme = r.target.Scheme
	clone.URL.Host = r.target.Host
	return r.base.RoundTrip(clone)
}

// recordedRequest is what the fake GitLab saw
type recordedRequest struct {
	Method string
	Host   string
	Path   string // escaped
	Query  url.Values
	Auth   string
	Body   string
}

type fakeGitLab struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeGitLab serves handler and records every request
func newFakeGitLab(t *testing.T, handler http.HandlerFunc) *fakeGitLab {
	t.Helper()
	f := &fakeGitLab{t: t}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Host:   r.Host,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		f.mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitLab) httpClient() *http.Client {
	target, err := url.Parse(f.server.URL)
	require.NoError(f.t, err)
	return &http.Client{Transport: redirectTransport{target: target, base: http.DefaultTransport}}
}

func (f *fakeGitLab) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeGitLab) last() recordedRequest {
	reqs := f.recorded()
	require.NotEmpty(f.t, reqs, "no request reached the fake GitLab")
	return reqs[len(reqs)-1]
}

func testConfig() config.GitLabConfig {
	return config.GitLabConfig{
		OAuthClientID:     "abcdefg",
		OAuthClientSecret: "hijklmno",
		Fusebox: config.FuseboxConfig{
			Retry: config.RetryConfig{Retries: -1},
		},
	}
}

// newTestClient builds a client whose traffic lands on the fake GitLab
func newTestClient(t *testing.T, f *fakeGitLab, mutate ...func(*config.GitLabConfig)) *Client {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg, WithHTTPClient(f.httpClient()))
	require.NoError(t, err)
	return c
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// requireLines fails with a unified diff when the line sets differ
func requireLines(t *testing.T, expected, actual []string) {
	t.Helper()
	if strings.Join(expected, "\n") == strings.Join(actual, "\n") {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(expected, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(actual, "\n") + "\n"),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	t.Fatalf("lines differ:\n%s", diff)
}
