package e2e

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

const apiPrefix = "/api/v3/"

// MockProject is a repository served by MockGitLab
type MockProject struct {
	ID                string
	PathWithNamespace string
	Branches          map[string]string            // branch -> head sha
	Files             map[string]map[string]string // ref -> path -> content
}

// MockUser is a user served by MockGitLab
type MockUser struct {
	Username  string
	Name      string
	WebURL    string
	AvatarURL string
}

// CapturedStatus is a commit status that would be posted to GitLab
type CapturedStatus struct {
	ProjectID   string
	SHA         string
	State       string
	Description string
	Context     string
	TargetURL   string
}

// CapturedHook is a project hook registered through the API
type CapturedHook struct {
	ID        int
	ProjectID string
	URL       string
}

// MockGitLab is an in-memory GitLab v3 API served over HTTP.
// Every request must carry the configured bearer token.
type MockGitLab struct {
	Token string

	server *httptest.Server

	mu       sync.Mutex
	projects map[string]*MockProject
	users    map[string]MockUser
	statuses []CapturedStatus
	hooks    []CapturedHook
	calls    []string
}

// NewMockGitLab starts the server. Call Close when done.
func NewMockGitLab(token string) *MockGitLab {
	m := &MockGitLab{
		Token:    token,
		projects: map[string]*MockProject{},
		users:    map[string]MockUser{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// Close stops the server
func (m *MockGitLab) Close() {
	m.server.Close()
}

// AddProject registers p under both its id and its path
func (m *MockGitLab) AddProject(p *MockProject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	m.projects[p.PathWithNamespace] = p
}

// AddUser registers u
func (m *MockGitLab) AddUser(u MockUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
}

// Statuses returns the commit statuses posted so far
func (m *MockGitLab) Statuses() []CapturedStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CapturedStatus(nil), m.statuses...)
}

// Hooks returns the registered project hooks
func (m *MockGitLab) Hooks() []CapturedHook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CapturedHook(nil), m.hooks...)
}

// Calls returns "METHOD path" for every request served
func (m *MockGitLab) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Client returns an HTTP client that sends every request to the mock,
// whatever host the adapter targets
func (m *MockGitLab) Client() *http.Client {
	target, _ := url.Parse(m.server.URL)
	return &http.Client{Transport: rewriteHost{target: target}}
}

type rewriteHost struct {
	target *url.URL
}

func (r rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Host = req.URL.Host
	clone.URL.Scheme = r.target.Scheme
	clone.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func (m *MockGitLab) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.calls = append(m.calls, r.Method+" "+r.URL.EscapedPath())
	m.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+m.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
		return
	}

	escaped := r.URL.EscapedPath()
	if !strings.HasPrefix(escaped, apiPrefix) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "404 Not Found"})
		return
	}

	segments := strings.Split(strings.TrimPrefix(escaped, apiPrefix), "/")
	for i, s := range segments {
		if unescaped, err := url.PathUnescape(s); err == nil {
			segments[i] = unescaped
		}
	}

	switch {
	case len(segments) == 1 && segments[0] == "users" && r.Method == http.MethodGet:
		m.listUsers(w, r)
	case len(segments) == 2 && segments[0] == "projects" && r.Method == http.MethodGet:
		m.getProject(w, segments[1])
	case len(segments) == 5 && segments[0] == "projects" && segments[2] == "repository" && segments[3] == "branches":
		m.getBranch(w, segments[1], segments[4])
	case len(segments) == 4 && segments[0] == "projects" && segments[2] == "repository" && segments[3] == "files":
		m.getFile(w, r, segments[1])
	case len(segments) == 4 && segments[0] == "projects" && segments[2] == "statuses" && r.Method == http.MethodPost:
		m.createStatus(w, r, segments[1], segments[3])
	case len(segments) >= 3 && segments[0] == "projects" && segments[2] == "hooks":
		m.hooksEndpoint(w, r, segments[1], segments[3:])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "404 Not Found"})
	}
}

func (m *MockGitLab) project(idOrPath string) *MockProject {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[idOrPath]
}

func (m *MockGitLab) listUsers(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	user, ok := m.users[r.URL.Query().Get("username")]
	m.mu.Unlock()

	users := []map[string]interface{}{}
	if ok {
		users = append(users, map[string]interface{}{
			"username":   user.Username,
			"name":       user.Name,
			"web_url":    user.WebURL,
			"avatar_url": user.AvatarURL,
		})
	}
	writeJSON(w, http.StatusOK, users)
}

func (m *MockGitLab) getProject(w http.ResponseWriter, idOrPath string) {
	p := m.project(idOrPath)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                  json.Number(p.ID),
		"path_with_namespace": p.PathWithNamespace,
		"web_url":             "https://gitlab.example.com/" + p.PathWithNamespace,
	})
}

func (m *MockGitLab) getBranch(w http.ResponseWriter, id, branch string) {
	p := m.project(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	sha, ok := p.Branches[branch]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Branch Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":   branch,
		"commit": map[string]string{"id": sha},
	})
}

func (m *MockGitLab) getFile(w http.ResponseWriter, r *http.Request, id string) {
	p := m.project(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}

	filePath := r.URL.Query().Get("file_path")
	ref := r.URL.Query().Get("ref")
	content, ok := p.Files[ref][filePath]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 File Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_name": filePath[strings.LastIndex(filePath, "/")+1:],
		"file_path": filePath,
		"size":      len(content),
		"encoding":  "base64",
		"content":   base64.StdEncoding.EncodeToString([]byte(content)),
		"ref":       ref,
		"commit_id": p.Branches[ref],
	})
}

func (m *MockGitLab) createStatus(w http.ResponseWriter, r *http.Request, id, sha string) {
	if m.project(id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}

	q := r.URL.Query()
	status := CapturedStatus{
		ProjectID:   id,
		SHA:         sha,
		State:       q.Get("state"),
		Description: q.Get("description"),
		Context:     q.Get("context"),
		TargetURL:   q.Get("target_url"),
	}
	switch status.State {
	case "pending", "running", "success", "failed", "failure", "canceled":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("state %q is not valid", status.State)})
		return
	}

	m.mu.Lock()
	m.statuses = append(m.statuses, status)
	m.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sha":    sha,
		"status": status.State,
		"name":   status.Context,
	})
}

func (m *MockGitLab) hooksEndpoint(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	if m.project(id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}

	var body struct {
		URL string `json:"url"`
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		hooks := []map[string]interface{}{}
		for _, h := range m.hooks {
			if h.ProjectID == id {
				hooks = append(hooks, map[string]interface{}{"id": h.ID, "url": h.URL})
			}
		}
		writeJSON(w, http.StatusOK, hooks)
	case r.Method == http.MethodPost && len(rest) == 0:
		_ = json.NewDecoder(r.Body).Decode(&body)
		hook := CapturedHook{ID: len(m.hooks) + 1, ProjectID: id, URL: body.URL}
		m.hooks = append(m.hooks, hook)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": hook.ID, "url": hook.URL})
	case r.Method == http.MethodPut && len(rest) == 1:
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i := range m.hooks {
			if fmt.Sprint(m.hooks[i].ID) == rest[0] {
				m.hooks[i].URL = body.URL
				writeJSON(w, http.StatusOK, map[string]interface{}{"id": m.hooks[i].ID, "url": body.URL})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Not found"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "405 Method Not Allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
