package gitlab

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Author is the decorated form of a GitLab user
type Author struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// RepoURL is the decorated form of a repository identifier
type RepoURL struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

// Event types and actions of a normalized webhook event
const (
	HookTypePR   = "pr"
	HookTypeRepo = "repo"

	HookActionOpened = "opened"
	HookActionClosed = "closed"
	HookActionPush   = "push"
)

// HookEvent is a normalized webhook event.
// HookID is always nil: GitLab sends no delivery identifier.
type HookEvent struct {
	Type        string  `json:"type"`
	Action      string  `json:"action"`
	Username    string  `json:"username"`
	CheckoutURL string  `json:"checkoutUrl"`
	Branch      string  `json:"branch"`
	SHA         string  `json:"sha"`
	PRNum       int     `json:"prNum,omitempty"`
	PRRef       string  `json:"prRef,omitempty"`
	HookID      *string `json:"hookId"`
}

// projectID accepts GitLab ids sent either as numbers or strings
type projectID string

func (p *projectID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch id := v.(type) {
	case json.Number:
		*p = projectID(id.String())
	case string:
		*p = projectID(id)
	default:
		return fmt.Errorf("unexpected project id %s", string(data))
	}
	return nil
}

// projectResponse is the subset of GET /projects/:id used here
type projectResponse struct {
	ID                projectID `json:"id"`
	PathWithNamespace string    `json:"path_with_namespace"`
	WebURL            string    `json:"web_url"`
}

// userResponse is one element of GET /users?username=
type userResponse struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	WebURL    string `json:"web_url"`
	AvatarURL string `json:"avatar_url"`
}

// branchResponse is GET /projects/:id/repository/branches/:branch
type branchResponse struct {
	Name   string `json:"name"`
	Commit struct {
		ID string `json:"id"`
	} `json:"commit"`
}

// hookResponse is one element of GET /projects/:id/hooks
type hookResponse struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}
