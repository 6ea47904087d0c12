package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

// hookOptions is the body of the create and edit project hook calls
type hookOptions struct {
	URL                 string `json:"url"`
	PushEvents          bool   `json:"push_events"`
	MergeRequestsEvents bool   `json:"merge_requests_events"`
}

// AddWebhook registers webhookURL for push and merge request events on the
// identifier's project. An existing hook with the same URL is updated in place.
func (c *Client) AddWebhook(ctx context.Context, scmURI, token, webhookURL string) error {
	id, err := DecodeRepoID(scmURI)
	if err != nil {
		return err
	}

	hooksURL := c.apiURL(id.Host, fmt.Sprintf("/projects/%s/hooks", url.PathEscape(id.ProjectID)))
	options := hookOptions{
		URL:                 webhookURL,
		PushEvents:          true,
		MergeRequestsEvents: true,
	}

	existing, err := c.findWebhook(ctx, hooksURL, token, webhookURL)
	if err != nil {
		return err
	}

	if existing != nil {
		logging.Info("Updating existing webhook",
			zap.String("project_id", id.ProjectID),
			zap.Int("hook_id", existing.ID))
		_, err = c.call(ctx, callerUpdateWebhook, fusebox.Request{
			Method: http.MethodPut,
			URL:    fmt.Sprintf("%s/%d", hooksURL, existing.ID),
			Token:  token,
			Body:   options,
		}, http.StatusOK, http.StatusCreated)
		return err
	}

	logging.Info("Creating webhook", zap.String("project_id", id.ProjectID))
	_, err = c.call(ctx, callerCreateWebhook, fusebox.Request{
		Method: http.MethodPost,
		URL:    hooksURL,
		Token:  token,
		Body:   options,
	}, http.StatusOK, http.StatusCreated)
	return err
}

// findWebhook returns the project hook pointing at webhookURL, or nil
func (c *Client) findWebhook(ctx context.Context, hooksURL, token, webhookURL string) (*hookResponse, error) {
	resp, err := c.call(ctx, callerFindWebhook, fusebox.Request{
		Method: http.MethodGet,
		URL:    hooksURL,
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	var hooks []hookResponse
	if err := decode(callerFindWebhook, resp.Body, &hooks); err != nil {
		return nil, err
	}

	for i := range hooks {
		if hooks[i].URL == webhookURL {
			return &hooks[i], nil
		}
	}
	return nil, nil
}
