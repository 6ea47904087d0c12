package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
)

// BuildStatus is the orchestrator's build state
type BuildStatus string

const (
	BuildSuccess BuildStatus = "SUCCESS"
	BuildFailure BuildStatus = "FAILURE"
	BuildAborted BuildStatus = "ABORTED"
	BuildRunning BuildStatus = "RUNNING"
	BuildQueued  BuildStatus = "QUEUED"
)

const statusContext = "Screwdriver"

// StatusUpdate describes one commit status to publish
type StatusUpdate struct {
	ScmURI      string
	SHA         string
	BuildStatus BuildStatus
	Token       string
	URL         string // build page linked from the status
	JobName     string // optional; qualifies the status context
}

// State returns the GitLab commit state for s
func (s BuildStatus) State() string {
	switch s {
	case BuildSuccess:
		return "success"
	case BuildFailure, BuildAborted:
		return "failure"
	default:
		return "pending"
	}
}

// Description returns the human readable text shown next to the status
func (s BuildStatus) Description() string {
	switch s {
	case BuildSuccess:
		return "Everything looks good!"
	case BuildFailure:
		return "Did not work as expected."
	case BuildAborted:
		return "Aborted mid-flight"
	case BuildRunning:
		return "Testing your code..."
	default:
		return "Looking good so far..."
	}
}

func statusContextFor(jobName string) string {
	if jobName == "" {
		return statusContext
	}
	return statusContext + "/" + jobName
}

// UpdateCommitStatus publishes a build status on a commit
func (c *Client) UpdateCommitStatus(ctx context.Context, update StatusUpdate) error {
	id, err := DecodeRepoID(update.ScmURI)
	if err != nil {
		return err
	}

	_, err = c.call(ctx, callerUpdateCommitStatus, fusebox.Request{
		Method: http.MethodPost,
		URL: c.apiURL(id.Host, fmt.Sprintf("/projects/%s/statuses/%s",
			url.PathEscape(id.ProjectID), url.PathEscape(update.SHA))),
		Query: url.Values{
			"context":     {statusContextFor(update.JobName)},
			"target_url":  {update.URL},
			"state":       {update.BuildStatus.State()},
			"description": {update.BuildStatus.Description()},
		},
		Token: update.Token,
	}, http.StatusOK, http.StatusCreated)

	return err
}
