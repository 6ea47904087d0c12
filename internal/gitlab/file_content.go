package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
)

// fileContent represents a file's content from GitLab API
type fileContent struct {
	FileName     string  `json:"file_name"`
	FilePath     string  `json:"file_path"`
	Size         int     `json:"size"`
	Encoding     string  `json:"encoding"`
	Content      *string `json:"content"`
	Ref          string  `json:"ref"`
	BlobID       string  `json:"blob_id"`
	CommitID     string  `json:"commit_id"`
	LastCommitID string  `json:"last_commit_id"`
}

// GetFile fetches the content of path at ref. An empty ref reads the identifier's branch.
//
// Content is returned as GitLab sends it, base64 included, unless the adapter
// is configured with DecodeFileContent.
func (c *Client) GetFile(ctx context.Context, scmURI, token, path, ref string) (string, error) {
	id, err := DecodeRepoID(scmURI)
	if err != nil {
		return "", err
	}
	if ref == "" {
		ref = id.Branch
	}

	resp, err := c.call(ctx, callerGetFile, fusebox.Request{
		Method: http.MethodGet,
		URL:    c.apiURL(id.Host, fmt.Sprintf("/projects/%s/repository/files", url.PathEscape(id.ProjectID))),
		Query:  url.Values{"file_path": {path}, "ref": {ref}},
		Token:  token,
	})
	if err != nil {
		return "", err
	}

	var file fileContent
	if err := decode(callerGetFile, resp.Body, &file); err != nil {
		return "", err
	}
	if file.Content == nil {
		return "", &FormatError{Value: path, Reason: "file response has no content"}
	}

	if c.config.DecodeFileContent && file.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(*file.Content)
		if err != nil {
			return "", &FormatError{Value: path, Reason: fmt.Sprintf("failed to decode base64 content: %v", err)}
		}
		return string(decoded), nil
	}

	return *file.Content, nil
}
