package gitlab

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
)

// "jobs:\n  main:\n    image: node:18\n" base64 encoded
const encodedScrewdriverYAML = "am9iczoKICBtYWluOgogICAgaW1hZ2U6IG5vZGU6MTgK"

func fileResponse(content string) string {
	return `{
		"file_name": "screwdriver.yaml",
		"file_path": "screwdriver.yaml",
		"size": 32,
		"encoding": "base64",
		"content": "` + content + `",
		"ref": "master",
		"blob_id": "79f7bbd25901e8334750839545a9bd021f0e4c83",
		"commit_id": "d5a3ff139356ce33e37e73add446f16869741b50",
		"last_commit_id": "570e7b2abdd848b95f2f578043fc23bd6f6fd24d"
	}`
}

func TestGetFile(t *testing.T) {
	t.Run("returns content as sent", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, fileResponse(encodedScrewdriverYAML)))
		c := newTestClient(t, f)

		content, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "")

		require.NoError(t, err)
		assert.Equal(t, encodedScrewdriverYAML, content)

		req := f.last()
		assert.Equal(t, "/api/v3/projects/12345/repository/files", req.Path)
		assert.Equal(t, "screwdriver.yaml", req.Query.Get("file_path"))
		assert.Equal(t, "master", req.Query.Get("ref"), "empty ref reads the identifier's branch")
	})

	t.Run("explicit ref", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, fileResponse(encodedScrewdriverYAML)))
		c := newTestClient(t, f)

		_, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "v1.2.0")

		require.NoError(t, err)
		assert.Equal(t, "v1.2.0", f.last().Query.Get("ref"))
	})

	t.Run("decodes when configured", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, fileResponse(encodedScrewdriverYAML)))
		c := newTestClient(t, f, func(cfg *config.GitLabConfig) {
			cfg.DecodeFileContent = true
		})

		content, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "")

		require.NoError(t, err)
		assert.Equal(t, "jobs:\n  main:\n    image: node:18\n", content)
	})

	t.Run("invalid base64 when decoding", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, fileResponse("not*base64")))
		c := newTestClient(t, f, func(cfg *config.GitLabConfig) {
			cfg.DecodeFileContent = true
		})

		_, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "")

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	})
}

func TestGetFileErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusNotFound, `{"message":"404 File Not Found"}`))
		c := newTestClient(t, f)

		_, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "")

		assert.EqualError(t, err, `404 Reason "404 File Not Found" Caller "_getFile"`)
	})

	t.Run("missing content field", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, `{"file_name":"screwdriver.yaml"}`))
		c := newTestClient(t, f)

		_, err := c.GetFile(context.Background(), "gitlab.com:12345:master", testToken, "screwdriver.yaml", "")

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Equal(t, "screwdriver.yaml", formatErr.Value)
	})

	t.Run("malformed identifier", func(t *testing.T) {
		f := newFakeGitLab(t, respondJSON(http.StatusOK, `{}`))
		c := newTestClient(t, f)

		_, err := c.GetFile(context.Background(), "12345:master", testToken, "screwdriver.yaml", "")

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Empty(t, f.recorded())
	})
}
