package gitlab

import (
	"context"
	"net/http"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
)

// SCM is the provider-agnostic contract the orchestrator calls.
// This interface allows for easy mocking in tests
type SCM interface {
	// Repository resolution
	ParseURL(ctx context.Context, checkoutURL, token string) (string, error)
	ParseHook(header http.Header, body []byte) *HookEvent

	// Metadata
	DecorateAuthor(ctx context.Context, username, token string) (*Author, error)
	DecorateURL(ctx context.Context, scmURI, token string) (*RepoURL, error)
	GetCommitSHA(ctx context.Context, scmURI, token string) (string, error)
	GetFile(ctx context.Context, scmURI, token, path, ref string) (string, error)

	// Write operations
	UpdateCommitStatus(ctx context.Context, update StatusUpdate) error
	AddWebhook(ctx context.Context, scmURI, token, webhookURL string) error

	// Local, no I/O
	GetCheckoutCommand(cfg CheckoutConfig) CheckoutCommand
	GetBellConfiguration() BellConfig
	Stats() fusebox.Stats
}

// Verify that Client implements SCM interface
var _ SCM = (*Client)(nil)
