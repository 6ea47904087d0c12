package gitlab

import (
	"net/http"
	"strings"

	glapi "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

const (
	eventHeader     = "X-Gitlab-Event"
	branchRefPrefix = "refs/heads/"
	mrActionOpen    = "open"
	mrActionClose   = "close"
	mrActionMerge   = "merge"
)

// ParseHook normalizes a GitLab webhook delivery.
//
// Only merge request (open, close, merge) and push hooks are supported. Every
// other delivery, including payloads from other providers and bodies that do
// not parse, yields nil. ParseHook never fails.
func ParseHook(header http.Header, body []byte) *HookEvent {
	eventType := glapi.EventType(headerValue(header, eventHeader))

	switch eventType {
	case glapi.EventTypeMergeRequest, glapi.EventTypePush:
	default:
		logging.Debug("Ignoring webhook", zap.String("event", string(eventType)))
		return nil
	}

	event, err := glapi.ParseWebhook(eventType, body)
	if err != nil {
		logging.Warn("Failed to parse webhook payload",
			zap.String("event", string(eventType)),
			zap.Error(err))
		return nil
	}

	switch e := event.(type) {
	case *glapi.MergeEvent:
		return mergeRequestEvent(e)
	case *glapi.PushEvent:
		return pushEvent(e)
	default:
		return nil
	}
}

// headerValue looks key up case-insensitively, so raw lower-case maps work as well
func headerValue(header http.Header, key string) string {
	if v := header.Get(key); v != "" {
		return v
	}
	for k, values := range header {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func mergeRequestEvent(e *glapi.MergeEvent) *HookEvent {
	attrs := e.ObjectAttributes

	var action string
	switch attrs.Action {
	case mrActionOpen:
		action = HookActionOpened
	case mrActionClose, mrActionMerge:
		action = HookActionClosed
	default:
		logging.Debug("Ignoring merge request action", zap.String("action", attrs.Action))
		return nil
	}

	event := &HookEvent{
		Type:   HookTypePR,
		Action: action,
		Branch: attrs.TargetBranch,
		SHA:    attrs.LastCommit.ID,
		PRNum:  int(attrs.IID),
		PRRef:  attrs.SourceBranch,
	}
	if e.User != nil {
		event.Username = e.User.Username
	}
	if attrs.Source != nil {
		event.CheckoutURL = attrs.Source.HTTPURL
	}

	return event
}

func pushEvent(e *glapi.PushEvent) *HookEvent {
	sha := e.CheckoutSHA
	if sha == "" && len(e.Commits) > 0 && e.Commits[len(e.Commits)-1] != nil {
		sha = e.Commits[len(e.Commits)-1].ID
	}
	if sha == "" {
		sha = e.After
	}

	event := &HookEvent{
		Type:     HookTypeRepo,
		Action:   HookActionPush,
		Username: e.UserUsername,
		Branch:   strings.TrimPrefix(e.Ref, branchRefPrefix),
		SHA:      sha,
	}
	if e.Repository != nil {
		event.CheckoutURL = e.Repository.GitHTTPURL
	}

	return event
}
