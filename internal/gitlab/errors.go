package gitlab

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Caller tags carried by ResponseError. The host correlates its logs on them.
const (
	callerParseURL           = "_parseUrl"
	callerDecorateAuthor     = "_decorateAuthor"
	callerLookupScmURI       = "lookupScmUri"
	callerGetCommitSHA       = "_getCommitSha"
	callerGetFile            = "_getFile"
	callerUpdateCommitStatus = "_updateCommitStatus"
	callerFindWebhook        = "_findWebhook"
	callerCreateWebhook      = "_createWebhook"
	callerUpdateWebhook      = "_updateWebhook"
)

// ValidationError reports invalid adapter configuration
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// FormatError reports input or provider data that does not have the expected shape
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Value == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Value)
}

// ResponseError is returned when GitLab answers with a status the operation does not accept
type ResponseError struct {
	StatusCode int
	Reason     string // GitLab's "message" field
	Caller     string // operation that issued the request
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d Reason \"%s\" Caller \"%s\"", e.StatusCode, e.Reason, e.Caller)
}

// newResponseError extracts GitLab's message from body.
// message may be a string or an object of field errors.
func newResponseError(caller string, statusCode int, body []byte) *ResponseError {
	reason := http.StatusText(statusCode)

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case len(payload.Message) > 0 && payload.Message[0] == '"':
			var msg string
			if err := json.Unmarshal(payload.Message, &msg); err == nil {
				reason = msg
			}
		case len(payload.Message) > 0 && string(payload.Message) != "null":
			reason = string(payload.Message)
		case payload.Error != "":
			reason = payload.Error
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		reason = text
	}

	return &ResponseError{
		StatusCode: statusCode,
		Reason:     reason,
		Caller:     caller,
	}
}
