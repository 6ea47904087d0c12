package gitlab

import (
	"strings"
)

// idDelimiter separates the identifier fields. It is not escaped, so a host
// carrying a port or a branch containing ':' cannot be decoded.
const idDelimiter = ":"

// RepoID is the decoded form of the repository identifier host:projectId:branch
type RepoID struct {
	Host      string
	ProjectID string
	Branch    string
}

// String encodes the identifier
func (r RepoID) String() string {
	return EncodeRepoID(r.Host, r.ProjectID, r.Branch)
}

// EncodeRepoID joins the identifier fields. No validation is performed.
func EncodeRepoID(host, projectID, branch string) string {
	return strings.Join([]string{host, projectID, branch}, idDelimiter)
}

// DecodeRepoID splits id into its three fields
func DecodeRepoID(id string) (RepoID, error) {
	parts := strings.Split(id, idDelimiter)
	if len(parts) != 3 {
		return RepoID{}, &FormatError{Value: id, Reason: "scmUri must be in the format host:projectId:branch"}
	}

	return RepoID{
		Host:      parts[0],
		ProjectID: parts[1],
		Branch:    parts[2],
	}, nil
}
