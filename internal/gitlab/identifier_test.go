package gitlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoIDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   RepoID
	}{
		{name: "default branch", id: RepoID{Host: "gitlab.com", ProjectID: "12345", Branch: "master"}},
		{name: "feature branch", id: RepoID{Host: "gitlab.example.com", ProjectID: "7", Branch: "feature/login"}},
		{name: "dotted branch", id: RepoID{Host: "gitlab.com", ProjectID: "42", Branch: "release-1.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.id.String()
			decoded, err := DecodeRepoID(encoded)

			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestEncodeRepoID(t *testing.T) {
	assert.Equal(t, "gitlab.com:12345:master", EncodeRepoID("gitlab.com", "12345", "master"))
}

func TestDecodeRepoIDRejectsWrongArity(t *testing.T) {
	tests := []string{
		"",
		"gitlab.com:12345",
		"localhost:8080:12345:master",
		"gitlab.com:12345:release:candidate",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeRepoID(input)

			require.Error(t, err)
			var formatErr *FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Contains(t, err.Error(), "host:projectId:branch")
		})
	}
}
