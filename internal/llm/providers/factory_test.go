package providers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
)

func TestBuildDefaultsToOpenAI(t *testing.T) {
	p, err := Build(config.ProviderConfig{APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestBuildDispatchesByKind(t *testing.T) {
	for _, kind := range []string{"openai", "anthropic", "google"} {
		p, err := Build(config.ProviderConfig{Kind: kind, APIKey: "k", Model: "m"}, nil)
		require.NoError(t, err, "kind=%s", kind)
		require.NotNil(t, p, "kind=%s", kind)
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	_, err := Build(config.ProviderConfig{Kind: "bogus"}, nil)
	require.Error(t, err)
}
