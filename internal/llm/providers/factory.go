// Package providers builds concrete internal/llm.Provider clients from a
// config.ProviderConfig entry, selecting the client package by Kind.
package providers

import (
	"fmt"
	"net/http"

	"ragcore/internal/config"
	"ragcore/internal/llm"
	"ragcore/internal/llm/anthropic"
	"ragcore/internal/llm/google"
	openaillm "ragcore/internal/llm/openai"
)

// Build constructs an llm.Provider for one gateway chain entry based on
// its configured Kind ("openai", "anthropic", "google"); Kind defaults to
// "openai" when unset so a bare API-key/base-URL entry works against any
// OpenAI-compatible endpoint (self-hosted servers included).
func Build(pc config.ProviderConfig, httpClient *http.Client) (llm.Provider, error) {
	switch pc.Kind {
	case "", "openai":
		return openaillm.New(pc.AsOpenAI(), httpClient), nil
	case "anthropic":
		return anthropic.New(pc.AsAnthropic(), httpClient), nil
	case "google":
		return google.New(pc.AsGoogle(), httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider kind: %s", pc.Kind)
	}
}
