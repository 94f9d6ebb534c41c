package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/llm"
)

func minimalUsage() sdk.Usage {
	return sdk.Usage{
		CacheCreationInputTokens: 0,
		CacheReadInputTokens:     0,
		InputTokens:              0,
		OutputTokens:             0,
		ServiceTier:              sdk.UsageServiceTierStandard,
	}
}

func TestChatReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:         "msg_1",
			Type:       constant.Message("message"),
			Role:       constant.Assistant("assistant"),
			Model:      sdk.ModelClaude3_7SonnetLatest,
			StopReason: sdk.StopReasonEndTurn,
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hello"},
			},
			Usage: minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	msg, err := client.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Content)
	require.Equal(t, "/v1/messages", gotPath)
}

func TestChatPromptCacheAddsCacheControlToSystem(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:         "msg_cache",
			Type:       constant.Message("message"),
			Role:       constant.Assistant("assistant"),
			Model:      sdk.ModelClaude3_7SonnetLatest,
			StopReason: sdk.StopReasonEndTurn,
			Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}},
			Usage:      minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	cfg := config.AnthropicConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		PromptCache: config.AnthropicPromptCacheConfig{
			Enabled: true,
			// Intentionally leave CacheSystem/CacheMessages unset to verify defaults.
		},
	}
	client := New(cfg, srv.Client())
	_, err := client.Chat(
		context.Background(),
		[]llm.Message{{Role: "system", Content: "static system"}, {Role: "user", Content: "hi"}},
		"",
	)
	require.NoError(t, err)

	sysAny, ok := reqBody["system"]
	require.True(t, ok)
	sysList, ok := sysAny.([]any)
	require.True(t, ok)
	require.NotEmpty(t, sysList)
	sys0, ok := sysList[0].(map[string]any)
	require.True(t, ok)
	_, ok = sys0["cache_control"]
	require.True(t, ok, "expected system cache_control, got %#v", sys0)
}

func TestAdaptMessagesRejectsUnsupportedRole(t *testing.T) {
	_, _, err := adaptMessages([]llm.Message{{Role: "tool", Content: "x"}}, config.AnthropicPromptCacheConfig{})
	require.Error(t, err)
}

func TestAdaptMessagesRequiresMessages(t *testing.T) {
	_, _, err := adaptMessages(nil, config.AnthropicPromptCacheConfig{})
	require.Error(t, err)
}
