package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/llm"
)

func TestChatSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.GoogleConfig{
		APIKey:  "k",
		Model:   "test-model",
		BaseURL: srv.URL,
	}
	client, err := New(cfg, srv.Client())
	require.NoError(t, err)

	msg, err := client.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "do"},
		{Role: "user", Content: "hi"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Content)
	require.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)
}

func TestChatBlockedBySafety(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(config.GoogleConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, "")
	require.Error(t, err)
}

func TestToContentsRejectsUnsupportedRole(t *testing.T) {
	_, err := toContents([]llm.Message{{Role: "tool", Content: "x"}})
	require.Error(t, err)
}

func TestToContentsRequiresMessages(t *testing.T) {
	_, err := toContents(nil)
	require.Error(t, err)
}
