package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/llm"
)

func TestChatCompletions(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := cli.Chat(ctx, []llm.Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Content)
}

func TestChatResponsesAPI(t *testing.T) {
	var gotPath string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp_1","object":"response","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hi there"}]}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m", API: "responses"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := cli.Chat(ctx, []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "hi there", msg.Content)
	require.Contains(t, gotPath, "/responses")
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "a", firstNonEmpty("", "a", "b"))
}

func TestSelfHostedTokenizeCount(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello world"}}]}`))
		case r.URL.Path == "/tokenize":
			_, _ = w.Write([]byte(`{"tokens":[1,2,3]}`))
		}
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "m"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := cli.Chat(ctx, []llm.Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	require.Equal(t, "hello world", msg.Content)
	require.True(t, cli.isSelfHosted())
}
