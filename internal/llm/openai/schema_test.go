package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/llm"
)

func TestAdaptMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: ""},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: ""},
	}
	out := AdaptMessages(msgs)
	require.Len(t, out, len(msgs))

	js0, err := json.Marshal(out[0])
	require.NoError(t, err)
	require.Contains(t, string(js0), "You are a helpful assistant.")

	js1, err := json.Marshal(out[1])
	require.NoError(t, err)
	require.Contains(t, string(js1), "hello")

	js2, err := json.Marshal(out[2])
	require.NoError(t, err)
	require.True(t, strings.Contains(string(js2), `"content":" "`) || strings.Contains(string(js2), `"content": " "`))
}
